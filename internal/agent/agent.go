package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "codeberg.org/guideelbac/server/internal/errors"
	"codeberg.org/guideelbac/server/internal/llm"
	"codeberg.org/guideelbac/server/internal/logger"
)

const (
	defaultGenerateTimeout = 60 * time.Second
	defaultStreamTimeout   = 120 * time.Second
)

var errEmptyStream = errors.New("stream produced no text")

func New(ret Retriever, generator llm.TextGenerator, config Config) *Agent {
	if config.GenerateTimeout <= 0 {
		config.GenerateTimeout = defaultGenerateTimeout
	}

	if config.StreamTimeout <= 0 {
		config.StreamTimeout = defaultStreamTimeout
	}

	return &Agent{
		retriever: ret,
		generator: generator,
		config:    config,
	}
}

// Respond resolves context for the question and answers it through emit
func (a *Agent) Respond(ctx context.Context, question string, emit EmitFunc) Outcome {
	resolution := a.retriever.Resolve(ctx, question)

	out := a.Answer(ctx, question, resolution.ContextText, emit)
	out.Resolution = resolution

	return out
}

// Answer streams a generated answer token by token. If streaming fails it
// falls back to one non-streaming call, then to a static apology. Every path
// ends with an EventDone, unless the client went away first.
func (a *Agent) Answer(ctx context.Context, question, contextText string, emit EmitFunc) Outcome {
	log := logger.FromContext(ctx)
	req := buildRequest(question, contextText)

	out, streamErr := a.stream(ctx, req, emit)
	if streamErr == nil || out.Mode == ModeAborted {
		return out
	}

	if ctx.Err() != nil {
		// request canceled: nobody is listening for a fallback
		return a.abort(out, emit)
	}

	log.Warn("streaming failed, falling back to one-shot generation",
		"error", streamErr,
		"tokens_sent", out.Tokens,
	)

	text, genErr := a.generateOnce(ctx, req)
	if genErr == nil {
		return a.deliver(out, ModeOneShot, "", text, emit)
	}

	if ctx.Err() != nil {
		return a.abort(out, emit)
	}

	cat := apperrors.Classify(genErr)
	if cat == apperrors.CategoryUnspecified || cat == apperrors.CategoryTimeout {
		cat = apperrors.CategoryGeneration
	}

	log.Error("generation failed, sending apology", "error", genErr, "category", cat)

	return a.deliver(out, ModeApology, cat, apperrors.Apology(cat), emit)
}

// pulls tokens from the provider and forwards each one as soon as it arrives
func (a *Agent) stream(ctx context.Context, req llm.TextGenerationRequest, emit EmitFunc) (Outcome, error) {
	out := Outcome{Mode: ModeStreamed}

	streamCtx, cancel := context.WithTimeout(ctx, a.config.StreamTimeout)
	defer cancel()

	ts, err := a.generator.StreamText(streamCtx, req)
	if err != nil {
		return out, err
	}

	defer ts.Close() //nolint:errcheck

	var text strings.Builder

	for ts.Next() {
		tok := ts.Token()

		if err := emit(Event{Kind: EventToken, Text: tok}); err != nil {
			out.Mode = ModeAborted
			out.Text = text.String()
			return out, fmt.Errorf("client gone: %w", err)
		}

		text.WriteString(tok)
		out.Tokens++
	}

	out.Text = text.String()

	if err := ts.Err(); err != nil {
		return out, err
	}

	if out.Tokens == 0 {
		return out, errEmptyStream
	}

	if err := emit(Event{Kind: EventDone}); err != nil {
		out.Mode = ModeAborted
	}

	return out, nil
}

func (a *Agent) generateOnce(ctx context.Context, req llm.TextGenerationRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.config.GenerateTimeout)
	defer cancel()

	resp, err := a.generator.GenerateText(ctx, req)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("empty completion: %w", apperrors.ErrGeneration)
	}

	return text, nil
}

// sends a complete answer followed by the end marker
func (a *Agent) deliver(out Outcome, mode Mode, cat apperrors.Category, text string, emit EmitFunc) Outcome {
	out.Mode = mode
	out.Category = cat
	out.Text = text

	if err := emit(Event{Kind: EventFallback, Text: text, Replace: out.Tokens > 0}); err != nil {
		out.Mode = ModeAborted
		return out
	}

	if err := emit(Event{Kind: EventDone}); err != nil {
		out.Mode = ModeAborted
	}

	return out
}

func (a *Agent) abort(out Outcome, emit EmitFunc) Outcome {
	out.Mode = ModeAborted
	_ = emit(Event{Kind: EventDone}) //nolint:errcheck // best effort, client is likely gone

	return out
}

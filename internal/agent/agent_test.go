package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	apperrors "codeberg.org/guideelbac/server/internal/errors"
	"codeberg.org/guideelbac/server/internal/llm"
	"codeberg.org/guideelbac/server/internal/retriever"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockGenerator implements llm.TextGenerator
type mockGenerator struct {
	streamFunc   func(ctx context.Context, req llm.TextGenerationRequest) (llm.TokenStream, error)
	generateFunc func(ctx context.Context, req llm.TextGenerationRequest) (*llm.TextGenerationResponse, error)
	lastRequest  llm.TextGenerationRequest
}

func (m *mockGenerator) StreamText(ctx context.Context, req llm.TextGenerationRequest) (llm.TokenStream, error) {
	m.lastRequest = req
	if m.streamFunc != nil {
		return m.streamFunc(ctx, req)
	}

	return nil, errors.New("stream not configured")
}

func (m *mockGenerator) GenerateText(ctx context.Context, req llm.TextGenerationRequest) (*llm.TextGenerationResponse, error) {
	if m.generateFunc != nil {
		return m.generateFunc(ctx, req)
	}

	return nil, errors.New("generate not configured")
}

// sliceStream yields tokens then fails with err (nil for a clean end)
type sliceStream struct {
	tokens []string
	err    error
	pos    int
	closed bool
}

func (s *sliceStream) Next() bool {
	if s.closed || s.pos >= len(s.tokens) {
		return false
	}

	s.pos++
	return true
}

func (s *sliceStream) Token() string { return s.tokens[s.pos-1] }
func (s *sliceStream) Err() error    { return s.err }

func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}

type mockRetriever struct {
	resolution retriever.Resolution
}

func (m *mockRetriever) Resolve(context.Context, string) retriever.Resolution {
	return m.resolution
}

// collects events the way a client would
type recorder struct {
	events []Event
	failAt int // emit fails on this call (1-based); zero never fails
}

func (r *recorder) emit(ev Event) error {
	r.events = append(r.events, ev)
	if r.failAt > 0 && len(r.events) >= r.failAt {
		return errors.New("broken pipe")
	}

	return nil
}

func (r *recorder) answer() string {
	var b strings.Builder
	for _, ev := range r.events {
		switch ev.Kind {
		case EventToken:
			b.WriteString(ev.Text)
		case EventFallback:
			if ev.Replace {
				b.Reset()
			}
			b.WriteString(ev.Text)
		}
	}

	return b.String()
}

func (r *recorder) last() Event {
	return r.events[len(r.events)-1]
}

func newTestAgent(gen *mockGenerator) *Agent {
	return New(&mockRetriever{}, gen, Config{})
}

func TestAnswerStreamsTokensInOrder(t *testing.T) {
	stream := &sliceStream{tokens: []string{"Bonjour", " le", " monde"}}
	gen := &mockGenerator{
		streamFunc: func(context.Context, llm.TextGenerationRequest) (llm.TokenStream, error) { return stream, nil },
	}

	rec := &recorder{}
	out := newTestAgent(gen).Answer(context.Background(), "Salut ?", "ctx", rec.emit)

	assert.Equal(t, ModeStreamed, out.Mode)
	assert.Equal(t, "Bonjour le monde", out.Text)
	assert.Equal(t, 3, out.Tokens)
	require.Len(t, rec.events, 4)
	assert.Equal(t, EventToken, rec.events[0].Kind)
	assert.Equal(t, EventDone, rec.last().Kind)
	assert.Equal(t, "Bonjour le monde", rec.answer())
	assert.True(t, stream.closed)
}

func TestAnswerBuildsPersonaWithContext(t *testing.T) {
	gen := &mockGenerator{
		streamFunc: func(context.Context, llm.TextGenerationRequest) (llm.TokenStream, error) {
			return &sliceStream{tokens: []string{"ok"}}, nil
		},
	}

	newTestAgent(gen).Answer(context.Background(), "Quel score pour médecine ?", "Document: guide\nContent: 180", (&recorder{}).emit)

	assert.Contains(t, gen.lastRequest.SystemPrompt, "Guide El Bac")
	assert.True(t, strings.HasSuffix(gen.lastRequest.SystemPrompt, "Document: guide\nContent: 180"))
	require.Len(t, gen.lastRequest.Messages, 1)
	assert.Equal(t, "user", gen.lastRequest.Messages[0].Role)
	assert.Equal(t, "Quel score pour médecine ?", gen.lastRequest.Messages[0].Content)
}

func TestAnswerFallsBackToOneShotWhenStreamCannotOpen(t *testing.T) {
	gen := &mockGenerator{
		streamFunc: func(context.Context, llm.TextGenerationRequest) (llm.TokenStream, error) {
			return nil, errors.New("azure stream refused")
		},
		generateFunc: func(context.Context, llm.TextGenerationRequest) (*llm.TextGenerationResponse, error) {
			return &llm.TextGenerationResponse{Text: "Réponse complète."}, nil
		},
	}

	rec := &recorder{}
	out := newTestAgent(gen).Answer(context.Background(), "q", "ctx", rec.emit)

	assert.Equal(t, ModeOneShot, out.Mode)
	require.Len(t, rec.events, 2)
	assert.Equal(t, EventFallback, rec.events[0].Kind)
	assert.False(t, rec.events[0].Replace)
	assert.Equal(t, "Réponse complète.", rec.events[0].Text)
	assert.Equal(t, EventDone, rec.last().Kind)
}

func TestAnswerMidStreamFailureReplacesPartialText(t *testing.T) {
	gen := &mockGenerator{
		streamFunc: func(context.Context, llm.TextGenerationRequest) (llm.TokenStream, error) {
			return &sliceStream{tokens: []string{"Bon", "jour"}, err: errors.New("connection reset")}, nil
		},
		generateFunc: func(context.Context, llm.TextGenerationRequest) (*llm.TextGenerationResponse, error) {
			return &llm.TextGenerationResponse{Text: "Bonjour, voici la réponse."}, nil
		},
	}

	rec := &recorder{}
	out := newTestAgent(gen).Answer(context.Background(), "q", "ctx", rec.emit)

	assert.Equal(t, ModeOneShot, out.Mode)
	assert.Equal(t, 2, out.Tokens)
	require.Len(t, rec.events, 4)
	assert.True(t, rec.events[2].Replace)
	assert.Equal(t, "Bonjour, voici la réponse.", rec.answer())
	assert.Equal(t, EventDone, rec.last().Kind)
}

func TestAnswerEmptyStreamFallsBack(t *testing.T) {
	gen := &mockGenerator{
		streamFunc: func(context.Context, llm.TextGenerationRequest) (llm.TokenStream, error) {
			return &sliceStream{}, nil
		},
		generateFunc: func(context.Context, llm.TextGenerationRequest) (*llm.TextGenerationResponse, error) {
			return &llm.TextGenerationResponse{Text: "Texte."}, nil
		},
	}

	out := newTestAgent(gen).Answer(context.Background(), "q", "ctx", (&recorder{}).emit)
	assert.Equal(t, ModeOneShot, out.Mode)
}

func TestAnswerApologizesWhenEverythingFails(t *testing.T) {
	gen := &mockGenerator{
		streamFunc: func(context.Context, llm.TextGenerationRequest) (llm.TokenStream, error) {
			return nil, errors.New("secret provider detail")
		},
		generateFunc: func(context.Context, llm.TextGenerationRequest) (*llm.TextGenerationResponse, error) {
			return nil, errors.New("secret provider detail")
		},
	}

	rec := &recorder{}
	out := newTestAgent(gen).Answer(context.Background(), "q", "ctx", rec.emit)

	assert.Equal(t, ModeApology, out.Mode)
	assert.Equal(t, apperrors.CategoryGeneration, out.Category)
	require.Len(t, rec.events, 2)
	assert.Equal(t, apperrors.Apology(apperrors.CategoryGeneration), rec.events[0].Text)
	assert.NotContains(t, rec.answer(), "secret")
	assert.Equal(t, EventDone, rec.last().Kind)
}

func TestAnswerStopsWhenClientDisconnects(t *testing.T) {
	stream := &sliceStream{tokens: []string{"a", "b", "c", "d"}}
	generateCalled := false
	gen := &mockGenerator{
		streamFunc: func(context.Context, llm.TextGenerationRequest) (llm.TokenStream, error) { return stream, nil },
		generateFunc: func(context.Context, llm.TextGenerationRequest) (*llm.TextGenerationResponse, error) {
			generateCalled = true
			return &llm.TextGenerationResponse{Text: "x"}, nil
		},
	}

	rec := &recorder{failAt: 2}
	out := newTestAgent(gen).Answer(context.Background(), "q", "ctx", rec.emit)

	assert.Equal(t, ModeAborted, out.Mode)
	assert.Len(t, rec.events, 2)
	assert.True(t, stream.closed)
	assert.Equal(t, 2, stream.pos, "no token pulled after the failed emit")
	assert.False(t, generateCalled)
}

func TestAnswerCanceledContextSkipsFallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	generateCalled := false
	gen := &mockGenerator{
		streamFunc: func(context.Context, llm.TextGenerationRequest) (llm.TokenStream, error) {
			cancel()
			return nil, context.Canceled
		},
		generateFunc: func(context.Context, llm.TextGenerationRequest) (*llm.TextGenerationResponse, error) {
			generateCalled = true
			return nil, nil
		},
	}

	rec := &recorder{}
	out := newTestAgent(gen).Answer(ctx, "q", "ctx", rec.emit)

	assert.Equal(t, ModeAborted, out.Mode)
	assert.False(t, generateCalled)
	require.NotEmpty(t, rec.events)
	assert.Equal(t, EventDone, rec.last().Kind)
}

func TestRespondUsesResolvedContext(t *testing.T) {
	gen := &mockGenerator{
		streamFunc: func(context.Context, llm.TextGenerationRequest) (llm.TokenStream, error) {
			return &sliceStream{tokens: []string{"ok"}}, nil
		},
	}
	ret := &mockRetriever{resolution: retriever.Resolution{
		ContextText: retriever.NoContextPlaceholder,
		Source:      retriever.SourceNone,
	}}

	a := New(ret, gen, Config{})
	out := a.Respond(context.Background(), "question sans réponse", (&recorder{}).emit)

	assert.Equal(t, ModeStreamed, out.Mode)
	assert.NotEmpty(t, out.Text)
	assert.Equal(t, retriever.SourceNone, out.Resolution.Source)
	assert.Contains(t, gen.lastRequest.SystemPrompt, retriever.NoContextPlaceholder)
}

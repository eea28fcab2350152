package agent

import (
	"context"
	"time"

	apperrors "codeberg.org/guideelbac/server/internal/errors"
	"codeberg.org/guideelbac/server/internal/llm"
	"codeberg.org/guideelbac/server/internal/retriever"
)

// interface for context resolution
type Retriever interface {
	Resolve(ctx context.Context, question string) retriever.Resolution
}

type Agent struct {
	retriever Retriever
	generator llm.TextGenerator
	config    Config
}

type Config struct {
	GenerateTimeout time.Duration // one-shot fallback call
	StreamTimeout   time.Duration // whole streaming session
}

type EventKind int

const (
	// one streamed fragment
	EventToken EventKind = iota

	// a complete answer delivered in one piece (one-shot fallback or apology)
	EventFallback

	// end of answer, emitted on every path
	EventDone
)

type Event struct {
	Kind EventKind
	Text string

	// Text supersedes tokens already delivered
	Replace bool
}

// EmitFunc delivers one event to the client; an error means the client is gone
type EmitFunc func(Event) error

type Mode string

const (
	ModeStreamed Mode = "streamed"
	ModeOneShot  Mode = "one_shot"
	ModeApology  Mode = "apology"
	ModeAborted  Mode = "aborted"
)

// Outcome describes how an answer was delivered
type Outcome struct {
	Mode     Mode
	Category apperrors.Category // failure category for ModeApology
	Text     string             // full answer text as delivered
	Tokens   int                // streamed fragments emitted

	Resolution retriever.Resolution
}

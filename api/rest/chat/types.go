package chat

import (
	"context"
	"encoding/json"

	"codeberg.org/guideelbac/server/internal/agent"
)

const maxQuestionRunes = 1000

// validation reasons returned in the error field
const (
	ReasonMissing = "question missing"
	ReasonNotText = "question must be text"
	ReasonTooLong = "question too long"
	ReasonBadJSON = "invalid json"
)

// Answerer turns a question into events delivered through emit
type Answerer interface {
	Respond(ctx context.Context, question string, emit agent.EmitFunc) agent.Outcome
}

// ChatRequest is kept raw so a null or a number can be told apart from a missing field
type ChatRequest struct {
	Question json.RawMessage `json:"question" swaggertype:"string"`
}

// AnswerResponse is sent when the answer could not be streamed
type AnswerResponse struct {
	Answer string `json:"answer"`
}

type InfoResponse struct {
	Message   string `json:"message"`
	Streaming bool   `json:"streaming"`
	Timestamp string `json:"timestamp"`
}

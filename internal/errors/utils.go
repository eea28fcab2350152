package errors

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// sentinels wrapped by internal packages so failures can be classified
var (
	ErrValidation        = errors.New("validation failed")
	ErrExtraction        = errors.New("text extraction failed")
	ErrEmbedding         = errors.New("embedding failed")
	ErrRetrieval         = errors.New("retrieval failed")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrGeneration        = errors.New("generation failed")
)

const TemporaryFailure = "Erreur technique temporaire"

const apologyPrefix = "Je rencontre actuellement des difficultés techniques. "

var apologies = map[Category]string{
	CategoryEmbedding:   apologyPrefix + "Pouvez-vous reformuler votre question de manière plus simple ?",
	CategoryStore:       apologyPrefix + "Il y a un problème avec la base de données. Veuillez réessayer dans quelques instants.",
	CategoryGeneration:  "Je suis désolé, mais je rencontre des difficultés techniques pour générer une réponse personnalisée. Pouvez-vous reformuler votre question ou réessayer dans quelques instants ?",
	CategoryUnspecified: apologyPrefix + "Veuillez réessayer votre question dans quelques instants.",
}

// returns the static apology for a failure category; never empty
func Apology(cat Category) string {
	if msg, ok := apologies[cat]; ok {
		return msg
	}

	return apologies[CategoryUnspecified]
}

// records the result of a pipeline step
func NewOutcome(step string, err error) Outcome {
	if err == nil {
		return Outcome{Step: step}
	}

	return Outcome{Step: step, Category: Classify(err), Err: err}
}

// maps an error to the dependency category that produced it
func Classify(err error) Category {
	if err == nil {
		return CategoryUnspecified
	}

	// typed sentinels first
	switch {
	case errors.Is(err, ErrEmbedding):
		return CategoryEmbedding
	case errors.Is(err, ErrRetrieval), errors.Is(err, ErrDimensionMismatch):
		return CategoryStore
	case errors.Is(err, ErrGeneration):
		return CategoryGeneration
	case errors.Is(err, ErrValidation):
		return CategoryValidation
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) || errors.Is(err, pgx.ErrNoRows) {
		return CategoryStore
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryTimeout
	}

	// fallback to string matching for untyped errors
	errMsg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errMsg, "embedding"):
		return CategoryEmbedding
	case containsAny(errMsg, "database", "sql", "postgres", "pgx"):
		return CategoryStore
	case containsAny(errMsg, "azure", "openai", "anthropic", "completion"):
		return CategoryGeneration
	case containsAny(errMsg, "timeout", "deadline"):
		return CategoryTimeout
	}

	return CategoryUnspecified
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}

	return false
}

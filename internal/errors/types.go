package errors

// ErrorResponse is the JSON body of every non-streamed error
type ErrorResponse struct {
	Error   string `json:"error"`             // error code or validation reason
	Message string `json:"message,omitempty"` // user-friendly message
	Answer  string `json:"answer,omitempty"`  // apology shown in place of an answer
}

// Category groups failures by the dependency that caused them
type Category string

const (
	CategoryEmbedding   Category = "embedding"
	CategoryStore       Category = "store"
	CategoryGeneration  Category = "generation"
	CategoryValidation  Category = "validation"
	CategoryTimeout     Category = "timeout"
	CategoryUnspecified Category = "unspecified"
)

// Outcome records how one pipeline step ended; a zero Outcome is success
type Outcome struct {
	Step     string
	Category Category
	Err      error
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

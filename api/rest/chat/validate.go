package chat

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// returns the trimmed question, or the reason it was rejected
func parseQuestion(body []byte) (string, string) {
	if len(bytes.TrimSpace(body)) == 0 {
		return "", ReasonMissing
	}

	var req ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return "", ReasonBadJSON
	}

	raw := bytes.TrimSpace(req.Question)
	if len(raw) == 0 {
		return "", ReasonMissing
	}

	var question string
	if err := json.Unmarshal(raw, &question); err != nil || bytes.Equal(raw, []byte("null")) {
		return "", ReasonNotText
	}

	question = strings.TrimSpace(question)

	switch {
	case question == "":
		return "", ReasonMissing
	case utf8.RuneCountInString(question) > maxQuestionRunes:
		return "", ReasonTooLong
	}

	return question, ""
}

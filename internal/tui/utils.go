package tui

import "time"

const (
	defaultEndpoint = "http://localhost:8080"

	// covers the server side embed, stream and fallback budgets
	askTimeout    = 4 * time.Minute
	healthTimeout = 5 * time.Second

	roleUser      = "user"
	roleAssistant = "assistant"
)

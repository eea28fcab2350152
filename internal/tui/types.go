package tui

import (
	"context"
	"net/http"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

// represents the current state of the TUI
type AppState int

const (
	StateWelcome AppState = iota
	StateChat
)

// main TUI application model
type Model struct {
	state   AppState
	mode    string
	width   int
	height  int
	err     error
	welcome *Welcome
	chat    *ChatModel
	client  *ChatClient
}

// sent when an error occurs
type ErrorMsg struct {
	err error
}

// sent to transition to the chat state
type EnterChatMsg struct{}

// sent with the outcome of the health command
type HealthMsg struct {
	status string
}

// one exchange line in the conversation
type ChatMessage struct {
	Role     string
	Content  string
	rendered string
}

// question-and-answer screen
type ChatModel struct {
	client     *ChatClient
	input      textinput.Model
	viewport   viewport.Model
	spinner    spinner.Model
	renderer   *glamour.TermRenderer
	history    []ChatMessage
	stream     <-chan tea.Msg
	cancel     context.CancelFunc
	seq        int // current request; older messages are dropped
	isFetching bool
	status     string
	width      int
	height     int
	ready      bool
}

// part of an answer as it arrives
type ChunkMsg struct {
	Text    string
	Replace bool
	seq     int
}

// sent once an answer is complete or failed
type AnswerDoneMsg struct {
	err error
	seq int
}

// welcome screen model
type Welcome struct {
	mode     string
	input    string
	status   string
	commands []Command
}

// represents an available TUI command
type Command struct {
	Name        string
	Description string
}

// talks to the chat endpoint of a running server
type ChatClient struct {
	endpoint   string
	httpClient *http.Client
}

type chatRequest struct {
	Question string `json:"question"`
}

type chatResponse struct {
	Answer  string `json:"answer"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

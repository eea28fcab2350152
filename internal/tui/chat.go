package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const initialWidth = 80

// returns a new chat screen bound to client
func NewChatModel(client *ChatClient) *ChatModel {
	ti := textinput.New()
	ti.Placeholder = "posez votre question sur l'orientation..."
	ti.Focus()
	ti.CharLimit = 1000
	ti.Width = initialWidth - 10
	ti.Prompt = "> "
	ti.PromptStyle = promptStyle
	ti.TextStyle = inputStyle

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = infoStyle

	m := &ChatModel{
		client:   client,
		input:    ti,
		viewport: viewport.New(initialWidth, 10),
		spinner:  sp,
		width:    initialWidth,
	}

	m.renderer = newRenderer(initialWidth)
	m.refresh()

	return m
}

func newRenderer(width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(max(20, width-8)),
	)
	if err != nil {
		return nil
	}

	return r
}

func (m *ChatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *ChatModel) Update(msg tea.Msg) (*ChatModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			question := strings.TrimSpace(m.input.Value())
			if question == "" || m.isFetching {
				return m, nil
			}

			m.input.SetValue("")
			return m, m.ask(question)

		case "esc":
			m.stop("answer canceled")
			return m, nil

		case "ctrl+l":
			m.stop("")
			m.history = nil
			m.refresh()
			return m, nil

		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case ChunkMsg:
		if !m.isFetching || msg.seq != m.seq {
			return m, nil
		}

		m.appendChunk(msg)
		return m, waitForAnswer(m.stream, m.seq)

	case AnswerDoneMsg:
		if !m.isFetching || msg.seq != m.seq {
			return m, nil
		}

		m.finish(msg.err)
		return m, nil

	case spinner.TickMsg:
		if !m.isFetching {
			return m, nil
		}

		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

// starts a request in the background; chunks come back through m.stream
func (m *ChatModel) ask(question string) tea.Cmd {
	m.history = append(m.history,
		ChatMessage{Role: roleUser, Content: question},
		ChatMessage{Role: roleAssistant},
	)

	ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
	ch := make(chan tea.Msg, 64)

	m.seq++
	seq := m.seq

	m.stream = ch
	m.cancel = cancel
	m.isFetching = true
	m.status = ""
	m.refresh()

	send := func(msg tea.Msg) {
		select {
		case ch <- msg:
		case <-ctx.Done():
		}
	}

	client := m.client

	go func() {
		defer close(ch)
		defer cancel()

		err := client.Ask(ctx, question, func(c ChunkMsg) {
			c.seq = seq
			send(c)
		})
		send(AnswerDoneMsg{err: err, seq: seq})
	}()

	return tea.Batch(waitForAnswer(ch, seq), m.spinner.Tick)
}

// blocks until the next piece of the answer
func waitForAnswer(ch <-chan tea.Msg, seq int) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return AnswerDoneMsg{seq: seq}
		}

		return msg
	}
}

func (m *ChatModel) appendChunk(c ChunkMsg) {
	last := &m.history[len(m.history)-1]

	if c.Replace {
		last.Content = c.Text
	} else {
		last.Content += c.Text
	}

	m.refresh()
}

func (m *ChatModel) finish(err error) {
	m.isFetching = false
	m.stream = nil

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	if err != nil {
		m.status = fmt.Sprintf("error: %v", err)
	}

	if n := len(m.history); n > 0 {
		last := &m.history[n-1]
		if last.Role == roleAssistant && last.Content != "" {
			last.rendered = m.render(last.Content)
		}
	}

	m.refresh()
	m.input.Focus()
}

func (m *ChatModel) stop(status string) {
	if !m.isFetching {
		return
	}

	m.finish(nil)
	m.status = status
}

func (m *ChatModel) resize(width, height int) {
	m.width = width
	m.height = height
	m.ready = true

	m.input.Width = max(10, width-10)
	m.viewport.Width = max(20, width-2)
	m.viewport.Height = max(3, height-8)

	m.renderer = newRenderer(width)
	for i := range m.history {
		if m.history[i].rendered != "" {
			m.history[i].rendered = m.render(m.history[i].Content)
		}
	}

	m.refresh()
}

// markdown rendering, raw text when no renderer is available
func (m *ChatModel) render(content string) string {
	if m.renderer == nil {
		return content
	}

	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}

	return strings.TrimRight(out, "\n")
}

// rebuilds the conversation and keeps the newest text in view
func (m *ChatModel) refresh() {
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m *ChatModel) transcript() string {
	if len(m.history) == 0 {
		return infoStyle.Render("prêt ! posez une question et appuyez sur entrée.")
	}

	var b strings.Builder

	for _, msg := range m.history {
		switch msg.Role {
		case roleUser:
			b.WriteString(userStyle.Render("vous › " + msg.Content))

		case roleAssistant:
			switch {
			case msg.rendered != "":
				b.WriteString(msg.rendered)
			case msg.Content != "":
				b.WriteString(answerStyle.Render(msg.Content))
			}
		}

		b.WriteString("\n\n")
	}

	return b.String()
}

// the full answer text of the latest exchange
func (m *ChatModel) LastAnswer() string {
	for i := len(m.history) - 1; i >= 0; i-- {
		if m.history[i].Role == roleAssistant {
			return m.history[i].Content
		}
	}

	return ""
}

func (m *ChatModel) View() string {
	var b strings.Builder

	header := headerStyle.Render("GUIDE EL BAC")
	help := helpStyle.Render("[Entrée: envoyer] [Échap: annuler] [Ctrl+L: effacer] [Ctrl+C: retour]")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		header,
		strings.Repeat(" ", max(1, m.width-lipgloss.Width(header)-lipgloss.Width(help)-2)),
		help,
	))
	b.WriteString("\n")

	b.WriteString(borderStyle.Width(max(20, m.width-2)).Render(m.viewport.View()))
	b.WriteString("\n")

	b.WriteString(borderStyle.Width(max(20, m.width-2)).Padding(0, 1).Render(m.input.View()))
	b.WriteString("\n")

	switch {
	case m.isFetching:
		b.WriteString(m.spinner.View() + infoStyle.Render(" réponse en cours..."))
	case m.status != "":
		b.WriteString(errorStyle.Render(m.status))
	}

	return b.String()
}

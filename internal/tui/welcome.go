package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// returns a new welcome screen
func NewWelcome(mode string) *Welcome {
	return &Welcome{
		mode: mode,
		commands: []Command{
			{Name: "chat", Description: "poser des questions sur l'orientation"},
			{Name: "health", Description: "vérifier que le serveur répond"},
			{Name: "quit", Description: "quitter"},
		},
	}
}

func (m *Welcome) Update(msg tea.Msg, client *ChatClient) (*Welcome, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			cmd := m.executeCommand(client)
			m.input = ""
			return m, cmd
		case "backspace":
			if len(m.input) > 0 {
				m.input = m.input[:len(m.input)-1]
			}
		default:
			if len(msg.Runes) > 0 {
				m.input += string(msg.Runes)
			}
		}

	case HealthMsg:
		m.status = msg.status
	}

	return m, nil
}

func (m *Welcome) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(logo))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render("votre guide d'orientation après le bac"))
	b.WriteString("\n\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf("mode: %s", strings.ToUpper(m.mode))))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(colorWhite).Render("commands:"))
	b.WriteString("\n\n")

	for _, cmd := range m.commands {
		b.WriteString(fmt.Sprintf("  %s %s\n",
			commandStyle.Render(cmd.Name),
			commandDescStyle.Render("- "+cmd.Description),
		))
	}

	b.WriteString("\n")
	b.WriteString(promptStyle.Render("> ") + inputStyle.Render(m.input+"_"))
	b.WriteString("\n\n")

	if m.status != "" {
		b.WriteString(infoStyle.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("type a command and press enter. press ctrl+c to quit."))

	return b.String()
}

func (m *Welcome) executeCommand(client *ChatClient) tea.Cmd {
	cmd := strings.TrimSpace(m.input)

	switch cmd {
	case "quit":
		return tea.Quit

	case "chat":
		return func() tea.Msg {
			return EnterChatMsg{}
		}

	case "health":
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
			defer cancel()

			status, err := client.Health(ctx)
			if err != nil {
				return HealthMsg{status: fmt.Sprintf("server unreachable: %v", err)}
			}

			return HealthMsg{status: "server " + status}
		}

	case "":
		return nil

	default:
		return func() tea.Msg {
			return HealthMsg{status: fmt.Sprintf("unknown command: %s", cmd)}
		}
	}
}

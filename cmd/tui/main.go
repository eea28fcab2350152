package main

import (
	"fmt"
	"os"

	"codeberg.org/guideelbac/server/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"
)

func main() {
	if !term.IsTerminal(os.Stdout.Fd()) {
		fmt.Println("guide el bac needs an interactive terminal")
		os.Exit(1)
	}

	env := os.Getenv("ENVIRONMENT")

	if env == "" {
		env = "development"
	}

	app := tui.NewApp(env, os.Getenv("GUIDE_API_ENDPOINT"))
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Printf("error running guide el bac: %v\n", err)
		os.Exit(1)
	}
}

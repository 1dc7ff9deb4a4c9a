// Package ui holds the terminal styles shared by the CLI help and chat.
package ui

import "github.com/charmbracelet/lipgloss"

// Basic ANSI colors follow the user's terminal theme.
var (
	TitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true).MarginBottom(1)

	UsageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))

	// DescStyle is dimmed so descriptions recede behind names.
	DescStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	FlagStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

	// ResponderStyle labels chat answers with the responder that wrote them.
	ResponderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
)

// ResponderLabel renders "[name]" for the chat prompt.
func ResponderLabel(name string) string {
	return ResponderStyle.Render("[" + name + "]")
}

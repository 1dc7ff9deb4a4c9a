package responder

import (
	"fmt"
	"strings"
)

const defaultHistoryWindow = 10

// Capabilities gate what a responder may use while answering.
type Capabilities struct {
	KnowledgeSearch bool
	ExternalTools   bool
	HistoryWindow   int
}

// Definition declares one responder variant. Variants share the Responder
// implementation and differ only in their definition.
type Definition struct {
	Name         string
	Role         string
	Instructions []string
	Capabilities
}

func (d Definition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("responder definition has no name")
	}
	if strings.TrimSpace(d.Role) == "" {
		return fmt.Errorf("responder %q has no role", d.Name)
	}
	return nil
}

func (d Definition) historyWindow() int {
	if d.HistoryWindow <= 0 {
		return defaultHistoryWindow
	}
	return d.HistoryWindow
}

// SystemPrompt renders the role and the ordered instructions.
func (d Definition) SystemPrompt() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, part of the HackPal hackathon assistant team. %s\n", d.Name, d.Role)
	if len(d.Instructions) > 0 {
		sb.WriteString("\nInstructions:\n")
		for _, ins := range d.Instructions {
			sb.WriteString("- ")
			sb.WriteString(ins)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\nFormat answers in Markdown.")
	return sb.String()
}

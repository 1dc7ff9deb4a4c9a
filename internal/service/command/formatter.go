package command

import (
	"fmt"
	"strings"

	"github.com/sandevgo/hackpal/internal/core"
)

// turnPreviewRunes bounds one history line in /history output.
const turnPreviewRunes = 120

// ResponseFormatter renders command replies as Markdown. Transports convert
// it to their own markup.
type ResponseFormatter struct{}

func NewResponseFormatter() *ResponseFormatter {
	return &ResponseFormatter{}
}

func (f *ResponseFormatter) Info(title string) string {
	return fmt.Sprintf("⚙️ **%s**\n\n", title)
}

func (f *ResponseFormatter) Success(message string) string {
	return fmt.Sprintf("✅ **%s**\n", message)
}

func (f *ResponseFormatter) Error(command string, err error) string {
	if command == "" {
		return fmt.Sprintf("❌ **Command Error**\n\n**Issue**: %s\n", err.Error())
	}
	return fmt.Sprintf("❌ **/%s failed**\n\n**Issue**: %s\n", command, err.Error())
}

func (f *ResponseFormatter) Label(label, value string) string {
	return fmt.Sprintf("**%s**  ›  `%s`\n", label, value)
}

func (f *ResponseFormatter) Usage(command string) string {
	return fmt.Sprintf("**Usage**:\n```%s```\n", command)
}

func (f *ResponseFormatter) Examples(examples []string) string {
	var sb strings.Builder
	sb.WriteString("**Examples**:\n")
	for _, ex := range examples {
		sb.WriteString(fmt.Sprintf("`%s`\n", ex))
	}
	return sb.String()
}

func (f *ResponseFormatter) List(items []string) string {
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString(fmt.Sprintf("› %s\n", item))
	}
	return sb.String()
}

// Turn renders one history entry on a single line, cut to a preview.
func (f *ResponseFormatter) Turn(t core.Turn) string {
	content := []rune(strings.Join(strings.Fields(t.Content), " "))
	if len(content) > turnPreviewRunes {
		content = append(content[:turnPreviewRunes-3], []rune("...")...)
	}
	return fmt.Sprintf("**%s**: %s", t.Speaker, string(content))
}

func (f *ResponseFormatter) Tip(text string) string {
	return fmt.Sprintf("**Tip**: %s\n", text)
}

func (f *ResponseFormatter) Combine(sections ...string) string {
	return strings.Join(sections, "\n")
}

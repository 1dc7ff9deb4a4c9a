package conv

import (
	"fmt"
	"strings"
)

// SplitMessage splits text into chunks no longer than maxLen bytes,
// preferring newline boundaries in the latter two thirds of a chunk.
func SplitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}

		cut := maxLen
		if idx := strings.LastIndex(text[:maxLen], "\n"); idx > maxLen/3 {
			cut = idx
		}

		chunks = append(chunks, text[:cut])
		text = strings.TrimSpace(text[cut:])
	}
	return chunks
}

// Truncate keeps the head and tail of oversized input and marks the gap.
func Truncate(input string, maxLen int) string {
	if len(input) <= maxLen {
		return input
	}

	headLen := maxLen / 4
	head := input[:headLen]
	tail := input[len(input)-(maxLen-headLen):]
	return fmt.Sprintf("%s\n\n... [TRUNCATED %d bytes] ...\n\n%s", head, len(input)-maxLen, tail)
}

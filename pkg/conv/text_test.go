package conv

import (
	"strings"
	"testing"
)

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   []string
	}{
		{
			name:   "fits",
			input:  "short",
			maxLen: 10,
			want:   []string{"short"},
		},
		{
			name:   "hard cut without newline",
			input:  "abcdefghij",
			maxLen: 4,
			want:   []string{"abcd", "efgh", "ij"},
		},
		{
			name:   "prefers newline",
			input:  "line one\nline two",
			maxLen: 12,
			want:   []string{"line one", "line two"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitMessage(tt.input, tt.maxLen)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("SplitMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("small", 10); got != "small" {
		t.Errorf("expected untouched input, got %q", got)
	}

	input := strings.Repeat("a", 50) + strings.Repeat("b", 50)
	got := Truncate(input, 40)
	if !strings.HasPrefix(got, strings.Repeat("a", 10)) {
		t.Errorf("expected head of input, got %q", got)
	}
	if !strings.HasSuffix(got, strings.Repeat("b", 30)) {
		t.Errorf("expected tail of input, got %q", got)
	}
	if !strings.Contains(got, "[TRUNCATED 60 bytes]") {
		t.Errorf("expected truncation marker, got %q", got)
	}
}

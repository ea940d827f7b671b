package llm

import (
	"errors"
	"strings"
	"testing"
)

func TestCleanOutput(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain", "  a summary \n", "a summary", false},
		{"fenced", "```\n- one\n- two\n```", "- one\n- two", false},
		{"fenced with language", "```markdown\n# Title\n```", "# Title", false},
		{"inner fence kept", "text ```code``` text", "text ```code``` text", false},
		{"empty", " \n\t", "", true},
		{"empty fence", "```\n```", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CleanOutput(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrEmptyOutput) {
					t.Fatalf("expected ErrEmptyOutput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected unchanged, got %q", got)
	}
	if got := truncate(strings.Repeat("字", 5), 3); got != "字字字..." {
		t.Errorf("expected rune-safe cut, got %q", got)
	}
}

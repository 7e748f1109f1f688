package format

import (
	"strings"
	"testing"
)

func TestPreprocessSummaryText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"curly_quotes", "“revenue” is ‘high’", `"revenue" is 'high'`},
		{"plain_passthrough", "56 rows returned.", "56 rows returned."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PreprocessSummaryText(tt.input); got != tt.want {
				t.Errorf("PreprocessSummaryText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSummaryToHTMLListNormalization(t *testing.T) {
	// A list glued straight onto a paragraph still renders as a list.
	html := SummaryToHTML("Top categories:\n- books\n- games")
	if !strings.Contains(html, "<ul>") || !strings.Contains(html, "<li>books</li>") {
		t.Errorf("list not rendered: %q", html)
	}

	html = SummaryToHTML("Ranked:\n1. books\n2. games")
	if !strings.Contains(html, "<ol>") {
		t.Errorf("numbered list not rendered: %q", html)
	}
}

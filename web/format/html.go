package format

import (
	"regexp"
	"strings"

	"github.com/gomarkdown/markdown"
)

// SummaryToHTML renders a bot summary (markdown text) to HTML for the
// conversation view. Tables and charts are not rendered here; they travel as
// structured data alongside the summary.
func SummaryToHTML(rawContent string) string {
	text := PreprocessSummaryText(rawContent)
	text = normalizeMarkdownLists(text)
	return string(markdown.ToHTML([]byte(text), nil, nil))
}

// normalizeMarkdownLists ensures list items have proper spacing for markdown
// parsing. Markdown requires a blank line before lists, but generated
// summaries often forget this.
func normalizeMarkdownLists(text string) string {
	numbered := regexp.MustCompile(`^\d+\.\s`)
	lines := strings.Split(text, "\n")
	var result []string

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		isListItem := strings.HasPrefix(trimmed, "- ") ||
			strings.HasPrefix(trimmed, "* ") ||
			strings.HasPrefix(trimmed, "+ ") ||
			numbered.MatchString(trimmed)

		if isListItem && i > 0 {
			prevLine := strings.TrimSpace(lines[i-1])
			prevIsListItem := strings.HasPrefix(prevLine, "- ") ||
				strings.HasPrefix(prevLine, "* ") ||
				strings.HasPrefix(prevLine, "+ ") ||
				numbered.MatchString(prevLine)

			// Add blank line before list if previous line is text
			if prevLine != "" && !prevIsListItem {
				result = append(result, "")
			}
		}

		result = append(result, line)
	}

	return strings.Join(result, "\n")
}

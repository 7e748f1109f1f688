package format

import "strings"

// PreprocessSummaryText normalizes backend summary output.
// Performs basic text cleanup for better readability.
func PreprocessSummaryText(text string) string {
	if text == "" {
		return text
	}

	// Replace curly quotes (helps readability)
	text = strings.NewReplacer(
		"“", "\"", // "
		"”", "\"", // "
		"‘", "'", // '
		"’", "'", // '
	).Replace(text)

	return text
}

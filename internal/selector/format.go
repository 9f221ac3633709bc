package selector

import "strings"

// DefaultMaxPromptChars bounds the code portion of the model prompt.
const DefaultMaxPromptChars = 50_000

// FormatForPrompt concatenates selected files with "--- path ---" headers
// into a single string no longer than maxChars. If the budget runs out, the
// current file is truncated with a "[truncated]" marker and the rest are
// dropped.
func FormatForPrompt(files []File, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxPromptChars
	}

	var sb strings.Builder
	total := 0
	for _, f := range files {
		header := "\n--- " + f.Path + " ---\n"
		if total+len(header)+len(f.Content) > maxChars {
			// Leave headroom for the marker before truncating.
			remaining := maxChars - total - len(header) - 100
			if remaining > 500 {
				sb.WriteString(header)
				sb.WriteString(f.Content[:remaining])
				sb.WriteString("\n... [truncated]")
			}
			break
		}
		sb.WriteString(header)
		sb.WriteString(f.Content)
		total += len(header) + len(f.Content)
	}
	return sb.String()
}

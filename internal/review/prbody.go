package review

import (
	"fmt"
	"strings"

	"github.com/joescharf/nightfix/internal/models"
)

// maxDiffLines caps the inline diff so a large snippet cannot bloat the PR
// body.
const maxDiffLines = 60

// commitMessage renders the commit: title as subject, fix description as
// body.
func commitMessage(fix *models.FixSuggestion) string {
	if fix.FixDescription == "" {
		return fix.PRTitle
	}
	return fix.PRTitle + "\n\n" + fix.FixDescription
}

// buildPRBody renders the full pull request description for a fix.
func buildPRBody(fix *models.FixSuggestion) string {
	var sb strings.Builder

	sb.WriteString("## Summary\n\n")
	sb.WriteString(fix.PRBody)
	sb.WriteString("\n\n## Bug\n\n")
	sb.WriteString(fix.BugDescription)
	sb.WriteString("\n\n## Fix\n\n")
	sb.WriteString(fix.FixDescription)
	fmt.Fprintf(&sb, "\n\n**File:** `%s`\n", fix.FilePath)
	fmt.Fprintf(&sb, "**Confidence:** %s\n", fix.Confidence)
	if fix.RelatedIssue > 0 {
		fmt.Fprintf(&sb, "**Related issue:** #%d\n", fix.RelatedIssue)
	}

	sb.WriteString("\n## Code Changes\n\n```diff\n")
	sb.WriteString(renderDiff(fix.OriginalCode, fix.FixedCode))
	sb.WriteString("```\n")

	sb.WriteString("\n## Review Checklist\n\n")
	sb.WriteString("- [ ] The fix addresses a real bug\n")
	sb.WriteString("- [ ] No unintended behavior changes\n")
	sb.WriteString("- [ ] Tests pass\n")
	sb.WriteString("\n---\n*This pull request was opened by an automated nightly review.*\n")

	return sb.String()
}

// renderDiff produces a simple removed/added view of the two snippets,
// capped at maxDiffLines total.
func renderDiff(original, fixed string) string {
	var lines []string
	for _, l := range strings.Split(strings.TrimRight(original, "\n"), "\n") {
		lines = append(lines, "-"+l)
	}
	for _, l := range strings.Split(strings.TrimRight(fixed, "\n"), "\n") {
		lines = append(lines, "+"+l)
	}
	if len(lines) > maxDiffLines {
		lines = append(lines[:maxDiffLines], "... (truncated)")
	}
	return strings.Join(lines, "\n") + "\n"
}

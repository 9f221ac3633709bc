package analyze

import (
	"fmt"
	"strings"

	"github.com/joescharf/nightfix/internal/models"
)

// systemPrompt steers the model toward conservative, mechanically applicable
// fixes only.
const systemPrompt = `You are an expert code reviewer focused on finding and fixing bugs.
Your job is to analyze code and identify clear, unambiguous bugs that can be safely fixed.

Focus on these conservative fix types:
- Null/nil checks that are missing
- Error handling gaps
- Off-by-one errors
- Logic typos (wrong operators, inverted conditions)
- Resource leaks (unclosed files, connections)
- Obvious security issues (SQL injection, XSS)

DO NOT suggest:
- Style changes or refactoring
- Performance optimizations (unless critical)
- Adding new features
- Changing API signatures
- Anything that requires deep domain knowledge

Only report HIGH confidence bugs that have clear, safe fixes.`

// buildPrompt assembles the user prompt: repo context, open issues, code,
// and the exact JSON shape the response validator expects back.
func buildPrompt(repoName, issues, codeFiles string) string {
	return fmt.Sprintf(`Analyze this code for bugs and provide ONE actionable fix.

Repository: %s

Open Issues (bugs/enhancements):
%s

Code Files:
%s

Instructions:
1. Review the code carefully
2. Consider the open issues if relevant
3. Identify the most important bug that can be safely fixed
4. Provide a complete fix

Respond in this exact JSON format:
{
    "found_bug": true/false,
    "file_path": "path/to/file.py",
    "bug_description": "Brief description of the bug",
    "fix_description": "Brief description of the fix",
    "original_code": "The exact code to replace",
    "fixed_code": "The corrected code",
    "pr_title": "Short PR title",
    "pr_body": "Detailed PR description",
    "confidence": "high/medium/low",
    "related_issue": null or issue_number
}

If no bugs are found, set found_bug to false and leave other fields empty.`,
		repoName, issues, codeFiles)
}

// formatIssues renders open issues for the prompt, truncating long bodies.
func formatIssues(issues []models.Issue) string {
	if len(issues) == 0 {
		return "No open issues."
	}

	var sb strings.Builder
	for _, issue := range issues {
		fmt.Fprintf(&sb, "Issue #%d: %s\n", issue.Number, issue.Title)
		fmt.Fprintf(&sb, "  Labels: %s\n", strings.Join(issue.Labels, ", "))
		if issue.Body != "" {
			body := issue.Body
			if len(body) > 500 {
				body = body[:500] + "..."
			}
			fmt.Fprintf(&sb, "  Description: %s\n", body)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

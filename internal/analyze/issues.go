package analyze

import (
	"sort"
	"strings"

	"github.com/joescharf/nightfix/internal/models"
)

// fixableKeywords suggest issues the agent has a realistic chance of fixing
// with a small, mechanical change.
var fixableKeywords = []string{
	"null pointer", "nullpointerexception", "typeerror",
	"undefined", "none", "attributeerror", "keyerror",
	"off by one", "off-by-one", "index out of",
	"crash", "exception", "error handling",
	"missing check", "validation", "sanitize",
}

// nonActionableLabels mark issues not worth sending to the model.
var nonActionableLabels = map[string]bool{
	"question":         true,
	"discussion":       true,
	"wontfix":          true,
	"duplicate":        true,
	"invalid":          true,
	"documentation":    true,
	"design":           true,
	"needs more info":  true,
	"needs-more-info":  true,
	"work in progress": true,
}

// FilterActionable drops issues whose labels mark them as not fixable by a
// small code change.
func FilterActionable(issues []models.Issue) []models.Issue {
	var out []models.Issue
	for _, issue := range issues {
		actionable := true
		for _, label := range issue.Labels {
			if nonActionableLabels[strings.ToLower(label)] {
				actionable = false
				break
			}
		}
		if actionable {
			out = append(out, issue)
		}
	}
	return out
}

// Prioritize orders issues by how likely they are to yield a safe fix and
// returns at most limit of them.
func Prioritize(issues []models.Issue, limit int) []models.Issue {
	if len(issues) == 0 {
		return nil
	}

	type scored struct {
		issue models.Issue
		score float64
	}
	ranked := make([]scored, 0, len(issues))
	for _, issue := range issues {
		ranked = append(ranked, scored{issue: issue, score: scoreIssue(issue)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]models.Issue, len(ranked))
	for i, s := range ranked {
		out[i] = s.issue
	}
	return out
}

func scoreIssue(issue models.Issue) float64 {
	score := 0.0

	labels := make(map[string]bool, len(issue.Labels))
	for _, l := range issue.Labels {
		labels[strings.ToLower(l)] = true
	}
	if labels["bug"] {
		score += 3.0
	}
	if labels["critical"] || labels["urgent"] {
		score += 2.0
	}
	if labels["security"] {
		score += 2.5
	}
	if labels["enhancement"] {
		score += 1.0
	}
	if labels["good first issue"] {
		score += 0.5
	}
	if labels["help wanted"] {
		score += 0.5
	}

	title := strings.ToLower(issue.Title)
	body := strings.ToLower(issue.Body)
	for _, kw := range fixableKeywords {
		if strings.Contains(title, kw) || strings.Contains(body, kw) {
			score += 0.5
			break // count keywords once
		}
	}

	// Vague issues are poor guidance.
	if len(issue.Body) < 50 {
		score -= 0.5
	}

	if score < 0 {
		score = 0
	}
	return score
}

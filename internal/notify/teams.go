package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/joescharf/nightfix/internal/models"
)

// TeamsNotifier posts reports as Microsoft Teams MessageCards.
type TeamsNotifier struct {
	webhookURL string
	client     *http.Client
}

func (t *TeamsNotifier) Configured() bool    { return t.webhookURL != "" }
func (t *TeamsNotifier) ChannelName() string { return "teams" }

type teamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type teamsSection struct {
	ActivityTitle string      `json:"activityTitle"`
	Facts         []teamsFact `json:"facts,omitempty"`
}

// SendReport posts the morning report as a MessageCard.
func (t *TeamsNotifier) SendReport(ctx context.Context, report *models.ReviewReport) error {
	if !t.Configured() {
		return fmt.Errorf("teams webhook URL not configured")
	}

	section := teamsSection{
		ActivityTitle: fmt.Sprintf("Reviewed %d repositories in %s, opened %d pull request(s).",
			report.ReposReviewed, report.DurationString(), report.PRsCreated),
	}
	for _, pr := range report.PRs {
		section.Facts = append(section.Facts, teamsFact{
			Name:  pr.RepoName,
			Value: prLine(pr),
		})
	}

	payload := map[string]any{
		"@type":      "MessageCard",
		"@context":   "https://schema.org/extensions",
		"summary":    "Nightly review report",
		"themeColor": "2ecc71",
		"title":      fmt.Sprintf("Nightly review report: %s", report.Date.Format("2006-01-02")),
		"sections":   []teamsSection{section},
	}
	return postJSON(ctx, t.client, t.webhookURL, payload)
}

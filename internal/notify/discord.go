package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/joescharf/nightfix/internal/models"
)

const (
	discordGreen  = 0x2ecc71
	discordYellow = 0xf1c40f
)

// DiscordNotifier posts reports as Discord webhook embeds.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
}

func (d *DiscordNotifier) Configured() bool    { return d.webhookURL != "" }
func (d *DiscordNotifier) ChannelName() string { return "discord" }

type discordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Color       int                 `json:"color"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// SendReport posts the morning report as a single embed.
func (d *DiscordNotifier) SendReport(ctx context.Context, report *models.ReviewReport) error {
	if !d.Configured() {
		return fmt.Errorf("discord webhook URL not configured")
	}

	color := discordYellow
	if report.PRsCreated > 0 {
		color = discordGreen
	}
	embed := discordEmbed{
		Title: fmt.Sprintf("Nightly review report: %s", report.Date.Format("2006-01-02")),
		Description: fmt.Sprintf("Reviewed **%d** repositories in %s, opened **%d** pull request(s).",
			report.ReposReviewed, report.DurationString(), report.PRsCreated),
		Color: color,
	}
	for _, pr := range report.PRs {
		embed.Fields = append(embed.Fields, discordEmbedField{
			Name:  pr.RepoName,
			Value: prLine(pr),
		})
	}

	payload := map[string]any{
		"embeds": []discordEmbed{embed},
	}
	return postJSON(ctx, d.client, d.webhookURL, payload)
}

func prLine(pr models.PRSummary) string {
	if pr.Success && pr.PRURL != "" {
		return fmt.Sprintf("[#%d %s](%s)", pr.PRNumber, pr.PRTitle, pr.PRURL)
	}
	if pr.Success {
		return pr.PRTitle
	}
	reason := pr.Error
	if reason == "" {
		reason = "no fix found"
	}
	return "skipped: " + strings.TrimSpace(reason)
}

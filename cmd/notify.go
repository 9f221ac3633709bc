package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/nightfix/internal/models"
	"github.com/joescharf/nightfix/internal/notify"
)

const (
	notifyAttempts   = 3
	notifyRetryDelay = 5 * time.Second
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Send a test notification to the configured channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		return notifyTestRun(cmd)
	},
}

func init() {
	rootCmd.AddCommand(notifyCmd)
}

func configuredNotifier() (notify.Notifier, error) {
	n, err := notify.New(viper.GetString("notify.channel"), viper.GetString("notify.webhook_url"))
	if err != nil {
		return nil, err
	}
	if !n.Configured() {
		return nil, fmt.Errorf("notify.webhook_url not configured")
	}
	return n, nil
}

func notifyTestRun(cmd *cobra.Command) error {
	n, err := configuredNotifier()
	if err != nil {
		return err
	}

	now := time.Now()
	report := &models.ReviewReport{
		Date:          now,
		ReposReviewed: 1,
		PRsCreated:    1,
		StartTime:     now,
		EndTime:       now,
		PRs: []models.PRSummary{{
			RepoName: "example/test",
			PRNumber: 1,
			PRTitle:  "Test notification",
			Success:  true,
		}},
	}
	if err := n.SendReport(cmd.Context(), report); err != nil {
		return err
	}
	ui.Success("test notification sent to %s", n.ChannelName())
	return nil
}

// sendReportWithRetry delivers the report, retrying transient webhook
// failures.
func sendReportWithRetry(cmd *cobra.Command, report *models.ReviewReport) error {
	n, err := configuredNotifier()
	if err != nil {
		ui.Warning("notification skipped: %v", err)
		return nil
	}
	if dryRun {
		ui.DryRunMsg("would send report to %s", n.ChannelName())
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= notifyAttempts; attempt++ {
		lastErr = n.SendReport(cmd.Context(), report)
		if lastErr == nil {
			ui.Success("report sent to %s", n.ChannelName())
			return nil
		}
		if attempt < notifyAttempts {
			ui.Warning("send report (attempt %d/%d): %v", attempt, notifyAttempts, lastErr)
			time.Sleep(notifyRetryDelay)
		}
	}
	return fmt.Errorf("send report after %d attempts: %w", notifyAttempts, lastErr)
}

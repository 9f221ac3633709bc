package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/nightfix/internal/output"
)

var reportRunID int64

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show and send the morning report for the latest run",
	Long: `Build the report for the most recent review run (or --run-id), print
it, and deliver it to the configured notification channel. Runs older
than yesterday are considered stale and reported but not sent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportRun(cmd)
	},
}

func init() {
	reportCmd.Flags().Int64Var(&reportRunID, "run-id", 0, "Report a specific run instead of the latest")
	rootCmd.AddCommand(reportCmd)
}

func reportRun(cmd *cobra.Command) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	runID := reportRunID
	if runID == 0 {
		latest, err := s.GetLatestRun(ctx)
		if err != nil {
			return err
		}
		if latest == nil {
			return fmt.Errorf("no review runs recorded yet")
		}
		runID = latest.ID
	}

	report, err := s.BuildReport(ctx, runID)
	if err != nil {
		return err
	}

	ui.Info("Review run %d: %s", runID, report.Date.Format("2006-01-02"))
	ui.Info("Reviewed %d repositories in %s, %d PR(s) created",
		report.ReposReviewed, report.DurationString(), report.PRsCreated)

	table := ui.Table([]string{"REPO", "OUTCOME", "PR"})
	for _, pr := range report.PRs {
		outcome := "ok"
		link := ""
		if pr.Success && pr.PRURL != "" {
			outcome = "PR opened"
			link = "#" + strconv.Itoa(pr.PRNumber)
		} else if pr.Error != "" {
			outcome = pr.Error
		}
		table.Append([]string{pr.RepoName, output.OutcomeColor(outcome, pr.Success), link})
	}
	table.Render()

	// Stale reports are for eyes only; a channel ping about last week's run
	// is noise.
	if time.Since(report.Date) > 48*time.Hour {
		ui.Warning("run is older than two days, not sending notification")
		return nil
	}

	return sendReportWithRetry(cmd, report)
}

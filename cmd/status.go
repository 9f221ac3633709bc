package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/nightfix/internal/output"
	"github.com/joescharf/nightfix/internal/schedule"
)

var (
	statusLimit  int
	statusHealth bool
)

// heartbeatStaleAfter is how old the heartbeat may be before --health fails.
const heartbeatStaleAfter = 26 * time.Hour

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent review runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return statusRun(cmd)
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "Number of runs to show")
	statusCmd.Flags().BoolVar(&statusHealth, "health", false, "Exit non-zero if the heartbeat is stale")
	rootCmd.AddCommand(statusCmd)
}

func statusRun(cmd *cobra.Command) error {
	if statusHealth {
		return healthRun()
	}

	s, err := getStore()
	if err != nil {
		return err
	}

	runs, err := s.RecentRuns(cmd.Context(), statusLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		ui.Info("no review runs recorded yet")
		return nil
	}

	table := ui.Table([]string{"RUN", "STARTED", "DURATION", "REPOS", "PRS", "STATUS"})
	for _, run := range runs {
		duration := "-"
		if run.CompletedAt != nil {
			duration = run.CompletedAt.Sub(run.StartedAt).Round(time.Second).String()
		}
		table.Append([]string{
			strconv.FormatInt(run.ID, 10),
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			duration,
			strconv.Itoa(run.ReposReviewed),
			strconv.Itoa(run.PRsCreated),
			output.RunStatusColor(run.Status),
		})
	}
	table.Render()
	return nil
}

func healthRun() error {
	age, err := schedule.CheckHeartbeat(viper.GetString("heartbeat_path"))
	if err != nil {
		return fmt.Errorf("heartbeat check: %w", err)
	}
	if age > heartbeatStaleAfter {
		return fmt.Errorf("heartbeat is stale: last seen %s ago", age.Round(time.Minute))
	}
	ui.Success("healthy: last heartbeat %s ago", age.Round(time.Second))
	return nil
}

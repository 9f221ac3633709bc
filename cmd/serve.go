package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/nightfix/internal/schedule"
)

// idleShutdownTimeout bounds how long shutdown waits for in-flight repos.
const idleShutdownTimeout = 60 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run as a daemon with the nightly schedule",
	Long: `Run continuously: start a review cycle at the configured start time
each night and send the morning report at the report time. SIGINT or
SIGTERM stops scheduling and waits for in-flight repositories.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serveRun(cmd *cobra.Command) error {
	runner, err := buildRunner()
	if err != nil {
		return err
	}
	loc, err := timezone()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	heartbeatPath := viper.GetString("heartbeat_path")
	if err := schedule.WriteHeartbeat(heartbeatPath); err != nil {
		ui.Warning("write heartbeat: %v", err)
	}

	sched := schedule.NewScheduler(loc, ui)
	err = sched.Add(schedule.Job{
		Name: "review",
		At:   viper.GetString("schedule.start"),
		Run: func(ctx context.Context) {
			if err := schedule.WriteHeartbeat(heartbeatPath); err != nil {
				ui.Warning("write heartbeat: %v", err)
			}
			if _, err := runner.RunCycle(ctx); err != nil {
				ui.Error("review cycle: %v", err)
			}
		},
	})
	if err != nil {
		return err
	}
	err = sched.Add(schedule.Job{
		Name: "report",
		At:   viper.GetString("schedule.report"),
		Run: func(ctx context.Context) {
			if err := reportRun(cmd); err != nil {
				ui.Error("morning report: %v", err)
			}
		},
	})
	if err != nil {
		return err
	}

	ui.Info("scheduler started (review %s, report %s, %s)",
		viper.GetString("schedule.start"), viper.GetString("schedule.report"), loc)
	sched.Start(ctx)

	ui.Info("shutting down, waiting for in-flight repositories")
	if !runner.WaitIdle(idleShutdownTimeout) {
		ui.Warning("shutdown timeout reached with work still in flight")
	}
	return nil
}

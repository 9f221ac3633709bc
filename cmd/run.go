package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/nightfix/internal/schedule"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one review cycle now",
	Long: `Run a single review cycle immediately instead of waiting for the
scheduled start time. The configured deadline still applies.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRun(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command) error {
	runner, err := buildRunner()
	if err != nil {
		return err
	}

	if err := schedule.WriteHeartbeat(viper.GetString("heartbeat_path")); err != nil {
		ui.Warning("write heartbeat: %v", err)
	}

	runID, err := runner.RunCycle(cmd.Context())
	if err != nil {
		return err
	}
	ui.VerboseLog("run %d recorded", runID)
	return nil
}

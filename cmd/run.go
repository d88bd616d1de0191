package cmd

import (
	"github.com/relloyd/deskpipe/actions"
	"github.com/relloyd/deskpipe/config"
	"github.com/spf13/cobra"
)

var runCfg = actions.RunConfig{
	Job:      config.NewJobConfig(),
	LogLevel: "info",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Extract, reconcile and load one lookback window",
	Long: `Extract tickets and chats created within the lookback window, merge them on the ticket
number, remove rows whose chat number or ticket number is already in the target table and
append the rest. The target table is created on first use and new columns are added as
they appear.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRun()
	},
}

func runRun() error {
	ctx, cancel := signalContext()
	defer cancel()
	runCfg.StackDumpOnPanic = stackDumpOnPanic
	_, err := actions.RunPipeline(ctx, &runCfg)
	return err
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.SilenceUsage = true
	addJobFlags(runCmd, runCfg.Job, true)
	switches.addFlag(runCmd, &runCfg.LogLevel, "log-level", "info", false, "")
}

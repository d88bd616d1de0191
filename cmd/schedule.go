package cmd

import (
	"context"

	"github.com/relloyd/deskpipe/actions"
	"github.com/relloyd/deskpipe/config"
	"github.com/relloyd/deskpipe/logger"
	"github.com/spf13/cobra"
)

var (
	scheduleSpec   string
	scheduleRunCfg = actions.RunConfig{
		Job:      config.NewJobConfig(),
		LogLevel: "info",
	}
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Repeat 'run' on a cron schedule",
	Long: `Start a long running process that performs 'run' on the given cron schedule,
evaluated in UTC-3. A run that is still going when the next one is due causes that
tick to be skipped. Stop with an interrupt.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSchedule()
	},
}

func runSchedule() error {
	ctx, cancel := signalContext()
	defer cancel()
	scheduleRunCfg.StackDumpOnPanic = stackDumpOnPanic
	log := logger.NewLogger("deskpipe", scheduleRunCfg.LogLevel, stackDumpOnPanic)
	scheduleRunCfg.Env = &actions.Env{Log: log}
	if err := scheduleRunCfg.Job.Validate(); err != nil { // fail before waiting for the first tick.
		return err
	}
	return actions.RunSchedule(ctx, &actions.ScheduleConfig{
		Spec: scheduleSpec,
		Log:  log,
		RunFunc: func(ctx context.Context) error {
			_, err := actions.RunPipeline(ctx, &scheduleRunCfg)
			return err
		},
	})
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.SilenceUsage = true
	switches.addFlag(scheduleCmd, &scheduleSpec, "schedule", "", true, "")
	addJobFlags(scheduleCmd, scheduleRunCfg.Job, true)
	switches.addFlag(scheduleCmd, &scheduleRunCfg.LogLevel, "log-level", "info", false, "")
}

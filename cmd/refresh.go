package cmd

import (
	"github.com/relloyd/deskpipe/actions"
	"github.com/relloyd/deskpipe/config"
	"github.com/spf13/cobra"
)

var refreshCfg = actions.RefreshConfig{
	Job:      config.NewJobConfig(),
	LogLevel: "info",
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Update rows of tickets that are not yet resolved",
	Long: `Read the distinct ticket numbers in the target table whose status is not the resolved
status, fetch each ticket from the helpdesk and update its status, tags and custom field
columns in place.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRefresh()
	},
}

func runRefresh() error {
	ctx, cancel := signalContext()
	defer cancel()
	refreshCfg.StackDumpOnPanic = stackDumpOnPanic
	_, err := actions.RunRefresh(ctx, &refreshCfg)
	return err
}

func init() {
	rootCmd.AddCommand(refreshCmd)
	refreshCmd.SilenceUsage = true
	addJobFlags(refreshCmd, refreshCfg.Job, false)
	switches.addFlag(refreshCmd, &refreshCfg.LogLevel, "log-level", "info", false, "")
}

package cmd

import (
	"github.com/relloyd/deskpipe/actions"
	"github.com/spf13/cobra"
)

const queryArgsDefinitionTxt string = "<SQL-optionally-quoted>"

var queryCmd = &cobra.Command{
	Use:   "query " + queryArgsDefinitionTxt,
	Short: "Run a SQL statement against the sink",
	Long: `Execute a statement against the sink by supplying the SQL as plain arguments.
It's only necessary to wrap the statement in quotes if it contains special characters
that will be interpreted by your shell. You can use a dry-run to check formatting.
Results are returned as CSV lines with columns in sorted order.`,
	Args: getQueryFromArgsFunc(&queryCfg.Query, ""),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		queryCfg.StackDumpOnPanic = stackDumpOnPanic
		queryCfg.Out = cmd.OutOrStdout()
		return actions.RunQuery(ctx, &queryCfg)
	},
}

var queryCfg = actions.QueryConfig{
	LogLevel:    "error",
	Query:       "",
	DryRun:      false,
	PrintHeader: false,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().SortFlags = false
	queryCmd.SilenceUsage = true // avoid dumping command help when a SQL syntax error occurs.
	switches.addFlag(queryCmd, &queryCfg.Dsn, "sink-dsn", "", true, "")
	switches.addFlag(queryCmd, &queryCfg.LogLevel, "log-level", "error", false, "")
	switches.addFlag(queryCmd, &queryCfg.DryRun, "dry-run", "false", false, "")
	switches.addFlag(queryCmd, &queryCfg.PrintHeader, "print-header", "false", false, "")
}

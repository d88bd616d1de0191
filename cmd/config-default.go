package cmd

import (
	"fmt"

	"github.com/relloyd/deskpipe/config"
	"github.com/spf13/cobra"
)

var defaultCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Store default flag values for run, refresh, schedule and query",
	Long: fmt.Sprintf(`Store values that commands use when a flag is not given on the command line.

A default applies to every command that has a flag of the same long name, so setting
helpdesk-url, helpdesk-api-key, sink-dsn and table once is enough for 'dp run' and
'dp refresh' to share them. Defaults are ignored in Twelve-Factor mode.

Defaults are stored encrypted in %q`, config.Main.FullPath),
}

func init() {
	configCmd.AddCommand(defaultCmd)
}

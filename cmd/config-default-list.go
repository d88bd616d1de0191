package cmd

import (
	"fmt"

	"github.com/relloyd/deskpipe/actions"
	"github.com/relloyd/deskpipe/config"
	"github.com/spf13/cobra"
)

var configDefaultListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print all default flag values",
	Long: fmt.Sprintf(`List default flag values stored in config file %q
by printing them all to STDOUT. The API key and sink DSN are masked`,
		config.Main.FullPath),
	RunE: func(cmd *cobra.Command, args []string) error {
		return actions.RunDefaultList(&actions.DefaultListConfig{ConfigFile: config.Main, Out: cmd.OutOrStdout()})
	},
}

func init() {
	defaultCmd.AddCommand(configDefaultListCmd)
}

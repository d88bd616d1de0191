package cmd

import (
	"github.com/relloyd/deskpipe/actions"
	"github.com/relloyd/deskpipe/config"
	"github.com/spf13/cobra"
)

var defaultRemoveCfg = actions.DefaultRemoveConfig{}

var defaultRemoveCmd = &cobra.Command{
	Use:     "remove",
	Aliases: []string{"rm", "del", "delete"},
	Short:   "Forget the default value of a flag",
	Long: `Forget the default value of a flag so that commands fall back to their built-in
default, or require the flag again if it is mandatory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		defaultRemoveCfg.ConfigFile = config.Main
		return actions.RunDefaultRemove(&defaultRemoveCfg)
	},
}

func init() {
	defaultCmd.AddCommand(defaultRemoveCmd)
	defaultRemoveCmd.SilenceUsage = true
	defaultRemoveCmd.Flags().StringVarP(&defaultRemoveCfg.Key, "key", "k", "", "* Long name of the flag, e.g. dedup-policy")
	_ = defaultRemoveCmd.MarkFlagRequired("key")
}

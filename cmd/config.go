package cmd

import (
	"fmt"

	"github.com/relloyd/deskpipe/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configure default flag values",
	Long: fmt.Sprintf(`Configure default parameters where:

- Default flag values are stored in encrypted file %q
- A default is used by every command that has a flag of the same name
`, config.Main.FullPath),
}

func init() {
	rootCmd.AddCommand(configCmd)
}

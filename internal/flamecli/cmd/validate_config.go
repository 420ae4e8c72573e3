package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yandex/perforator-flame/internal/viewer"
)

var (
	validateConfigCmd = &cobra.Command{
		Use:   "validate-config",
		Short: "Validate viewer config",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if configPath == "" {
				fmt.Fprintln(os.Stderr, "Invalid config: --config is required")
				os.Exit(1)
			}
			config, err := viewer.ParseConfig(configPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
				os.Exit(1)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%#v\n", config)
		},
	}
)

func init() {
	rootCmd.AddCommand(validateConfigCmd)
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/securescan/securescan-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the local configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file populated with defaults",
	RunE:  runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}
	if err := config.WriteDefault(path); err != nil {
		return err
	}
	fmt.Printf("Config written to %s\n", path)
	return nil
}

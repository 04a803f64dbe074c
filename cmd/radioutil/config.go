package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/radiohal/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config <file>",
	Short: "Write a default config file",
	Long: `Config writes the default configuration to the named YAML file as
a starting point for editing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.DefaultConfig().Save(args[0]); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

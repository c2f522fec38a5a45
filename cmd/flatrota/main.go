package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukerupert/flatrota/internal/config"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "flatrota",
		Short:         "Rotating chore schedules for shared flats",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	loadConfig := func() (config.Config, error) {
		return config.Load(configPath)
	}

	rootCmd.AddCommand(newServeCmd(loadConfig))
	rootCmd.AddCommand(newMigrateCmd(loadConfig))
	rootCmd.AddCommand(newPreviewCmd())
	rootCmd.AddCommand(newSnapshotCmd(loadConfig))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

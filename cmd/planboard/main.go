package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/planboard/core/cmd/planboard/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "planboard",
		Short: "PlanBoard timeline server",
		Long:  `PlanBoard is a date-timeline planning board: tasks and events laid out on a month grid, with undo history and a linked board file for persistence.`,
	}

	// Add commands
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewExportCommand())
	rootCmd.AddCommand(commands.NewImportCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}

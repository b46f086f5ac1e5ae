package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/memoria/core/cmd/api/commands"
)

// @title Memoria API
// @version 1.0
// @description Personal knowledge server: tasks, memos, bookmarks, calendar, browser history and backups

// @license.name MIT

// @host localhost:3001
// @BasePath /api

func main() {
	rootCmd := &cobra.Command{
		Use:   "memoria",
		Short: "Memoria personal knowledge server",
		Long:  `Memoria stores memos, bookmarks, tasks and calendar events, imports browser history and ICS feeds, and keeps encrypted backups of its database.`,
	}

	// Add commands
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewImportCommand())
	rootCmd.AddCommand(commands.NewBackupCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}

// Package commands implements the buddy CLI commands using cobra.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command with every subcommand registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "buddy",
		Short: "Buddy - a friendly personal assistant",
		Long: `Buddy is a small conversational assistant for the browser.
It answers greetings, traffic, weather and general questions, and keeps
reminders, tasks, notes and calendar events.

Examples:
  buddy serve
  buddy serve --addr :8080
  buddy chat "weather in chennai"
  buddy config show`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newChatCmd(),
		newConfigCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the config file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}

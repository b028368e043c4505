package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tgranger",
	Short: "Backend for the Telegram group member scraping dashboard",
	Long: `tgranger drives a phone-linked account scraping workflow: authenticate
an account, discover groups and channels, harvest member records, and
export the results.

The serve command starts the HTTP + WebSocket gateway the dashboard
connects to. API credentials are managed with the auth subcommands and
stored in the system keychain, falling back to an encrypted file.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

package main

import (
	"fmt"
	"os"
	"runtime"

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
	logFile    string
	headless   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "liscraper",
	Short: "A LinkedIn profile scraper with persistent authenticated sessions",
	Long: `LinkedIn Scraper is a command-line tool for extracting public profile data
through an authenticated browser session.

Features:
  - Session cookies persisted between runs, login only when needed
  - Structured-data extraction with rendered-DOM fallback
  - Challenge detection with actionable recovery instructions
  - Rotating error log with per-category failure analysis
  - Secure credential storage using system keychain
  - Checkpointed batch runs with per-worker browsers`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .liscraper.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to file instead of stderr")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", true, "run the browser headless (disable to resolve challenges manually)")

	rootCmd.SetVersionTemplate(`LinkedIn Scraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)
}

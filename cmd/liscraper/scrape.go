package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"liscraper/pkg/auth"
	"liscraper/pkg/config"
	"liscraper/pkg/linkedin"
	"liscraper/pkg/logger"
	"liscraper/pkg/report"
	"liscraper/pkg/scraper"
	"liscraper/pkg/storage"
	"liscraper/pkg/ui"
)

var (
	// Scrape command flags
	outputDir   string
	rateLimit   int
	accountName string
	maxRetries  int
	printJSON   bool
	noSave      bool
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape <profile>",
	Short: "Scrape a LinkedIn profile by username or URL",
	Long: `Scrape a single LinkedIn profile and save it as a JSON document.

The profile can be given as a bare public identifier (e.g. "johndoe") or any
profile URL variant; both normalize to https://www.linkedin.com/in/<id>/.

This command needs valid LinkedIn credentials configured through:
  - Stored credentials (use 'liscraper auth login' to store)
  - Environment variables (LISCRAPER_EMAIL and LISCRAPER_PASSWORD)
  - Configuration file

A scrape never fails outright: when extraction is impossible the saved record
is a fallback carrying only the profile identity, and the cause is written to
the rotating error log.`,
	Example: `  # Scrape by public identifier
  liscraper scrape johndoe

  # Scrape by URL and print the result
  liscraper scrape https://www.linkedin.com/in/johndoe/ --json

  # Use a specific stored account and custom output directory
  liscraper scrape johndoe --account me@example.com --output ./profiles

  # Resolve a pending challenge manually in a visible browser
  liscraper scrape johndoe --headless=false`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runScrape(cmd, args)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for profile JSON files")
	scrapeCmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "requests per minute")
	scrapeCmd.Flags().StringVarP(&accountName, "account", "a", "", "use specific stored account")
	scrapeCmd.Flags().IntVar(&maxRetries, "max-retries", 0, "maximum navigation retry attempts")
	scrapeCmd.Flags().BoolVar(&printJSON, "json", false, "print the scraped profile as JSON to stdout")
	scrapeCmd.Flags().BoolVar(&noSave, "no-save", false, "do not write the profile to the output directory")
}

func runScrape(cmd *cobra.Command, args []string) {
	input := strings.TrimSpace(args[0])
	ui.PrintInfo("Target Profile", input)

	cfg := loadConfigOrExit(cmd)

	rep := report.New(report.Config{
		Dir:            cfg.ErrorLog.Dir,
		MaxSizeBytes:   cfg.ErrorLog.MaxSizeBytes,
		MaxGenerations: cfg.ErrorLog.MaxGenerations,
	}, logger.GetLogger())
	defer rep.Close()

	s := scraper.New(cfg, rep, logger.GetLogger())
	defer s.Close()

	ctx, cancel := signalContext()
	defer cancel()

	profile := s.ScrapeProfile(ctx, input)

	if profile.Source == linkedin.SourceFallback {
		ui.PrintWarning("Extraction failed, fallback record produced")
		printAnalysis(rep)
	} else {
		ui.PrintSuccess(fmt.Sprintf("Scraped %s (%s)", profile.Name, profile.Source))
	}

	if !noSave {
		store, err := storage.NewManager(cfg.Output.BaseDirectory, cfg.Output.OverwriteExisting, logger.GetLogger())
		if err != nil {
			ui.PrintError("Failed to open output directory", err.Error())
			os.Exit(1)
		}
		path, err := store.SaveProfile(profile)
		if err != nil {
			ui.PrintError("Failed to save profile", err.Error())
			os.Exit(1)
		}
		ui.PrintInfo("Saved", path)
	}

	if printJSON {
		data, err := json.MarshalIndent(profile, "", "  ")
		if err == nil {
			fmt.Println(string(data))
		}
	}
}

// loadConfigOrExit builds the configuration from file, env, and flags, then
// resolves stored credentials when none are configured.
func loadConfigOrExit(cmd *cobra.Command) *config.Config {
	flags := make(map[string]interface{})
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if rateLimit > 0 {
		flags["requests-per-minute"] = rateLimit
	}
	if maxRetries > 0 {
		flags["max-retries"] = maxRetries
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}
	if cmd.Flags().Changed("headless") {
		flags["headless"] = headless
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.Logging.Level, logFile); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}

	// Fill credentials from the credential manager when config has none
	if cfg.LinkedIn.Email == "" || cfg.LinkedIn.Password == "" {
		if manager, err := auth.NewManager(); err == nil {
			var account *auth.Account
			if accountName != "" {
				account, err = manager.Retrieve(accountName)
			} else {
				account, err = manager.RetrieveDefault()
			}
			if err == nil && account != nil {
				cfg.LinkedIn.Email = account.Email
				cfg.LinkedIn.Password = account.Password
				if account.UserAgent != "" {
					cfg.LinkedIn.UserAgent = account.UserAgent
				}
			}
		}
	}

	return cfg
}

// printAnalysis shows the dominant failure category and how to recover.
func printAnalysis(rep *report.Reporter) {
	analysis := rep.Analyze()
	if analysis.Stats.TotalErrors == 0 {
		return
	}
	ui.PrintInfo("Most common error", string(analysis.MostCommonError))
	ui.PrintHighlight(analysis.RecommendedAction)
	ui.PrintInfo("Error log", rep.LogPath())
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"liscraper/internal/batch"
	"liscraper/pkg/checkpoint"
	"liscraper/pkg/logger"
	"liscraper/pkg/report"
	"liscraper/pkg/scraper"
	"liscraper/pkg/storage"
	"liscraper/pkg/ui"
)

var (
	// Batch command flags
	batchWorkers   int
	batchFile      string
	checkpointPath string
	forceRestart   bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch [profiles...]",
	Short: "Scrape multiple LinkedIn profiles concurrently",
	Long: `Scrape a list of LinkedIn profiles through a pool of workers, each with
its own browser session.

Profiles can be passed as arguments or read from a file with one username or
URL per line (lines starting with # are skipped). Progress is checkpointed, so
an interrupted run resumes where it left off. Each run is capped at the
configured maximum profiles per run to keep the account under the radar.`,
	Example: `  # Scrape three profiles
  liscraper batch johndoe janedoe someone-else

  # Read the list from a file with two workers
  liscraper batch --file profiles.txt --workers 2

  # Ignore the previous checkpoint and start fresh
  liscraper batch --file profiles.txt --force-restart`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runBatch(cmd, args)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 0, "number of concurrent workers")
	batchCmd.Flags().StringVarP(&batchFile, "file", "f", "", "file with one profile per line")
	batchCmd.Flags().StringVar(&checkpointPath, "checkpoint", "", "checkpoint file path")
	batchCmd.Flags().BoolVar(&forceRestart, "force-restart", false, "ignore existing checkpoint")

	batchCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for profile JSON files")
	batchCmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "requests per minute")
	batchCmd.Flags().StringVarP(&accountName, "account", "a", "", "use specific stored account")
}

func runBatch(cmd *cobra.Command, args []string) {
	inputs, err := collectInputs(args)
	if err != nil {
		ui.PrintError("Failed to read profile list", err.Error())
		os.Exit(1)
	}
	if len(inputs) == 0 {
		ui.PrintError("No profiles given; pass them as arguments or with --file")
		os.Exit(1)
	}

	cfg := loadConfigOrExit(cmd)
	if batchWorkers > 0 {
		cfg.Scraper.BatchWorkers = batchWorkers
	}

	rep := report.New(report.Config{
		Dir:            cfg.ErrorLog.Dir,
		MaxSizeBytes:   cfg.ErrorLog.MaxSizeBytes,
		MaxGenerations: cfg.ErrorLog.MaxGenerations,
	}, logger.GetLogger())
	defer rep.Close()

	store, err := storage.NewManager(cfg.Output.BaseDirectory, cfg.Output.OverwriteExisting, logger.GetLogger())
	if err != nil {
		ui.PrintError("Failed to open output directory", err.Error())
		os.Exit(1)
	}

	checkpoints, err := checkpoint.NewManager(checkpointPath)
	if err != nil {
		ui.PrintError("Failed to open checkpoint", err.Error())
		os.Exit(1)
	}
	if forceRestart {
		if err := checkpoints.Delete(); err != nil {
			ui.PrintWarning("Could not remove old checkpoint", err.Error())
		}
	}

	factory := func() (batch.ProfileScraper, error) {
		return scraper.New(cfg, rep, logger.GetLogger()), nil
	}

	pool := batch.NewWorkerPool(cfg.Scraper.BatchWorkers, factory, store, logger.GetLogger())
	runner := batch.NewRunner(pool, checkpoints, cfg.Scraper.MaxProfilesPerRun, logger.GetLogger())

	ctx, cancel := signalContext()
	defer cancel()

	ui.PrintInfo("Profiles", fmt.Sprintf("%d", len(inputs)))
	summary, err := runner.Run(ctx, inputs)
	if err != nil {
		ui.PrintError("Batch run failed", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess(fmt.Sprintf("Batch finished in %s", summary.Elapsed.Round(summaryRound)))
	ui.PrintInfo("Scraped", fmt.Sprintf("%d", summary.Succeeded))
	ui.PrintInfo("Fallbacks", fmt.Sprintf("%d", summary.Fallbacks))
	if summary.Skipped > 0 {
		ui.PrintInfo("Skipped (already done)", fmt.Sprintf("%d", summary.Skipped))
	}
	if summary.Fallbacks > 0 {
		printAnalysis(rep)
	}
}

const summaryRound = 100 * time.Millisecond

// collectInputs merges positional arguments with the optional --file list
func collectInputs(args []string) ([]string, error) {
	inputs := make([]string, 0, len(args))
	seen := make(map[string]bool)

	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || strings.HasPrefix(s, "#") || seen[s] {
			return
		}
		seen[s] = true
		inputs = append(inputs, s)
	}

	for _, arg := range args {
		add(arg)
	}

	if batchFile != "" {
		f, err := os.Open(batchFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			add(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	return inputs, nil
}

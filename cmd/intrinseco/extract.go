package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"intrinseco/pkg/core/pipeline"
	"intrinseco/pkg/core/utils"
)

var (
	extractTicker      string
	extractPeriod      string
	extractStart       string
	extractEnd         string
	extractMinHits     int
	extractStore       bool
	extractStrict      bool
	extractBatch       string
	extractConcurrency int
	extractJSON        bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract the statement figures of a report",
	Long: `Runs the full pipeline on a report: normalize, locate the statements,
extract their figures with the configured LLM provider and derive the
ratios. With --store the figures are saved under --ticker and --period.

With --batch, jobs are read from a YAML list of
{path, ticker, period, start_page, end_page, min_hits} entries instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractTicker, "ticker", "t", "", "ticker symbol")
	extractCmd.Flags().StringVarP(&extractPeriod, "period", "p", "", "period, e.g. 2024-FY")
	extractCmd.Flags().StringVar(&extractStart, "start-page", "", "first page to keep")
	extractCmd.Flags().StringVar(&extractEnd, "end-page", "", "last page to keep")
	extractCmd.Flags().IntVar(&extractMinHits, "min-hits", 0, "hit threshold (default from configuration)")
	extractCmd.Flags().BoolVar(&extractStore, "store", false, "save the figures")
	extractCmd.Flags().BoolVar(&extractStrict, "strict", false, "fail on accounting mismatches")
	extractCmd.Flags().StringVar(&extractBatch, "batch", "", "YAML file listing jobs")
	extractCmd.Flags().IntVar(&extractConcurrency, "concurrency", 2, "jobs processed at once in batch mode")
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "output the reports as JSON")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	jobs, err := extractJobs(args)
	if err != nil {
		return err
	}

	d, err := newDispatcher()
	if err != nil {
		return err
	}
	defer d.Close()

	extractor, err := newExtractor(newManager())
	if err != nil {
		return err
	}

	validation := pipeline.DefaultValidationConfig()
	validation.EnableStrictValidation = extractStrict
	opts := []pipeline.Option{
		pipeline.WithMinHits(cfg.MinHits),
		pipeline.WithValidationConfig(validation),
		pipeline.WithDumpWriter(utils.NewDumpWriter(cfg.DumpDir)),
	}
	if extractStore {
		repo, err := openRepository(cmd.Context())
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithRepository(repo))
	}
	orch := pipeline.NewOrchestrator(newLoader(), d, extractor, opts...)

	reports, runErr := orch.RunBatch(cmd.Context(), jobs, extractConcurrency)

	if extractJSON {
		if err := printJSON(cmd, reports); err != nil {
			return err
		}
	} else {
		for _, r := range reports {
			printReport(cmd, r)
		}
	}
	return runErr
}

func extractJobs(args []string) ([]pipeline.Job, error) {
	if extractBatch != "" {
		if len(args) > 0 {
			return nil, errors.New("a file argument cannot be combined with --batch")
		}
		data, err := os.ReadFile(extractBatch)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", extractBatch, err)
		}
		var jobs []pipeline.Job
		if err := yaml.Unmarshal(data, &jobs); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", extractBatch, err)
		}
		if len(jobs) == 0 {
			return nil, fmt.Errorf("%s lists no jobs", extractBatch)
		}
		return jobs, nil
	}

	if len(args) == 0 {
		return nil, errors.New("a file argument or --batch is required")
	}
	if extractStore && (extractTicker == "" || extractPeriod == "") {
		return nil, errors.New("--store requires --ticker and --period")
	}
	return []pipeline.Job{{
		Path:      args[0],
		Ticker:    extractTicker,
		Period:    extractPeriod,
		StartPage: extractStart,
		EndPage:   extractEnd,
		MinHits:   extractMinHits,
	}}, nil
}

func printReport(cmd *cobra.Command, r *pipeline.Report) {
	if r == nil {
		return
	}
	cmd.Printf("%s (run %s, %s)\n", r.Job.Path, r.RunID, r.Duration.Round(time.Millisecond))
	if r.Error != "" {
		cmd.Printf("  error: %s\n", r.Error)
	}
	if r.Language != "" {
		cmd.Printf("  language: %s\n", r.Language)
	}
	for _, cat := range r.Skipped {
		cmd.Printf("  skipped: %s (%d hits)\n", cat, r.Hits[cat])
	}
	for _, w := range r.Warnings {
		cmd.Printf("  warning: %s\n", w)
	}
	if r.Derived != nil {
		values := r.Derived.Values()
		keys := make([]string, 0, len(values))
		for k, v := range values {
			if v != nil {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			cmd.Printf("  %-27s %v\n", k, *values[k])
		}
	}
	if r.Stored {
		cmd.Printf("  stored as %s %s\n", r.Job.Ticker, r.Job.Period)
	}
}

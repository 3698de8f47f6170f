// Package pipeline runs a filing end to end: load, normalize, locate the
// statements, clean, extract, derive and store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"intrinseco/pkg/core/calc"
	"intrinseco/pkg/core/chunker"
	"intrinseco/pkg/core/clean"
	"intrinseco/pkg/core/extract"
	"intrinseco/pkg/core/ingest"
	"intrinseco/pkg/core/logging"
	"intrinseco/pkg/core/store"
	"intrinseco/pkg/core/utils"
)

var (
	// ErrLowConfidence is returned when no statement reached the hit threshold.
	ErrLowConfidence = errors.New("no statement reached the minimum number of hits")
	// ErrValidation is returned by strict validation on accounting mismatches.
	ErrValidation = errors.New("validation failed")
)

// Loader reads a filing into normalized text.
type Loader interface {
	Load(ctx context.Context, path, startPage, endPage string) (ingest.Document, error)
}

// Chunker locates the statement chunks.
type Chunker interface {
	GetChunks(ctx context.Context, content string, minHits int) (chunker.Output, error)
}

// Extractor turns cleaned chunks into statements.
type Extractor interface {
	Run(ctx context.Context, cleaned map[chunker.Category]clean.CleanedChunk, hits map[chunker.Category]int, minHits int, period string) (extract.Result, error)
}

// ValidationConfig defines thresholds for the accounting checks.
type ValidationConfig struct {
	EnableStrictValidation bool    // mismatches fail the job instead of warning
	BalanceSheetTolerance  float64 // allowed gap, in percent, for A = L + E and reported totals
}

// DefaultValidationConfig warns on gaps above 0.1%.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{BalanceSheetTolerance: 0.1}
}

// Job is one filing to process.
type Job struct {
	Path      string `json:"path" yaml:"path"`
	Ticker    string `json:"ticker" yaml:"ticker"`
	Period    string `json:"period" yaml:"period"`
	StartPage string `json:"start_page,omitempty" yaml:"start_page"`
	EndPage   string `json:"end_page,omitempty" yaml:"end_page"`
	MinHits   int    `json:"min_hits,omitempty" yaml:"min_hits"`
}

// Report describes the outcome of a job.
type Report struct {
	RunID    string                     `json:"run_id"`
	Job      Job                        `json:"job"`
	Language chunker.Language           `json:"language,omitempty"`
	Hits     map[chunker.Category]int   `json:"hits,omitempty"`
	Units    map[chunker.Category]int64 `json:"units,omitempty"`
	Skipped  []chunker.Category         `json:"skipped,omitempty"`
	Result   *extract.Result            `json:"result,omitempty"`
	Derived  *calc.Derived              `json:"derived,omitempty"`
	Warnings []string                   `json:"warnings,omitempty"`
	Stored   bool                       `json:"stored"`
	Duration time.Duration              `json:"duration"`
	Error    string                     `json:"error,omitempty"`
}

// Orchestrator wires the pipeline stages.
type Orchestrator struct {
	loader     Loader
	chunker    Chunker
	extractor  Extractor
	repo       store.Repository
	dump       *utils.DumpWriter
	validation ValidationConfig
	minHits    int
	log        *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRepository stores results in repo.
func WithRepository(repo store.Repository) Option {
	return func(o *Orchestrator) { o.repo = repo }
}

// WithDumpWriter writes the normalized text and chunks to w.
func WithDumpWriter(w *utils.DumpWriter) Option {
	return func(o *Orchestrator) { o.dump = w }
}

// WithValidationConfig replaces the default validation thresholds.
func WithValidationConfig(cfg ValidationConfig) Option {
	return func(o *Orchestrator) { o.validation = cfg }
}

// WithMinHits sets the threshold used when a job does not carry one.
func WithMinHits(n int) Option {
	return func(o *Orchestrator) { o.minHits = n }
}

// NewOrchestrator creates an orchestrator. Results are not stored unless a
// repository is configured.
func NewOrchestrator(loader Loader, c Chunker, extractor Extractor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		loader:     loader,
		chunker:    c,
		extractor:  extractor,
		validation: DefaultValidationConfig(),
		minHits:    chunker.DefaultMinHits,
		log:        logging.Named("pipeline"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Process runs job. The returned report is non-nil even on failure and
// carries whatever stages completed.
func (o *Orchestrator) Process(ctx context.Context, job Job) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.NewString(), Job: job}
	log := o.log.With(zap.String("run_id", report.RunID), zap.String("path", job.Path))

	err := o.process(ctx, job, report, log)
	report.Duration = time.Since(start)
	if err != nil {
		report.Error = err.Error()
		log.Error("pipeline failed", zap.Error(err), zap.Duration("elapsed", report.Duration))
		return report, err
	}
	log.Info("pipeline completed",
		zap.String("ticker", job.Ticker),
		zap.String("period", job.Period),
		zap.Bool("stored", report.Stored),
		zap.Duration("elapsed", report.Duration))
	return report, nil
}

func (o *Orchestrator) process(ctx context.Context, job Job, report *Report, log *zap.Logger) error {
	if o.repo != nil {
		ticker, err := store.NormalizeTicker(job.Ticker)
		if err != nil {
			return err
		}
		report.Job.Ticker = ticker
		job.Ticker = ticker
	}
	if err := store.ValidatePeriod(job.Period); err != nil {
		return err
	}

	minHits := job.MinHits
	if minHits <= 0 {
		minHits = o.minHits
	}

	ctx = utils.WithDumpPrefix(ctx, dumpPrefix(job, report.RunID))
	dump := o.dump.For(ctx)

	// 1. Load and normalize
	doc, err := o.loader.Load(ctx, job.Path, job.StartPage, job.EndPage)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	dump.Write("normalized", doc.Text)

	// 2. Locate statements
	out, err := o.chunker.GetChunks(ctx, doc.Text, minHits)
	if err != nil {
		return fmt.Errorf("chunks: %w", err)
	}
	report.Language = out.Language
	report.Hits = out.Hits()
	for _, cat := range chunker.Categories {
		dump.Write(string(cat)+"_chunk", out.Result(cat).Chunk)
		if report.Hits[cat] < minHits {
			report.Skipped = append(report.Skipped, cat)
		}
	}
	log.Debug("chunks located",
		zap.String("language", string(out.Language)),
		zap.Int("balance_hits", out.Balance.Hits),
		zap.Int("income_hits", out.Income.Hits),
		zap.Int("cash_flow_hits", out.CashFlow.Hits))
	if len(report.Skipped) == len(chunker.Categories) {
		return ErrLowConfidence
	}

	// 3. Clean
	cleaned := clean.All(out)
	report.Units = make(map[chunker.Category]int64, len(cleaned))
	for cat, c := range cleaned {
		report.Units[cat] = c.Units
	}

	// 4. Extract
	result, err := o.extractor.Run(ctx, cleaned, report.Hits, minHits, job.Period)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	report.Result = &result

	// 5. Derive and validate
	finances := result.Finances()
	derived := calc.Derive(finances)
	report.Derived = &derived

	report.Warnings = o.validate(finances, derived, log)
	if len(report.Warnings) > 0 && o.validation.EnableStrictValidation {
		return fmt.Errorf("%w: %v", ErrValidation, report.Warnings)
	}

	// 6. Store
	if o.repo != nil {
		if err := o.repo.AddFinances(ctx, job.Ticker, job.Period, finances); err != nil {
			return fmt.Errorf("store: %w", err)
		}
		report.Stored = true
	}
	return nil
}

// dumpPrefix names a job's debug files: ticker and period when known,
// otherwise the run ID.
func dumpPrefix(job Job, runID string) string {
	if job.Ticker != "" && job.Period != "" {
		return job.Ticker + "_" + job.Period
	}
	return runID
}

// validate compares reported totals with the ones derived from their
// components, and checks A = L + E on the reported figures.
func (o *Orchestrator) validate(f calc.Finances, d calc.Derived, log *zap.Logger) []string {
	var warnings []string
	check := func(label string, reported, computed *float64) {
		if reported == nil || computed == nil || *reported == 0 {
			return
		}
		diff := math.Abs(*computed - *reported)
		pct := diff / math.Abs(*reported) * 100
		if w := o.checkTolerance(label, pct, diff, log); w != "" {
			warnings = append(warnings, w)
		}
	}

	check("Total Assets", f.TotalAssets, d.TotalAssets)
	check("Total Liabilities", f.TotalLiabilities, d.TotalLiabilities)
	if f.TotalLiabilities != nil && f.Equity != nil {
		check("Balance Sheet Equation", f.TotalAssets, calc.Float(*f.TotalLiabilities+*f.Equity))
	}
	return warnings
}

// checkTolerance logs the result of one check and returns a warning when it
// exceeds the tolerance.
func (o *Orchestrator) checkTolerance(label string, diffPercent, absoluteDiff float64, log *zap.Logger) string {
	tolerance := o.validation.BalanceSheetTolerance
	if diffPercent <= tolerance {
		log.Debug("check passed", zap.String("check", label))
		return ""
	}
	msg := fmt.Sprintf("%s mismatch > %.2f%% tolerance (diff: %.2f)", label, tolerance, absoluteDiff)
	if o.validation.EnableStrictValidation {
		log.Error("check failed", zap.String("check", label), zap.Float64("diff_percent", diffPercent))
	} else {
		log.Warn("check failed", zap.String("check", label), zap.Float64("diff_percent", diffPercent))
	}
	return msg
}

// RunBatch processes jobs with at most concurrency in flight. Every job gets
// a report; the error joins the failures.
func (o *Orchestrator) RunBatch(ctx context.Context, jobs []Job, concurrency int) ([]*Report, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	reports := make([]*Report, len(jobs))

	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, job := range jobs {
		g.Go(func() error {
			report, err := o.Process(gctx, job)
			reports[i] = report
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", job.Path, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return reports, errors.Join(errs...)
}

// Package extract turns cleaned statement chunks into structured figures
// with two LLM calls per statement: a cleaner that rewrites the excerpt as
// line items, and a submitter that maps them onto a fixed JSON template.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"intrinseco/pkg/core/agent"
	"intrinseco/pkg/core/calc"
	"intrinseco/pkg/core/chunker"
	"intrinseco/pkg/core/clean"
	"intrinseco/pkg/core/llm"
	"intrinseco/pkg/core/logging"
	"intrinseco/pkg/core/prompt"
	"intrinseco/pkg/core/utils"
)

// ErrExtraction wraps every failure returned by Run.
var ErrExtraction = errors.New("extraction failed")

// Executor runs a prompt for an agent type. *agent.Manager satisfies it.
type Executor interface {
	ExecutePrompt(ctx context.Context, agentType string, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
}

// Result holds one statement per category. Categories that were not run
// keep their all-null template.
type Result struct {
	Balance  Statement `json:"balance"`
	Income   Statement `json:"income"`
	CashFlow Statement `json:"cashFlow"`
}

// NewResult returns a result with every statement set to its template.
func NewResult() Result {
	return Result{
		Balance:  Template(chunker.Balance),
		Income:   Template(chunker.Income),
		CashFlow: Template(chunker.CashFlow),
	}
}

// Statement returns the statement of c.
func (r Result) Statement(c chunker.Category) Statement {
	switch c {
	case chunker.Balance:
		return r.Balance
	case chunker.Income:
		return r.Income
	default:
		return r.CashFlow
	}
}

func (r *Result) set(c chunker.Category, s Statement) {
	switch c {
	case chunker.Balance:
		r.Balance = s
	case chunker.Income:
		r.Income = s
	default:
		r.CashFlow = s
	}
}

// Finances merges the three statements into one record, scaling every
// amount by its statement's units. EPS is never scaled.
func (r Result) Finances() calc.Finances {
	var f calc.Finances
	for _, c := range chunker.Categories {
		s := r.Statement(c)
		scale := s.Units()
		for k, v := range s {
			if k == UnitsField || v == nil {
				continue
			}
			value := *v
			if k != "eps" {
				value *= scale
			}
			f.Set(k, calc.Float(value))
		}
	}
	return f
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithDumpWriter writes submitter prompts to w.
func WithDumpWriter(w *utils.DumpWriter) Option {
	return func(e *Extractor) { e.dump = w }
}

// Extractor runs the cleaner and submitter prompts.
type Extractor struct {
	exec    Executor
	prompts *prompt.Registry
	dump    *utils.DumpWriter
	log     *zap.Logger
}

// New returns an Extractor. A nil registry uses the built-in prompts.
func New(exec Executor, prompts *prompt.Registry, opts ...Option) *Extractor {
	if prompts == nil {
		prompts = prompt.NewRegistry()
	}
	e := &Extractor{
		exec:    exec,
		prompts: prompts,
		log:     logging.Named("extract"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run extracts every category whose hits reach minHits, concurrently. Any
// category failure fails the whole run.
func (e *Extractor) Run(ctx context.Context, cleaned map[chunker.Category]clean.CleanedChunk, hits map[chunker.Category]int, minHits int, period string) (Result, error) {
	if cleaned == nil || hits == nil {
		return Result{}, fmt.Errorf("%w: missing chunks or hits", ErrExtraction)
	}

	result := NewResult()
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, cat := range chunker.Categories {
		if hits[cat] < minHits {
			e.log.Debug("skipping category below threshold",
				zap.String("category", string(cat)),
				zap.Int("hits", hits[cat]),
				zap.Int("min_hits", minHits))
			continue
		}
		chunk := cleaned[cat]
		g.Go(func() error {
			s, err := e.runCategory(gctx, cat, chunk, period)
			if err != nil {
				return fmt.Errorf("%s: %w", cat, err)
			}
			mu.Lock()
			result.set(cat, s)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		e.log.Error("extraction failed", zap.String("period", period), zap.Error(err))
		return Result{}, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	return result, nil
}

func (e *Extractor) runCategory(ctx context.Context, cat chunker.Category, chunk clean.CleanedChunk, period string) (s Statement, err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		requestsTotal.WithLabelValues(string(cat), status).Inc()
		requestDuration.WithLabelValues(string(cat)).Observe(time.Since(start).Seconds())
	}()

	knownUnits := chunk.Units != clean.UnitsUnknown

	system, user, err := e.prompts.Render(prompt.ExtractCleaner, prompt.NewContext().
		Set("Statement", statementNames[cat]).
		Set("Fields", joinFields(promptFields(cat, true))).
		Set("Units", chunk.Units).
		Set("Text", chunk.Text))
	if err != nil {
		return nil, err
	}
	cleanedItems, err := e.exec.ExecutePrompt(ctx, agent.Cleaner, user, system, nil)
	if err != nil {
		return nil, fmt.Errorf("cleaner: %w", err)
	}

	system, user, err = e.prompts.Render(prompt.ExtractSubmitter, prompt.NewContext().
		Set("Period", period).
		Set("Fields", joinFields(promptFields(cat, knownUnits))).
		Set("Text", cleanedItems))
	if err != nil {
		return nil, err
	}
	e.dump.For(ctx).Write(string(cat)+"_submitter", user)

	raw, err := e.exec.ExecutePrompt(ctx, agent.Submitter, user, system, map[string]interface{}{
		llm.OptionJSON: true,
	})
	if err != nil {
		return nil, fmt.Errorf("submitter: %w", err)
	}

	s, err = parseStatement(cat, raw)
	if err != nil {
		return nil, err
	}
	if knownUnits {
		s[UnitsField] = calc.Float(float64(chunk.Units))
	}

	e.log.Info("statement extracted",
		zap.String("category", string(cat)),
		zap.String("period", period),
		zap.Int("found", s.found()),
		zap.Duration("elapsed", time.Since(start)))
	return s, nil
}

// parseStatement reads the submitter reply onto the template of cat. An
// empty reply yields the template; keys outside the template are ignored.
func parseStatement(cat chunker.Category, raw string) (Statement, error) {
	s := Template(cat)
	if strings.TrimSpace(raw) == "" {
		return s, nil
	}

	var decoded map[string]interface{}
	if _, err := utils.SmartParse(raw, &decoded); err != nil {
		return nil, fmt.Errorf("submitter reply: %w", err)
	}

	for k := range s {
		v, ok := decoded[k]
		if !ok {
			continue
		}
		s[k] = toFloat(v)
	}
	return s, nil
}

// toFloat accepts JSON numbers and numeric strings ("1,200", "(300)").
func toFloat(v interface{}) *float64 {
	switch n := v.(type) {
	case float64:
		return calc.Float(n)
	case string:
		text := strings.TrimSpace(n)
		negative := strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")")
		text = strings.Trim(text, "()")
		text = strings.NewReplacer(",", "", " ", "", "$", "", "€", "").Replace(text)
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil
		}
		if negative {
			f = -f
		}
		return calc.Float(f)
	}
	return nil
}

func (s Statement) found() int {
	n := 0
	for k, v := range s {
		if k != UnitsField && v != nil {
			n++
		}
	}
	return n
}

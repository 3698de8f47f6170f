package chunker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"intrinseco/pkg/core/logging"
)

// Dispatcher runs the three category scans of a language pass in parallel
// and falls back from English to Spanish dictionaries when coverage is low.
type Dispatcher struct {
	indicators *Indicators
	pool       *Pool
	log        *zap.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*dispatcherOptions)

type dispatcherOptions struct {
	workers int
	scan    ScanFunc
}

// WithWorkers sets the pool size.
func WithWorkers(n int) DispatcherOption {
	return func(o *dispatcherOptions) { o.workers = n }
}

// WithScanFunc replaces the scan executed by the pool workers.
func WithScanFunc(fn ScanFunc) DispatcherOption {
	return func(o *dispatcherOptions) { o.scan = fn }
}

// NewDispatcher builds a Dispatcher and starts its worker pool. Call Close
// to stop the workers.
func NewDispatcher(params ScanParameters, indicators *Indicators, opts ...DispatcherOption) (*Dispatcher, error) {
	if indicators == nil {
		return nil, fmt.Errorf("%w: indicators are required", ErrChunker)
	}
	locator, err := NewLocator(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrChunker, err)
	}

	o := dispatcherOptions{workers: DefaultWorkers}
	for _, opt := range opts {
		opt(&o)
	}
	if o.scan == nil {
		o.scan = func(t Task) (ChunkResult, error) {
			return locator.FindChunk(t.Source, t.Terms), nil
		}
	}

	return &Dispatcher{
		indicators: indicators,
		pool:       NewPool(o.workers, o.scan),
		log:        logging.Named("chunker"),
	}, nil
}

// Close stops the worker pool.
func (d *Dispatcher) Close() {
	d.pool.Close()
}

// GetChunks locates the balance sheet, income statement and cash-flow
// statement in content. The English pass is used when every category reaches
// minHits; otherwise all three are rescanned with the Spanish dictionaries.
// Results are never mixed across languages. Any failure aborts the call with
// an error wrapping ErrChunker. ctx is checked before each pass only.
func (d *Dispatcher) GetChunks(ctx context.Context, content string, minHits int) (out Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = Output{}, fmt.Errorf("%w: %v", ErrChunker, r)
		}
	}()

	if minHits < 0 {
		return Output{}, fmt.Errorf("%w: minHits must not be negative, got %d", ErrChunker, minHits)
	}
	if err := ctx.Err(); err != nil {
		return Output{}, fmt.Errorf("%w: %w", ErrChunker, err)
	}

	src := Prepare(content)

	out, err = d.pass(src, EN)
	if err != nil {
		return Output{}, err
	}
	if out.MinHits() >= minHits {
		d.log.Debug("primary dictionary accepted",
			zap.Int("balance", out.Balance.Hits),
			zap.Int("income", out.Income.Hits),
			zap.Int("cash_flow", out.CashFlow.Hits))
		return out, nil
	}

	d.log.Info("low indicator coverage, retrying with secondary dictionary",
		zap.Int("min_hits", minHits),
		zap.Int("balance", out.Balance.Hits),
		zap.Int("income", out.Income.Hits),
		zap.Int("cash_flow", out.CashFlow.Hits))
	fallbacksTotal.Inc()

	if err := ctx.Err(); err != nil {
		return Output{}, fmt.Errorf("%w: %w", ErrChunker, err)
	}
	return d.pass(src, ES)
}

// pass submits one task per category and waits for all of them.
func (d *Dispatcher) pass(src *Source, lang Language) (Output, error) {
	futures := make([]*Future, len(Categories))
	for i, cat := range Categories {
		fut, err := d.pool.Submit(Task{
			Language: lang,
			Category: cat,
			Source:   src,
			Terms:    d.indicators.lookup(lang, cat),
		})
		if err != nil {
			// Drain what was already submitted before failing.
			for _, f := range futures[:i] {
				f.Wait()
			}
			passesTotal.WithLabelValues(string(lang), "error").Inc()
			return Output{}, fmt.Errorf("%w: %s pass: %w", ErrChunker, lang, err)
		}
		futures[i] = fut
	}

	out := Output{Language: lang}
	var firstErr error
	for i, cat := range Categories {
		res, err := futures[i].Wait()
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: %s %s scan: %w", ErrChunker, lang, cat, err)
			}
			continue
		}
		if res.Indicators == nil {
			res.Indicators = []string{}
		}
		scanHits.WithLabelValues(string(lang), string(cat)).Observe(float64(res.Hits))
		switch cat {
		case Balance:
			out.Balance = res
		case Income:
			out.Income = res
		case CashFlow:
			out.CashFlow = res
		}
	}
	if firstErr != nil {
		passesTotal.WithLabelValues(string(lang), "error").Inc()
		return Output{}, firstErr
	}
	passesTotal.WithLabelValues(string(lang), "ok").Inc()
	return out, nil
}

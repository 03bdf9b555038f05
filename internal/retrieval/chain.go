// Package retrieval loads a published spreadsheet through an ordered chain of
// independent strategies, each able to turn one upstream response format into
// a core.Dataset.
//
// Strategies are tried strictly one after another. The first success wins;
// if all fail, the caller gets a *core.CompositeRetrievalError listing every
// strategy's failure in attempt order.
package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/katrinamanzanilla/2nd-mini-site/internal/core"
	"github.com/katrinamanzanilla/2nd-mini-site/internal/logging"
)

// Provider is one retrieval strategy.
type Provider interface {
	// Label names the strategy in results and error messages.
	Label() string

	// Fetch loads the referenced sheet. Any error is recorded against the
	// strategy and the chain moves on.
	Fetch(ctx context.Context, ref core.SheetReference) (core.Dataset, error)
}

// Result is a successfully loaded dataset and the strategy that produced it.
type Result struct {
	Dataset core.Dataset
	Source  string
}

// Chain runs providers in a fixed order.
type Chain struct {
	providers []Provider
}

// NewChain creates a chain that tries providers in the given order.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Labels returns the provider labels in attempt order.
func (c *Chain) Labels() []string {
	labels := make([]string, len(c.providers))
	for i, p := range c.providers {
		labels[i] = p.Label()
	}
	return labels
}

// Load tries each provider once, in order, and returns the first dataset
// produced.
//
// A provider that succeeds with zero columns ends the load with
// core.ErrEmptyDataset; later providers are not tried. If ctx is done
// between providers its error is returned as-is.
func (c *Chain) Load(ctx context.Context, ref core.SheetReference) (Result, error) {
	logger := logging.WithFields(ctx, "sheet_id", ref.SheetID)
	failures := make([]core.RetrievalError, 0, len(c.providers))

	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		start := time.Now()
		ds, err := p.Fetch(ctx, ref)
		if err != nil {
			logger.Debug("retrieval strategy failed",
				"strategy", p.Label(),
				"error", err,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			failures = append(failures, core.RetrievalError{Strategy: p.Label(), Message: err.Error()})
			continue
		}

		if ds.IsEmpty() {
			return Result{Source: p.Label()}, fmt.Errorf("%s: %w", p.Label(), core.ErrEmptyDataset)
		}

		logger.Debug("retrieval strategy succeeded",
			"strategy", p.Label(),
			"rows", len(ds.Rows),
			"columns", len(ds.Headers),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return Result{Dataset: ds, Source: p.Label()}, nil
	}

	return Result{}, &core.CompositeRetrievalError{Errors: failures}
}

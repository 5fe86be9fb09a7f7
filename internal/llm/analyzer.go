package llm

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/veridoc-io/reportlint/internal/review"
)

const (
	defaultBatchSize   = 40
	defaultConcurrency = 3
)

// Analyzer splits a document's content units into fixed-size batches and
// reviews them through a provider with bounded concurrency. Results come
// back in document order regardless of completion order, and a failed
// batch contributes no issues instead of failing the run.
type Analyzer struct {
	provider    Provider
	batchSize   int
	concurrency int
	log         *logrus.Entry
}

// NewAnalyzer creates an analyzer for the given provider. Non-positive
// batchSize or concurrency fall back to the defaults.
func NewAnalyzer(provider Provider, batchSize, concurrency int) *Analyzer {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Analyzer{
		provider:    provider,
		batchSize:   batchSize,
		concurrency: concurrency,
		log:         logrus.WithField("component", "analyzer"),
	}
}

// Analyze reviews all units and returns the concatenated issues in
// batch order.
func (a *Analyzer) Analyze(ctx context.Context, units []review.ContentUnit, opts ReviewOptions) []review.Issue {
	if len(units) == 0 {
		return nil
	}

	batches := splitBatches(units, a.batchSize)
	results := make([][]review.Issue, len(batches))

	var wg sync.WaitGroup
	sem := make(chan struct{}, a.concurrency)
	for i, batch := range batches {
		wg.Add(1)
		go func(i int, batch []review.ContentUnit) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			issues, err := a.provider.Review(ctx, batch, opts)
			if err != nil {
				a.log.WithError(err).WithField("batch", i).Warn("batch review failed")
				return
			}
			results[i] = issues
		}(i, batch)
	}
	wg.Wait()

	var all []review.Issue
	for _, issues := range results {
		all = append(all, issues...)
	}
	return all
}

func splitBatches(units []review.ContentUnit, size int) [][]review.ContentUnit {
	var batches [][]review.ContentUnit
	for start := 0; start < len(units); start += size {
		end := start + size
		if end > len(units) {
			end = len(units)
		}
		batches = append(batches, units[start:end])
	}
	return batches
}

// Package analyze aggregates per-file matches into a per-repository tally.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/phobologic/apiscan/internal/discover"
	"github.com/phobologic/apiscan/internal/logging"
	"github.com/phobologic/apiscan/internal/match"
	"github.com/phobologic/apiscan/internal/metrics"
	"github.com/phobologic/apiscan/internal/model"
)

// Analyzer scans repositories with a shared Matcher.
type Analyzer struct {
	Matcher *match.Matcher
	// Workers bounds concurrent file scans. Zero means GOMAXPROCS.
	Workers int
	Logger  *log.Logger
	Metrics *metrics.Metrics
}

// AnalyzeFile matches a single text.
func (a *Analyzer) AnalyzeFile(text string) model.MatchResult {
	return a.Matcher.AnalyzeFile(text)
}

// AnalyzeDir discovers the source files under root and aggregates them.
func (a *Analyzer) AnalyzeDir(ctx context.Context, root string, opts discover.Options) (model.UsageTally, error) {
	files, err := discover.Files(root, opts)
	if err != nil {
		return nil, fmt.Errorf("discovering files in %s: %w", root, err)
	}
	a.logger().Debug("discovered files", "root", root, "count", len(files))
	return a.AnalyzeRepository(ctx, root, files)
}

// AnalyzeRepository counts, for every symbol, how many of files use it.
// Unreadable files are logged and contribute nothing. On cancellation the
// returned error wraps ctx.Err() and no tally is returned.
func (a *Analyzer) AnalyzeRepository(ctx context.Context, root string, files []discover.FileEntry) (model.UsageTally, error) {
	start := time.Now()
	logger := a.logger()

	numWorkers := a.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan string)
	tallies := make([]model.UsageTally, numWorkers)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer close(work)
		for _, f := range files {
			select {
			case work <- filepath.Join(root, f.Path):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for i := range numWorkers {
		tally := make(model.UsageTally)
		tallies[i] = tally
		eg.Go(func() error {
			for path := range work {
				if err := ctx.Err(); err != nil {
					return err
				}
				result, err := a.Matcher.AnalyzeSource(path)
				if err != nil {
					logger.Warn("skipping unreadable file", "path", path, "err", err)
					a.Metrics.ReadError()
					continue
				}
				a.Metrics.FileScanned()
				a.recordKinds(result)
				tally.Add(result)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("analyzing %s: %w", root, err)
		}
		return nil, err
	}

	total := make(model.UsageTally)
	for _, t := range tallies {
		total.Merge(t)
	}
	a.Metrics.ObserveRepository(time.Since(start).Seconds())
	logger.Debug("analyzed repository", "root", root, "files", len(files), "symbols", len(total))
	return total, nil
}

func (a *Analyzer) recordKinds(result model.MatchResult) {
	if a.Metrics == nil {
		return
	}
	c := a.Matcher.Catalog()
	for name := range result {
		if s, ok := c.Lookup(name); ok {
			a.Metrics.Accepted(s.Kind, 1)
		}
	}
}

func (a *Analyzer) logger() *log.Logger {
	return logging.OrDiscard(a.Logger)
}

// Package pipeline runs the full plugin survey: catalog, registry, checkout,
// analysis and optional persistence.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/phobologic/apiscan/internal/analyze"
	"github.com/phobologic/apiscan/internal/catalog"
	"github.com/phobologic/apiscan/internal/discover"
	"github.com/phobologic/apiscan/internal/logging"
	"github.com/phobologic/apiscan/internal/match"
	"github.com/phobologic/apiscan/internal/metrics"
	"github.com/phobologic/apiscan/internal/model"
	"github.com/phobologic/apiscan/internal/registry"
	"github.com/phobologic/apiscan/internal/repo"
	"github.com/phobologic/apiscan/internal/store"
)

// Fetcher provides a local checkout for a plugin repository.
type Fetcher interface {
	Fetch(ctx context.Context, repoURL, version string) (string, error)
}

// Options configures Run.
type Options struct {
	APIHeader  string
	PluginsXML string
	// Plugins restricts the run to these names. Empty means all.
	Plugins []string

	WorkDir string
	Clean   bool
	// GitRate paces the default Provider's git operations. Zero is unlimited.
	GitRate float64

	Workers   int
	ChunkSize int
	Discover  discover.Options

	Logger  *log.Logger
	Metrics *metrics.Metrics
	// Store, when set, receives the results of a completed run.
	Store *store.Store
	// Fetcher defaults to a git Provider rooted at WorkDir.
	Fetcher Fetcher
}

// Run analyzes every selected plugin and returns the non-empty tallies
// grouped by API version. A plugin that fails to fetch or analyze is logged
// and skipped. Cancellation is checked between plugins.
func Run(ctx context.Context, opts Options) (model.Results, error) {
	logger := logging.OrDiscard(opts.Logger)

	cat, err := catalog.Load(ctx, opts.APIHeader)
	if err != nil {
		return nil, err
	}
	plugins, err := registry.Load(ctx, opts.PluginsXML, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded sources", "symbols", cat.Len(), "plugins", len(plugins))

	if len(opts.Plugins) > 0 {
		plugins = registry.Filter(plugins, opts.Plugins)
		logger.Info("filtered to requested plugins", "plugins", len(plugins))
	}
	groups := registry.GroupByAPIVersion(plugins, logger)

	fetcher := opts.Fetcher
	if fetcher == nil {
		provider, err := repo.NewProvider(opts.WorkDir, opts.Clean, logger, nil)
		if err != nil {
			return nil, err
		}
		provider.Limiter = repo.NewLimiter(opts.GitRate)
		fetcher = provider
	}

	m, err := match.New(cat, match.Config{ChunkSize: opts.ChunkSize})
	if err != nil {
		return nil, fmt.Errorf("compiling matcher: %w", err)
	}
	analyzer := &analyze.Analyzer{
		Matcher: m,
		Workers: opts.Workers,
		Logger:  logger,
		Metrics: opts.Metrics,
	}

	results := make(model.Results)
	for _, version := range sortedKeys(groups) {
		logger.Info("analyzing plugins", "api_version", version, "plugins", len(groups[version]))
		for _, name := range registry.Names(groups[version]) {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("run cancelled: %w", err)
			}
			p := groups[version][name]
			tally, err := analyzePlugin(ctx, fetcher, analyzer, p, opts.Discover)
			if err != nil {
				if ctx.Err() != nil {
					return nil, fmt.Errorf("run cancelled: %w", ctx.Err())
				}
				logger.Warn("skipping plugin", "plugin", name, "err", err)
				opts.Metrics.PluginFailed()
				continue
			}
			if len(tally) == 0 {
				logger.Info("plugin uses no API symbols", "plugin", name)
				continue
			}
			results.Set(version, name, tally)
			logger.Info("plugin analyzed", "plugin", name, "version", p.Version, "symbols", len(tally))
		}
	}

	if opts.Store != nil {
		runID, err := opts.Store.SaveResults(ctx, opts.APIHeader, results)
		if err != nil {
			return nil, fmt.Errorf("saving results: %w", err)
		}
		logger.Info("results stored", "run", runID)
	}
	return results, nil
}

func analyzePlugin(ctx context.Context, fetcher Fetcher, a *analyze.Analyzer, p model.Plugin, opts discover.Options) (model.UsageTally, error) {
	start := time.Now()
	dir, err := fetcher.Fetch(ctx, p.SourceRepo, p.Version)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", p.SourceRepo, err)
	}
	tally, err := a.AnalyzeDir(ctx, dir, opts)
	if err != nil {
		return nil, err
	}
	a.Logger.Debug("plugin timing", "plugin", p.Name, "elapsed", time.Since(start).Round(time.Millisecond))
	return tally, nil
}

func sortedKeys(groups map[string]map[string]model.Plugin) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

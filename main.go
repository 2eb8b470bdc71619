// apiscan surveys which OpenCPN plugin API symbols third-party plugins use.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/phobologic/apiscan/internal/analyze"
	"github.com/phobologic/apiscan/internal/catalog"
	"github.com/phobologic/apiscan/internal/config"
	"github.com/phobologic/apiscan/internal/discover"
	"github.com/phobologic/apiscan/internal/logging"
	"github.com/phobologic/apiscan/internal/match"
	"github.com/phobologic/apiscan/internal/metrics"
	"github.com/phobologic/apiscan/internal/pipeline"
	"github.com/phobologic/apiscan/internal/ranking"
	"github.com/phobologic/apiscan/internal/report"
	"github.com/phobologic/apiscan/internal/store"
	"github.com/phobologic/apiscan/internal/toon"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// cliOptions holds raw flag values. Only flags the user set override the
// config file.
type cliOptions struct {
	configPath  string
	verbose     bool
	apiHeader   string
	workers     int
	chunkSize   int
	gitignore   bool
	metricsFile string

	pluginsXML string
	outputDir  string
	workDir    string
	clean      bool
	gitRate    float64
	plugins    []string
	format     string
	db         string

	top        int
	scanFormat string

	runID string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	o := &cliOptions{}

	root := &cobra.Command{
		Use:           "apiscan",
		Short:         "Survey OpenCPN plugin API usage across plugin repositories",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd, o, stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&o.configPath, "config", "", "path to an apiscan.toml config file")
	pf.BoolVarP(&o.verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&o.apiHeader, "api-header", config.DefaultAPIHeader, "URL or path of the plugin API header")
	pf.IntVar(&o.workers, "workers", 0, "concurrent file scans per repository (0 = GOMAXPROCS)")
	pf.IntVar(&o.chunkSize, "chunk-size", 0, "names per prefilter pattern (0 = default)")
	pf.BoolVar(&o.gitignore, "gitignore", false, "skip files ignored by the repository .gitignore")
	pf.StringVar(&o.metricsFile, "metrics-file", "", "write Prometheus metrics to this file")

	addAnalyzeFlags(root.Flags(), o)

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze every plugin in the registry and write reports (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd, o, stdout, stderr)
		},
	}
	addAnalyzeFlags(analyzeCmd.Flags(), o)

	scanCmd := &cobra.Command{
		Use:   "scan <dir>",
		Short: "Analyze one local source tree and print its symbol tally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, o, args[0], stdout, stderr)
		},
	}
	scanCmd.Flags().IntVar(&o.top, "top", 0, "show only the N most used symbols (0 = all)")
	scanCmd.Flags().StringVar(&o.scanFormat, "format", "toon", "output format: toon or json")

	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Parse the API header and list its symbols",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCatalog(cmd, o, stdout, stderr)
		},
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List the runs stored in the results database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, o, stdout, stderr)
		},
	}
	historyCmd.Flags().StringVar(&o.db, "db", "", "results SQLite database")

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Write reports for a stored run (default: the newest)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReport(cmd, o, stdout, stderr)
		},
	}
	rf := reportCmd.Flags()
	rf.StringVar(&o.db, "db", "", "results SQLite database")
	rf.StringVar(&o.runID, "run", "", "run id to report (default: newest)")
	rf.StringVar(&o.outputDir, "output-dir", config.DefaultOutputDir, "directory for reports")
	rf.StringVar(&o.format, "format", report.Markdown, "report format: markdown, csv, json, html or toon")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			_, err := fmt.Fprintf(stdout, "apiscan %s\n", version)
			return err
		},
	}

	root.AddCommand(analyzeCmd, scanCmd, catalogCmd, historyCmd, reportCmd, versionCmd)
	return root
}

func addAnalyzeFlags(fs *pflag.FlagSet, o *cliOptions) {
	fs.StringVar(&o.pluginsXML, "ocpn-xml", config.DefaultPluginsXML, "URL or path of the plugin registry XML")
	fs.StringVar(&o.outputDir, "output-dir", config.DefaultOutputDir, "directory for reports")
	fs.StringVar(&o.workDir, "work-dir", config.DefaultWorkDir, "directory for repository checkouts")
	fs.BoolVar(&o.clean, "clean", false, "remove the work directory before cloning")
	fs.Float64Var(&o.gitRate, "git-rate", 0, "max git network operations per second (0 = unlimited)")
	fs.StringSliceVar(&o.plugins, "plugins", nil, "analyze only these plugins (comma-separated)")
	fs.StringVar(&o.format, "format", report.Markdown, "report format: markdown, csv, json, html or toon")
	fs.StringVar(&o.db, "db", "", "store results in this SQLite database")
}

// loadConfig reads the config file, if any, and applies flags that were set
// on the command line.
func loadConfig(cmd *cobra.Command, o *cliOptions) (*config.Config, error) {
	path := o.configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultFileName); err == nil {
			path = config.DefaultFileName
		}
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	set := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}
	if set("api-header") {
		cfg.Sources.APIHeader = o.apiHeader
	}
	if set("workers") {
		cfg.Analysis.Workers = o.workers
	}
	if set("chunk-size") {
		cfg.Analysis.ChunkSize = o.chunkSize
	}
	if set("gitignore") {
		cfg.Analysis.RespectGitignore = o.gitignore
	}
	if set("metrics-file") {
		cfg.MetricsFile = o.metricsFile
	}
	if set("ocpn-xml") {
		cfg.Sources.PluginsXML = o.pluginsXML
	}
	if set("output-dir") {
		cfg.Paths.OutputDir = o.outputDir
	}
	if set("work-dir") {
		cfg.Paths.WorkDir = o.workDir
	}
	if set("git-rate") {
		cfg.Analysis.GitRate = o.gitRate
	}
	if set("plugins") {
		cfg.Analysis.Plugins = o.plugins
	}
	if set("format") && cmd.Name() != "scan" {
		cfg.Report.Format = o.format
	}
	if set("db") {
		cfg.Paths.DB = o.db
	}
	if set("top") {
		cfg.Report.Top = o.top
	}
	if o.verbose {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func discoverOptions(cfg *config.Config) discover.Options {
	return discover.Options{
		ExcludeDirs:      cfg.Analysis.ExcludeDirs,
		ExcludeGlobs:     cfg.Analysis.ExcludeGlobs,
		RespectGitignore: cfg.Analysis.RespectGitignore,
	}
}

func setup(cmd *cobra.Command, o *cliOptions, stderr io.Writer) (*config.Config, *log.Logger, *metrics.Metrics, error) {
	cfg, err := loadConfig(cmd, o)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := logging.New(stderr, cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, err
	}
	var m *metrics.Metrics
	if cfg.MetricsFile != "" {
		m = metrics.New()
	}
	return cfg, logger, m, nil
}

func writeMetrics(m *metrics.Metrics, path string, logger *log.Logger) {
	if m == nil {
		return
	}
	if err := m.WriteFile(path); err != nil {
		logger.Warn("failed to write metrics", "err", err)
		return
	}
	logger.Debug("metrics written", "path", path)
}

func runAnalyze(cmd *cobra.Command, o *cliOptions, stdout, stderr io.Writer) error {
	cfg, logger, m, err := setup(cmd, o, stderr)
	if err != nil {
		return err
	}
	defer writeMetrics(m, cfg.MetricsFile, logger)

	var st *store.Store
	if cfg.Paths.DB != "" {
		st, err = store.Open(cfg.Paths.DB)
		if err != nil {
			return err
		}
		defer st.Close()
	}

	logger.Info("starting analysis", "api_header", cfg.Sources.APIHeader, "registry", cfg.Sources.PluginsXML)
	results, err := pipeline.Run(cmd.Context(), pipeline.Options{
		APIHeader:  cfg.Sources.APIHeader,
		PluginsXML: cfg.Sources.PluginsXML,
		Plugins:    cfg.Analysis.Plugins,
		WorkDir:    cfg.Paths.WorkDir,
		Clean:      o.clean,
		GitRate:    cfg.Analysis.GitRate,
		Workers:    cfg.Analysis.Workers,
		ChunkSize:  cfg.Analysis.ChunkSize,
		Discover:   discoverOptions(cfg),
		Logger:     logger,
		Metrics:    m,
		Store:      st,
	})
	if err != nil {
		return err
	}

	paths, err := report.Write(cfg.Paths.OutputDir, cfg.Report.Format, results, logger)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if _, err := fmt.Fprintln(stdout, p); err != nil {
			return err
		}
	}
	logger.Info("analysis complete", "output_dir", cfg.Paths.OutputDir)
	return nil
}

type scanEntry struct {
	Symbol string `json:"symbol"`
	Kind   string `json:"kind"`
	Files  int    `json:"files"`
}

func runScan(cmd *cobra.Command, o *cliOptions, dir string, stdout, stderr io.Writer) error {
	if o.scanFormat != "toon" && o.scanFormat != "json" {
		return fmt.Errorf("%w: %q", report.ErrUnsupportedFormat, o.scanFormat)
	}
	cfg, logger, m, err := setup(cmd, o, stderr)
	if err != nil {
		return err
	}
	defer writeMetrics(m, cfg.MetricsFile, logger)

	root, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return errors.New("root path is not a directory: " + root)
	}

	cat, err := catalog.Load(cmd.Context(), cfg.Sources.APIHeader)
	if err != nil {
		return err
	}
	matcher, err := match.New(cat, match.Config{ChunkSize: cfg.Analysis.ChunkSize})
	if err != nil {
		return err
	}
	a := &analyze.Analyzer{
		Matcher: matcher,
		Workers: cfg.Analysis.Workers,
		Logger:  logger,
		Metrics: m,
	}
	tally, err := a.AnalyzeDir(cmd.Context(), root, discoverOptions(cfg))
	if err != nil {
		return err
	}
	entries := ranking.Top(ranking.Tally(tally), cfg.Report.Top)

	if o.scanFormat == "json" {
		out := make([]scanEntry, len(entries))
		for i, e := range entries {
			s, _ := cat.Lookup(e.Symbol)
			out[i] = scanEntry{Symbol: e.Symbol, Kind: string(s.Kind), Files: e.Files}
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	_, err = fmt.Fprintln(stdout, toon.EncodeTally(root, entries, cat))
	return err
}

func runCatalog(cmd *cobra.Command, o *cliOptions, stdout, stderr io.Writer) error {
	cfg, logger, _, err := setup(cmd, o, stderr)
	if err != nil {
		return err
	}
	cat, err := catalog.Load(cmd.Context(), cfg.Sources.APIHeader)
	if err != nil {
		return err
	}
	logger.Debug("catalog loaded", "symbols", cat.Len())
	_, err = fmt.Fprintln(stdout, toon.EncodeCatalog(cfg.Sources.APIHeader, cat))
	return err
}

// errNoDatabase is returned by commands that read stored runs without a
// database configured.
var errNoDatabase = errors.New("no results database: set --db or paths.db")

func openStore(cfg *config.Config) (*store.Store, error) {
	if cfg.Paths.DB == "" {
		return nil, errNoDatabase
	}
	if _, err := os.Stat(cfg.Paths.DB); err != nil {
		return nil, fmt.Errorf("results database: %w", err)
	}
	return store.Open(cfg.Paths.DB)
}

func runHistory(cmd *cobra.Command, o *cliOptions, stdout, stderr io.Writer) error {
	cfg, _, _, err := setup(cmd, o, stderr)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.Runs(cmd.Context())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, toon.EncodeRuns(runs))
	return err
}

func runReport(cmd *cobra.Command, o *cliOptions, stdout, stderr io.Writer) error {
	cfg, logger, _, err := setup(cmd, o, stderr)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	runID := o.runID
	if runID == "" {
		runs, err := st.Runs(cmd.Context())
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			return fmt.Errorf("%w: database has no runs", store.ErrRunNotFound)
		}
		runID = runs[0].ID
	}
	results, err := st.LoadResults(cmd.Context(), runID)
	if err != nil {
		return err
	}
	logger.Info("reporting stored run", "run", runID)

	paths, err := report.Write(cfg.Paths.OutputDir, cfg.Report.Format, results, logger)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if _, err := fmt.Fprintln(stdout, p); err != nil {
			return err
		}
	}
	return nil
}

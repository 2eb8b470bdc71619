// Package metrics records run counters on a private Prometheus registry and
// dumps them in the text exposition format.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/phobologic/apiscan/internal/model"
)

// Metrics is safe for concurrent use. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	FilesScanned    prometheus.Counter
	FileReadErrors  prometheus.Counter
	SymbolsAccepted *prometheus.CounterVec
	PluginsFailed   prometheus.Counter
	RepoDuration    prometheus.Histogram
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		FilesScanned: f.NewCounter(prometheus.CounterOpts{
			Name: "apiscan_files_scanned_total",
			Help: "Total number of source files analyzed.",
		}),
		FileReadErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "apiscan_file_read_errors_total",
			Help: "Total number of source files that could not be read.",
		}),
		SymbolsAccepted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "apiscan_symbols_accepted_total",
			Help: "Total number of per-file symbol acceptances, by symbol kind.",
		}, []string{"kind"}),
		PluginsFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "apiscan_plugins_failed_total",
			Help: "Total number of plugins skipped because of an error.",
		}),
		RepoDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "apiscan_repository_seconds",
			Help:    "Time spent analyzing one repository.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// FileScanned counts one analyzed file.
func (m *Metrics) FileScanned() {
	if m == nil {
		return
	}
	m.FilesScanned.Inc()
}

// ReadError counts one unreadable file.
func (m *Metrics) ReadError() {
	if m == nil {
		return
	}
	m.FileReadErrors.Inc()
}

// Accepted counts n acceptances of a symbol of the given kind.
func (m *Metrics) Accepted(kind model.SymbolKind, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SymbolsAccepted.WithLabelValues(string(kind)).Add(float64(n))
}

// PluginFailed counts one skipped plugin.
func (m *Metrics) PluginFailed() {
	if m == nil {
		return
	}
	m.PluginsFailed.Inc()
}

// ObserveRepository records the time one repository took, in seconds.
func (m *Metrics) ObserveRepository(seconds float64) {
	if m == nil {
		return
	}
	m.RepoDuration.Observe(seconds)
}

// WriteFile writes the current values to path atomically.
func (m *Metrics) WriteFile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}

// Package report renders analysis results to files.
package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/phobologic/apiscan/internal/logging"
	"github.com/phobologic/apiscan/internal/model"
)

// ErrUnsupportedFormat is returned for an unknown report format.
var ErrUnsupportedFormat = errors.New("unsupported report format")

// Report formats.
const (
	Markdown = "markdown"
	CSV      = "csv"
	JSON     = "json"
	HTML     = "html"
	TOON     = "toon"
)

// Formats lists every supported format.
var Formats = []string{Markdown, CSV, JSON, HTML, TOON}

// Title heads the markdown and HTML reports.
const Title = "OpenCPN Plugin API Usage Report"

type renderer func(results model.Results) (map[string][]byte, error)

var renderers = map[string]renderer{
	Markdown: func(r model.Results) (map[string][]byte, error) {
		return map[string][]byte{"report.md": []byte(renderMarkdown(r))}, nil
	},
	CSV:  renderCSV,
	JSON: renderJSON,
	HTML: func(r model.Results) (map[string][]byte, error) {
		out, err := renderHTML(r)
		if err != nil {
			return nil, err
		}
		return map[string][]byte{"report.html": out}, nil
	},
	TOON: renderTOON,
}

// ValidateFormat reports whether format is supported.
func ValidateFormat(format string) error {
	if _, ok := renderers[format]; !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return nil
}

// Write renders results in format under dir, creating it if needed, and
// returns the written paths in sorted order.
func Write(dir, format string, results model.Results, logger *log.Logger) ([]string, error) {
	logger = logging.OrDiscard(logger)
	if err := ValidateFormat(format); err != nil {
		return nil, err
	}
	files, err := renderers[format](results)
	if err != nil {
		return nil, fmt.Errorf("rendering %s report: %w", format, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, files[name], 0o644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", path, err)
		}
		logger.Info("report saved", "format", format, "path", path)
		paths = append(paths, path)
	}
	return paths, nil
}

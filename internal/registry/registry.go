// Package registry reads the OpenCPN plugin catalog (ocpn-plugins.xml).
package registry

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/phobologic/apiscan/internal/fetch"
	"github.com/phobologic/apiscan/internal/logging"
	"github.com/phobologic/apiscan/internal/model"
)

// ErrNoPlugins is returned when a document holds no <plugin> element.
var ErrNoPlugins = errors.New("no plugins in registry")

// UnknownVersion stands in for a missing <version>.
const UnknownVersion = "unknown"

type pluginElement struct {
	Name        string `xml:"name"`
	Version     string `xml:"version"`
	APIVersion  string `xml:"api-version"`
	Source      string `xml:"source"`
	Summary     string `xml:"summary"`
	Description string `xml:"description"`
	Author      string `xml:"author"`
	OpenSource  string `xml:"open-source"`
}

// Parse decodes every <plugin> element at any depth, keyed by name. A later
// plugin with the same name replaces an earlier one. Nameless plugins are
// skipped with a warning.
func Parse(data []byte, logger *log.Logger) (map[string]model.Plugin, error) {
	logger = logging.OrDiscard(logger)
	dec := xml.NewDecoder(bytes.NewReader(data))

	plugins := make(map[string]model.Plugin)
	seen := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing plugin registry: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "plugin" {
			continue
		}
		seen++

		var el pluginElement
		if err := dec.DecodeElement(&el, &start); err != nil {
			return nil, fmt.Errorf("parsing plugin registry: %w", err)
		}
		p, ok := el.plugin()
		if !ok {
			logger.Warn("found plugin without name, skipping")
			continue
		}
		plugins[p.Name] = p
		logger.Debug("parsed plugin", "name", p.Name, "version", p.Version)
	}
	if seen == 0 {
		return nil, ErrNoPlugins
	}
	logger.Info("parsed plugin registry", "plugins", len(plugins))
	return plugins, nil
}

func (el pluginElement) plugin() (model.Plugin, bool) {
	name := strings.TrimSpace(el.Name)
	if name == "" {
		return model.Plugin{}, false
	}
	version := strings.TrimSpace(el.Version)
	if version == "" {
		version = UnknownVersion
	}
	source := strings.TrimSpace(el.Source)
	return model.Plugin{
		Name:        name,
		Version:     version,
		APIVersion:  strings.TrimSpace(el.APIVersion),
		SourceURL:   source,
		SourceRepo:  NormalizeGitURL(source),
		Summary:     strings.TrimSpace(el.Summary),
		Description: strings.TrimSpace(el.Description),
		Author:      strings.TrimSpace(el.Author),
		OpenSource:  strings.ToLower(strings.TrimSpace(el.OpenSource)) == "yes",
	}, true
}

// NormalizeGitURL rewrites GitHub URLs to https://github.com/<path> without a
// .git suffix. Other URLs are returned trimmed.
func NormalizeGitURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || !strings.Contains(u.Host, "github.com") {
		return raw
	}
	path := strings.Trim(u.Path, "/")
	path = strings.TrimSuffix(path, ".git")
	return "https://github.com/" + path
}

// Load fetches and parses the registry at a URL or local path.
func Load(ctx context.Context, location string, logger *log.Logger) (map[string]model.Plugin, error) {
	logging.OrDiscard(logger).Info("fetching plugin registry", "location", location)
	data, err := fetch.Read(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("loading plugin registry: %w", err)
	}
	return Parse(data, logger)
}

// Filter keeps the plugins whose name is listed. An empty list keeps all.
func Filter(plugins map[string]model.Plugin, names []string) map[string]model.Plugin {
	if len(names) == 0 {
		return plugins
	}
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	out := make(map[string]model.Plugin)
	for name, p := range plugins {
		if _, ok := want[name]; ok {
			out[name] = p
		}
	}
	return out
}

// GroupByAPIVersion buckets plugins under api_version_<v> keys. Plugins
// without a source repository or API version are skipped with a warning.
func GroupByAPIVersion(plugins map[string]model.Plugin, logger *log.Logger) map[string]map[string]model.Plugin {
	logger = logging.OrDiscard(logger)
	groups := make(map[string]map[string]model.Plugin)
	for _, name := range Names(plugins) {
		p := plugins[name]
		if p.SourceRepo == "" || p.APIVersion == "" {
			logger.Warn("skipping plugin without source or API version", "plugin", name)
			continue
		}
		key := model.APIVersionKey(p.APIVersion)
		if groups[key] == nil {
			groups[key] = make(map[string]model.Plugin)
		}
		groups[key][name] = p
	}
	return groups
}

// Names returns the sorted plugin names.
func Names(plugins map[string]model.Plugin) []string {
	names := make([]string, 0, len(plugins))
	for name := range plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

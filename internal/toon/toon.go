// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/phobologic/apiscan/internal/catalog"
	"github.com/phobologic/apiscan/internal/model"
	"github.com/phobologic/apiscan/internal/ranking"
	"github.com/phobologic/apiscan/internal/store"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// EncodeResults converts analysis results into TOON format: a summary, one
// usage row per plugin and symbol, and the popularity ranking.
func EncodeResults(results model.Results) string {
	var parts []string

	plugins := 0
	for _, byPlugin := range results {
		plugins += len(byPlugin)
	}
	versions := results.Versions()
	parts = append(parts, fmt.Sprintf("plugins: %d", plugins))
	parts = append(parts, fmt.Sprintf("api_versions: %s", encodeValue(strings.Join(versions, " "))))

	var usageRows [][]string
	for _, version := range versions {
		byPlugin := results[version]
		for _, plugin := range results.Plugins(version) {
			tally := byPlugin[plugin]
			for _, symbol := range tally.Names() {
				usageRows = append(usageRows, []string{
					version,
					plugin,
					symbol,
					strconv.Itoa(tally[symbol]),
				})
			}
		}
	}
	parts = append(parts, formatTabular("usage", []string{"api_version", "plugin", "symbol", "files"}, usageRows))

	inverted := ranking.ByPlugin(results)
	var popRows [][]string
	for _, version := range versions {
		for _, e := range ranking.Popularity(inverted[version]) {
			popRows = append(popRows, []string{
				version,
				e.Symbol,
				strconv.Itoa(e.Count()),
				strings.Join(e.Plugins, " "),
			})
		}
	}
	parts = append(parts, formatTabular("popularity", []string{"api_version", "symbol", "plugins", "names"}, popRows))

	return strings.Join(parts, "\n")
}

// EncodeTally converts one repository's ranked tally into TOON format. Kinds
// are looked up in c when it is non-nil.
func EncodeTally(root string, entries []ranking.SymbolCount, c *catalog.Catalog) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("root: %s", encodeValue(root)))

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		kind := ""
		if s, ok := c.Lookup(e.Symbol); ok {
			kind = string(s.Kind)
		}
		rows = append(rows, []string{e.Symbol, kind, strconv.Itoa(e.Files)})
	}
	parts = append(parts, formatTabular("symbols", []string{"symbol", "kind", "files"}, rows))
	return strings.Join(parts, "\n")
}

// EncodeCatalog lists every catalog symbol in TOON format.
func EncodeCatalog(header string, c *catalog.Catalog) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("header: %s", encodeValue(header)))

	var rows [][]string
	for _, s := range c.Symbols() {
		rows = append(rows, []string{s.QualifiedName, string(s.Kind), s.Location, s.Signature})
	}
	parts = append(parts, formatTabular("symbols", []string{"name", "kind", "location", "signature"}, rows))
	return strings.Join(parts, "\n")
}

// EncodeRuns lists stored runs in TOON format.
func EncodeRuns(runs []store.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{r.ID, r.StartedAt.Format(time.RFC3339), r.APIHeader})
	}
	return formatTabular("runs", []string{"id", "started_at", "api_header"}, rows)
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}

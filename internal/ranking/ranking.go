// Package ranking orders symbols by how widely they are used.
package ranking

import (
	"sort"

	"github.com/phobologic/apiscan/internal/model"
)

// SymbolUsage is one symbol with the sorted names of the plugins using it.
type SymbolUsage struct {
	Symbol  string
	Plugins []string
}

// Count is the number of plugins using the symbol.
func (s SymbolUsage) Count() int {
	return len(s.Plugins)
}

// SymbolCount is one symbol with the number of files using it.
type SymbolCount struct {
	Symbol string
	Files  int
}

// ByPlugin inverts results into, per API version, the sorted plugins using
// each symbol.
func ByPlugin(results model.Results) map[string]map[string][]string {
	out := make(map[string]map[string][]string, len(results))
	for version, plugins := range results {
		symbols := make(map[string][]string)
		for plugin, tally := range plugins {
			for symbol := range tally {
				symbols[symbol] = append(symbols[symbol], plugin)
			}
		}
		for _, users := range symbols {
			sort.Strings(users)
		}
		out[version] = symbols
	}
	return out
}

// Popularity sorts symbols by plugin count descending, ties by symbol
// name descending.
func Popularity(symbols map[string][]string) []SymbolUsage {
	entries := make([]SymbolUsage, 0, len(symbols))
	for symbol, plugins := range symbols {
		entries = append(entries, SymbolUsage{Symbol: symbol, Plugins: plugins})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count() != entries[j].Count() {
			return entries[i].Count() > entries[j].Count()
		}
		return entries[i].Symbol > entries[j].Symbol
	})
	return entries
}

// Tally sorts a tally by file count descending, ties by symbol name.
func Tally(t model.UsageTally) []SymbolCount {
	entries := make([]SymbolCount, 0, len(t))
	for symbol, files := range t {
		entries = append(entries, SymbolCount{Symbol: symbol, Files: files})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Files != entries[j].Files {
			return entries[i].Files > entries[j].Files
		}
		return entries[i].Symbol < entries[j].Symbol
	})
	return entries
}

// Top returns the first n entries. If n is <= 0 or >= len(entries), all
// entries are returned.
func Top[T any](entries []T, n int) []T {
	if n <= 0 || n >= len(entries) {
		return entries
	}
	return entries[:n]
}

// Package catalog holds the API symbol catalog consumed by the matcher and
// builds it from a C/C++ API header.
package catalog

import (
	"sort"

	"github.com/phobologic/apiscan/internal/model"
)

// Catalog is an immutable snapshot of API symbols keyed by qualified name.
// It is safe for concurrent readers.
type Catalog struct {
	symbols    map[string]model.ApiSymbol
	byShort    map[string][]string
	shortNames []string
}

// New builds a Catalog. When two symbols share a qualified name the later one
// wins, so overloads collapse to a single entry.
func New(symbols []model.ApiSymbol) *Catalog {
	c := &Catalog{
		symbols: make(map[string]model.ApiSymbol, len(symbols)),
		byShort: make(map[string][]string),
	}
	for _, s := range symbols {
		if s.QualifiedName == "" {
			continue
		}
		if s.ShortName == "" {
			s.ShortName, s.ParentName = model.SplitName(s.QualifiedName)
		}
		if s.ShortName == "" {
			continue
		}
		c.symbols[s.QualifiedName] = s
	}

	for name, s := range c.symbols {
		c.byShort[s.ShortName] = append(c.byShort[s.ShortName], name)
	}
	for short, names := range c.byShort {
		sort.Strings(names)
		c.shortNames = append(c.shortNames, short)
	}

	// Longest first so overlapping alternatives try the longer name first.
	sort.Slice(c.shortNames, func(i, j int) bool {
		a, b := c.shortNames[i], c.shortNames[j]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})
	return c
}

// Len returns the number of symbols.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.symbols)
}

// Lookup returns the symbol with the given qualified name.
func (c *Catalog) Lookup(qualifiedName string) (model.ApiSymbol, bool) {
	if c == nil {
		return model.ApiSymbol{}, false
	}
	s, ok := c.symbols[qualifiedName]
	return s, ok
}

// Symbols returns every symbol sorted by qualified name.
func (c *Catalog) Symbols() []model.ApiSymbol {
	if c == nil {
		return nil
	}
	out := make([]model.ApiSymbol, 0, len(c.symbols))
	for _, s := range c.symbols {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].QualifiedName < out[j].QualifiedName
	})
	return out
}

// ByShortName returns the sorted qualified names whose final segment is short.
func (c *Catalog) ByShortName(short string) []string {
	if c == nil {
		return nil
	}
	return c.byShort[short]
}

// ShortNames returns the distinct short names, longest first, ties broken
// lexically. The returned slice must not be modified.
func (c *Catalog) ShortNames() []string {
	if c == nil {
		return nil
	}
	return c.shortNames
}

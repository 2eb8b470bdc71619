// Package match decides which catalog symbols a C/C++ source file uses,
// working on raw text with regular expressions instead of a compiler front
// end.
//
// A file goes through three stages. A prefilter shortlists symbols whose
// short name occurs anywhere as a whole word. A line scanner confirms an
// occurrence outside full-line "//" comments and double-quoted literals.
// Finally a per-kind rule looks for syntactic context (Class::method(,
// Class var, Enum::CONST, using namespace Enum;) or falls back to a rarity
// heuristic.
package match

import (
	"fmt"
	"os"
	"regexp"

	"github.com/phobologic/apiscan/internal/catalog"
	"github.com/phobologic/apiscan/internal/model"
)

// Config tunes a Matcher.
type Config struct {
	// ChunkSize caps the number of names per prefilter alternation.
	// Zero means DefaultChunkSize. It never changes results.
	ChunkSize int
}

// Matcher holds every pattern compiled for one catalog snapshot. It is
// read-only after New and safe for concurrent use.
type Matcher struct {
	catalog *catalog.Catalog
	pre     *prefilter
	rules   map[string]*rules
}

// New compiles the prefilter chunks and per-symbol rules for c.
func New(c *catalog.Catalog, cfg Config) (*Matcher, error) {
	if c == nil {
		c = catalog.New(nil)
	}
	pre, err := newPrefilter(c, cfg.ChunkSize)
	if err != nil {
		return nil, err
	}

	words := make(map[string]*regexp.Regexp)
	m := &Matcher{
		catalog: c,
		pre:     pre,
		rules:   make(map[string]*rules, c.Len()),
	}
	for _, s := range c.Symbols() {
		word, ok := words[s.ShortName]
		if !ok {
			word, err = wordPattern(s.ShortName)
			if err != nil {
				return nil, err
			}
			words[s.ShortName] = word
		}
		r, err := newRules(s, word)
		if err != nil {
			return nil, err
		}
		m.rules[s.QualifiedName] = r
	}
	return m, nil
}

// Catalog returns the catalog the matcher was built from.
func (m *Matcher) Catalog() *catalog.Catalog {
	return m.catalog
}

// Candidates returns the sorted qualified names whose short name occurs as a
// whole word anywhere in text. It is a superset of AnalyzeFile's result.
func (m *Matcher) Candidates(text string) []string {
	return m.pre.candidates(text)
}

// AnalyzeFile returns the symbols text uses. It is deterministic for a
// given catalog and text.
func (m *Matcher) AnalyzeFile(text string) model.MatchResult {
	result := make(model.MatchResult)
	candidates := m.pre.candidates(text)
	if len(candidates) == 0 {
		return result
	}

	// Symbols sharing a short name share the scan verdict.
	scanned := make(map[string]bool)
	for _, name := range candidates {
		r := m.rules[name]
		short := r.symbol.ShortName
		found, ok := scanned[short]
		if !ok {
			found = occursOutsideQuotes(r.word, text)
			scanned[short] = found
		}
		if found && r.accept(text) {
			result.Add(name)
		}
	}
	return result
}

// AnalyzeSource reads path and analyzes its content. Undecodable bytes are
// replaced. A read error yields an empty result together with the error.
func (m *Matcher) AnalyzeSource(path string) (model.MatchResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return make(model.MatchResult), fmt.Errorf("reading %s: %w", path, err)
	}
	return m.AnalyzeFile(model.DecodeText(data)), nil
}

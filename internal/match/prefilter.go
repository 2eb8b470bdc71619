package match

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/phobologic/apiscan/internal/catalog"
)

// DefaultChunkSize is the number of short names joined into one prefilter
// alternation. Larger alternations cost more to compile and match.
const DefaultChunkSize = 100

// prefilter shortlists catalog entries whose short name appears as a whole
// word anywhere in the raw text, comments and strings included.
type prefilter struct {
	catalog *catalog.Catalog
	chunks  []*regexp.Regexp

	// Names containing non-word characters are matched one at a time; inside
	// an alternation a match of one of them could consume text another
	// alternative needed, making the result depend on chunk boundaries.
	irregular []namedPattern
}

type namedPattern struct {
	name string
	re   *regexp.Regexp
}

func newPrefilter(c *catalog.Catalog, chunkSize int) (*prefilter, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	p := &prefilter{catalog: c}

	var words []string
	for _, name := range c.ShortNames() {
		if isIdentifier(name) {
			words = append(words, name)
			continue
		}
		re, err := wordPattern(name)
		if err != nil {
			return nil, err
		}
		p.irregular = append(p.irregular, namedPattern{name: name, re: re})
	}

	for start := 0; start < len(words); start += chunkSize {
		end := min(start+chunkSize, len(words))
		re, err := alternation(words[start:end])
		if err != nil {
			return nil, err
		}
		p.chunks = append(p.chunks, re)
	}
	return p, nil
}

// candidates returns the sorted qualified names worth a full check, or nil
// when no short name occurs in text.
func (p *prefilter) candidates(text string) []string {
	hits := make(map[string]struct{})
	for _, re := range p.chunks {
		for _, m := range re.FindAllString(text, -1) {
			hits[m] = struct{}{}
		}
	}
	for _, np := range p.irregular {
		if np.re.MatchString(text) {
			hits[np.name] = struct{}{}
		}
	}
	if len(hits) == 0 {
		return nil
	}

	var out []string
	for short := range hits {
		out = append(out, p.catalog.ByShortName(short)...)
	}
	sort.Strings(out)
	return out
}

// alternation compiles \b(?:n1|n2|...)\b with every name escaped literally.
func alternation(names []string) (*regexp.Regexp, error) {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = regexp.QuoteMeta(n)
	}
	expr := `\b(?:` + strings.Join(quoted, "|") + `)\b`
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compiling prefilter chunk of %d names: %w", len(names), err)
	}
	return re, nil
}

// wordPattern compiles \b<name>\b.
func wordPattern(name string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(name) + `\b`)
	if err != nil {
		return nil, fmt.Errorf("compiling pattern for %q: %w", name, err)
	}
	return re, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '_' && (c < '0' || c > '9') && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

package match

import (
	"fmt"
	"regexp"

	"github.com/phobologic/apiscan/internal/model"
)

// Rarity fallback thresholds: a symbol with no structural confirmation is
// accepted when its short name is longer than RarityMinNameLength and occurs
// at least once but fewer than RarityMaxOccurrences times in the file.
const (
	RarityMaxOccurrences = 5
	RarityMinNameLength  = 5
)

// rules holds the compiled acceptance checks for one catalog entry.
type rules struct {
	symbol model.ApiSymbol
	word   *regexp.Regexp // \b<short>\b

	// structural patterns; any match over the raw text accepts
	structural []*regexp.Regexp

	// unconditional accepts as soon as the scanner found an occurrence
	unconditional bool
}

func newRules(s model.ApiSymbol, word *regexp.Regexp) (*rules, error) {
	r := &rules{symbol: s, word: word}
	short := regexp.QuoteMeta(s.ShortName)
	parent := regexp.QuoteMeta(s.ParentName)

	var exprs []string
	switch {
	case (s.Kind == model.Method || s.Kind == model.Function) && s.Scoped():
		// Parent::short( or obj.short( spelled with the parent name
		exprs = append(exprs, `\b`+parent+`(?:::|\.)`+short+`\s*\(`)
	case s.Kind == model.Class || s.Kind == model.Struct:
		// declaration shape: Boat b, Boat* b, Boat &b
		exprs = append(exprs, `\b`+short+`\s*(?:\*|&)?\s*\w+`)
	case s.Kind == model.EnumConstant && s.Scoped():
		exprs = append(exprs,
			`\b`+parent+`::`+short+`\b`,
			`(?s)using\s+(?:namespace\s+)?`+parent+`\s*;.*\b`+short+`\b`,
		)
	case s.Kind == model.Macro || (s.Kind == model.Function && !s.Scoped()):
		r.unconditional = true
	}

	for _, expr := range exprs {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("compiling rule for %s: %w", s.QualifiedName, err)
		}
		r.structural = append(r.structural, re)
	}
	return r, nil
}

// accept decides final acceptance of a symbol whose short name already
// occurs outside comments and quotes. Rules only ever add a symbol.
func (r *rules) accept(text string) bool {
	for _, re := range r.structural {
		if re.MatchString(text) {
			return true
		}
	}
	if r.unconditional {
		return true
	}
	return r.rare(text)
}

// rare is the fallback for symbols without structural confirmation.
func (r *rules) rare(text string) bool {
	if len(r.symbol.ShortName) <= RarityMinNameLength {
		return false
	}
	n := len(r.word.FindAllStringIndex(text, RarityMaxOccurrences))
	return n >= 1 && n < RarityMaxOccurrences
}

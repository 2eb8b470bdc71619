package match

import (
	"regexp"
	"strings"
	"unicode"
)

// occursOutsideQuotes reports whether word matches somewhere in text outside
// full-line "//" comments and double-quoted spans.
//
// Only lines whose trimmed text starts with "//" are dropped; a trailing
// comment after code is still scanned, and so is everything inside /* */.
// A quote preceded by a backslash never toggles quoting, so `"a\\"` leaves
// the rest of the line quoted.
func occursOutsideQuotes(word *regexp.Regexp, text string) bool {
	for _, line := range splitLines(text) {
		if strings.HasPrefix(strings.TrimLeftFunc(line, isSpace), "//") {
			continue
		}
		for _, span := range unquotedSpans(line) {
			if word.MatchString(span) {
				return true
			}
		}
	}
	return false
}

// isSpace reports Unicode white space plus the ASCII separators
// \x1c-\x1f, which also count as blank before a "//" comment.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

// unquotedSpans returns the parts of line outside double quotes. An
// unterminated quote swallows the rest of the line.
func unquotedSpans(line string) []string {
	var spans []string
	inQuote := false
	start := 0
	for i := 0; i < len(line); i++ {
		if line[i] != '"' || (i > 0 && line[i-1] == '\\') {
			continue
		}
		if !inQuote && i > start {
			spans = append(spans, line[start:i])
		}
		inQuote = !inQuote
		start = i + 1
	}
	if !inQuote && start < len(line) {
		spans = append(spans, line[start:])
	}
	return spans
}

// splitLines splits text at every line boundary: \n, \r\n, \r, \v, \f,
// \x1c-\x1e, U+0085, U+2028 and U+2029. No trailing empty line is produced.
func splitLines(text string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(text); {
		r, size := decodeBoundary(text, i)
		if size == 0 {
			i++
			continue
		}
		lines = append(lines, text[start:i])
		if r == '\r' && i+1 < len(text) && text[i+1] == '\n' {
			size = 2
		}
		i += size
		start = i
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}

// decodeBoundary returns the line-boundary rune at text[i] and its byte
// length, or size 0 when text[i] does not start one.
func decodeBoundary(text string, i int) (rune, int) {
	switch c := text[i]; c {
	case '\n', '\r', '\v', '\f', 0x1c, 0x1d, 0x1e:
		return rune(c), 1
	case 0xc2:
		if strings.HasPrefix(text[i:], "\u0085") {
			return '\u0085', 2
		}
	case 0xe2:
		if strings.HasPrefix(text[i:], "\u2028") {
			return '\u2028', 3
		}
		if strings.HasPrefix(text[i:], "\u2029") {
			return '\u2029', 3
		}
	}
	return 0, 0
}

// Package lang provides the C/C++ language registry: the source file
// extension allow-list and the lazily initialized tree-sitter grammar used to
// read API headers.
package lang

import (
	"regexp"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Language holds tree-sitter configuration for a supported language.
type Language struct {
	Name       string
	Extensions []string

	load     func() *sitter.Language
	loadOnce sync.Once
	lang     *sitter.Language
}

// GetLanguage returns the tree-sitter Language pointer, loading the grammar on
// first use. Loading happens once per process.
func (l *Language) GetLanguage() *sitter.Language {
	l.loadOnce.Do(func() {
		l.lang = l.load()
	})
	return l.lang
}

// NewParser creates a fresh tree-sitter parser for this language.
// Each goroutine must use its own parser (not thread-safe).
func (l *Language) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(l.GetLanguage())
	return p
}

// CPP is the C/C++ language. The C++ grammar also reads the C subset found in
// plugin API headers.
var CPP = &Language{
	Name:       "cpp",
	Extensions: []string{".cpp", ".cxx", ".cc", ".c", ".hpp", ".hxx", ".hh", ".h"},
	load:       cpp.GetLanguage,
}

// Languages maps language names to their configuration.
var Languages = map[string]*Language{
	CPP.Name: CPP,
}

// extensionMap is built lazily on first lookup.
var extensionMap map[string]string
var extensionOnce sync.Once

func getExtensionMap() map[string]string {
	extensionOnce.Do(func() {
		extensionMap = make(map[string]string)
		for _, l := range Languages {
			for _, ext := range l.Extensions {
				extensionMap[ext] = l.Name
			}
		}
	})
	return extensionMap
}

// ForExtension returns the language name for a file extension, or "" if unsupported.
// Matching is case-sensitive: ".C" and ".H" are not in the allow-list.
func ForExtension(ext string) string {
	return getExtensionMap()[ext]
}

// NodeText returns the source text of a tree-sitter node.
func NodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

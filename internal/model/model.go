// Package model defines core data structures for apiscan.
package model

import (
	"sort"
	"strings"
)

// ScopeSeparator joins the segments of a qualified C++ name.
const ScopeSeparator = "::"

// SymbolKind indicates the structural kind of an API symbol.
type SymbolKind string

const (
	Function     SymbolKind = "function"
	Method       SymbolKind = "method"
	Constructor  SymbolKind = "constructor"
	Destructor   SymbolKind = "destructor"
	Class        SymbolKind = "class"
	Struct       SymbolKind = "struct"
	Enum         SymbolKind = "enum"
	EnumConstant SymbolKind = "enum_constant"
	Typedef      SymbolKind = "typedef"
	Field        SymbolKind = "field"
	Variable     SymbolKind = "variable"
	Macro        SymbolKind = "macro"
)

// ApiSymbol is one named entry of the API surface.
type ApiSymbol struct {
	QualifiedName string
	Kind          SymbolKind
	ShortName     string // final "::" segment of QualifiedName
	ParentName    string // second-to-last segment, "" when unscoped
	Location      string // path:line of the declaration
	Signature     string
	Comment       string
}

// NewSymbol builds an ApiSymbol, deriving ShortName and ParentName from the
// qualified name.
func NewSymbol(qualifiedName string, kind SymbolKind) ApiSymbol {
	short, parent := SplitName(qualifiedName)
	return ApiSymbol{
		QualifiedName: qualifiedName,
		Kind:          kind,
		ShortName:     short,
		ParentName:    parent,
	}
}

// Scoped reports whether the symbol has a qualifying scope.
func (s ApiSymbol) Scoped() bool {
	return s.ParentName != ""
}

// SplitName returns the final and second-to-last "::" segments of name.
func SplitName(name string) (short, parent string) {
	parts := strings.Split(name, ScopeSeparator)
	short = parts[len(parts)-1]
	if len(parts) >= 2 {
		parent = parts[len(parts)-2]
	}
	return short, parent
}

// SourceFile is a candidate file with its decoded text.
type SourceFile struct {
	Path    string
	Content string
}

// DecodeText turns raw file bytes into text, replacing invalid UTF-8.
func DecodeText(data []byte) string {
	return strings.ToValidUTF8(string(data), "\uFFFD")
}

// MatchResult is the set of qualified names accepted for one file.
type MatchResult map[string]struct{}

// Add records name as accepted.
func (m MatchResult) Add(name string) {
	m[name] = struct{}{}
}

// Has reports whether name was accepted.
func (m MatchResult) Has(name string) bool {
	_, ok := m[name]
	return ok
}

// Names returns the accepted names in sorted order.
func (m MatchResult) Names() []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// UsageTally maps a qualified name to the number of distinct files using it.
type UsageTally map[string]int

// Add folds one file's result into the tally, counting each symbol once.
func (t UsageTally) Add(m MatchResult) {
	for name := range m {
		t[name]++
	}
}

// Merge sums other into t.
func (t UsageTally) Merge(other UsageTally) {
	for name, n := range other {
		t[name] += n
	}
}

// Names returns the tallied names in sorted order.
func (t UsageTally) Names() []string {
	names := make([]string, 0, len(t))
	for n := range t {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Plugin is one entry of the plugin registry.
type Plugin struct {
	Name        string
	Version     string
	APIVersion  string
	SourceURL   string
	SourceRepo  string
	Summary     string
	Description string
	Author      string
	OpenSource  bool
}

// APIVersionKey returns the results key for an API version, e.g. "api_version_1.16".
func APIVersionKey(version string) string {
	return "api_version_" + version
}

// Results groups per-plugin tallies by API version key.
type Results map[string]map[string]UsageTally

// Set stores a plugin's tally under apiVersion.
func (r Results) Set(apiVersion, plugin string, tally UsageTally) {
	if r[apiVersion] == nil {
		r[apiVersion] = make(map[string]UsageTally)
	}
	r[apiVersion][plugin] = tally
}

// Versions returns the API version keys in sorted order.
func (r Results) Versions() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Plugins returns the plugin names stored under apiVersion in sorted order.
func (r Results) Plugins(apiVersion string) []string {
	names := make([]string, 0, len(r[apiVersion]))
	for name := range r[apiVersion] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

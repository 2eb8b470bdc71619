package match

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/apiscan/internal/catalog"
	"github.com/phobologic/apiscan/internal/model"
)

func newMatcher(t *testing.T, symbols ...model.ApiSymbol) *Matcher {
	t.Helper()
	m, err := New(catalog.New(symbols), Config{})
	require.NoError(t, err)
	return m
}

func analyze(t *testing.T, text string, symbols ...model.ApiSymbol) []string {
	t.Helper()
	return newMatcher(t, symbols...).AnalyzeFile(text).Names()
}

var (
	foo    = model.NewSymbol("Foo", model.Macro)
	boat   = model.NewSymbol("Boat", model.Class)
	turn   = model.NewSymbol("Ship::Turn", model.Method)
	summer = model.NewSymbol("Season::SUMMER", model.EnumConstant)
	fall   = model.NewSymbol("Season::FALL", model.EnumConstant)
)

func TestCommentLineExcluded(t *testing.T) {
	t.Parallel()
	assert.Empty(t, analyze(t, "// Foo is great\nint x=1;", foo))
}

func TestIndentedCommentLineExcluded(t *testing.T) {
	t.Parallel()
	assert.Empty(t, analyze(t, "int x;\n    // call Foo here\n", foo))
}

func TestTrailingCommentNotStripped(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"Foo"}, analyze(t, "int x; // Foo", foo))
}

func TestBlockCommentNotExcluded(t *testing.T) {
	t.Parallel()
	// block comments are scanned like code
	assert.Equal(t, []string{"Foo"}, analyze(t, "/*\n  Foo\n*/\nint x;", foo))
}

func TestWordBoundaryIsASCII(t *testing.T) {
	t.Parallel()
	// non-ASCII letters are not word characters, so they bound a name
	assert.Equal(t, []string{"Foo"}, analyze(t, "Fooé();", foo))
	assert.Equal(t, []string{"Foo"}, analyze(t, "éFoo();", foo))
	assert.Empty(t, analyze(t, "Foo_x();", foo))

	// the rarity rule counts the same boundaries
	route := model.NewSymbol("PlugIn_Route", model.Constructor)
	assert.Equal(t, []string{"PlugIn_Route"}, analyze(t, "PlugIn_Routeé x;", route))
}

func TestQuotedOccurrenceExcluded(t *testing.T) {
	t.Parallel()
	assert.Empty(t, analyze(t, `log("Foo called");`, foo))
	assert.Equal(t, []string{"Foo"}, analyze(t, `Foo();`, foo))
}

func TestEscapedQuoteDoesNotToggle(t *testing.T) {
	t.Parallel()
	assert.Empty(t, analyze(t, `s = "say \"Foo\" now";`, foo))
	// a literal backslash before the closing quote keeps the span open
	assert.Empty(t, analyze(t, `s = "dir\\"; Foo();`, foo))
}

func TestUnterminatedQuoteSwallowsLine(t *testing.T) {
	t.Parallel()
	assert.Empty(t, analyze(t, `s = "oops Foo();`, foo))
	assert.Equal(t, []string{"Foo"}, analyze(t, "s = \"oops\nFoo();", foo))
}

func TestSubstringOfLongerNameRejected(t *testing.T) {
	t.Parallel()
	assert.Empty(t, analyze(t, "FooBar(); my_Foo = 1;", foo))
}

func TestClassDeclarationShape(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"Boat"}, analyze(t, "Boat myBoat;", boat))
	assert.Equal(t, []string{"Boat"}, analyze(t, "Boat* p = nullptr;", boat))
	assert.Equal(t, []string{"Boat"}, analyze(t, "void f(const Boat &b);", boat))
	assert.Empty(t, analyze(t, `"Boat is a word";`, boat))
}

func TestClassWithoutDeclarationFallsBack(t *testing.T) {
	t.Parallel()
	// "Boat(" has no declaration shape and "Boat" is too short for the fallback
	assert.Empty(t, analyze(t, "x = Boat();", boat))

	vessel := model.NewSymbol("Vessel", model.Class)
	assert.Equal(t, []string{"Vessel"}, analyze(t, "x = Vessel();", vessel))
}

func TestScopedMethod(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"Ship::Turn"}, analyze(t, "Ship::Turn();", turn))
	assert.Equal(t, []string{"Ship::Turn"}, analyze(t, "Ship.Turn ( 10 );", turn))
	assert.Empty(t, analyze(t, "ship.turn();", turn))
	assert.Empty(t, analyze(t, "p->Turn();", turn))
}

func TestScopedMethodRarityFallback(t *testing.T) {
	t.Parallel()
	nav := model.NewSymbol("Ship::Navigate", model.Method)
	assert.Equal(t, []string{"Ship::Navigate"}, analyze(t, "p->Navigate();", nav))

	many := strings.Repeat("p->Navigate();\n", RarityMaxOccurrences)
	assert.Empty(t, analyze(t, many, nav))

	few := strings.Repeat("p->Navigate();\n", RarityMaxOccurrences-1)
	assert.Equal(t, []string{"Ship::Navigate"}, analyze(t, few, nav))
}

func TestScopedMethodDisambiguatesParents(t *testing.T) {
	t.Parallel()
	a := model.NewSymbol("Alpha::Reset", model.Method)
	b := model.NewSymbol("Beta::Reset", model.Method)
	m := newMatcher(t, a, b)

	text := "Alpha::Reset();"
	assert.Equal(t, []string{"Alpha::Reset", "Beta::Reset"}, m.Candidates(text))
	assert.Equal(t, []string{"Alpha::Reset"}, m.AnalyzeFile(text).Names())
}

func TestEnumConstant(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"Season::SUMMER"},
		analyze(t, "using namespace Season;\nif (s == SUMMER) {}", summer))
	assert.Equal(t, []string{"Season::FALL"}, analyze(t, "x = Season::FALL;", fall))
	assert.Equal(t, []string{"Season::FALL"}, analyze(t, "using Season;\nx = FALL;", fall))
	// using after the use does not count, and FALL is too short to be rare
	assert.Empty(t, analyze(t, "x = FALL;\nusing namespace Season;", fall))
	assert.Empty(t, analyze(t, "x = FALL;", fall))
}

func TestUnscopedFunctionAccepted(t *testing.T) {
	t.Parallel()
	fn := model.NewSymbol("Init", model.Function)
	assert.Equal(t, []string{"Init"}, analyze(t, "Init();", fn))
	assert.Empty(t, analyze(t, `puts("Init");`, fn))
}

func TestRarityFallback(t *testing.T) {
	t.Parallel()
	td := model.NewSymbol("PlugIn_Waypoint", model.Typedef)
	short := model.NewSymbol("Fix", model.Typedef)

	assert.Equal(t, []string{"PlugIn_Waypoint"}, analyze(t, "PlugIn_Waypoint *wp;", td))
	assert.Empty(t, analyze(t, "Fix *f;", short))

	// raw occurrences include those inside quotes and comments
	text := "PlugIn_Waypoint a;\n// PlugIn_Waypoint\n\"PlugIn_Waypoint\"\n/* PlugIn_Waypoint */\nPlugIn_Waypoint b;"
	assert.Empty(t, analyze(t, text, td))
}

func TestRegexMetacharactersEscaped(t *testing.T) {
	t.Parallel()
	dotted := model.NewSymbol("a.b", model.Macro)
	m := newMatcher(t, dotted, model.NewSymbol("x+y", model.Macro), model.NewSymbol("(", model.Macro))

	assert.Empty(t, m.AnalyzeFile("axb;").Names())
	assert.Equal(t, []string{"a.b"}, m.AnalyzeFile("v = a.b;").Names())
}

func TestEmptyCatalog(t *testing.T) {
	t.Parallel()
	m, err := New(catalog.New(nil), Config{})
	require.NoError(t, err)
	assert.Empty(t, m.AnalyzeFile("Foo(); Boat b;"))
	assert.Nil(t, m.Candidates("Foo"))

	m, err = New(nil, Config{})
	require.NoError(t, err)
	assert.Empty(t, m.AnalyzeFile("Foo();"))
}

func TestCandidatesIncludeComments(t *testing.T) {
	t.Parallel()
	m := newMatcher(t, foo)
	assert.Equal(t, []string{"Foo"}, m.Candidates("// Foo"))
	assert.Empty(t, m.AnalyzeFile("// Foo"))
}

func TestAnalyzeFileDeterministic(t *testing.T) {
	t.Parallel()
	m := newMatcher(t, foo, boat, turn, summer, fall)
	text := "using namespace Season;\nBoat b; Ship::Turn(); Foo(); x = SUMMER;"

	first := m.AnalyzeFile(text).Names()
	for range 10 {
		assert.Equal(t, first, m.AnalyzeFile(text).Names())
	}
	assert.Equal(t, []string{"Boat", "Foo", "Season::SUMMER", "Ship::Turn"}, first)
}

func TestChunkingInvariance(t *testing.T) {
	t.Parallel()

	var symbols []model.ApiSymbol
	var text strings.Builder
	kinds := []model.SymbolKind{model.Macro, model.Function, model.Class, model.Typedef, model.Variable}
	for i := range 250 {
		name := fmt.Sprintf("Sym%03d", i)
		kind := kinds[i%len(kinds)]
		if i%7 == 0 {
			symbols = append(symbols, model.NewSymbol("Scope::"+name, model.Method))
		} else {
			symbols = append(symbols, model.NewSymbol(name, kind))
		}
		if i%3 == 0 {
			fmt.Fprintf(&text, "%s x%d;\n", name, i)
		}
		if i%11 == 0 {
			fmt.Fprintf(&text, "// %s\n", name)
		}
	}
	// overlapping and non-identifier names
	symbols = append(symbols,
		model.NewSymbol("Get", model.Function),
		model.NewSymbol("GetValue", model.Function),
		model.NewSymbol("Scope::~Scope", model.Destructor),
		model.NewSymbol("Scope", model.Class),
	)
	text.WriteString("GetValue(); Get(); x~Scope; Scope s;\nScope::Sym014();\n")

	c := catalog.New(symbols)
	var results [][]string
	for _, size := range []int{1, 100, 250, len(symbols)} {
		m, err := New(c, Config{ChunkSize: size})
		require.NoError(t, err)
		results = append(results, m.AnalyzeFile(text.String()).Names())
	}
	require.NotEmpty(t, results[0])
	for i := 1; i < len(results); i++ {
		assert.Equal(t, results[0], results[i])
	}
	assert.Contains(t, results[0], "Scope::Sym014")
	assert.Contains(t, results[0], "GetValue")
	assert.Contains(t, results[0], "Get")
}

func TestAnalyzeSource(t *testing.T) {
	t.Parallel()
	m := newMatcher(t, foo)

	path := filepath.Join(t.TempDir(), "a.cpp")
	require.NoError(t, os.WriteFile(path, []byte("Foo();\xff\xfe\n"), 0o644))
	got, err := m.AnalyzeSource(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Foo"}, got.Names())

	got, err = m.AnalyzeSource(filepath.Join(t.TempDir(), "missing.cpp"))
	require.Error(t, err)
	assert.Empty(t, got)
}

package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/apiscan/internal/model"
)

const sampleHeader = `#ifndef _PLUGIN_H_
#define _PLUGIN_H_

#define API_VERSION_MAJOR 1
#define MAX(a, b) ((a) > (b) ? (a) : (b))

enum PI_DisCat {
  PI_DISCAT_ALL,
  PI_DISCAT_CUSTOM = 1
};

typedef struct _PlugIn_Position_Fix {
  double Lat;
  double Lon;
} PlugIn_Position_Fix;

class PlugIn_Route {
public:
  PlugIn_Route(void);
  ~PlugIn_Route(void);
  int m_Count;
};

class opencpn_plugin {
public:
  virtual ~opencpn_plugin();

  // Initialize the plugin.
  // Returns capability flags.
  virtual int Init(void);
  virtual bool DeInit(void);
};

namespace ocpn {
double toSM_Plugin(double lat, double lon);
}

extern "C" int GetCanvasCount();
extern int g_iPluginCount;
#endif
`

func parseSample(t *testing.T) map[string]model.ApiSymbol {
	t.Helper()
	symbols, err := ParseHeader(context.Background(), []byte(sampleHeader), "plugin.h")
	require.NoError(t, err)
	byName := make(map[string]model.ApiSymbol, len(symbols))
	for _, s := range symbols {
		byName[s.QualifiedName] = s
	}
	return byName
}

func TestParseHeaderKinds(t *testing.T) {
	t.Parallel()
	byName := parseSample(t)

	tests := []struct {
		name string
		kind model.SymbolKind
	}{
		{"_PLUGIN_H_", model.Macro},
		{"API_VERSION_MAJOR", model.Macro},
		{"MAX", model.Macro},
		{"PI_DisCat", model.Enum},
		{"PI_DisCat::PI_DISCAT_ALL", model.EnumConstant},
		{"PI_DisCat::PI_DISCAT_CUSTOM", model.EnumConstant},
		{"_PlugIn_Position_Fix", model.Struct},
		{"_PlugIn_Position_Fix::Lat", model.Field},
		{"PlugIn_Position_Fix", model.Typedef},
		{"PlugIn_Route", model.Class},
		{"PlugIn_Route::PlugIn_Route", model.Constructor},
		{"PlugIn_Route::~PlugIn_Route", model.Destructor},
		{"PlugIn_Route::m_Count", model.Field},
		{"opencpn_plugin", model.Class},
		{"opencpn_plugin::Init", model.Method},
		{"opencpn_plugin::DeInit", model.Method},
		{"ocpn::toSM_Plugin", model.Function},
		{"GetCanvasCount", model.Function},
		{"g_iPluginCount", model.Variable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, ok := byName[tt.name]
			require.True(t, ok, "missing symbol %s", tt.name)
			assert.Equal(t, tt.kind, s.Kind)
		})
	}
}

func TestParseHeaderScopes(t *testing.T) {
	t.Parallel()
	byName := parseSample(t)

	init := byName["opencpn_plugin::Init"]
	assert.Equal(t, "Init", init.ShortName)
	assert.Equal(t, "opencpn_plugin", init.ParentName)
	assert.Equal(t, "Initialize the plugin.\nReturns capability flags.", init.Comment)
	assert.Contains(t, init.Signature, "Init(void)")
	assert.Equal(t, "plugin.h:30", init.Location)

	c := byName["PI_DisCat::PI_DISCAT_CUSTOM"]
	assert.Equal(t, "PI_DisCat", c.ParentName)

	fn := byName["GetCanvasCount"]
	assert.False(t, fn.Scoped())
}

func TestParseHeaderNestedNamespaces(t *testing.T) {
	t.Parallel()

	symbols, err := ParseHeader(context.Background(), []byte(`namespace ocpn {
namespace gui {
void Show(int id);
}
namespace net {
void Send(int id);
}
void Reset();
}
`), "ns.h")
	require.NoError(t, err)

	byName := make(map[string]model.ApiSymbol, len(symbols))
	for _, s := range symbols {
		byName[s.QualifiedName] = s
	}
	for _, name := range []string{"ocpn::gui::Show", "ocpn::net::Send", "ocpn::Reset"} {
		s, ok := byName[name]
		require.True(t, ok, "missing symbol %s in %v", name, symbols)
		assert.Equal(t, model.Function, s.Kind)
	}
	// siblings must not leak into each other's scope
	assert.NotContains(t, byName, "ocpn::gui::net::Send")
}

func TestParseHeaderEmpty(t *testing.T) {
	t.Parallel()

	_, err := ParseHeader(context.Background(), []byte("  \n"), "empty.h")
	assert.ErrorIs(t, err, ErrEmptyHeader)
}

func TestLoadLocalHeader(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "plugin.h")
	require.NoError(t, os.WriteFile(path, []byte(sampleHeader), 0o644))

	c, err := Load(context.Background(), path)
	require.NoError(t, err)
	_, ok := c.Lookup("opencpn_plugin::Init")
	assert.True(t, ok)
}

func TestLeadingComment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		lines []string
		row   int
		want  string
	}{
		{"first line", []string{"int x;"}, 0, ""},
		{"single", []string{"// hello", "int x;"}, 1, "hello"},
		{"multi", []string{"// a", "//  b", "int x;"}, 2, "a\nb"},
		{"blank before comment", []string{"// a", "", "int x;"}, 2, "a"},
		{"blank after collected", []string{"// a", "", "// b", "int x;"}, 3, "b"},
		{"block end stops", []string{"/* doc */", "int x;"}, 1, ""},
		{"block start stops", []string{"// a", "/* b", "// c", "int x;"}, 3, "c"},
		{"code stops", []string{"// a", "int y;", "int x;"}, 2, ""},
		{"lookback limit", []string{"// 1", "// 2", "// 3", "// 4", "// 5", "// 6", "int x;"}, 6, "2\n3\n4\n5\n6"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, LeadingComment(tt.lines, tt.row))
		})
	}
}

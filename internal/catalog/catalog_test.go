package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/apiscan/internal/model"
)

func TestNewDerivesNames(t *testing.T) {
	t.Parallel()

	c := New([]model.ApiSymbol{
		{QualifiedName: "Ship::Turn", Kind: model.Method},
		model.NewSymbol("Foo", model.Macro),
	})

	s, ok := c.Lookup("Ship::Turn")
	require.True(t, ok)
	assert.Equal(t, "Turn", s.ShortName)
	assert.Equal(t, "Ship", s.ParentName)

	s, ok = c.Lookup("Foo")
	require.True(t, ok)
	assert.Equal(t, "Foo", s.ShortName)
	assert.Empty(t, s.ParentName)
}

func TestNewLastDuplicateWins(t *testing.T) {
	t.Parallel()

	c := New([]model.ApiSymbol{
		model.NewSymbol("Ship::Turn", model.Method),
		model.NewSymbol("Ship::Turn", model.Function),
	})
	require.Equal(t, 1, c.Len())
	s, _ := c.Lookup("Ship::Turn")
	assert.Equal(t, model.Function, s.Kind)
}

func TestNewSkipsEmptyNames(t *testing.T) {
	t.Parallel()

	c := New([]model.ApiSymbol{
		{QualifiedName: ""},
		{QualifiedName: "Ship::"},
		model.NewSymbol("Boat", model.Class),
	})
	assert.Equal(t, 1, c.Len())
}

func TestShortNamesOrder(t *testing.T) {
	t.Parallel()

	c := New([]model.ApiSymbol{
		model.NewSymbol("Get", model.Function),
		model.NewSymbol("A::GetValue", model.Method),
		model.NewSymbol("B::GetValue", model.Method),
		model.NewSymbol("Set", model.Function),
	})

	assert.Equal(t, []string{"GetValue", "Get", "Set"}, c.ShortNames())
	assert.Equal(t, []string{"A::GetValue", "B::GetValue"}, c.ByShortName("GetValue"))
	assert.Nil(t, c.ByShortName("Missing"))
}

func TestNilCatalog(t *testing.T) {
	t.Parallel()

	var c *Catalog
	assert.Zero(t, c.Len())
	assert.Nil(t, c.ShortNames())
	_, ok := c.Lookup("x")
	assert.False(t, ok)
}

func TestSymbolsSorted(t *testing.T) {
	t.Parallel()

	c := New([]model.ApiSymbol{
		model.NewSymbol("b", model.Function),
		model.NewSymbol("a", model.Function),
	})
	syms := c.Symbols()
	require.Len(t, syms, 2)
	assert.Equal(t, "a", syms[0].QualifiedName)
	assert.Equal(t, "b", syms[1].QualifiedName)
}

package bus

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RootIsLazyAndStable(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())
	assert.Equal(t, 0, registry.Len())

	root := registry.Root()

	assert.Equal(t, RootKey, root.Key())
	assert.Nil(t, root.Parent())
	assert.Same(t, root, registry.Root())
	assert.Equal(t, 1, registry.Len())
}

func TestRegistry_BusReturnsSameInstance(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())

	first, err := registry.Bus("Timer:Bus")
	require.NoError(t, err)
	second, err := registry.Bus("Timer:Bus")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Same(t, registry.Root(), first.Parent())

	root, err := registry.Bus(RootKey)
	require.NoError(t, err)
	assert.Same(t, registry.Root(), root)
}

func TestRegistry_MissingKey(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())

	_, err := registry.Bus("")
	assert.ErrorIs(t, err, ErrMissingKey)

	_, err = registry.Create("", nil)
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestRegistry_CreateRejectsDuplicates(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())

	_, err := registry.Create("module", nil)
	require.NoError(t, err)

	_, err = registry.Create("module", nil)
	assert.ErrorIs(t, err, ErrDuplicateKey)

	_, err = registry.Create(RootKey, nil)
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestRegistry_CreateUnderDestroyedParent(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())
	parent, err := registry.Create("parent", nil)
	require.NoError(t, err)

	parent.Destroy()

	_, err = registry.Create("child", parent)
	assert.ErrorIs(t, err, ErrParentNotLive)
	_, ok := registry.Lookup("child")
	assert.False(t, ok)
}

func TestRegistry_CreateRejectsForeignParent(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())
	other := NewRegistry(zerolog.Nop())

	_, err := registry.Create("child", other.Root())
	assert.Error(t, err)
}

func TestRegistry_LookupAndKeys(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())
	parent, err := registry.Create("parent", nil)
	require.NoError(t, err)
	child, err := registry.Create("child", parent)
	require.NoError(t, err)

	found, ok := registry.Lookup("child")
	require.True(t, ok)
	assert.Same(t, child, found)
	assert.Same(t, parent, child.Parent())
	assert.Equal(t, []string{"child", "parent", "root"}, registry.Keys())

	parent.Destroy()

	_, ok = registry.Lookup("child")
	assert.False(t, ok)
	assert.Equal(t, []string{"root"}, registry.Keys())
}

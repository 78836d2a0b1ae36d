package bus

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTree creates root{a{b{d{e}}, c}, f}.
func buildTree(t *testing.T) (*Registry, map[string]*Bus) {
	t.Helper()

	registry := NewRegistry(zerolog.Nop())
	nodes := map[string]*Bus{"root": registry.Root()}

	create := func(key, parent string) {
		b, err := registry.Create(key, nodes[parent])
		require.NoError(t, err)
		nodes[key] = b
	}
	create("a", "root")
	create("b", "a")
	create("c", "a")
	create("d", "b")
	create("e", "d")
	create("f", "root")

	return registry, nodes
}

func TestBus_EmitReachesEveryListenerExactlyOnce(t *testing.T) {
	for _, origin := range []string{"root", "a", "b", "c", "d", "e", "f"} {
		t.Run("from "+origin, func(t *testing.T) {
			_, nodes := buildTree(t)

			calls := map[string]int{}
			for key, node := range nodes {
				key := key
				node.On("ping", "counter", func(args ...any) {
					calls[key]++
				})
			}

			nodes[origin].Emit("ping")

			require.Len(t, calls, len(nodes))
			for key, count := range calls {
				assert.Equal(t, 1, count, "bus %s", key)
			}
		})
	}
}

func TestBus_EmitSkipsBusesWithoutListeners(t *testing.T) {
	_, nodes := buildTree(t)

	var got []string
	nodes["e"].On("ping", "e", func(args ...any) { got = append(got, "e") })
	nodes["f"].On("ping", "f", func(args ...any) { got = append(got, "f") })
	nodes["c"].On("other", "c", func(args ...any) { got = append(got, "c") })

	nodes["c"].Emit("ping")

	assert.ElementsMatch(t, []string{"e", "f"}, got)
}

func TestBus_EmitOrderIsDepthFirstFromOrigin(t *testing.T) {
	_, nodes := buildTree(t)

	var order []string
	for _, key := range []string{"root", "a", "b", "c", "d", "e", "f"} {
		key := key
		nodes[key].On("ping", "order", func(args ...any) { order = append(order, key) })
	}

	nodes["b"].Emit("ping")

	// self, own subtree, then upward: parent a, a's other children, then root and its other children.
	assert.Equal(t, []string{"b", "d", "e", "a", "c", "root", "f"}, order)
}

func TestBus_EmitPassesArguments(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())
	sender, err := registry.Bus("sender")
	require.NoError(t, err)
	receiver, err := registry.Bus("receiver")
	require.NoError(t, err)

	var got []any
	receiver.On("data", "recv", func(args ...any) { got = args })

	sender.Emit("data", 1, "two")

	assert.Equal(t, []any{1, "two"}, got)
}

func TestBus_OnReplacesListenerWithSameName(t *testing.T) {
	var logs bytes.Buffer
	registry := NewRegistry(zerolog.New(&logs).Level(zerolog.WarnLevel))
	b, err := registry.Bus("module")
	require.NoError(t, err)

	first, second := 0, 0
	b.On("ping", "handler", func(args ...any) { first++ })
	b.On("ping", "handler", func(args ...any) { second++ })

	b.Emit("ping")

	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
	assert.Equal(t, 1, b.ListenerCount("ping"))
	assert.Contains(t, logs.String(), "replacing")
}

func TestBus_OffRemovesListener(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())
	b, err := registry.Bus("module")
	require.NoError(t, err)

	calls := 0
	b.On("ping", "handler", func(args ...any) { calls++ })
	require.NoError(t, b.Off("ping", "handler"))

	b.Emit("ping")

	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, b.ListenerCount("ping"))
}

func TestBus_OffUnknownListenerFails(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())
	b, err := registry.Bus("module")
	require.NoError(t, err)

	b.On("ping", "handler", func(args ...any) {})

	err = b.Off("ping", "missing")
	assert.ErrorIs(t, err, ErrListenerNotFound)

	err = b.Off("pong", "handler")
	assert.ErrorIs(t, err, ErrListenerNotFound)

	require.NoError(t, b.Off("ping", "handler"))
	assert.ErrorIs(t, b.Off("ping", "handler"), ErrListenerNotFound)
}

func TestBus_SubscriptionCancel(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())
	b, err := registry.Bus("module")
	require.NoError(t, err)

	sub := b.On("ping", "handler", func(args ...any) {})
	require.NoError(t, sub.Cancel())
	assert.ErrorIs(t, sub.Cancel(), ErrListenerNotFound)
	assert.ErrorIs(t, Subscription{}.Cancel(), ErrListenerNotFound)
}

func TestBus_OffAll(t *testing.T) {
	var logs bytes.Buffer
	registry := NewRegistry(zerolog.New(&logs).Level(zerolog.WarnLevel))
	b, err := registry.Bus("module")
	require.NoError(t, err)

	calls := 0
	b.On("ping", "one", func(args ...any) { calls++ })
	b.On("ping", "two", func(args ...any) { calls++ })

	b.OffAll("ping")
	b.Emit("ping")
	assert.Equal(t, 0, calls)
	assert.Empty(t, logs.String())

	b.OffAll("ping")
	assert.Contains(t, logs.String(), "no listeners to remove")
}

func TestBus_GetGathersAcrossTreeInTraversalOrder(t *testing.T) {
	_, nodes := buildTree(t)

	nodes["e"].Provide("value", func(args ...any) any { return "e" })
	nodes["c"].Provide("value", func(args ...any) any { return "c" })
	nodes["f"].Provide("value", func(args ...any) any { return "f" })

	answers := nodes["b"].Get("value")

	assert.Equal(t, []any{"e", "c", "f"}, answers)
}

func TestBus_GetPassesArgumentsAndKeepsDuplicates(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())
	b, err := registry.Bus("config")
	require.NoError(t, err)

	b.Provide("double", func(args ...any) any { return args[0].(int) * 2 })
	b.Provide("double", func(args ...any) any { return args[0].(int) * 2 })

	assert.Equal(t, []any{42, 42}, registry.Root().Get("double", 21))
}

func TestBus_GetWithoutGettersIsEmpty(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())

	answers := registry.Root().Get("nothing")

	assert.NotNil(t, answers)
	assert.Empty(t, answers)
}

func TestBus_Unprovide(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())
	b, err := registry.Bus("config")
	require.NoError(t, err)

	b.Provide("key", func(args ...any) any { return 1 })
	b.Unprovide("key")

	assert.Empty(t, b.Get("key"))
}

func TestBus_PanickingListenerDoesNotStopDispatch(t *testing.T) {
	var logs bytes.Buffer
	registry := NewRegistry(zerolog.New(&logs).Level(zerolog.WarnLevel))
	b, err := registry.Bus("module")
	require.NoError(t, err)

	calls := 0
	b.On("ping", "bad", func(args ...any) { panic("boom") })
	b.On("ping", "good", func(args ...any) { calls++ })
	b.Provide("key", func(args ...any) any { panic("boom") })
	b.Provide("key", func(args ...any) any { return "ok" })

	assert.NotPanics(t, func() { b.Emit("ping") })
	assert.Equal(t, 1, calls)
	assert.Equal(t, []any{"ok"}, b.Get("key"))
	assert.Contains(t, logs.String(), "listener panicked")
	assert.Contains(t, logs.String(), "getter panicked")
}

func TestBus_ListenerMayReenterBus(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())
	b, err := registry.Bus("module")
	require.NoError(t, err)

	var got []string
	b.On("first", "chain", func(args ...any) {
		got = append(got, "first")
		b.Emit("second")
	})
	b.On("second", "chain", func(args ...any) {
		got = append(got, "second")
		b.On("third", "late", func(args ...any) {})
	})

	b.Emit("first")

	assert.Equal(t, []string{"first", "second"}, got)
	assert.Equal(t, 1, b.ListenerCount("third"))
}

func TestBus_DestroyIsIdempotent(t *testing.T) {
	registry, nodes := buildTree(t)

	calls := map[string]int{}
	for _, key := range []string{"b", "d", "e", "c"} {
		key := key
		nodes[key].On("ping", "counter", func(args ...any) { calls[key]++ })
	}

	nodes["b"].Destroy()
	nodes["b"].Destroy()

	nodes["a"].Emit("ping")

	assert.Equal(t, map[string]int{"c": 1}, calls)
	assert.False(t, nodes["b"].Live())
	assert.False(t, nodes["d"].Live())
	assert.False(t, nodes["e"].Live())
	assert.Equal(t, []*Bus{nodes["c"]}, nodes["a"].Children())
	assert.Equal(t, []string{"a", "c", "f", "root"}, registry.Keys())
}

func TestBus_DestroyClearsListenersAndGetters(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())
	b, err := registry.Bus("module")
	require.NoError(t, err)

	calls := 0
	b.On("ping", "handler", func(args ...any) { calls++ })
	b.Provide("key", func(args ...any) any { return 1 })

	b.Destroy()

	registry.Root().Emit("ping")
	b.Emit("ping")
	assert.Equal(t, 0, calls)
	assert.Empty(t, registry.Root().Get("key"))
	assert.Equal(t, 0, b.ListenerCount("ping"))
}

func TestBus_DestroyedKeyCanBeRecreated(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())
	old, err := registry.Bus("module")
	require.NoError(t, err)

	old.Destroy()

	fresh, err := registry.Bus("module")
	require.NoError(t, err)
	assert.NotSame(t, old, fresh)
	assert.True(t, fresh.Live())
	assert.False(t, old.Live())
}

func TestBus_RootCannotBeDestroyed(t *testing.T) {
	var logs bytes.Buffer
	registry := NewRegistry(zerolog.New(&logs).Level(zerolog.WarnLevel))
	root := registry.Root()

	root.Destroy()

	assert.True(t, root.Live())
	assert.Same(t, root, registry.Root())
	assert.Contains(t, logs.String(), "root bus cannot be destroyed")
}

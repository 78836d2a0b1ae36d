package bus

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog"
)

// Listener handles an emitted event.
type Listener func(args ...any)

// Getter answers a request issued through Get.
type Getter func(args ...any) any

// Subscription identifies a registered listener.
type Subscription struct {
	bus   *Bus
	Event string
	Name  string
}

// Cancel removes the listener this subscription refers to.
func (sub Subscription) Cancel() error {
	if sub.bus == nil {
		return fmt.Errorf("cancel %s/%s: %w", sub.Event, sub.Name, ErrListenerNotFound)
	}
	return sub.bus.Off(sub.Event, sub.Name)
}

type listenerEntry struct {
	name string
	fn   Listener
}

// Bus is a node in the routing tree.
type Bus struct {
	key      string
	parent   *Bus
	registry *Registry
	logger   zerolog.Logger

	mu        sync.RWMutex
	live      bool
	children  []*Bus
	listeners map[string][]listenerEntry
	getters   map[string][]Getter
}

func newBus(key string, parent *Bus, registry *Registry, logger zerolog.Logger) *Bus {
	return &Bus{
		key:       key,
		parent:    parent,
		registry:  registry,
		logger:    logger.With().Str("bus", key).Logger(),
		live:      true,
		listeners: make(map[string][]listenerEntry),
		getters:   make(map[string][]Getter),
	}
}

// Key returns the bus key.
func (b *Bus) Key() string {
	return b.key
}

// Parent returns the parent bus, or nil for the root.
func (b *Bus) Parent() *Bus {
	return b.parent
}

// Live reports whether the bus is still registered.
func (b *Bus) Live() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.live
}

// Children returns the live children in registration order.
func (b *Bus) Children() []*Bus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]*Bus(nil), b.children...)
}

// ListenerCount returns the number of local listeners for event.
func (b *Bus) ListenerCount(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[event])
}

// On registers fn under name for event. A listener already registered
// under the same name is detached and replaced.
func (b *Bus) On(event, name string, fn Listener) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.listeners[event]
	for i, entry := range entries {
		if entry.name == name {
			b.logger.Warn().
				Str("event", event).
				Str("listener", name).
				Msg("listener already registered, replacing")
			entries = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	b.listeners[event] = append(entries, listenerEntry{name: name, fn: fn})

	return Subscription{bus: b, Event: event, Name: name}
}

// Off removes the listener registered under name for event.
func (b *Bus) Off(event, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.listeners[event]
	for i, entry := range entries {
		if entry.name != name {
			continue
		}
		remaining := append(entries[:i:i], entries[i+1:]...)
		if len(remaining) == 0 {
			delete(b.listeners, event)
		} else {
			b.listeners[event] = remaining
		}
		return nil
	}
	return fmt.Errorf("off %s/%s on %s: %w", event, name, b.key, ErrListenerNotFound)
}

// OffAll removes every listener for event.
func (b *Bus) OffAll(event string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.listeners[event]) == 0 {
		b.logger.Warn().Str("event", event).Msg("no listeners to remove")
		return
	}
	delete(b.listeners, event)
}

// Provide registers a getter for key. Several getters may share a key.
func (b *Bus) Provide(key string, fn Getter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.getters[key] = append(b.getters[key], fn)
}

// Unprovide drops every local getter for key.
func (b *Bus) Unprovide(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.getters, key)
}

// Emit dispatches event to every reachable bus with a listener for it.
func (b *Bus) Emit(event string, args ...any) {
	targets := b.collect(nil, func(node *Bus) bool {
		return len(node.listeners[event]) > 0
	}, nil)

	for _, target := range targets {
		target.dispatch(event, args)
	}
}

// Get queries every reachable getter for key and returns their answers in
// traversal order.
func (b *Bus) Get(key string, args ...any) []any {
	targets := b.collect(nil, func(node *Bus) bool {
		return len(node.getters[key]) > 0
	}, nil)

	answers := make([]any, 0, len(targets))
	for _, target := range targets {
		answers = target.answer(key, args, answers)
	}
	return answers
}

// Destroy clears the bus, destroys its children and removes it from its
// parent and the registry. It is a no-op on a bus that is no longer live.
// The root bus cannot be destroyed.
func (b *Bus) Destroy() {
	if b.parent == nil {
		b.logger.Warn().Msg("root bus cannot be destroyed")
		return
	}

	b.mu.Lock()
	if !b.live {
		b.mu.Unlock()
		return
	}
	b.live = false
	children := b.children
	b.children = nil
	b.listeners = make(map[string][]listenerEntry)
	b.getters = make(map[string][]Getter)
	b.mu.Unlock()

	for _, child := range children {
		child.Destroy()
	}

	b.parent.removeChild(b)
	if b.registry != nil {
		b.registry.forget(b)
	}
	b.logger.Debug().Msg("bus destroyed")
}

// collect walks the tree from b, skipping the node it was entered from,
// and appends every live node accepted by match.
func (b *Bus) collect(from *Bus, match func(*Bus) bool, out []*Bus) []*Bus {
	b.mu.RLock()
	if !b.live {
		b.mu.RUnlock()
		return out
	}
	hit := match(b)
	children := append([]*Bus(nil), b.children...)
	b.mu.RUnlock()

	if hit {
		out = append(out, b)
	}
	for _, child := range children {
		if child == from {
			continue
		}
		out = child.collect(b, match, out)
	}
	if b.parent != nil && b.parent != from {
		out = b.parent.collect(b, match, out)
	}
	return out
}

func (b *Bus) dispatch(event string, args []any) {
	b.mu.RLock()
	entries := append([]listenerEntry(nil), b.listeners[event]...)
	b.mu.RUnlock()

	for _, entry := range entries {
		b.safeCall(event, entry, args)
	}
}

func (b *Bus) answer(key string, args []any, answers []any) []any {
	b.mu.RLock()
	getters := append([]Getter(nil), b.getters[key]...)
	b.mu.RUnlock()

	for _, getter := range getters {
		if value, ok := b.safeGet(key, getter, args); ok {
			answers = append(answers, value)
		}
	}
	return answers
}

// safeCall invokes a listener and recovers from any panic so the remaining
// listeners still receive the event.
func (b *Bus) safeCall(event string, entry listenerEntry, args []any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Str("event", event).
				Str("listener", entry.name).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("listener panicked")
		}
	}()
	entry.fn(args...)
}

func (b *Bus) safeGet(key string, getter Getter, args []any) (value any, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Str("request", key).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("getter panicked")
			ok = false
		}
	}()
	return getter(args...), true
}

func (b *Bus) addChild(child *Bus) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.live {
		return fmt.Errorf("attach %s to %s: %w", child.key, b.key, ErrParentNotLive)
	}
	b.children = append(b.children, child)
	return nil
}

func (b *Bus) removeChild(child *Bus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, candidate := range b.children {
		if candidate == child {
			b.children = append(b.children[:i:i], b.children[i+1:]...)
			return
		}
	}
}

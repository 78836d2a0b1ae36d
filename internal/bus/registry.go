package bus

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// RootKey is the key reserved for the root bus.
const RootKey = "root"

// Registry owns the bus tree and resolves buses by key.
// It is safe for concurrent use.
type Registry struct {
	logger zerolog.Logger

	mu    sync.Mutex
	root  *Bus
	buses map[string]*Bus
}

// NewRegistry creates an empty registry. The root bus is created on first use.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		logger: logger.With().Str("component", "bus").Logger(),
		buses:  make(map[string]*Bus),
	}
}

// Logger returns the registry logger.
func (r *Registry) Logger() zerolog.Logger {
	return r.logger
}

// Root returns the root bus.
func (r *Registry) Root() *Bus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rootLocked()
}

// Bus returns the live bus registered under key, creating it as a child of
// the root when it does not exist yet.
func (r *Registry) Bus(key string) (*Bus, error) {
	if key == "" {
		return nil, ErrMissingKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if key == RootKey {
		return r.rootLocked(), nil
	}
	if existing, ok := r.buses[key]; ok {
		return existing, nil
	}
	return r.createLocked(key, r.rootLocked())
}

// Create registers a new bus under parent. A nil parent means the root.
func (r *Registry) Create(key string, parent *Bus) (*Bus, error) {
	if key == "" {
		return nil, ErrMissingKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	root := r.rootLocked()
	if _, ok := r.buses[key]; ok {
		return nil, fmt.Errorf("create %s: %w", key, ErrDuplicateKey)
	}
	if parent == nil {
		parent = root
	}
	return r.createLocked(key, parent)
}

// Lookup returns the live bus registered under key.
func (r *Registry) Lookup(key string) (*Bus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buses[key]
	return b, ok
}

// Keys returns the keys of every live bus, sorted.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.buses))
	for key := range r.buses {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of live buses, root included once created.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buses)
}

func (r *Registry) rootLocked() *Bus {
	if r.root == nil {
		r.root = newBus(RootKey, nil, r, r.logger)
		r.buses[RootKey] = r.root
	}
	return r.root
}

func (r *Registry) createLocked(key string, parent *Bus) (*Bus, error) {
	if parent.registry != r {
		return nil, fmt.Errorf("create %s: parent %s belongs to another registry", key, parent.key)
	}
	b := newBus(key, parent, r, r.logger)
	if err := parent.addChild(b); err != nil {
		return nil, fmt.Errorf("create %s: %w", key, err)
	}
	r.buses[key] = b
	r.logger.Debug().Str("bus", key).Str("parent", parent.key).Msg("bus created")
	return b, nil
}

func (r *Registry) forget(b *Bus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.buses[b.key] == b {
		delete(r.buses, b.key)
	}
}

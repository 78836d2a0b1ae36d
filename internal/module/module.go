// Package module binds singleton components to their own child bus.
//
// Every module owns exactly one bus, keyed "{Name}:Bus", created before the
// module constructor runs so the constructor can subscribe to it.
package module

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"cadence/internal/bus"
)

// ErrUnbound is returned when a module's bus is used before the module exists.
var ErrUnbound = errors.New("module bus not bound")

// BusKey returns the bus key for a module name.
func BusKey(name string) string {
	return name + ":Bus"
}

// Base is handed to a module constructor and embedded by modules that want
// direct access to their bus.
type Base struct {
	name   string
	bus    *bus.Bus
	logger zerolog.Logger
}

// NewBase binds name to its bus in registry. Factories call this; tests may
// use it to build a module without a factory.
func NewBase(registry *bus.Registry, name string) (*Base, error) {
	b, err := registry.Bus(BusKey(name))
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", name, err)
	}
	return &Base{
		name:   name,
		bus:    b,
		logger: registry.Logger().With().Str("module", name).Logger(),
	}, nil
}

// Name returns the module name.
func (base *Base) Name() string {
	return base.name
}

// Bus returns the module bus.
func (base *Base) Bus() *bus.Bus {
	return base.bus
}

// Logger returns a logger tagged with the module name.
func (base *Base) Logger() zerolog.Logger {
	return base.logger
}

// On subscribes fn on the module bus.
func (base *Base) On(event, name string, fn bus.Listener) bus.Subscription {
	return base.bus.On(event, name, fn)
}

// Off unsubscribes a listener from the module bus.
func (base *Base) Off(event, name string) error {
	return base.bus.Off(event, name)
}

// Emit emits event from the module bus.
func (base *Base) Emit(event string, args ...any) {
	base.bus.Emit(event, args...)
}

// Provide registers a getter on the module bus.
func (base *Base) Provide(key string, fn bus.Getter) {
	base.bus.Provide(key, fn)
}

// Get queries every getter for key reachable from the module bus.
func (base *Base) Get(key string, args ...any) []any {
	return base.bus.Get(key, args...)
}

// Constructor builds a module once its bus is bound.
type Constructor[T any] func(base *Base) (T, error)

// Factory lazily creates a single module instance and its bus.
type Factory[T any] struct {
	registry *bus.Registry
	name     string
	ctor     Constructor[T]

	mu       sync.Mutex
	base     *Base
	instance T
}

// NewFactory returns a factory for the module called name.
func NewFactory[T any](registry *bus.Registry, name string, ctor Constructor[T]) *Factory[T] {
	return &Factory[T]{
		registry: registry,
		name:     name,
		ctor:     ctor,
	}
}

// Name returns the module name.
func (f *Factory[T]) Name() string {
	return f.name
}

// Instance returns the module, constructing it and binding its bus on the
// first call. The constructor must not call back into the factory.
func (f *Factory[T]) Instance() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.base != nil {
		return f.instance, nil
	}

	var zero T
	base, err := NewBase(f.registry, f.name)
	if err != nil {
		return zero, err
	}

	instance, err := f.ctor(base)
	if err != nil {
		base.bus.Destroy()
		return zero, fmt.Errorf("construct %s: %w", f.name, err)
	}

	f.base = base
	f.instance = instance
	base.logger.Debug().Str("bus", base.bus.Key()).Msg("module bound")
	return instance, nil
}

// Bound reports whether Instance has succeeded.
func (f *Factory[T]) Bound() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.base != nil
}

// Bus returns the bound bus, or ErrUnbound before the first Instance call.
func (f *Factory[T]) Bus() (*bus.Bus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.base == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnbound, f.name)
	}
	return f.base.bus, nil
}

// Emit emits event on the module bus.
func (f *Factory[T]) Emit(event string, args ...any) error {
	b, err := f.Bus()
	if err != nil {
		return err
	}
	b.Emit(event, args...)
	return nil
}

// Get queries getters through the module bus.
func (f *Factory[T]) Get(key string, args ...any) ([]any, error) {
	b, err := f.Bus()
	if err != nil {
		return nil, err
	}
	return b.Get(key, args...), nil
}

// Close destroys the module bus and forgets the instance. A later Instance
// call builds a fresh module on a fresh bus.
func (f *Factory[T]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.base == nil {
		return
	}
	f.base.bus.Destroy()
	var zero T
	f.base = nil
	f.instance = zero
}

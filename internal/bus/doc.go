// Package bus provides a hierarchical, synchronous publish/subscribe bus.
//
// Buses form a tree rooted at a single "root" bus owned by a [Registry].
// An event emitted on any bus reaches every bus in the tree that has a
// listener for it, each exactly once, in depth-first order starting from
// the emitting bus. The same traversal backs [Bus.Get], which gathers the
// return values of every getter registered under a request key.
//
// # Basic Usage
//
//	registry := bus.NewRegistry(logger)
//	timerBus, _ := registry.Bus("Timer:Bus")
//	statsBus, _ := registry.Bus("Stats:Bus")
//
//	statsBus.On("PHASE_END", "stats", func(args ...any) { ... })
//	timerBus.Emit("PHASE_END", payload)
//
//	statsBus.Provide("stats:summary", func(args ...any) any { return summary })
//	answers := timerBus.Get("stats:summary")
//
// Dispatch is synchronous and happens outside of any bus lock, so listeners
// may call back into the bus. A listener that emits the event it is handling
// recurses without bound; that is the caller's responsibility.
package bus

package bus

import "errors"

var (
	// ErrMissingKey is returned when a bus is created without a key.
	ErrMissingKey = errors.New("bus key is required")

	// ErrDuplicateKey is returned when a live bus already uses the key.
	ErrDuplicateKey = errors.New("bus key already registered")

	// ErrParentNotLive is returned when the requested parent has been destroyed.
	ErrParentNotLive = errors.New("parent bus is not live")

	// ErrListenerNotFound is returned by Off for a listener that is not registered.
	ErrListenerNotFound = errors.New("listener not registered")
)

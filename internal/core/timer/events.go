package timer

import (
	"time"

	"cadence/internal/core/phase"
)

// Lifecycle events emitted on the timer bus.
const (
	EventPhaseSet   = "PHASE_SET"
	EventPhaseStart = "PHASE_START"
	EventTick       = "TICK"
	EventPhaseEnd   = "PHASE_END"
)

// LifecycleEvents lists every event the timer emits.
var LifecycleEvents = []string{EventPhaseSet, EventPhaseStart, EventTick, EventPhaseEnd}

// EndReason explains why a phase ended.
type EndReason string

const (
	EndCompleted EndReason = "completed"
	EndSkipped   EndReason = "skipped"
	EndStopped   EndReason = "stopped"
	EndReloaded  EndReason = "reloaded"
)

// Payload is the single argument of every lifecycle event.
type Payload struct {
	Phase  phase.Snapshot
	Index  int
	Reason EndReason // set on PHASE_END only
	At     time.Time
}

// PayloadFrom extracts the payload from listener arguments.
func PayloadFrom(args []any) (Payload, bool) {
	if len(args) == 0 {
		return Payload{}, false
	}
	payload, ok := args[0].(Payload)
	return payload, ok
}

type emission struct {
	event   string
	payload Payload
}

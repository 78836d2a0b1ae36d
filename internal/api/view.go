package api

import (
	"time"

	"cadence/internal/core/phase"
	"cadence/internal/core/timer"
)

// PhaseView is the JSON form of a phase snapshot. Durations are milliseconds.
type PhaseView struct {
	Type        phase.Type `json:"type"`
	AllocatedMs int64      `json:"allocated_ms"`
	RemainingMs int64      `json:"remaining_ms"`
	ElapsedMs   int64      `json:"elapsed_ms"`
	CanOverrun  bool       `json:"can_overrun"`
	IsActive    bool       `json:"is_active"`
	StartTime   *time.Time `json:"start_time,omitempty"`
}

// StatusView is the answer to GET /phase.
type StatusView struct {
	Index   int       `json:"index"`
	Running bool      `json:"running"`
	TickMs  int64     `json:"tick_ms"`
	Phase   PhaseView `json:"phase"`
}

// EventView is pushed to /events subscribers for every lifecycle event.
type EventView struct {
	Event  string    `json:"event"`
	Index  int       `json:"index"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
	Phase  PhaseView `json:"phase"`
}

func newPhaseView(snapshot phase.Snapshot) PhaseView {
	view := PhaseView{
		Type:        snapshot.Type,
		AllocatedMs: snapshot.AllocatedTime.Milliseconds(),
		RemainingMs: snapshot.RemainingTime.Milliseconds(),
		ElapsedMs:   snapshot.ElapsedTime.Milliseconds(),
		CanOverrun:  snapshot.CanOverrun,
		IsActive:    snapshot.IsActive,
	}
	if !snapshot.StartTime.IsZero() {
		start := snapshot.StartTime
		view.StartTime = &start
	}
	return view
}

func newEventView(event string, payload timer.Payload) EventView {
	return EventView{
		Event:  event,
		Index:  payload.Index,
		Reason: string(payload.Reason),
		At:     payload.At,
		Phase:  newPhaseView(payload.Phase),
	}
}

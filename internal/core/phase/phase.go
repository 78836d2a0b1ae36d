package phase

import (
	"fmt"
	"time"
)

// Type names a phase of the cycle.
type Type string

const (
	TypePlanning Type = "planning"
	TypeFocus    Type = "focus"
	TypeBreak    Type = "break"
)

// Types lists every known phase type.
var Types = []Type{TypePlanning, TypeFocus, TypeBreak}

// Valid reports whether t is a known phase type.
func (t Type) Valid() bool {
	switch t {
	case TypePlanning, TypeFocus, TypeBreak:
		return true
	}
	return false
}

// ParseType converts a string to a Type.
func ParseType(value string) (Type, error) {
	t := Type(value)
	if !t.Valid() {
		return "", fmt.Errorf("unknown phase type %q", value)
	}
	return t, nil
}

// Label returns the display name of t.
func (t Type) Label() string {
	switch t {
	case TypePlanning:
		return "Planning"
	case TypeFocus:
		return "Focus"
	case TypeBreak:
		return "Break"
	}
	return string(t)
}

// Phase is a timebox within the cycle. The timer owns phases and mutates
// them in place; elapsed and remaining time are derived from the wall-clock
// time the caller samples.
type Phase struct {
	Type          Type
	AllocatedTime time.Duration
	CanOverrun    bool

	StartTime time.Time
	IsActive  bool
}

// New returns an inactive phase. Negative allocations are clamped to zero.
func New(t Type, allocated time.Duration, canOverrun bool) *Phase {
	if allocated < 0 {
		allocated = 0
	}
	return &Phase{
		Type:          t,
		AllocatedTime: allocated,
		CanOverrun:    canOverrun,
	}
}

// SetStartTime records when the phase started.
func (p *Phase) SetStartTime(start time.Time) {
	p.StartTime = start
}

// SetActive marks the phase active or inactive.
func (p *Phase) SetActive(active bool) {
	p.IsActive = active
}

// Elapsed returns the time spent in the phase, zero when inactive.
func (p *Phase) Elapsed(now time.Time) time.Duration {
	if !p.IsActive || p.StartTime.IsZero() {
		return 0
	}
	elapsed := now.Sub(p.StartTime)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Remaining returns the time left, zero when inactive. Only an active phase
// that can overrun reports a negative value.
func (p *Phase) Remaining(now time.Time) time.Duration {
	if !p.IsActive {
		return 0
	}
	remaining := p.AllocatedTime - p.Elapsed(now)
	if remaining < 0 && !p.CanOverrun {
		return 0
	}
	return remaining
}

// Snapshot captures the phase as seen at now.
func (p *Phase) Snapshot(now time.Time) Snapshot {
	return Snapshot{
		Type:          p.Type,
		AllocatedTime: p.AllocatedTime,
		RemainingTime: p.Remaining(now),
		ElapsedTime:   p.Elapsed(now),
		CanOverrun:    p.CanOverrun,
		StartTime:     p.StartTime,
		IsActive:      p.IsActive,
	}
}

// Snapshot is a read-only view of a phase handed to listeners.
type Snapshot struct {
	Type          Type
	AllocatedTime time.Duration
	RemainingTime time.Duration
	ElapsedTime   time.Duration
	CanOverrun    bool
	StartTime     time.Time
	IsActive      bool
}

// Overrun reports whether the phase is past its allocation.
func (s Snapshot) Overrun() bool {
	return s.IsActive && s.RemainingTime < 0
}

// Progress returns the fraction of the allocation used, between 0 and 1.
func (s Snapshot) Progress() float64 {
	if s.AllocatedTime <= 0 {
		return 1
	}
	progress := float64(s.ElapsedTime) / float64(s.AllocatedTime)
	if progress < 0 {
		return 0
	}
	if progress > 1 {
		return 1
	}
	return progress
}

// FormatClock renders d as mm:ss, rounding up to whole seconds. Negative
// durations get a leading '+' so an overrun reads as time past the limit.
func FormatClock(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "+"
		d = -d
	}
	seconds := int64((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%s%02d:%02d", sign, seconds/60, seconds%60)
}

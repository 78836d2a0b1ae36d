package phase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

func TestParseType(t *testing.T) {
	for _, typ := range Types {
		parsed, err := ParseType(string(typ))
		require.NoError(t, err)
		assert.Equal(t, typ, parsed)
	}

	_, err := ParseType("nap")
	assert.Error(t, err)
}

func TestNew_ClampsNegativeAllocation(t *testing.T) {
	p := New(TypeFocus, -time.Second, false)

	assert.Equal(t, time.Duration(0), p.AllocatedTime)
	assert.False(t, p.IsActive)
	assert.True(t, p.StartTime.IsZero())
}

func TestPhase_InactiveReportsZero(t *testing.T) {
	p := New(TypeFocus, time.Minute, false)
	p.SetStartTime(epoch)

	assert.Equal(t, time.Duration(0), p.Elapsed(epoch.Add(time.Second)))
	assert.Equal(t, time.Duration(0), p.Remaining(epoch.Add(time.Second)))
}

func TestPhase_ActiveTracksWallClock(t *testing.T) {
	p := New(TypeFocus, time.Minute, false)
	p.SetStartTime(epoch)
	p.SetActive(true)

	now := epoch.Add(20 * time.Second)

	assert.Equal(t, 20*time.Second, p.Elapsed(now))
	assert.Equal(t, 40*time.Second, p.Remaining(now))
}

func TestPhase_RemainingClampsWithoutOverrun(t *testing.T) {
	p := New(TypeFocus, 10*time.Millisecond, false)
	p.SetStartTime(epoch)
	p.SetActive(true)

	assert.Equal(t, time.Duration(0), p.Remaining(epoch.Add(30*time.Millisecond)))
}

func TestPhase_RemainingGoesNegativeWithOverrun(t *testing.T) {
	p := New(TypePlanning, 10*time.Millisecond, true)
	p.SetStartTime(epoch)
	p.SetActive(true)

	assert.Equal(t, -20*time.Millisecond, p.Remaining(epoch.Add(30*time.Millisecond)))
}

func TestPhase_ElapsedNeverNegative(t *testing.T) {
	p := New(TypeBreak, time.Minute, false)
	p.SetStartTime(epoch)
	p.SetActive(true)

	assert.Equal(t, time.Duration(0), p.Elapsed(epoch.Add(-time.Second)))
	assert.Equal(t, time.Minute, p.Remaining(epoch.Add(-time.Second)))
}

func TestSnapshot(t *testing.T) {
	p := New(TypePlanning, 10*time.Second, true)
	p.SetStartTime(epoch)
	p.SetActive(true)

	snap := p.Snapshot(epoch.Add(15 * time.Second))

	assert.Equal(t, Snapshot{
		Type:          TypePlanning,
		AllocatedTime: 10 * time.Second,
		RemainingTime: -5 * time.Second,
		ElapsedTime:   15 * time.Second,
		CanOverrun:    true,
		StartTime:     epoch,
		IsActive:      true,
	}, snap)
	assert.True(t, snap.Overrun())
	assert.Equal(t, 1.0, snap.Progress())
}

func TestSnapshot_Progress(t *testing.T) {
	p := New(TypeFocus, 10*time.Second, false)
	p.SetStartTime(epoch)
	p.SetActive(true)

	assert.InDelta(t, 0.25, p.Snapshot(epoch.Add(2500*time.Millisecond)).Progress(), 1e-9)
	assert.Equal(t, 1.0, Snapshot{}.Progress())
	assert.False(t, Snapshot{}.Overrun())
}

func TestFormatClock(t *testing.T) {
	tests := map[time.Duration]string{
		0:                         "00:00",
		25 * time.Minute:          "25:00",
		90*time.Second + 1:        "01:31",
		1500 * time.Millisecond:   "00:02",
		2 * time.Hour:             "120:00",
		-5 * time.Second:          "+00:05",
		-(61 * time.Second):       "+01:01",
		-(200 * time.Millisecond): "+00:01",
	}
	for input, want := range tests {
		assert.Equal(t, want, FormatClock(input), input.String())
	}
}

func TestType_Label(t *testing.T) {
	assert.Equal(t, "Planning", TypePlanning.Label())
	assert.Equal(t, "Focus", TypeFocus.Label())
	assert.Equal(t, "Break", TypeBreak.Label())
	assert.Equal(t, "nap", Type("nap").Label())
}

package preferences

import (
	"errors"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadence/internal/core/model"
	"cadence/internal/core/phase"
)

func newTestWindow(t *testing.T, onSave func(model.Settings) error) *Window {
	t.Helper()
	app := test.NewApp()
	t.Cleanup(app.Quit)
	return New(app, "Cadence", model.DefaultSettings(), onSave)
}

func TestWindowShowsSettings(t *testing.T) {
	prefs := newTestWindow(t, nil)

	require.Len(t, prefs.rows, 3)
	assert.Equal(t, "Planning", prefs.rows[0].kind.Selected)
	assert.Equal(t, "5", prefs.rows[0].minutes.Text)
	assert.True(t, prefs.rows[0].overrun.Checked)
	assert.Equal(t, "25", prefs.rows[1].minutes.Text)
	assert.Equal(t, "1s", prefs.tick.Text)

	settings, err := prefs.Settings()
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSettings(), settings)
}

func TestWindowSave(t *testing.T) {
	var saved []model.Settings
	prefs := newTestWindow(t, func(settings model.Settings) error {
		saved = append(saved, settings)
		return nil
	})

	prefs.rows[1].minutes.SetText("50")
	prefs.rows[2].overrun.SetChecked(true)
	prefs.tick.SetText("250ms")
	test.Tap(prefs.save)

	require.Len(t, saved, 1)
	assert.Equal(t, 250*time.Millisecond, saved[0].TickDuration)
	assert.Equal(t, 50*time.Minute, saved[0].Phases[1].Allocated)
	assert.True(t, saved[0].Phases[2].CanOverrun)
	assert.Empty(t, prefs.status.Text)
}

func TestWindowRejectsInvalidInput(t *testing.T) {
	calls := 0
	prefs := newTestWindow(t, func(model.Settings) error {
		calls++
		return nil
	})

	prefs.rows[0].minutes.SetText("soon")
	test.Tap(prefs.save)
	assert.Contains(t, prefs.status.Text, "phase 1")

	prefs.rows[0].minutes.SetText("5")
	prefs.tick.SetText("fast")
	test.Tap(prefs.save)
	assert.Contains(t, prefs.status.Text, "tick")

	assert.Zero(t, calls)
}

func TestWindowShowsSaveError(t *testing.T) {
	prefs := newTestWindow(t, func(model.Settings) error {
		return errors.New("disk full")
	})

	test.Tap(prefs.save)

	assert.Equal(t, "disk full", prefs.status.Text)
}

func TestWindowAddAndRemovePhases(t *testing.T) {
	prefs := newTestWindow(t, nil)

	test.Tap(prefs.addButton)
	require.Len(t, prefs.rows, 4)
	assert.Equal(t, phase.TypeFocus.Label(), prefs.rows[3].kind.Selected)

	for range 5 {
		test.Tap(prefs.delButton)
	}
	require.Len(t, prefs.rows, 1)
	assert.Len(t, prefs.rowsBox.Objects, 1)

	settings, err := prefs.Settings()
	require.NoError(t, err)
	assert.Equal(t, phase.TypePlanning, settings.Phases[0].Type)
}

func TestWindowCancelRestoresValues(t *testing.T) {
	prefs := newTestWindow(t, nil)

	prefs.rows[1].minutes.SetText("99")
	test.Tap(prefs.cancel)

	assert.Equal(t, "25", prefs.rows[1].minutes.Text)
}

// Package preferences provides the window for editing the phase cycle.
package preferences

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"cadence/internal/core/model"
	"cadence/internal/core/phase"
)

// newPhase is appended by "Add phase".
var newPhase = model.PhaseConfig{Type: phase.TypeFocus, Allocated: 25 * time.Minute}

// phaseRow holds the widgets editing one phase.
type phaseRow struct {
	kind    *widget.Select
	minutes *widget.Entry
	overrun *widget.Check
}

// Window handles the preferences UI.
type Window struct {
	window   fyne.Window
	settings model.Settings
	onSave   func(model.Settings) error

	rows      []*phaseRow
	rowsBox   *fyne.Container
	tick      *widget.Entry
	status    *widget.Label
	addButton *widget.Button
	delButton *widget.Button
	save      *widget.Button
	cancel    *widget.Button
}

// New creates a preferences window. onSave is called with validated
// settings; the window stays open and shows the error when it fails.
func New(app fyne.App, title string, settings model.Settings, onSave func(model.Settings) error) *Window {
	window := app.NewWindow(title + " Preferences")

	prefs := &Window{
		window:  window,
		onSave:  onSave,
		rowsBox: container.NewVBox(),
		tick:    widget.NewEntry(),
		status:  widget.NewLabel(""),
	}
	prefs.status.Wrapping = fyne.TextWrapWord

	prefs.addButton = widget.NewButton("Add phase", func() {
		prefs.appendRow(newPhase)
	})
	prefs.delButton = widget.NewButton("Remove last", prefs.removeLastRow)
	prefs.save = widget.NewButton("Save", prefs.handleSave)
	prefs.cancel = widget.NewButton("Cancel", func() {
		prefs.UpdateSettings(prefs.settings)
		window.Hide()
	})

	form := container.NewVBox(
		widget.NewLabelWithStyle("Phases", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewGridWithColumns(3,
			widget.NewLabel("Type"),
			widget.NewLabel("Minutes"),
			widget.NewLabel(""),
		),
		prefs.rowsBox,
		container.NewHBox(prefs.addButton, prefs.delButton),
		widget.NewSeparator(),
		container.NewHBox(widget.NewLabel("Tick every"), prefs.tick),
		prefs.status,
	)
	buttons := container.NewHBox(prefs.save, layout.NewSpacer(), prefs.cancel)

	window.SetContent(container.NewBorder(nil, buttons, nil, nil, form))
	window.Resize(fyne.NewSize(420, 360))

	prefs.UpdateSettings(settings)
	return prefs
}

// Show displays the preferences window.
func (prefs *Window) Show() {
	prefs.window.Show()
	prefs.window.RequestFocus()
}

// UpdateSettings replaces window values.
func (prefs *Window) UpdateSettings(settings model.Settings) {
	prefs.settings = settings
	prefs.rows = nil
	prefs.rowsBox.RemoveAll()
	for _, cfg := range settings.Phases {
		prefs.appendRow(cfg)
	}
	prefs.tick.SetText(settings.TickDuration.String())
	prefs.status.SetText("")
}

// Settings parses the current form values.
func (prefs *Window) Settings() (model.Settings, error) {
	tick, err := time.ParseDuration(strings.TrimSpace(prefs.tick.Text))
	if err != nil {
		return model.Settings{}, fmt.Errorf("tick: %q is not a duration", prefs.tick.Text)
	}

	settings := model.Settings{
		TickDuration: tick,
		Phases:       make([]model.PhaseConfig, 0, len(prefs.rows)),
	}
	for i, row := range prefs.rows {
		phaseType, ok := typeForLabel(row.kind.Selected)
		if !ok {
			return model.Settings{}, fmt.Errorf("phase %d: choose a type", i+1)
		}
		minutes, ok := parsePositiveInt(row.minutes.Text)
		if !ok {
			return model.Settings{}, fmt.Errorf("phase %d: minutes must be a positive number", i+1)
		}
		settings.Phases = append(settings.Phases, model.PhaseConfig{
			Type:       phaseType,
			Allocated:  time.Duration(minutes) * time.Minute,
			CanOverrun: row.overrun.Checked,
		})
	}

	if err := settings.Validate(); err != nil {
		return model.Settings{}, err
	}
	return settings, nil
}

func (prefs *Window) handleSave() {
	settings, err := prefs.Settings()
	if err == nil && prefs.onSave != nil {
		err = prefs.onSave(settings)
	}
	if err != nil {
		prefs.status.SetText(err.Error())
		return
	}

	prefs.settings = settings
	prefs.status.SetText("")
	prefs.window.Hide()
}

func (prefs *Window) appendRow(cfg model.PhaseConfig) {
	labels := make([]string, 0, len(phase.Types))
	for _, phaseType := range phase.Types {
		labels = append(labels, phaseType.Label())
	}

	row := &phaseRow{
		kind:    widget.NewSelect(labels, nil),
		minutes: widget.NewEntry(),
		overrun: widget.NewCheck("May run over", nil),
	}
	row.kind.SetSelected(cfg.Type.Label())
	row.minutes.SetText(strconv.Itoa(int((cfg.Allocated + time.Minute - 1) / time.Minute)))
	row.overrun.SetChecked(cfg.CanOverrun)

	prefs.rows = append(prefs.rows, row)
	prefs.rowsBox.Add(container.NewGridWithColumns(3, row.kind, row.minutes, row.overrun))
}

func (prefs *Window) removeLastRow() {
	if len(prefs.rows) <= 1 {
		return
	}
	prefs.rows = prefs.rows[:len(prefs.rows)-1]
	prefs.rowsBox.Remove(prefs.rowsBox.Objects[len(prefs.rowsBox.Objects)-1])
}

func typeForLabel(label string) (phase.Type, bool) {
	for _, phaseType := range phase.Types {
		if phaseType.Label() == label {
			return phaseType, true
		}
	}
	return "", false
}

func parsePositiveInt(value string) (int, bool) {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return 0, false
	}
	return parsed, true
}

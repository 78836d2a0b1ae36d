// Package resources renders the tray and app icons.
package resources

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"

	"fyne.io/fyne/v2"

	"cadence/internal/core/phase"
)

const iconSize = 64

var (
	phaseColors = map[phase.Type]color.NRGBA{
		phase.TypePlanning: {R: 0x3b, G: 0x82, B: 0xf6, A: 0xff},
		phase.TypeFocus:    {R: 0xef, G: 0x44, B: 0x44, A: 0xff},
		phase.TypeBreak:    {R: 0x22, G: 0xc5, B: 0x5e, A: 0xff},
	}
	idleColor = color.NRGBA{R: 0x9c, G: 0xa3, B: 0xaf, A: 0xff}
)

var iconCache sync.Map

// PhaseIcon returns the icon for a phase type. Unknown types get the idle icon.
func PhaseIcon(t phase.Type) (fyne.Resource, error) {
	fill, ok := phaseColors[t]
	if !ok {
		return IdleIcon()
	}
	return loadIcon("phase-"+string(t)+".png", fill)
}

// IdleIcon returns the icon shown while the timer is stopped.
func IdleIcon() (fyne.Resource, error) {
	return loadIcon("idle.png", idleColor)
}

// MustPhaseIcon returns the icon for t or panics on error.
func MustPhaseIcon(t phase.Type) fyne.Resource {
	resource, err := PhaseIcon(t)
	if err != nil {
		panic(err)
	}
	return resource
}

// MustIdleIcon returns the idle icon or panics on error.
func MustIdleIcon() fyne.Resource {
	resource, err := IdleIcon()
	if err != nil {
		panic(err)
	}
	return resource
}

func loadIcon(name string, fill color.NRGBA) (fyne.Resource, error) {
	if cached, ok := iconCache.Load(name); ok {
		return cached.(fyne.Resource), nil
	}

	data, err := renderDisc(fill)
	if err != nil {
		return nil, fmt.Errorf("render icon %s: %w", name, err)
	}

	resource := fyne.NewStaticResource(name, data)
	actual, _ := iconCache.LoadOrStore(name, resource)
	return actual.(fyne.Resource), nil
}

// renderDisc draws a filled disc on a transparent square.
func renderDisc(fill color.NRGBA) ([]byte, error) {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	center := float64(iconSize-1) / 2
	radius := float64(iconSize)/2 - 2

	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			dx, dy := float64(x)-center, float64(y)-center
			if dx*dx+dy*dy <= radius*radius {
				img.SetNRGBA(x, y, fill)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

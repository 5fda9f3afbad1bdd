// Package phase models fluid phases as collections of named per-pore and
// per-throat property arrays. The percolation engine reads the invading
// phase's capillary entry pressures from here and writes its results back
// into both phases.
package phase

import (
	"errors"
	"fmt"
	"math"
)

// ErrMissingProperty reports a property that was never assigned to a phase.
var ErrMissingProperty = errors.New("property not assigned")

// Phase is a named fluid with property arrays keyed by property name.
// Array lengths are the caller's responsibility (pore arrays sized to the
// pore count, throat arrays to the throat count).
type Phase struct {
	Name string

	poreProps   map[string][]float64
	throatProps map[string][]float64
}

// New creates an empty phase.
func New(name string) *Phase {
	return &Phase{
		Name:        name,
		poreProps:   make(map[string][]float64),
		throatProps: make(map[string][]float64),
	}
}

// SetPoreProp assigns a per-pore property array.
func (p *Phase) SetPoreProp(name string, values []float64) {
	p.poreProps[name] = values
}

// SetThroatProp assigns a per-throat property array.
func (p *Phase) SetThroatProp(name string, values []float64) {
	p.throatProps[name] = values
}

// PoreProp returns the named per-pore array, or ErrMissingProperty.
func (p *Phase) PoreProp(name string) ([]float64, error) {
	v, ok := p.poreProps[name]
	if !ok {
		return nil, fmt.Errorf("phase %s: pore property %q: %w", p.Name, name, ErrMissingProperty)
	}
	return v, nil
}

// ThroatProp returns the named per-throat array, or ErrMissingProperty.
func (p *Phase) ThroatProp(name string) ([]float64, error) {
	v, ok := p.throatProps[name]
	if !ok {
		return nil, fmt.Errorf("phase %s: throat property %q: %w", p.Name, name, ErrMissingProperty)
	}
	return v, nil
}

// HasThroatProp reports whether the named per-throat array is assigned.
func (p *Phase) HasThroatProp(name string) bool {
	_, ok := p.throatProps[name]
	return ok
}

// WashburnEntryPressure computes the capillary entry pressure of each throat
// from the Washburn equation, Pc = -4*sigma*cos(theta)/d, with surface
// tension sigma in N/m, contact angle theta in degrees, and throat diameter
// d in m. For a non-wetting invader (theta > 90 degrees) the result is
// positive.
func WashburnEntryPressure(surfaceTension, contactAngleDeg float64, diameters []float64) []float64 {
	theta := contactAngleDeg * math.Pi / 180
	out := make([]float64, len(diameters))
	for i, d := range diameters {
		out[i] = -4 * surfaceTension * math.Cos(theta) / d
	}
	return out
}

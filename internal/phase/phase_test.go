package phase

import (
	"errors"
	"math"
	"testing"
)

func TestProps_RoundTrip(t *testing.T) {
	p := New("water")
	p.SetPoreProp("pressure", []float64{1, 2, 3})
	p.SetThroatProp("capillary_pressure", []float64{4, 5})

	pv, err := p.PoreProp("pressure")
	if err != nil {
		t.Fatalf("PoreProp: %v", err)
	}
	if len(pv) != 3 || pv[2] != 3 {
		t.Errorf("PoreProp = %v, want [1 2 3]", pv)
	}

	tv, err := p.ThroatProp("capillary_pressure")
	if err != nil {
		t.Fatalf("ThroatProp: %v", err)
	}
	if len(tv) != 2 || tv[0] != 4 {
		t.Errorf("ThroatProp = %v, want [4 5]", tv)
	}
}

func TestProps_Missing(t *testing.T) {
	p := New("air")

	if _, err := p.PoreProp("nope"); !errors.Is(err, ErrMissingProperty) {
		t.Errorf("PoreProp error = %v, want ErrMissingProperty", err)
	}
	if _, err := p.ThroatProp("capillary_pressure"); !errors.Is(err, ErrMissingProperty) {
		t.Errorf("ThroatProp error = %v, want ErrMissingProperty", err)
	}
	if p.HasThroatProp("capillary_pressure") {
		t.Error("HasThroatProp = true for unassigned property")
	}
}

func TestWashburnEntryPressure(t *testing.T) {
	// sigma = 0.072 N/m, theta = 120 deg, d = 1e-4 m:
	// Pc = -4*0.072*cos(120deg)/1e-4 = 1440 Pa
	got := WashburnEntryPressure(0.072, 120, []float64{1e-4})
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if math.Abs(got[0]-1440) > 1e-9 {
		t.Errorf("Pc = %g, want 1440", got[0])
	}

	// Smaller throats require higher entry pressure.
	two := WashburnEntryPressure(0.072, 120, []float64{1e-4, 5e-5})
	if two[1] <= two[0] {
		t.Errorf("expected smaller diameter to need higher pressure: %v", two)
	}

	// Wetting invader (theta < 90) gives negative entry pressure.
	wet := WashburnEntryPressure(0.072, 30, []float64{1e-4})
	if wet[0] >= 0 {
		t.Errorf("wetting Pc = %g, want negative", wet[0])
	}
}

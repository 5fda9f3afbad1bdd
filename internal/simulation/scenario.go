package simulation

import (
	"github.com/WenbinFei/openpnm/internal/config"
	"github.com/WenbinFei/openpnm/internal/network"
	"github.com/WenbinFei/openpnm/internal/percolation"
	"github.com/WenbinFei/openpnm/internal/phase"
)

// CubicSpec describes a generated cubic lattice network.
type CubicSpec struct {
	Shape   [3]int
	Spacing float64
}

// Scenario defines a complete invasion experiment. Exactly one of Cubic or
// Network must be set. Pressures assigns a capillary entry pressure to each
// throat; its length must match the network's throat count.
type Scenario struct {
	Name      string
	Cubic     *CubicSpec
	Network   *network.Network
	Pressures []float64

	// Config, when non-nil, replaces the default run configuration. The
	// default (cubic networks only) invades face to face along X in
	// breakthrough mode with timing disabled.
	Config *config.RunConfig

	// WithDefending attaches a defending phase so the run publishes
	// inverse occupancy.
	WithDefending bool

	// Cutoff, when non-nil, overrides the full-history cutoff passed to
	// ApplyResults.
	Cutoff *percolation.Cutoff
}

// Event is one decoded line of the run's JSONL event stream.
type Event map[string]any

// Name returns the event's "event" field, or "" when absent.
func (e Event) Name() string {
	s, _ := e["event"].(string)
	return s
}

// RunResult captures the outcome of a scenario run.
type RunResult struct {
	Scenario  Scenario
	Network   *network.Network
	Results   *percolation.Results
	Invading  *phase.Phase
	Defending *phase.Phase
	Events    []Event
}

// EventsNamed filters the event stream by event name.
func (r RunResult) EventsNamed(name string) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Name() == name {
			out = append(out, e)
		}
	}
	return out
}

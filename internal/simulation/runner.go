package simulation

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/WenbinFei/openpnm/internal/config"
	"github.com/WenbinFei/openpnm/internal/logging"
	"github.com/WenbinFei/openpnm/internal/network"
	"github.com/WenbinFei/openpnm/internal/percolation"
	"github.com/WenbinFei/openpnm/internal/phase"
)

// Runner executes invasion scenarios against the real engine with an
// isolated event log per test.
type Runner struct {
	t        *testing.T
	eventDir string
}

// NewRunner creates a scenario runner with a sandboxed event directory.
func NewRunner(t *testing.T) *Runner {
	t.Helper()
	return &Runner{t: t, eventDir: t.TempDir()}
}

// Run executes the scenario and returns the collected results.
func (r *Runner) Run(scenario Scenario) RunResult {
	r.t.Helper()

	net := r.buildNetwork(scenario)
	if len(scenario.Pressures) != net.NumThroats() {
		r.t.Fatalf("scenario %q: %d pressures for %d throats",
			scenario.Name, len(scenario.Pressures), net.NumThroats())
	}

	cfg := r.buildConfig(scenario, net)

	inv := phase.New("invading")
	inv.SetThroatProp(cfg.CapillaryPressure, scenario.Pressures)
	var def *phase.Phase
	if scenario.WithDefending {
		def = phase.New("defending")
	}

	events := logging.NewEventLogger(r.eventDir)
	defer events.Close()

	engine, err := percolation.New(net, inv, def, cfg,
		percolation.WithLogger(logging.NewLogger("info", io.Discard)),
		percolation.WithEventLogger(events),
	)
	if err != nil {
		r.t.Fatalf("scenario %q: New: %v", scenario.Name, err)
	}
	if err := engine.Run(context.Background()); err != nil {
		r.t.Fatalf("scenario %q: Run: %v", scenario.Name, err)
	}

	cut := percolation.Cutoff{}
	if scenario.Cutoff != nil {
		cut = *scenario.Cutoff
	}
	if err := engine.ApplyResults(cut); err != nil {
		r.t.Fatalf("scenario %q: ApplyResults: %v", scenario.Name, err)
	}
	events.Close()

	return RunResult{
		Scenario:  scenario,
		Network:   net,
		Results:   engine.Results(),
		Invading:  inv,
		Defending: def,
		Events:    r.readEvents(),
	}
}

func (r *Runner) buildNetwork(scenario Scenario) *network.Network {
	r.t.Helper()
	switch {
	case scenario.Cubic != nil && scenario.Network != nil:
		r.t.Fatalf("scenario %q: both Cubic and Network set", scenario.Name)
		return nil
	case scenario.Cubic != nil:
		return network.Cubic(scenario.Cubic.Shape, scenario.Cubic.Spacing).Network
	case scenario.Network != nil:
		return scenario.Network
	default:
		r.t.Fatalf("scenario %q: no network given", scenario.Name)
		return nil
	}
}

func (r *Runner) buildConfig(scenario Scenario, net *network.Network) config.RunConfig {
	r.t.Helper()
	if scenario.Config != nil {
		return *scenario.Config
	}
	if scenario.Cubic == nil {
		r.t.Fatalf("scenario %q: explicit networks need an explicit Config", scenario.Name)
	}
	c := network.Cubic(scenario.Cubic.Shape, scenario.Cubic.Spacing)
	return FaceToFace(c, network.X, config.Breakthrough)
}

// readEvents decodes the run's events.jsonl into a slice of Events.
func (r *Runner) readEvents() []Event {
	r.t.Helper()
	f, err := os.Open(filepath.Join(r.eventDir, "events.jsonl"))
	if err != nil {
		return nil
	}
	defer f.Close()

	var out []Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			r.t.Fatalf("readEvents: bad event line %q: %v", sc.Text(), err)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		r.t.Fatalf("readEvents: %v", err)
	}
	return out
}

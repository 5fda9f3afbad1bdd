// Package percolation implements the invasion-percolation simulation engine:
// per-cluster frontiers ordered by capillary entry pressure, a discrete
// event clock driven by volumetric flow when timing is enabled, cluster
// merging when invasion fronts collide, and termination and saturation
// bookkeeping.
//
// The engine is strictly sequential. It owns all mutable state for the
// duration of a run; collaborators supply read-only topology (network),
// property arrays (phase) and configuration.
package percolation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/WenbinFei/openpnm/internal/config"
	"github.com/WenbinFei/openpnm/internal/logging"
	"github.com/WenbinFei/openpnm/internal/network"
	"github.com/WenbinFei/openpnm/internal/phase"
)

type runState int

const (
	stateSetup runState = iota
	stateRunning
	stateTerminated
)

// Engine drives one invasion-percolation run. Create with New, execute with
// Run, then read Results or map them onto the phases with ApplyResults.
type Engine struct {
	net *network.Network
	inv *phase.Phase
	def *phase.Phase
	cfg config.RunConfig

	log    *slog.Logger
	events *logging.EventLogger

	// read-only property arrays for the run
	pcEntry   []float64
	poreVol   []float64
	throatVol []float64
	tVolCoef  []float64 // timing only

	res      *Results
	clusters *clusterSet

	seq          int
	simTime      float64
	current      int // selected cluster id, 0 before the first event
	newPore      int // pore invaded by the last event, -1 if none
	invadedPores int

	outletSet       map[int]bool
	outletCentroid  [3]float64
	initialDistance float64
	currentDistance float64
	percentComplete float64
	roughComplete   float64

	state runState
	done  bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the operational logger. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithEventLogger sets the JSONL run-event sink. Nil is fine.
func WithEventLogger(el *logging.EventLogger) Option {
	return func(e *Engine) { e.events = el }
}

// New validates the configuration against the network and the invading
// phase and builds an engine. A missing capillary-pressure property on the
// invading phase is a fatal configuration error. The defending phase may be
// nil; only the inverse-occupancy mapping is lost.
func New(net *network.Network, invading, defending *phase.Phase, cfg config.RunConfig, opts ...Option) (*Engine, error) {
	cfg.Normalize()
	if err := cfg.Validate(net.NumPores()); err != nil {
		return nil, err
	}

	pcEntry, err := invading.ThroatProp(cfg.CapillaryPressure)
	if err != nil {
		return nil, fmt.Errorf("percolation: %w", err)
	}
	if len(pcEntry) != net.NumThroats() {
		return nil, fmt.Errorf("percolation: capillary pressure array has %d entries, network has %d throats",
			len(pcEntry), net.NumThroats())
	}

	e := &Engine{
		net:       net,
		inv:       invading,
		def:       defending,
		cfg:       cfg,
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		pcEntry:   pcEntry,
		poreVol:   net.PoreVolumes(),
		throatVol: net.ThroatVolumes(),
		newPore:   -1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run executes the invasion to completion. It returns an error only for
// context cancellation or a detected bookkeeping fault; normal termination
// (breakthrough or total invasion) returns nil.
func (e *Engine) Run(ctx context.Context) error {
	if e.state != stateSetup {
		return fmt.Errorf("percolation: engine already run")
	}

	e.setup()
	e.state = stateRunning
	e.conditionUpdate()

	for !e.done {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("percolation: run canceled: %w", err)
		}

		if e.cfg.Timing {
			e.current = e.clusters.nextTimed()
			// The global clock advances to the minimum pending event time.
			e.simTime = e.clusters.get(e.current).hainesTime
		} else {
			id, err := e.clusters.nextUntimed(e.current)
			if err != nil {
				return fmt.Errorf("percolation: cluster selection: %w", err)
			}
			e.current = id
		}

		e.step()
		e.conditionUpdate()
	}

	e.res.MaxSeq = e.seq - 1
	e.res.SimTime = e.simTime
	e.canonicalizeClusters()
	e.computeSaturations()
	e.state = stateTerminated

	e.log.Info("invasion percolation finished",
		"percent", 100, "events", e.res.MaxSeq, "sim_time", e.simTime)
	e.events.Log(map[string]any{
		"event":    "terminated",
		"events":   e.res.MaxSeq,
		"sim_time": e.simTime,
	})
	return nil
}

// Results returns the invasion state arrays. Only meaningful after Run.
func (e *Engine) Results() *Results { return e.res }

// setup seeds one cluster per inlet group, collects the initial frontiers
// and computes the initial event times and the breakthrough distance
// baseline.
func (e *Engine) setup() {
	np, nt := e.net.NumPores(), e.net.NumThroats()
	e.res = newResults(np, nt, e.cfg.Timing)

	if e.cfg.Timing {
		e.tVolCoef = make([]float64, nt)
		dia := e.net.ThroatDiameters()
		for t := 0; t < nt; t++ {
			d := dia[t]
			e.tVolCoef[t] = d * d * d * math.Pi / 12 / e.pcEntry[t]
		}
	}

	e.clusters = newClusterSet(len(e.cfg.Inlets), e.cfg.Timing, e.cfg.InletFlow)
	e.seq = 1
	for gi, group := range e.cfg.Inlets {
		id := gi + 1
		cl := e.clusters.get(id)
		for _, p := range group {
			e.res.PoreClusterFinal[p] = id
			e.res.PoreClusterOriginal[p] = id
			e.res.PoreInvSeq[p] = e.seq
			if e.cfg.Timing {
				e.res.PoreInvTime[p] = 0
				cl.poreVolume += e.poreVol[p]
			}
			e.invadedPores++
		}
		for _, t := range e.net.NeighborThroats(group...) {
			if cl.frontier.push(e.pcEntry[t], t) && e.cfg.Timing {
				cl.volCoef += e.tVolCoef[t]
			}
		}
		e.recomputeHaines(id)
		e.log.Debug("inlet cluster seeded",
			"cluster", id, "pores", len(group), "frontier", cl.frontier.size())
	}
	e.seq = 2
	e.newPore = -1
	e.current = 0

	e.outletSet = make(map[int]bool, len(e.cfg.Outlets))
	for _, p := range e.cfg.Outlets {
		e.outletSet[p] = true
	}
	if len(e.cfg.Outlets) > 0 {
		e.outletCentroid = e.net.Centroid([]int(e.cfg.Outlets))
		inletCentroid := e.net.Centroid(e.cfg.AllInletPores())
		e.initialDistance = network.Distance(e.outletCentroid, inletCentroid)
	}
	e.currentDistance = e.initialDistance
	if e.cfg.EndCondition == config.Breakthrough && e.initialDistance == 0 {
		// Inlet and outlet centroids coincide; no meaningful distance axis.
		e.percentComplete = 100
	}
	e.reportProgress()
}

// step applies one invasion event for the selected cluster: pop its
// lowest-pressure uninvaded throat, mark it, and either grow into a new
// pore or merge with the cluster on the far side.
func (e *Engine) step() {
	cl := e.clusters.get(e.current)

	entry, ok := cl.frontier.popValid(e.throatInvaded, e.discardFunc(cl))
	if !ok {
		e.log.Debug("cluster frontier exhausted", "cluster", e.current)
		e.clusters.deactivate(e.current)
		e.newPore = -1
		return
	}
	t := entry.throat

	e.res.ThroatInvSeq[t] = e.seq
	if e.cfg.Timing {
		e.res.ThroatInvTime[t] = e.simTime
		cl.volCoef -= e.tVolCoef[t]
	}

	p0, p1 := e.net.ConnectedPores(t)
	inv0 := e.res.PoreClusterFinal[p0] != 0
	inv1 := e.res.PoreClusterFinal[p1] != 0

	if inv0 && inv1 {
		// The throat joins two invaded regions.
		a := e.clusters.resolve(e.res.PoreClusterFinal[p0])
		b := e.clusters.resolve(e.res.PoreClusterFinal[p1])
		cur := a
		if b < cur {
			cur = b
		}
		e.current = cur
		e.res.ThroatClusterFinal[t] = cur
		if a != b {
			e.mergeClusters(a, b, t)
		}
		e.newPore = -1
	} else {
		np := p0
		if inv0 {
			np = p1
		}
		e.res.ThroatClusterFinal[t] = e.current
		e.res.PoreClusterFinal[np] = e.current
		e.res.PoreClusterOriginal[np] = e.current
		e.res.PoreInvSeq[np] = e.seq
		if e.cfg.Timing {
			e.res.PoreInvTime[np] = e.simTime
			cl.poreVolume += e.poreVol[np]
		}
		e.invadedPores++
		e.newPore = np

		for _, j := range e.net.PoreThroats(np) {
			if cl.frontier.push(e.pcEntry[j], j) && e.cfg.Timing {
				cl.volCoef += e.tVolCoef[j]
			}
		}
		e.log.Log(context.Background(), logging.LevelTrace, "haines jump",
			"seq", e.seq, "cluster", e.current, "throat", t, "pore", np)
	}

	e.seq++
	e.recomputeHaines(e.current)
}

// mergeClusters performs the registry merge and records the event. When
// timing is enabled, a throat both fronts had queued contributed its volume
// coefficient twice; the duplicate callback subtracts the extra copy from
// the survivor.
func (e *Engine) mergeClusters(a, b int, throat int) {
	var onDup func(int)
	if e.cfg.Timing {
		survCl := e.clusters.get(min(a, b))
		onDup = func(t int) { survCl.volCoef -= e.tVolCoef[t] }
	}
	surv := e.clusters.merge(a, b, onDup)
	absorbed := a + b - surv
	e.log.Info("clusters merged",
		"survivor", surv, "absorbed", absorbed, "throat", throat)
	ev := map[string]any{
		"event":    "merge",
		"survivor": surv,
		"absorbed": absorbed,
		"throat":   throat,
	}
	if e.cfg.Timing {
		ev["sim_time"] = e.simTime
	}
	if !e.clusters.get(surv).active {
		e.log.Info("cluster merged into a finished cluster", "cluster", surv)
		ev["finished"] = true
	}
	e.events.Log(ev)
}

// recomputeHaines refreshes a cluster's next event after lazy-deletion
// cleanup of its frontier. An exhausted frontier retires the cluster. When
// timing is enabled the event time is recomputed and clamped up to the
// simulation clock so pure volume bookkeeping never moves time backwards.
func (e *Engine) recomputeHaines(id int) {
	cl := e.clusters.get(id)

	entry, ok := cl.frontier.peekValid(e.throatInvaded, e.discardFunc(cl))
	if !ok {
		e.log.Debug("cluster frontier empty after cleanup", "cluster", id)
		e.clusters.deactivate(id)
		return
	}

	cl.hainesThroat = entry.throat
	cl.hainesPressure = entry.pressure
	if e.cfg.Timing {
		cl.capVolume = cl.hainesPressure * cl.volCoef
		if cl.active {
			cl.hainesTime = (cl.poreVolume + cl.capVolume) / cl.flowRate
			if cl.hainesTime < e.simTime {
				cl.hainesTime = e.simTime
			}
		}
	}
}

func (e *Engine) throatInvaded(t int) bool {
	return e.res.ThroatClusterFinal[t] != 0
}

// discardFunc returns the lazy-deletion callback for a cluster: each entry
// dropped from the frontier gives back its volume-coefficient contribution.
func (e *Engine) discardFunc(cl *cluster) func(int) {
	if !e.cfg.Timing {
		return nil
	}
	return func(t int) { cl.volCoef -= e.tVolCoef[t] }
}

// conditionUpdate refreshes progress, handles outlet arrivals and decides
// termination.
func (e *Engine) conditionUpdate() {
	switch e.cfg.EndCondition {
	case config.Breakthrough:
		if e.newPore >= 0 && e.initialDistance > 0 {
			d := network.Distance(e.outletCentroid, e.net.Coords(e.newPore))
			if d < e.currentDistance {
				e.currentDistance = d
				e.percentComplete = (e.initialDistance - d) / e.initialDistance * 100
			}
		}
	case config.Total:
		e.percentComplete = float64(e.invadedPores) / float64(e.net.NumPores()) * 100
	}

	incr := float64(e.cfg.ReportIncrement)
	if e.percentComplete > e.roughComplete+incr {
		e.roughComplete = math.Floor(e.percentComplete/incr) * incr
		e.reportProgress()
	}

	if e.newPore >= 0 && e.outletSet[e.newPore] {
		cur := e.clusters.resolve(e.current)
		e.log.Info("breakthrough", "pore", e.newPore, "cluster", cur)
		ev := map[string]any{
			"event":   "breakthrough",
			"pore":    e.newPore,
			"cluster": cur,
		}
		if e.cfg.Timing {
			ev["sim_time"] = e.simTime
		}
		e.events.Log(ev)
		if e.cfg.EndCondition == config.Breakthrough {
			e.clusters.deactivate(cur)
		}
	}

	if e.clusters.activeCount() == 0 {
		e.done = true
	}
}

func (e *Engine) reportProgress() {
	if e.cfg.Timing {
		e.log.Info("invasion percolation progress",
			"percent", int(e.roughComplete), "sim_time", e.simTime)
	} else {
		e.log.Info("invasion percolation progress", "percent", int(e.roughComplete))
	}
}

// canonicalizeClusters rewrites the cluster-final arrays through the
// canonical-id map so every invaded element reports its surviving cluster.
func (e *Engine) canonicalizeClusters() {
	for i, id := range e.res.PoreClusterFinal {
		if id != 0 {
			e.res.PoreClusterFinal[i] = e.clusters.resolve(id)
		}
	}
	for i, id := range e.res.ThroatClusterFinal {
		if id != 0 {
			e.res.ThroatClusterFinal[i] = e.clusters.resolve(id)
		}
	}
}

package percolation

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/WenbinFei/openpnm/internal/config"
	"github.com/WenbinFei/openpnm/internal/network"
	"github.com/WenbinFei/openpnm/internal/phase"
)

// ascendingPc assigns capillary entry pressure t+1 to throat t, so invasion
// order follows throat ids.
func ascendingPc(n *network.Network) *phase.Phase {
	pc := make([]float64, n.NumThroats())
	for t := range pc {
		pc[t] = float64(t + 1)
	}
	inv := phase.New("invading")
	inv.SetThroatProp("capillary_pressure", pc)
	return inv
}

func cube2Config(c *network.CubicNetwork) config.RunConfig {
	cfg := config.Default()
	cfg.Timing = false
	cfg.Inlets = []config.PoreGroup{config.PoreGroup(c.FacePores(network.X, 0))}
	cfg.Outlets = config.IntList(c.FacePores(network.X, 1))
	return cfg
}

func runEngine(t *testing.T, net *network.Network, inv, def *phase.Phase, cfg config.RunConfig) *Engine {
	t.Helper()
	e, err := New(net, inv, def, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return e
}

func TestNew_MissingCapillaryPressure(t *testing.T) {
	c := network.Cubic([3]int{2, 2, 2}, 1.0)
	inv := phase.New("invading") // no property assigned
	_, err := New(c.Network, inv, nil, cube2Config(c))
	if !errors.Is(err, phase.ErrMissingProperty) {
		t.Errorf("error = %v, want ErrMissingProperty", err)
	}
}

func TestNew_WrongPressureArrayLength(t *testing.T) {
	c := network.Cubic([3]int{2, 2, 2}, 1.0)
	inv := phase.New("invading")
	inv.SetThroatProp("capillary_pressure", []float64{1, 2, 3})
	if _, err := New(c.Network, inv, nil, cube2Config(c)); err == nil {
		t.Error("expected length mismatch error")
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	c := network.Cubic([3]int{2, 2, 2}, 1.0)
	cfg := cube2Config(c)
	cfg.Inlets = nil
	if _, err := New(c.Network, ascendingPc(c.Network), nil, cfg); err == nil {
		t.Error("expected config validation error")
	}
}

func TestRun_Breakthrough2x2x2(t *testing.T) {
	c := network.Cubic([3]int{2, 2, 2}, 1.0)
	e := runEngine(t, c.Network, ascendingPc(c.Network), nil, cube2Config(c))
	r := e.Results()

	// Inlet face invaded at setup, sequence 1.
	for _, p := range []int{0, 1, 2, 3} {
		if r.PoreInvSeq[p] != 1 {
			t.Errorf("inlet pore %d seq = %d, want 1", p, r.PoreInvSeq[p])
		}
		if r.PoreClusterFinal[p] != 1 {
			t.Errorf("inlet pore %d cluster = %d, want 1", p, r.PoreClusterFinal[p])
		}
	}

	// Lowest-pressure throats fire in ascending id order: throats 0 and 1
	// join already-invaded inlet pores, throat 2 grows into outlet pore 4.
	wantThroatSeq := map[int]int{0: 2, 1: 3, 2: 4}
	for throat, want := range wantThroatSeq {
		if r.ThroatInvSeq[throat] != want {
			t.Errorf("throat %d seq = %d, want %d", throat, r.ThroatInvSeq[throat], want)
		}
	}
	if r.PoreInvSeq[4] != 4 {
		t.Errorf("outlet pore 4 seq = %d, want 4", r.PoreInvSeq[4])
	}
	if r.MaxSeq != 4 {
		t.Errorf("MaxSeq = %d, want 4", r.MaxSeq)
	}

	// Run stopped at breakthrough: the far pores stay uninvaded.
	for _, p := range []int{5, 6, 7} {
		if r.PoreInvSeq[p] != 0 {
			t.Errorf("pore %d seq = %d, want 0 (unreached)", p, r.PoreInvSeq[p])
		}
	}
	for throat := 3; throat < c.NumThroats(); throat++ {
		if r.ThroatInvSeq[throat] != 0 {
			t.Errorf("throat %d seq = %d, want 0", throat, r.ThroatInvSeq[throat])
		}
	}
}

func TestRun_Total2x2x2InvadesEverything(t *testing.T) {
	c := network.Cubic([3]int{2, 2, 2}, 1.0)
	cfg := cube2Config(c)
	cfg.EndCondition = config.Total
	e := runEngine(t, c.Network, ascendingPc(c.Network), nil, cfg)
	r := e.Results()

	for p := 0; p < c.NumPores(); p++ {
		if r.PoreInvSeq[p] == 0 {
			t.Errorf("pore %d uninvaded in total mode", p)
		}
	}
	for throat := 0; throat < c.NumThroats(); throat++ {
		if r.ThroatInvSeq[throat] == 0 {
			t.Errorf("throat %d uninvaded in total mode", throat)
		}
	}

	// The last invaded pore carries cumulative saturation 1 (throat
	// volumes are zero in the generated lattice).
	lastPore, lastSeq := -1, 0
	for p, s := range r.PoreInvSeq {
		if s > lastSeq {
			lastPore, lastSeq = p, s
		}
	}
	if got := r.PoreInvSat[lastPore]; got < 1-1e-12 || got > 1+1e-12 {
		t.Errorf("final pore saturation = %g, want 1.0", got)
	}
}

func TestRun_SequenceContiguous(t *testing.T) {
	c := network.Cubic([3]int{3, 3, 3}, 1.0)
	cfg := config.Default()
	cfg.Timing = false
	cfg.EndCondition = config.Total
	cfg.Inlets = []config.PoreGroup{config.PoreGroup(c.FacePores(network.X, 0))}
	cfg.Outlets = config.IntList(c.FacePores(network.X, 1))
	e := runEngine(t, c.Network, ascendingPc(c.Network), nil, cfg)
	r := e.Results()

	// Every sequence number 1..MaxSeq is assigned to exactly one throat
	// (or, for 1, the inlet pores), and pores share their growth event's
	// number.
	throatSeqs := make(map[int]int)
	for _, s := range r.ThroatInvSeq {
		if s > 0 {
			throatSeqs[s]++
		}
	}
	for s := 2; s <= r.MaxSeq; s++ {
		if throatSeqs[s] != 1 {
			t.Errorf("sequence %d assigned to %d throats, want 1", s, throatSeqs[s])
		}
	}
	for p, s := range r.PoreInvSeq {
		if s > 1 {
			// The pore's event also stamped its throat.
			if throatSeqs[s] != 1 {
				t.Errorf("pore %d carries seq %d with no matching throat event", p, s)
			}
		}
	}
}

func TestRun_MergeOnChain(t *testing.T) {
	// 4-pore chain 0-1-2-3 with clusters growing from both ends. The
	// middle throat has the highest pressure, so it fires last and joins
	// the two fronts.
	n, err := network.New(
		[][3]float64{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}, {3, 0, 0}},
		[]float64{1, 1, 1, 1},
		[][2]int{{0, 1}, {1, 2}, {2, 3}},
		[]float64{1, 1, 1},
		[]float64{0, 0, 0},
	)
	if err != nil {
		t.Fatal(err)
	}
	inv := phase.New("invading")
	inv.SetThroatProp("capillary_pressure", []float64{1, 5, 2})

	cfg := config.Default()
	cfg.Timing = false
	cfg.EndCondition = config.Total
	cfg.Inlets = []config.PoreGroup{{0}, {3}}
	e := runEngine(t, n, inv, nil, cfg)
	r := e.Results()

	// After the merge both original ids resolve to the smaller one.
	if got := e.clusters.resolve(2); got != 1 {
		t.Errorf("resolve(2) = %d, want 1", got)
	}
	for p := 0; p < 4; p++ {
		if r.PoreClusterFinal[p] != 1 {
			t.Errorf("pore %d cluster_final = %d, want 1", p, r.PoreClusterFinal[p])
		}
	}
	// Original cluster ids survive on the pores each front invaded.
	if r.PoreClusterOriginal[1] != 1 || r.PoreClusterOriginal[2] != 2 {
		t.Errorf("cluster_original = %v, want front 1 on pore 1 and front 2 on pore 2",
			[]int{r.PoreClusterOriginal[1], r.PoreClusterOriginal[2]})
	}
	// The merging throat is labeled with the survivor.
	if r.ThroatClusterFinal[1] != 1 {
		t.Errorf("merge throat cluster = %d, want 1", r.ThroatClusterFinal[1])
	}
	if r.MaxSeq != 4 {
		t.Errorf("MaxSeq = %d, want 4", r.MaxSeq)
	}
}

func TestRun_TimedMergeDrainsVolumeCoefficients(t *testing.T) {
	// 4-pore square with fronts growing from opposite corners. Before the
	// fronts join, the two remaining throats sit on both frontiers, so the
	// merge must hand back the doubled coefficient for the throat that
	// stays queued. Once everything is invaded, the coefficient balance of
	// the surviving cluster has to return to zero.
	n, err := network.New(
		[][3]float64{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		[]float64{1, 1, 1, 1},
		[][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}},
		[]float64{1, 1, 1, 1},
		[]float64{0, 0, 0, 0},
	)
	if err != nil {
		t.Fatal(err)
	}
	inv := phase.New("invading")
	inv.SetThroatProp("capillary_pressure", []float64{1, 5, 2, 4})

	cfg := config.Default()
	cfg.Timing = true
	cfg.InletFlow = 1.0
	cfg.EndCondition = config.Total
	cfg.Inlets = []config.PoreGroup{{0}, {2}}
	e := runEngine(t, n, inv, nil, cfg)
	r := e.Results()

	if got := e.clusters.resolve(2); got != 1 {
		t.Fatalf("resolve(2) = %d, want 1 after the fronts join", got)
	}
	surv := e.clusters.get(1)
	if surv.flowRate != 2.0 {
		t.Errorf("survivor flowRate = %g, want 2 (both inlet flows)", surv.flowRate)
	}
	if math.Abs(surv.volCoef) > 1e-12 {
		t.Errorf("survivor volCoef after full drain = %g, want 0", surv.volCoef)
	}
	for p := 0; p < 4; p++ {
		if r.PoreClusterFinal[p] != 1 {
			t.Errorf("pore %d cluster_final = %d, want 1", p, r.PoreClusterFinal[p])
		}
	}
	timeAt := make(map[int]float64)
	for throat, s := range r.ThroatInvSeq {
		if s > 0 {
			timeAt[s] = r.ThroatInvTime[throat]
		}
	}
	prev := 0.0
	for s := 2; s <= r.MaxSeq; s++ {
		if tm, ok := timeAt[s]; ok {
			if tm < prev {
				t.Errorf("time at seq %d = %g, before %g: clock moved backwards", s, tm, prev)
			}
			prev = tm
		}
	}
	if r.SimTime < prev {
		t.Errorf("SimTime = %g earlier than last event %g", r.SimTime, prev)
	}
}

func TestRun_TimedMonotoneClock(t *testing.T) {
	c := network.Cubic([3]int{2, 2, 2}, 1.0)
	cfg := cube2Config(c)
	cfg.Timing = true
	cfg.InletFlow = 1e-12
	cfg.EndCondition = config.Total
	e := runEngine(t, c.Network, ascendingPc(c.Network), nil, cfg)
	r := e.Results()

	if !r.Timing {
		t.Fatal("Results.Timing = false on a timed run")
	}
	// Invasion times must be non-decreasing in sequence order.
	timeAt := make(map[int]float64)
	for p, s := range r.PoreInvSeq {
		if s > 0 {
			timeAt[s] = r.PoreInvTime[p]
		}
	}
	for throat, s := range r.ThroatInvSeq {
		if s > 0 {
			timeAt[s] = r.ThroatInvTime[throat]
		}
	}
	prev := -1.0
	for s := 1; s <= r.MaxSeq; s++ {
		ts, ok := timeAt[s]
		if !ok {
			continue
		}
		if ts < prev {
			t.Errorf("time at seq %d = %g, before %g: clock moved backwards", s, ts, prev)
		}
		prev = ts
	}
	if r.SimTime < prev {
		t.Errorf("SimTime = %g earlier than last event %g", r.SimTime, prev)
	}
}

func TestRun_TwoClustersUntimedRoundRobin(t *testing.T) {
	// Two disconnected chains, one cluster each; untimed selection must
	// alternate between them until both exhaust.
	n, err := network.New(
		[][3]float64{{0, 0, 0}, {1, 0, 0}, {10, 0, 0}, {11, 0, 0}},
		[]float64{1, 1, 1, 1},
		[][2]int{{0, 1}, {2, 3}},
		[]float64{1, 1},
		[]float64{0, 0},
	)
	if err != nil {
		t.Fatal(err)
	}
	inv := phase.New("invading")
	inv.SetThroatProp("capillary_pressure", []float64{1, 1})

	cfg := config.Default()
	cfg.Timing = false
	cfg.EndCondition = config.Total
	cfg.Inlets = []config.PoreGroup{{0}, {2}}
	e := runEngine(t, n, inv, nil, cfg)
	r := e.Results()

	if r.PoreClusterFinal[1] != 1 || r.PoreClusterFinal[3] != 2 {
		t.Errorf("cluster finals = [%d %d], want [1 2]",
			r.PoreClusterFinal[1], r.PoreClusterFinal[3])
	}
	if r.MaxSeq != 3 {
		t.Errorf("MaxSeq = %d, want 3 (two growth events after seeding)", r.MaxSeq)
	}
}

func TestRun_DoubleRunRejected(t *testing.T) {
	c := network.Cubic([3]int{2, 2, 2}, 1.0)
	e := runEngine(t, c.Network, ascendingPc(c.Network), nil, cube2Config(c))
	if err := e.Run(context.Background()); err == nil {
		t.Error("second Run should fail")
	}
}

func TestRun_ContextCanceled(t *testing.T) {
	c := network.Cubic([3]int{2, 2, 2}, 1.0)
	e, err := New(c.Network, ascendingPc(c.Network), nil, cube2Config(c))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestOccupancy_RoundTrip(t *testing.T) {
	c := network.Cubic([3]int{2, 2, 2}, 1.0)
	cfg := cube2Config(c)
	cfg.EndCondition = config.Total
	e := runEngine(t, c.Network, ascendingPc(c.Network), nil, cfg)
	r := e.Results()

	bySeq, err := r.Occupancy(SeqCutoff(r.MaxSeq))
	if err != nil {
		t.Fatalf("Occupancy(seq): %v", err)
	}
	bySat, err := r.Occupancy(SatCutoff(1.0))
	if err != nil {
		t.Fatalf("Occupancy(sat): %v", err)
	}
	for i := range bySeq.Pores {
		if bySeq.Pores[i] != bySat.Pores[i] {
			t.Errorf("pore %d: seq mask %v != sat mask %v", i, bySeq.Pores[i], bySat.Pores[i])
		}
	}
	for i := range bySeq.Throats {
		if bySeq.Throats[i] != bySat.Throats[i] {
			t.Errorf("throat %d: seq mask %v != sat mask %v", i, bySeq.Throats[i], bySat.Throats[i])
		}
	}
}

func TestOccupancy_CutoffValidation(t *testing.T) {
	c := network.Cubic([3]int{2, 2, 2}, 1.0)
	e := runEngine(t, c.Network, ascendingPc(c.Network), nil, cube2Config(c))
	r := e.Results()

	if _, err := r.Occupancy(Cutoff{}); !errors.Is(err, ErrBadCutoff) {
		t.Errorf("zero cutoff error = %v, want ErrBadCutoff", err)
	}
	// Untimed run rejects a time cutoff.
	if _, err := r.Occupancy(TimeCutoff(1.0)); !errors.Is(err, ErrBadCutoff) {
		t.Errorf("time cutoff on untimed run error = %v, want ErrBadCutoff", err)
	}
}

func TestOccupancy_PartialSequence(t *testing.T) {
	c := network.Cubic([3]int{2, 2, 2}, 1.0)
	e := runEngine(t, c.Network, ascendingPc(c.Network), nil, cube2Config(c))
	r := e.Results()

	m, err := r.Occupancy(SeqCutoff(1))
	if err != nil {
		t.Fatal(err)
	}
	for p := 0; p < 4; p++ {
		if !m.Pores[p] {
			t.Errorf("inlet pore %d not in seq-1 mask", p)
		}
	}
	if m.Pores[4] {
		t.Error("pore 4 invaded at seq 4 should not be in seq-1 mask")
	}
	for throat := range m.Throats {
		if m.Throats[throat] {
			t.Errorf("throat %d in seq-1 mask; no throat invaded at setup", throat)
		}
	}
}

func TestApplyResults(t *testing.T) {
	c := network.Cubic([3]int{2, 2, 2}, 1.0)
	inv := ascendingPc(c.Network)
	def := phase.New("defending")
	e := runEngine(t, c.Network, inv, def, cube2Config(c))

	if err := e.ApplyResults(Cutoff{}); err != nil {
		t.Fatalf("ApplyResults: %v", err)
	}

	occ, err := inv.PoreProp("occupancy")
	if err != nil {
		t.Fatalf("invading occupancy: %v", err)
	}
	defOcc, err := def.PoreProp("occupancy")
	if err != nil {
		t.Fatalf("defending occupancy: %v", err)
	}
	for p := range occ {
		if occ[p]+defOcc[p] != 1 {
			t.Errorf("pore %d: occupancy %g + defended %g != 1", p, occ[p], defOcc[p])
		}
	}

	seq, err := inv.PoreProp("inv_seq")
	if err != nil {
		t.Fatalf("inv_seq: %v", err)
	}
	if seq[0] != 1 {
		t.Errorf("inlet pore inv_seq = %g, want 1", seq[0])
	}
	// Untimed run publishes no time arrays.
	if inv.HasThroatProp("inv_time") {
		t.Error("untimed run should not publish inv_time")
	}
}

func TestApplyResults_NoDefendingPhase(t *testing.T) {
	c := network.Cubic([3]int{2, 2, 2}, 1.0)
	inv := ascendingPc(c.Network)
	e := runEngine(t, c.Network, inv, nil, cube2Config(c))

	// Recoverable: invading results still published.
	if err := e.ApplyResults(Cutoff{}); err != nil {
		t.Fatalf("ApplyResults without defending phase: %v", err)
	}
	if _, err := inv.PoreProp("cluster_final"); err != nil {
		t.Errorf("invading cluster_final missing: %v", err)
	}
}

func TestApplyResults_BeforeRun(t *testing.T) {
	c := network.Cubic([3]int{2, 2, 2}, 1.0)
	e, err := New(c.Network, ascendingPc(c.Network), nil, cube2Config(c))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.ApplyResults(Cutoff{}); err == nil {
		t.Error("ApplyResults before Run should fail")
	}
}

func TestRun_DegenerateDistance(t *testing.T) {
	// Inlet and outlet centroids coincide: two pores at mirrored
	// positions on each side. Progress must not divide by zero and the
	// run still terminates.
	n, err := network.New(
		[][3]float64{{-1, 0, 0}, {1, 0, 0}},
		[]float64{1, 1},
		[][2]int{{0, 1}},
		[]float64{1},
		[]float64{0},
	)
	if err != nil {
		t.Fatal(err)
	}
	inv := phase.New("invading")
	inv.SetThroatProp("capillary_pressure", []float64{1})

	cfg := config.Default()
	cfg.Timing = false
	cfg.Inlets = []config.PoreGroup{{0, 1}}
	cfg.Outlets = config.IntList{0, 1}
	e := runEngine(t, n, inv, nil, cfg)
	if e.Results().MaxSeq < 1 {
		t.Errorf("MaxSeq = %d, want at least the inlet seeding", e.Results().MaxSeq)
	}
}

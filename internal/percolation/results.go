package percolation

import (
	"errors"
	"fmt"
)

// Results holds the invasion state arrays, one entry per pore or throat.
// Zero sequence and cluster values mean uninvaded; invasion times are -1
// for uninvaded elements and the time arrays are nil entirely when timing
// is disabled. Saturation arrays hold the cumulative invading-fluid
// saturation at the element's invasion step, 1.0 for uninvaded elements.
//
// The engine mutates Results in place during a run; afterward they are
// read-only.
type Results struct {
	PoreClusterFinal    []int
	PoreClusterOriginal []int
	PoreInvSeq          []int
	PoreInvTime         []float64
	PoreInvSat          []float64

	ThroatClusterFinal []int
	ThroatInvSeq       []int
	ThroatInvTime      []float64
	ThroatInvSat       []float64

	// MaxSeq is the highest sequence number assigned during the run.
	MaxSeq int
	// SimTime is the simulation clock at termination (timing runs only).
	SimTime float64
	// Timing records whether the run maintained the event clock.
	Timing bool
}

func newResults(numPores, numThroats int, timing bool) *Results {
	r := &Results{
		PoreClusterFinal:    make([]int, numPores),
		PoreClusterOriginal: make([]int, numPores),
		PoreInvSeq:          make([]int, numPores),
		PoreInvSat:          make([]float64, numPores),
		ThroatClusterFinal:  make([]int, numThroats),
		ThroatInvSeq:        make([]int, numThroats),
		ThroatInvSat:        make([]float64, numThroats),
		Timing:              timing,
	}
	for i := range r.PoreInvSat {
		r.PoreInvSat[i] = 1
	}
	for i := range r.ThroatInvSat {
		r.ThroatInvSat[i] = 1
	}
	if timing {
		r.PoreInvTime = make([]float64, numPores)
		r.ThroatInvTime = make([]float64, numThroats)
		for i := range r.PoreInvTime {
			r.PoreInvTime[i] = -1
		}
		for i := range r.ThroatInvTime {
			r.ThroatInvTime[i] = -1
		}
	}
	return r
}

// ErrBadCutoff reports an Occupancy call without exactly one cutoff kind.
var ErrBadCutoff = errors.New("exactly one cutoff kind required")

type cutoffKind int

const (
	cutoffNone cutoffKind = iota
	cutoffSeq
	cutoffTime
	cutoffSat
)

// Cutoff selects a point in the invasion history: by sequence number, by
// simulation time, or by saturation. Build one with SeqCutoff, TimeCutoff
// or SatCutoff; the zero Cutoff is invalid.
type Cutoff struct {
	kind cutoffKind
	seq  int
	val  float64
}

// SeqCutoff selects everything invaded at or before the given sequence
// number.
func SeqCutoff(seq int) Cutoff { return Cutoff{kind: cutoffSeq, seq: seq} }

// TimeCutoff selects everything invaded at or before the given simulation
// time. Only valid for timing runs.
func TimeCutoff(t float64) Cutoff { return Cutoff{kind: cutoffTime, val: t} }

// SatCutoff selects everything invaded at or below the given cumulative
// saturation.
func SatCutoff(s float64) Cutoff { return Cutoff{kind: cutoffSat, val: s} }

// Masks are boolean invaded masks over pores and throats.
type Masks struct {
	Pores   []bool
	Throats []bool
}

// Occupancy returns the invaded masks at the cutoff. The defended masks are
// the complements.
func (r *Results) Occupancy(c Cutoff) (Masks, error) {
	seq, err := r.cutoffSeq(c)
	if err != nil {
		return Masks{}, err
	}

	m := Masks{
		Pores:   make([]bool, len(r.PoreInvSeq)),
		Throats: make([]bool, len(r.ThroatInvSeq)),
	}
	for i, s := range r.PoreInvSeq {
		m.Pores[i] = s > 0 && s <= seq
	}
	for i, s := range r.ThroatInvSeq {
		m.Throats[i] = s > 0 && s <= seq
	}
	return m, nil
}

// cutoffSeq maps any cutoff kind onto a sequence-number cutoff.
func (r *Results) cutoffSeq(c Cutoff) (int, error) {
	switch c.kind {
	case cutoffSeq:
		return c.seq, nil
	case cutoffTime:
		if !r.Timing {
			return 0, fmt.Errorf("time cutoff on an untimed run: %w", ErrBadCutoff)
		}
		seq := 0
		for i, t := range r.PoreInvTime {
			if t >= 0 && t <= c.val && r.PoreInvSeq[i] > seq {
				seq = r.PoreInvSeq[i]
			}
		}
		for i, t := range r.ThroatInvTime {
			if t >= 0 && t <= c.val && r.ThroatInvSeq[i] > seq {
				seq = r.ThroatInvSeq[i]
			}
		}
		return seq, nil
	case cutoffSat:
		seq := 0
		for i, s := range r.PoreInvSat {
			if s <= c.val && r.PoreInvSeq[i] > seq {
				seq = r.PoreInvSeq[i]
			}
		}
		for i, s := range r.ThroatInvSat {
			if s <= c.val && r.ThroatInvSeq[i] > seq {
				seq = r.ThroatInvSeq[i]
			}
		}
		return seq, nil
	default:
		return 0, ErrBadCutoff
	}
}

package percolation

import "fmt"

// computeSaturations stamps every invaded pore and throat with the
// cumulative invading-fluid saturation at its invasion step: the volume of
// everything invaded at or before that sequence number over the total
// network volume. Uninvaded elements keep saturation 1.
func (e *Engine) computeSaturations() {
	var vTotal float64
	for _, v := range e.poreVol {
		vTotal += v
	}
	for _, v := range e.throatVol {
		vTotal += v
	}
	if vTotal == 0 {
		return
	}

	// Bucket element ids by sequence number.
	poresAt := make(map[int][]int)
	throatsAt := make(map[int][]int)
	for p, s := range e.res.PoreInvSeq {
		if s > 0 {
			poresAt[s] = append(poresAt[s], p)
		}
	}
	for t, s := range e.res.ThroatInvSeq {
		if s > 0 {
			throatsAt[s] = append(throatsAt[s], t)
		}
	}

	sat := 0.0
	for s := 1; s <= e.res.MaxSeq; s++ {
		var vNew float64
		for _, p := range poresAt[s] {
			vNew += e.poreVol[p]
		}
		for _, t := range throatsAt[s] {
			vNew += e.throatVol[t]
		}
		sat += vNew / vTotal
		for _, p := range poresAt[s] {
			e.res.PoreInvSat[p] = sat
		}
		for _, t := range throatsAt[s] {
			e.res.ThroatInvSat[t] = sat
		}
	}
}

// ApplyResults copies the run results onto the phases: the invading phase
// gains the cluster, sequence, time and saturation arrays plus an occupancy
// array at the cutoff; the defending phase, when present, gains the inverse
// occupancy. The zero Cutoff means the full run. A missing defending phase
// is downgraded to a warning; the invading-phase results are still
// published.
func (e *Engine) ApplyResults(cut Cutoff) error {
	if e.state != stateTerminated {
		return fmt.Errorf("percolation: results not available before the run finishes")
	}
	if cut.kind == cutoffNone {
		cut = SeqCutoff(e.res.MaxSeq)
	}
	masks, err := e.res.Occupancy(cut)
	if err != nil {
		return fmt.Errorf("percolation: %w", err)
	}

	r := e.res
	e.inv.SetPoreProp("cluster_final", intsToFloats(r.PoreClusterFinal))
	e.inv.SetPoreProp("cluster_original", intsToFloats(r.PoreClusterOriginal))
	e.inv.SetPoreProp("inv_seq", intsToFloats(r.PoreInvSeq))
	e.inv.SetPoreProp("inv_sat", append([]float64(nil), r.PoreInvSat...))
	e.inv.SetThroatProp("cluster_final", intsToFloats(r.ThroatClusterFinal))
	e.inv.SetThroatProp("inv_seq", intsToFloats(r.ThroatInvSeq))
	e.inv.SetThroatProp("inv_sat", append([]float64(nil), r.ThroatInvSat...))
	if r.Timing {
		e.inv.SetPoreProp("inv_time", append([]float64(nil), r.PoreInvTime...))
		e.inv.SetThroatProp("inv_time", append([]float64(nil), r.ThroatInvTime...))
	}
	e.inv.SetPoreProp("occupancy", boolsToFloats(masks.Pores, false))
	e.inv.SetThroatProp("occupancy", boolsToFloats(masks.Throats, false))

	if e.def == nil {
		e.log.Warn("no defending phase set; inverse occupancy not published")
		return nil
	}
	e.def.SetPoreProp("occupancy", boolsToFloats(masks.Pores, true))
	e.def.SetThroatProp("occupancy", boolsToFloats(masks.Throats, true))
	return nil
}

func intsToFloats(in []int) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func boolsToFloats(in []bool, invert bool) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		if v != invert {
			out[i] = 1
		}
	}
	return out
}

package simulation

import (
	"testing"

	"github.com/WenbinFei/openpnm/internal/percolation"
)

// AssertSequenceContiguous asserts that every sequence number from 2 to
// MaxSeq was assigned to exactly one throat, and that every invaded pore
// shares its growth event's number (or 1 for inlet seeding).
func AssertSequenceContiguous(t *testing.T, result RunResult) {
	t.Helper()
	res := result.Results
	throatAt := make(map[int]int)
	for throat, s := range res.ThroatInvSeq {
		if s > 0 {
			if prev, dup := throatAt[s]; dup {
				t.Errorf("AssertSequenceContiguous: seq %d on throats %d and %d", s, prev, throat)
			}
			throatAt[s] = throat
		}
	}
	for s := 2; s <= res.MaxSeq; s++ {
		if _, ok := throatAt[s]; !ok {
			t.Errorf("AssertSequenceContiguous: seq %d assigned to no throat", s)
		}
	}
	for p, s := range res.PoreInvSeq {
		if s > 1 {
			if _, ok := throatAt[s]; !ok {
				t.Errorf("AssertSequenceContiguous: pore %d carries seq %d with no matching throat", p, s)
			}
		}
	}
}

// AssertClockMonotone asserts that invasion times never decrease along the
// sequence order and that SimTime is not earlier than the last event.
func AssertClockMonotone(t *testing.T, result RunResult) {
	t.Helper()
	res := result.Results
	if !res.Timing {
		t.Fatal("AssertClockMonotone: untimed run")
	}
	timeAt := make(map[int]float64)
	for p, s := range res.PoreInvSeq {
		if s > 0 {
			timeAt[s] = res.PoreInvTime[p]
		}
	}
	for throat, s := range res.ThroatInvSeq {
		if s > 0 {
			timeAt[s] = res.ThroatInvTime[throat]
		}
	}
	prev := -1.0
	for s := 1; s <= res.MaxSeq; s++ {
		ts, ok := timeAt[s]
		if !ok {
			continue
		}
		if ts < prev {
			t.Errorf("AssertClockMonotone: time %g at seq %d after %g", ts, s, prev)
		}
		prev = ts
	}
	if res.SimTime < prev {
		t.Errorf("AssertClockMonotone: SimTime %g before last event %g", res.SimTime, prev)
	}
}

// AssertUninvadedDefaults asserts the sentinel values on uninvaded
// elements: cluster 0, saturation 1, and time -1 on timed runs.
func AssertUninvadedDefaults(t *testing.T, result RunResult) {
	t.Helper()
	res := result.Results
	for p, s := range res.PoreInvSeq {
		if s != 0 {
			continue
		}
		if res.PoreClusterFinal[p] != 0 {
			t.Errorf("AssertUninvadedDefaults: uninvaded pore %d has cluster %d", p, res.PoreClusterFinal[p])
		}
		if res.PoreInvSat[p] != 1 {
			t.Errorf("AssertUninvadedDefaults: uninvaded pore %d has saturation %g", p, res.PoreInvSat[p])
		}
		if res.Timing && res.PoreInvTime[p] != -1 {
			t.Errorf("AssertUninvadedDefaults: uninvaded pore %d has time %g", p, res.PoreInvTime[p])
		}
	}
	for throat, s := range res.ThroatInvSeq {
		if s != 0 {
			continue
		}
		if res.ThroatClusterFinal[throat] != 0 {
			t.Errorf("AssertUninvadedDefaults: uninvaded throat %d has cluster %d", throat, res.ThroatClusterFinal[throat])
		}
		if res.ThroatInvSat[throat] != 1 {
			t.Errorf("AssertUninvadedDefaults: uninvaded throat %d has saturation %g", throat, res.ThroatInvSat[throat])
		}
		if res.Timing && res.ThroatInvTime[throat] != -1 {
			t.Errorf("AssertUninvadedDefaults: uninvaded throat %d has time %g", throat, res.ThroatInvTime[throat])
		}
	}
}

// AssertSaturationCumulative asserts that saturation never decreases along
// the sequence order and never exceeds 1.
func AssertSaturationCumulative(t *testing.T, result RunResult) {
	t.Helper()
	res := result.Results
	satAt := make(map[int]float64)
	record := func(s int, sat float64) {
		if s > 0 {
			if sat > 1+1e-9 {
				t.Errorf("AssertSaturationCumulative: saturation %g above 1 at seq %d", sat, s)
			}
			satAt[s] = sat
		}
	}
	for p, s := range res.PoreInvSeq {
		record(s, res.PoreInvSat[p])
	}
	for throat, s := range res.ThroatInvSeq {
		record(s, res.ThroatInvSat[throat])
	}
	prev := 0.0
	for s := 1; s <= res.MaxSeq; s++ {
		sat, ok := satAt[s]
		if !ok {
			continue
		}
		if sat < prev-1e-9 {
			t.Errorf("AssertSaturationCumulative: saturation %g at seq %d after %g", sat, s, prev)
		}
		prev = sat
	}
}

// AssertAllInvaded asserts that every pore and throat was invaded.
func AssertAllInvaded(t *testing.T, result RunResult) {
	t.Helper()
	res := result.Results
	for p, s := range res.PoreInvSeq {
		if s == 0 {
			t.Errorf("AssertAllInvaded: pore %d uninvaded", p)
		}
	}
	for throat, s := range res.ThroatInvSeq {
		if s == 0 {
			t.Errorf("AssertAllInvaded: throat %d uninvaded", throat)
		}
	}
}

// AssertSingleCluster asserts that every invaded element resolved to the
// given final cluster id.
func AssertSingleCluster(t *testing.T, result RunResult, id int) {
	t.Helper()
	res := result.Results
	for p, c := range res.PoreClusterFinal {
		if c != 0 && c != id {
			t.Errorf("AssertSingleCluster: pore %d in cluster %d, want %d", p, c, id)
		}
	}
	for throat, c := range res.ThroatClusterFinal {
		if c != 0 && c != id {
			t.Errorf("AssertSingleCluster: throat %d in cluster %d, want %d", throat, c, id)
		}
	}
}

// AssertOccupancyComplement asserts that the published invading and
// defending occupancy arrays partition every element.
func AssertOccupancyComplement(t *testing.T, result RunResult) {
	t.Helper()
	if result.Defending == nil {
		t.Fatal("AssertOccupancyComplement: scenario ran without a defending phase")
	}
	invP, err := result.Invading.PoreProp("occupancy")
	if err != nil {
		t.Fatalf("AssertOccupancyComplement: %v", err)
	}
	defP, err := result.Defending.PoreProp("occupancy")
	if err != nil {
		t.Fatalf("AssertOccupancyComplement: %v", err)
	}
	for p := range invP {
		if invP[p]+defP[p] != 1 {
			t.Errorf("AssertOccupancyComplement: pore %d sums to %g", p, invP[p]+defP[p])
		}
	}
	invT, err := result.Invading.ThroatProp("occupancy")
	if err != nil {
		t.Fatalf("AssertOccupancyComplement: %v", err)
	}
	defT, err := result.Defending.ThroatProp("occupancy")
	if err != nil {
		t.Fatalf("AssertOccupancyComplement: %v", err)
	}
	for throat := range invT {
		if invT[throat]+defT[throat] != 1 {
			t.Errorf("AssertOccupancyComplement: throat %d sums to %g", throat, invT[throat]+defT[throat])
		}
	}
}

// AssertOccupancyRoundTrip asserts that the full-history sequence cutoff
// and the saturation-1 cutoff select the same invaded set.
func AssertOccupancyRoundTrip(t *testing.T, result RunResult) {
	t.Helper()
	res := result.Results
	bySeq, err := res.Occupancy(percolation.SeqCutoff(res.MaxSeq))
	if err != nil {
		t.Fatalf("AssertOccupancyRoundTrip: %v", err)
	}
	bySat, err := res.Occupancy(percolation.SatCutoff(1.0))
	if err != nil {
		t.Fatalf("AssertOccupancyRoundTrip: %v", err)
	}
	for i := range bySeq.Pores {
		if bySeq.Pores[i] != bySat.Pores[i] {
			t.Errorf("AssertOccupancyRoundTrip: pore %d differs", i)
		}
	}
	for i := range bySeq.Throats {
		if bySeq.Throats[i] != bySat.Throats[i] {
			t.Errorf("AssertOccupancyRoundTrip: throat %d differs", i)
		}
	}
}

// AssertEvent asserts that at least one event with the given name was
// written to the run's event stream.
func AssertEvent(t *testing.T, result RunResult, name string) {
	t.Helper()
	if len(result.EventsNamed(name)) == 0 {
		t.Errorf("AssertEvent: no %q event in stream of %d events", name, len(result.Events))
	}
}

// AssertNoEvent asserts that no event with the given name was written.
func AssertNoEvent(t *testing.T, result RunResult, name string) {
	t.Helper()
	if n := len(result.EventsNamed(name)); n > 0 {
		t.Errorf("AssertNoEvent: %d %q events in stream", n, name)
	}
}

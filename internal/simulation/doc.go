// Package simulation provides a scenario test harness for validating
// emergent dynamics of the invasion-percolation engine.
//
// The simulation exercises the real Engine, cluster bookkeeping, and
// saturation pass against real pore networks; no mocks. Scenarios are Go
// builders that construct networks with prescribed entry pressures and run
// full invasions, capturing the result arrays and the JSONL event stream
// for property-based assertions.
//
// Each test gets an isolated event log directory via t.TempDir().
//
// Usage:
//
//	func TestBreakthroughStops(t *testing.T) {
//	    r := simulation.NewRunner(t)
//	    result := r.Run(simulation.Scenario{
//	        Name:      "breakthrough-3x3x3",
//	        Cubic:     &simulation.CubicSpec{Shape: [3]int{3, 3, 3}, Spacing: 1},
//	        Pressures: simulation.Ascending(54),
//	    })
//	    simulation.AssertEvent(t, result, "breakthrough")
//	}
package simulation

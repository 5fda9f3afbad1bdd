// Package network holds the immutable pore/throat topology and geometry the
// percolation engine runs against. Pores and throats are identified by
// zero-based indices; a throat connects exactly two pores.
package network

import (
	"fmt"
	"math"
	"sort"
)

// Network is an immutable pore network: per-pore coordinates and volumes,
// per-throat connections, diameters and volumes. Construct with New (or the
// Cubic generator); the query methods never mutate.
type Network struct {
	coords     [][3]float64
	poreVolume []float64

	conns          [][2]int
	throatDiameter []float64
	throatVolume   []float64

	// poreThroats[p] lists the throats incident to pore p, ascending.
	poreThroats [][]int
}

// New validates the arrays and builds a Network. All throat arrays must have
// the same length, every connection must reference pores in range, and
// volumes and diameters must be non-negative (diameters strictly positive).
func New(coords [][3]float64, poreVolume []float64, conns [][2]int, throatDiameter, throatVolume []float64) (*Network, error) {
	np := len(coords)
	if len(poreVolume) != np {
		return nil, fmt.Errorf("network: pore volume count %d does not match %d pores", len(poreVolume), np)
	}
	nt := len(conns)
	if len(throatDiameter) != nt || len(throatVolume) != nt {
		return nil, fmt.Errorf("network: throat property counts (%d diameters, %d volumes) do not match %d throats",
			len(throatDiameter), len(throatVolume), nt)
	}

	for t, c := range conns {
		if c[0] < 0 || c[0] >= np || c[1] < 0 || c[1] >= np {
			return nil, fmt.Errorf("network: throat %d connects out-of-range pores %v (have %d pores)", t, c, np)
		}
		if c[0] == c[1] {
			return nil, fmt.Errorf("network: throat %d is a self-loop on pore %d", t, c[0])
		}
		if throatDiameter[t] <= 0 {
			return nil, fmt.Errorf("network: throat %d has non-positive diameter %g", t, throatDiameter[t])
		}
		if throatVolume[t] < 0 {
			return nil, fmt.Errorf("network: throat %d has negative volume %g", t, throatVolume[t])
		}
	}
	for p, v := range poreVolume {
		if v < 0 {
			return nil, fmt.Errorf("network: pore %d has negative volume %g", p, v)
		}
	}

	n := &Network{
		coords:         coords,
		poreVolume:     poreVolume,
		conns:          conns,
		throatDiameter: throatDiameter,
		throatVolume:   throatVolume,
	}
	n.buildAdjacency()
	return n, nil
}

func (n *Network) buildAdjacency() {
	n.poreThroats = make([][]int, len(n.coords))
	for t, c := range n.conns {
		n.poreThroats[c[0]] = append(n.poreThroats[c[0]], t)
		n.poreThroats[c[1]] = append(n.poreThroats[c[1]], t)
	}
	// Throat ids are appended in ascending order already, but keep the
	// guarantee explicit.
	for _, ts := range n.poreThroats {
		sort.Ints(ts)
	}
}

// NumPores returns the pore count.
func (n *Network) NumPores() int { return len(n.coords) }

// NumThroats returns the throat count.
func (n *Network) NumThroats() int { return len(n.conns) }

// ConnectedPores returns the two pores joined by throat t.
func (n *Network) ConnectedPores(t int) (int, int) {
	c := n.conns[t]
	return c[0], c[1]
}

// PoreThroats returns the throats incident to pore p, ascending.
// The returned slice is shared; callers must not modify it.
func (n *Network) PoreThroats(p int) []int { return n.poreThroats[p] }

// NeighborThroats returns the sorted, deduplicated set of throats incident
// to any of the given pores.
func (n *Network) NeighborThroats(pores ...int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, p := range pores {
		for _, t := range n.poreThroats[p] {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Ints(out)
	return out
}

// Coords returns the coordinates of pore p.
func (n *Network) Coords(p int) [3]float64 { return n.coords[p] }

// PoreVolume returns the volume of pore p.
func (n *Network) PoreVolume(p int) float64 { return n.poreVolume[p] }

// PoreVolumes returns the per-pore volume array. Callers must not modify it.
func (n *Network) PoreVolumes() []float64 { return n.poreVolume }

// ThroatDiameters returns the per-throat diameter array. Callers must not
// modify it.
func (n *Network) ThroatDiameters() []float64 { return n.throatDiameter }

// ThroatVolumes returns the per-throat volume array. Callers must not
// modify it.
func (n *Network) ThroatVolumes() []float64 { return n.throatVolume }

// Centroid returns the arithmetic mean of the coordinates of the given pores.
func (n *Network) Centroid(pores []int) [3]float64 {
	var c [3]float64
	if len(pores) == 0 {
		return c
	}
	for _, p := range pores {
		for i := 0; i < 3; i++ {
			c[i] += n.coords[p][i]
		}
	}
	for i := 0; i < 3; i++ {
		c[i] /= float64(len(pores))
	}
	return c
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b [3]float64) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	dz := a[2] - b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

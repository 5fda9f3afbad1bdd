package simulation

import (
	"math/rand"

	"github.com/WenbinFei/openpnm/internal/config"
	"github.com/WenbinFei/openpnm/internal/network"
)

// Ascending returns n pressures 1, 2, ..., n so invasion order follows
// throat ids.
func Ascending(n int) []float64 {
	p := make([]float64, n)
	for i := range p {
		p[i] = float64(i + 1)
	}
	return p
}

// Uniform returns n identical pressures. Ties resolve to the lower throat
// id, so the invasion order is still deterministic.
func Uniform(n int, v float64) []float64 {
	p := make([]float64, n)
	for i := range p {
		p[i] = v
	}
	return p
}

// Random returns n pressures drawn uniformly from (lo, hi) with a fixed
// seed, for property tests that want irregular but repeatable orderings.
func Random(n int, seed int64, lo, hi float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	p := make([]float64, n)
	for i := range p {
		p[i] = lo + rng.Float64()*(hi-lo)
	}
	return p
}

// FaceToFace builds a run configuration invading from one face of a cubic
// lattice to the opposite face along the given axis.
func FaceToFace(c *network.CubicNetwork, axis network.Axis, end config.EndCondition) config.RunConfig {
	cfg := config.Default()
	cfg.Timing = false
	cfg.EndCondition = end
	cfg.Inlets = []config.PoreGroup{config.PoreGroup(c.FacePores(axis, 0))}
	cfg.Outlets = config.IntList(c.FacePores(axis, 1))
	return cfg
}

// Chain builds a linear network of len(pressures)+1 unit-volume pores
// joined by throats carrying the given entry pressures.
func Chain(pressures []float64) (*network.Network, error) {
	n := len(pressures) + 1
	coords := make([][3]float64, n)
	poreVol := make([]float64, n)
	conns := make([][2]int, len(pressures))
	dia := make([]float64, len(pressures))
	tVol := make([]float64, len(pressures))
	for i := range coords {
		coords[i] = [3]float64{float64(i), 0, 0}
		poreVol[i] = 1
	}
	for i := range conns {
		conns[i] = [2]int{i, i + 1}
		dia[i] = 1
	}
	return network.New(coords, poreVol, conns, dia, tVol)
}

package network

// Axis selects one of the three lattice directions of a cubic network.
type Axis int

const (
	X Axis = iota
	Y
	Z
)

// CubicNetwork is a regular lattice network with face selectors, used by the
// CLI's built-in network type and by tests.
type CubicNetwork struct {
	*Network
	Shape   [3]int
	Spacing float64
}

// Cubic builds a shape[0]*shape[1]*shape[2] lattice with the given node
// spacing. Pore index layout is (x*ny + y)*nz + z. Throats connect each pore
// to its +z, +y and +x neighbors, in that order per pore, so throat ids grow
// with pore index. Default geometry: pore volume (spacing/2)^3, throat
// diameter spacing/4, throat volume 0.
func Cubic(shape [3]int, spacing float64) *CubicNetwork {
	nx, ny, nz := shape[0], shape[1], shape[2]
	np := nx * ny * nz

	coords := make([][3]float64, 0, np)
	poreVol := make([]float64, np)
	pv := spacing / 2 * spacing / 2 * spacing / 2
	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			for z := 0; z < nz; z++ {
				coords = append(coords, [3]float64{
					float64(x) * spacing,
					float64(y) * spacing,
					float64(z) * spacing,
				})
			}
		}
	}
	for i := range poreVol {
		poreVol[i] = pv
	}

	var conns [][2]int
	idx := func(x, y, z int) int { return (x*ny+y)*nz + z }
	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			for z := 0; z < nz; z++ {
				p := idx(x, y, z)
				if z+1 < nz {
					conns = append(conns, [2]int{p, idx(x, y, z+1)})
				}
				if y+1 < ny {
					conns = append(conns, [2]int{p, idx(x, y+1, z)})
				}
				if x+1 < nx {
					conns = append(conns, [2]int{p, idx(x+1, y, z)})
				}
			}
		}
	}

	tDia := make([]float64, len(conns))
	tVol := make([]float64, len(conns))
	for i := range tDia {
		tDia[i] = spacing / 4
	}

	n, err := New(coords, poreVol, conns, tDia, tVol)
	if err != nil {
		// The generator only produces valid arrays.
		panic(err)
	}
	return &CubicNetwork{Network: n, Shape: shape, Spacing: spacing}
}

// FacePores returns (ascending) the pores on one face of the lattice:
// the low face (side=0) or high face (side=1) perpendicular to axis.
func (c *CubicNetwork) FacePores(axis Axis, side int) []int {
	nx, ny, nz := c.Shape[0], c.Shape[1], c.Shape[2]
	want := 0
	switch axis {
	case X:
		if side != 0 {
			want = nx - 1
		}
	case Y:
		if side != 0 {
			want = ny - 1
		}
	case Z:
		if side != 0 {
			want = nz - 1
		}
	}

	var out []int
	idx := func(x, y, z int) int { return (x*ny+y)*nz + z }
	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			for z := 0; z < nz; z++ {
				var v int
				switch axis {
				case X:
					v = x
				case Y:
					v = y
				case Z:
					v = z
				}
				if v == want {
					out = append(out, idx(x, y, z))
				}
			}
		}
	}
	return out
}

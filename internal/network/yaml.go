package network

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileSpec is the YAML shape for a network definition. Either `cubic` or an
// explicit `pores`/`throats` listing must be present, not both.
type fileSpec struct {
	Cubic *struct {
		Shape   [3]int  `yaml:"shape"`
		Spacing float64 `yaml:"spacing"`
	} `yaml:"cubic"`

	Pores []struct {
		Coords [3]float64 `yaml:"coords"`
		Volume float64    `yaml:"volume"`
	} `yaml:"pores"`

	Throats []struct {
		Pores    [2]int  `yaml:"pores"`
		Diameter float64 `yaml:"diameter"`
		Volume   float64 `yaml:"volume"`
	} `yaml:"throats"`
}

// Load reads a YAML network definition from path.
func Load(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("network: read %s: %w", path, err)
	}
	n, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("network: parse %s: %w", path, err)
	}
	return n, nil
}

// Parse builds a Network from YAML bytes.
func Parse(data []byte) (*Network, error) {
	var spec fileSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	if spec.Cubic != nil {
		if len(spec.Pores) > 0 || len(spec.Throats) > 0 {
			return nil, fmt.Errorf("cubic and explicit pores/throats are mutually exclusive")
		}
		for _, d := range spec.Cubic.Shape {
			if d < 1 {
				return nil, fmt.Errorf("cubic shape %v must be at least 1 in every dimension", spec.Cubic.Shape)
			}
		}
		if spec.Cubic.Spacing <= 0 {
			return nil, fmt.Errorf("cubic spacing %g must be positive", spec.Cubic.Spacing)
		}
		return Cubic(spec.Cubic.Shape, spec.Cubic.Spacing).Network, nil
	}

	if len(spec.Pores) == 0 {
		return nil, fmt.Errorf("network definition has no pores")
	}

	coords := make([][3]float64, len(spec.Pores))
	poreVol := make([]float64, len(spec.Pores))
	for i, p := range spec.Pores {
		coords[i] = p.Coords
		poreVol[i] = p.Volume
	}

	conns := make([][2]int, len(spec.Throats))
	tDia := make([]float64, len(spec.Throats))
	tVol := make([]float64, len(spec.Throats))
	for i, t := range spec.Throats {
		conns[i] = t.Pores
		tDia[i] = t.Diameter
		tVol[i] = t.Volume
	}

	return New(coords, poreVol, conns, tDia, tVol)
}

// Package config provides run configuration loading for the percolation
// engine. It supports loading from YAML files, normalizes scalar/list inlet
// and outlet forms at the boundary, and validates against the target network
// before the engine ever sees the values.
package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// EndCondition selects the run termination policy.
type EndCondition string

const (
	// Breakthrough stops a cluster the instant it reaches an outlet pore;
	// the run ends when no cluster remains active.
	Breakthrough EndCondition = "breakthrough"
	// Total runs until every cluster has exhausted its frontier; outlet
	// arrivals are recorded but do not stop a cluster.
	Total EndCondition = "total"
)

// PoreGroup is one inlet cluster seed: the set of pores invaded at time
// zero under a single cluster id. YAML accepts either a scalar pore id or a
// list of ids.
type PoreGroup []int

// UnmarshalYAML accepts `3` and `[3, 4, 5]` interchangeably.
func (g *PoreGroup) UnmarshalYAML(value *yaml.Node) error {
	var single int
	if err := value.Decode(&single); err == nil {
		*g = PoreGroup{single}
		return nil
	}
	var many []int
	if err := value.Decode(&many); err != nil {
		return fmt.Errorf("pore group must be a pore id or list of pore ids: %w", err)
	}
	*g = PoreGroup(many)
	return nil
}

// IntList is a list of pore ids that also accepts a single scalar in YAML.
type IntList []int

// UnmarshalYAML accepts `3` and `[3, 4, 5]` interchangeably.
func (l *IntList) UnmarshalYAML(value *yaml.Node) error {
	var single int
	if err := value.Decode(&single); err == nil {
		*l = IntList{single}
		return nil
	}
	var many []int
	if err := value.Decode(&many); err != nil {
		return fmt.Errorf("must be a pore id or list of pore ids: %w", err)
	}
	*l = IntList(many)
	return nil
}

// RunConfig holds everything a single invasion-percolation run needs beyond
// the network and phases themselves.
type RunConfig struct {
	// Inlets seeds one cluster per group.
	Inlets []PoreGroup `yaml:"inlets"`

	// Outlets are the breakthrough target pores.
	Outlets IntList `yaml:"outlets"`

	// EndCondition is "breakthrough" (default) or "total".
	EndCondition EndCondition `yaml:"end_condition"`

	// Timing enables the cluster-growth clock driven by InletFlow.
	Timing bool `yaml:"timing"`

	// InletFlow is the volumetric flow rate per cluster (m3/s). Only
	// meaningful when Timing is set.
	InletFlow float64 `yaml:"inlet_flow"`

	// ReportIncrement is the progress percentage multiple at which a
	// completion line is logged. 0 is treated as 100 (report only at end).
	ReportIncrement int `yaml:"report"`

	// CapillaryPressure names the throat property on the invading phase
	// holding entry pressures.
	CapillaryPressure string `yaml:"capillary_pressure"`

	// LogLevel is "info", "debug" or "trace".
	LogLevel string `yaml:"log_level"`
}

// Default returns the default run configuration: breakthrough mode, timing
// on with unit flow rate, progress reports every 20%.
func Default() RunConfig {
	return RunConfig{
		EndCondition:      Breakthrough,
		Timing:            true,
		InletFlow:         1,
		ReportIncrement:   20,
		CapillaryPressure: "capillary_pressure",
		LogLevel:          "info",
	}
}

// Load reads a YAML run configuration from path, applying defaults for
// absent fields.
func Load(path string) (RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return RunConfig{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Parse builds a RunConfig from YAML bytes over the defaults.
func Parse(data []byte) (RunConfig, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, fmt.Errorf("unmarshal: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize deduplicates and sorts inlet groups and outlets, and maps a zero
// report increment to 100.
func (c *RunConfig) Normalize() {
	for i, g := range c.Inlets {
		c.Inlets[i] = PoreGroup(dedupeSorted([]int(g)))
	}
	c.Outlets = IntList(dedupeSorted([]int(c.Outlets)))
	if c.ReportIncrement == 0 {
		c.ReportIncrement = 100
	}
}

// Validate checks the configuration against a network with numPores pores.
//
// Outlets are required in breakthrough mode (the breakthrough distance is
// measured against their centroid) but optional in total mode.
func (c RunConfig) Validate(numPores int) error {
	switch c.EndCondition {
	case Breakthrough, Total:
	default:
		return fmt.Errorf("config: unknown end condition %q", c.EndCondition)
	}

	if len(c.Inlets) == 0 {
		return fmt.Errorf("config: no inlet pores given")
	}
	seen := make(map[int]int)
	for gi, g := range c.Inlets {
		if len(g) == 0 {
			return fmt.Errorf("config: inlet group %d is empty", gi)
		}
		for _, p := range g {
			if p < 0 || p >= numPores {
				return fmt.Errorf("config: inlet pore %d out of range (network has %d pores)", p, numPores)
			}
			if prev, dup := seen[p]; dup {
				return fmt.Errorf("config: inlet pore %d appears in groups %d and %d", p, prev, gi)
			}
			seen[p] = gi
		}
	}

	if c.EndCondition == Breakthrough && len(c.Outlets) == 0 {
		return fmt.Errorf("config: breakthrough mode requires outlet pores")
	}
	for _, p := range c.Outlets {
		if p < 0 || p >= numPores {
			return fmt.Errorf("config: outlet pore %d out of range (network has %d pores)", p, numPores)
		}
	}

	if c.Timing && c.InletFlow <= 0 {
		return fmt.Errorf("config: inlet flow must be positive when timing is enabled, got %g", c.InletFlow)
	}
	if c.ReportIncrement < 0 || c.ReportIncrement > 100 {
		return fmt.Errorf("config: report increment %d outside [0, 100]", c.ReportIncrement)
	}
	if c.CapillaryPressure == "" {
		return fmt.Errorf("config: capillary pressure property name is empty")
	}
	return nil
}

// AllInletPores returns every inlet pore across all groups, ascending.
func (c RunConfig) AllInletPores() []int {
	var out []int
	for _, g := range c.Inlets {
		out = append(out, g...)
	}
	sort.Ints(out)
	return out
}

func dedupeSorted(in []int) []int {
	if len(in) == 0 {
		return in
	}
	out := append([]int(nil), in...)
	sort.Ints(out)
	w := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[w-1] {
			out[w] = out[i]
			w++
		}
	}
	return out[:w]
}

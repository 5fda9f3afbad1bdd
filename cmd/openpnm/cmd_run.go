package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/WenbinFei/openpnm/internal/config"
	"github.com/WenbinFei/openpnm/internal/export"
	"github.com/WenbinFei/openpnm/internal/logging"
	"github.com/WenbinFei/openpnm/internal/network"
	"github.com/WenbinFei/openpnm/internal/percolation"
	"github.com/WenbinFei/openpnm/internal/phase"
	"github.com/WenbinFei/openpnm/internal/store"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an invasion simulation",
		Long: `Run an invasion percolation simulation on a pore network.

Throat entry pressures come from --pressures (a YAML list, one value per
throat) or, when omitted, from the Washburn equation applied to the
throat diameters with --surface-tension and --contact-angle.`,
		RunE: runSimulation,
	}

	cmd.Flags().String("network", "", "Network YAML file (required)")
	cmd.Flags().String("config", "", "Run configuration YAML file (required)")
	cmd.Flags().String("pressures", "", "YAML file with per-throat entry pressures")
	cmd.Flags().Float64("surface-tension", 0.072, "Surface tension [N/m] for the Washburn model")
	cmd.Flags().Float64("contact-angle", 110, "Contact angle [degrees] for the Washburn model")
	cmd.Flags().String("name", "run", "Run name for storage and output")
	cmd.Flags().String("db", "", "Directory of the run database; when set, the run is saved")
	cmd.Flags().String("arrow", "", "Directory for Arrow IPC export of the results")
	cmd.Flags().String("events", "", "Directory for the JSONL event log")
	cmd.MarkFlagRequired("network")
	cmd.MarkFlagRequired("config")

	return cmd
}

func runSimulation(cmd *cobra.Command, args []string) error {
	networkPath, _ := cmd.Flags().GetString("network")
	configPath, _ := cmd.Flags().GetString("config")
	pressuresPath, _ := cmd.Flags().GetString("pressures")
	sigma, _ := cmd.Flags().GetFloat64("surface-tension")
	theta, _ := cmd.Flags().GetFloat64("contact-angle")
	name, _ := cmd.Flags().GetString("name")
	dbDir, _ := cmd.Flags().GetString("db")
	arrowDir, _ := cmd.Flags().GetString("arrow")
	eventsDir, _ := cmd.Flags().GetString("events")
	logLevel, _ := cmd.Flags().GetString("log-level")
	jsonOut, _ := cmd.Flags().GetBool("json")

	net, err := network.Load(networkPath)
	if err != nil {
		return fmt.Errorf("load network: %w", err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// The config file's log level applies unless the flag was given.
	if !cmd.Flags().Changed("log-level") && cfg.LogLevel != "" {
		logLevel = cfg.LogLevel
	}
	log := logging.NewLogger(logLevel, os.Stderr)

	var pressures []float64
	if pressuresPath != "" {
		pressures, err = loadPressures(pressuresPath)
		if err != nil {
			return err
		}
	} else {
		pressures = phase.WashburnEntryPressure(sigma, theta, net.ThroatDiameters())
		log.Debug("entry pressures from Washburn model",
			"surface_tension", sigma, "contact_angle", theta)
	}

	invading := phase.New("invading")
	invading.SetThroatProp(cfg.CapillaryPressure, pressures)
	defending := phase.New("defending")

	opts := []percolation.Option{percolation.WithLogger(log)}
	if eventsDir != "" {
		events := logging.NewEventLogger(eventsDir)
		defer events.Close()
		opts = append(opts, percolation.WithEventLogger(events))
	}

	engine, err := percolation.New(net, invading, defending, cfg, opts...)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := engine.Run(ctx); err != nil {
		return err
	}
	if err := engine.ApplyResults(percolation.Cutoff{}); err != nil {
		return err
	}
	res := engine.Results()

	var runID int64
	if dbDir != "" {
		runStore, err := store.NewRunStore(dbDir)
		if err != nil {
			return err
		}
		defer runStore.Close()
		runID, err = runStore.SaveRun(ctx, name, cfg, res)
		if err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		log.Info("run saved", "id", runID, "db", dbDir)
	}

	if arrowDir != "" {
		if err := export.Arrow(arrowDir, res); err != nil {
			return err
		}
		log.Info("results exported", "dir", arrowDir)
	}

	return printSummary(os.Stdout, jsonOut, name, runID, net, res)
}

// loadPressures reads a YAML list of per-throat entry pressures.
func loadPressures(path string) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load pressures: %w", err)
	}
	var pressures []float64
	if err := yaml.Unmarshal(data, &pressures); err != nil {
		return nil, fmt.Errorf("parse pressures: %w", err)
	}
	return pressures, nil
}

type runSummary struct {
	Name         string  `json:"name"`
	RunID        int64   `json:"run_id,omitempty"`
	Pores        int     `json:"pores"`
	Throats      int     `json:"throats"`
	InvadedPores int     `json:"invaded_pores"`
	MaxSeq       int     `json:"max_seq"`
	Timing       bool    `json:"timing"`
	SimTime      float64 `json:"sim_time,omitempty"`
	FinalSat     float64 `json:"final_saturation"`
}

func printSummary(w io.Writer, jsonOut bool, name string, runID int64, net *network.Network, res *percolation.Results) error {
	invaded := 0
	finalSat := 0.0
	for p, s := range res.PoreInvSeq {
		if s > 0 {
			invaded++
			if res.PoreInvSat[p] > finalSat {
				finalSat = res.PoreInvSat[p]
			}
		}
	}
	for t, s := range res.ThroatInvSeq {
		if s > 0 && res.ThroatInvSat[t] > finalSat {
			finalSat = res.ThroatInvSat[t]
		}
	}

	summary := runSummary{
		Name:         name,
		RunID:        runID,
		Pores:        net.NumPores(),
		Throats:      net.NumThroats(),
		InvadedPores: invaded,
		MaxSeq:       res.MaxSeq,
		Timing:       res.Timing,
		SimTime:      res.SimTime,
		FinalSat:     finalSat,
	}
	if jsonOut {
		return json.NewEncoder(w).Encode(summary)
	}

	fmt.Fprintf(w, "Run %q finished\n", summary.Name)
	fmt.Fprintf(w, "  pores invaded:  %d / %d\n", summary.InvadedPores, summary.Pores)
	fmt.Fprintf(w, "  events:         %d\n", summary.MaxSeq)
	fmt.Fprintf(w, "  saturation:     %.4f\n", summary.FinalSat)
	if summary.Timing {
		fmt.Fprintf(w, "  simulated time: %.6g s\n", summary.SimTime)
	}
	if summary.RunID != 0 {
		fmt.Fprintf(w, "  stored as run:  %d\n", summary.RunID)
	}
	return nil
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/WenbinFei/openpnm/internal/export"
	"github.com/WenbinFei/openpnm/internal/store"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a stored run as Arrow IPC files",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbDir, _ := cmd.Flags().GetString("db")
			id, _ := cmd.Flags().GetInt64("id")
			outDir, _ := cmd.Flags().GetString("out")

			runStore, err := store.OpenRunStore(dbDir)
			if err != nil {
				return err
			}
			defer runStore.Close()

			rec, err := runStore.LoadRun(context.Background(), id)
			if err != nil {
				return err
			}
			if err := export.Arrow(outDir, rec.Results); err != nil {
				return err
			}

			fmt.Printf("run %d (%s) exported to %s\n", rec.ID, rec.Name, outDir)
			return nil
		},
	}

	cmd.Flags().String("db", ".", "Directory of the run database")
	cmd.Flags().Int64("id", 0, "Run id to export (required)")
	cmd.Flags().String("out", ".", "Output directory for the Arrow files")
	cmd.MarkFlagRequired("id")
	return cmd
}

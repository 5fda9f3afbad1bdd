package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/WenbinFei/openpnm/internal/store"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbDir, _ := cmd.Flags().GetString("db")
			jsonOut, _ := cmd.Flags().GetBool("json")

			runStore, err := store.OpenRunStore(dbDir)
			if err != nil {
				return err
			}
			defer runStore.Close()

			runs, err := runStore.ListRuns(context.Background())
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(runs)
			}
			if len(runs) == 0 {
				fmt.Println("no stored runs")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCREATED\tMODE\tEVENTS\tPORES\tTHROATS")
			for _, r := range runs {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\t%d\n",
					r.ID, r.Name, r.CreatedAt.Format(time.RFC3339),
					r.EndCondition, r.MaxSeq, r.NumPores, r.NumThroats)
			}
			return w.Flush()
		},
	}

	cmd.Flags().String("db", ".", "Directory of the run database")
	return cmd
}

// Package export writes invasion results as Arrow IPC files for analysis
// in external tooling (pandas, polars, duckdb).
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/WenbinFei/openpnm/internal/percolation"
)

// Arrow writes dir/pores.arrow and dir/throats.arrow for the given run.
// The inv_time column is present only on timed runs. Run-level facts
// (max_seq, sim_time, timing) travel as schema metadata.
func Arrow(dir string, res *percolation.Results) error {
	if res == nil {
		return fmt.Errorf("export: nil results")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	if err := writePores(filepath.Join(dir, "pores.arrow"), res); err != nil {
		return err
	}
	return writeThroats(filepath.Join(dir, "throats.arrow"), res)
}

func runMetadata(res *percolation.Results) arrow.Metadata {
	keys := []string{"max_seq", "timing"}
	vals := []string{strconv.Itoa(res.MaxSeq), strconv.FormatBool(res.Timing)}
	if res.Timing {
		keys = append(keys, "sim_time")
		vals = append(vals, strconv.FormatFloat(res.SimTime, 'g', -1, 64))
	}
	return arrow.NewMetadata(keys, vals)
}

func writePores(path string, res *percolation.Results) error {
	fields := []arrow.Field{
		{Name: "pore", Type: arrow.PrimitiveTypes.Int64},
		{Name: "cluster_final", Type: arrow.PrimitiveTypes.Int64},
		{Name: "cluster_original", Type: arrow.PrimitiveTypes.Int64},
		{Name: "inv_seq", Type: arrow.PrimitiveTypes.Int64},
		{Name: "inv_sat", Type: arrow.PrimitiveTypes.Float64},
	}
	if res.Timing {
		fields = append(fields, arrow.Field{Name: "inv_time", Type: arrow.PrimitiveTypes.Float64})
	}
	md := runMetadata(res)
	schema := arrow.NewSchema(fields, &md)

	pool := memory.NewGoAllocator()
	b := array.NewRecordBuilder(pool, schema)
	defer b.Release()

	n := len(res.PoreInvSeq)
	appendIndex(b.Field(0).(*array.Int64Builder), n)
	appendInts(b.Field(1).(*array.Int64Builder), res.PoreClusterFinal)
	appendInts(b.Field(2).(*array.Int64Builder), res.PoreClusterOriginal)
	appendInts(b.Field(3).(*array.Int64Builder), res.PoreInvSeq)
	b.Field(4).(*array.Float64Builder).AppendValues(res.PoreInvSat, nil)
	if res.Timing {
		b.Field(5).(*array.Float64Builder).AppendValues(res.PoreInvTime, nil)
	}

	return writeRecord(path, schema, b)
}

func writeThroats(path string, res *percolation.Results) error {
	fields := []arrow.Field{
		{Name: "throat", Type: arrow.PrimitiveTypes.Int64},
		{Name: "cluster_final", Type: arrow.PrimitiveTypes.Int64},
		{Name: "inv_seq", Type: arrow.PrimitiveTypes.Int64},
		{Name: "inv_sat", Type: arrow.PrimitiveTypes.Float64},
	}
	if res.Timing {
		fields = append(fields, arrow.Field{Name: "inv_time", Type: arrow.PrimitiveTypes.Float64})
	}
	md := runMetadata(res)
	schema := arrow.NewSchema(fields, &md)

	pool := memory.NewGoAllocator()
	b := array.NewRecordBuilder(pool, schema)
	defer b.Release()

	n := len(res.ThroatInvSeq)
	appendIndex(b.Field(0).(*array.Int64Builder), n)
	appendInts(b.Field(1).(*array.Int64Builder), res.ThroatClusterFinal)
	appendInts(b.Field(2).(*array.Int64Builder), res.ThroatInvSeq)
	b.Field(3).(*array.Float64Builder).AppendValues(res.ThroatInvSat, nil)
	if res.Timing {
		b.Field(4).(*array.Float64Builder).AppendValues(res.ThroatInvTime, nil)
	}

	return writeRecord(path, schema, b)
}

func appendIndex(b *array.Int64Builder, n int) {
	for i := 0; i < n; i++ {
		b.Append(int64(i))
	}
}

func appendInts(b *array.Int64Builder, vals []int) {
	for _, v := range vals {
		b.Append(int64(v))
	}
}

func writeRecord(path string, schema *arrow.Schema, b *array.RecordBuilder) error {
	rec := b.NewRecord()
	defer rec.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer f.Close()

	w, err := ipc.NewFileWriter(f, ipc.WithSchema(schema))
	if err != nil {
		return fmt.Errorf("export: %s: %w", path, err)
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		return fmt.Errorf("export: %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("export: %s: %w", path, err)
	}
	return nil
}

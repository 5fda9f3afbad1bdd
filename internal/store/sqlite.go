package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/WenbinFei/openpnm/internal/config"
	"github.com/WenbinFei/openpnm/internal/percolation"
)

// RunMeta summarizes a stored run without its result arrays.
type RunMeta struct {
	ID           int64
	Name         string
	CreatedAt    time.Time
	EndCondition config.EndCondition
	Timing       bool
	InletFlow    float64
	MaxSeq       int
	SimTime      float64
	NumPores     int
	NumThroats   int
}

// RunRecord is a stored run with its full result arrays.
type RunRecord struct {
	RunMeta
	Results *percolation.Results
}

// ErrRunNotFound is returned by LoadRun and DeleteRun for unknown run ids.
var ErrRunNotFound = fmt.Errorf("run not found")

// RunStore persists invasion runs in a SQLite database.
type RunStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewRunStore opens (or creates) the run database at dir/invasion.db.
func NewRunStore(dir string) (*RunStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	dbPath := filepath.Join(dir, "invasion.db")

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &RunStore{db: db, dbPath: dbPath}, nil
}

// OpenRunStore opens an existing run database at dir/invasion.db. Unlike
// NewRunStore it refuses to create one, so read-only callers cannot leave an
// empty database behind.
func OpenRunStore(dir string) (*RunStore, error) {
	dbPath := filepath.Join(dir, "invasion.db")
	if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no run database at %s", dbPath)
		}
		return nil, fmt.Errorf("failed to stat database: %w", err)
	}
	return NewRunStore(dir)
}

// SaveRun stores a completed run and returns its id.
func (s *RunStore) SaveRun(ctx context.Context, name string, cfg config.RunConfig, res *percolation.Results) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if res == nil {
		return 0, fmt.Errorf("nil results")
	}
	if name == "" {
		name = "run"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs (name, created_at, end_condition, timing, inlet_flow,
		                  max_seq, sim_time, num_pores, num_throats)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		name,
		time.Now().UTC().Format(time.RFC3339),
		string(cfg.EndCondition),
		boolToInt(res.Timing),
		cfg.InletFlow,
		res.MaxSeq,
		res.SimTime,
		len(res.PoreInvSeq),
		len(res.ThroatInvSeq),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	poreStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pore_results (run_id, pore, cluster_final, cluster_original,
		                          inv_seq, inv_time, inv_sat)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare pore insert: %w", err)
	}
	defer poreStmt.Close()

	for p := range res.PoreInvSeq {
		if _, err := poreStmt.ExecContext(ctx, runID, p,
			res.PoreClusterFinal[p], res.PoreClusterOriginal[p],
			res.PoreInvSeq[p], timeValue(res, res.PoreInvTime, p), res.PoreInvSat[p]); err != nil {
			return 0, fmt.Errorf("failed to insert pore %d: %w", p, err)
		}
	}

	throatStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO throat_results (run_id, throat, cluster_final, inv_seq, inv_time, inv_sat)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare throat insert: %w", err)
	}
	defer throatStmt.Close()

	for t := range res.ThroatInvSeq {
		if _, err := throatStmt.ExecContext(ctx, runID, t,
			res.ThroatClusterFinal[t], res.ThroatInvSeq[t],
			timeValue(res, res.ThroatInvTime, t), res.ThroatInvSat[t]); err != nil {
			return 0, fmt.Errorf("failed to insert throat %d: %w", t, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// LoadRun returns a stored run with its full result arrays.
func (s *RunStore) LoadRun(ctx context.Context, id int64) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, err := s.loadMeta(ctx, id)
	if err != nil {
		return nil, err
	}

	res := &percolation.Results{
		PoreClusterFinal:    make([]int, meta.NumPores),
		PoreClusterOriginal: make([]int, meta.NumPores),
		PoreInvSeq:          make([]int, meta.NumPores),
		PoreInvSat:          make([]float64, meta.NumPores),
		ThroatClusterFinal:  make([]int, meta.NumThroats),
		ThroatInvSeq:        make([]int, meta.NumThroats),
		ThroatInvSat:        make([]float64, meta.NumThroats),
		MaxSeq:              meta.MaxSeq,
		SimTime:             meta.SimTime,
		Timing:              meta.Timing,
	}
	if meta.Timing {
		res.PoreInvTime = make([]float64, meta.NumPores)
		res.ThroatInvTime = make([]float64, meta.NumThroats)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT pore, cluster_final, cluster_original, inv_seq, inv_time, inv_sat
		FROM pore_results WHERE run_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query pore results: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p int
		var invTime sql.NullFloat64
		var cf, co, seq int
		var sat float64
		if err := rows.Scan(&p, &cf, &co, &seq, &invTime, &sat); err != nil {
			return nil, fmt.Errorf("failed to scan pore row: %w", err)
		}
		if p < 0 || p >= meta.NumPores {
			return nil, fmt.Errorf("pore index %d out of range for run %d", p, id)
		}
		res.PoreClusterFinal[p] = cf
		res.PoreClusterOriginal[p] = co
		res.PoreInvSeq[p] = seq
		res.PoreInvSat[p] = sat
		if meta.Timing && invTime.Valid {
			res.PoreInvTime[p] = invTime.Float64
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pore results: %w", err)
	}

	tRows, err := s.db.QueryContext(ctx, `
		SELECT throat, cluster_final, inv_seq, inv_time, inv_sat
		FROM throat_results WHERE run_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query throat results: %w", err)
	}
	defer tRows.Close()
	for tRows.Next() {
		var t, cf, seq int
		var invTime sql.NullFloat64
		var sat float64
		if err := tRows.Scan(&t, &cf, &seq, &invTime, &sat); err != nil {
			return nil, fmt.Errorf("failed to scan throat row: %w", err)
		}
		if t < 0 || t >= meta.NumThroats {
			return nil, fmt.Errorf("throat index %d out of range for run %d", t, id)
		}
		res.ThroatClusterFinal[t] = cf
		res.ThroatInvSeq[t] = seq
		res.ThroatInvSat[t] = sat
		if meta.Timing && invTime.Valid {
			res.ThroatInvTime[t] = invTime.Float64
		}
	}
	if err := tRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read throat results: %w", err)
	}

	return &RunRecord{RunMeta: *meta, Results: res}, nil
}

// ListRuns returns the metadata of all stored runs, newest first.
func (s *RunStore) ListRuns(ctx context.Context) ([]RunMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at, end_condition, timing, inlet_flow,
		       max_seq, sim_time, num_pores, num_throats
		FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunMeta
	for rows.Next() {
		meta, err := scanMeta(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	return out, nil
}

// DeleteRun removes a stored run and its result rows.
func (s *RunStore) DeleteRun(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	return nil
}

// Close closes the underlying database.
func (s *RunStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func (s *RunStore) loadMeta(ctx context.Context, id int64) (*RunMeta, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, end_condition, timing, inlet_flow,
		       max_seq, sim_time, num_pores, num_throats
		FROM runs WHERE id = ?`, id)
	meta, err := scanMeta(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	return meta, err
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeta(r rowScanner) (*RunMeta, error) {
	var meta RunMeta
	var createdAt, endCondition string
	var timing int
	if err := r.Scan(&meta.ID, &meta.Name, &createdAt, &endCondition, &timing,
		&meta.InletFlow, &meta.MaxSeq, &meta.SimTime, &meta.NumPores, &meta.NumThroats); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run row: %w", err)
	}
	meta.EndCondition = config.EndCondition(endCondition)
	meta.Timing = timing != 0
	if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
		meta.CreatedAt = ts
	}
	return &meta, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// timeValue returns the element's invasion time or NULL on untimed runs.
func timeValue(res *percolation.Results, times []float64, i int) any {
	if !res.Timing || times == nil {
		return nil
	}
	return times[i]
}

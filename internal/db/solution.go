package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/viewplan/internal/config"
	"github.com/banshee-data/viewplan/internal/model"
)

// ErrNotFound is returned when a solution does not exist.
var ErrNotFound = errors.New("db: not found")

// Experiment is the stored description of a planning problem.
type Experiment struct {
	ID        string
	Name      string
	Dim       int
	Radius    float64
	PitchMin  float64
	PitchMax  float64
	Edge      config.EdgeStrategy
	Sampling  config.SamplingConfig
	Regions   []config.RegionConfig
	CreatedAt time.Time
}

// Edge is the stored summary of one tour segment. Seq 0 joins the last
// stop to the first.
type Edge struct {
	Seq      int
	Length   float64
	Degraded bool
}

// Solution is a validated tour for an experiment.
type Solution struct {
	ID            string
	Experiment    Experiment
	Cost          float64
	ReportedCost  int64
	ExecutionTime time.Duration
	Samples       int
	Degraded      bool
	CreatedAt     time.Time
	Stops         []model.Configuration
	Edges         []Edge
}

// SaveSolution writes s, its experiment, stops and edges in a single
// transaction. The experiment row is written once per experiment ID.
func (db *DB) SaveSolution(ctx context.Context, s *Solution) error {
	edgeJSON, err := json.Marshal(s.Experiment.Edge)
	if err != nil {
		return fmt.Errorf("failed to encode edge strategy: %w", err)
	}
	samplingJSON, err := json.Marshal(s.Experiment.Sampling)
	if err != nil {
		return fmt.Errorf("failed to encode sampling: %w", err)
	}
	regionsJSON, err := json.Marshal(s.Experiment.Regions)
	if err != nil {
		return fmt.Errorf("failed to encode regions: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	e := s.Experiment
	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO experiments (
			experiment_id, name, dim, radius, pitch_min, pitch_max,
			edge_json, sampling_json, regions_json, created_unix_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.Dim, e.Radius, e.PitchMin, e.PitchMax,
		string(edgeJSON), string(samplingJSON), string(regionsJSON), e.CreatedAt.UnixNano(),
	); err != nil {
		return fmt.Errorf("failed to insert experiment: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO solutions (
			solution_id, experiment_id, cost, reported_cost, execution_time_ns,
			samples, degraded, created_unix_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, e.ID, s.Cost, s.ReportedCost, int64(s.ExecutionTime),
		s.Samples, s.Degraded, s.CreatedAt.UnixNano(),
	); err != nil {
		return fmt.Errorf("failed to insert solution: %w", err)
	}

	stopStmt, err := tx.PrepareContext(ctx, `INSERT INTO solution_stops (
			solution_id, seq, config_id, grp, dim, x, y, z, heading, pitch, visits_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare stop insert: %w", err)
	}
	defer stopStmt.Close()
	for i, c := range s.Stops {
		var visits sql.NullString
		if c.IsMulti() {
			b, err := json.Marshal(c.Visits)
			if err != nil {
				return fmt.Errorf("failed to encode visits: %w", err)
			}
			visits = sql.NullString{String: string(b), Valid: true}
		}
		if _, err := stopStmt.ExecContext(ctx, s.ID, i, c.ID, c.Group, c.Dim, c.X, c.Y, c.Z, c.Heading, c.Pitch, visits); err != nil {
			return fmt.Errorf("failed to insert stop %d: %w", i, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx, `INSERT INTO solution_edges (solution_id, seq, length, degraded) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare edge insert: %w", err)
	}
	defer edgeStmt.Close()
	for _, ed := range s.Edges {
		if _, err := edgeStmt.ExecContext(ctx, s.ID, ed.Seq, ed.Length, ed.Degraded); err != nil {
			return fmt.Errorf("failed to insert edge %d: %w", ed.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit solution: %w", err)
	}
	return nil
}

const solutionColumns = `s.solution_id, s.cost, s.reported_cost, s.execution_time_ns, s.samples,
	s.degraded, s.created_unix_ns, e.experiment_id, e.name, e.dim, e.radius,
	e.pitch_min, e.pitch_max, e.edge_json, e.sampling_json, e.regions_json, e.created_unix_ns`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSolution(r rowScanner) (*Solution, error) {
	var (
		s                               Solution
		execNs, createdNs, expCreated   int64
		edgeJSON, samplingJSON, regJSON string
	)
	if err := r.Scan(
		&s.ID, &s.Cost, &s.ReportedCost, &execNs, &s.Samples,
		&s.Degraded, &createdNs, &s.Experiment.ID, &s.Experiment.Name, &s.Experiment.Dim, &s.Experiment.Radius,
		&s.Experiment.PitchMin, &s.Experiment.PitchMax, &edgeJSON, &samplingJSON, &regJSON, &expCreated,
	); err != nil {
		return nil, err
	}
	s.ExecutionTime = time.Duration(execNs)
	s.CreatedAt = time.Unix(0, createdNs).UTC()
	s.Experiment.CreatedAt = time.Unix(0, expCreated).UTC()
	if err := json.Unmarshal([]byte(edgeJSON), &s.Experiment.Edge); err != nil {
		return nil, fmt.Errorf("failed to decode edge strategy: %w", err)
	}
	if err := json.Unmarshal([]byte(samplingJSON), &s.Experiment.Sampling); err != nil {
		return nil, fmt.Errorf("failed to decode sampling: %w", err)
	}
	if err := json.Unmarshal([]byte(regJSON), &s.Experiment.Regions); err != nil {
		return nil, fmt.Errorf("failed to decode regions: %w", err)
	}
	return &s, nil
}

// GetSolution loads a solution with its stops and edges.
func (db *DB) GetSolution(ctx context.Context, id string) (*Solution, error) {
	row := db.QueryRowContext(ctx, `SELECT `+solutionColumns+`
		FROM solutions s JOIN experiments e ON e.experiment_id = s.experiment_id
		WHERE s.solution_id = ?`, id)
	s, err := scanSolution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: solution %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load solution %s: %w", id, err)
	}

	if s.Stops, err = db.stops(ctx, id); err != nil {
		return nil, err
	}
	if s.Edges, err = db.edges(ctx, id); err != nil {
		return nil, err
	}
	return s, nil
}

func (db *DB) stops(ctx context.Context, id string) ([]model.Configuration, error) {
	rows, err := db.QueryContext(ctx, `SELECT config_id, grp, dim, x, y, z, heading, pitch, visits_json
		FROM solution_stops WHERE solution_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query stops: %w", err)
	}
	defer rows.Close()

	var out []model.Configuration
	for rows.Next() {
		var (
			c      model.Configuration
			visits sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Group, &c.Dim, &c.X, &c.Y, &c.Z, &c.Heading, &c.Pitch, &visits); err != nil {
			return nil, fmt.Errorf("failed to scan stop: %w", err)
		}
		if visits.Valid {
			if err := json.Unmarshal([]byte(visits.String), &c.Visits); err != nil {
				return nil, fmt.Errorf("failed to decode visits: %w", err)
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (db *DB) edges(ctx context.Context, id string) ([]Edge, error) {
	rows, err := db.QueryContext(ctx, `SELECT seq, length, degraded FROM solution_edges
		WHERE solution_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	var out []Edge
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.Seq, &e.Length, &e.Degraded); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListSolutions returns solution summaries, newest first, without stops and
// edges. An empty name lists every experiment. A non-positive limit
// defaults to 100.
func (db *DB) ListSolutions(ctx context.Context, name string, limit int) ([]Solution, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, `SELECT `+solutionColumns+`
		FROM solutions s JOIN experiments e ON e.experiment_id = s.experiment_id
		WHERE ? = '' OR e.name = ?
		ORDER BY s.created_unix_ns DESC, s.solution_id
		LIMIT ?`, name, name, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list solutions: %w", err)
	}
	defer rows.Close()

	var out []Solution
	for rows.Next() {
		s, err := scanSolution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan solution: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

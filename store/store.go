// Package store persists raw records and localization runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	rtls "github.com/milosgajdos/go-rtls"
	"github.com/milosgajdos/go-rtls/pipeline"
	"github.com/milosgajdos/go-rtls/record"
	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned when a run does not exist
var ErrRunNotFound = errors.New("run not found")

// Run is a stored pipeline run summary
type Run struct {
	ID          uuid.UUID
	CreatedAt   time.Time
	Total       int
	Parsed      int
	Dropped     int
	Logical     int
	SemiLogical int
	Discarded   int
	Degenerate  int
}

// Position is a stored position of a run
type Position struct {
	RecordIndex int
	Timestamp   int64
	TagID       string
	Raw         rtls.Point
	Smoothed    rtls.Point
	Degenerate  bool
}

// Store is SQLite backed storage
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

// Open opens the database at path and migrates it to the latest schema.
// Nil logger discards log messages.
func Open(path string, logger *log.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	s := &Store{db: db, logger: logger}

	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertRecords stores raw records
func (s *Store) InsertRecords(ctx context.Context, records []record.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (timestamp, nearest, instance_id) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Timestamp, r.Nearest, r.InstanceID); err != nil {
			return fmt.Errorf("failed to insert record %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Range bounds record timestamps. Both bounds are inclusive; a nil bound is open.
type Range struct {
	From *int64
	To   *int64
}

// Records returns stored records within r ordered by timestamp and insertion order.
func (s *Store) Records(ctx context.Context, r Range) ([]record.Record, error) {
	query := `SELECT timestamp, nearest, instance_id FROM records`

	var (
		conds []string
		args  []interface{}
	)
	if r.From != nil {
		conds = append(conds, `timestamp >= ?`)
		args = append(args, *r.From)
	}
	if r.To != nil {
		conds = append(conds, `timestamp <= ?`)
		args = append(args, *r.To)
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY timestamp, record_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []record.Record
	for rows.Next() {
		var r record.Record
		if err := rows.Scan(&r.Timestamp, &r.Nearest, &r.InstanceID); err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// SaveRun stores the report and positions of res under a new run id and returns it.
func (s *Store) SaveRun(ctx context.Context, res *pipeline.Result) (uuid.UUID, error) {
	if res == nil {
		return uuid.Nil, fmt.Errorf("missing result")
	}

	id := uuid.New()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, err
	}
	defer tx.Rollback()

	r := res.Report
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, created_at, total, parsed, dropped, logical, semi_logical, discarded, degenerate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), time.Now().UTC().UnixNano(),
		r.Total, r.Parsed, r.Dropped, r.Logical, r.SemiLogical, r.Discarded, r.Degenerate)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO positions (run_id, seq, record_index, timestamp, tag_id, raw_x, raw_y, smoothed_x, smoothed_y, degenerate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return uuid.Nil, err
	}
	defer stmt.Close()

	for i, p := range res.Positions {
		o := p.Observation
		_, err := stmt.ExecContext(ctx, id.String(), i, o.Index, o.Timestamp, o.TagID,
			p.Raw.X, p.Raw.Y, p.Smoothed.X, p.Smoothed.Y, p.Degenerate)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to insert position %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, err
	}

	s.logger.Printf("saved run %s with %d positions", id, len(res.Positions))

	return id, nil
}

// Runs returns stored runs, most recent first
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, created_at, total, parsed, dropped, logical, semi_logical, discarded, degenerate
		FROM runs ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Run returns the run with the given id.
// It returns error wrapping ErrRunNotFound if the run does not exist.
func (s *Store) Run(ctx context.Context, id uuid.UUID) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, created_at, total, parsed, dropped, logical, semi_logical, discarded, degenerate
		FROM runs WHERE run_id = ?`, id.String())

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	return run, err
}

// Positions returns the positions of the run with the given id in trajectory order
func (s *Store) Positions(ctx context.Context, id uuid.UUID) ([]Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT record_index, timestamp, tag_id, raw_x, raw_y, smoothed_x, smoothed_y, degenerate
		FROM positions WHERE run_id = ? ORDER BY seq`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []Position
	for rows.Next() {
		var p Position
		if err := rows.Scan(&p.RecordIndex, &p.Timestamp, &p.TagID,
			&p.Raw.X, &p.Raw.Y, &p.Smoothed.X, &p.Smoothed.Y, &p.Degenerate); err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}

	return positions, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run     Run
		id      string
		created int64
	)

	err := row.Scan(&id, &created, &run.Total, &run.Parsed, &run.Dropped,
		&run.Logical, &run.SemiLogical, &run.Discarded, &run.Degenerate)
	if err != nil {
		return Run{}, err
	}

	run.ID, err = uuid.Parse(id)
	if err != nil {
		return Run{}, fmt.Errorf("invalid run id %q: %w", id, err)
	}
	run.CreatedAt = time.Unix(0, created).UTC()

	return run, nil
}

// Package ledger tracks which (entity, period) documents have already been
// scored, so repeated runs skip work, plus a history of pipeline runs. State
// lives in SQLite under the data directory.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"callsense/internal/config"
)

// Key identifies one document in the ledger.
type Key struct {
	Entity string `json:"entity"`
	Period string `json:"period"`
}

// Record is one processed-document row.
type Record struct {
	Entity      string         `json:"entity"`
	Period      string         `json:"period"`
	ProcessedAt time.Time      `json:"processed_at"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// RunStats summarizes one pipeline run for the history table.
type RunStats struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Entities   int
	Documents  int
	Failures   int
}

// RunRecord is one row of run history.
type RunRecord struct {
	Kind       string    `json:"kind"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Entities   int       `json:"entities"`
	Documents  int       `json:"documents"`
	Failures   int       `json:"failures"`
}

// Summary aggregates ledger state for status reporting.
type Summary struct {
	TotalDocuments  int            `json:"total_documents"`
	PerEntity       map[string]int `json:"per_entity"`
	LastFull        *RunRecord     `json:"last_full,omitempty"`
	LastIncremental *RunRecord     `json:"last_incremental,omitempty"`
	LastSingle      *RunRecord     `json:"last_single,omitempty"`
}

// Store manages ledger persistence backed by SQLite. A single writer is
// assumed; the pipeline's run lock provides that.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.LedgerPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// IsProcessed reports whether the document has been scored before.
func (s *Store) IsProcessed(ctx context.Context, entity, period string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM processed_documents WHERE entity = ? AND period = ?",
		entity, period,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query processed: %w", err)
	}
	return count > 0, nil
}

// Mark upserts one processed document with the current timestamp.
func (s *Store) Mark(ctx context.Context, entity, period string, metadata map[string]any) error {
	metaJSON, err := encodeMetadata(metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO processed_documents (entity, period, processed_at, metadata_json)
         VALUES (?, ?, ?, ?)
         ON CONFLICT (entity, period) DO UPDATE SET
             processed_at = excluded.processed_at,
             metadata_json = excluded.metadata_json`,
		entity, period, time.Now().UTC().Format(time.RFC3339), metaJSON,
	)
	if err != nil {
		return fmt.Errorf("mark %s %s: %w", entity, period, err)
	}
	return nil
}

// MarkBatch upserts several documents in one transaction.
func (s *Store) MarkBatch(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mark batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	timestamp := time.Now().UTC().Format(time.RFC3339)
	for _, rec := range records {
		metaJSON, err := encodeMetadata(rec.Metadata)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO processed_documents (entity, period, processed_at, metadata_json)
             VALUES (?, ?, ?, ?)
             ON CONFLICT (entity, period) DO UPDATE SET
                 processed_at = excluded.processed_at,
                 metadata_json = excluded.metadata_json`,
			rec.Entity, rec.Period, timestamp, metaJSON,
		); err != nil {
			return fmt.Errorf("mark %s %s: %w", rec.Entity, rec.Period, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mark batch: %w", err)
	}
	return nil
}

// Unprocessed filters the given keys down to those not yet in the ledger,
// preserving input order.
func (s *Store) Unprocessed(ctx context.Context, keys []Key) ([]Key, error) {
	var pending []Key
	for _, key := range keys {
		done, err := s.IsProcessed(ctx, key.Entity, key.Period)
		if err != nil {
			return nil, err
		}
		if !done {
			pending = append(pending, key)
		}
	}
	return pending, nil
}

// EntityStatus returns the processed rows for one entity, newest first.
func (s *Store) EntityStatus(ctx context.Context, entity string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entity, period, processed_at, metadata_json
         FROM processed_documents WHERE entity = ? ORDER BY processed_at DESC`,
		entity,
	)
	if err != nil {
		return nil, fmt.Errorf("query entity status: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ClearEntity removes an entity's rows and returns how many were deleted.
func (s *Store) ClearEntity(ctx context.Context, entity string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM processed_documents WHERE entity = ?", entity)
	if err != nil {
		return 0, fmt.Errorf("clear entity %s: %w", entity, err)
	}
	return res.RowsAffected()
}

// ClearAll removes every processed row.
func (s *Store) ClearAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM processed_documents")
	if err != nil {
		return 0, fmt.Errorf("clear ledger: %w", err)
	}
	return res.RowsAffected()
}

// RecordRun appends one run to the history.
func (s *Store) RecordRun(ctx context.Context, kind string, stats RunStats) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (kind, started_at, finished_at, entities, documents, failures)
         VALUES (?, ?, ?, ?, ?, ?)`,
		kind,
		stats.StartedAt.UTC().Format(time.RFC3339),
		stats.FinishedAt.UTC().Format(time.RFC3339),
		stats.Entities, stats.Documents, stats.Failures,
	)
	if err != nil {
		return fmt.Errorf("record %s run: %w", kind, err)
	}
	return nil
}

// Summary aggregates ledger totals and the most recent run of each kind.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	summary := Summary{PerEntity: make(map[string]int)}

	rows, err := s.db.QueryContext(ctx,
		"SELECT entity, COUNT(1) FROM processed_documents GROUP BY entity")
	if err != nil {
		return Summary{}, fmt.Errorf("query per-entity counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var entity string
		var count int
		if err := rows.Scan(&entity, &count); err != nil {
			return Summary{}, fmt.Errorf("scan entity count: %w", err)
		}
		summary.PerEntity[entity] = count
		summary.TotalDocuments += count
	}
	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("iterate entity counts: %w", err)
	}

	for kind, target := range map[string]**RunRecord{
		"full":        &summary.LastFull,
		"incremental": &summary.LastIncremental,
		"single":      &summary.LastSingle,
	} {
		run, err := s.lastRun(ctx, kind)
		if err != nil {
			return Summary{}, err
		}
		*target = run
	}
	return summary, nil
}

func (s *Store) lastRun(ctx context.Context, kind string) (*RunRecord, error) {
	var (
		run      RunRecord
		started  string
		finished string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT kind, started_at, finished_at, entities, documents, failures
         FROM runs WHERE kind = ? ORDER BY id DESC LIMIT 1`,
		kind,
	).Scan(&run.Kind, &started, &finished, &run.Entities, &run.Documents, &run.Failures)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last %s run: %w", kind, err)
	}
	run.StartedAt, _ = time.Parse(time.RFC3339, started)
	run.FinishedAt, _ = time.Parse(time.RFC3339, finished)
	return &run, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var (
			rec       Record
			processed string
			metaJSON  sql.NullString
		)
		if err := rows.Scan(&rec.Entity, &rec.Period, &processed, &metaJSON); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.ProcessedAt, _ = time.Parse(time.RFC3339, processed)
		if metaJSON.Valid && metaJSON.String != "" {
			if err := json.Unmarshal([]byte(metaJSON.String), &rec.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for %s %s: %w", rec.Entity, rec.Period, err)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

func encodeMetadata(metadata map[string]any) (any, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return string(data), nil
}

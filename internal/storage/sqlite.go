package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/homesight/homesight/pkg/models"
)

// SQLStore persists the snapshot in SQLite. Each save replaces the
// whole snapshot inside one transaction, matching the file store's
// all-or-nothing semantics.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore opens (and migrates) a SQLite-backed store
func NewSQLStore(dbPath string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS snapshot_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			schema_version INTEGER NOT NULL,
			last_scan DATETIME
		)`,

		`CREATE TABLE IF NOT EXISTS insights (
			id TEXT NOT NULL,
			collection TEXT NOT NULL CHECK (collection IN ('active','dismissed','implemented')),
			position INTEGER NOT NULL,
			record TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS insight_history (
			insight_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			record TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_insights_collection ON insights(collection, position)`,
		`CREATE INDEX IF NOT EXISTS idx_history_insight ON insight_history(insight_id, position)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) Load() (*Snapshot, error) {
	row := s.db.QueryRow(`SELECT schema_version, last_scan FROM snapshot_meta WHERE id = 1`)

	snap := &Snapshot{History: make(map[string][]models.Insight)}
	var lastScan sql.NullTime
	err := row.Scan(&snap.SchemaVersion, &lastScan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot meta: %w", err)
	}
	if lastScan.Valid {
		snap.LastScan = lastScan.Time
	}

	rows, err := s.db.Query(`SELECT collection, record FROM insights ORDER BY collection, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to load insights: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var collection, record string
		if err := rows.Scan(&collection, &record); err != nil {
			return nil, err
		}
		var in models.Insight
		if err := json.Unmarshal([]byte(record), &in); err != nil {
			return nil, fmt.Errorf("failed to decode insight record: %w", err)
		}
		switch collection {
		case "active":
			snap.Insights = append(snap.Insights, in)
		case "dismissed":
			snap.Dismissed = append(snap.Dismissed, in)
		case "implemented":
			snap.Implemented = append(snap.Implemented, in)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	histRows, err := s.db.Query(`SELECT insight_id, record FROM insight_history ORDER BY insight_id, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer histRows.Close()

	for histRows.Next() {
		var insightID, record string
		if err := histRows.Scan(&insightID, &record); err != nil {
			return nil, err
		}
		var in models.Insight
		if err := json.Unmarshal([]byte(record), &in); err != nil {
			return nil, fmt.Errorf("failed to decode history record: %w", err)
		}
		snap.History[insightID] = append(snap.History[insightID], in)
	}
	if err := histRows.Err(); err != nil {
		return nil, err
	}

	return snap, nil
}

func (s *SQLStore) Save(snap *Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin save: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM snapshot_meta`,
		`DELETE FROM insights`,
		`DELETE FROM insight_history`,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to clear snapshot: %w", err)
		}
	}

	var lastScan any
	if !snap.LastScan.IsZero() {
		lastScan = snap.LastScan.UTC().Format(time.RFC3339Nano)
	}
	if _, err := tx.Exec(
		`INSERT INTO snapshot_meta (id, schema_version, last_scan) VALUES (1, ?, ?)`,
		SchemaVersion, lastScan,
	); err != nil {
		return fmt.Errorf("failed to write snapshot meta: %w", err)
	}

	insert := func(collection string, insights []models.Insight) error {
		for i, in := range insights {
			record, err := json.Marshal(in)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(
				`INSERT INTO insights (id, collection, position, record) VALUES (?, ?, ?, ?)`,
				in.ID, collection, i, string(record),
			); err != nil {
				return err
			}
		}
		return nil
	}

	if err := insert("active", snap.Insights); err != nil {
		return fmt.Errorf("failed to write insights: %w", err)
	}
	if err := insert("dismissed", snap.Dismissed); err != nil {
		return fmt.Errorf("failed to write dismissed insights: %w", err)
	}
	if err := insert("implemented", snap.Implemented); err != nil {
		return fmt.Errorf("failed to write implemented insights: %w", err)
	}

	for insightID, versions := range snap.History {
		for i, in := range versions {
			record, err := json.Marshal(in)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(
				`INSERT INTO insight_history (insight_id, position, record) VALUES (?, ?, ?)`,
				insightID, i, string(record),
			); err != nil {
				return fmt.Errorf("failed to write history: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

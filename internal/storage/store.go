// Package storage implements the persistence boundary: three logical
// records (singleton position, singleton command, bounded status log)
// kept in SQLite with atomic single-statement writes.
package storage

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_meta (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS latest_target (
	id          INTEGER PRIMARY KEY CHECK (id = 1),
	lat         REAL,
	lon         REAL,
	accuracy    REAL,
	created_at  INTEGER,
	request_id  TEXT
);

CREATE TABLE IF NOT EXISTS command_slot (
	id          INTEGER PRIMARY KEY CHECK (id = 1),
	command     TEXT NOT NULL DEFAULT 'NONE',
	created_at  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS status_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	message     TEXT NOT NULL,
	created_at  INTEGER NOT NULL
);
`

// TargetRow is the stored vehicle position singleton.
type TargetRow struct {
	Lat       float64
	Lon       float64
	AccuracyM float64
	CreatedAt int64
	RequestID string
}

// CommandRow is the stored maneuver command singleton.
type CommandRow struct {
	Command   string
	CreatedAt int64
}

// StatusRow is one entry of the bounded status log.
type StatusRow struct {
	ID        int64
	Message   string
	CreatedAt int64
}

// Store wraps the SQLite handle and owns all SQL in the process.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema is
// current, seeding the two singleton rows so every later write is a plain
// UPDATE against id=1.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// A single connection serializes all access; it also keeps ":memory:"
	// databases from splitting across pool connections in tests.
	db.SetMaxOpenConns(1)

	if err := bootstrap(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func bootstrap(db *sql.DB) error {
	ver, err := currentSchemaVersion(db)
	if err != nil {
		return fmt.Errorf("check schema version: %w", err)
	}

	if ver < schemaVersion {
		if _, err := db.Exec(schemaV1); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := db.Exec("INSERT INTO schema_meta (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("insert schema version: %w", err)
		}
	}

	// Seed singletons. The position row starts with NULL columns, which is
	// how "no position yet" is represented; the command row starts NONE at
	// epoch 0 so a fresh database already reads as "no command pending".
	if _, err := db.Exec(`
		INSERT OR IGNORE INTO latest_target
		(id, lat, lon, accuracy, created_at, request_id)
		VALUES (1, NULL, NULL, NULL, NULL, NULL)
	`); err != nil {
		return fmt.Errorf("seed target row: %w", err)
	}
	if _, err := db.Exec(`
		INSERT OR IGNORE INTO command_slot (id, command, created_at)
		VALUES (1, 'NONE', 0)
	`); err != nil {
		return fmt.Errorf("seed command row: %w", err)
	}

	return nil
}

// currentSchemaVersion returns the version from schema_meta, or 0 when the
// table does not exist (fresh database).
func currentSchemaVersion(db *sql.DB) (int, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='schema_meta'
	`).Scan(&count)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	var ver int
	err = db.QueryRow("SELECT version FROM schema_meta LIMIT 1").Scan(&ver)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return ver, err
}

// SetTarget overwrites the position singleton wholesale.
func (s *Store) SetTarget(row TargetRow) error {
	_, err := s.db.Exec(`
		UPDATE latest_target
		SET lat = ?, lon = ?, accuracy = ?, created_at = ?, request_id = ?
		WHERE id = 1
	`, row.Lat, row.Lon, row.AccuracyM, row.CreatedAt, row.RequestID)
	if err != nil {
		return fmt.Errorf("update target: %w", err)
	}
	return nil
}

// Target returns the position singleton, or (nil, nil) when no position has
// ever been written.
func (s *Store) Target() (*TargetRow, error) {
	var (
		lat, lon, acc sql.NullFloat64
		createdAt     sql.NullInt64
		requestID     sql.NullString
	)
	err := s.db.QueryRow(`
		SELECT lat, lon, accuracy, created_at, request_id
		FROM latest_target WHERE id = 1
	`).Scan(&lat, &lon, &acc, &createdAt, &requestID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query target: %w", err)
	}
	if !lat.Valid || !lon.Valid {
		return nil, nil
	}
	return &TargetRow{
		Lat:       lat.Float64,
		Lon:       lon.Float64,
		AccuracyM: acc.Float64,
		CreatedAt: createdAt.Int64,
		RequestID: requestID.String,
	}, nil
}

// SetCommand overwrites the command singleton unconditionally. Last writer
// wins; there is no compare-and-swap anywhere in this store.
func (s *Store) SetCommand(row CommandRow) error {
	_, err := s.db.Exec(`
		UPDATE command_slot SET command = ?, created_at = ? WHERE id = 1
	`, row.Command, row.CreatedAt)
	if err != nil {
		return fmt.Errorf("update command: %w", err)
	}
	return nil
}

// Command returns the command singleton. The row always exists after
// bootstrap, so a missing row is a storage failure rather than "no command".
func (s *Store) Command() (*CommandRow, error) {
	var row CommandRow
	err := s.db.QueryRow(`
		SELECT command, created_at FROM command_slot WHERE id = 1
	`).Scan(&row.Command, &row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("query command: %w", err)
	}
	return &row, nil
}

// AppendStatus inserts a status entry and trims the log to the retention
// bound in the same transaction, so concurrent appends never leave more
// than `retain` rows visible.
func (s *Store) AppendStatus(message string, createdAt int64, retain int) (StatusRow, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return StatusRow{}, fmt.Errorf("begin append: %w", err)
	}

	res, err := tx.Exec(`
		INSERT INTO status_log (message, created_at) VALUES (?, ?)
	`, message, createdAt)
	if err != nil {
		_ = tx.Rollback()
		return StatusRow{}, fmt.Errorf("insert status: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return StatusRow{}, fmt.Errorf("status id: %w", err)
	}

	if _, err := tx.Exec(`
		DELETE FROM status_log
		WHERE id NOT IN (SELECT id FROM status_log ORDER BY id DESC LIMIT ?)
	`, retain); err != nil {
		_ = tx.Rollback()
		return StatusRow{}, fmt.Errorf("trim status log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return StatusRow{}, fmt.Errorf("commit append: %w", err)
	}

	return StatusRow{ID: id, Message: message, CreatedAt: createdAt}, nil
}

// RecentStatus returns up to limit entries, newest first.
func (s *Store) RecentStatus(limit int) ([]StatusRow, error) {
	rows, err := s.db.Query(`
		SELECT id, message, created_at
		FROM status_log
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query status log: %w", err)
	}
	defer rows.Close()

	var out []StatusRow
	for rows.Next() {
		var r StatusRow
		if err := rows.Scan(&r.ID, &r.Message, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan status: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// StatusCount returns the number of stored status entries.
func (s *Store) StatusCount() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM status_log").Scan(&n); err != nil {
		return 0, fmt.Errorf("count status log: %w", err)
	}
	return n, nil
}

// Ping verifies the database is reachable, for health reporting.
func (s *Store) Ping() error {
	return s.db.Ping()
}

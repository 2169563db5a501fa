package trace

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - empty database
// 1 - runs and draws tables
const currentSchemaVersion = 1

// SQLite stores one run in a SQLite database file.
type SQLite struct {
	db     *sql.DB
	path   string
	runID  string
	vars   []Var
	n      int
	sealed bool
	closed bool
}

// OpenSQLite creates or reopens the database at path.
//
// The database is configured with:
//   - WAL mode
//   - NORMAL synchronous mode
//   - 5-second busy timeout
//   - Foreign key enforcement
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite trace store needs a path")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// A store is owned by one run; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &SQLite{db: db, path: path}
	if err := s.loadHeader(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file.
func (s *SQLite) Path() string { return s.path }

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

func (s *SQLite) loadHeader() error {
	var (
		varsJSON string
		sealed   int
	)
	err := s.db.QueryRow("SELECT run_id, vars, sealed FROM runs WHERE id = 1").Scan(&s.runID, &varsJSON, &sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read run header: %w", err)
	}
	if err := json.Unmarshal([]byte(varsJSON), &s.vars); err != nil {
		return fmt.Errorf("decode run header: %w", err)
	}
	if s.vars == nil {
		s.vars = []Var{}
	}
	s.sealed = sealed != 0
	if err := s.db.QueryRow("SELECT COUNT(*) FROM draws").Scan(&s.n); err != nil {
		return fmt.Errorf("count draws: %w", err)
	}
	return nil
}

func (s *SQLite) Setup(ctx context.Context, runID string, vars []Var) error {
	if s.closed || s.sealed {
		return ErrClosed
	}
	if s.vars != nil {
		return ErrAlreadySetup
	}
	if vars == nil {
		vars = []Var{}
	}
	varsJSON, err := json.Marshal(vars)
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO runs (id, run_id, vars, sealed) VALUES (1, ?, ?, 0)",
		runID, string(varsJSON),
	)
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	s.runID = runID
	s.vars = append([]Var(nil), vars...)
	return nil
}

func (s *SQLite) Append(ctx context.Context, d Draw) error {
	if s.closed || s.sealed {
		return ErrClosed
	}
	if s.vars == nil {
		return ErrNotSetup
	}
	if err := checkDraw(s.vars, s.n, d); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO draws (idx, data) VALUES (?, ?)",
		s.n, encodeDraw(s.vars, d),
	)
	if err != nil {
		return fmt.Errorf("append draw %d: %w", s.n, err)
	}
	s.n++
	return nil
}

func (s *SQLite) Read(ctx context.Context, i int) (Draw, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.vars == nil {
		return nil, ErrNotSetup
	}
	if i < 0 || i >= s.n {
		return nil, &IndexError{Index: i, Len: s.n}
	}
	var data []byte
	if err := s.db.QueryRowContext(ctx, "SELECT data FROM draws WHERE idx = ?", i).Scan(&data); err != nil {
		return nil, fmt.Errorf("read draw %d: %w", i, err)
	}
	return decodeDraw(s.vars, data)
}

func (s *SQLite) Len(ctx context.Context) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	return s.n, nil
}

func (s *SQLite) Header(ctx context.Context) (string, []Var, error) {
	if s.closed {
		return "", nil, ErrClosed
	}
	if s.vars == nil {
		return "", nil, ErrNotSetup
	}
	return s.runID, append([]Var(nil), s.vars...), nil
}

// Close seals the run and closes the database. It is safe to call twice.
func (s *SQLite) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var sealErr error
	if s.vars != nil && !s.sealed {
		if _, err := s.db.Exec("UPDATE runs SET sealed = 1 WHERE id = 1"); err != nil {
			sealErr = fmt.Errorf("seal run: %w", err)
		}
	}
	return errors.Join(sealErr, s.db.Close())
}

package stddb

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS constants (
  name    TEXT PRIMARY KEY,
  module  INTEGER NOT NULL DEFAULT 0,
  parents TEXT    NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS methods (
  constant    TEXT NOT NULL,
  name        TEXT NOT NULL,
  singleton   INTEGER NOT NULL DEFAULT 0,
  params      TEXT NOT NULL DEFAULT '',
  return_type TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (constant, name, singleton)
);
CREATE TABLE IF NOT EXISTS nested_constants (
  constant TEXT NOT NULL,
  child    TEXT NOT NULL,
  PRIMARY KEY (constant, child)
);
CREATE INDEX IF NOT EXISTS idx_methods_constant ON methods(constant);
`

// SQLiteSource reads the full offline-generated dataset from a SQLite file.
type SQLiteSource struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteSource, error) {
	cleanPath := filepath.Clean(path)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open stddb sqlite %q: %w", cleanPath, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure stddb schema: %w", err)
	}
	return &SQLiteSource{db: db}, nil
}

func (s *SQLiteSource) Lookup(name string) (*Record, error) {
	rec := &Record{Name: name}

	var moduleFlag int
	var parents string
	err := s.db.QueryRow(
		`SELECT module, parents FROM constants WHERE name = ?`, name,
	).Scan(&moduleFlag, &parents)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup constant %q: %w", name, err)
	}
	rec.Module = moduleFlag != 0
	rec.Parents = splitList(parents)

	rows, err := s.db.Query(
		`SELECT name, singleton, params, return_type FROM methods WHERE constant = ? ORDER BY rowid`, name,
	)
	if err != nil {
		return nil, fmt.Errorf("lookup methods of %q: %w", name, err)
	}
	defer rows.Close()
	for rows.Next() {
		var m Method
		var singleton int
		var params string
		if err := rows.Scan(&m.Name, &singleton, &params, &m.ReturnType); err != nil {
			return nil, fmt.Errorf("scan method of %q: %w", name, err)
		}
		for _, p := range splitList(params) {
			m.Parameters = append(m.Parameters, parseParam(p))
		}
		if singleton != 0 {
			rec.SingletonMethods = append(rec.SingletonMethods, m)
		} else {
			rec.InstanceMethods = append(rec.InstanceMethods, m)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate methods of %q: %w", name, err)
	}

	crows, err := s.db.Query(
		`SELECT child FROM nested_constants WHERE constant = ? ORDER BY rowid`, name,
	)
	if err != nil {
		return nil, fmt.Errorf("lookup nested constants of %q: %w", name, err)
	}
	defer crows.Close()
	for crows.Next() {
		var child string
		if err := crows.Scan(&child); err != nil {
			return nil, fmt.Errorf("scan nested constant of %q: %w", name, err)
		}
		rec.Constants = append(rec.Constants, child)
	}
	if err := crows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nested constants of %q: %w", name, err)
	}

	return rec, nil
}

// Save upserts a record. The offline generator and tests write through
// this; the analyzer itself only reads.
func (s *SQLiteSource) Save(rec *Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin stddb save: %w", err)
	}
	defer tx.Rollback()

	moduleFlag := 0
	if rec.Module {
		moduleFlag = 1
	}
	if _, err := tx.Exec(
		`INSERT INTO constants (name, module, parents) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET module = excluded.module, parents = excluded.parents`,
		rec.Name, moduleFlag, joinList(rec.Parents),
	); err != nil {
		return fmt.Errorf("save constant %q: %w", rec.Name, err)
	}

	if _, err := tx.Exec(`DELETE FROM methods WHERE constant = ?`, rec.Name); err != nil {
		return fmt.Errorf("clear methods of %q: %w", rec.Name, err)
	}
	if _, err := tx.Exec(`DELETE FROM nested_constants WHERE constant = ?`, rec.Name); err != nil {
		return fmt.Errorf("clear nested constants of %q: %w", rec.Name, err)
	}

	insert := func(methods []Method, singleton int) error {
		for _, m := range methods {
			params := make([]string, 0, len(m.Parameters))
			for _, p := range m.Parameters {
				params = append(params, compactParam(p))
			}
			if _, err := tx.Exec(
				`INSERT INTO methods (constant, name, singleton, params, return_type) VALUES (?, ?, ?, ?, ?)`,
				rec.Name, m.Name, singleton, joinList(params), m.ReturnType,
			); err != nil {
				return fmt.Errorf("save method %s.%s: %w", rec.Name, m.Name, err)
			}
		}
		return nil
	}
	if err := insert(rec.InstanceMethods, 0); err != nil {
		return err
	}
	if err := insert(rec.SingletonMethods, 1); err != nil {
		return err
	}

	for _, child := range rec.Constants {
		if _, err := tx.Exec(
			`INSERT INTO nested_constants (constant, child) VALUES (?, ?)`,
			rec.Name, child,
		); err != nil {
			return fmt.Errorf("save nested constant %q of %q: %w", child, rec.Name, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func joinList(items []string) string {
	return strings.Join(items, ",")
}

func compactParam(p Param) string {
	switch p.Kind {
	case ParamRest:
		return "*" + p.Name
	case ParamBlock:
		return "&" + p.Name
	case ParamKeyword:
		return p.Name + ":"
	case ParamOptional:
		return p.Name + "?"
	default:
		return p.Name
	}
}

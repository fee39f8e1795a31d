package index

import (
	"codelens/internal/engine/parser"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	sqliteDriverName = "sqlite"
	maxAttempts      = 5
)

// SQLiteSymbolTable mirrors the simple-name table into a private in-memory
// SQLite database. Nothing is written to disk; the database lives exactly as
// long as the engine.
type SQLiteSymbolTable struct {
	db         *sql.DB
	lookupStmt *sql.Stmt
}

func OpenSQLiteSymbolTable() (*SQLiteSymbolTable, error) {
	name := "codelens-" + uuid.NewString()
	dsn := fmt.Sprintf("file:%s?mode=memory&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", name)
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite symbol table: %w", err)
	}
	// A single long-lived connection keeps the in-memory database alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite symbol table: %w", err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	lookupStmt, err := db.Prepare(`SELECT simple_name, qualified_name, package_name, file_path, kind
FROM type_symbols
WHERE simple_name = ?
ORDER BY qualified_name, file_path`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("prepare lookup stmt: %w", err)
	}

	return &SQLiteSymbolTable{db: db, lookupStmt: lookupStmt}, nil
}

func (s *SQLiteSymbolTable) Replace(path string, records []SymbolRecord) error {
	return s.withRetry("replace file symbols", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM type_symbols WHERE file_path = ?`, path); err != nil {
			_ = tx.Rollback()
			return err
		}
		for _, rec := range records {
			if _, err := tx.Exec(
				`INSERT OR REPLACE INTO type_symbols (qualified_name, simple_name, package_name, file_path, kind) VALUES (?, ?, ?, ?, ?)`,
				rec.QualifiedName, rec.Name, rec.Package, path, string(rec.Kind),
			); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
}

func (s *SQLiteSymbolTable) Remove(path string) error {
	return s.withRetry("remove file symbols", func() error {
		_, err := s.db.Exec(`DELETE FROM type_symbols WHERE file_path = ?`, path)
		return err
	})
}

func (s *SQLiteSymbolTable) Lookup(name string) []SymbolRecord {
	rows, err := s.lookupStmt.Query(name)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var out []SymbolRecord
	for rows.Next() {
		var rec SymbolRecord
		var kind string
		if err := rows.Scan(&rec.Name, &rec.QualifiedName, &rec.Package, &rec.File, &kind); err != nil {
			return out
		}
		rec.Kind = parser.DeclarationKind(kind)
		out = append(out, rec)
	}
	return out
}

func (s *SQLiteSymbolTable) Names() []string {
	rows, err := s.db.Query(`SELECT DISTINCT simple_name FROM type_symbols ORDER BY simple_name`)
	if err != nil {
		return nil
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err == nil {
			out = append(out, name)
		}
	}
	return out
}

func (s *SQLiteSymbolTable) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if s.lookupStmt != nil {
		_ = s.lookupStmt.Close()
	}
	return s.db.Close()
}

func (s *SQLiteSymbolTable) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

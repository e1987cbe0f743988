package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"llmdesk/pkg/logger"

	_ "modernc.org/sqlite"
)

// SQLiteBackend 单表 kv 存储，使用纯 Go 的 modernc sqlite 驱动
type SQLiteBackend struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func NewSQLiteBackend(path string) *SQLiteBackend {
	return &SQLiteBackend{path: path}
}

func (s *SQLiteBackend) Init() error {
	if s.path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
			return fmt.Errorf("%w: %v", ErrStorageInit, err)
		}
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}
	// 单连接：写入串行化，:memory: 也只对应一个库
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return fmt.Errorf("%w: %s: %v", ErrStorageInit, p, err)
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	s.db = db
	logger.Infof("SQLite storage initialized at %s", s.path)
	return nil
}

func (s *SQLiteBackend) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read key %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteBackend) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("write key %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteBackend) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete key %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteBackend) Keys() ([]string, error) {
	rows, err := s.db.Query("SELECT key FROM kv ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *SQLiteBackend) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Backup 用 VACUUM INTO 在库文件旁写出一致快照
func (s *SQLiteBackend) Backup() (string, error) {
	if s.path == ":memory:" {
		return "", fmt.Errorf("%w: cannot back up in-memory database", ErrFileOperation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := fmt.Sprintf("%s.backup_%d", s.path, time.Now().UnixNano())
	if _, err := s.db.Exec("VACUUM INTO ?", target); err != nil {
		return "", fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	logger.Infof("SQLite backup written to %s", target)
	return target, nil
}

// Package sqlitestore provides a SQLite-backed typed settings store.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-sysconf/pkg/store"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS settings (
	key    TEXT PRIMARY KEY,
	width  INTEGER NOT NULL,
	number INTEGER NOT NULL DEFAULT 0,
	data   BLOB,
	length INTEGER
)`

// Store persists typed settings in SQLite, one row per key.
type Store struct {
	sqlDB *sql.DB
}

// Open opens (or creates) a settings database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create settings table: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// DeclareArray fixes the accepted length for an array key without touching
// its stored bytes.
func (s *Store) DeclareArray(ctx context.Context, key string, length int) error {
	key, err := s.ready(ctx, key)
	if err != nil {
		return err
	}
	row, ok, err := s.load(ctx, key)
	if err != nil {
		return err
	}
	if ok && row.width != store.WidthArray {
		return store.TypeMismatch(key, row.width, store.WidthArray)
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO settings (key, width, length) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET length = excluded.length`,
		key, int(store.WidthArray), length,
	)
	if err != nil {
		return fmt.Errorf("declare array %q: %w", key, err)
	}
	return nil
}

func (s *Store) GetBool(ctx context.Context, key string) (bool, error) {
	n, err := s.getScalar(ctx, key, store.WidthBool)
	return n != 0, err
}

func (s *Store) GetU8(ctx context.Context, key string) (uint8, error) {
	n, err := s.getScalar(ctx, key, store.WidthU8)
	return uint8(n), err
}

func (s *Store) GetU32(ctx context.Context, key string) (uint32, error) {
	return s.getScalar(ctx, key, store.WidthU32)
}

// GetArray returns length bytes for key. Declared but unwritten keys read as
// zeros; a stored array of another length is store.ErrLengthMismatch.
func (s *Store) GetArray(ctx context.Context, key string, length int) ([]byte, error) {
	key, err := s.ready(ctx, key)
	if err != nil {
		return nil, err
	}
	row, ok, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return make([]byte, length), nil
	}
	if row.width != store.WidthArray {
		return nil, store.TypeMismatch(key, row.width, store.WidthArray)
	}
	return store.ReadArray(key, row.data, length)
}

func (s *Store) SetBool(ctx context.Context, key string, value bool) error {
	var n uint32
	if value {
		n = 1
	}
	return s.setScalar(ctx, key, store.WidthBool, n)
}

func (s *Store) SetU8(ctx context.Context, key string, value uint8) error {
	return s.setScalar(ctx, key, store.WidthU8, uint32(value))
}

func (s *Store) SetU32(ctx context.Context, key string, value uint32) error {
	return s.setScalar(ctx, key, store.WidthU32, value)
}

// SetArray stores data under key, refusing writes that do not match the
// declared length.
func (s *Store) SetArray(ctx context.Context, key string, data []byte) error {
	key, err := s.ready(ctx, key)
	if err != nil {
		return err
	}
	row, ok, err := s.load(ctx, key)
	if err != nil {
		return err
	}
	if ok {
		if row.width != store.WidthArray {
			return store.TypeMismatch(key, row.width, store.WidthArray)
		}
		if row.length.Valid && int(row.length.Int64) != len(data) {
			return store.ArrayRejected(key, len(data), int(row.length.Int64))
		}
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO settings (key, width, data, length) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, length = excluded.length`,
		key, int(store.WidthArray), append([]byte(nil), data...), len(data),
	)
	if err != nil {
		return fmt.Errorf("set array %q: %w", key, err)
	}
	return nil
}

type settingRow struct {
	width  store.Width
	number uint32
	data   []byte
	length sql.NullInt64
}

func (s *Store) ready(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s == nil || s.sqlDB == nil {
		return "", fmt.Errorf("storage is not configured")
	}
	return store.NormalizeKey(key)
}

func (s *Store) load(ctx context.Context, key string) (settingRow, bool, error) {
	var (
		row    settingRow
		width  int
		number int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT width, number, data, length FROM settings WHERE key = ?`, key,
	).Scan(&width, &number, &row.data, &row.length)
	if errors.Is(err, sql.ErrNoRows) {
		return settingRow{}, false, nil
	}
	if err != nil {
		return settingRow{}, false, fmt.Errorf("load %q: %w", key, err)
	}
	row.width = store.Width(width)
	row.number = uint32(number)
	return row, true, nil
}

func (s *Store) getScalar(ctx context.Context, key string, width store.Width) (uint32, error) {
	key, err := s.ready(ctx, key)
	if err != nil {
		return 0, err
	}
	row, ok, err := s.load(ctx, key)
	if err != nil || !ok {
		return 0, err
	}
	if row.width != width {
		return 0, store.TypeMismatch(key, row.width, width)
	}
	return row.number, nil
}

func (s *Store) setScalar(ctx context.Context, key string, width store.Width, n uint32) error {
	key, err := s.ready(ctx, key)
	if err != nil {
		return err
	}
	row, ok, err := s.load(ctx, key)
	if err != nil {
		return err
	}
	if ok && row.width != width {
		return store.TypeMismatch(key, row.width, width)
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO settings (key, width, number) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET number = excluded.number`,
		key, int(width), int64(n),
	)
	if err != nil {
		return fmt.Errorf("set %s %q: %w", width, key, err)
	}
	return nil
}

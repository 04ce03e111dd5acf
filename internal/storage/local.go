package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

var (
	ErrStoreClosed       = errors.New("local store closed")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrUnknownIndex      = errors.New("unknown index")
	ErrMissingKey        = errors.New("record has no key")
	ErrSchemaTooNew      = errors.New("local store was written by a newer schema version")
)

// LocalStore keeps named record collections in a SQLite file on the device.
// Records are stored as JSON; each collection has its own table with the
// primary key and one column per secondary index.
//
// The database is opened lazily on first use and the handle is shared by all
// callers. A failed open is retried by the next operation.
type LocalStore struct {
	path        string
	collections map[string]Collection

	mu     sync.Mutex
	db     *sqlx.DB
	closed bool
}

// NewLocalStore creates a store backed by the SQLite file at path.
// Nothing touches the disk until the first operation.
func NewLocalStore(path string) *LocalStore {
	cols := make(map[string]Collection, len(Schema))
	for _, c := range Schema {
		cols[c.Name] = c
	}
	return &LocalStore{path: path, collections: cols}
}

// Close releases the database handle. Later operations fail with ErrStoreClosed.
func (s *LocalStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *LocalStore) conn(ctx context.Context) (*sqlx.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	if s.db != nil {
		return s.db, nil
	}

	db, err := sqlx.ConnectContext(ctx, "sqlite3", s.path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s.db = db
	return db, nil
}

// migrate creates missing collections and records the schema version.
func migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL`); err != nil {
		return fmt.Errorf("enable WAL mode: %w", err)
	}

	var version int
	if err := db.GetContext(ctx, &version, `PRAGMA user_version`); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > SchemaVersion {
		return fmt.Errorf("%w: file has %d, binary supports %d", ErrSchemaTooNew, version, SchemaVersion)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range Schema {
		cols := []string{"key TEXT PRIMARY KEY", "data TEXT NOT NULL"}
		for _, idx := range c.Indexes {
			cols = append(cols, indexColumn(idx)+" TEXT")
		}
		stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s)`, c.Name, strings.Join(cols, ", "))
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create collection %s: %w", c.Name, err)
		}

		for _, idx := range c.Indexes {
			stmt := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_%s ON %s (%s)`,
				c.Name, idx, c.Name, indexColumn(idx))
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("create index %s.%s: %w", c.Name, idx, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, SchemaVersion)); err != nil {
		return fmt.Errorf("write schema version: %w", err)
	}

	return tx.Commit()
}

func (s *LocalStore) collection(name string) (Collection, error) {
	c, ok := s.collections[name]
	if !ok {
		return Collection{}, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	return c, nil
}

// Put inserts or replaces record in collection, keyed by the collection's key field.
func (s *LocalStore) Put(ctx context.Context, collection string, record any) error {
	c, err := s.collection(collection)
	if err != nil {
		return err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", collection, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%s record is not an object: %w", collection, err)
	}

	key, err := keyString(fields[c.KeyPath])
	if err != nil {
		return fmt.Errorf("%s.%s: %w", collection, c.KeyPath, err)
	}

	cols := []string{"key", "data"}
	args := []any{key, string(data)}
	for _, idx := range c.Indexes {
		cols = append(cols, indexColumn(idx))
		args = append(args, indexValue(fields[idx]))
	}

	updates := make([]string, 0, len(cols)-1)
	for _, col := range cols[1:] {
		updates = append(updates, col+" = excluded."+col)
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (key) DO UPDATE SET %s`,
		c.Name,
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
		strings.Join(updates, ", "),
	)

	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, key, err)
	}

	return nil
}

// Get decodes the record stored under key into dest. A missing record is
// reported as found == false with a nil error.
func (s *LocalStore) Get(ctx context.Context, collection, key string, dest any) (bool, error) {
	c, err := s.collection(collection)
	if err != nil {
		return false, err
	}

	db, err := s.conn(ctx)
	if err != nil {
		return false, err
	}

	var data string
	err = db.GetContext(ctx, &data, fmt.Sprintf(`SELECT data FROM %s WHERE key = ?`, c.Name), key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("get %s/%s: %w", collection, key, err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, fmt.Errorf("decode %s/%s: %w", collection, key, err)
	}

	return true, nil
}

// GetAll returns every record of a collection. The order is not defined.
func (s *LocalStore) GetAll(ctx context.Context, collection string) ([]json.RawMessage, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}

	return s.selectData(ctx, fmt.Sprintf(`SELECT data FROM %s`, c.Name))
}

// GetAllByIndex returns the records whose indexed field equals value.
func (s *LocalStore) GetAllByIndex(ctx context.Context, collection, index string, value any) ([]json.RawMessage, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}

	indexed := false
	for _, idx := range c.Indexes {
		if idx == index {
			indexed = true
			break
		}
	}
	if !indexed {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownIndex, collection, index)
	}

	v, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode index value: %w", err)
	}

	query := fmt.Sprintf(`SELECT data FROM %s WHERE %s = ?`, c.Name, indexColumn(index))
	return s.selectData(ctx, query, string(v))
}

func (s *LocalStore) selectData(ctx context.Context, query string, args ...any) ([]json.RawMessage, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	var rows []string
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("scan collection: %w", err)
	}

	out := make([]json.RawMessage, 0, len(rows))
	for _, r := range rows {
		out = append(out, json.RawMessage(r))
	}
	return out, nil
}

// Delete removes the record stored under key. Deleting a missing key is a no-op.
func (s *LocalStore) Delete(ctx context.Context, collection, key string) error {
	c, err := s.collection(collection)
	if err != nil {
		return err
	}

	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, c.Name), key); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, key, err)
	}

	return nil
}

// DecodeAll unmarshals raw records into values of type T.
func DecodeAll[T any](raws []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

// keyString turns a JSON key field into its storage form. Strings are stored
// unquoted, numbers as their literal text.
func keyString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", ErrMissingKey
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if str == "" {
			return "", ErrMissingKey
		}
		return str, nil
	}

	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		return num.String(), nil
	}

	return "", fmt.Errorf("%w: key must be a string or number", ErrMissingKey)
}

func indexValue(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

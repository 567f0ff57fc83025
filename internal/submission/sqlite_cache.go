package submission

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tablebook/internal/shared/constants"

	_ "modernc.org/sqlite"
)

// SQLiteCache keeps the record list in a single row of a file-backed kv table.
// The terminal client uses it as its durable store.
type SQLiteCache struct {
	db  *sql.DB
	key string
}

func NewSQLiteCache(path string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite cache: %w", err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)

	c := &SQLiteCache{db: db, key: constants.LOCAL_CACHE_NAME}
	if err := c.init(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *SQLiteCache) init() error {
	_, err := c.db.Exec(`
    CREATE TABLE IF NOT EXISTS kv (
        key TEXT PRIMARY KEY,
        value TEXT NOT NULL,
        updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    );
    `)
	if err != nil {
		return fmt.Errorf("init sqlite cache: %w", err)
	}
	return nil
}

func (c *SQLiteCache) Append(ctx context.Context, rec Record) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite cache append: %w", err)
	}
	defer tx.Rollback()

	stored, err := c.read(ctx, tx)
	if err != nil {
		return err
	}

	data, err := appendRecord(stored, rec)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		c.key, string(data))
	if err != nil {
		return fmt.Errorf("sqlite cache append: %w", err)
	}
	return tx.Commit()
}

func (c *SQLiteCache) List(ctx context.Context) ([]Record, error) {
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("sqlite cache list: %w", err)
	}
	defer tx.Rollback()

	stored, err := c.read(ctx, tx)
	if err != nil {
		return nil, err
	}
	return decodeRecords(stored)
}

func (c *SQLiteCache) read(ctx context.Context, tx *sql.Tx) ([]byte, error) {
	var value string
	err := tx.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, c.key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite cache read: %w", err)
	}
	return []byte(value), nil
}

func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Querier is the subset of *sql.DB and *sql.Tx the repositories use.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Transactor runs fn inside a single storage transaction. Calls made with the
// context passed to fn join that transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

// DB wraps *sql.DB with the transaction plumbing shared by the repositories.
type DB struct {
	*sql.DB
	logger *zap.Logger
	now    func() time.Time
}

var _ Transactor = (*DB)(nil)

// Option configures a DB.
type Option func(*DB)

// WithClock overrides the time source used for created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(db *DB) { db.now = now }
}

// WithLogger sets the logger used for storage diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(db *DB) { db.logger = logger.Named("store") }
}

// Open opens the SQLite file at path (":memory:" for a private in-memory
// database), enables foreign keys and creates the schema if absent.
func Open(ctx context.Context, path string, busyTimeout time.Duration, opts ...Option) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", DSN(path, busyTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: SQLite is single-writer and an in-memory database lives on its connection.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	db := New(sqlDB, opts...)
	if err := InitSchema(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	db.logger.Info("Database opened", zap.String("path", path))
	return db, nil
}

// New wraps an already open connection pool. The caller is responsible for the schema.
func New(sqlDB *sql.DB, opts ...Option) *DB {
	db := &DB{DB: sqlDB, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// DSN builds a modernc sqlite data source name with foreign keys enabled.
func DSN(path string, busyTimeout time.Duration) string {
	var b strings.Builder
	b.WriteString(path)
	b.WriteString("?_pragma=foreign_keys(1)")
	if busyTimeout > 0 {
		fmt.Fprintf(&b, "&_pragma=busy_timeout(%d)", busyTimeout.Milliseconds())
	}
	return b.String()
}

// conn returns the transaction carried by ctx, or the pool.
func (db *DB) conn(ctx context.Context) Querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db.DB
}

// WithTx runs fn in a transaction, committing when fn returns nil. A context
// that already carries a transaction is reused, so nested calls share one unit.
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				db.logger.Warn("Rollback failed", zap.Error(rbErr))
			}
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (db *DB) timestamp() string {
	return db.now().UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func encodeDoc(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode data document: %w", err)
	}
	return string(b), nil
}

func decodeDoc(s string) (map[string]any, error) {
	m := map[string]any{}
	if s == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("failed to decode data document: %w", err)
	}
	return m, nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

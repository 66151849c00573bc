package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// postgresUniqueViolation is the SQLSTATE code Postgres reports on a
// unique-constraint violation, used to recognize a duplicate devid on
// CreateDevice without string-matching the error text.
const postgresUniqueViolation = "23505"

// PostgresStore implements Store interface for PostgreSQL
type PostgresStore struct {
	db *sql.DB
	tx *sql.Tx
}

// NewPostgresStore creates a new PostgreSQL store, sized for the
// device-registry/frame-log workload: a handful of concurrent API
// handlers, the gateway listener and the NATS subscriber, not a
// multi-tenant connection fan-out.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// translateErr maps a raw database/sql or lib/pq error onto this
// package's sentinel errors (ErrNotFound, ErrDuplicateKey), leaving any
// other error untouched. Shared by device_methods.go and
// frame_methods.go so the devid/frame-log duplicate-key and not-found
// cases are recognized the same way everywhere instead of each method
// pattern-matching the driver error on its own.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == postgresUniqueViolation {
		return ErrDuplicateKey
	}
	return err
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *PostgresStore) BeginTx(ctx context.Context) (Store, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{db: s.db, tx: tx}, nil
}

// Commit commits the transaction
func (s *PostgresStore) Commit() error {
	if s.tx == nil {
		return nil
	}
	return s.tx.Commit()
}

// Rollback rolls back the transaction
func (s *PostgresStore) Rollback() error {
	if s.tx == nil {
		return nil
	}
	return s.tx.Rollback()
}

// getDB returns tx if in transaction, otherwise db
func (s *PostgresStore) getDB() interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
} {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Package postgres implements ports.ContentStore on PostgreSQL via pgx.
//
// Vote tallies, answer lists and comment lists are derived in SQL on every
// read, so no denormalized counter can drift from the vote and answer tables.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jsamuelsen/qa-service/internal/domain"
	"github.com/jsamuelsen/qa-service/internal/ports"
)

const dependencyName = "postgres"

// SQLSTATE codes the store translates.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Store is the Postgres content store.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ ports.ContentStore  = (*Store)(nil)
	_ ports.HealthChecker = (*Store)(nil)
)

// New wraps an open pool. The caller owns the pool's lifetime.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return dependencyName }

// Check implements ports.HealthChecker.
func (s *Store) Check(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// inTx runs fn in a transaction, committing only when fn succeeds.
func (s *Store) inTx(ctx context.Context, op string, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storeError(op, err)
	}

	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return storeError(op, err)
	}

	return nil
}

// storeError translates a driver error. Domain errors pass through untouched.
// Cancellations and deadlines keep their cause and are never reported as a
// postgres failure.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var (
		notFound *domain.NotFoundError
		conflict *domain.ConflictError
	)
	if errors.As(err, &notFound) || errors.As(err, &conflict) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return domain.NewConflictError(op, "duplicate key "+pgErr.ConstraintName)
	}

	return domain.NewDependencyError(dependencyName, op, err)
}

// lookupError maps a missing row to NotFound and anything else through storeError.
func lookupError(entity, id, op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NewNotFoundError(entity, id)
	}

	return storeError(op, err)
}

// parentError maps a foreign key violation on insert to a NotFound of the parent.
func parentError(parent, parentID, op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation {
		return domain.NewNotFoundError(parent, parentID)
	}

	return storeError(op, err)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}

	return s
}

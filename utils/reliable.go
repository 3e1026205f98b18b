package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UltimateTournament/backoff/v4"
	"github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgx"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const maxExecRetries = 4

// ReliableExec acquires a pooled connection and runs f, retrying with
// exponential backoff. Each attempt gets its own tryTimeout. Errors that are
// PermError are returned without retrying.
func ReliableExec(ctx context.Context, pool *pgxpool.Pool, tryTimeout time.Duration, f func(ctx context.Context, conn *pgxpool.Conn) error) error {
	return Retry(ctx, maxExecRetries, func() error {
		tryCtx, cancel := context.WithTimeout(ctx, tryTimeout)
		defer cancel()

		conn, err := pool.Acquire(tryCtx)
		if err != nil {
			return fmt.Errorf("error in pool.Acquire: %w", err)
		}
		defer conn.Release()

		return f(tryCtx, conn)
	})
}

// ReliableExecInTx is ReliableExec with f run inside a cockroach transaction,
// which retries serialization failures on its own.
func ReliableExecInTx(ctx context.Context, pool *pgxpool.Pool, tryTimeout time.Duration, f func(ctx context.Context, tx pgx.Tx) error) error {
	return ReliableExec(ctx, pool, tryTimeout, func(ctx context.Context, conn *pgxpool.Conn) error {
		return crdbpgx.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
			return f(ctx, tx)
		})
	})
}

// Retry runs op up to maxRetries+1 times with exponential backoff, stopping
// early on context cancellation or a permanent error.
func Retry(ctx context.Context, maxRetries uint64, op func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err != nil && (IsPermanent(err) || isPermanentPgError(err)) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

// isPermanentPgError stops retries for statement errors that will fail the
// same way every time: syntax or undefined objects (class 42) and
// constraint violations (class 23).
func isPermanentPgError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || len(pgErr.Code) < 2 {
		return false
	}
	switch pgErr.Code[:2] {
	case "42", "23":
		return true
	}
	return false
}

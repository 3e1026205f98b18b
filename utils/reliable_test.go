package utils

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestRetryStopsOnPermanent(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 5, func() error {
		calls++
		return fmt.Errorf("wrapped: %w", PermError("nope"))
	})
	assert.Error(t, err)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
}

func TestRetryStopsOnStatementError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 5, func() error {
		calls++
		return &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryRecovers(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestIsPermanentPgError(t *testing.T) {
	assert.True(t, isPermanentPgError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isPermanentPgError(&pgconn.PgError{Code: "40001"}))
	assert.False(t, isPermanentPgError(errors.New("x")))
}

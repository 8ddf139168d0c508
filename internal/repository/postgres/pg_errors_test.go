package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kirinyoku/slotgo/internal/repository"
	"github.com/stretchr/testify/assert"
)

func TestTranslateDBErr(t *testing.T) {
	plain := errors.New("syntax error")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: pgx.ErrNoRows, want: repository.ErrNotFound},
		{name: "wrapped no rows", err: fmt.Errorf("scan: %w", pgx.ErrNoRows), want: repository.ErrNotFound},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, want: repository.ErrConflict},
		{name: "foreign key violation", err: &pgconn.PgError{Code: "23503"}, want: repository.ErrNotFound},
		{name: "serialization failure", err: &pgconn.PgError{Code: "40001"}, want: repository.ErrUnavailable},
		{name: "deadlock", err: &pgconn.PgError{Code: "40P01"}, want: repository.ErrUnavailable},
		{name: "statement timeout", err: &pgconn.PgError{Code: "57014"}, want: repository.ErrUnavailable},
		{name: "deadline", err: context.DeadlineExceeded, want: repository.ErrUnavailable},
		{name: "cancelled", err: fmt.Errorf("exec: %w", context.Canceled), want: repository.ErrUnavailable},
		{name: "other server error", err: &pgconn.PgError{Code: "22P02"}, want: nil},
		{name: "unknown error", err: plain, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateDBErr(tt.err)

			if tt.want == nil {
				assert.ErrorIs(t, got, tt.err)
				assert.NotErrorIs(t, got, repository.ErrUnavailable)
				assert.NotErrorIs(t, got, repository.ErrNotFound)
				assert.NotErrorIs(t, got, repository.ErrConflict)
				return
			}

			assert.ErrorIs(t, got, tt.want)
		})
	}

	assert.NoError(t, translateDBErr(nil))
}

func TestCommitFailed(t *testing.T) {
	err := commitFailed("op", context.DeadlineExceeded)

	assert.ErrorIs(t, err, repository.ErrCommitUnknown)
	assert.ErrorIs(t, err, repository.ErrUnavailable)
	assert.ErrorContains(t, err, "op.commit")
}

func TestWrapDBErr(t *testing.T) {
	assert.NoError(t, wrapDBErr("op", nil))

	err := wrapDBErr("postgresrepo.BookingRepo.Create", &pgconn.PgError{Code: "23505"})
	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.ErrorContains(t, err, "postgresrepo.BookingRepo.Create")
}

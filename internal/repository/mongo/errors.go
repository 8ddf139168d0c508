package mongorepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirinyoku/slotgo/internal/repository"
	"go.mongodb.org/mongo-driver/mongo"
)

func translateDBErr(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return repository.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return repository.ErrConflict
	case mongo.IsTimeout(err),
		mongo.IsNetworkError(err),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, mongo.ErrClientDisconnected):
		return fmt.Errorf("%w: %w", repository.ErrUnavailable, err)
	}

	return err
}

func wrapDBErr(op string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s:%w", op, translateDBErr(err))
}

package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type Config struct {
	URI            string
	ConnectTimeout time.Duration
	// OperationTimeout bounds server selection and socket reads so no call
	// can hang on an unreachable primary.
	OperationTimeout time.Duration
}

// New connects a client and pings the primary. The caller owns the client
// and must Disconnect it.
func New(ctx context.Context, cfg Config) (*mongo.Client, error) {
	const op = "mongo.New"

	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout)

	if cfg.OperationTimeout > 0 {
		opts.SetServerSelectionTimeout(cfg.OperationTimeout).
			SetSocketTimeout(cfg.OperationTimeout)
	}

	ctxConn, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctxConn, opts)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if err := client.Ping(ctxConn, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return client, nil
}

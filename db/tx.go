package db

import (
	"context"

	"agromart/apperr"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// TxRunner runs fn as one unit of work. Atomic reports whether a failure
// inside fn is rolled back by the database.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	Atomic() bool
}

// SessionRunner runs fn inside a multi-document transaction. It needs a
// replica set or sharded cluster.
type SessionRunner struct {
	client *mongo.Client
}

func NewSessionRunner(client *mongo.Client) *SessionRunner {
	return &SessionRunner{client: client}
}

func (s *SessionRunner) Atomic() bool { return true }

func (s *SessionRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return apperr.Upstream(err, "database unavailable")
	}
	defer session.EndSession(ctx)

	opts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	}, opts)
	return err
}

// DirectRunner calls fn without a transaction; callers compensate on failure.
type DirectRunner struct{}

func (DirectRunner) Atomic() bool { return false }

func (DirectRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

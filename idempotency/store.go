package idempotency

import (
	"context"
	"errors"

	"agromart/apperr"
	"agromart/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store interface {
	// Reserve inserts rec. When the key already exists it returns the stored
	// record instead.
	Reserve(ctx context.Context, rec models.IdempotencyRecord) (*models.IdempotencyRecord, error)
	Complete(ctx context.Context, key string, status int, body []byte) error
	Release(ctx context.Context, key string) error
}

type MongoStore struct {
	records *mongo.Collection
}

func NewMongoStore(records *mongo.Collection) *MongoStore {
	return &MongoStore{records: records}
}

func (s *MongoStore) Reserve(ctx context.Context, rec models.IdempotencyRecord) (*models.IdempotencyRecord, error) {
	_, err := s.records.InsertOne(ctx, rec)
	if err == nil {
		return nil, nil
	}
	if !apperr.IsDuplicateKey(err) {
		return nil, apperr.FromMongo(err, "")
	}

	var existing models.IdempotencyRecord
	err = s.records.FindOne(ctx, bson.M{"key": rec.Key}).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// expired between the insert and the read
		return nil, apperr.Conflict("idempotency key is being reset, retry")
	}
	if err != nil {
		return nil, apperr.FromMongo(err, "")
	}
	return &existing, nil
}

func (s *MongoStore) Complete(ctx context.Context, key string, status int, body []byte) error {
	_, err := s.records.UpdateOne(ctx,
		bson.M{"key": key},
		bson.M{"$set": bson.M{"status": status, "body": body}},
	)
	return apperr.FromMongo(err, "")
}

func (s *MongoStore) Release(ctx context.Context, key string) error {
	_, err := s.records.DeleteOne(ctx, bson.M{"key": key})
	return apperr.FromMongo(err, "")
}

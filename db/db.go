package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collections groups the handles the services work with.
type Collections struct {
	Users       *mongo.Collection
	Orders      *mongo.Collection
	Counters    *mongo.Collection
	Idempotency *mongo.Collection
}

type DB struct {
	Client      *mongo.Client
	Database    *mongo.Database
	Collections Collections
}

// Connect dials MongoDB and verifies the connection.
func Connect(ctx context.Context, uri, dbName string) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	database := client.Database(dbName)
	slog.Info("connected to MongoDB", "database", dbName)

	return &DB{
		Client:   client,
		Database: database,
		Collections: Collections{
			Users:       database.Collection("users"),
			Orders:      database.Collection("orders"),
			Counters:    database.Collection("counters"),
			Idempotency: database.Collection("idempotency"),
		},
	}, nil
}

func (d *DB) Close(ctx context.Context) error {
	return d.Client.Disconnect(ctx)
}

// EnsureIndexes creates the unique and lookup indexes the services rely on.
func (d *DB) EnsureIndexes(ctx context.Context) error {
	specs := map[*mongo.Collection][]mongo.IndexModel{
		d.Collections.Users: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_email")},
		},
		d.Collections.Orders: {
			{Keys: bson.D{{Key: "orderId", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_order_id")},
			{Keys: bson.D{{Key: "consumer", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("consumer_recent")},
			{Keys: bson.D{{Key: "farmer", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("farmer_recent")},
			{Keys: bson.D{{Key: "placementId", Value: 1}}, Options: options.Index().SetName("placement")},
		},
		d.Collections.Idempotency: {
			{Keys: bson.D{{Key: "key", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_key")},
			{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expires_at")},
		},
	}
	for coll, idxs := range specs {
		if _, err := coll.Indexes().CreateMany(ctx, idxs); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

package cart

import (
	"context"
	"time"

	"agromart/apperr"
	"agromart/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store persists cart lines. Every method is a single-document update so
// concurrent writes for one user are serialized by the database.
type Store interface {
	Items(ctx context.Context, userID string) ([]models.CartItem, error)
	Increment(ctx context.Context, userID string, item models.CartItem) error
	SetQuantity(ctx context.Context, userID, productID string, quantity int) error
	Remove(ctx context.Context, userID, productID string) error
	// RemoveProducts drops the lines for productIDs, leaving any other line
	// alone.
	RemoveProducts(ctx context.Context, userID string, productIDs []string) error
}

// maxUpsertAttempts bounds the update/push race loop.
const maxUpsertAttempts = 3

// userCollection is the part of *mongo.Collection the cart touches.
type userCollection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	UpdateOne(ctx context.Context, filter, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

// MongoStore keeps the cart embedded in the user document under "cart".
type MongoStore struct {
	users userCollection
	now   func() time.Time
}

func NewMongoStore(users *mongo.Collection) *MongoStore {
	return &MongoStore{users: users, now: time.Now}
}

func (s *MongoStore) Items(ctx context.Context, userID string) ([]models.CartItem, error) {
	var doc struct {
		Cart []models.CartItem `bson:"cart"`
	}
	opts := options.FindOne().SetProjection(bson.M{"cart": 1})
	if err := s.users.FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&doc); err != nil {
		return nil, apperr.FromMongo(err, "user not found")
	}
	if doc.Cart == nil {
		doc.Cart = []models.CartItem{}
	}
	return doc.Cart, nil
}

// Increment adds item.Quantity to an existing line or appends the line.
func (s *MongoStore) Increment(ctx context.Context, userID string, item models.CartItem) error {
	for attempt := 0; attempt < maxUpsertAttempts; attempt++ {
		res, err := s.users.UpdateOne(ctx,
			bson.M{"_id": userID, "cart.productId": item.ProductID},
			bson.M{
				"$inc": bson.M{"cart.$.quantity": item.Quantity},
				"$set": bson.M{"updatedAt": s.now()},
			},
		)
		if err != nil {
			return apperr.FromMongo(err, "user not found")
		}
		if res.MatchedCount > 0 {
			return nil
		}

		pushed, err := s.pushIfAbsent(ctx, userID, item)
		if err != nil || pushed {
			return err
		}
		// Someone else inserted the line between the two updates; go round again.
	}
	return apperr.Conflict("cart changed concurrently, please retry")
}

// SetQuantity overwrites the line quantity, inserting a bare line when absent.
func (s *MongoStore) SetQuantity(ctx context.Context, userID, productID string, quantity int) error {
	for attempt := 0; attempt < maxUpsertAttempts; attempt++ {
		res, err := s.users.UpdateOne(ctx,
			bson.M{"_id": userID, "cart.productId": productID},
			bson.M{"$set": bson.M{
				"cart.$.quantity": quantity,
				"updatedAt":       s.now(),
			}},
		)
		if err != nil {
			return apperr.FromMongo(err, "user not found")
		}
		if res.MatchedCount > 0 {
			return nil
		}

		pushed, err := s.pushIfAbsent(ctx, userID, models.CartItem{ProductID: productID, Quantity: quantity})
		if err != nil || pushed {
			return err
		}
	}
	return apperr.Conflict("cart changed concurrently, please retry")
}

// pushIfAbsent appends item unless a line with the same product exists.
// It reports false when nothing was written and the user does exist.
func (s *MongoStore) pushIfAbsent(ctx context.Context, userID string, item models.CartItem) (bool, error) {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": userID, "cart.productId": bson.M{"$ne": item.ProductID}},
		bson.M{
			"$push": bson.M{"cart": item},
			"$set":  bson.M{"updatedAt": s.now()},
		},
	)
	if err != nil {
		return false, apperr.FromMongo(err, "user not found")
	}
	if res.MatchedCount > 0 {
		return true, nil
	}
	n, err := s.users.CountDocuments(ctx, bson.M{"_id": userID}, options.Count().SetLimit(1))
	if err != nil {
		return false, apperr.FromMongo(err, "user not found")
	}
	if n == 0 {
		return false, apperr.NotFound("user not found")
	}
	return false, nil
}

func (s *MongoStore) Remove(ctx context.Context, userID, productID string) error {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$pull": bson.M{"cart": bson.M{"productId": productID}},
			"$set":  bson.M{"updatedAt": s.now()},
		},
	)
	if err != nil {
		return apperr.FromMongo(err, "user not found")
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

func (s *MongoStore) RemoveProducts(ctx context.Context, userID string, productIDs []string) error {
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": userID}, pullUpdate(productIDs, s.now()))
	if err != nil {
		return apperr.FromMongo(err, "user not found")
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

func pullUpdate(productIDs []string, at time.Time) bson.M {
	return bson.M{
		"$pull": bson.M{"cart": bson.M{"productId": bson.M{"$in": productIDs}}},
		"$set":  bson.M{"updatedAt": at},
	}
}

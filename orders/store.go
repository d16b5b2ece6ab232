package orders

import (
	"context"
	"errors"
	"time"

	"agromart/apperr"
	"agromart/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoStore struct {
	orders *mongo.Collection
}

func NewMongoStore(orders *mongo.Collection) *MongoStore {
	return &MongoStore{orders: orders}
}

// refFilter matches a human orderId and, when ref parses as one, a hex _id.
func refFilter(ref string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(ref); err == nil {
		return bson.M{"$or": bson.A{bson.M{"_id": oid}, bson.M{"orderId": ref}}}
	}
	return bson.M{"orderId": ref}
}

func scopeFilter(scope Scope) bson.M {
	filter := bson.M{}
	if scope.Consumer != "" {
		filter["consumer"] = scope.Consumer
	}
	if scope.Farmer != "" {
		filter["farmer"] = scope.Farmer
	}
	return filter
}

func (s *MongoStore) Insert(ctx context.Context, order *models.Order) error {
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	if _, err := s.orders.InsertOne(ctx, order); err != nil {
		if apperr.IsDuplicateKey(err) {
			return apperr.Wrap(apperr.KindConflict, err, "order id already taken")
		}
		return apperr.FromMongo(err, "")
	}
	return nil
}

// cancelPlacementUpdate leaves orders that already reached a final state alone.
func cancelPlacementUpdate(placementID, reason string, at time.Time) (filter, update bson.M) {
	filter = bson.M{
		"placementId": placementID,
		"status":      bson.M{"$nin": bson.A{models.StatusDelivered, models.StatusCancelled}},
	}
	update = bson.M{"$set": bson.M{
		"status":       models.StatusCancelled,
		"cancelReason": reason,
		"updatedAt":    at,
	}}
	return filter, update
}

func (s *MongoStore) CancelPlacement(ctx context.Context, placementID, reason string, at time.Time) (int64, error) {
	filter, update := cancelPlacementUpdate(placementID, reason, at)
	res, err := s.orders.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, apperr.FromMongo(err, "")
	}
	return res.ModifiedCount, nil
}

func (s *MongoStore) FindByRef(ctx context.Context, ref string, scope Scope) (models.Order, error) {
	clauses := bson.A{refFilter(ref)}
	if f := scopeFilter(scope); len(f) > 0 {
		clauses = append(clauses, f)
	}
	if scope.Party != "" {
		clauses = append(clauses, bson.M{"$or": bson.A{
			bson.M{"consumer": scope.Party},
			bson.M{"farmer": scope.Party},
		}})
	}

	var order models.Order
	err := s.orders.FindOne(ctx, bson.M{"$and": clauses}).Decode(&order)
	if err != nil {
		return models.Order{}, apperr.FromMongo(err, "order not found")
	}
	return order, nil
}

// transitionUpdate builds the guarded filter and update for change.
func transitionUpdate(id primitive.ObjectID, change models.StatusChange) (filter, update bson.M) {
	set := bson.M{"status": change.To, "updatedAt": change.At}
	if change.PaymentStatus != "" {
		set["paymentStatus"] = change.PaymentStatus
	}
	return bson.M{"_id": id, "status": change.From}, bson.M{"$set": set}
}

func (s *MongoStore) Transition(ctx context.Context, id primitive.ObjectID, change models.StatusChange) (models.Order, error) {
	filter, update := transitionUpdate(id, change)
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var order models.Order
	err := s.orders.FindOneAndUpdate(ctx, filter, update, opts).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Order{}, apperr.Wrap(apperr.KindConflict, err, "order status changed concurrently, reload and retry")
	}
	if err != nil {
		return models.Order{}, apperr.FromMongo(err, "order not found")
	}
	return order, nil
}

func (s *MongoStore) List(ctx context.Context, scope Scope, status models.OrderStatus) ([]models.Order, error) {
	filter := scopeFilter(scope)
	if status != "" {
		filter["status"] = status
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.orders.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.FromMongo(err, "")
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, apperr.FromMongo(err, "")
	}
	return orders, nil
}

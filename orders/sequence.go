package orders

import (
	"context"
	"fmt"
	"time"

	"agromart/apperr"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const dayLayout = "20060102"

// orderDay is the UTC calendar day an order number belongs to.
func orderDay(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

func FormatOrderID(day string, seq int64) string {
	return fmt.Sprintf("ORD-%s-%04d", day, seq)
}

// counterCollection is the part of *mongo.Collection MongoSequence uses.
type counterCollection interface {
	FindOneAndUpdate(ctx context.Context, filter, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult
}

// MongoSequence keeps one counter document per day: {_id: "order:YYYYMMDD", seq}.
type MongoSequence struct {
	counters counterCollection
}

func NewMongoSequence(counters *mongo.Collection) *MongoSequence {
	return &MongoSequence{counters: counters}
}

func (s *MongoSequence) Next(ctx context.Context, day string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc struct {
		Seq int64 `bson:"seq"`
	}
	var err error
	// Two first-of-the-day upserts can race on _id; the loser retries as a
	// plain increment.
	for attempt := 0; attempt < 2; attempt++ {
		filter, update := counterUpdate(day)
		err = s.counters.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
		if !apperr.IsDuplicateKey(err) {
			break
		}
	}
	if err != nil {
		return 0, apperr.FromMongo(err, "")
	}
	return doc.Seq, nil
}

func counterUpdate(day string) (filter, update bson.M) {
	return bson.M{"_id": "order:" + day}, bson.M{"$inc": bson.M{"seq": 1}}
}

// maxSequencePipeline finds the highest number issued for day by reading the
// suffix of that day's orderIds.
func maxSequencePipeline(day string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"orderId": bson.M{"$regex": "^ORD-" + day + "-"}}}},
		{{Key: "$group", Value: bson.M{
			"_id": nil,
			"max": bson.M{"$max": bson.M{"$toLong": bson.M{
				"$arrayElemAt": bson.A{bson.M{"$split": bson.A{"$orderId", "-"}}, 2},
			}}},
		}}},
	}
}

// MaxSequence is the highest order number already stored for day, 0 if none.
func (s *MongoStore) MaxSequence(ctx context.Context, day string) (int64, error) {
	cursor, err := s.orders.Aggregate(ctx, maxSequencePipeline(day))
	if err != nil {
		return 0, apperr.FromMongo(err, "")
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Max int64 `bson:"max"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, apperr.FromMongo(err, "")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Max, nil
}

package auth

import (
	"context"
	"strings"

	"agromart/apperr"
	"agromart/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	ByEmail(ctx context.Context, email string) (models.User, error)
}

// MongoUsers is the users collection. It also resolves user summaries for
// order responses.
type MongoUsers struct {
	users *mongo.Collection
}

func NewMongoUsers(users *mongo.Collection) *MongoUsers {
	return &MongoUsers{users: users}
}

func (m *MongoUsers) Create(ctx context.Context, u *models.User) error {
	if _, err := m.users.InsertOne(ctx, u); err != nil {
		if apperr.IsDuplicateKey(err) {
			return apperr.Wrap(apperr.KindConflict, err, "email already registered")
		}
		return apperr.FromMongo(err, "")
	}
	return nil
}

func (m *MongoUsers) ByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := m.users.FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&u)
	if err != nil {
		return models.User{}, apperr.FromMongo(err, "user not found")
	}
	return u, nil
}

func (m *MongoUsers) Summaries(ctx context.Context, ids []string) (map[string]models.UserSummary, error) {
	out := make(map[string]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	opts := options.Find().SetProjection(bson.M{"name": 1, "email": 1, "phone": 1, "avatar": 1})
	cursor, err := m.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, apperr.FromMongo(err, "")
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var s models.UserSummary
		if err := cursor.Decode(&s); err != nil {
			return nil, apperr.FromMongo(err, "")
		}
		out[s.ID] = s
	}
	if err := cursor.Err(); err != nil {
		return nil, apperr.FromMongo(err, "")
	}
	return out, nil
}

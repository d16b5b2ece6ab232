// Package analytics holds read-only reports over the orders collection.
package analytics

import (
	"context"
	"net/http"
	"time"

	"agromart/apperr"
	"agromart/models"
	"agromart/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	defaultTopFarmers = 5
	maxTopFarmers     = 50
)

// FarmerStat is one row of the top-farmers report.
type FarmerStat struct {
	FarmerID     string  `json:"farmerId" bson:"_id"`
	Name         string  `json:"name" bson:"name"`
	Avatar       string  `json:"avatar,omitempty" bson:"avatar,omitempty"`
	TotalRevenue float64 `json:"totalRevenue" bson:"totalRevenue"`
	OrderCount   int     `json:"orderCount" bson:"orderCount"`
	ItemsSold    int     `json:"itemsSold" bson:"itemsSold"`
}

type Reporter interface {
	TopFarmers(ctx context.Context, limit int) ([]FarmerStat, error)
}

// topFarmersPipeline ranks farmers by item revenue over orders that were
// not cancelled.
func topFarmersPipeline(limit int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": bson.M{"$ne": models.StatusCancelled}}}},
		{{Key: "$group", Value: bson.M{
			"_id":          "$farmer",
			"totalRevenue": bson.M{"$sum": "$totalAmount"},
			"orderCount":   bson.M{"$sum": 1},
			"itemsSold":    bson.M{"$sum": bson.M{"$sum": "$items.quantity"}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "totalRevenue", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "farmer",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$farmer", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$project", Value: bson.M{
			"totalRevenue": bson.M{"$round": bson.A{"$totalRevenue", 2}},
			"orderCount":   1,
			"itemsSold":    1,
			"name":         "$farmer.name",
			"avatar":       "$farmer.avatar",
		}}},
	}
}

type MongoReporter struct {
	orders *mongo.Collection
}

func NewMongoReporter(orders *mongo.Collection) *MongoReporter {
	return &MongoReporter{orders: orders}
}

func (m *MongoReporter) TopFarmers(ctx context.Context, limit int) ([]FarmerStat, error) {
	cursor, err := m.orders.Aggregate(ctx, topFarmersPipeline(limit))
	if err != nil {
		return nil, apperr.FromMongo(err, "")
	}
	defer cursor.Close(ctx)

	stats := []FarmerStat{}
	if err := cursor.All(ctx, &stats); err != nil {
		return nil, apperr.FromMongo(err, "")
	}
	return stats, nil
}

type Handler struct {
	reporter Reporter
}

func NewHandler(reporter Reporter) *Handler {
	return &Handler{reporter: reporter}
}

// GET /api/order/top-farmers?limit=
func (h *Handler) TopFarmers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	stats, err := h.reporter.TopFarmers(ctx, utils.ParseLimit(r, defaultTopFarmers, maxTopFarmers))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "data": stats})
}

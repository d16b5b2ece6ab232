package models

// CartItem is one line of a user's cart. Price is a snapshot taken when the
// line was added.
type CartItem struct {
	ProductID string  `json:"productId" bson:"productId"`
	FarmerID  string  `json:"farmerId" bson:"farmerId"`
	Name      string  `json:"name" bson:"name"`
	Price     float64 `json:"price" bson:"price"`
	Unit      string  `json:"unit,omitempty" bson:"unit,omitempty"`
	Quantity  int     `json:"quantity" bson:"quantity"`
	Image     string  `json:"image,omitempty" bson:"image,omitempty"`
}

package cart

import (
	"context"
	"testing"

	"agromart/apperr"
	"agromart/models"
)

func tomato(qty int) models.CartItem {
	return models.CartItem{ProductID: "p1", FarmerID: "f1", Name: "Tomato", Price: 50, Unit: "kg", Quantity: qty}
}

func TestAddInsertsThenIncrements(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemStore("u1"))

	items, err := svc.Add(ctx, "u1", tomato(0))
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Quantity != 1 {
		t.Fatalf("first add: %+v, want one line of quantity 1", items)
	}

	items, err = svc.Add(ctx, "u1", tomato(3))
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Quantity != 4 {
		t.Fatalf("second add: %+v, want quantity 4", items)
	}
	if items[0].Price != 50 || items[0].Name != "Tomato" {
		t.Fatalf("snapshot lost: %+v", items[0])
	}
}

func TestAddValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemStore("u1"))

	if _, err := svc.Add(ctx, "", tomato(1)); !apperr.Is(err, apperr.KindAuthentication) {
		t.Errorf("anonymous add: %v", err)
	}
	if _, err := svc.Add(ctx, "u1", models.CartItem{ProductID: "p1"}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("missing farmer: %v", err)
	}
	bad := tomato(1)
	bad.Price = -1
	if _, err := svc.Add(ctx, "u1", bad); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("negative price: %v", err)
	}
	if _, err := svc.Add(ctx, "ghost", tomato(1)); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("unknown user: %v", err)
	}
}

func TestUpdateQuantityFloorRemovesLine(t *testing.T) {
	ctx := context.Background()
	for _, q := range []int{0, -1, -100} {
		svc := NewService(newMemStore("u1"))
		if _, err := svc.Add(ctx, "u1", tomato(2)); err != nil {
			t.Fatal(err)
		}
		items, err := svc.UpdateQuantity(ctx, "u1", "p1", q)
		if err != nil {
			t.Fatalf("quantity %d: %v", q, err)
		}
		if len(items) != 0 {
			t.Fatalf("quantity %d: line still present: %+v", q, items)
		}
	}
}

func TestUpdateQuantitySetsAndInsertsBareLine(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemStore("u1"))
	if _, err := svc.Add(ctx, "u1", tomato(2)); err != nil {
		t.Fatal(err)
	}

	items, err := svc.UpdateQuantity(ctx, "u1", "p1", 7)
	if err != nil || items[0].Quantity != 7 {
		t.Fatalf("set: %+v %v", items, err)
	}

	items, err = svc.UpdateQuantity(ctx, "u1", "p9", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[1].ProductID != "p9" || items[1].Quantity != 2 || items[1].Name != "" {
		t.Fatalf("bare insert: %+v", items)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemStore("u1"))

	items, err := svc.Remove(ctx, "u1", "absent")
	if err != nil {
		t.Fatalf("removing absent product: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("want empty non-nil cart, got %#v", items)
	}

	if _, err := svc.Add(ctx, "u1", tomato(1)); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if items, err = svc.Remove(ctx, "u1", "p1"); err != nil || len(items) != 0 {
			t.Fatalf("remove #%d: %+v %v", i, items, err)
		}
	}
}

func TestGetNeverNil(t *testing.T) {
	items, err := NewService(newMemStore("u1")).Get(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if items == nil {
		t.Fatal("Get returned nil slice")
	}
}

// nilItems reports a missing cart as nil, as a freshly registered user's
// document without a cart field decodes.
type nilItems struct{ *memStore }

func (nilItems) Items(context.Context, string) ([]models.CartItem, error) { return nil, nil }

func TestMutationsNeverReturnNil(t *testing.T) {
	ctx := context.Background()
	svc := NewService(nilItems{newMemStore("u1")})

	calls := map[string]func() ([]models.CartItem, error){
		"add":    func() ([]models.CartItem, error) { return svc.Add(ctx, "u1", tomato(1)) },
		"update": func() ([]models.CartItem, error) { return svc.UpdateQuantity(ctx, "u1", "p1", 3) },
		"remove": func() ([]models.CartItem, error) { return svc.Remove(ctx, "u1", "p1") },
		"get":    func() ([]models.CartItem, error) { return svc.Get(ctx, "u1") },
	}
	for name, call := range calls {
		items, err := call()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if items == nil {
			t.Errorf("%s returned a nil cart", name)
		}
	}
}

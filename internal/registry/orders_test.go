package registry

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func seededWithUser(t *testing.T) (*Registry, User) {
	t.Helper()
	r := NewWithClock(fixedClock)
	r.SeedSampleData()
	user, _, err := r.Signup(SignupRequest{PhoneNumber: "7089011754", DormBuilding: "allen hall"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	return r, user
}

func TestPlaceOrderTotalsAndBatch(t *testing.T) {
	r, user := seededWithUser(t)
	delivery := time.Date(2024, 3, 12, 17, 25, 0, 0, time.UTC)

	// Burrito Bowl 9.95 x2 + Chips 1.95 + default fee 2.00
	order, err := r.PlaceOrder(OrderRequest{
		UserID:        user.ID,
		Items:         []OrderLine{{MenuItemID: 1, Quantity: 2}, {MenuItemID: 5, SpecialInstructions: "extra lime"}},
		ScheduledTime: delivery,
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if !order.TotalAmount.Equal(decimal.RequireFromString("23.85")) {
		t.Fatalf("unexpected total: %s", order.TotalAmount)
	}
	if order.ID != 1 || order.ItemCount != 2 || order.Status != OrderStatusPending || order.BatchID != 1 {
		t.Fatalf("unexpected order: %+v", order)
	}
	if order.Items[1].Quantity != 1 || order.Items[1].SpecialInstructions != "extra lime" || order.Items[1].ItemName != "Chips" {
		t.Fatalf("unexpected line: %+v", order.Items[1])
	}

	fee := decimal.Zero
	second, err := r.PlaceOrder(OrderRequest{UserID: user.ID, Items: []OrderLine{{MenuItemID: 2}}, DeliveryFee: &fee, ScheduledTime: delivery})
	if err != nil {
		t.Fatalf("second order: %v", err)
	}
	if second.BatchID != order.BatchID || !second.TotalAmount.Equal(decimal.RequireFromString("9.95")) {
		t.Fatalf("expected same batch and fee-free total, got %+v", second)
	}
	third, err := r.PlaceOrder(OrderRequest{UserID: user.ID, Items: []OrderLine{{MenuItemID: 2}}, ScheduledTime: delivery.Add(30 * time.Minute)})
	if err != nil {
		t.Fatalf("third order: %v", err)
	}
	if third.BatchID == order.BatchID {
		t.Fatalf("expected a new batch for a new delivery time")
	}

	batches := r.DeliveryBatches(BatchFilter{})
	if len(batches) != 2 || batches[0].OrderCount != 2 || batches[1].OrderCount != 1 {
		t.Fatalf("unexpected batches: %+v", batches)
	}
	if got := r.DeliveryBatches(BatchFilter{On: time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)}); len(got) != 0 {
		t.Fatalf("expected no batches on another date, got %d", len(got))
	}
	if got := r.DeliveryBatches(BatchFilter{Status: "delivered"}); len(got) != 0 {
		t.Fatalf("expected status filter to exclude scheduled batches")
	}
}

func TestPlaceOrderRejects(t *testing.T) {
	r, user := seededWithUser(t)
	neg := decimal.NewFromInt(-1)
	cases := []struct {
		name string
		req  OrderRequest
		want error
	}{
		{"no items", OrderRequest{UserID: user.ID}, ErrOrderIncomplete},
		{"no user", OrderRequest{Items: []OrderLine{{MenuItemID: 1}}}, ErrOrderIncomplete},
		{"unknown user", OrderRequest{UserID: 99, Items: []OrderLine{{MenuItemID: 1}}}, ErrUserNotFound},
		{"unknown item", OrderRequest{UserID: user.ID, Items: []OrderLine{{MenuItemID: 999}}}, ErrMenuItemNotFound},
		{"negative quantity", OrderRequest{UserID: user.ID, Items: []OrderLine{{MenuItemID: 1, Quantity: -2}}}, ErrInvalidQuantity},
		{"negative fee", OrderRequest{UserID: user.ID, Items: []OrderLine{{MenuItemID: 1}}, DeliveryFee: &neg}, ErrInvalidFee},
	}
	for _, tc := range cases {
		if _, err := r.PlaceOrder(tc.req); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	if len(r.Orders(0)) != 0 {
		t.Fatalf("rejected orders must not be stored")
	}
}

func TestOrderLookup(t *testing.T) {
	r, user := seededWithUser(t)
	other, _, _ := r.Signup(SignupRequest{PhoneNumber: "3125550100"})
	delivery := time.Date(2024, 3, 12, 17, 55, 0, 0, time.UTC)
	first, _ := r.PlaceOrder(OrderRequest{UserID: user.ID, Items: []OrderLine{{MenuItemID: 1}}, ScheduledTime: delivery})
	second, _ := r.PlaceOrder(OrderRequest{UserID: other.ID, Items: []OrderLine{{MenuItemID: 6}}})

	all := r.Orders(0)
	if len(all) != 2 || all[0].ID != second.ID || all[0].Items != nil {
		t.Fatalf("expected newest first without items, got %+v", all)
	}
	mine := r.Orders(user.ID)
	if len(mine) != 1 || mine[0].ID != first.ID {
		t.Fatalf("unexpected user orders: %+v", mine)
	}

	detail, err := r.Order(first.ID)
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	if detail.User.PhoneNumber != "7089011754" || len(detail.Items) != 1 || detail.Batch == nil || !detail.Batch.DeliveryTime.Equal(delivery) {
		t.Fatalf("unexpected detail: %+v", detail)
	}
	unbatched, _ := r.Order(second.ID)
	if unbatched.Batch != nil {
		t.Fatalf("order without a delivery time must not be batched")
	}
	if _, err := r.Order(42); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestSnapshotCarriesOrders(t *testing.T) {
	r, user := seededWithUser(t)
	delivery := time.Date(2024, 3, 12, 17, 25, 0, 0, time.UTC)
	if _, err := r.PlaceOrder(OrderRequest{UserID: user.ID, Items: []OrderLine{{MenuItemID: 1}}, ScheduledTime: delivery}); err != nil {
		t.Fatalf("place order: %v", err)
	}
	snap := r.Snapshot()
	if len(snap.Orders) != 1 || len(snap.Batches) != 1 || len(snap.Orders[0].Items) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	restored := NewWithClock(fixedClock)
	restored.Restore(snap)
	next, err := restored.PlaceOrder(OrderRequest{UserID: user.ID, Items: []OrderLine{{MenuItemID: 2}}, ScheduledTime: delivery})
	if err != nil {
		t.Fatalf("order after restore: %v", err)
	}
	if next.ID != 2 || next.Items[0].ID != 2 || next.BatchID != 1 {
		t.Fatalf("counters not restored: %+v", next)
	}
	if b := restored.DeliveryBatches(BatchFilter{}); len(b) != 1 || b[0].OrderCount != 2 {
		t.Fatalf("unexpected batches after restore: %+v", b)
	}
}

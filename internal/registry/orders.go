package registry

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrOrderIncomplete  = errors.New("user id and items are required")
	ErrUserNotFound     = errors.New("user not found")
	ErrMenuItemNotFound = errors.New("menu item not found")
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrOrderNotFound    = errors.New("order not found")
	ErrInvalidFee       = errors.New("delivery fee must not be negative")
)

const (
	OrderStatusPending   = "pending"
	BatchStatusScheduled = "scheduled"
)

var DefaultDeliveryFee = decimal.RequireFromString("2.00")

type OrderItem struct {
	ID                  int64           `json:"id"`
	OrderID             int64           `json:"order_id"`
	MenuItemID          int64           `json:"menu_item_id"`
	ItemName            string          `json:"item_name"`
	Quantity            int             `json:"quantity"`
	ItemPrice           decimal.Decimal `json:"item_price"`
	SpecialInstructions string          `json:"special_instructions,omitempty"`
}

type Order struct {
	ID                    int64           `json:"id"`
	UserID                int64           `json:"user_id"`
	TotalAmount           decimal.Decimal `json:"total_amount"`
	DeliveryFee           decimal.Decimal `json:"delivery_fee"`
	Status                string          `json:"status"`
	ScheduledDeliveryTime time.Time       `json:"scheduled_delivery_time,omitzero"`
	BatchID               int64           `json:"delivery_batch_id,omitempty"`
	ItemCount             int             `json:"item_count"`
	CreatedAt             time.Time       `json:"created_at"`
	Items                 []OrderItem     `json:"items,omitempty"`
}

// DeliveryBatch groups every order scheduled for one delivery time.
type DeliveryBatch struct {
	ID           int64     `json:"id"`
	DeliveryTime time.Time `json:"delivery_time"`
	Status       string    `json:"status"`
	OrderCount   int       `json:"order_count"`
	CreatedAt    time.Time `json:"created_at"`
}

type OrderLine struct {
	MenuItemID          int64
	Quantity            int // zero means one
	SpecialInstructions string
}

type OrderRequest struct {
	UserID        int64
	Items         []OrderLine
	DeliveryFee   *decimal.Decimal // nil uses DefaultDeliveryFee
	ScheduledTime time.Time        // zero leaves the order unbatched
}

// OrderDetail is an order joined with its customer and delivery batch.
type OrderDetail struct {
	Order Order          `json:"order"`
	User  User           `json:"user"`
	Items []OrderItem    `json:"items"`
	Batch *DeliveryBatch `json:"delivery_batch,omitempty"`
}

type BatchFilter struct {
	On     time.Time // matches the calendar date of On in its location; zero matches all
	Status string
}

// PlaceOrder prices req against the menu, stores it and attaches it to the
// delivery batch for req.ScheduledTime, creating the batch when needed.
func (r *Registry) PlaceOrder(req OrderRequest) (Order, error) {
	if req.UserID <= 0 || len(req.Items) == 0 {
		return Order{}, ErrOrderIncomplete
	}
	fee := DefaultDeliveryFee
	if req.DeliveryFee != nil {
		fee = *req.DeliveryFee
	}
	if fee.IsNegative() {
		return Order{}, ErrInvalidFee
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.userByIDLocked(req.UserID); !ok {
		return Order{}, fmt.Errorf("%w: %d", ErrUserNotFound, req.UserID)
	}

	total := fee
	items := make([]OrderItem, 0, len(req.Items))
	for _, line := range req.Items {
		qty := line.Quantity
		if qty == 0 {
			qty = 1
		}
		if qty < 0 {
			return Order{}, fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
		}
		menuItem, ok := r.itemByIDLocked(line.MenuItemID)
		if !ok {
			return Order{}, fmt.Errorf("%w: %d", ErrMenuItemNotFound, line.MenuItemID)
		}
		total = total.Add(menuItem.Price.Mul(decimal.NewFromInt(int64(qty))))
		items = append(items, OrderItem{
			MenuItemID:          menuItem.ID,
			ItemName:            menuItem.ItemName,
			Quantity:            qty,
			ItemPrice:           menuItem.Price,
			SpecialInstructions: line.SpecialInstructions,
		})
	}

	r.nextOrder++
	order := Order{
		ID:                    r.nextOrder,
		UserID:                req.UserID,
		TotalAmount:           total,
		DeliveryFee:           fee,
		Status:                OrderStatusPending,
		ScheduledDeliveryTime: req.ScheduledTime,
		ItemCount:             len(items),
		CreatedAt:             r.now(),
	}
	for i := range items {
		r.nextOrderItem++
		items[i].ID = r.nextOrderItem
		items[i].OrderID = order.ID
	}
	order.Items = items
	if !req.ScheduledTime.IsZero() {
		order.BatchID = r.batchForLocked(req.ScheduledTime)
	}
	r.orders = append(r.orders, order)
	return cloneOrder(order), nil
}

// Orders lists orders newest first, limited to userID when it is positive.
func (r *Registry) Orders(userID int64) []Order {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Order{}
	for _, o := range r.orders {
		if userID > 0 && o.UserID != userID {
			continue
		}
		o.Items = nil
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r *Registry) Order(id int64) (OrderDetail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.orders {
		if o.ID != id {
			continue
		}
		detail := OrderDetail{Items: append([]OrderItem{}, o.Items...)}
		o.Items = nil
		detail.Order = o
		if u, ok := r.userByIDLocked(o.UserID); ok {
			detail.User = u
		}
		for _, b := range r.batches {
			if b.ID == o.BatchID {
				detail.Batch = &b
				break
			}
		}
		return detail, nil
	}
	return OrderDetail{}, fmt.Errorf("%w: %d", ErrOrderNotFound, id)
}

// DeliveryBatches lists batches matching f ordered by delivery time.
func (r *Registry) DeliveryBatches(f BatchFilter) []DeliveryBatch {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []DeliveryBatch{}
	for _, b := range r.batches {
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if !f.On.IsZero() && !sameDate(b.DeliveryTime.In(f.On.Location()), f.On) {
			continue
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DeliveryTime.Before(out[j].DeliveryTime) })
	return out
}

func (r *Registry) batchForLocked(at time.Time) int64 {
	for i := range r.batches {
		b := &r.batches[i]
		if b.Status == BatchStatusScheduled && b.DeliveryTime.Equal(at) {
			b.OrderCount++
			return b.ID
		}
	}
	r.nextBatch++
	r.batches = append(r.batches, DeliveryBatch{
		ID:           r.nextBatch,
		DeliveryTime: at,
		Status:       BatchStatusScheduled,
		OrderCount:   1,
		CreatedAt:    r.now(),
	})
	return r.nextBatch
}

func (r *Registry) userByIDLocked(id int64) (User, bool) {
	for _, u := range r.users {
		if u.ID == id {
			return *u, true
		}
	}
	return User{}, false
}

func (r *Registry) itemByIDLocked(id int64) (MenuItem, bool) {
	for _, item := range r.items {
		if item.ID == id {
			return item, true
		}
	}
	return MenuItem{}, false
}

func (r *Registry) restoreOrdersLocked(orders []Order, batches []DeliveryBatch) {
	r.orders = cloneOrders(orders)
	r.batches = append([]DeliveryBatch(nil), batches...)
	r.nextOrder, r.nextOrderItem, r.nextBatch = 0, 0, 0
	for _, o := range r.orders {
		r.nextOrder = max(r.nextOrder, o.ID)
		for _, item := range o.Items {
			r.nextOrderItem = max(r.nextOrderItem, item.ID)
		}
	}
	for _, b := range r.batches {
		r.nextBatch = max(r.nextBatch, b.ID)
	}
}

func cloneOrder(o Order) Order {
	o.Items = append([]OrderItem(nil), o.Items...)
	return o
}

func cloneOrders(orders []Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, cloneOrder(o))
	}
	return out
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

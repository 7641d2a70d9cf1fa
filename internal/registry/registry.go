// Package registry keeps signups and restaurant menus in memory.
package registry

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var ErrPhoneRequired = errors.New("phone number is required")

type User struct {
	ID             int64      `json:"id"`
	PhoneNumber    string     `json:"phone_number"`
	Name           string     `json:"name,omitempty"`
	Email          string     `json:"email,omitempty"`
	DormBuilding   string     `json:"dorm_building,omitempty"`
	RoomNumber     string     `json:"room_number,omitempty"`
	SMSConsent     bool       `json:"sms_consent"`
	OptInTimestamp *time.Time `json:"opt_in_timestamp,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type Menu struct {
	ID             int64  `json:"id"`
	RestaurantName string `json:"restaurant_name"`
	MenuPath       string `json:"menu_path"`
}

type MenuItem struct {
	ID          int64           `json:"id"`
	MenuID      int64           `json:"menu_id"`
	ItemName    string          `json:"item_name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	IsAvailable bool            `json:"is_available"`
}

// SignupRequest carries the optional profile fields accepted at signup.
type SignupRequest struct {
	PhoneNumber    string
	Name           string
	Email          string
	DormBuilding   string
	RoomNumber     string
	SMSConsent     bool
	OptInTimestamp *time.Time
}

type Registry struct {
	mu       sync.RWMutex
	now      func() time.Time
	users    map[string]*User
	menus    []Menu
	items    []MenuItem
	nextUser int64
	nextMenu int64
	nextItem int64

	orders        []Order
	batches       []DeliveryBatch
	nextOrder     int64
	nextOrderItem int64
	nextBatch     int64
}

func New() *Registry {
	return NewWithClock(time.Now)
}

func NewWithClock(now func() time.Time) *Registry {
	return &Registry{
		now:   now,
		users: map[string]*User{},
	}
}

// NormalizePhone strips everything but digits.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Signup inserts a new user or updates the supplied fields of an existing one.
// created reports whether the phone number was new.
func (r *Registry) Signup(req SignupRequest) (user User, created bool, err error) {
	phone := NormalizePhone(req.PhoneNumber)
	if phone == "" {
		return User{}, false, ErrPhoneRequired
	}
	dorm := strings.TrimSpace(req.DormBuilding)
	if dorm != "" {
		// Casers carry state, so each call gets its own.
		dorm = cases.Title(language.English).String(dorm)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[phone]
	if !ok {
		r.nextUser++
		u := &User{
			ID:             r.nextUser,
			PhoneNumber:    phone,
			Name:           strings.TrimSpace(req.Name),
			Email:          strings.TrimSpace(req.Email),
			DormBuilding:   dorm,
			RoomNumber:     strings.TrimSpace(req.RoomNumber),
			SMSConsent:     req.SMSConsent,
			OptInTimestamp: req.OptInTimestamp,
			CreatedAt:      r.now().UTC(),
		}
		r.users[phone] = u
		return *u, true, nil
	}

	if v := strings.TrimSpace(req.Name); v != "" {
		existing.Name = v
	}
	if v := strings.TrimSpace(req.Email); v != "" {
		existing.Email = v
	}
	if dorm != "" {
		existing.DormBuilding = dorm
	}
	if v := strings.TrimSpace(req.RoomNumber); v != "" {
		existing.RoomNumber = v
	}
	if req.SMSConsent {
		existing.SMSConsent = true
	}
	if req.OptInTimestamp != nil {
		existing.OptInTimestamp = req.OptInTimestamp
	}
	return *existing, false, nil
}

func (r *Registry) Users() []User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Menus returns all menus, or the fallback list when none are registered.
func (r *Registry) Menus() []Menu {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.menus) == 0 {
		return fallbackMenus()
	}
	return append([]Menu(nil), r.menus...)
}

// MenuItems returns items for menuID, or every item when menuID is zero.
func (r *Registry) MenuItems(menuID int64) []MenuItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []MenuItem{}
	for _, item := range r.items {
		if menuID == 0 || item.MenuID == menuID {
			out = append(out, item)
		}
	}
	return out
}

// AddMenu registers a menu unless one with the same restaurant name exists.
func (r *Registry) AddMenu(name, path string) Menu {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addMenuLocked(name, path)
}

func (r *Registry) addMenuLocked(name, path string) Menu {
	for _, m := range r.menus {
		if m.RestaurantName == name {
			return m
		}
	}
	r.nextMenu++
	m := Menu{ID: r.nextMenu, RestaurantName: name, MenuPath: path}
	r.menus = append(r.menus, m)
	return m
}

// AddMenuItem registers an item unless the menu already has one with that name.
func (r *Registry) AddMenuItem(item MenuItem) MenuItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addItemLocked(item)
}

func (r *Registry) addItemLocked(item MenuItem) MenuItem {
	for _, existing := range r.items {
		if existing.MenuID == item.MenuID && existing.ItemName == item.ItemName {
			return existing
		}
	}
	r.nextItem++
	item.ID = r.nextItem
	item.IsAvailable = true
	r.items = append(r.items, item)
	return item
}

// SeedSampleData loads the sample restaurants and items. Calling it twice is harmless.
func (r *Registry) SeedSampleData() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, restaurant := range sampleMenus {
		menu := r.addMenuLocked(restaurant.name, restaurant.path)
		for _, item := range restaurant.items {
			item.MenuID = menu.ID
			r.addItemLocked(item)
		}
	}
}

type Snapshot struct {
	TakenAt   time.Time       `json:"taken_at"`
	Users     []User          `json:"users"`
	Menus     []Menu          `json:"menus"`
	MenuItems []MenuItem      `json:"menu_items"`
	Orders    []Order         `json:"orders"`
	Batches   []DeliveryBatch `json:"delivery_batches"`
}

func (r *Registry) Snapshot() Snapshot {
	users := r.Users()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Snapshot{
		TakenAt:   r.now().UTC(),
		Users:     users,
		Menus:     append([]Menu{}, r.menus...),
		MenuItems: append([]MenuItem{}, r.items...),
		Orders:    cloneOrders(r.orders),
		Batches:   append([]DeliveryBatch{}, r.batches...),
	}
}

// Restore replaces the registry contents with snap.
func (r *Registry) Restore(snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = map[string]*User{}
	r.nextUser, r.nextMenu, r.nextItem = 0, 0, 0
	for _, u := range snap.Users {
		r.users[u.PhoneNumber] = &u
		if u.ID > r.nextUser {
			r.nextUser = u.ID
		}
	}
	r.menus = append([]Menu(nil), snap.Menus...)
	for _, m := range r.menus {
		if m.ID > r.nextMenu {
			r.nextMenu = m.ID
		}
	}
	r.items = append([]MenuItem(nil), snap.MenuItems...)
	for _, item := range r.items {
		if item.ID > r.nextItem {
			r.nextItem = item.ID
		}
	}
	r.restoreOrdersLocked(snap.Orders, snap.Batches)
}

// Package hotspot generates the promotional "Hot Spots" board shown on the
// landing page. Everything here is cosmetic: order counts and deals are
// random and never feed back into ordering windows or real orders.
package hotspot

import (
	"fmt"
	"math/rand/v2"

	"github.com/shopspring/decimal"
)

const (
	DefaultMaxBatchSize = 10
	HighTrafficOrders   = 9
	SecondaryOrders     = 7

	// Regular restaurants stop drifting upward once they reach this count.
	regularCeiling = 6
	bumpChance     = 0.3
	rotateCount    = 2
)

const (
	StatusOpen       = "open"
	StatusFilling    = "filling"
	StatusAlmostFull = "almost-full"
	StatusFull       = "full"
)

type Restaurant struct {
	Name        string          `json:"name"`
	Fee         decimal.Decimal `json:"fee"`
	Orders      int             `json:"orders"`
	Fixed       bool            `json:"fixed"`
	HighTraffic bool            `json:"high_traffic"`
	Secondary   bool            `json:"secondary"`
	FreeItem    string          `json:"free_item"`
}

// Board holds the hot and other restaurant lists. It is not safe for concurrent use.
type Board struct {
	rng    *rand.Rand
	batch  int
	hot    []Restaurant
	others []Restaurant
}

// NewBoard builds the initial board from the built-in catalog using rng.
func NewBoard(rng *rand.Rand) *Board {
	b := &Board{rng: rng, hot: defaultHot(), others: defaultOthers()}
	for i := range b.hot {
		b.hot[i].FreeItem = b.freeItem(b.hot[i].Name)
	}
	for i := range b.others {
		b.others[i].FreeItem = b.freeItem(b.others[i].Name)
	}
	for i := range b.hot {
		b.hot[i].Orders = b.orderCount()
	}
	b.assignTraffic(-1)
	return b
}

// NewSeededBoard is NewBoard with a PCG source built from seed.
func NewSeededBoard(seed uint64) *Board {
	return NewBoard(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

func (b *Board) Batch() int { return b.batch }

func (b *Board) Hot() []Restaurant { return append([]Restaurant(nil), b.hot...) }

func (b *Board) Others() []Restaurant { return append([]Restaurant(nil), b.others...) }

// Simulate nudges regular restaurants upward. Counts never decrease.
func (b *Board) Simulate() {
	for i := range b.hot {
		r := &b.hot[i]
		if r.HighTraffic || r.Secondary || r.Orders >= regularCeiling {
			continue
		}
		if b.rng.Float64() < bumpChance {
			r.Orders++
		}
	}
}

// Rotate starts a new batch: fixed restaurants stay with fresh deals, rotatable
// ones move to the other list and two random other restaurants take their place.
func (b *Board) Rotate() {
	b.batch++
	prevHigh := -1
	var fixed, rotatable []Restaurant
	for i, r := range b.hot {
		if r.HighTraffic {
			prevHigh = i
		}
		if r.Fixed {
			fixed = append(fixed, r)
		} else {
			rotatable = append(rotatable, r)
		}
	}

	pool := append([]Restaurant(nil), b.others...)
	var incoming []Restaurant
	for i := 0; i < rotateCount && len(pool) > 0; i++ {
		idx := b.rng.IntN(len(pool))
		picked := pool[idx]
		pool = append(pool[:idx], pool[idx+1:]...)
		incoming = append(incoming, Restaurant{
			Name:     picked.Name,
			Fee:      hotFee,
			Orders:   b.orderCount(),
			FreeItem: b.freeItem(picked.Name),
		})
	}

	hot := make([]Restaurant, 0, len(fixed)+len(incoming))
	for _, r := range fixed {
		r.Orders = b.orderCount()
		r.HighTraffic = false
		r.Secondary = false
		r.FreeItem = b.freeItem(r.Name)
		hot = append(hot, r)
	}
	hot = append(hot, incoming...)

	others := make([]Restaurant, 0, len(pool)+len(rotatable))
	for _, r := range pool {
		r.FreeItem = b.freeItem(r.Name)
		others = append(others, r)
	}
	for _, r := range rotatable {
		others = append(others, Restaurant{Name: r.Name, Fee: b.otherFee(), FreeItem: b.freeItem(r.Name)})
	}

	b.hot = hot
	b.others = others
	b.assignTraffic(prevHigh)
}

// assignTraffic marks one high-traffic and one secondary restaurant, avoiding
// avoid as the high-traffic index when there is a choice.
func (b *Board) assignTraffic(avoid int) {
	n := len(b.hot)
	if n == 0 {
		return
	}
	for i := range b.hot {
		b.hot[i].HighTraffic = false
		b.hot[i].Secondary = false
	}
	high := b.rng.IntN(n)
	for n > 1 && high == avoid {
		high = b.rng.IntN(n)
	}
	b.hot[high].HighTraffic = true
	b.hot[high].Orders = HighTrafficOrders
	if n == 1 {
		return
	}
	second := b.rng.IntN(n)
	for second == high {
		second = b.rng.IntN(n)
	}
	b.hot[second].Secondary = true
	b.hot[second].Orders = SecondaryOrders
}

func (b *Board) orderCount() int {
	return 5 + b.rng.IntN(2)
}

func (b *Board) freeItem(name string) string {
	options, ok := freeItemOptions[name]
	if !ok || len(options) == 0 {
		return "Free item"
	}
	return options[b.rng.IntN(len(options))]
}

// otherFee is a random fee in [7.99, 9.99).
func (b *Board) otherFee() decimal.Decimal {
	extra := decimal.NewFromFloat(b.rng.Float64() * 2)
	return otherFeeMin.Add(extra).Truncate(2)
}

type BatchProgress struct {
	Percent   float64 `json:"percent"`
	Remaining int     `json:"remaining"`
	Status    string  `json:"status"`
	Message   string  `json:"message"`
}

// Progress describes how full a batch of capacity orders is.
func Progress(orders, capacity int) BatchProgress {
	if capacity <= 0 {
		capacity = DefaultMaxBatchSize
	}
	percent := float64(orders) / float64(capacity) * 100
	remaining := capacity - orders
	if remaining < 0 {
		remaining = 0
	}
	p := BatchProgress{Percent: percent, Remaining: remaining}
	switch {
	case percent < 30:
		p.Status, p.Message = StatusOpen, fmt.Sprintf("%d spots left", remaining)
	case percent < 70:
		p.Status, p.Message = StatusFilling, fmt.Sprintf("%d spots left", remaining)
	case percent < 100:
		p.Status, p.Message = StatusAlmostFull, fmt.Sprintf("Only %d spots left!", remaining)
	default:
		p.Status, p.Message = StatusFull, "Batch full!"
	}
	return p
}

type Spot struct {
	Restaurant
	Progress BatchProgress `json:"progress"`
}

type View struct {
	Batch  int          `json:"batch"`
	Hot    []Spot       `json:"hot"`
	Others []Restaurant `json:"others"`
}

// View renders the board with per-restaurant progress against capacity.
func (b *Board) View(capacity int) View {
	v := View{Batch: b.batch, Others: b.Others()}
	for _, r := range b.hot {
		v.Hot = append(v.Hot, Spot{Restaurant: r, Progress: Progress(r.Orders, capacity)})
	}
	return v
}

package hotspot

import (
	"testing"

	"github.com/shopspring/decimal"
)

func checkTraffic(t *testing.T, hot []Restaurant) (high, second int) {
	t.Helper()
	high, second = -1, -1
	for i, r := range hot {
		if r.HighTraffic {
			if high != -1 {
				t.Fatalf("more than one high traffic restaurant")
			}
			high = i
			if r.Orders != HighTrafficOrders {
				t.Fatalf("high traffic restaurant has %d orders", r.Orders)
			}
		}
		if r.Secondary {
			if second != -1 {
				t.Fatalf("more than one secondary restaurant")
			}
			second = i
			if r.Orders != SecondaryOrders {
				t.Fatalf("secondary restaurant has %d orders", r.Orders)
			}
		}
		if !r.HighTraffic && !r.Secondary && (r.Orders < 5 || r.Orders > 6) {
			t.Fatalf("regular restaurant %s has %d orders", r.Name, r.Orders)
		}
		if r.FreeItem == "" {
			t.Fatalf("restaurant %s has no free item", r.Name)
		}
	}
	if high == -1 || second == -1 || high == second {
		t.Fatalf("unexpected traffic assignment: high=%d secondary=%d", high, second)
	}
	return high, second
}

func TestNewBoard(t *testing.T) {
	b := NewSeededBoard(42)
	hot := b.Hot()
	if len(hot) != 5 {
		t.Fatalf("unexpected hot count: %d", len(hot))
	}
	if len(b.Others()) != 4 {
		t.Fatalf("unexpected others count: %d", len(b.Others()))
	}
	checkTraffic(t, hot)
}

func TestSeededBoardIsReproducible(t *testing.T) {
	a, b := NewSeededBoard(7), NewSeededBoard(7)
	ha, hb := a.Hot(), b.Hot()
	for i := range ha {
		if ha[i].Name != hb[i].Name || ha[i].Orders != hb[i].Orders || ha[i].FreeItem != hb[i].FreeItem {
			t.Fatalf("boards diverged at %d: %+v vs %+v", i, ha[i], hb[i])
		}
	}
}

func TestSimulateNeverDecreases(t *testing.T) {
	b := NewSeededBoard(3)
	for round := 0; round < 50; round++ {
		before := b.Hot()
		b.Simulate()
		after := b.Hot()
		for i := range after {
			if after[i].Orders < before[i].Orders {
				t.Fatalf("orders decreased for %s", after[i].Name)
			}
			if after[i].Orders > before[i].Orders+1 {
				t.Fatalf("orders jumped for %s", after[i].Name)
			}
			if (after[i].HighTraffic || after[i].Secondary) && after[i].Orders != before[i].Orders {
				t.Fatalf("pinned restaurant %s changed", after[i].Name)
			}
			if !after[i].HighTraffic && !after[i].Secondary && after[i].Orders > regularCeiling {
				t.Fatalf("regular restaurant %s exceeded ceiling", after[i].Name)
			}
		}
	}
}

func TestRotate(t *testing.T) {
	b := NewSeededBoard(11)
	for round := 1; round <= 20; round++ {
		prevHigh, _ := checkTraffic(t, b.Hot())
		b.Rotate()
		if b.Batch() != round {
			t.Fatalf("unexpected batch: %d", b.Batch())
		}
		hot := b.Hot()
		if len(hot) != 5 {
			t.Fatalf("unexpected hot count: %d", len(hot))
		}
		if len(b.Others()) != 4 {
			t.Fatalf("unexpected others count: %d", len(b.Others()))
		}
		for _, name := range []string{"Chipotle", "McDonald's", "Chick-fil-A"} {
			found := false
			for _, r := range hot {
				if r.Name == name && r.Fixed {
					found = true
				}
			}
			if !found {
				t.Fatalf("fixed restaurant %s missing after rotation", name)
			}
		}
		for _, r := range hot {
			if !r.Fee.Equal(hotFee) {
				t.Fatalf("hot restaurant %s has fee %s", r.Name, r.Fee)
			}
		}
		upper := decimal.RequireFromString("9.99")
		for _, r := range b.Others() {
			if r.Fee.LessThan(decimal.RequireFromString("7.49")) || r.Fee.GreaterThan(upper) {
				t.Fatalf("other restaurant %s has fee %s", r.Name, r.Fee)
			}
		}
		high, _ := checkTraffic(t, hot)
		if high == prevHigh {
			t.Fatalf("high traffic index repeated: %d", high)
		}
	}
}

func TestProgress(t *testing.T) {
	cases := []struct {
		orders  int
		status  string
		message string
	}{
		{2, StatusOpen, "8 spots left"},
		{5, StatusFilling, "5 spots left"},
		{9, StatusAlmostFull, "Only 1 spots left!"},
		{10, StatusFull, "Batch full!"},
		{12, StatusFull, "Batch full!"},
	}
	for _, tc := range cases {
		p := Progress(tc.orders, DefaultMaxBatchSize)
		if p.Status != tc.status || p.Message != tc.message {
			t.Fatalf("Progress(%d) = %+v", tc.orders, p)
		}
	}
	if p := Progress(3, 0); p.Remaining != 7 {
		t.Fatalf("expected default capacity, got %+v", p)
	}
}

func TestView(t *testing.T) {
	b := NewSeededBoard(5)
	v := b.View(DefaultMaxBatchSize)
	if len(v.Hot) != 5 {
		t.Fatalf("unexpected hot count: %d", len(v.Hot))
	}
	for _, spot := range v.Hot {
		if spot.HighTraffic && spot.Progress.Status != StatusAlmostFull {
			t.Fatalf("high traffic spot should be almost full, got %s", spot.Progress.Status)
		}
	}
}

package main

import "testing"

func TestParseOrderLine(t *testing.T) {
	tests := []struct {
		raw     string
		id      int64
		qty     int
		wantErr bool
	}{
		{raw: "3", id: 3},
		{raw: "3:2", id: 3, qty: 2},
		{raw: " 12 : 1 ", id: 12, qty: 1},
		{raw: "abc", wantErr: true},
		{raw: "3:0", wantErr: true},
		{raw: "3:x", wantErr: true},
	}
	for _, tt := range tests {
		line, err := parseOrderLine(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tt.raw, err)
		}
		if line.MenuItemID != tt.id || line.Quantity != tt.qty {
			t.Fatalf("%q: got %+v", tt.raw, line)
		}
	}
}

package util

import (
	"testing"
	"time"
)

func TestBuildObjectKey(t *testing.T) {
	when := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	key := BuildObjectKey("/treehouse/", "registry", when, "json.zst")
	if key != "treehouse/registry/20240101T100000Z_registry.json.zst" {
		t.Fatalf("unexpected key: %s", key)
	}
	if key := BuildObjectKey("", "registry", when, ""); key != "registry/20240101T100000Z_registry" {
		t.Fatalf("unexpected key without prefix: %s", key)
	}
}

func TestBuildPrefix(t *testing.T) {
	if prefix := BuildPrefix("treehouse", "registry"); prefix != "treehouse/registry" {
		t.Fatalf("unexpected prefix: %s", prefix)
	}
	if prefix := BuildPrefix("", ""); prefix != "" {
		t.Fatalf("unexpected empty prefix: %q", prefix)
	}
}

package storage

import (
	"strings"
	"time"
)

const ManifestSuffix = ".manifest.json"

// Manifest describes one exported registry snapshot.
type Manifest struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	Compression string    `json:"compression"`
	Encryption  bool      `json:"encryption"`
	CreatedAt   time.Time `json:"created_at"`
	SizeBytes   int64     `json:"size_bytes"`
	Users       int       `json:"users"`
	Menus       int       `json:"menus"`
	MenuItems   int       `json:"menu_items"`
	Orders      int       `json:"orders"`
	Batches     int       `json:"delivery_batches"`
	ToolVersion string    `json:"tool_version"`
}

func ManifestKey(objectKey string) string {
	return objectKey + ManifestSuffix
}

func isManifest(key string) bool {
	return strings.HasSuffix(key, ManifestSuffix)
}

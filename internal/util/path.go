package util

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// BuildObjectKey constructs a normalized snapshot object key under prefix.
func BuildObjectKey(prefix, kind string, when time.Time, extension string) string {
	parts := []string{}
	if p := strings.Trim(prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, kind)
	name := fmt.Sprintf("%s_%s", when.UTC().Format("20060102T150405Z"), kind)
	if extension != "" {
		name += "." + strings.TrimPrefix(extension, ".")
	}
	parts = append(parts, name)
	return path.Join(parts...)
}

// BuildPrefix builds the listing prefix for objects of kind.
func BuildPrefix(prefix, kind string) string {
	parts := []string{}
	if p := strings.Trim(prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	if kind != "" {
		parts = append(parts, kind)
	}
	return path.Join(parts...)
}

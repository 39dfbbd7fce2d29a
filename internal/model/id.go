package model

import "github.com/rs/xid"

// NewID returns a fresh identifier. Every entity uses xid: 20 URL-safe
// characters, sortable by creation time.
func NewID() string {
	return xid.New().String()
}

// ValidID reports whether s is a well-formed identifier. It says nothing
// about whether an entity with that id exists.
func ValidID(s string) bool {
	_, err := xid.FromString(s)
	return err == nil
}

// UniqueValidIDs returns the well-formed ids of in, dropping malformed ones
// and duplicates while keeping first-seen order.
func UniqueValidIDs(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, id := range in {
		if !ValidID(id) {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Package filter narrows already-loaded lists by free-text queries.
package filter

import "strings"

// Field pairs a query with the record value it is matched against.
type Field[T any] struct {
	Query string
	Value func(T) string
}

// Apply keeps the items for which every field's query is a case-insensitive
// substring of the item's value. Blank queries match everything. The result is a new
// slice in source order; items is never modified.
func Apply[T any](items []T, fields ...Field[T]) []T {
	active := make([]Field[T], 0, len(fields))
	for _, f := range fields {
		q := strings.ToLower(strings.TrimSpace(f.Query))
		if q == "" || f.Value == nil {
			continue
		}
		active = append(active, Field[T]{Query: q, Value: f.Value})
	}

	out := make([]T, 0, len(items))
	for _, item := range items {
		if matches(item, active) {
			out = append(out, item)
		}
	}
	return out
}

func matches[T any](item T, fields []Field[T]) bool {
	for _, f := range fields {
		if !strings.Contains(strings.ToLower(f.Value(item)), f.Query) {
			return false
		}
	}
	return true
}

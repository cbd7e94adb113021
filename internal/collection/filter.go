// Package collection implements the remote collection client: point queries
// against named collections on the platform, returning typed records.
package collection

import (
	"fmt"
	"strings"
)

// Filter is a single-column equality predicate, the only filter shape the
// platform supports.
type Filter struct {
	Column string
	Value  string
}

// Eq builds an equality filter on the given column.
func Eq(column, value string) Filter {
	return Filter{Column: column, Value: value}
}

// IsZero reports whether the filter is unset.
func (f Filter) IsZero() bool {
	return f.Column == ""
}

// Encode renders the filter in wire form, e.g. "schedule_id.eq.1234".
func (f Filter) Encode() string {
	if f.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s.eq.%s", f.Column, f.Value)
}

// ParseFilter parses the wire form produced by Encode. An empty string
// parses to the zero filter.
func ParseFilter(s string) (Filter, error) {
	if s == "" {
		return Filter{}, nil
	}
	parts := strings.SplitN(s, ".eq.", 2)
	if len(parts) != 2 || parts[0] == "" {
		return Filter{}, fmt.Errorf("invalid filter %q (want column.eq.value)", s)
	}
	return Filter{Column: parts[0], Value: parts[1]}, nil
}

// Matches reports whether a decoded record satisfies the filter. Values are
// compared in string form; a zero filter matches everything.
func (f Filter) Matches(record map[string]any) bool {
	if f.IsZero() {
		return true
	}
	v, ok := record[f.Column]
	if !ok {
		return false
	}
	return fmt.Sprint(v) == f.Value
}

// Order is the declared ordering of a fetch. Collections are always ordered
// by creation timestamp.
type Order string

const (
	// Ascending is chronological order, used for threads (comments, chat).
	Ascending Order = "created_at.asc"
	// Descending is newest-first order, used for feeds.
	Descending Order = "created_at.desc"
)

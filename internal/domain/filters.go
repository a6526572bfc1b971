package domain

import (
	"strings"
	"time"
)

// DateRange is an inclusive date interval.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Filters narrows transaction queries. The zero value matches everything.
type Filters struct {
	Search     string     `json:"searchFilter,omitempty"`
	DateRange  *DateRange `json:"dateFilter,omitempty"`
	Categories []string   `json:"categoryFilter,omitempty"`
	Direction  Direction  `json:"typeFilter,omitempty"`
}

// Match reports whether t satisfies every set filter. Category filters treat
// an absent category as Untagged.
func (f Filters) Match(t Transaction) bool {
	if f.Search != "" && !strings.Contains(strings.ToLower(t.Description), strings.ToLower(f.Search)) {
		return false
	}
	if f.DateRange != nil && (t.Date.Before(f.DateRange.Start) || t.Date.After(f.DateRange.End)) {
		return false
	}
	if f.Direction != "" && t.Direction != f.Direction {
		return false
	}
	if len(f.Categories) > 0 {
		cat := t.CategoryOrUntagged()
		for _, c := range f.Categories {
			if c == cat {
				return true
			}
		}
		return false
	}
	return true
}

// Package timeline provides date-range helpers for slicing dashboard
// timelines.
package timeline

import (
	"fmt"
	"time"
)

// DateFormat is the wire format for dashboard date parameters.
const DateFormat = "2006-01-02"

// Days returns the list of dates spanned by from and to, both in
// YYYY-MM-DD form. A date starts at 00:00:00. Equal dates yield a
// single-element list containing from. A reversed range is normalized
// so the result is the same as for the forward range.
func Days(from, to string) ([]string, error) {
	start, err := time.Parse(DateFormat, from)
	if err != nil {
		return nil, fmt.Errorf("parse from date %q: %w", from, err)
	}
	end, err := time.Parse(DateFormat, to)
	if err != nil {
		return nil, fmt.Errorf("parse to date %q: %w", to, err)
	}

	if start.Equal(end) {
		return []string{from}, nil
	}
	if end.Before(start) {
		start, end = end, start
	}

	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(DateFormat))
	}
	return dates, nil
}

// Entry is one dated data point in a timeline.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Count     int    `json:"count"`
}

// Slice returns the entries whose timestamp date falls inside the given
// date list. Timestamps are expected to start with a YYYY-MM-DD prefix.
func Slice(entries []Entry, dates []string) []Entry {
	wanted := make(map[string]bool, len(dates))
	for _, d := range dates {
		wanted[d] = true
	}

	var out []Entry
	for _, e := range entries {
		if len(e.Timestamp) < len(DateFormat) {
			continue
		}
		if wanted[e.Timestamp[:len(DateFormat)]] {
			out = append(out, e)
		}
	}
	return out
}

package store

import (
	"context"
	"fmt"
	"time"
)

// DailyTotal is one day's count of newly reported issues.
type DailyTotal struct {
	Day   time.Time
	Count int
}

// WeeklyTotal is one ISO week's count of newly reported issues, keyed
// by the week's Monday.
type WeeklyTotal struct {
	Monday time.Time
	Count  int
}

// IssuesCount is a point-in-time open-issue count for one category.
type IssuesCount struct {
	Timestamp time.Time
	Count     int
	Category  string
}

// InsertDailyTotal records the issue count for one day. Re-running a
// job for the same day overwrites the earlier figure.
func (s *Service) InsertDailyTotal(ctx context.Context, day time.Time, count int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO daily_totals (day, count)
		 VALUES ($1, $2)
		 ON CONFLICT (day) DO UPDATE SET count = EXCLUDED.count`,
		day, count,
	)
	if err != nil {
		return fmt.Errorf("insert daily total for %s: %w", day.Format("2006-01-02"), err)
	}
	return nil
}

// InsertWeeklyTotal records the issue count for one ISO week.
func (s *Service) InsertWeeklyTotal(ctx context.Context, monday time.Time, count int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO weekly_totals (monday, count)
		 VALUES ($1, $2)
		 ON CONFLICT (monday) DO UPDATE SET count = EXCLUDED.count`,
		monday, count,
	)
	if err != nil {
		return fmt.Errorf("insert weekly total for %s: %w", monday.Format("2006-01-02"), err)
	}
	return nil
}

// InsertIssuesCount appends one open-issue count sample for a category.
func (s *Service) InsertIssuesCount(ctx context.Context, ic IssuesCount) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO issues_counts (ts, count, category) VALUES ($1, $2, $3)`,
		ic.Timestamp, ic.Count, ic.Category,
	)
	if err != nil {
		return fmt.Errorf("insert issues count for %s: %w", ic.Category, err)
	}
	return nil
}

// SumDailyTotals sums the daily totals between two dates, inclusive.
func (s *Service) SumDailyTotals(ctx context.Context, from, to time.Time) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(count), 0) FROM daily_totals WHERE day BETWEEN $1 AND $2`,
		from, to,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum daily totals: %w", err)
	}
	return total, nil
}

// WeeklyTimeline returns the weekly totals between two dates, oldest
// first.
func (s *Service) WeeklyTimeline(ctx context.Context, from, to time.Time) ([]WeeklyTotal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT monday, count FROM weekly_totals
		 WHERE monday BETWEEN $1 AND $2 ORDER BY monday`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("weekly timeline: %w", err)
	}
	defer rows.Close()

	var weeks []WeeklyTotal
	for rows.Next() {
		var w WeeklyTotal
		if err := rows.Scan(&w.Monday, &w.Count); err != nil {
			return nil, fmt.Errorf("scan weekly total: %w", err)
		}
		weeks = append(weeks, w)
	}
	return weeks, rows.Err()
}

// CategoryTimeline returns the hourly issue counts for a category
// between two instants, oldest first.
func (s *Service) CategoryTimeline(ctx context.Context, category string, from, to time.Time) ([]IssuesCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, count, category FROM issues_counts
		 WHERE category = $1 AND ts BETWEEN $2 AND $3 ORDER BY ts`,
		category, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("category timeline %s: %w", category, err)
	}
	defer rows.Close()

	var counts []IssuesCount
	for rows.Next() {
		var ic IssuesCount
		if err := rows.Scan(&ic.Timestamp, &ic.Count, &ic.Category); err != nil {
			return nil, fmt.Errorf("scan issues count: %w", err)
		}
		counts = append(counts, ic)
	}
	return counts, rows.Err()
}

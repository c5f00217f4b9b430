package poll

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/webcompat/ochazuke/internal/archive"
	"github.com/webcompat/ochazuke/internal/store"
	"github.com/webcompat/ochazuke/pkg/timeline"
)

// GitHubSource is the slice of the GitHub API the jobs consume.
// *Client satisfies it.
type GitHubSource interface {
	IssuesCreatedOn(ctx context.Context, repo, day string) (int, error)
	MilestoneOpenIssues(ctx context.Context, owner, name string, number int) (int, error)
}

// ReportStore is the slice of the storage layer the jobs write to.
// *store.Service satisfies it.
type ReportStore interface {
	InsertDailyTotal(ctx context.Context, day time.Time, count int) error
	InsertWeeklyTotal(ctx context.Context, monday time.Time, count int) error
	InsertIssuesCount(ctx context.Context, ic store.IssuesCount) error
	SumDailyTotals(ctx context.Context, from, to time.Time) (int, error)
}

// Jobs holds the scheduled polling jobs. They write only the reporting
// tables, never the webhook-fed issue model.
type Jobs struct {
	github     GitHubSource
	store      ReportStore
	archive    archive.StorageClient
	repo       string
	categories map[string]int
	now        func() time.Time
	lastTotals map[string]int
}

// NewJobs creates the polling jobs for one repository. archiver may be
// nil to disable timeline archiving.
func NewJobs(gh GitHubSource, st ReportStore, archiver archive.StorageClient, repo string, categories map[string]int) *Jobs {
	return &Jobs{
		github:     gh,
		store:      st,
		archive:    archiver,
		repo:       repo,
		categories: categories,
		now:        time.Now,
		lastTotals: make(map[string]int),
	}
}

// RunDailyTotal records yesterday's count of newly filed issues.
// Scheduled shortly after midnight UTC.
func (j *Jobs) RunDailyTotal(ctx context.Context) error {
	today := j.now().UTC()
	y := today.AddDate(0, 0, -1)
	yesterday := time.Date(y.Year(), y.Month(), y.Day(), 0, 0, 0, 0, time.UTC)

	count, err := j.github.IssuesCreatedOn(ctx, j.repo, yesterday.Format(timeline.DateFormat))
	if err != nil {
		return fmt.Errorf("daily total: %w", err)
	}
	if err := j.store.InsertDailyTotal(ctx, yesterday, count); err != nil {
		return fmt.Errorf("daily total: %w", err)
	}
	log.Printf("recorded %d issues filed on %s", count, yesterday.Format(timeline.DateFormat))
	return nil
}

// RunWeeklyTotal sums the previous week's daily totals into one weekly
// figure. It only acts on Mondays; other days it is a logged no-op, so
// the scheduler can fire it daily without care.
func (j *Jobs) RunWeeklyTotal(ctx context.Context) error {
	today := j.now().UTC()
	if today.Weekday() != time.Monday {
		log.Printf("weekly total: not Monday, skipping")
		return nil
	}
	monday := midnight(today.AddDate(0, 0, -7))
	sunday := midnight(today.AddDate(0, 0, -1))

	total, err := j.store.SumDailyTotals(ctx, monday, sunday)
	if err != nil {
		return fmt.Errorf("weekly total: %w", err)
	}
	if total == 0 {
		log.Printf("weekly total: no daily counts for week of %s, skipping", monday.Format(timeline.DateFormat))
		return nil
	}
	if err := j.store.InsertWeeklyTotal(ctx, monday, total); err != nil {
		return fmt.Errorf("weekly total: %w", err)
	}
	log.Printf("recorded %d issues for week of %s", total, monday.Format(timeline.DateFormat))
	return nil
}

// RunCategoryCounts samples the live open-issue count of every
// configured category's milestone. A count unchanged since the last
// sample is not recorded again.
func (j *Jobs) RunCategoryCounts(ctx context.Context) error {
	owner, name, ok := strings.Cut(j.repo, "/")
	if !ok {
		return fmt.Errorf("malformed repo slug %q", j.repo)
	}

	var errs []error
	for category, number := range j.categories {
		open, err := j.github.MilestoneOpenIssues(ctx, owner, name, number)
		if err != nil {
			log.Printf("category %s: %v", category, err)
			errs = append(errs, err)
			continue
		}
		if last, sampled := j.lastTotals[category]; sampled && last == open {
			continue
		}

		sample := store.IssuesCount{
			Timestamp: j.now().UTC().Truncate(time.Second),
			Count:     open,
			Category:  category,
		}
		if err := j.store.InsertIssuesCount(ctx, sample); err != nil {
			log.Printf("category %s: %v", category, err)
			errs = append(errs, err)
			continue
		}
		j.lastTotals[category] = open

		if err := j.archiveSample(ctx, sample); err != nil {
			log.Printf("archive %s timeline: %v", category, err)
		}
	}
	return errors.Join(errs...)
}

// timelineDocument is the archived form of a category timeline,
// matching what the read API serves.
type timelineDocument struct {
	About      string           `json:"about"`
	DateFormat string           `json:"date_format"`
	Timeline   []timeline.Entry `json:"timeline"`
}

// archiveSample appends one sample to the category's archived timeline
// document. Archive failures never fail the job; the database copy is
// authoritative.
func (j *Jobs) archiveSample(ctx context.Context, sample store.IssuesCount) error {
	if j.archive == nil {
		return nil
	}

	doc := timelineDocument{
		About:      fmt.Sprintf("Hourly %s issues count", sample.Category),
		DateFormat: "w3c",
	}
	if data, err := j.archive.GetTimeline(ctx, sample.Category); err == nil {
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("decode archived timeline: %w", err)
		}
	}

	doc.Timeline = append(doc.Timeline, timeline.Entry{
		Timestamp: sample.Timestamp.Format(time.RFC3339),
		Count:     sample.Count,
	})

	// The document holds at most the trailing year of samples.
	yearAgo := sample.Timestamp.AddDate(-1, 0, 0).Format(timeline.DateFormat)
	if days, err := timeline.Days(yearAgo, sample.Timestamp.Format(timeline.DateFormat)); err == nil {
		doc.Timeline = timeline.Slice(doc.Timeline, days)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode timeline: %w", err)
	}
	return j.archive.PutTimeline(ctx, sample.Category, data)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Package api implements the dashboard read API under /data.
// It serves issue-count timelines backed by Postgres, plus a GitHub
// passthrough for the triage backlog.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/webcompat/ochazuke/internal/store"
)

// TimelineStore is the slice of the storage layer the read API needs.
// *store.Service satisfies it.
type TimelineStore interface {
	WeeklyTimeline(ctx context.Context, from, to time.Time) ([]store.WeeklyTotal, error)
	CategoryTimeline(ctx context.Context, category string, from, to time.Time) ([]store.IssuesCount, error)
}

// Handler is the top-level handler for the dashboard read API.
type Handler struct {
	timelines  TimelineStore
	categories map[string]int
	repo       string
	client     *http.Client
	cache      *responseCache
}

// NewHandler creates a new read-API handler. categories maps timeline
// category names to their GitHub milestone numbers; repo is the
// owner/name slug the triage passthrough queries.
func NewHandler(timelines TimelineStore, categories map[string]int, repo string) *Handler {
	return &Handler{
		timelines:  timelines,
		categories: categories,
		repo:       repo,
		client:     &http.Client{Timeout: 30 * time.Second},
		cache:      newResponseCacheFromEnv(),
	}
}

// RegisterRoutes registers all read-API routes on the given ServeMux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /data/weekly-counts", h.handleWeeklyCounts)
	mux.HandleFunc("GET /data/triage-bugs", h.handleTriageBugs)
	mux.HandleFunc("GET /data/{page}", h.handleCategoryTimeline)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

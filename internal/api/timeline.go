package api

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/webcompat/ochazuke/pkg/timeline"
)

// timelinePoint is one entry of a rendered timeline document.
type timelinePoint struct {
	Count     int    `json:"count"`
	Timestamp string `json:"timestamp"`
}

// parseDateRange validates the from/to query parameters. Both must be
// present and well-formed; the returned end is exclusive, one day past
// the requested to-date so that day's samples are included.
func parseDateRange(q url.Values) (start, end time.Time, ok bool) {
	fromArg, toArg := q.Get("from"), q.Get("to")
	if fromArg == "" || toArg == "" {
		return time.Time{}, time.Time{}, false
	}
	dates, err := timeline.Days(fromArg, toArg)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	start, _ = time.Parse(timeline.DateFormat, dates[0])
	last, _ := time.Parse(timeline.DateFormat, dates[len(dates)-1])
	return start, last.AddDate(0, 0, 1), true
}

func (h *Handler) handleWeeklyCounts(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseDateRange(r.URL.Query())
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	totals, err := h.timelines.WeeklyTimeline(r.Context(), start, end)
	if err != nil {
		log.Printf("weekly timeline query: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	points := make([]timelinePoint, 0, len(totals))
	for _, wt := range totals {
		points = append(points, timelinePoint{
			Count:     wt.Count,
			Timestamp: wt.Monday.Format(timeline.DateFormat),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"about":              "Weekly Count of New Issues Reported",
		"numbering_of_weeks": "ISO calendar",
		"timeline":           points,
	})
}

// handleCategoryTimeline serves /data/{category}-timeline for every
// configured category. Anything else under /data is a 404.
func (h *Handler) handleCategoryTimeline(w http.ResponseWriter, r *http.Request) {
	page := r.PathValue("page")
	category, found := strings.CutSuffix(page, "-timeline")
	if !found {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if _, known := h.categories[category]; !known {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	start, end, ok := parseDateRange(r.URL.Query())
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	counts, err := h.timelines.CategoryTimeline(r.Context(), category, start, end)
	if err != nil {
		log.Printf("%s timeline query: %v", category, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	points := make([]timelinePoint, 0, len(counts))
	for _, ic := range counts {
		points = append(points, timelinePoint{
			Count:     ic.Count,
			Timestamp: ic.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"about":       fmt.Sprintf("Hourly %s issues count", category),
		"date_format": "w3c",
		"timeline":    points,
	})
}

// triageMilestone is the web-bugs milestone holding untriaged issues.
const triageMilestone = 2

// handleTriageBugs proxies the triage backlog straight from the GitHub
// issues API, cached briefly so dashboard reloads do not burn through
// the rate limit.
func (h *Handler) handleTriageBugs(w http.ResponseWriter, r *http.Request) {
	milestone := triageMilestone
	if n, ok := h.categories["needstriage"]; ok {
		milestone = n
	}
	u := fmt.Sprintf(
		"https://api.github.com/repos/%s/issues?sort=created&per_page=100&direction=asc&milestone=%d",
		h.repo, milestone)

	if body, ok := h.cache.get(u); ok {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, u, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	resp, err := h.client.Do(req)
	if err != nil {
		log.Printf("triage passthrough: %v", err)
		writeError(w, http.StatusBadGateway, "upstream error")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("triage passthrough: upstream status %d", resp.StatusCode)
		writeError(w, http.StatusBadGateway, "upstream error")
		return
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		writeError(w, http.StatusBadGateway, "upstream error")
		return
	}

	h.cache.put(u, body)
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

// Package poll runs the scheduled GitHub jobs that keep the reporting
// tables current: the daily total of newly filed issues, the weekly
// roll-up, and the live per-milestone open-issue counts.
package poll

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// Client wraps the GitHub API calls the polling jobs depend on.
type Client struct {
	client *github.Client
}

// NewClient creates a GitHub API client. An empty token yields an
// unauthenticated client, which is enough for public repositories but
// rate-limited harder.
func NewClient(token string, timeout time.Duration) *Client {
	var hc *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		hc = oauth2.NewClient(context.Background(), ts)
	} else {
		hc = &http.Client{}
	}
	hc.Timeout = timeout
	return &Client{client: github.NewClient(hc)}
}

// IssuesCreatedOn counts the issues filed in a repository on one day,
// via the search API. Incomplete search results are an error so the
// caller can retry rather than record a short count.
func (c *Client) IssuesCreatedOn(ctx context.Context, repo, day string) (int, error) {
	query := fmt.Sprintf("repo:%s created:%s", repo, day)
	opts := &github.SearchOptions{ListOptions: github.ListOptions{PerPage: 1}}
	result, _, err := c.client.Search.Issues(ctx, query, opts)
	if err != nil {
		return 0, fmt.Errorf("search issues created %s: %w", day, err)
	}
	if result.GetIncompleteResults() {
		return 0, errors.New("search returned incomplete results")
	}
	return result.GetTotal(), nil
}

// MilestoneOpenIssues returns the live open-issue count of a milestone.
func (c *Client) MilestoneOpenIssues(ctx context.Context, owner, name string, number int) (int, error) {
	m, _, err := c.client.Issues.GetMilestone(ctx, owner, name, number)
	if err != nil {
		return 0, fmt.Errorf("get milestone %d: %w", number, err)
	}
	return m.GetOpenIssues(), nil
}

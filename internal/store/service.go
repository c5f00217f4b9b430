// Package store provides the Postgres-backed issue/event/label/milestone
// model. Every mutation runs in its own transaction: stage the change,
// commit, and on failure roll the whole operation back.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Lookup failures callers are expected to branch on.
var (
	ErrNotFound  = errors.New("no result found")
	ErrAmbiguous = errors.New("multiple results found")
)

// Issue is a GitHub issue tracked by the dashboard. The id is the GitHub
// issue number and is never generated locally.
type Issue struct {
	ID          int64
	Title       string
	CreatedAt   time.Time
	MilestoneID *int64
	IsOpen      bool
}

// Label is a GitHub label. Names are not unique: GitHub renames can
// leave duplicates behind, which lookups report as ambiguous.
type Label struct {
	ID   int64
	Name string
}

// Milestone is a GitHub milestone, identified by its unique title.
type Milestone struct {
	ID    int64
	Title string
}

// Event is one entry in the per-issue activity log. The id is assigned
// by the database on insert.
type Event struct {
	ID         int64
	IssueID    int64
	Actor      string
	Action     string
	Details    json.RawMessage
	ReceivedAt time.Time
}

// Service provides issue-model persistence backed by Postgres.
type Service struct {
	db *sql.DB
}

// NewService creates a new store Service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error.
func (s *Service) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetIssue looks up an issue by its GitHub issue number.
func (s *Service) GetIssue(ctx context.Context, id int64) (*Issue, error) {
	iss := &Issue{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, created_at, milestone_id, is_open
		 FROM issues WHERE id = $1`,
		id,
	).Scan(&iss.ID, &iss.Title, &iss.CreatedAt, &iss.MilestoneID, &iss.IsOpen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("issue #%d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get issue #%d: %w", id, err)
	}
	return iss, nil
}

// GetLabelByName looks up a label by name. Zero matches report
// ErrNotFound, more than one ErrAmbiguous.
func (s *Service) GetLabelByName(ctx context.Context, name string) (*Label, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name FROM labels WHERE name = $1 LIMIT 2`, name)
	if err != nil {
		return nil, fmt.Errorf("get label %q: %w", name, err)
	}
	defer rows.Close()

	var labels []Label
	for rows.Next() {
		var l Label
		if err := rows.Scan(&l.ID, &l.Name); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		labels = append(labels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get label %q: %w", name, err)
	}

	switch len(labels) {
	case 0:
		return nil, fmt.Errorf("label %q: %w", name, ErrNotFound)
	case 1:
		return &labels[0], nil
	default:
		return nil, fmt.Errorf("label %q: %w", name, ErrAmbiguous)
	}
}

// GetMilestoneByTitle looks up a milestone by title.
func (s *Service) GetMilestoneByTitle(ctx context.Context, title string) (*Milestone, error) {
	m := &Milestone{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title FROM milestones WHERE title = $1`, title,
	).Scan(&m.ID, &m.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("milestone %q: %w", title, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get milestone %q: %w", title, err)
	}
	return m, nil
}

// AddIssue inserts a new issue row.
func (s *Service) AddIssue(ctx context.Context, iss *Issue) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO issues (id, title, created_at, milestone_id, is_open)
			 VALUES ($1, $2, $3, $4, $5)`,
			iss.ID, iss.Title, iss.CreatedAt, iss.MilestoneID, iss.IsOpen,
		)
		if err != nil {
			return fmt.Errorf("insert issue #%d: %w", iss.ID, err)
		}
		return nil
	})
}

// AddEvent appends an event to an issue's activity log.
func (s *Service) AddEvent(ctx context.Context, ev *Event) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO events (issue_id, actor, action, details, received_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			ev.IssueID, ev.Actor, ev.Action, ev.Details, ev.ReceivedAt,
		)
		if err != nil {
			return fmt.Errorf("insert event for issue #%d: %w", ev.IssueID, err)
		}
		return nil
	})
}

// UpdateIssueTitle replaces an issue's title.
func (s *Service) UpdateIssueTitle(ctx context.Context, id int64, title string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE issues SET title = $1 WHERE id = $2`, title, id)
		if err != nil {
			return fmt.Errorf("update title of issue #%d: %w", id, err)
		}
		return nil
	})
}

// SetIssueOpen sets an issue's open/closed state.
func (s *Service) SetIssueOpen(ctx context.Context, id int64, open bool) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE issues SET is_open = $1 WHERE id = $2`, open, id)
		if err != nil {
			return fmt.Errorf("update status of issue #%d: %w", id, err)
		}
		return nil
	})
}

// SetIssueMilestone sets or clears an issue's milestone. A nil
// milestoneID clears it; an issue legitimately has no milestone between
// the demilestoned and milestoned halves of a transition.
func (s *Service) SetIssueMilestone(ctx context.Context, id int64, milestoneID *int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE issues SET milestone_id = $1 WHERE id = $2`, milestoneID, id)
		if err != nil {
			return fmt.Errorf("update milestone of issue #%d: %w", id, err)
		}
		return nil
	})
}

// AddIssueLabel attaches a label to an issue.
func (s *Service) AddIssueLabel(ctx context.Context, issueID, labelID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO issue_labels (issue_id, label_id)
			 VALUES ($1, $2)
			 ON CONFLICT (issue_id, label_id) DO NOTHING`,
			issueID, labelID,
		)
		if err != nil {
			return fmt.Errorf("label issue #%d with label %d: %w", issueID, labelID, err)
		}
		return nil
	})
}

// RemoveIssueLabel detaches a label from an issue.
func (s *Service) RemoveIssueLabel(ctx context.Context, issueID, labelID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM issue_labels WHERE issue_id = $1 AND label_id = $2`,
			issueID, labelID,
		)
		if err != nil {
			return fmt.Errorf("unlabel issue #%d from label %d: %w", issueID, labelID, err)
		}
		return nil
	})
}

// AddLabel inserts a new label.
func (s *Service) AddLabel(ctx context.Context, name string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO labels (name) VALUES ($1)`, name)
		if err != nil {
			return fmt.Errorf("insert label %q: %w", name, err)
		}
		return nil
	})
}

// RenameLabel changes a label's name.
func (s *Service) RenameLabel(ctx context.Context, id int64, name string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE labels SET name = $1 WHERE id = $2`, name, id)
		if err != nil {
			return fmt.Errorf("rename label %d to %q: %w", id, name, err)
		}
		return nil
	})
}

// DeleteLabel removes a label and its issue associations.
func (s *Service) DeleteLabel(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM issue_labels WHERE label_id = $1`, id); err != nil {
			return fmt.Errorf("detach label %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM labels WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete label %d: %w", id, err)
		}
		return nil
	})
}

// AddMilestone inserts a new milestone.
func (s *Service) AddMilestone(ctx context.Context, title string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO milestones (title) VALUES ($1)`, title)
		if err != nil {
			return fmt.Errorf("insert milestone %q: %w", title, err)
		}
		return nil
	})
}

// RenameMilestone changes a milestone's title.
func (s *Service) RenameMilestone(ctx context.Context, id int64, title string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE milestones SET title = $1 WHERE id = $2`, title, id)
		if err != nil {
			return fmt.Errorf("rename milestone %d to %q: %w", id, title, err)
		}
		return nil
	})
}

// DeleteMilestone removes a milestone, clearing it from any issues
// still referencing it.
func (s *Service) DeleteMilestone(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE issues SET milestone_id = NULL WHERE milestone_id = $1`, id); err != nil {
			return fmt.Errorf("detach milestone %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM milestones WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete milestone %d: %w", id, err)
		}
		return nil
	})
}

// RecordDelivery writes a webhook delivery to the audit log. Duplicate
// delivery ids are ignored: a redelivery is processed again, the log
// just keeps the first sighting.
func (s *Service) RecordDelivery(ctx context.Context, id, eventType, action string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deliveries (id, event_type, action)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO NOTHING`,
		id, eventType, action,
	)
	if err != nil {
		return fmt.Errorf("record delivery %s: %w", id, err)
	}
	return nil
}

// Package reconcile applies normalized webhook events to the issue
// model. Every operation is fire-and-forget: lookup failures and
// storage errors are logged and reported as rolled-back results, never
// surfaced to the HTTP caller.
package reconcile

import (
	"context"
	"fmt"
	"log"

	"github.com/webcompat/ochazuke/internal/store"
	"github.com/webcompat/ochazuke/internal/webhook"
)

// Store is the slice of the storage layer the reconciler drives.
// *store.Service satisfies it; tests substitute an in-memory fake.
type Store interface {
	GetIssue(ctx context.Context, id int64) (*store.Issue, error)
	GetLabelByName(ctx context.Context, name string) (*store.Label, error)
	GetMilestoneByTitle(ctx context.Context, title string) (*store.Milestone, error)

	AddIssue(ctx context.Context, iss *store.Issue) error
	AddEvent(ctx context.Context, ev *store.Event) error
	UpdateIssueTitle(ctx context.Context, id int64, title string) error
	SetIssueOpen(ctx context.Context, id int64, open bool) error
	SetIssueMilestone(ctx context.Context, id int64, milestoneID *int64) error
	AddIssueLabel(ctx context.Context, issueID, labelID int64) error
	RemoveIssueLabel(ctx context.Context, issueID, labelID int64) error

	AddLabel(ctx context.Context, name string) error
	RenameLabel(ctx context.Context, id int64, name string) error
	DeleteLabel(ctx context.Context, id int64) error

	AddMilestone(ctx context.Context, title string) error
	RenameMilestone(ctx context.Context, id int64, title string) error
	DeleteMilestone(ctx context.Context, id int64) error
}

// CommitResult reports the fate of one unit of work. The HTTP layer
// acknowledges deliveries regardless; this exists so the contract is
// testable without scraping logs.
type CommitResult struct {
	Op        string
	Committed bool
	Reason    string
}

// Reconciler turns classified webhook events into store mutations.
type Reconciler struct {
	store Store
}

// New creates a Reconciler over the given store.
func New(s Store) *Reconciler {
	return &Reconciler{store: s}
}

// apply runs one unit of work and folds its outcome into a CommitResult,
// logging rollbacks. Storage errors never escape.
func (r *Reconciler) apply(op string, fn func() error) CommitResult {
	if err := fn(); err != nil {
		log.Printf("rolled back %s: %v", op, err)
		return CommitResult{Op: op, Committed: false, Reason: err.Error()}
	}
	return CommitResult{Op: op, Committed: true}
}

// ApplyIssueEvent applies a desirable issues event: one state
// mutation followed by an event-log append. An event is never appended
// for an issue the store does not hold.
func (r *Reconciler) ApplyIssueEvent(ctx context.Context, info *webhook.IssueEventInfo) []CommitResult {
	var results []CommitResult

	if info.Action == webhook.ActionOpened {
		results = append(results, r.addNewIssue(ctx, info))
	} else {
		iss, err := r.store.GetIssue(ctx, info.IssueID)
		if err != nil {
			log.Printf("skipping %s event: %v", info.Action, err)
			return results
		}
		if res, ok := r.mutateIssue(ctx, iss, info); ok {
			results = append(results, res)
		}
	}

	results = append(results, r.addNewEvent(ctx, info))
	return results
}

func (r *Reconciler) addNewIssue(ctx context.Context, info *webhook.IssueEventInfo) CommitResult {
	var milestoneID *int64
	if info.Milestone != nil {
		m, err := r.store.GetMilestoneByTitle(ctx, *info.Milestone)
		if err != nil {
			log.Printf("opening issue #%d without milestone: %v", info.IssueID, err)
		} else {
			milestoneID = &m.ID
		}
	}
	iss := &store.Issue{
		ID:          info.IssueID,
		Title:       info.Title,
		CreatedAt:   info.CreatedAt,
		MilestoneID: milestoneID,
		IsOpen:      true,
	}
	return r.apply(fmt.Sprintf("add issue #%d", iss.ID), func() error {
		return r.store.AddIssue(ctx, iss)
	})
}

// mutateIssue performs the state change for a non-opened action. The
// second return is false when a lookup failure made the mutation
// impossible; the event append still happens.
func (r *Reconciler) mutateIssue(ctx context.Context, iss *store.Issue, info *webhook.IssueEventInfo) (CommitResult, bool) {
	id := iss.ID

	switch info.Action {
	case webhook.ActionEdited:
		return r.apply(fmt.Sprintf("retitle issue #%d", id), func() error {
			return r.store.UpdateIssueTitle(ctx, id, info.Title)
		}), true

	case webhook.ActionClosed:
		return r.apply(fmt.Sprintf("close issue #%d", id), func() error {
			return r.store.SetIssueOpen(ctx, id, false)
		}), true

	case webhook.ActionReopened:
		return r.apply(fmt.Sprintf("reopen issue #%d", id), func() error {
			return r.store.SetIssueOpen(ctx, id, true)
		}), true

	case webhook.ActionMilestoned:
		if info.Milestone == nil {
			log.Printf("milestoned event for issue #%d without a milestone title", id)
			return CommitResult{}, false
		}
		m, err := r.store.GetMilestoneByTitle(ctx, *info.Milestone)
		if err != nil {
			log.Printf("skipping milestone change for issue #%d: %v", id, err)
			return CommitResult{}, false
		}
		return r.apply(fmt.Sprintf("milestone issue #%d", id), func() error {
			return r.store.SetIssueMilestone(ctx, id, &m.ID)
		}), true

	case webhook.ActionDemilestoned:
		// The issue legitimately sits milestone-less until the paired
		// milestoned delivery lands.
		return r.apply(fmt.Sprintf("demilestone issue #%d", id), func() error {
			return r.store.SetIssueMilestone(ctx, id, nil)
		}), true

	case webhook.ActionLabeled, webhook.ActionUnlabeled:
		label, err := r.store.GetLabelByName(ctx, info.LabelName)
		if err != nil {
			log.Printf("skipping label change for issue #%d: %v", id, err)
			return CommitResult{}, false
		}
		if info.Action == webhook.ActionLabeled {
			return r.apply(fmt.Sprintf("label issue #%d", id), func() error {
				return r.store.AddIssueLabel(ctx, id, label.ID)
			}), true
		}
		return r.apply(fmt.Sprintf("unlabel issue #%d", id), func() error {
			return r.store.RemoveIssueLabel(ctx, id, label.ID)
		}), true

	default:
		log.Printf("no mutation defined for issues action %s", info.Action)
		return CommitResult{}, false
	}
}

func (r *Reconciler) addNewEvent(ctx context.Context, info *webhook.IssueEventInfo) CommitResult {
	ev := &store.Event{
		IssueID:    info.IssueID,
		Actor:      info.Actor,
		Action:     info.Action.String(),
		Details:    info.Details,
		ReceivedAt: info.ReceivedAt,
	}
	return r.apply(fmt.Sprintf("append %s event for issue #%d", ev.Action, ev.IssueID), func() error {
		return r.store.AddEvent(ctx, ev)
	})
}

// ApplyLabelEvent applies a label event to the label table.
func (r *Reconciler) ApplyLabelEvent(ctx context.Context, e *webhook.LabelEvent) []CommitResult {
	op, priorName := webhook.ClassifyLabelEvent(e.Action, e.Changes)

	switch op {
	case webhook.EntityOpAdd:
		return []CommitResult{r.apply(fmt.Sprintf("add label %q", e.Label.Name), func() error {
			return r.store.AddLabel(ctx, e.Label.Name)
		})}

	case webhook.EntityOpRename:
		// Resolve by the name the label had before the edit.
		label, err := r.store.GetLabelByName(ctx, priorName)
		if err != nil {
			log.Printf("skipping label rename to %q: %v", e.Label.Name, err)
			return nil
		}
		return []CommitResult{r.apply(fmt.Sprintf("rename label %q to %q", priorName, e.Label.Name), func() error {
			return r.store.RenameLabel(ctx, label.ID, e.Label.Name)
		})}

	case webhook.EntityOpRemove:
		label, err := r.store.GetLabelByName(ctx, e.Label.Name)
		if err != nil {
			log.Printf("skipping label removal of %q: %v", e.Label.Name, err)
			return nil
		}
		return []CommitResult{r.apply(fmt.Sprintf("remove label %q", e.Label.Name), func() error {
			return r.store.DeleteLabel(ctx, label.ID)
		})}

	default:
		return nil
	}
}

// ApplyMilestoneEvent applies a milestone event to the milestone table.
func (r *Reconciler) ApplyMilestoneEvent(ctx context.Context, e *webhook.MilestoneEvent) []CommitResult {
	op, priorTitle := webhook.ClassifyMilestoneEvent(e.Action, e.Changes)

	switch op {
	case webhook.EntityOpAdd:
		return []CommitResult{r.apply(fmt.Sprintf("add milestone %q", e.Milestone.Title), func() error {
			return r.store.AddMilestone(ctx, e.Milestone.Title)
		})}

	case webhook.EntityOpRename:
		m, err := r.store.GetMilestoneByTitle(ctx, priorTitle)
		if err != nil {
			log.Printf("skipping milestone rename to %q: %v", e.Milestone.Title, err)
			return nil
		}
		return []CommitResult{r.apply(fmt.Sprintf("rename milestone %q to %q", priorTitle, e.Milestone.Title), func() error {
			return r.store.RenameMilestone(ctx, m.ID, e.Milestone.Title)
		})}

	case webhook.EntityOpRemove:
		m, err := r.store.GetMilestoneByTitle(ctx, e.Milestone.Title)
		if err != nil {
			log.Printf("skipping milestone removal of %q: %v", e.Milestone.Title, err)
			return nil
		}
		return []CommitResult{r.apply(fmt.Sprintf("remove milestone %q", e.Milestone.Title), func() error {
			return r.store.DeleteMilestone(ctx, m.ID)
		})}

	default:
		return nil
	}
}

// ProcessIssueEvent runs ApplyIssueEvent and discards the per-operation
// results. Failures are already logged by apply.
func (r *Reconciler) ProcessIssueEvent(ctx context.Context, info *webhook.IssueEventInfo) {
	r.ApplyIssueEvent(ctx, info)
}

// ProcessLabelEvent runs ApplyLabelEvent and discards the results.
func (r *Reconciler) ProcessLabelEvent(ctx context.Context, e *webhook.LabelEvent) {
	r.ApplyLabelEvent(ctx, e)
}

// ProcessMilestoneEvent runs ApplyMilestoneEvent and discards the results.
func (r *Reconciler) ProcessMilestoneEvent(ctx context.Context, e *webhook.MilestoneEvent) {
	r.ApplyMilestoneEvent(ctx, e)
}

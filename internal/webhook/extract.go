package webhook

import (
	"encoding/json"
	"fmt"
	"time"
)

// ExtractError reports a payload whose shape did not match what GitHub
// documents: a key the extractor requires was missing or empty. It is
// distinct from fields that are legitimately absent, like an issue
// without a milestone.
type ExtractError struct {
	Field string
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("unexpected payload shape: missing %s", e.Field)
}

// IssueEventInfo is the normalized record extracted from an issues
// event, the only form the reconciler ever sees.
type IssueEventInfo struct {
	IssueID   int64
	Title     string
	CreatedAt time.Time
	// Milestone is the title of the issue's current milestone, nil when
	// the issue has none.
	Milestone *string
	Actor     string
	Action    Action
	// Details is the action-dependent context stored with the event:
	// nil for opened/closed/reopened, the previous title for title
	// edits, the milestone title for (de)milestoning, the label name
	// for (un)labeling.
	Details json.RawMessage
	// LabelName is set for labeled/unlabeled actions; it duplicates the
	// Details blob so the reconciler need not re-parse it.
	LabelName string
	// ReceivedAt is the upstream update timestamp, not our own clock,
	// preserving GitHub's ordering.
	ReceivedAt time.Time
}

// ExtractIssueEventInfo normalizes an issues event for the given
// classified action. A missing required key is a hard failure: it means
// the payload shape changed upstream.
func ExtractIssueEventInfo(e *IssuesEvent, action Action) (*IssueEventInfo, error) {
	if e.Issue.Number == 0 {
		return nil, &ExtractError{Field: "issue.number"}
	}
	if e.Issue.Title == "" {
		return nil, &ExtractError{Field: "issue.title"}
	}
	if e.Issue.CreatedAt.IsZero() {
		return nil, &ExtractError{Field: "issue.created_at"}
	}
	if e.Issue.UpdatedAt.IsZero() {
		return nil, &ExtractError{Field: "issue.updated_at"}
	}
	if e.Sender.Login == "" {
		return nil, &ExtractError{Field: "sender.login"}
	}

	info := &IssueEventInfo{
		IssueID:    e.Issue.Number,
		Title:      e.Issue.Title,
		CreatedAt:  e.Issue.CreatedAt,
		Actor:      e.Sender.Login,
		Action:     action,
		ReceivedAt: e.Issue.UpdatedAt,
	}
	if e.Issue.Milestone != nil {
		title := e.Issue.Milestone.Title
		info.Milestone = &title
	}

	details, labelName, err := extractDetails(e, action)
	if err != nil {
		return nil, err
	}
	info.Details = details
	info.LabelName = labelName

	// Some milestoned payloads only carry the milestone in the event's
	// own milestone object, not yet on the issue.
	if action == ActionMilestoned && info.Milestone == nil && e.Milestone != nil {
		title := e.Milestone.Title
		info.Milestone = &title
	}
	return info, nil
}

func extractDetails(e *IssuesEvent, action Action) (json.RawMessage, string, error) {
	switch action {
	case ActionOpened, ActionClosed, ActionReopened:
		return nil, "", nil

	case ActionEdited:
		// Only title edits are desirable; a title-less edit slipping
		// through yields no details rather than an error.
		if e.Changes == nil || e.Changes.Title == nil {
			return nil, "", nil
		}
		raw, err := marshalDetails("old_title", e.Changes.Title.From)
		return raw, "", err

	case ActionMilestoned, ActionDemilestoned:
		// Milestoned payloads carry the milestone on the issue;
		// demilestoned ones only in the event's own milestone object.
		title := ""
		switch {
		case e.Issue.Milestone != nil:
			title = e.Issue.Milestone.Title
		case e.Milestone != nil:
			title = e.Milestone.Title
		}
		if title == "" {
			return nil, "", &ExtractError{Field: "milestone.title"}
		}
		raw, err := marshalDetails("milestone_title", title)
		return raw, "", err

	case ActionLabeled, ActionUnlabeled:
		if e.Label == nil || e.Label.Name == "" {
			return nil, "", &ExtractError{Field: "label.name"}
		}
		raw, err := marshalDetails("label_name", e.Label.Name)
		return raw, e.Label.Name, err

	default:
		return nil, "", nil
	}
}

func marshalDetails(key, value string) (json.RawMessage, error) {
	raw, err := json.Marshal(map[string]string{key: value})
	if err != nil {
		return nil, fmt.Errorf("marshal details: %w", err)
	}
	return raw, nil
}

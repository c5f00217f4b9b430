// Package webhook handles inbound GitHub webhook deliveries: signature
// verification, event classification, payload extraction and dispatch.
package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// VerifySignature validates the X-Hub-Signature header against the
// payload. GitHub signs deliveries with HMAC-SHA1 over the raw body,
// presented as "sha1=<hex>". The comparison is constant-time.
func VerifySignature(payload []byte, signature string, secret []byte) error {
	if !strings.HasPrefix(signature, "sha1=") {
		return fmt.Errorf("invalid signature format")
	}
	sig, err := hex.DecodeString(signature[5:])
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}

	mac := hmac.New(sha1.New, secret)
	mac.Write(payload)
	expected := mac.Sum(nil)

	if !hmac.Equal(sig, expected) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

// GitHubUser represents a GitHub user or organization.
type GitHubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

// MilestonePayload is the milestone sub-object of a payload.
type MilestonePayload struct {
	Number int64  `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"`
}

// LabelPayload is the label sub-object of a payload.
type LabelPayload struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// IssuePayload is the issue sub-object of an issues event.
type IssuePayload struct {
	Number    int64             `json:"number"`
	Title     string            `json:"title"`
	State     string            `json:"state"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Milestone *MilestonePayload `json:"milestone"`
}

// ChangeEntry is one field's entry in an edited event's change-set,
// carrying the value the field had before the edit.
type ChangeEntry struct {
	From string `json:"from"`
}

// ChangeSet is the map of edited fields GitHub sends with "edited"
// actions. Only the fields the dashboard cares about are modeled.
type ChangeSet struct {
	Title *ChangeEntry `json:"title"`
	Name  *ChangeEntry `json:"name"`
	Color *ChangeEntry `json:"color"`
}

// IssuesEvent is the payload of an "issues" webhook event.
type IssuesEvent struct {
	Action    string            `json:"action"`
	Issue     IssuePayload      `json:"issue"`
	Label     *LabelPayload     `json:"label"`
	Milestone *MilestonePayload `json:"milestone"`
	Changes   *ChangeSet        `json:"changes"`
	Sender    GitHubUser        `json:"sender"`
}

// LabelEvent is the payload of a "label" webhook event.
type LabelEvent struct {
	Action  string       `json:"action"`
	Label   LabelPayload `json:"label"`
	Changes *ChangeSet   `json:"changes"`
	Sender  GitHubUser   `json:"sender"`
}

// MilestoneEvent is the payload of a "milestone" webhook event.
type MilestoneEvent struct {
	Action    string           `json:"action"`
	Milestone MilestonePayload `json:"milestone"`
	Changes   *ChangeSet       `json:"changes"`
	Sender    GitHubUser       `json:"sender"`
}

// ParseIssuesEvent decodes an issues-event payload into its typed form.
func ParseIssuesEvent(payload []byte) (*IssuesEvent, error) {
	var e IssuesEvent
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("parse issues event: %w", err)
	}
	return &e, nil
}

// ParseLabelEvent decodes a label-event payload into its typed form.
func ParseLabelEvent(payload []byte) (*LabelEvent, error) {
	var e LabelEvent
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("parse label event: %w", err)
	}
	if e.Label.Name == "" {
		return nil, &ExtractError{Field: "label.name"}
	}
	return &e, nil
}

// ParseMilestoneEvent decodes a milestone-event payload into its typed form.
func ParseMilestoneEvent(payload []byte) (*MilestoneEvent, error) {
	var e MilestoneEvent
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("parse milestone event: %w", err)
	}
	if e.Milestone.Title == "" {
		return nil, &ExtractError{Field: "milestone.title"}
	}
	return &e, nil
}

package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/webcompat/ochazuke/internal/store"
	"github.com/webcompat/ochazuke/internal/webhook"
)

// memStore is an in-memory Store. Setting fail[method] makes that
// method return the error, standing in for a failed commit.
type memStore struct {
	issues      map[int64]*store.Issue
	labels      map[int64]*store.Label
	milestones  map[int64]*store.Milestone
	issueLabels map[[2]int64]bool
	events      []*store.Event
	nextID      int64
	fail        map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		issues:      make(map[int64]*store.Issue),
		labels:      make(map[int64]*store.Label),
		milestones:  make(map[int64]*store.Milestone),
		issueLabels: make(map[[2]int64]bool),
		nextID:      1,
		fail:        make(map[string]error),
	}
}

func (m *memStore) failure(method string) error { return m.fail[method] }

func (m *memStore) seedMilestone(title string) int64 {
	id := m.nextID
	m.nextID++
	m.milestones[id] = &store.Milestone{ID: id, Title: title}
	return id
}

func (m *memStore) seedLabel(name string) int64 {
	id := m.nextID
	m.nextID++
	m.labels[id] = &store.Label{ID: id, Name: name}
	return id
}

func (m *memStore) GetIssue(_ context.Context, id int64) (*store.Issue, error) {
	if err := m.failure("GetIssue"); err != nil {
		return nil, err
	}
	iss, ok := m.issues[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *iss
	return &cp, nil
}

func (m *memStore) GetLabelByName(_ context.Context, name string) (*store.Label, error) {
	var found *store.Label
	for _, l := range m.labels {
		if l.Name == name {
			if found != nil {
				return nil, store.ErrAmbiguous
			}
			cp := *l
			found = &cp
		}
	}
	if found == nil {
		return nil, store.ErrNotFound
	}
	return found, nil
}

func (m *memStore) GetMilestoneByTitle(_ context.Context, title string) (*store.Milestone, error) {
	for _, ms := range m.milestones {
		if ms.Title == title {
			cp := *ms
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) AddIssue(_ context.Context, iss *store.Issue) error {
	if err := m.failure("AddIssue"); err != nil {
		return err
	}
	cp := *iss
	m.issues[iss.ID] = &cp
	return nil
}

func (m *memStore) AddEvent(_ context.Context, ev *store.Event) error {
	if err := m.failure("AddEvent"); err != nil {
		return err
	}
	cp := *ev
	cp.ID = m.nextID
	m.nextID++
	m.events = append(m.events, &cp)
	return nil
}

func (m *memStore) UpdateIssueTitle(_ context.Context, id int64, title string) error {
	if err := m.failure("UpdateIssueTitle"); err != nil {
		return err
	}
	m.issues[id].Title = title
	return nil
}

func (m *memStore) SetIssueOpen(_ context.Context, id int64, open bool) error {
	if err := m.failure("SetIssueOpen"); err != nil {
		return err
	}
	m.issues[id].IsOpen = open
	return nil
}

func (m *memStore) SetIssueMilestone(_ context.Context, id int64, milestoneID *int64) error {
	if err := m.failure("SetIssueMilestone"); err != nil {
		return err
	}
	m.issues[id].MilestoneID = milestoneID
	return nil
}

func (m *memStore) AddIssueLabel(_ context.Context, issueID, labelID int64) error {
	m.issueLabels[[2]int64{issueID, labelID}] = true
	return nil
}

func (m *memStore) RemoveIssueLabel(_ context.Context, issueID, labelID int64) error {
	delete(m.issueLabels, [2]int64{issueID, labelID})
	return nil
}

func (m *memStore) AddLabel(_ context.Context, name string) error {
	if err := m.failure("AddLabel"); err != nil {
		return err
	}
	m.seedLabel(name)
	return nil
}

func (m *memStore) RenameLabel(_ context.Context, id int64, name string) error {
	m.labels[id].Name = name
	return nil
}

func (m *memStore) DeleteLabel(_ context.Context, id int64) error {
	delete(m.labels, id)
	return nil
}

func (m *memStore) AddMilestone(_ context.Context, title string) error {
	if err := m.failure("AddMilestone"); err != nil {
		return err
	}
	m.seedMilestone(title)
	return nil
}

func (m *memStore) RenameMilestone(_ context.Context, id int64, title string) error {
	m.milestones[id].Title = title
	return nil
}

func (m *memStore) DeleteMilestone(_ context.Context, id int64) error {
	delete(m.milestones, id)
	return nil
}

func issueInfo(action webhook.Action) *webhook.IssueEventInfo {
	return &webhook.IssueEventInfo{
		IssueID:    2475,
		Title:      "Can't log in to www.example.com!",
		CreatedAt:  time.Date(2018, 7, 30, 13, 22, 36, 0, time.UTC),
		Actor:      "laghee",
		Action:     action,
		ReceivedAt: time.Date(2018, 7, 30, 13, 23, 43, 0, time.UTC),
	}
}

func TestApplyIssueEventOpened(t *testing.T) {
	ms := newMemStore()
	milestoneID := ms.seedMilestone("needsdiagnosis")
	r := New(ms)

	info := issueInfo(webhook.ActionOpened)
	title := "needsdiagnosis"
	info.Milestone = &title

	results := r.ApplyIssueEvent(context.Background(), info)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, res := range results {
		if !res.Committed {
			t.Errorf("%s not committed: %s", res.Op, res.Reason)
		}
	}

	iss := ms.issues[2475]
	if iss == nil {
		t.Fatal("issue not stored")
	}
	if !iss.IsOpen {
		t.Error("issue not open")
	}
	if iss.MilestoneID == nil || *iss.MilestoneID != milestoneID {
		t.Errorf("milestone id = %v, want %d", iss.MilestoneID, milestoneID)
	}
	if len(ms.events) != 1 || ms.events[0].Action != "opened" {
		t.Fatalf("events = %+v, want one opened event", ms.events)
	}
}

func TestApplyIssueEventOpenedUnknownMilestone(t *testing.T) {
	ms := newMemStore()
	r := New(ms)

	info := issueInfo(webhook.ActionOpened)
	title := "nonexistent"
	info.Milestone = &title

	results := r.ApplyIssueEvent(context.Background(), info)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	iss := ms.issues[2475]
	if iss == nil {
		t.Fatal("issue not stored")
	}
	if iss.MilestoneID != nil {
		t.Errorf("milestone id = %v, want nil", iss.MilestoneID)
	}
}

func TestApplyIssueEventMissingIssueSkipsEvent(t *testing.T) {
	ms := newMemStore()
	r := New(ms)

	results := r.ApplyIssueEvent(context.Background(), issueInfo(webhook.ActionClosed))
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
	if len(ms.events) != 0 {
		t.Errorf("event appended for unknown issue: %+v", ms.events)
	}
}

func TestMilestoneTransientState(t *testing.T) {
	ms := newMemStore()
	oldID := ms.seedMilestone("needstriage")
	newID := ms.seedMilestone("needsdiagnosis")
	ms.issues[2475] = &store.Issue{ID: 2475, Title: "t", IsOpen: true, MilestoneID: &oldID}
	r := New(ms)

	demil := issueInfo(webhook.ActionDemilestoned)
	for _, res := range r.ApplyIssueEvent(context.Background(), demil) {
		if !res.Committed {
			t.Fatalf("%s not committed: %s", res.Op, res.Reason)
		}
	}
	if got := ms.issues[2475].MilestoneID; got != nil {
		t.Fatalf("after demilestoned, milestone id = %v, want nil", got)
	}

	mil := issueInfo(webhook.ActionMilestoned)
	title := "needsdiagnosis"
	mil.Milestone = &title
	for _, res := range r.ApplyIssueEvent(context.Background(), mil) {
		if !res.Committed {
			t.Fatalf("%s not committed: %s", res.Op, res.Reason)
		}
	}
	if got := ms.issues[2475].MilestoneID; got == nil || *got != newID {
		t.Fatalf("after milestoned, milestone id = %v, want %d", got, newID)
	}
	if len(ms.events) != 2 {
		t.Errorf("events = %d, want 2", len(ms.events))
	}
}

func TestApplyIssueEventLabeled(t *testing.T) {
	ms := newMemStore()
	labelID := ms.seedLabel("browser-firefox")
	ms.issues[2475] = &store.Issue{ID: 2475, Title: "t", IsOpen: true}
	r := New(ms)

	info := issueInfo(webhook.ActionLabeled)
	info.LabelName = "browser-firefox"

	r.ApplyIssueEvent(context.Background(), info)
	if !ms.issueLabels[[2]int64{2475, labelID}] {
		t.Error("label not attached to issue")
	}
	if len(ms.events) != 1 {
		t.Errorf("events = %d, want 1", len(ms.events))
	}
}

func TestApplyIssueEventUnknownLabelStillLogsEvent(t *testing.T) {
	ms := newMemStore()
	ms.issues[2475] = &store.Issue{ID: 2475, Title: "t", IsOpen: true}
	r := New(ms)

	info := issueInfo(webhook.ActionLabeled)
	info.LabelName = "no-such-label"

	results := r.ApplyIssueEvent(context.Background(), info)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 (event append only)", len(results))
	}
	if len(ms.events) != 1 {
		t.Errorf("events = %d, want 1", len(ms.events))
	}
	if len(ms.issueLabels) != 0 {
		t.Errorf("issue labels = %v, want none", ms.issueLabels)
	}
}

func TestApplyIssueEventStorageFailure(t *testing.T) {
	ms := newMemStore()
	ms.fail["AddIssue"] = errors.New("disk full")
	r := New(ms)

	results := r.ApplyIssueEvent(context.Background(), issueInfo(webhook.ActionOpened))

	var addResult *CommitResult
	for i := range results {
		if results[i].Op == "add issue #2475" {
			addResult = &results[i]
		}
	}
	if addResult == nil {
		t.Fatalf("no add-issue result in %+v", results)
	}
	if addResult.Committed {
		t.Error("failed add reported as committed")
	}
	if addResult.Reason == "" {
		t.Error("rollback reason empty")
	}
	if len(ms.issues) != 0 {
		t.Errorf("issue count = %d after rollback, want 0", len(ms.issues))
	}
}

func TestApplyLabelEvent(t *testing.T) {
	ms := newMemStore()
	ms.seedLabel("old-name")
	r := New(ms)

	add := &webhook.LabelEvent{Action: "created", Label: webhook.LabelPayload{Name: "priority-critical"}}
	if results := r.ApplyLabelEvent(context.Background(), add); len(results) != 1 || !results[0].Committed {
		t.Fatalf("add results = %+v", results)
	}
	if _, err := ms.GetLabelByName(context.Background(), "priority-critical"); err != nil {
		t.Fatalf("added label not found: %v", err)
	}

	// Rename resolves by the name the label had before the edit.
	rename := &webhook.LabelEvent{
		Action:  "edited",
		Label:   webhook.LabelPayload{Name: "new-name"},
		Changes: &webhook.ChangeSet{Name: &webhook.ChangeEntry{From: "old-name"}},
	}
	if results := r.ApplyLabelEvent(context.Background(), rename); len(results) != 1 || !results[0].Committed {
		t.Fatalf("rename results = %+v", results)
	}
	if _, err := ms.GetLabelByName(context.Background(), "old-name"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("old name still resolves: %v", err)
	}
	if _, err := ms.GetLabelByName(context.Background(), "new-name"); err != nil {
		t.Errorf("new name not found: %v", err)
	}

	remove := &webhook.LabelEvent{Action: "deleted", Label: webhook.LabelPayload{Name: "new-name"}}
	if results := r.ApplyLabelEvent(context.Background(), remove); len(results) != 1 || !results[0].Committed {
		t.Fatalf("remove results = %+v", results)
	}
	if _, err := ms.GetLabelByName(context.Background(), "new-name"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("deleted label still resolves: %v", err)
	}
}

func TestApplyMilestoneEvent(t *testing.T) {
	ms := newMemStore()
	r := New(ms)

	add := &webhook.MilestoneEvent{Action: "created", Milestone: webhook.MilestonePayload{Title: "needsdiagnosis"}}
	if results := r.ApplyMilestoneEvent(context.Background(), add); len(results) != 1 || !results[0].Committed {
		t.Fatalf("add results = %+v", results)
	}

	rename := &webhook.MilestoneEvent{
		Action:    "edited",
		Milestone: webhook.MilestonePayload{Title: "diagnosed"},
		Changes:   &webhook.ChangeSet{Title: &webhook.ChangeEntry{From: "needsdiagnosis"}},
	}
	if results := r.ApplyMilestoneEvent(context.Background(), rename); len(results) != 1 || !results[0].Committed {
		t.Fatalf("rename results = %+v", results)
	}
	if _, err := ms.GetMilestoneByTitle(context.Background(), "diagnosed"); err != nil {
		t.Errorf("renamed milestone not found: %v", err)
	}

	// closed carries no store operation.
	closed := &webhook.MilestoneEvent{Action: "closed", Milestone: webhook.MilestonePayload{Title: "diagnosed"}}
	before := len(ms.milestones)
	if results := r.ApplyMilestoneEvent(context.Background(), closed); results != nil {
		t.Fatalf("closed results = %+v, want nil", results)
	}
	if len(ms.milestones) != before {
		t.Errorf("milestone count changed on closed event")
	}

	remove := &webhook.MilestoneEvent{Action: "deleted", Milestone: webhook.MilestonePayload{Title: "diagnosed"}}
	if results := r.ApplyMilestoneEvent(context.Background(), remove); len(results) != 1 || !results[0].Committed {
		t.Fatalf("remove results = %+v", results)
	}
	if _, err := ms.GetMilestoneByTitle(context.Background(), "diagnosed"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("deleted milestone still resolves: %v", err)
	}
}

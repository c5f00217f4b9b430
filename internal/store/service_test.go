package store

import (
	"errors"
	"testing"
	"time"
)

func TestIssueStruct(t *testing.T) {
	milestoneID := int64(3)
	iss := Issue{
		ID:          2475,
		Title:       "Can't log in to www.example.com!",
		CreatedAt:   time.Date(2018, 7, 30, 13, 22, 36, 0, time.UTC),
		MilestoneID: &milestoneID,
		IsOpen:      true,
	}

	if iss.ID != 2475 {
		t.Errorf("ID = %d, want 2475", iss.ID)
	}
	if *iss.MilestoneID != 3 {
		t.Errorf("MilestoneID = %d, want 3", *iss.MilestoneID)
	}
	if !iss.IsOpen {
		t.Error("IsOpen = false, want true")
	}
}

func TestEventStruct(t *testing.T) {
	ev := Event{
		IssueID:    2475,
		Actor:      "laghee",
		Action:     "milestoned",
		Details:    []byte(`{"milestone_title":"needsdiagnosis"}`),
		ReceivedAt: time.Date(2018, 7, 30, 13, 23, 43, 0, time.UTC),
	}

	if ev.Actor != "laghee" {
		t.Errorf("Actor = %q, want laghee", ev.Actor)
	}
	if ev.ID != 0 {
		t.Errorf("ID = %d before insert, want 0", ev.ID)
	}
}

func TestLookupErrorsAreDistinct(t *testing.T) {
	if errors.Is(ErrNotFound, ErrAmbiguous) {
		t.Error("ErrNotFound and ErrAmbiguous must be distinguishable")
	}
}

func TestNewService(t *testing.T) {
	// NewService should not panic with nil db (it just stores the reference).
	svc := NewService(nil)
	if svc == nil {
		t.Fatal("NewService returned nil")
	}
}

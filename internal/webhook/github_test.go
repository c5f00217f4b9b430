package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"testing"
)

func computeHMAC(payload, secret []byte) string {
	mac := hmac.New(sha1.New, secret)
	mac.Write(payload)
	return "sha1=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	secret := []byte("webhook-secret-123")
	payload := []byte(`{"action":"opened"}`)

	flipped := []byte(computeHMAC(payload, secret))
	flipped[len(flipped)-1] ^= 1

	tests := []struct {
		name      string
		payload   []byte
		signature string
		secret    []byte
		wantErr   bool
	}{
		{
			name:      "valid signature",
			payload:   payload,
			signature: computeHMAC(payload, secret),
			secret:    secret,
			wantErr:   false,
		},
		{
			name:      "wrong secret",
			payload:   payload,
			signature: computeHMAC(payload, []byte("wrong-secret")),
			secret:    secret,
			wantErr:   true,
		},
		{
			name:      "tampered payload",
			payload:   []byte(`{"action":"closed"}`),
			signature: computeHMAC(payload, secret),
			secret:    secret,
			wantErr:   true,
		},
		{
			name:      "single flipped byte",
			payload:   payload,
			signature: string(flipped),
			secret:    secret,
			wantErr:   true,
		},
		{
			name:      "missing sha1= prefix",
			payload:   payload,
			signature: "not-a-valid-sig",
			secret:    secret,
			wantErr:   true,
		},
		{
			name:      "invalid hex after prefix",
			payload:   payload,
			signature: "sha1=zzzz",
			secret:    secret,
			wantErr:   true,
		},
		{
			name:      "empty signature",
			payload:   payload,
			signature: "",
			secret:    secret,
			wantErr:   true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := VerifySignature(tc.payload, tc.signature, tc.secret)
			if tc.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseLabelEvent(t *testing.T) {
	e, err := ParseLabelEvent([]byte(`{"action":"created","label":{"name":"status-needsinfo","color":"ededed"},"sender":{"login":"miketaylr"}}`))
	if err != nil {
		t.Fatalf("ParseLabelEvent: %v", err)
	}
	if e.Action != "created" {
		t.Errorf("action = %q, want %q", e.Action, "created")
	}
	if e.Label.Name != "status-needsinfo" {
		t.Errorf("label name = %q, want %q", e.Label.Name, "status-needsinfo")
	}

	var xerr *ExtractError
	if _, err := ParseLabelEvent([]byte(`{"action":"created","label":{"color":"ededed"}}`)); !errors.As(err, &xerr) {
		t.Fatalf("missing label name: got %v, want ExtractError", err)
	}
}

func TestParseMilestoneEvent(t *testing.T) {
	e, err := ParseMilestoneEvent([]byte(`{"action":"edited","milestone":{"number":3,"title":"needsdiagnosis"},"changes":{"title":{"from":"needsdiag"}}}`))
	if err != nil {
		t.Fatalf("ParseMilestoneEvent: %v", err)
	}
	if e.Milestone.Title != "needsdiagnosis" {
		t.Errorf("milestone title = %q, want %q", e.Milestone.Title, "needsdiagnosis")
	}
	if e.Changes == nil || e.Changes.Title == nil || e.Changes.Title.From != "needsdiag" {
		t.Errorf("changes.title.from not parsed: %+v", e.Changes)
	}

	var xerr *ExtractError
	if _, err := ParseMilestoneEvent([]byte(`{"action":"created","milestone":{"number":3}}`)); !errors.As(err, &xerr) {
		t.Fatalf("missing milestone title: got %v, want ExtractError", err)
	}
}

func TestParseIssuesEventMalformed(t *testing.T) {
	if _, err := ParseIssuesEvent([]byte(`{"action":`)); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}

package webhook

import (
	"context"
	"io"
	"log"
	"net/http"

	"github.com/google/uuid"
)

// Fixed response bodies. The monitoring dashboard greps delivery logs
// for these exact strings, so they are part of the contract.
const (
	msgNothingToSee = "Move along, nothing to see here"
	msgWrongHook    = "This is not the hook we are looking for."
	msgCircularFile = "We may just circular-file that, but thanks!"
	msgPong         = "pong"
	msgMunch        = "Yay! Data! *munch, munch, munch*"
)

// Processor applies classified events to durable storage. Persistence
// failures stay inside the processor; the dispatcher's response is
// decided before the store is touched.
type Processor interface {
	ProcessIssueEvent(ctx context.Context, info *IssueEventInfo)
	ProcessLabelEvent(ctx context.Context, e *LabelEvent)
	ProcessMilestoneEvent(ctx context.Context, e *MilestoneEvent)
}

// DeliveryRecorder keeps an audit trail of webhook delivery ids.
type DeliveryRecorder interface {
	RecordDelivery(ctx context.Context, id, eventType, action string) error
}

// Handler dispatches incoming GitHub webhook events.
type Handler struct {
	secret     []byte
	processor  Processor
	deliveries DeliveryRecorder
}

// NewHandler creates a new webhook Handler. deliveries may be nil, in
// which case delivery ids are not recorded.
func NewHandler(secret []byte, p Processor, d DeliveryRecorder) *Handler {
	return &Handler{
		secret:     secret,
		processor:  p,
		deliveries: d,
	}
}

// ServeHTTP handles incoming webhook requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respond(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 10<<20)) // 10 MB limit
	if err != nil {
		respond(w, http.StatusBadRequest, "failed to read body")
		return
	}

	signature := r.Header.Get("X-Hub-Signature")
	if err := VerifySignature(body, signature, h.secret); err != nil {
		log.Printf("webhook signature verification failed: %v", err)
		respond(w, http.StatusUnauthorized, msgNothingToSee)
		return
	}

	eventType := r.Header.Get("X-GitHub-Event")
	if eventType == "" {
		respond(w, http.StatusUnauthorized, msgNothingToSee)
		return
	}

	ctx := r.Context()

	switch eventType {
	case "ping":
		h.recordDelivery(ctx, r, eventType, "")
		respond(w, http.StatusOK, msgPong)
	case "issues":
		h.handleIssues(ctx, w, r, body)
	case "label":
		h.handleLabel(ctx, w, r, body)
	case "milestone":
		h.handleMilestone(ctx, w, r, body)
	default:
		log.Printf("ignoring unknown event type %q", eventType)
		respond(w, http.StatusForbidden, msgWrongHook)
	}
}

func (h *Handler) handleIssues(ctx context.Context, w http.ResponseWriter, r *http.Request, body []byte) {
	e, err := ParseIssuesEvent(body)
	if err != nil {
		log.Printf("malformed issues payload: %v", err)
		respond(w, http.StatusInternalServerError, "internal error")
		return
	}

	action := ParseAction(e.Action)
	h.recordDelivery(ctx, r, "issues", e.Action)
	if !IsDesirableIssueAction(action, e.Changes) {
		respond(w, http.StatusAccepted, msgCircularFile)
		return
	}

	info, err := ExtractIssueEventInfo(e, action)
	if err != nil {
		log.Printf("issues %s payload: %v", e.Action, err)
		respond(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.processor.ProcessIssueEvent(ctx, info)
	respond(w, http.StatusOK, msgMunch)
}

func (h *Handler) handleLabel(ctx context.Context, w http.ResponseWriter, r *http.Request, body []byte) {
	e, err := ParseLabelEvent(body)
	if err != nil {
		log.Printf("malformed label payload: %v", err)
		respond(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.recordDelivery(ctx, r, "label", e.Action)
	if op, _ := ClassifyLabelEvent(e.Action, e.Changes); op == EntityOpNone {
		respond(w, http.StatusAccepted, msgCircularFile)
		return
	}

	h.processor.ProcessLabelEvent(ctx, e)
	respond(w, http.StatusAccepted, msgMunch)
}

func (h *Handler) handleMilestone(ctx context.Context, w http.ResponseWriter, r *http.Request, body []byte) {
	e, err := ParseMilestoneEvent(body)
	if err != nil {
		log.Printf("malformed milestone payload: %v", err)
		respond(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.recordDelivery(ctx, r, "milestone", e.Action)
	if op, _ := ClassifyMilestoneEvent(e.Action, e.Changes); op == EntityOpNone {
		respond(w, http.StatusAccepted, msgCircularFile)
		return
	}

	h.processor.ProcessMilestoneEvent(ctx, e)
	respond(w, http.StatusAccepted, msgMunch)
}

// recordDelivery logs the delivery id to the audit table. GitHub sends
// one in X-GitHub-Delivery; a locally generated id stands in when the
// header is absent so every row has a key.
func (h *Handler) recordDelivery(ctx context.Context, r *http.Request, eventType, action string) {
	if h.deliveries == nil {
		return
	}
	id := r.Header.Get("X-GitHub-Delivery")
	if id == "" {
		id = uuid.New().String()
	}
	if err := h.deliveries.RecordDelivery(ctx, id, eventType, action); err != nil {
		log.Printf("record delivery %s: %v", id, err)
	}
}

func respond(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

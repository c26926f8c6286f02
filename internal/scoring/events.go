package scoring

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/go-ptescore/internal/domain"
	"github.com/ahrav/go-ptescore/pkg/activity"
	"github.com/ahrav/go-ptescore/pkg/events"
)

// Event identifiers.
const (
	EventResponseScored = "scoring.response_scored"
	eventSource         = "scoring-activity"
	eventVersion        = "1.0.0"
)

// eventNamespace seeds deterministic event ids.
var eventNamespace = uuid.MustParse("6f2c1f1e-5a43-4d0b-9d3f-8f1d3b2a7c10")

// ResponseScored is the payload of a scoring.response_scored event.
type ResponseScored struct {
	RequestID    string             `json:"request_id"`
	Section      domain.TestSection `json:"section"`
	QuestionType string             `json:"question_type"`
	Overall      int                `json:"overall"`
	Subscores    domain.Subscores   `json:"subscores"`
	Strategy     domain.Strategy    `json:"strategy"`
	Provider     string             `json:"provider,omitempty"`
	Attempts     int                `json:"attempts"`
	LatencyMs    int64              `json:"latency_ms"`
}

// EventEmitter builds scoring events and hands them to the base emitter.
type EventEmitter struct{ base activity.BaseActivities }

// NewEventEmitter returns an EventEmitter over base.
func NewEventEmitter(base activity.BaseActivities) *EventEmitter {
	return &EventEmitter{base: base}
}

// EmitResponseScored emits one event per scored response. The idempotency
// key depends only on the execution and the request, so a retried activity
// produces the same key.
func (e *EventEmitter) EmitResponseScored(
	ctx context.Context,
	req domain.ScoreRequest,
	res domain.ScoringResult,
	wfCtx activity.WorkflowContext,
) {
	payload := ResponseScored{
		Section:      req.Section,
		QuestionType: req.QuestionType,
		Overall:      res.Overall,
		Subscores:    res.Subscores,
	}
	if m := res.Metadata; m != nil {
		payload.RequestID = m.RequestID
		payload.Strategy = m.Strategy
		payload.Provider = m.Used
		payload.Attempts = len(m.Attempts)
		payload.LatencyMs = m.LatencyMs
	}

	body, err := json.Marshal(payload)
	if err != nil {
		activity.SafeLogError(ctx, "Failed to encode ResponseScored event", "error", err)
		return
	}
	key, err := idempotencyKey(wfCtx, req)
	if err != nil {
		activity.SafeLogError(ctx, "Failed to derive event idempotency key", "error", err)
		return
	}

	e.base.EmitEventSafe(ctx, events.Envelope{
		ID:             uuid.NewSHA1(eventNamespace, []byte(key)).String(),
		Type:           EventResponseScored,
		Source:         eventSource,
		Version:        eventVersion,
		Timestamp:      time.Now().UTC(),
		IdempotencyKey: key,
		WorkflowID:     wfCtx.WorkflowID,
		RunID:          wfCtx.RunID,
		Payload:        body,
	}, "ResponseScored")
}

// idempotencyKey hashes the execution identity together with the request.
func idempotencyKey(wfCtx activity.WorkflowContext, req domain.ScoreRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	for _, part := range []string{wfCtx.WorkflowID, wfCtx.RunID, wfCtx.ActivityID} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil)), nil
}

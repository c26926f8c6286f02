// Package scoring exposes the orchestrator as a Temporal activity so a
// response can be scored durably from a workflow, and emits a
// scoring.response_scored event for every result.
package scoring

import (
	"context"
	"sync"
	"time"

	"go.temporal.io/sdk/temporal"

	"github.com/ahrav/go-ptescore/internal/domain"
	pkgactivity "github.com/ahrav/go-ptescore/pkg/activity"
)

// ScoreResponseActivity is the registered name of Activities.ScoreResponse.
const ScoreResponseActivity = "ScoreResponse"

// HeartbeatTimeout is the heartbeat timeout workflows should set on
// ScoreResponse. The activity heartbeats three times per timeout while the
// scorer runs, so a slow provider chain is not mistaken for a dead worker.
const HeartbeatTimeout = 30 * time.Second

// ErrTypeInvalidInput tags non-retryable application errors raised for
// requests that can never be scored.
const ErrTypeInvalidInput = "InvalidInput"

// Scorer is the scoring entry point the activity delegates to.
// *orchestrator.Orchestrator satisfies it.
type Scorer interface {
	Score(ctx context.Context, in domain.OrchestratorInput) domain.ScoringResult
}

// Activities holds the scoring activity and its dependencies.
type Activities struct {
	pkgactivity.BaseActivities
	scorer Scorer
	events *EventEmitter

	heartbeatEvery time.Duration
	heartbeat      func(ctx context.Context, details ...any)
}

// NewActivities returns Activities delegating to scorer.
func NewActivities(base pkgactivity.BaseActivities, scorer Scorer) *Activities {
	a := &Activities{
		BaseActivities: base,
		scorer:         scorer,
		events:         NewEventEmitter(base),
		heartbeatEvery: HeartbeatTimeout / 3,
	}
	a.heartbeat = a.RecordHeartbeat
	return a
}

// ScoreResponse decodes req and scores it.
//
// A request that cannot be decoded fails with a non-retryable
// ErrTypeInvalidInput error. Provider trouble never fails the activity: the
// orchestrator folds it into a fallback result, so Temporal retries are
// reserved for worker-level faults.
func (a *Activities) ScoreResponse(ctx context.Context, req domain.ScoreRequest) (*domain.ScoringResult, error) {
	in, err := req.Input()
	if err != nil {
		return nil, nonRetryable(err, "invalid scoring request")
	}

	wfCtx := a.GetWorkflowContext(ctx)
	pkgactivity.SafeLog(ctx, "Scoring response",
		"workflow_id", wfCtx.WorkflowID,
		"activity_id", wfCtx.ActivityID,
		"section", in.Section,
		"question_type", in.QuestionType)
	stop := a.keepAlive(ctx)
	res := a.scorer.Score(ctx, in)
	stop()

	a.events.EmitResponseScored(ctx, req, res, wfCtx)
	return &res, nil
}

// keepAlive heartbeats once now and then every heartbeatEvery until the
// returned stop function is called or ctx ends. stop waits for the loop to
// exit.
func (a *Activities) keepAlive(ctx context.Context) (stop func()) {
	a.heartbeat(ctx, "scoring")

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(a.heartbeatEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.heartbeat(ctx, "scoring")
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		wg.Wait()
	}
}

func nonRetryable(cause error, msg string) error {
	return temporal.NewNonRetryableApplicationError(msg, ErrTypeInvalidInput, cause)
}

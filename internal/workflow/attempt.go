package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/ahrav/go-ptescore/internal/domain"
	"github.com/ahrav/go-ptescore/internal/normalize"
	"github.com/ahrav/go-ptescore/internal/scoring"
)

// ErrTypeValidation tags non-retryable errors for malformed workflow input.
const ErrTypeValidation = "Validation"

const (
	defaultActivityTimeout = 60 * time.Second
	maxActivityTimeout     = 10 * time.Minute
)

// ScoreAttemptInput is one test attempt: every item a candidate answered.
type ScoreAttemptInput struct {
	AttemptID string                `json:"attemptId"`
	Items     []domain.ScoreRequest `json:"items"`

	// TimeoutSeconds bounds each ScoreResponse activity. Zero means 60s.
	TimeoutSeconds int `json:"timeoutSeconds,omitempty"`
}

// ItemResult is the outcome of one item. Exactly one of Result and Error
// is set.
type ItemResult struct {
	Index        int                   `json:"index"`
	Section      domain.TestSection    `json:"section"`
	QuestionType string                `json:"questionType"`
	Result       *domain.ScoringResult `json:"result,omitempty"`
	Error        string                `json:"error,omitempty"`
}

// ScoreAttemptOutput collects item results in input order together with a
// per-section score. A section's score is the mean overall of its scored
// items, rounded and clamped onto 0-90. Sections without a scored item are
// absent.
type ScoreAttemptOutput struct {
	AttemptID     string                     `json:"attemptId"`
	Items         []ItemResult               `json:"items"`
	SectionScores map[domain.TestSection]int `json:"sectionScores"`
	Failed        int                        `json:"failed"`
}

// Validate checks the input envelope. Item payloads are checked by the
// activity, which rejects bad items without retrying them.
func (in ScoreAttemptInput) Validate() error {
	if len(in.Items) == 0 {
		return fmt.Errorf("attempt %q has no items", in.AttemptID)
	}
	if in.TimeoutSeconds < 0 {
		return fmt.Errorf("timeoutSeconds must be >= 0, got %d", in.TimeoutSeconds)
	}
	return nil
}

func (in ScoreAttemptInput) activityTimeout() time.Duration {
	if in.TimeoutSeconds == 0 {
		return defaultActivityTimeout
	}
	return min(time.Duration(in.TimeoutSeconds)*time.Second, maxActivityTimeout)
}

// ScoreAttemptWorkflow scores every item of an attempt in parallel and
// aggregates section scores. A failed item is reported in its ItemResult
// and does not fail the workflow.
func ScoreAttemptWorkflow(ctx workflow.Context, in ScoreAttemptInput) (*ScoreAttemptOutput, error) {
	const currentVersion = 1
	_ = workflow.GetVersion(ctx, "score-attempt.v", workflow.DefaultVersion, currentVersion)

	if err := in.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError("invalid attempt", ErrTypeValidation, err)
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: in.activityTimeout(),
		HeartbeatTimeout:    scoring.HeartbeatTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        time.Minute,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{scoring.ErrTypeInvalidInput},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	logger := workflow.GetLogger(ctx)

	futures := make([]workflow.Future, len(in.Items))
	for i, item := range in.Items {
		futures[i] = workflow.ExecuteActivity(ctx, scoring.ScoreResponseActivity, item)
	}

	out := &ScoreAttemptOutput{
		AttemptID: in.AttemptID,
		Items:     make([]ItemResult, len(in.Items)),
	}
	for i, f := range futures {
		item := in.Items[i]
		ir := ItemResult{Index: i, Section: item.Section, QuestionType: item.QuestionType}

		var res domain.ScoringResult
		if err := f.Get(ctx, &res); err != nil {
			ir.Error = err.Error()
			out.Failed++
			logger.Warn("Item scoring failed", "attempt_id", in.AttemptID, "index", i, "error", err)
		} else {
			ir.Result = &res
		}
		out.Items[i] = ir
	}

	out.SectionScores = sectionScores(out.Items)
	logger.Info("Attempt scored",
		"attempt_id", in.AttemptID,
		"items", len(out.Items),
		"failed", out.Failed)
	return out, nil
}

// sectionScores averages overall scores per section.
func sectionScores(items []ItemResult) map[domain.TestSection]int {
	type acc struct{ total, n int }
	bySection := map[domain.TestSection]*acc{}
	for _, it := range items {
		if it.Result == nil {
			continue
		}
		section := it.Section
		if !section.Valid() {
			section = domain.ToTestSection(string(section))
		}
		a, ok := bySection[section]
		if !ok {
			a = &acc{}
			bySection[section] = a
		}
		a.total += it.Result.Overall
		a.n++
	}

	out := make(map[domain.TestSection]int, len(bySection))
	for section, a := range bySection {
		out[section] = normalize.ClampTo90(float64(a.total) / float64(a.n))
	}
	return out
}

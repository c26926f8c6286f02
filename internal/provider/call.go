package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahrav/go-ptescore/internal/domain"
	llmerrors "github.com/ahrav/go-ptescore/internal/llm/errors"
)

// Result is the outcome of one provider invocation. Err is nil exactly when
// Score is usable; a failed Result keeps only Score.Meta.
type Result struct {
	Provider string
	Score    domain.RawProviderScore
	Err      error
	Latency  time.Duration
}

// OK reports whether the call produced a usable score.
func (r Result) OK() bool { return r.Err == nil }

// ErrorType classifies Err for metadata; it is empty on success.
func (r Result) ErrorType() llmerrors.ErrorType { return llmerrors.Classify(r.Err) }

// Call runs fn under timeout and folds every failure mode into the Result:
// returned errors, a deadline the provider ignored, a panic, and a
// well-formed but unusable score. A non-positive timeout leaves only ctx in
// charge of cancellation.
func Call(
	ctx context.Context,
	timeout time.Duration,
	name string,
	fn func(context.Context) (domain.RawProviderScore, error),
) Result {
	start := time.Now()
	res := Result{Provider: name}

	callCtx := ctx
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	type outcome struct {
		score domain.RawProviderScore
		err   error
	}
	// Buffered so an abandoned call can still deliver and exit.
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("provider %s panicked: %v", name, r)}
			}
		}()
		score, err := fn(callCtx)
		done <- outcome{score: score, err: err}
	}()

	select {
	case o := <-done:
		res.Score, res.Err = o.score, o.err
	case <-callCtx.Done():
		res.Err = fmt.Errorf("provider %s: %w", name, callCtx.Err())
	}
	res.Latency = time.Since(start)

	if res.Score.Meta.Provider == "" {
		res.Score.Meta.Provider = name
	}
	if res.Score.Meta.LatencyMs == 0 {
		res.Score.Meta.LatencyMs = res.Latency.Milliseconds()
	}

	switch {
	case res.Err != nil:
		// A provider that noticed the deadline itself may report a plain
		// context error; keep the classification stable either way.
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(res.Err, context.DeadlineExceeded) {
			res.Err = fmt.Errorf("%w: %w", context.DeadlineExceeded, res.Err)
		}
	case !res.Score.Usable():
		if res.Score.Meta.Error != "" {
			res.Err = fmt.Errorf("%w: %s", llmerrors.ErrUnusableScore, res.Score.Meta.Error)
		} else {
			res.Err = llmerrors.ErrUnusableScore
		}
	}
	if res.Err != nil {
		// A failed call contributes diagnostics only, never numbers.
		res.Score = domain.RawProviderScore{Meta: res.Score.Meta}
		if res.Score.Meta.Error == "" {
			res.Score.Meta.Error = res.Err.Error()
		}
	}
	return res
}

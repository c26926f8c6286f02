// Package worker wires the scoring workflow and activity into a Temporal
// worker.
package worker

import (
	"go.temporal.io/sdk/activity"

	"github.com/ahrav/go-ptescore/internal/scoring"
	"github.com/ahrav/go-ptescore/internal/workflow"
	pkgactivity "github.com/ahrav/go-ptescore/pkg/activity"
	"github.com/ahrav/go-ptescore/pkg/events"
)

// Registry is the registration subset shared by a Temporal worker and the
// SDK test environments.
type Registry interface {
	RegisterWorkflow(w any)
	RegisterActivityWithOptions(a any, options activity.RegisterOptions)
}

// RegisterAll registers the workflow and the scoring activity. It must be
// called once, before the worker starts.
func RegisterAll(r Registry, scorer scoring.Scorer, sink events.EventSink) {
	if sink == nil {
		sink = events.NewNoOpEventSink()
	}
	base := pkgactivity.NewBaseActivities(sink)
	acts := scoring.NewActivities(base, scorer)

	r.RegisterWorkflow(workflow.ScoreAttemptWorkflow)
	r.RegisterActivityWithOptions(acts.ScoreResponse, activity.RegisterOptions{Name: scoring.ScoreResponseActivity})
}

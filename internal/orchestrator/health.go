package orchestrator

import (
	"context"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-ptescore/internal/provider"
)

// healthTimeout bounds each probe.
const healthTimeout = 5 * time.Second

// Health probes the named providers concurrently, or every registered
// provider when names is empty. It is a diagnostic and is never consulted
// while scoring. Statuses come back in the order probed.
func (o *Orchestrator) Health(ctx context.Context, names ...string) []provider.HealthStatus {
	names = normalizeNames(names)
	if len(names) == 0 {
		for name := range o.registry {
			names = append(names, name)
		}
		slices.Sort(names)
	}

	statuses := make([]provider.HealthStatus, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			statuses[i] = o.probe(gctx, name)
			return nil
		})
	}
	_ = g.Wait()
	return statuses
}

func (o *Orchestrator) probe(ctx context.Context, name string) provider.HealthStatus {
	factory, ok := o.registry[name]
	if !ok {
		return provider.HealthStatus{Provider: name, Error: "unknown provider"}
	}
	p, err := factory(ctx)
	if err != nil {
		return provider.HealthStatus{Provider: name, Error: err.Error()}
	}
	defer closeProvider(p, o.logger)

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	st := p.Health(ctx)
	if st.Provider == "" {
		st.Provider = name
	}
	return st
}

// Package orchestrator decides how a single response is scored.
//
// Objective items are graded by the deterministic scorers and never reach a
// provider unless the caller asks for a rationale. Everything else walks the
// provider priority list once, in order, and the first usable score wins.
// When every provider fails the caller still gets a structurally valid
// result scoring 0 with a rationale saying so. Score never returns an error.
//
// An Orchestrator holds only immutable configuration and the provider
// registry, so one instance serves any number of concurrent calls. Provider
// instances are built per call and closed before Score returns.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/go-ptescore/internal/deterministic"
	"github.com/ahrav/go-ptescore/internal/domain"
	llmerrors "github.com/ahrav/go-ptescore/internal/llm/errors"
	"github.com/ahrav/go-ptescore/internal/llm/transport"
	"github.com/ahrav/go-ptescore/internal/normalize"
	"github.com/ahrav/go-ptescore/internal/provider"
)

// Orchestrator scores OrchestratorInputs against a provider registry.
type Orchestrator struct {
	cfg      Config
	registry provider.Registry
	logger   *slog.Logger
	newID    func() string
	now      func() time.Time
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRequestIDs replaces the uuid generator used for request ids.
func WithRequestIDs(fn func() string) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// New returns an Orchestrator over registry. A nil registry is valid: every
// subjective item then resolves to the fallback result.
func New(cfg Config, registry provider.Registry, opts ...Option) *Orchestrator {
	if registry == nil {
		registry = provider.Registry{}
	}
	o := &Orchestrator{
		cfg:      cfg,
		registry: registry,
		logger:   slog.Default(),
		newID:    func() string { return uuid.New().String() },
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("component", "orchestrator")
	return o
}

// Score grades in. It always returns a ScoringResult with Overall in
// [0, 90], non-nil Subscores and populated Metadata.
func (o *Orchestrator) Score(ctx context.Context, in domain.OrchestratorInput) domain.ScoringResult {
	start := o.now()
	meta := &domain.Metadata{RequestID: o.newID()}
	ctx = transport.WithRequestID(ctx, meta.RequestID)
	logger := o.logger.With(
		"request_id", meta.RequestID,
		"section", in.Section,
		"question_type", in.QuestionType,
	)

	var res domain.ScoringResult
	if det, ok := deterministic.Score(in); ok {
		meta.Strategy = domain.StrategyDeterministic
		res = det
		if in.IncludeRationale {
			res = o.enrich(ctx, in, res, meta)
		}
	} else {
		res = o.scoreWithProviders(ctx, in, meta)
	}

	if res.Subscores == nil {
		res.Subscores = domain.Subscores{}
	}
	res.Overall = normalize.ClampTo90(float64(res.Overall))
	meta.LatencyMs = o.now().Sub(start).Milliseconds()
	res.Metadata = meta

	level := slog.LevelInfo
	if meta.Strategy == domain.StrategyFallback {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "scoring completed",
		"strategy", meta.Strategy,
		"used", meta.Used,
		"attempts", len(meta.Attempts),
		"overall", res.Overall,
		"latency_ms", meta.LatencyMs,
	)
	return res
}

// scoreWithProviders runs the subjective path: first usable result wins,
// otherwise every attempt is merged into the fallback result.
func (o *Orchestrator) scoreWithProviders(ctx context.Context, in domain.OrchestratorInput, meta *domain.Metadata) domain.ScoringResult {
	meta.Providers = o.cfg.priority(in)

	task, err := provider.NewTask(in, o.cfg.timeout(in))
	if err != nil {
		meta.Strategy = domain.StrategyFallback
		meta.Errors = append(meta.Errors, err.Error())
		return o.fallback(in, nil)
	}

	winner, attempts, ok := o.runProviders(ctx, task, meta, provider.Result.OK)
	if !ok {
		meta.Strategy = domain.StrategyFallback
		return o.fallback(in, attempts)
	}

	meta.Strategy = domain.StrategyProvider
	meta.Used = winner.Provider
	return o.normalizeRaw(in, winner.Score)
}

// enrich asks the provider chain for a rationale on a deterministic result.
// The deterministic overall is never replaced; see mergeEnrichment.
func (o *Orchestrator) enrich(ctx context.Context, in domain.OrchestratorInput, res domain.ScoringResult, meta *domain.Metadata) domain.ScoringResult {
	meta.Providers = o.cfg.priority(in)

	task, err := provider.NewTask(in, o.cfg.timeout(in))
	if err != nil {
		meta.Errors = append(meta.Errors, err.Error())
		return res
	}

	hasRationale := func(r provider.Result) bool {
		return strings.TrimSpace(r.Score.Rationale) != ""
	}
	winner, _, ok := o.runProviders(ctx, task, meta, hasRationale)
	if !ok {
		return res
	}
	meta.Used = winner.Provider
	return o.mergeEnrichment(in.Section, res, winner.Score)
}

// mergeEnrichment folds a rationale provider's output into a deterministic
// result. The rationale is always taken. Subscores are taken only when
// MergeEnrichmentSubscores is set, with deterministic keys winning, and
// Overall is recomputed only when both sides contributed subscores.
func (o *Orchestrator) mergeEnrichment(section domain.TestSection, res domain.ScoringResult, ai domain.RawProviderScore) domain.ScoringResult {
	res.Rationale = normalize.JoinRationale(res.Rationale, ai.Rationale)
	if !o.cfg.MergeEnrichmentSubscores || len(ai.Subscores) == 0 {
		return res
	}

	merged := clampSubscores(ai.Subscores)
	for k, v := range res.Subscores {
		merged[k] = v
	}
	if len(res.Subscores) > 0 {
		res.Overall = normalize.WeightedOverall(merged, o.cfg.weights(section))
	}
	res.Subscores = merged
	return res
}

// runProviders walks the priority list once. It stops at the first result
// accept approves and returns it with ok set. Every attempt, successful or
// not, is recorded in meta and returned in order.
func (o *Orchestrator) runProviders(
	ctx context.Context,
	task provider.Task,
	meta *domain.Metadata,
	accept func(provider.Result) bool,
) (provider.Result, []domain.RawProviderScore, bool) {
	var attempts []domain.RawProviderScore

	for _, name := range meta.Providers {
		if err := ctx.Err(); err != nil {
			meta.Errors = append(meta.Errors, fmt.Sprintf("scoring stopped before %s: %v", name, err))
			break
		}

		res := o.attempt(ctx, task, name)
		attempts = append(attempts, res.Score)

		ok := accept(res)
		am := domain.AttemptMeta{
			Provider:  name,
			Model:     res.Score.Meta.Model,
			OK:        ok,
			LatencyMs: res.Latency.Milliseconds(),
		}
		if !ok {
			err := res.Err
			if err == nil {
				err = errNoRationale
			}
			am.ErrorType = string(llmerrors.Classify(err))
			am.Error = err.Error()
			meta.Errors = append(meta.Errors, fmt.Sprintf("%s: %s", name, am.Error))
			o.logger.Debug("provider attempt failed",
				"request_id", meta.RequestID,
				"provider", name,
				"error_type", am.ErrorType,
				"error", am.Error,
			)
		}
		meta.Attempts = append(meta.Attempts, am)

		if ok {
			return res, attempts, true
		}
	}
	return provider.Result{}, attempts, false
}

var errNoRationale = errors.New("provider returned no rationale")

// attempt builds, calls and releases one provider. Construction failures
// come back as failed Results like any other.
func (o *Orchestrator) attempt(ctx context.Context, task provider.Task, name string) provider.Result {
	factory, ok := o.registry[name]
	if !ok {
		return failedResult(name, fmt.Errorf("%w: %s", llmerrors.ErrUnknownProvider, name))
	}

	p, err := factory(ctx)
	if err != nil {
		return failedResult(name, err)
	}
	defer closeProvider(p, o.logger)

	return provider.Call(ctx, task.Timeout(), name, func(ctx context.Context) (domain.RawProviderScore, error) {
		return task.Run(ctx, p)
	})
}

func failedResult(name string, err error) provider.Result {
	return provider.Result{
		Provider: name,
		Err:      err,
		Score:    domain.RawProviderScore{Meta: domain.ProviderMeta{Provider: name, Error: err.Error()}},
	}
}

func closeProvider(p provider.Provider, logger *slog.Logger) {
	c, ok := p.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		logger.Warn("failed to close provider", "provider", p.Name(), "error", err)
	}
}

// normalizeRaw turns the winning provider score into a ScoringResult. A
// reported overall is clamped; otherwise the section-weighted mean of the
// subscores is used.
func (o *Orchestrator) normalizeRaw(in domain.OrchestratorInput, raw domain.RawProviderScore) domain.ScoringResult {
	subs := clampSubscores(raw.Subscores)
	res := domain.ScoringResult{Subscores: subs}
	if raw.Overall != nil && !isNonFinite(*raw.Overall) {
		res.Overall = normalize.ClampTo90(*raw.Overall)
	} else {
		res.Overall = normalize.WeightedOverall(subs, o.cfg.weights(in.Section))
	}
	if in.IncludeRationale {
		res.Rationale = strings.TrimSpace(raw.Rationale)
	}
	return res
}

// fallback merges whatever the attempts produced. A score only reaches
// here when nothing was usable, so the merged rationale always reports the
// failure.
func (o *Orchestrator) fallback(in domain.OrchestratorInput, attempts []domain.RawProviderScore) domain.ScoringResult {
	res := normalize.MergeProviderScores(attempts, in.Section, o.cfg.Weights)
	if !strings.Contains(res.Rationale, normalize.AllProvidersFailedRationale) {
		res.Rationale = normalize.JoinRationale(normalize.AllProvidersFailedRationale, res.Rationale)
	}
	res.Metadata = nil
	return res
}

func clampSubscores(in domain.Subscores) domain.Subscores {
	out := make(domain.Subscores, len(in))
	for k, v := range in {
		if isNonFinite(v) {
			continue
		}
		out[k] = float64(normalize.ClampTo90(v))
	}
	return out
}

func isNonFinite(v float64) bool { return math.IsNaN(v) || math.IsInf(v, 0) }

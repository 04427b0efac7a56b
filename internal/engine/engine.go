// Package engine wires the store to the scheduling pipeline and assembles the
// per-strategy result.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/logging"
	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/model"
	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/rag"
)

// Source loads the snapshot of one strategy.
type Source interface {
	LoadSnapshot(ctx context.Context, strategyID string) (*model.Snapshot, error)
}

// Writer persists cached schedule values. All rows or none.
type Writer interface {
	SaveSchedules(ctx context.Context, strategyID string, schedules []model.Schedule, at time.Time) error
}

// Engine computes results on demand. It holds no per-strategy state; every
// call reads a fresh snapshot.
type Engine struct {
	source Source
	writer Writer
	policy func() rag.Policy
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithWriter enables write-back of the computed schedule after each compute.
func WithWriter(w Writer) Option {
	return func(e *Engine) { e.writer = w }
}

// WithPolicy sets a fixed classifier policy.
func WithPolicy(p rag.Policy) Option {
	return func(e *Engine) { e.policy = func() rag.Policy { return p } }
}

// WithPolicyFunc reads the policy on every compute, for hot reloading.
func WithPolicyFunc(fn func() rag.Policy) Option {
	return func(e *Engine) { e.policy = fn }
}

// WithClock sets the clock used when the caller supplies no reference date.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine reading from source.
func New(source Source, opts ...Option) *Engine {
	e := &Engine{
		source: source,
		policy: rag.DefaultPolicy,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the policy the next compute will use.
func (e *Engine) Policy() rag.Policy { return e.policy() }

// Compute loads the strategy, runs the pipeline and, when a writer is set,
// writes the schedule back. A zero asOf means today.
func (e *Engine) Compute(ctx context.Context, strategyID string, asOf time.Time) (*Result, error) {
	logger := logging.FromContext(ctx).With("strategy_id", strategyID)

	if asOf.IsZero() {
		asOf = e.now()
	}

	snap, err := e.source.LoadSnapshot(ctx, strategyID)
	if err != nil {
		return nil, fmt.Errorf("load strategy %s: %w", strategyID, err)
	}

	res, err := Calculate(snap, asOf, e.policy(), logger)
	if err != nil {
		logger.Error("compute failed", "error", err)
		return nil, err
	}

	if e.writer != nil {
		if err := e.writer.SaveSchedules(ctx, strategyID, res.Schedules(), e.now()); err != nil {
			return nil, fmt.Errorf("write back schedule for %s: %w", strategyID, err)
		}
		logger.Debug("schedule written back", "tasks", len(res.Schedule))
	}

	return res, nil
}

// Validate runs only the graph checks and the schedule arithmetic, returning
// the dropped-edge anomalies. A cycle is returned as the error.
func (e *Engine) Validate(ctx context.Context, strategyID string) (*Result, error) {
	snap, err := e.source.LoadSnapshot(ctx, strategyID)
	if err != nil {
		return nil, fmt.Errorf("load strategy %s: %w", strategyID, err)
	}
	return Calculate(snap, e.now(), e.policy(), logging.FromContext(ctx).With("strategy_id", strategyID))
}

// Static serves one already-loaded snapshot, for fixtures and the CLI.
func Static(snap *model.Snapshot) Source { return staticSource{snap} }

type staticSource struct{ snap *model.Snapshot }

func (s staticSource) LoadSnapshot(_ context.Context, strategyID string) (*model.Snapshot, error) {
	if s.snap.StrategyID != strategyID {
		return nil, fmt.Errorf("snapshot is for strategy %s, not %s", s.snap.StrategyID, strategyID)
	}
	return s.snap, nil
}

// Package sweep probes every host address of a range, one at a time, and
// accumulates the classified outcomes.
package sweep

import (
	"context"
	"errors"
	"iter"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/HerbHall/rangeping/internal/addrrange"
	"github.com/HerbHall/rangeping/internal/probe"
	"github.com/HerbHall/rangeping/pkg/models"
)

// Sweep status labels.
const (
	StatusCompleted = "completed"
	StatusAbandoned = "abandoned"
	StatusCancelled = "cancelled"
)

// Option configures an Executor.
type Option func(*Executor)

// WithMetrics records probe and sweep metrics.
func WithMetrics(m *Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithRateLimit paces probe starts to at most perSecond. Zero or negative
// leaves probes unpaced.
func WithRateLimit(perSecond float64) Option {
	return func(e *Executor) {
		if perSecond > 0 {
			e.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// Executor runs sweeps with a single Prober.
type Executor struct {
	prober  probe.Prober
	logger  *zap.Logger
	metrics *Metrics
	limiter *rate.Limiter
	now     func() time.Time
}

// NewExecutor creates an Executor.
func NewExecutor(p probe.Prober, logger *zap.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Executor{
		prober: p,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Sweep prepares a sweep of r. Nothing is probed until the caller ranges
// over Run.Outcomes.
func (e *Executor) Sweep(ctx context.Context, id string, r addrrange.Range) *Run {
	return &Run{
		exec: e,
		ctx:  ctx,
		rng:  r,
		result: models.SweepResult{
			ID:         uuid.New().String(),
			Identifier: id,
			Range:      r.CIDR(),
			StartedAt:  e.now().UTC(),
			Results:    make([]models.ProbeResult, 0, min(r.HostCount(), 1<<16)),
		},
	}
}

// Run drives a sweep to the end, calling observe after each probe. It
// returns the accumulated results together with the context error if the
// sweep was cancelled.
func (e *Executor) Run(ctx context.Context, id string, r addrrange.Range, observe func(models.ProbeResult)) (models.SweepResult, error) {
	run := e.Sweep(ctx, id, r)
	for res := range run.Outcomes() {
		if observe != nil {
			observe(res)
		}
	}
	return run.Results(), run.Err()
}

// probeOne probes addr and classifies the reply. Failures are folded into
// an OutcomeProbeError result.
func (e *Executor) probeOne(ctx context.Context, addr string) models.ProbeResult {
	start := e.now()
	res := models.ProbeResult{Address: addr}

	raw, err := e.prober.Probe(ctx, addr)
	if err == nil {
		res.Outcome, err = probe.Classify(raw)
	}
	if err != nil {
		res.Outcome = models.OutcomeProbeError
		res.Error = err.Error()
		e.logger.Warn("probe failed",
			zap.String("addr", addr),
			zap.Error(err),
			zap.String("output", excerpt(raw)),
		)
	}
	res.Duration = e.now().Sub(start)
	e.metrics.observeProbe(res.Outcome, res.Duration)
	return res
}

// Run is one sweep. Its outcome sequence can be consumed once.
type Run struct {
	exec    *Executor
	ctx     context.Context
	rng     addrrange.Range
	started atomic.Bool

	mu     sync.Mutex
	result models.SweepResult
	done   bool
	err    error
}

// Outcomes yields one result per host address in enumeration order. Each
// result is recorded before it is yielded. Breaking out of the loop, or
// cancelling the sweep's context, abandons the remaining addresses and
// keeps what was already recorded. Later calls yield nothing.
func (run *Run) Outcomes() iter.Seq[models.ProbeResult] {
	return func(yield func(models.ProbeResult) bool) {
		if !run.started.CompareAndSwap(false, true) {
			return
		}
		e := run.exec
		log := e.logger.With(zap.String("sweep", run.result.ID), zap.String("range", run.result.Range))
		log.Info("sweep started", zap.Int("hosts", run.rng.HostCount()))

		status := StatusAbandoned
		defer func() {
			run.finish(status)
			e.metrics.observeSweep(status)
			log.Info("sweep finished", zap.String("status", status), zap.Int("probed", run.Len()))
		}()

		for addr := range run.rng.Hosts() {
			if err := run.wait(); err != nil {
				status = StatusCancelled
				run.setErr(err)
				return
			}

			res := e.probeOne(run.ctx, addr)
			if err := run.ctx.Err(); err != nil {
				// The probe was cut short; its outcome says nothing about the host.
				status = StatusCancelled
				run.setErr(err)
				return
			}

			run.append(res)
			log.Debug("probed", zap.String("addr", addr), zap.String("outcome", string(res.Outcome)))
			if !yield(res) {
				return
			}
		}
		status = StatusCompleted
	}
}

func (run *Run) wait() error {
	if err := run.ctx.Err(); err != nil {
		return err
	}
	if run.exec.limiter == nil {
		return nil
	}
	return run.exec.limiter.Wait(run.ctx)
}

// Results returns a copy of the results recorded so far.
func (run *Run) Results() models.SweepResult {
	run.mu.Lock()
	defer run.mu.Unlock()
	out := run.result
	out.Results = slices.Clone(run.result.Results)
	return out
}

// Len returns how many addresses have been probed.
func (run *Run) Len() int {
	run.mu.Lock()
	defer run.mu.Unlock()
	return len(run.result.Results)
}

// Done reports whether every host address was probed.
func (run *Run) Done() bool {
	run.mu.Lock()
	defer run.mu.Unlock()
	return run.done
}

// Err returns the context error that stopped the sweep, if any.
func (run *Run) Err() error {
	run.mu.Lock()
	defer run.mu.Unlock()
	return run.err
}

// ID returns the sweep's unique id.
func (run *Run) ID() string {
	return run.result.ID
}

// Total returns the number of host addresses the sweep covers.
func (run *Run) Total() int {
	return run.rng.HostCount()
}

func (run *Run) append(res models.ProbeResult) {
	run.mu.Lock()
	defer run.mu.Unlock()
	run.result.Results = append(run.result.Results, res)
}

func (run *Run) setErr(err error) {
	run.mu.Lock()
	defer run.mu.Unlock()
	if run.err == nil {
		run.err = err
	}
}

func (run *Run) finish(status string) {
	run.mu.Lock()
	defer run.mu.Unlock()
	run.done = status == StatusCompleted
	run.result.EndedAt = run.exec.now().UTC()
}

// IsCancelled reports whether err stopped a sweep early.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func excerpt(s string) string {
	const limit = 200
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

// Package rangeping ties the range cache, sweep executor, reporter and
// history store together behind the calls a front end needs: resolve a
// site's range, sweep it, summarize, and persist the results.
package rangeping

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/rangeping/internal/history"
	"github.com/HerbHall/rangeping/internal/probe"
	"github.com/HerbHall/rangeping/internal/rangecache"
	"github.com/HerbHall/rangeping/internal/report"
	"github.com/HerbHall/rangeping/internal/sweep"
	"github.com/HerbHall/rangeping/pkg/models"
)

// ErrNoRange is returned by Session.Sweep before a range was resolved.
var ErrNoRange = errors.New("no range resolved")

// ProberFactory builds a prober for one sweep from caller-supplied probe
// arguments. An empty args string selects the configured defaults.
type ProberFactory func(args string) probe.Prober

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source for sweeps and history stamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSweepOptions passes options to every sweep executor.
func WithSweepOptions(opts ...sweep.Option) Option {
	return func(e *Engine) { e.sweepOpts = append(e.sweepOpts, opts...) }
}

// Engine holds the shared collaborators. It is safe to create many
// sessions from one Engine.
type Engine struct {
	cache     *rangecache.Cache
	history   *history.Store
	probers   ProberFactory
	logger    *zap.Logger
	now       func() time.Time
	sweepOpts []sweep.Option
}

// NewEngine creates an Engine.
func NewEngine(cache *rangecache.Cache, hist *history.Store, probers ProberFactory, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		cache:   cache,
		history: hist,
		probers: probers,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Cache returns the range cache.
func (e *Engine) Cache() *rangecache.Cache { return e.cache }

// History returns the history store.
func (e *Engine) History() *history.Store { return e.history }

// NewSession starts an empty session.
func (e *Engine) NewSession() *Session {
	return &Session{engine: e}
}

// Session is one front-end interaction: a resolved range and its most
// recent sweep.
type Session struct {
	engine *Engine

	mu    sync.Mutex
	entry rangecache.Entry
	ready bool
	run   *sweep.Run
}

// ResolveRange resolves id through the cache, computing and storing the
// range from spec and mask on a miss.
func (s *Session) ResolveRange(ctx context.Context, id, spec, mask string) (rangecache.Entry, error) {
	e, err := s.engine.cache.Resolve(ctx, id, spec, mask)
	if err != nil {
		return rangecache.Entry{}, err
	}
	s.mu.Lock()
	s.entry, s.ready, s.run = e, true, nil
	s.mu.Unlock()
	return e, nil
}

// Entry returns the resolved range, if any.
func (s *Session) Entry() (rangecache.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entry, s.ready
}

// Sweep prepares a sweep of the resolved range probing with args. Range
// over the returned run's Outcomes to drive it.
func (s *Session) Sweep(ctx context.Context, args string) (*sweep.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil, ErrNoRange
	}

	e := s.engine
	opts := append([]sweep.Option{sweep.WithClock(e.now)}, e.sweepOpts...)
	exec := sweep.NewExecutor(e.probers(args), e.logger.Named("sweep"), opts...)
	s.run = exec.Sweep(ctx, s.entry.Identifier, s.entry.Range)
	return s.run, nil
}

// Results returns the results of the latest sweep so far.
func (s *Session) Results() models.SweepResult {
	s.mu.Lock()
	run := s.run
	s.mu.Unlock()
	if run == nil {
		return models.SweepResult{}
	}
	return run.Results()
}

// Summarize reports on the latest sweep. It fails with
// report.ErrEmptyResults before any address was probed.
func (s *Session) Summarize() (string, error) {
	return report.Summarize(s.Results())
}

// PersistResults appends the latest sweep to the site's history. With
// overwrite set the history table is started over. It reports false when
// the session has no identifier to save under.
func (s *Session) PersistResults(overwrite bool) (bool, error) {
	results := s.Results()
	s.mu.Lock()
	entry := s.entry
	s.mu.Unlock()

	ok, err := s.engine.history.Save(entry.Identifier, entry.Range, results, s.engine.now(), overwrite)
	if err != nil {
		return false, err
	}
	if ok {
		s.engine.logger.Info("results persisted",
			zap.String("id", entry.Identifier),
			zap.Int("results", results.Len()),
			zap.Bool("overwrite", overwrite),
		)
	}
	return ok, nil
}

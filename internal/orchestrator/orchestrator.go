// Package orchestrator drives one end-to-end search: engine selection,
// concurrent per-engine fan-out under individual deadlines, and handoff of
// the survivors to the aggregator.
package orchestrator

import (
	"context"
	"errors"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/a3s-lab/metasearch/internal/aggregator"
	"github.com/a3s-lab/metasearch/internal/engine"
	"github.com/a3s-lab/metasearch/internal/proxypool"
	"github.com/a3s-lab/metasearch/internal/query"
	"github.com/a3s-lab/metasearch/internal/result"
	"github.com/a3s-lab/metasearch/internal/searcherrors"
	"github.com/a3s-lab/metasearch/internal/stats"
)

// Orchestrator owns the registered engine set and runs one Search at a time
// per call — concurrent calls to Search are independent and safe.
type Orchestrator struct {
	mu             sync.RWMutex
	engines        []engine.Engine
	defaultTimeout time.Duration
	proxyPool      *proxypool.Pool
	agg            *aggregator.Aggregator
	stats          *stats.Registry
}

// Option configures an Orchestrator at construction.
type Option func(*Orchestrator)

// WithAggregator overrides the default equal-weight aggregator.
func WithAggregator(a *aggregator.Aggregator) Option {
	return func(o *Orchestrator) { o.agg = a }
}

// New returns an Orchestrator with no engines registered and a 5s default
// per-engine timeout, used when an engine's own Config().Timeout is zero.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		defaultTimeout: 5 * time.Second,
		agg:            aggregator.New(nil),
		stats:          stats.NewRegistry(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Stats returns the registry of rolling per-engine counters accumulated
// across every Search call so far.
func (o *Orchestrator) Stats() *stats.Registry {
	return o.stats
}

// AddEngine registers an engine for future Search calls.
func (o *Orchestrator) AddEngine(e engine.Engine) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.engines = append(o.engines, e)
}

// SetTimeout overrides the fallback per-engine timeout.
func (o *Orchestrator) SetTimeout(d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.defaultTimeout = d
}

// SetProxyPool attaches a proxy pool; engines that accept one may consult
// it via their own fetcher construction. The orchestrator itself does not
// route traffic — it only holds the reference for callers/CLI wiring.
func (o *Orchestrator) SetProxyPool(p *proxypool.Pool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.proxyPool = p
}

type taskOutcome struct {
	engineName string
	results    []result.RawResult
	err        error
}

// Search runs q against every eligible registered engine concurrently,
// merges the survivors, and returns the aggregated results. A non-nil error
// is returned only for the two search-ending conditions — no engines
// registered, or an empty query — everything else downgrades into the
// returned SearchResults.Errors map.
func (o *Orchestrator) Search(ctx context.Context, q query.SearchQuery) (*result.SearchResults, error) {
	o.mu.RLock()
	engines := make([]engine.Engine, len(o.engines))
	copy(engines, o.engines)
	defaultTimeout := o.defaultTimeout
	o.mu.RUnlock()

	if len(engines) == 0 {
		return nil, searcherrors.ErrNoEngines
	}
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return nil, searcherrors.ErrInvalidQuery
	}

	eligible := selectEngines(engines, q)

	start := time.Now()
	outcomes := runTasks(ctx, eligible, q, defaultTimeout, o.stats)

	var inputs []aggregator.EngineResults
	errs := make(map[string]string)
	for _, oc := range outcomes {
		if oc.err != nil {
			var suspended *searcherrors.EngineSuspendedError
			if !errors.As(oc.err, &suspended) {
				errs[oc.engineName] = oc.err.Error()
			}
			continue
		}
		inputs = append(inputs, aggregator.EngineResults{EngineName: oc.engineName, Results: oc.results})
	}

	merged := o.agg.Aggregate(inputs)

	return &result.SearchResults{
		Items:      merged,
		Count:      len(merged),
		DurationMs: time.Since(start).Milliseconds(),
		Errors:     errs,
	}, nil
}

// selectEngines returns the subset of engines eligible for q per the
// selection rule: enabled, and either explicitly named in q.Engines or
// (when q.Engines is empty) sharing at least one category with q.
func selectEngines(engines []engine.Engine, q query.SearchQuery) []engine.Engine {
	var eligible []engine.Engine
	explicit := len(q.Engines) > 0

	for _, e := range engines {
		cfg := e.Config()
		if !cfg.Enabled {
			continue
		}
		if explicit {
			if q.WantsEngine(cfg.Shortcut) {
				eligible = append(eligible, e)
			}
			continue
		}
		if categoriesIntersect(q.Categories, cfg.Categories) {
			eligible = append(eligible, e)
		}
	}
	return eligible
}

func categoriesIntersect(a, b []query.Category) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// runTasks fans out one goroutine per eligible engine via errgroup, each
// under its own timeout, and collects every outcome — success, per-engine
// error, or recovered panic — without letting one engine's failure affect
// another's.
func runTasks(ctx context.Context, engines []engine.Engine, q query.SearchQuery, defaultTimeout time.Duration, reg *stats.Registry) []taskOutcome {
	outcomes := make([]taskOutcome, len(engines))

	var eg errgroup.Group
	for i, e := range engines {
		i, e := i, e
		eg.Go(func() error {
			outcomes[i] = runOneEngine(ctx, e, q, defaultTimeout, reg)
			return nil
		})
	}
	_ = eg.Wait() // task bodies never return an error; outcomes are recorded directly

	return outcomes
}

// runOneEngine executes one engine's Search under its own deadline,
// recovering a panic into a taskOutcome error instead of letting it crash
// the whole Search call, and records the outcome in reg.
func runOneEngine(ctx context.Context, e engine.Engine, q query.SearchQuery, defaultTimeout time.Duration, reg *stats.Registry) (oc taskOutcome) {
	cfg := e.Config()
	oc.engineName = cfg.Name

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("engine", cfg.Name).
				Str("stack", sanitizeStackTrace(debug.Stack())).
				Msg("recovered panic in engine task")
			oc.err = searcherrors.NewOther("panic: %v", r)
			reg.RecordError(cfg.Name)
		}
	}()

	timeout := time.Duration(cfg.Timeout * float64(time.Second))
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	results, err := e.Search(taskCtx, q)
	if err != nil {
		if taskCtx.Err() == context.DeadlineExceeded {
			oc.err = &searcherrors.TimeoutError{Engine: cfg.Name}
			reg.RecordTimeout(cfg.Name)
		} else {
			oc.err = err
			reg.RecordError(cfg.Name)
		}
		return oc
	}

	reg.RecordSuccess(cfg.Name, time.Since(started))
	oc.results = results
	return oc
}

// sanitizeStackTrace redacts full file paths down to basenames so a logged
// panic doesn't leak the host's directory layout.
func sanitizeStackTrace(stack []byte) string {
	lines := strings.Split(string(stack), "\n")
	sanitized := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.Contains(line, "/") && strings.Contains(line, ".go:") {
			parts := strings.Split(line, "/")
			sanitized = append(sanitized, parts[len(parts)-1])
			continue
		}
		sanitized = append(sanitized, line)
	}
	return strings.Join(sanitized, "\n")
}

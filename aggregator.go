package main

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// AggregatorConfig is fixed when the Aggregator is built and read-only afterwards.
type AggregatorConfig struct {
	// Parallel dispatches terms to a worker pool instead of evaluating them in order.
	Parallel bool
	// Workers is the pool size in parallel mode; 0 means runtime.NumCPU().
	Workers int
	// NumericThreads is the intra-term goroutine count in sequential mode; 0 means runtime.NumCPU().
	// Parallel mode always uses 1 so workers do not oversubscribe the CPUs.
	NumericThreads int
	// Strategy is the contraction hint handed to the engine.
	Strategy Strategy
	// MaxQubits bounds the plans of the default engine.
	MaxQubits int
	// Decompose evaluates each term on the subgraph within p hops of its nodes.
	Decompose bool
}

// AggregatorOption customises an Aggregator.
type AggregatorOption func(*Aggregator)

// WithLogger sets the logger used for per-call totals.
func WithLogger(l zerolog.Logger) AggregatorOption {
	return func(a *Aggregator) { a.logger = l }
}

// WithEngine replaces the default state-vector engine.
func WithEngine(e Engine) AggregatorOption {
	return func(a *Aggregator) { a.engine = e }
}

// WithTotalHook registers fn to be called with every successful total, after it is recorded.
func WithTotalHook(fn func(total float64)) AggregatorOption {
	return func(a *Aggregator) { a.onTotal = fn }
}

// Aggregator sums weighted local expectations over every cost term of a graph and
// records each total in its trajectory.
type Aggregator struct {
	cfg     AggregatorConfig
	engine  Engine
	logger  zerolog.Logger
	onTotal func(float64)

	mu         sync.Mutex
	trajectory []float64
}

// NewAggregator validates cfg, fills in CPU-based defaults and returns an Aggregator.
func NewAggregator(cfg AggregatorConfig, opts ...AggregatorOption) (*Aggregator, error) {
	if cfg.Workers < 0 || cfg.NumericThreads < 0 {
		return nil, fmt.Errorf("%w: workers=%d numeric threads=%d", ErrInvalidParameter, cfg.Workers, cfg.NumericThreads)
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.NumericThreads == 0 {
		cfg.NumericThreads = runtime.NumCPU()
	}
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyGreedy
	}
	strategy, err := ParseStrategy(string(cfg.Strategy))
	if err != nil {
		return nil, err
	}
	cfg.Strategy = strategy

	a := &Aggregator{
		cfg:    cfg,
		engine: StateVectorEngine{MaxQubits: cfg.MaxQubits},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Config returns the effective configuration.
func (a *Aggregator) Config() AggregatorConfig { return a.cfg }

// Trajectory returns a copy of every total recorded so far, oldest first.
func (a *Aggregator) Trajectory() []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.trajectory)
}

// threadedEngine pins the intra-term goroutine count when the engine supports it.
func (a *Aggregator) threadedEngine(threads int) Engine {
	if te, ok := a.engine.(ThreadedEngine); ok {
		return te.WithThreads(threads)
	}
	return a.engine
}

// termTask carries everything one term needs; all of it is read-only.
type termTask struct {
	term  CostTerm
	graph *ProblemGraph
	circ  *Circuit // nil when the task builds its own subgraph circuit
	idx   *NodeIndexMap
	p     int
	gamma []float64
	beta  []float64
}

func (t termTask) run(ctx context.Context, ev *Evaluator) (float64, error) {
	circ, idx := t.circ, t.idx
	if circ == nil {
		sub, err := t.graph.Subgraph(t.graph.Neighbourhood(t.term.Nodes(), t.p))
		if err != nil {
			return 0, err
		}
		idx = NewNodeIndexMap(sub)
		circ, err = BuildCircuitSplit(sub, idx, t.p, t.gamma, t.beta)
		if err != nil {
			return 0, err
		}
	}
	return ev.Evaluate(ctx, circ, t.term, idx)
}

// Aggregate returns the total expectation of g's cost for the depth-p ansatz with angles.
// It fails without recording anything if any term fails.
func (a *Aggregator) Aggregate(ctx context.Context, g *ProblemGraph, p int, angles Angles) (float64, error) {
	gamma, beta, err := angles.Split(p)
	if err != nil {
		return 0, err
	}

	mode := "sequential"
	if a.cfg.Parallel {
		mode = "parallel"
	}
	start := time.Now()

	tasks, err := a.tasks(g, p, gamma, beta)
	if err != nil {
		aggregateFailures.WithLabelValues(mode).Inc()
		return 0, err
	}

	var values []float64
	if a.cfg.Parallel {
		values, err = a.runParallel(ctx, tasks)
	} else {
		values, err = a.runSequential(ctx, tasks)
	}
	if err != nil {
		aggregateFailures.WithLabelValues(mode).Inc()
		return 0, err
	}

	total := 0.0
	for _, v := range values {
		total += v
	}

	a.mu.Lock()
	a.trajectory = append(a.trajectory, total)
	iteration := len(a.trajectory)
	a.mu.Unlock()

	elapsed := time.Since(start)
	aggregateDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	lastExpectation.Set(total)
	a.logger.Info().
		Int("iteration", iteration).
		Str("mode", mode).
		Int("terms", len(tasks)).
		Dur("elapsed", elapsed).
		Float64("expectation", total).
		Msg("Total expectation of original graph")

	if a.onTotal != nil {
		a.onTotal(total)
	}
	return total, nil
}

// tasks builds one task per cost term. Without decomposition the circuit is built once and shared.
func (a *Aggregator) tasks(g *ProblemGraph, p int, gamma, beta []float64) ([]termTask, error) {
	var (
		circ *Circuit
		idx  *NodeIndexMap
	)
	if !a.cfg.Decompose {
		idx = NewNodeIndexMap(g)
		c, err := BuildCircuitSplit(g, idx, p, gamma, beta)
		if err != nil {
			return nil, err
		}
		circ = c
	} else if g.NodeCount() == 0 {
		return nil, fmt.Errorf("%w: graph has no nodes", ErrInvalidParameter)
	}

	terms := Terms(g)
	tasks := make([]termTask, len(terms))
	for i, t := range terms {
		tasks[i] = termTask{term: t, graph: g, circ: circ, idx: idx, p: p, gamma: gamma, beta: beta}
	}
	return tasks, nil
}

func (a *Aggregator) runSequential(ctx context.Context, tasks []termTask) ([]float64, error) {
	ev := NewEvaluator(a.threadedEngine(a.cfg.NumericThreads), a.cfg.Strategy)
	values := make([]float64, len(tasks))
	for i, t := range tasks {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAggregation, err)
		}
		v, err := t.run(ctx, ev)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", ErrAggregation, err)
			}
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// runParallel feeds task indices through a queue to a fixed pool of workers. Each worker
// writes only its own result slots, so the reduction after Wait needs no locking.
func (a *Aggregator) runParallel(ctx context.Context, tasks []termTask) ([]float64, error) {
	ev := NewEvaluator(a.threadedEngine(1), a.cfg.Strategy)
	values := make([]float64, len(tasks))
	workers := max(min(a.cfg.Workers, len(tasks)), 1)

	eg, egctx := errgroup.WithContext(ctx)
	queue := make(chan int)

	eg.Go(func() error {
		defer close(queue)
		for i := range tasks {
			select {
			case queue <- i:
			case <-egctx.Done():
				return egctx.Err()
			}
		}
		return nil
	})

	for range workers {
		eg.Go(func() error {
			for i := range queue {
				if err := egctx.Err(); err != nil {
					return err
				}
				v, err := tasks[i].run(egctx, ev)
				if err != nil {
					return err
				}
				values[i] = v
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAggregation, err)
	}
	return values, nil
}

// Objective binds the aggregator to g and p as the optimizer's objective callable.
func (a *Aggregator) Objective(g *ProblemGraph, p int) func(ctx context.Context, x []float64) (float64, error) {
	return func(ctx context.Context, x []float64) (float64, error) {
		return a.Aggregate(ctx, g, p, Angles(slices.Clone(x)))
	}
}

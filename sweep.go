package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SweepConfig is the full parameter set of a problem-size sweep.
type SweepConfig struct {
	NodeCounts    []int
	Degree        int
	Colors        int
	Penalty       float64
	Seed          uint64
	P             int
	// InitialAngles overrides the seeded starting point, gamma then beta.
	InitialAngles []float64
	Aggregator    AggregatorConfig
	Optimizer     OptimizerConfig
}

// SweepEventKind tags progress notifications.
type SweepEventKind int

const (
	SweepSizeStarted SweepEventKind = iota
	SweepEvaluated
	SweepSizeFinished
)

// SweepEvent reports sweep progress to observers such as the TUI.
type SweepEvent struct {
	Kind        SweepEventKind
	Index       int // position in NodeCounts
	Sizes       int // len(NodeCounts)
	NodeCount   int
	Qubits      int
	Expectation float64 // total of the latest evaluation, or the final value
	Elapsed     time.Duration
	Angles      []float64
	Circuit     *Circuit // starting ansatz, on SweepSizeStarted only
}

// Sweeper runs the optimizer over one coloring instance per node count.
type Sweeper struct {
	cfg    SweepConfig
	logger zerolog.Logger
	notify func(SweepEvent)
}

// NewSweeper validates cfg. notify may be nil.
func NewSweeper(cfg SweepConfig, logger zerolog.Logger, notify func(SweepEvent)) (*Sweeper, error) {
	if len(cfg.NodeCounts) == 0 {
		return nil, fmt.Errorf("%w: empty node count list", ErrInvalidParameter)
	}
	if cfg.P < 1 {
		return nil, fmt.Errorf("%w: depth p=%d, need p >= 1", ErrInvalidParameter, cfg.P)
	}
	if len(cfg.InitialAngles) > 0 {
		if _, _, err := Angles(cfg.InitialAngles).Split(cfg.P); err != nil {
			return nil, fmt.Errorf("initial angles: %w", err)
		}
	}
	if notify == nil {
		notify = func(SweepEvent) {}
	}
	return &Sweeper{cfg: cfg, logger: logger, notify: notify}, nil
}

// startingAngles returns the configured starting point or a seeded draw.
func (s *Sweeper) startingAngles(nodes int) Angles {
	if len(s.cfg.InitialAngles) > 0 {
		return slices.Clone(Angles(s.cfg.InitialAngles))
	}
	return initialAngles(s.cfg.Seed, nodes, s.cfg.P)
}

// initialAngles draws gamma and beta uniformly from [0,1), seeded per size.
func initialAngles(seed uint64, nodes, p int) Angles {
	rng := rand.New(rand.NewPCG(seed, uint64(nodes)))
	gamma := make([]float64, p)
	beta := make([]float64, p)
	for i := range p {
		gamma[i] = rng.Float64()
	}
	for i := range p {
		beta[i] = rng.Float64()
	}
	return NewAngles(gamma, beta)
}

// Instance builds the coloring instance of the sweep for a node count.
func (s *Sweeper) Instance(nodes int) (*IsingInstance, error) {
	return GraphColoring(ColoringConfig{
		Nodes:   nodes,
		Degree:  s.cfg.Degree,
		Colors:  s.cfg.Colors,
		Penalty: s.cfg.Penalty,
		Seed:    s.cfg.Seed + uint64(nodes),
	})
}

// Run optimizes every size in order and stops at the first failing size.
func (s *Sweeper) Run(ctx context.Context) (*SweepRecord, error) {
	optimizer, err := NewOptimizer(s.cfg.Optimizer)
	if err != nil {
		return nil, err
	}

	rec := &SweepRecord{
		RunID:         uuid.NewString(),
		CPU:           hardwareStamp(),
		NodeCountList: slices.Clone(s.cfg.NodeCounts),
		MaxIterations: s.cfg.Optimizer.MaxIterations,
		P:             s.cfg.P,
		NodeDegree:    s.cfg.Degree,
		ColorCount:    s.cfg.Colors,
		Method:        s.cfg.Optimizer.Method,
	}
	log := s.logger.With().Str("run_id", rec.RunID).Logger()

	for i, nodes := range s.cfg.NodeCounts {
		inst, err := s.Instance(nodes)
		if err != nil {
			return nil, fmt.Errorf("sweep size %d: %w", nodes, err)
		}
		qubits := inst.Graph.NodeCount()
		x0 := s.startingAngles(nodes)
		ansatz, err := BuildCircuit(inst.Graph, nil, s.cfg.P, x0)
		if err != nil {
			return nil, fmt.Errorf("sweep size %d: %w", nodes, err)
		}
		s.notify(SweepEvent{Kind: SweepSizeStarted, Index: i, Sizes: len(s.cfg.NodeCounts), NodeCount: nodes, Qubits: qubits, Circuit: ansatz})

		agg, err := NewAggregator(s.cfg.Aggregator,
			WithLogger(log.With().Int("nodes", nodes).Logger()),
			WithTotalHook(func(total float64) {
				s.notify(SweepEvent{Kind: SweepEvaluated, Index: i, Sizes: len(s.cfg.NodeCounts), NodeCount: nodes, Qubits: qubits, Expectation: total})
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("sweep size %d: %w", nodes, err)
		}
		rec.Strategy = string(agg.Config().Strategy)

		maxDegree := 0
		for _, id := range inst.Graph.Nodes() {
			maxDegree = max(maxDegree, inst.Graph.Degree(id))
		}
		log.Info().
			Int("nodes", nodes).
			Int("qubits", qubits).
			Int("ising_edges", inst.Graph.EdgeCount()).
			Int("max_degree", maxDegree).
			Floats64("x0", x0).
			Msg("optimizing instance")

		start := time.Now()
		res, err := optimizer.Minimize(ctx, agg.Objective(inst.Graph, s.cfg.P), x0)
		elapsed := time.Since(start)
		if err != nil {
			return nil, fmt.Errorf("sweep size %d: %w", nodes, err)
		}

		gamma, beta, err := Angles(res.X).Split(s.cfg.P)
		if err != nil {
			return nil, fmt.Errorf("sweep size %d: %w", nodes, err)
		}
		rec.Time = append(rec.Time, elapsed.Seconds())
		rec.Expectation = append(rec.Expectation, res.F)
		rec.Parameters = append(rec.Parameters, [][]float64{slices.Clone(gamma), slices.Clone(beta)})
		rec.Converged = append(rec.Converged, res.Converged)
		rec.Trajectories = append(rec.Trajectories, agg.Trajectory())

		log.Info().
			Int("nodes", nodes).
			Dur("elapsed", elapsed).
			Float64("expectation", res.F).
			Float64("energy", res.F+inst.Offset).
			Int("iterations", res.Iterations).
			Int("evaluations", res.FuncEvaluations).
			Str("status", res.Status).
			Msg("instance done")
		s.notify(SweepEvent{
			Kind: SweepSizeFinished, Index: i, Sizes: len(s.cfg.NodeCounts), NodeCount: nodes, Qubits: qubits,
			Expectation: res.F, Elapsed: elapsed, Angles: slices.Clone(res.X),
		})
	}
	return rec, nil
}

package main

import (
	"bytes"
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// AggregatorSuite exercises Aggregate over a small coloring instance.
type AggregatorSuite struct {
	suite.Suite
	ctx    context.Context
	inst   *IsingInstance
	angles Angles
}

func (s *AggregatorSuite) SetupTest() {
	s.ctx = context.Background()
	inst, err := GraphColoring(ColoringConfig{Nodes: 4, Degree: 2, Colors: 3, Seed: 11})
	require.NoError(s.T(), err)
	s.inst = inst
	s.angles = Angles{0.35, -0.2, 0.8, 0.45}
}

func (s *AggregatorSuite) aggregator(cfg AggregatorConfig, opts ...AggregatorOption) *Aggregator {
	a, err := NewAggregator(cfg, opts...)
	require.NoError(s.T(), err)
	return a
}

// TestSumOfTerms: the total is the sum of every weighted term evaluated on its own.
func (s *AggregatorSuite) TestSumOfTerms() {
	g := s.inst.Graph
	idx := NewNodeIndexMap(g)
	c, err := BuildCircuit(g, idx, 2, s.angles)
	require.NoError(s.T(), err)

	ev := NewEvaluator(StateVectorEngine{}, StrategyGreedy)
	want := 0.0
	for _, term := range Terms(g) {
		v, err := ev.Evaluate(s.ctx, c, term, idx)
		require.NoError(s.T(), err)
		want += v
	}

	got, err := s.aggregator(AggregatorConfig{NumericThreads: 1}).Aggregate(s.ctx, g, 2, s.angles)
	require.NoError(s.T(), err)
	require.Equal(s.T(), want, got)
}

// TestParallelMatchesSequential: both modes sum the same slots in the same order.
func (s *AggregatorSuite) TestParallelMatchesSequential() {
	g := s.inst.Graph
	seq, err := s.aggregator(AggregatorConfig{}).Aggregate(s.ctx, g, 2, s.angles)
	require.NoError(s.T(), err)

	for _, workers := range []int{1, 3, 64} {
		par, err := s.aggregator(AggregatorConfig{Parallel: true, Workers: workers}).Aggregate(s.ctx, g, 2, s.angles)
		require.NoError(s.T(), err)
		require.InDelta(s.T(), seq, par, 1e-9, "workers=%d", workers)
		require.Equal(s.T(), seq, par, "workers=%d", workers)
	}
}

// TestStrategiesAgree: greedy, full and per-term decomposition give the same total.
func (s *AggregatorSuite) TestStrategiesAgree() {
	g := s.inst.Graph
	greedy, err := s.aggregator(AggregatorConfig{}).Aggregate(s.ctx, g, 1, s.angles[1:3])
	require.NoError(s.T(), err)
	full, err := s.aggregator(AggregatorConfig{Strategy: StrategyFull}).Aggregate(s.ctx, g, 1, s.angles[1:3])
	require.NoError(s.T(), err)
	decomposed, err := s.aggregator(AggregatorConfig{Decompose: true, Parallel: true}).Aggregate(s.ctx, g, 1, s.angles[1:3])
	require.NoError(s.T(), err)

	require.InDelta(s.T(), full, greedy, 1e-10)
	require.InDelta(s.T(), full, decomposed, 1e-10)
}

// TestIdempotent: repeated calls give identical totals and grow the trajectory.
func (s *AggregatorSuite) TestIdempotent() {
	var hooked []float64
	a := s.aggregator(AggregatorConfig{}, WithTotalHook(func(v float64) { hooked = append(hooked, v) }))
	first, err := a.Aggregate(s.ctx, s.inst.Graph, 2, s.angles)
	require.NoError(s.T(), err)
	second, err := a.Aggregate(s.ctx, s.inst.Graph, 2, s.angles)
	require.NoError(s.T(), err)

	require.Equal(s.T(), first, second)
	require.Equal(s.T(), []float64{first, second}, a.Trajectory())
	require.Equal(s.T(), a.Trajectory(), hooked)
}

// TestFailureRecordsNothing: a failing term fails the whole call without a trajectory entry.
func (s *AggregatorSuite) TestFailureRecordsNothing() {
	boom := errors.New("contraction blew up")
	for _, parallel := range []bool{false, true} {
		a := s.aggregator(AggregatorConfig{Parallel: parallel, Workers: 2}, WithEngine(fixedEngine{err: boom}))
		_, err := a.Aggregate(s.ctx, s.inst.Graph, 1, Angles{0.1, 0.2})
		require.ErrorIs(s.T(), err, boom)
		if parallel {
			require.ErrorIs(s.T(), err, ErrAggregation)
		}
		require.Empty(s.T(), a.Trajectory())
	}
}

// TestAngleValidation: a mismatched angle vector is rejected before any work.
func (s *AggregatorSuite) TestAngleValidation() {
	a := s.aggregator(AggregatorConfig{})
	_, err := a.Aggregate(s.ctx, s.inst.Graph, 2, Angles{0.1, 0.2, 0.3})
	require.ErrorIs(s.T(), err, ErrInvalidParameter)
	_, err = a.Aggregate(s.ctx, s.inst.Graph, 0, Angles{})
	require.ErrorIs(s.T(), err, ErrInvalidParameter)
	require.Empty(s.T(), a.Trajectory())
}

// TestCancelled: a cancelled context fails both modes with ErrAggregation.
func (s *AggregatorSuite) TestCancelled() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	for _, parallel := range []bool{false, true} {
		a := s.aggregator(AggregatorConfig{Parallel: parallel})
		_, err := a.Aggregate(ctx, s.inst.Graph, 1, Angles{0.1, 0.2})
		require.ErrorIs(s.T(), err, ErrAggregation)
		require.ErrorIs(s.T(), err, context.Canceled)
		require.Empty(s.T(), a.Trajectory())
	}
}

func TestAggregatorSuite(t *testing.T) {
	suite.Run(t, new(AggregatorSuite))
}

func TestAggregateTwoNodeEdge(t *testing.T) {
	// For h = 0 only the edge contributes: J*<ZZ> = -J*sin(4*beta)*sin(gamma*J).
	g := NewProblemGraph()
	require.NoError(t, g.AddNode(0, 0))
	require.NoError(t, g.AddNode(1, 0))
	require.NoError(t, g.AddEdge(0, 1, 1))

	a, err := NewAggregator(AggregatorConfig{})
	require.NoError(t, err)
	got, err := a.Aggregate(context.Background(), g, 1, Angles{0.3, 0.6})
	require.NoError(t, err)
	require.InDelta(t, -math.Sin(2.4)*math.Sin(0.3), got, 1e-12)
}

func TestAggregateModesAgree(t *testing.T) {
	type edge struct {
		u, v int64
		w    float64
	}
	tests := []struct {
		name    string
		weights []float64
		edges   []edge
		p       int
		angles  Angles
		want    float64
	}{
		{
			name:    "two nodes one edge",
			weights: []float64{1, 1},
			edges:   []edge{{0, 1, 1}},
			p:       1,
			angles:  Angles{0.3, 0.6},
			want:    1.117738854158330,
		},
		{
			// Without edges every node gives h*sin(2*gamma*h)*sin(2*beta).
			name:    "no edges",
			weights: []float64{1, -0.5, 2},
			p:       1,
			angles:  Angles{0.3, 0.6},
			want:    math.Sin(0.6)*math.Sin(1.2) - 0.5*math.Sin(-0.3)*math.Sin(1.2) + 2*math.Sin(1.2)*math.Sin(1.2),
		},
		{
			name:    "self-loop counts its weight",
			weights: []float64{1, -0.5, 2},
			edges:   []edge{{0, 0, 0.75}, {1, 2, 1.5}},
			p:       2,
			angles:  Angles{0.3, -0.2, 0.6, 0.4},
			want:    2.644541575076789,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := NewProblemGraph()
			for i, w := range tc.weights {
				require.NoError(t, g.AddNode(int64(i), w))
			}
			for _, e := range tc.edges {
				require.NoError(t, g.AddEdge(e.u, e.v, e.w))
			}

			for _, cfg := range []AggregatorConfig{
				{Strategy: StrategyGreedy},
				{Strategy: StrategyGreedy, Parallel: true, Workers: 3},
				{Strategy: StrategyGreedy, Decompose: true},
				{Strategy: StrategyGreedy, Decompose: true, Parallel: true, Workers: 3},
				{Strategy: StrategyFull, Parallel: true, Workers: 2},
			} {
				a, err := NewAggregator(cfg)
				require.NoError(t, err)
				got, err := a.Aggregate(context.Background(), g, tc.p, tc.angles)
				require.NoError(t, err, "%+v", cfg)
				require.InDelta(t, tc.want, got, 1e-9, "%+v", cfg)
				require.Equal(t, []float64{got}, a.Trajectory())
			}
		})
	}
}

func TestNewAggregatorDefaults(t *testing.T) {
	a, err := NewAggregator(AggregatorConfig{})
	require.NoError(t, err)
	cfg := a.Config()
	require.Positive(t, cfg.Workers)
	require.Positive(t, cfg.NumericThreads)
	require.Equal(t, StrategyGreedy, cfg.Strategy)

	_, err = NewAggregator(AggregatorConfig{Workers: -1})
	require.ErrorIs(t, err, ErrInvalidParameter)
	_, err = NewAggregator(AggregatorConfig{Strategy: "auto"})
	require.ErrorIs(t, err, ErrContraction)
}

// countingEngine counts calls to the wrapped engine.
type countingEngine struct {
	Engine
	calls *atomic.Int64
}

func (e countingEngine) LocalExpectation(ctx context.Context, c *Circuit, obs Observable, s Strategy) (Complex, error) {
	e.calls.Add(1)
	return e.Engine.LocalExpectation(ctx, c, obs, s)
}

func TestObjectiveLogsEveryCall(t *testing.T) {
	g := chainGraph(t, 3, 0.5, -1)
	calls := new(atomic.Int64)
	var buf bytes.Buffer
	a, err := NewAggregator(AggregatorConfig{Parallel: true, Workers: 2},
		WithEngine(countingEngine{Engine: StateVectorEngine{}, calls: calls}),
		WithLogger(zerolog.New(&buf)),
	)
	require.NoError(t, err)

	obj := a.Objective(g, 1)
	v, err := obj(context.Background(), []float64{0.2, 0.4})
	require.NoError(t, err)
	_, err = obj(context.Background(), []float64{0.2, 0.4})
	require.NoError(t, err)

	require.Equal(t, int64(2*5), calls.Load(), "one engine call per term per evaluation")
	require.Equal(t, []float64{v, v}, a.Trajectory())
	require.Contains(t, buf.String(), "Total expectation of original graph")
	require.Contains(t, buf.String(), `"iteration":2`)
}

package main

import (
	"context"
	"fmt"
	"math"
	"time"
)

// imagTolerance is the imaginary residue above which an evaluation is recorded in imagResidue.
const imagTolerance = 1e-9

// Evaluator computes weighted local expectation values of single cost terms.
type Evaluator struct {
	Engine   Engine
	Strategy Strategy
}

// NewEvaluator returns an Evaluator backed by engine. An empty strategy means greedy.
func NewEvaluator(engine Engine, strategy Strategy) *Evaluator {
	if strategy == "" {
		strategy = StrategyGreedy
	}
	return &Evaluator{Engine: engine, Strategy: strategy}
}

// Evaluate returns weight * <Z_u> for a node term or weight * <Z_u Z_v> for an edge term.
// Only the real part of the engine result is kept.
func (ev *Evaluator) Evaluate(ctx context.Context, c *Circuit, t CostTerm, idx *NodeIndexMap) (float64, error) {
	val, err := ev.evaluate(ctx, c, t, idx)
	if err != nil {
		return 0, err
	}
	return real(val) * t.Weight, nil
}

func (ev *Evaluator) evaluate(ctx context.Context, c *Circuit, t CostTerm, idx *NodeIndexMap) (Complex, error) {
	qu, ok := idx.Qubit(t.U)
	if !ok {
		return 0, fmt.Errorf("%w: term %s references unmapped node %d", ErrInvalidParameter, t, t.U)
	}

	var obs Observable
	switch t.Kind {
	case NodeTerm:
		obs = PauliZ(qu)
	case EdgeTerm:
		qv, ok := idx.Qubit(t.V)
		if !ok {
			return 0, fmt.Errorf("%w: term %s references unmapped node %d", ErrInvalidParameter, t, t.V)
		}
		obs = PauliZZ(qu, qv)
	default:
		return 0, fmt.Errorf("%w: unknown term kind %s", ErrInvalidParameter, t.Kind)
	}

	start := time.Now()
	val, err := ev.Engine.LocalExpectation(ctx, c, obs, ev.Strategy)
	termDuration.WithLabelValues(t.Kind.String(), string(ev.Strategy)).Observe(time.Since(start).Seconds())
	if err != nil {
		termEvaluations.WithLabelValues(t.Kind.String(), "error").Inc()
		return 0, fmt.Errorf("evaluate %s: %w", t, err)
	}
	termEvaluations.WithLabelValues(t.Kind.String(), "ok").Inc()
	if math.Abs(imag(val)) > imagTolerance {
		imagResidue.Observe(math.Abs(imag(val)))
	}
	return val, nil
}

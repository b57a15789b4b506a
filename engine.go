package main

import (
	"context"
	"fmt"
	"strings"
)

// Strategy names how the engine plans a local expectation. It is an opaque hint to the engine.
type Strategy string

const (
	// StrategyGreedy simulates only the backward light cone of the observed qubits.
	StrategyGreedy Strategy = "greedy"
	// StrategyFull simulates every qubit of the circuit.
	StrategyFull Strategy = "full"
)

// DefaultMaxQubits bounds the dense state a plan may allocate (2^26 amplitudes, 1 GiB).
const DefaultMaxQubits = 26

// ParseStrategy validates a strategy name.
func ParseStrategy(name string) (Strategy, error) {
	switch s := Strategy(strings.ToLower(strings.TrimSpace(name))); s {
	case StrategyGreedy, StrategyFull:
		return s, nil
	default:
		return "", fmt.Errorf("%w: unknown contraction strategy %q", ErrContraction, name)
	}
}

// Observable is a product of Pauli Z operators on the listed qubits.
type Observable struct {
	Qubits []int
}

// PauliZ observes Z on one qubit.
func PauliZ(q int) Observable { return Observable{Qubits: []int{q}} }

// PauliZZ observes Z⊗Z on two qubits. a == b yields the identity.
func PauliZZ(a, b int) Observable { return Observable{Qubits: []int{a, b}} }

func (o Observable) String() string {
	parts := make([]string, len(o.Qubits))
	for i, q := range o.Qubits {
		parts[i] = fmt.Sprintf("Z%d", q)
	}
	return strings.Join(parts, "")
}

// Engine evaluates local expectation values of a circuit. Implementations must be safe for
// concurrent use; the circuit is shared read-only.
type Engine interface {
	LocalExpectation(ctx context.Context, c *Circuit, obs Observable, strategy Strategy) (Complex, error)
}

// ThreadedEngine is an Engine whose intra-term parallelism can be fixed by the caller.
type ThreadedEngine interface {
	Engine
	WithThreads(n int) Engine
}

// StateVectorEngine is the dense state-vector Engine.
type StateVectorEngine struct {
	MaxQubits int // largest plan accepted; <= 0 means DefaultMaxQubits
	Threads   int // goroutines per gate loop
}

// WithThreads returns a copy of e using n goroutines per gate loop.
func (e StateVectorEngine) WithThreads(n int) Engine {
	e.Threads = n
	return e
}

func (e StateVectorEngine) maxQubits() int {
	if e.MaxQubits <= 0 {
		return DefaultMaxQubits
	}
	return e.MaxQubits
}

// LocalExpectation plans the observable with strategy, simulates the planned circuit and
// returns <psi|O|psi>.
func (e StateVectorEngine) LocalExpectation(ctx context.Context, c *Circuit, obs Observable, strategy Strategy) (Complex, error) {
	if len(obs.Qubits) == 0 {
		return 0, fmt.Errorf("%w: empty observable", ErrContraction)
	}

	var (
		plan  *Circuit
		where []int
	)
	switch strategy {
	case StrategyGreedy:
		sub, w, err := FromCircuit(c).Restrict(obs.Qubits...)
		if err != nil {
			return 0, err
		}
		plan, where = sub, w
	case StrategyFull:
		for _, q := range obs.Qubits {
			if q < 0 || q >= c.NumQubits {
				return 0, fmt.Errorf("%w: observed qubit %d outside %d qubits", ErrContraction, q, c.NumQubits)
			}
		}
		plan, where = c, obs.Qubits
	default:
		return 0, fmt.Errorf("%w: unknown contraction strategy %q", ErrContraction, strategy)
	}

	if plan.NumQubits > e.maxQubits() {
		return 0, fmt.Errorf("%w: %s plan for %s needs %d qubits, limit %d",
			ErrContraction, strategy, obs, plan.NumQubits, e.maxQubits())
	}

	state, err := SimulateCircuit(ctx, plan, e.Threads)
	if err != nil {
		return 0, err
	}
	return state.ExpectationZ(where...), nil
}

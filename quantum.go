package main

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"
	"sync"
)

type Complex = complex128

// parallelThreshold is the amplitude count below which gate loops stay on one goroutine.
const parallelThreshold = 1 << 14

// StateVector is a dense n-qubit state. Qubit q is bit q of the amplitude index.
type StateVector struct {
	Amplitudes []Complex
	NumQubits  int
	Threads    int // goroutines used by gate loops; <= 1 runs inline
}

// NewStateVector returns |0...0> on numQubits qubits.
func NewStateVector(numQubits, threads int) *StateVector {
	n := 1 << numQubits
	amps := make([]Complex, n)
	amps[0] = 1
	return &StateVector{Amplitudes: amps, NumQubits: numQubits, Threads: threads}
}

// parallelFor splits [0,n) into contiguous chunks, one goroutine each.
// Chunks must touch disjoint amplitudes.
func (s *StateVector) parallelFor(n int, fn func(lo, hi int)) {
	workers := s.Threads
	if workers <= 1 || n < parallelThreshold {
		fn(0, n)
		return
	}
	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			fn(lo, hi)
		}(lo, hi)
	}
	wg.Wait()
}

// ApplyGate applies one ansatz gate.
func (s *StateVector) ApplyGate(g Gate) error {
	if g.Target < 0 || g.Target >= s.NumQubits || g.Control >= s.NumQubits {
		return fmt.Errorf("%w: gate %s on q[%d],q[%d] outside %d qubits", ErrContraction, g.Type, g.Target, g.Control, s.NumQubits)
	}
	theta := 0.0
	if len(g.Params) > 0 {
		theta = g.Params[0]
	}

	switch g.Type {
	case GateH:
		s.applyH(g.Target)
	case GateRX:
		s.applyRX(g.Target, theta)
	case GateRZ:
		s.applyRZ(g.Target, theta)
	case GateRZZ:
		if g.Control < 0 || g.Control == g.Target {
			return fmt.Errorf("%w: RZZ needs two distinct qubits, got q[%d],q[%d]", ErrContraction, g.Control, g.Target)
		}
		s.applyRZZ(g.Control, g.Target, theta)
	default:
		return fmt.Errorf("%w: unsupported gate %q", ErrContraction, g.Type)
	}
	return nil
}

func (s *StateVector) applyH(q int) {
	hFactor := complex(1.0/math.Sqrt2, 0)
	bit := 1 << q
	s.parallelFor(len(s.Amplitudes), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			if i&bit == 0 {
				j := i | bit
				a0, a1 := s.Amplitudes[i], s.Amplitudes[j]
				s.Amplitudes[i] = hFactor * (a0 + a1)
				s.Amplitudes[j] = hFactor * (a0 - a1)
			}
		}
	})
}

func (s *StateVector) applyRX(q int, theta float64) {
	bit := 1 << q
	c := complex(math.Cos(theta/2), 0)
	js := complex(0, -math.Sin(theta/2))
	s.parallelFor(len(s.Amplitudes), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			if i&bit == 0 {
				j := i | bit
				a0, a1 := s.Amplitudes[i], s.Amplitudes[j]
				s.Amplitudes[i] = c*a0 + js*a1
				s.Amplitudes[j] = js*a0 + c*a1
			}
		}
	})
}

func (s *StateVector) applyRZ(q int, theta float64) {
	bit := 1 << q
	phase := cmplx.Exp(complex(0, theta/2))
	conj := cmplx.Conj(phase)
	s.parallelFor(len(s.Amplitudes), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			if i&bit != 0 {
				s.Amplitudes[i] *= phase
			} else {
				s.Amplitudes[i] *= conj
			}
		}
	})
}

// applyRZZ applies exp(-i*theta/2 * Z⊗Z).
func (s *StateVector) applyRZZ(q1, q2 int, theta float64) {
	bit1 := 1 << q1
	bit2 := 1 << q2
	even := cmplx.Exp(complex(0, -theta/2))
	odd := cmplx.Conj(even)
	s.parallelFor(len(s.Amplitudes), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			if (i&bit1 != 0) != (i&bit2 != 0) {
				s.Amplitudes[i] *= odd
			} else {
				s.Amplitudes[i] *= even
			}
		}
	})
}

// ExpectationZ returns <psi| Z_q1 Z_q2 ... |psi> for the given qubits.
// Repeated qubits cancel, so ExpectationZ(a, a) is the squared norm.
func (s *StateVector) ExpectationZ(qubits ...int) Complex {
	mask := 0
	for _, q := range qubits {
		mask ^= 1 << q
	}
	var sum Complex
	for i, amp := range s.Amplitudes {
		v := cmplx.Conj(amp) * amp
		if bitsCount(i&mask)%2 == 1 {
			sum -= v
		} else {
			sum += v
		}
	}
	return sum
}

// SimulateCircuit runs every gate of circuit on a fresh |0...0> state.
// ctx is checked between gates.
func SimulateCircuit(ctx context.Context, circuit *Circuit, threads int) (*StateVector, error) {
	state := NewStateVector(circuit.NumQubits, threads)
	for _, gate := range circuit.Gates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := state.ApplyGate(gate); err != nil {
			return nil, err
		}
	}
	return state, nil
}

func bitsCount(x int) int {
	count := 0
	for x > 0 {
		count += x & 1
		x >>= 1
	}
	return count
}

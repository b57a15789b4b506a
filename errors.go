package main

import "errors"

// Sentinel errors. Callers match them with errors.Is; the wrapping message carries the detail.
var (
	// ErrInvalidParameter reports a malformed depth, angle sequence or term reference.
	ErrInvalidParameter = errors.New("qaoatn: invalid parameter")

	// ErrInvalidGraph reports a problem graph that breaks its own invariants.
	ErrInvalidGraph = errors.New("qaoatn: invalid problem graph")

	// ErrContraction reports that the engine could not produce a plan or a value for a term.
	ErrContraction = errors.New("qaoatn: contraction failed")

	// ErrAggregation reports a failed aggregate() call; partial sums are never returned with it.
	ErrAggregation = errors.New("qaoatn: aggregation failed")

	// ErrOptimization reports an optimizer run that could not start or was aborted.
	ErrOptimization = errors.New("qaoatn: optimization failed")
)

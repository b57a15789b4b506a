package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"
)

// fdGradientThreshold is the gradient norm counted as converged when gradients come from
// finite differences, whose noise floor sits far above gonum's default.
const fdGradientThreshold = 1e-6

// ObjectiveFunc is the callable the optimizer minimises. An error aborts the run.
type ObjectiveFunc func(ctx context.Context, x []float64) (float64, error)

// Optimizer methods.
const (
	MethodNelderMead      = "nelder-mead"
	MethodBFGS            = "bfgs"
	MethodLBFGS           = "lbfgs"
	MethodGradientDescent = "gradient-descent"
	MethodCmaEs           = "cmaes"
)

// OptimizerConfig selects the method and its stopping rules.
type OptimizerConfig struct {
	Method        string
	Tolerance     float64 // absolute function-value change counted as converged
	MaxIterations int     // steps taken after the starting point; 0 means no limit
	// UseGradientHint supplies a finite-difference gradient. Derivative-free methods accept
	// and ignore it.
	UseGradientHint bool
}

// OptimizeResult is the outcome of one optimizer run.
type OptimizeResult struct {
	X               []float64
	F               float64
	Iterations      int
	FuncEvaluations int
	Converged       bool
	Status          string
}

// Optimizer drives a gonum optimizer over an ObjectiveFunc.
type Optimizer struct {
	cfg OptimizerConfig
}

// NewOptimizer validates cfg.
func NewOptimizer(cfg OptimizerConfig) (*Optimizer, error) {
	if cfg.Method == "" {
		cfg.Method = MethodNelderMead
	}
	cfg.Method = strings.ToLower(cfg.Method)
	if _, err := newMethod(cfg.Method); err != nil {
		return nil, err
	}
	if cfg.MaxIterations < 0 || cfg.Tolerance < 0 || math.IsNaN(cfg.Tolerance) {
		return nil, fmt.Errorf("%w: max iterations %d, tolerance %v", ErrOptimization, cfg.MaxIterations, cfg.Tolerance)
	}
	return &Optimizer{cfg: cfg}, nil
}

func newMethod(name string) (optimize.Method, error) {
	switch name {
	case MethodNelderMead:
		return &optimize.NelderMead{}, nil
	case MethodBFGS:
		return &optimize.BFGS{}, nil
	case MethodLBFGS:
		return &optimize.LBFGS{}, nil
	case MethodGradientDescent:
		return &optimize.GradientDescent{}, nil
	case MethodCmaEs:
		return &optimize.CmaEsChol{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown method %q", ErrOptimization, name)
	}
}

func needsGradient(name string) bool {
	switch name {
	case MethodBFGS, MethodLBFGS, MethodGradientDescent:
		return true
	default:
		return false
	}
}

// abortRecorder stops the run as soon as the objective has failed or ctx is done.
type abortRecorder struct {
	ctx context.Context
	err *error
}

func (r abortRecorder) Init() error { return nil }

func (r abortRecorder) Record(_ *optimize.Location, _ optimize.Operation, _ *optimize.Stats) error {
	if *r.err != nil {
		return *r.err
	}
	return r.ctx.Err()
}

// Minimize runs the configured method from x0.
func (o *Optimizer) Minimize(ctx context.Context, obj ObjectiveFunc, x0 []float64) (*OptimizeResult, error) {
	if len(x0) == 0 {
		return nil, fmt.Errorf("%w: empty starting point", ErrOptimization)
	}
	method, err := newMethod(o.cfg.Method)
	if err != nil {
		return nil, err
	}

	// objErr holds the first objective failure; later calls short-circuit on it.
	var objErr error
	f := func(x []float64) float64 {
		if objErr != nil {
			return math.NaN()
		}
		v, err := obj(ctx, x)
		if err != nil {
			objErr = err
			return math.NaN()
		}
		return v
	}

	settings := &optimize.Settings{
		Concurrent: 1,
		Recorder:   abortRecorder{ctx: ctx, err: &objErr},
	}
	// gonum counts the starting point as the first major iteration.
	if o.cfg.MaxIterations > 0 {
		settings.MajorIterations = o.cfg.MaxIterations + 1
	}

	problem := optimize.Problem{Func: f}
	if o.cfg.UseGradientHint || needsGradient(o.cfg.Method) {
		problem.Grad = func(grad, x []float64) {
			fd.Gradient(grad, f, x, nil)
		}
		settings.GradientThreshold = fdGradientThreshold
	}
	if o.cfg.Tolerance > 0 {
		settings.Converger = &optimize.FunctionConverge{
			Absolute:   o.cfg.Tolerance,
			Iterations: 20,
		}
	}

	res, err := optimize.Minimize(problem, x0, settings, method)
	if objErr != nil {
		return nil, fmt.Errorf("%w: objective: %w", ErrOptimization, objErr)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrOptimization, ctxErr)
	}
	if res == nil {
		if err == nil {
			err = errors.New("no result")
		}
		return nil, fmt.Errorf("%w: %w", ErrOptimization, err)
	}
	if !finite(res.F) {
		return nil, fmt.Errorf("%w: best value %v (%s)", ErrOptimization, res.F, res.Status)
	}

	// A stalled line search still leaves the best location found; keep it, unconverged.
	out := &OptimizeResult{
		X:               res.X,
		F:               res.F,
		Iterations:      max(res.Stats.MajorIterations-1, 0),
		FuncEvaluations: res.Stats.FuncEvaluations,
		Converged:       err == nil && convergedStatus(res.Status),
		Status:          res.Status.String(),
	}
	if err != nil && !limitStatus(res.Status) {
		out.Status += ": " + err.Error()
	}
	return out, nil
}

func convergedStatus(s optimize.Status) bool {
	switch s {
	case optimize.Success, optimize.FunctionConvergence, optimize.GradientThreshold,
		optimize.StepConvergence, optimize.FunctionThreshold, optimize.MethodConverge:
		return true
	default:
		return false
	}
}

func limitStatus(s optimize.Status) bool {
	switch s {
	case optimize.IterationLimit, optimize.FunctionEvaluationLimit, optimize.RuntimeLimit,
		optimize.GradientEvaluationLimit, optimize.HessianEvaluationLimit:
		return true
	default:
		return false
	}
}

package infer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/roach88/bayesharness/internal/model"
)

// FindMAP returns the point maximizing the joint log-probability over the
// selected continuous variables, holding every other variable at its start
// value. The result also carries deterministic values.
func FindMAP(ctx context.Context, c *model.Compiled, cfg MAPConfig) (model.Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = discardLogger()
	}
	method := strings.ToLower(cfg.Method)
	if method == "" {
		method = OptimizerBFGS
	}
	if method != OptimizerBFGS && method != OptimizerPowell {
		return nil, fmt.Errorf("find MAP: unknown optimizer %q (want %s or %s)", cfg.Method, OptimizerBFGS, OptimizerPowell)
	}
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMAPIterations
	}
	tol := cfg.GradTol
	if tol <= 0 {
		tol = defaultGradTol
	}

	start, err := c.InitialPoint(cfg.Start)
	if err != nil {
		return nil, fmt.Errorf("find MAP: %w", err)
	}
	x, err := c.Map(start)
	if err != nil {
		return nil, fmt.Errorf("find MAP: %w", err)
	}
	idx, err := mapIndices(c, cfg.Vars)
	if err != nil {
		return nil, fmt.Errorf("find MAP: %w", err)
	}
	if len(idx) == 0 {
		logger.Debug("find MAP: no continuous variables to optimize")
		return c.Unmap(x)
	}

	buf := append([]float64(nil), x...)
	set := func(sub []float64) {
		for k, i := range idx {
			buf[i] = sub[k]
		}
	}
	evals := 0
	problem := optimize.Problem{
		Func: func(sub []float64) float64 {
			evals++
			set(sub)
			lp := c.LogP(buf)
			if math.IsInf(lp, -1) {
				return math.Inf(1)
			}
			return -lp
		},
	}
	var opt optimize.Method = &optimize.NelderMead{}
	if method == OptimizerBFGS {
		problem.Grad = func(grad, sub []float64) {
			set(sub)
			g := c.Grad(buf, idx)
			for k := range grad {
				grad[k] = -g[k]
			}
		}
		opt = &optimize.BFGS{}
	}

	x0 := make([]float64, len(idx))
	for k, i := range idx {
		x0[k] = x[i]
	}
	settings := &optimize.Settings{
		MajorIterations: maxIter,
		// Infinity-norm threshold that implies a Euclidean norm below tol.
		GradientThreshold: tol / math.Sqrt(float64(len(idx))),
	}

	logger.Debug("find MAP", "method", method, "dim", len(idx), "max_iterations", maxIter)
	res, optErr := optimize.Minimize(problem, x0, settings, opt)
	cfg.Metrics.MAPEvaluations(evals)
	if res == nil {
		return nil, &OptimizationDivergedError{Method: method, Status: "failed", GradNorm: math.NaN(), Err: optErr}
	}

	set(res.X)
	gradNorm := floats.Norm(c.Grad(buf, idx), 2)
	diverged := &OptimizationDivergedError{
		Method:     method,
		Iterations: res.MajorIterations,
		GradNorm:   gradNorm,
		Status:     res.Status.String(),
		Err:        optErr,
	}
	switch {
	case math.IsInf(res.F, 0) || math.IsNaN(res.F):
		return nil, diverged
	case method == OptimizerBFGS:
		// A line search stalling at the optimum is fine; the gradient decides.
		if !(gradNorm <= tol) {
			return nil, diverged
		}
	case optErr != nil || res.Status == optimize.IterationLimit || res.Status == optimize.FunctionEvaluationLimit:
		return nil, diverged
	}

	logger.Debug("find MAP converged",
		"method", method,
		"iterations", res.MajorIterations,
		"logp", -res.F,
		"grad_norm", gradNorm,
		"status", res.Status.String(),
	)
	point, err := c.Unmap(buf)
	if err != nil {
		return nil, fmt.Errorf("find MAP: %w", err)
	}
	return point, nil
}

// mapIndices returns the continuous vector positions of vars, or of every
// continuous variable when vars is empty.
func mapIndices(c *model.Compiled, vars []string) ([]int, error) {
	if len(vars) == 0 {
		return c.ContinuousIndices(), nil
	}
	var idx []int
	for _, name := range vars {
		slot, ok := c.Ordering().Lookup(name)
		if !ok {
			return nil, &model.UnknownVariableError{Name: name}
		}
		if slot.Discrete() {
			continue
		}
		idx = append(idx, slot.Indices()...)
	}
	return idx, nil
}

// IsDiverged reports whether err is an OptimizationDivergedError.
func IsDiverged(err error) bool {
	var d *OptimizationDivergedError
	return errors.As(err, &d)
}

// GradNorm returns the Euclidean norm of the log-probability gradient at p
// with respect to the unconstrained coordinates of vars (every continuous
// variable when vars is empty).
func GradNorm(c *model.Compiled, p model.Point, vars []string) (float64, error) {
	x, err := c.Map(p)
	if err != nil {
		return 0, err
	}
	idx, err := mapIndices(c, vars)
	if err != nil {
		return 0, err
	}
	if len(idx) == 0 {
		return 0, nil
	}
	return floats.Norm(c.Grad(x, idx), 2), nil
}

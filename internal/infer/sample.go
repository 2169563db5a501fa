package infer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/rand"

	"github.com/roach88/bayesharness/internal/model"
	"github.com/roach88/bayesharness/internal/trace"
)

// Sample draws cfg.Draws points from the posterior of c. Every draw holds
// the free and deterministic variables of the model; observed variables
// are never recorded. The first cfg.Tune draws adapt step sizes and are
// part of the returned trace, which is sealed.
//
// The same seed, model and configuration always produce the same trace.
func Sample(ctx context.Context, c *model.Compiled, cfg SampleConfig) (_ *trace.Trace, err error) {
	if cfg.Store != nil {
		defer func() {
			if cerr := cfg.Store.Close(); cerr != nil && err == nil {
				err = &SamplingError{Draw: -1, Reason: "closing trace store", Err: cerr}
			}
		}()
	}
	if cfg.Draws <= 0 {
		return nil, fmt.Errorf("sample: draws must be positive, got %d", cfg.Draws)
	}
	if cfg.Tune < 0 || cfg.Tune > cfg.Draws {
		return nil, fmt.Errorf("sample: tune must be between 0 and draws (%d), got %d", cfg.Draws, cfg.Tune)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = discardLogger()
	}
	runID := cfg.RunID
	if runID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("sample: run id: %w", err)
		}
		runID = id.String()
	}

	start, err := c.InitialPoint(cfg.Start)
	if err != nil {
		return nil, fmt.Errorf("sample: %w", err)
	}
	x, err := c.Map(start)
	if err != nil {
		return nil, fmt.Errorf("sample: %w", err)
	}
	lp := c.LogP(x)
	if math.IsInf(lp, 0) || math.IsNaN(lp) {
		return nil, &SamplingError{Draw: -1, Reason: fmt.Sprintf("log-probability at the start point is %v", lp)}
	}

	plans, err := planSteps(c, cfg.Steps)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	sweep := &compound{}
	for _, p := range plans {
		s, err := buildStep(c, p, x, rng, cfg.Metrics)
		if err != nil {
			return nil, err
		}
		logger.Debug("step assigned", "method", s.Method(), "vars", s.Vars())
		sweep.steps = append(sweep.steps, s)
	}

	recorded := c.Recorded()
	vars := make([]trace.Var, len(recorded))
	for i, v := range recorded {
		vars[i] = trace.Var{Name: v.Name, Shape: v.Shape}
	}
	t := trace.New(runID, vars)
	if cfg.Store != nil {
		if err := cfg.Store.Setup(ctx, runID, vars); err != nil {
			return nil, &SamplingError{Draw: -1, Reason: "trace store setup", Err: err}
		}
	}

	logger.Info("sampling",
		"run_id", runID,
		"model", c.Model().Name(),
		"draws", cfg.Draws,
		"tune", cfg.Tune,
		"steps", len(sweep.steps),
		"seed", cfg.Seed,
	)
	began := time.Now()
	for i := 0; i < cfg.Draws; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lp, err = sweep.Step(x, lp, i < cfg.Tune)
		if err != nil {
			var serr *SamplingError
			if errors.As(err, &serr) {
				serr.Draw = i
			}
			return nil, err
		}
		p, err := c.Unmap(x)
		if err != nil {
			return nil, &SamplingError{Draw: i, Reason: "decoding draw", Err: err}
		}
		d := trace.Draw(p)
		if err := t.Append(d); err != nil {
			return nil, &SamplingError{Draw: i, Reason: "recording draw", Err: err}
		}
		if cfg.Store != nil {
			if err := cfg.Store.Append(ctx, d); err != nil {
				return nil, &SamplingError{Draw: i, Reason: "trace store append", Err: err}
			}
		}
		cfg.Metrics.Draw()
	}
	t.Seal()

	logger.Info("sampling complete",
		"run_id", runID,
		"draws", t.Len(),
		"logp", lp,
		"elapsed", time.Since(began).Round(time.Millisecond),
	)
	return t, nil
}

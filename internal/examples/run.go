package examples

import (
	"context"
	"fmt"

	"github.com/roach88/bayesharness/internal/infer"
	"github.com/roach88/bayesharness/internal/model"
	"github.com/roach88/bayesharness/internal/trace"
)

// Outcome is the result of executing a plan.
type Outcome struct {
	// MAP is the optimum found before sampling, or nil when the plan has no
	// MAP stage.
	MAP model.Point

	Trace *trace.Trace
}

// Run executes plan on c: an optional MAP search whose optimum becomes the
// start point of sampling, then Sample. cfg supplies the seed, store,
// metrics and logger. When cfg.Draws is 0 both Draws and Tune come from
// the plan; callers overriding either resolve them with Plan.Length.
// Start and Steps come from the plan unless cfg sets them. The store in
// cfg is closed on every path.
func Run(ctx context.Context, c *model.Compiled, plan Plan, cfg infer.SampleConfig) (*Outcome, error) {
	if cfg.Draws == 0 {
		cfg.Draws, cfg.Tune = plan.Length(nil, nil)
	}
	if cfg.Start == nil {
		cfg.Start = plan.Start
	}
	if cfg.Steps == nil {
		cfg.Steps = plan.Steps
	}

	out := &Outcome{}
	if plan.MAP != nil {
		mcfg := *plan.MAP
		if mcfg.Start == nil {
			mcfg.Start = cfg.Start
		}
		mcfg.Metrics = cfg.Metrics
		mcfg.Logger = cfg.Logger
		opt, err := infer.FindMAP(ctx, c, mcfg)
		if err != nil {
			if cfg.Store != nil {
				cfg.Store.Close()
			}
			return nil, err
		}
		out.MAP = opt
		cfg.Start = freeValues(c, opt)
	}

	t, err := infer.Sample(ctx, c, cfg)
	if err != nil {
		return nil, fmt.Errorf("example %s: %w", c.Model().Name(), err)
	}
	out.Trace = t
	return out, nil
}

// freeValues drops deterministic values from p.
func freeValues(c *model.Compiled, p model.Point) model.Point {
	out := make(model.Point)
	for _, v := range c.Model().FreeVars() {
		if vals, ok := p[v.Name]; ok {
			out[v.Name] = vals
		}
	}
	return out
}

package examples

import (
	"math"

	"github.com/roach88/bayesharness/internal/dist"
	"github.com/roach88/bayesharness/internal/infer"
	"github.com/roach88/bayesharness/internal/model"
)

// disasterCounts are yearly UK coal mining disasters, 1851 to 1961.
var disasterCounts = []float64{
	4, 5, 4, 0, 1, 4, 3, 4, 0, 6, 3, 3, 4, 0, 2, 6,
	3, 3, 5, 4, 5, 3, 1, 4, 4, 1, 5, 5, 3, 4, 2, 5,
	2, 2, 3, 4, 2, 1, 3, 2, 2, 1, 1, 1, 1, 3, 0, 0,
	1, 0, 1, 1, 0, 0, 3, 1, 0, 3, 2, 2, 0, 1, 1, 1,
	0, 1, 0, 1, 0, 0, 0, 2, 1, 0, 0, 0, 1, 1, 0, 2,
	3, 3, 1, 1, 2, 1, 1, 1, 1, 2, 4, 2, 0, 0, 1, 4,
	0, 0, 0, 1, 0, 0, 0, 0, 0, 1, 0, 0, 1, 0, 1,
}

// disasterMissing are the years unrecorded in the missing-data variant.
var disasterMissing = []int{23, 68}

func buildDisaster(name string, missing bool) (*model.Model, Plan, error) {
	counts := append([]float64(nil), disasterCounts...)
	if missing {
		for _, i := range disasterMissing {
			counts[i] = math.NaN()
		}
	}
	years := len(counts)

	m := model.New(name)
	if _, err := m.Declare("switchpoint", dist.DiscreteUniform, model.Params{
		"lower": model.Const(0),
		"upper": model.Const(float64(years)),
	}); err != nil {
		return nil, Plan{}, err
	}
	for _, v := range []string{"early_mean", "late_mean"} {
		if _, err := m.Declare(v, dist.Exponential, model.Params{"lam": model.Const(1)}); err != nil {
			return nil, Plan{}, err
		}
	}
	rate := model.Func([]string{"switchpoint", "early_mean", "late_mean"}, func(p model.Point) []float64 {
		s, early, late := p.Scalar("switchpoint"), p.Scalar("early_mean"), p.Scalar("late_mean")
		out := make([]float64, years)
		for i := range out {
			if s >= float64(i) {
				out[i] = early
			} else {
				out[i] = late
			}
		}
		return out
	})
	if _, err := m.Declare("disasters", dist.Poisson, model.Params{"mu": rate}, model.Observed(counts)); err != nil {
		return nil, Plan{}, err
	}

	return m, Plan{
		Draws: 500,
		Tune:  50,
		Start: model.Point{"early_mean": {2}, "late_mean": {3}},
		Steps: []infer.StepSpec{
			{Method: infer.MethodSlice, Vars: []string{"early_mean", "late_mean"}},
		},
	}, nil
}

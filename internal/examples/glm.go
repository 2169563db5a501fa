package examples

import (
	"golang.org/x/exp/rand"

	"github.com/roach88/bayesharness/internal/dist"
	"github.com/roach88/bayesharness/internal/infer"
	"github.com/roach88/bayesharness/internal/model"
)

const (
	glmSize      = 50
	glmIntercept = 1.0
	glmSlope     = 2.0
	glmNoiseSD   = 0.5
)

// buildGLMLinear fits y ~ x on points simulated around a known line.
func buildGLMLinear(src rand.Source) (*model.Model, Plan, error) {
	noise := dist.MustNew(dist.Normal, 0, 1/(glmNoiseSD*glmNoiseSD))
	x := make([]float64, glmSize)
	y := make([]float64, glmSize)
	for i := range x {
		x[i] = float64(i) / float64(glmSize-1)
		y[i] = glmIntercept + glmSlope*x[i] + noise.Rand(src)
	}

	m := model.New("glm_linear")
	for _, name := range []string{"intercept", "x"} {
		if _, err := m.Declare(name, dist.Normal, model.Params{"mu": model.Const(0), "tau": model.Const(1e-4)}); err != nil {
			return nil, Plan{}, err
		}
	}
	if _, err := m.Declare("sd", dist.Uniform, model.Params{"lower": model.Const(0), "upper": model.Const(100)}); err != nil {
		return nil, Plan{}, err
	}
	mu := model.Func([]string{"intercept", "x"}, func(p model.Point) []float64 {
		a, b := p.Scalar("intercept"), p.Scalar("x")
		out := make([]float64, len(x))
		for i, xi := range x {
			out[i] = a + b*xi
		}
		return out
	})
	if _, err := m.Declare("y", dist.Normal, model.Params{"mu": mu, "tau": model.Pow("sd", -2)}, model.Observed(y)); err != nil {
		return nil, Plan{}, err
	}

	return m, Plan{
		Draws: 50,
		MAP:   &infer.MAPConfig{Method: infer.OptimizerPowell, MaxIterations: 5000},
		Steps: []infer.StepSpec{{Method: infer.MethodSlice}},
	}, nil
}

package examples

import (
	"math"

	"github.com/roach88/bayesharness/internal/dist"
	"github.com/roach88/bayesharness/internal/infer"
	"github.com/roach88/bayesharness/internal/model"
)

const (
	gaussDim    = 4
	gaussStdev  = 0.1
	gaussWeight = 0.1 // weight of the mode at +0.5
)

// twoGaussiansLogLike is the log density of an isotropic two-component
// mixture with modes at +0.5 and -0.5 in every coordinate.
func twoGaussiansLogLike(x []float64) float64 {
	norm := -0.5*gaussDim*math.Log(2*math.Pi) - gaussDim*math.Log(gaussStdev)
	var d1, d2 float64
	for _, v := range x {
		d1 += (v - 0.5) * (v - 0.5)
		d2 += (v + 0.5) * (v + 0.5)
	}
	l1 := math.Log(gaussWeight) + norm - 0.5*d1/(gaussStdev*gaussStdev)
	l2 := math.Log(1-gaussWeight) + norm - 0.5*d2/(gaussStdev*gaussStdev)
	hi := math.Max(l1, l2)
	return hi + math.Log(math.Exp(l1-hi)+math.Exp(l2-hi))
}

// buildTwoGaussians puts a flat prior on a box and adds the mixture log
// density as a potential.
func buildTwoGaussians() (*model.Model, Plan, error) {
	m := model.New("two_gaussians")
	if _, err := m.Declare("X", dist.Uniform, model.Params{
		"lower": model.Const(-2),
		"upper": model.Const(2),
	}, model.Shape(gaussDim), model.TestValue(-1), model.NoTransform()); err != nil {
		return nil, Plan{}, err
	}
	if _, err := m.Deterministic("like", []string{"X"}, func(p model.Point) []float64 {
		return []float64{twoGaussiansLogLike(p["X"])}
	}); err != nil {
		return nil, Plan{}, err
	}
	if _, err := m.Potential("like_potential", []string{"like"}, func(p model.Point) float64 {
		return p.Scalar("like")
	}); err != nil {
		return nil, Plan{}, err
	}

	return m, Plan{
		Draws: 50,
		Steps: []infer.StepSpec{{Method: infer.MethodMetropolis, StepScale: 0.1}},
	}, nil
}

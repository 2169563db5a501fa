package examples

import (
	"golang.org/x/exp/rand"

	"github.com/roach88/bayesharness/internal/dist"
	"github.com/roach88/bayesharness/internal/infer"
	"github.com/roach88/bayesharness/internal/model"
)

const (
	occupancySites = 100
	occupancyTheta = 2.1
	occupancyPi    = 0.4
)

// simulateOccupancy draws site counts: zero when a site is unoccupied,
// Poisson(theta) otherwise.
func simulateOccupancy(src rand.Source) []float64 {
	occupied := dist.MustNew(dist.Bernoulli, occupancyPi)
	count := dist.MustNew(dist.Poisson, occupancyTheta)
	y := make([]float64, occupancySites)
	for i := range y {
		y[i] = occupied.Rand(src) * count.Rand(src)
	}
	return y
}

// buildLatentOccupancy estimates occupancy from counts with more zeros than
// a plain Poisson model explains. z is the latent occupancy of each site.
func buildLatentOccupancy(src rand.Source) (*model.Model, Plan, error) {
	y := simulateOccupancy(src)

	m := model.New("latent_occupancy")
	if _, err := m.Declare("psi", dist.Beta, model.Params{"alpha": model.Const(1), "beta": model.Const(1)}); err != nil {
		return nil, Plan{}, err
	}
	if _, err := m.Declare("z", dist.Bernoulli, model.Params{"p": model.Ref("psi")}, model.Shape(len(y))); err != nil {
		return nil, Plan{}, err
	}
	if _, err := m.Declare("theta", dist.Uniform, model.Params{"lower": model.Const(0), "upper": model.Const(100)}); err != nil {
		return nil, Plan{}, err
	}
	if _, err := m.Declare("y", dist.ZeroInflatedPoisson, model.Params{
		"theta": model.Ref("theta"),
		"psi":   model.Ref("psi"),
	}, model.Observed(y)); err != nil {
		return nil, Plan{}, err
	}

	z := make([]float64, len(y))
	for i, v := range y {
		if v > 0 {
			z[i] = 1
		}
	}
	return m, Plan{
		Draws: 50,
		Start: model.Point{"psi": {0.5}, "z": z, "theta": {5}},
		Steps: []infer.StepSpec{
			{Method: infer.MethodMetropolis, Vars: []string{"theta", "psi"}},
			{Method: infer.MethodBinaryMetropolis, Vars: []string{"z"}},
		},
	}, nil
}

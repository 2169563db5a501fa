// Package examples is a catalog of Bayesian models with the inference plan
// each one is exercised with.
//
// Builders that simulate data draw from the source they are given, so a
// fixed seed always builds the same model.
package examples

import (
	"fmt"
	"sort"

	"golang.org/x/exp/rand"

	"github.com/roach88/bayesharness/internal/infer"
	"github.com/roach88/bayesharness/internal/model"
)

// Plan is the default inference run of an example.
type Plan struct {
	Draws int
	Tune  int

	// Start overrides initial values of free variables.
	Start model.Point

	// MAP, when set, runs an optimization from Start first; its result
	// becomes the start point of sampling.
	MAP *infer.MAPConfig

	Steps []infer.StepSpec
}

// Length resolves the trace length and tuning draws of a run. A nil
// argument keeps the plan value. Overriding draws alone caps the plan's
// tuning at the new length; an explicit tune, including 0, is kept as is.
func (p Plan) Length(draws, tune *int) (int, int) {
	d, t := p.Draws, p.Tune
	if draws != nil {
		d = *draws
		t = min(t, d)
	}
	if tune != nil {
		t = *tune
	}
	return d, t
}

// Builder constructs an example model. src drives any simulated data.
type Builder func(src rand.Source) (*model.Model, Plan, error)

// Example is one catalog entry.
type Example struct {
	Name        string
	Description string

	// Disabled holds the reason the example is left out of default runs,
	// or "" when it runs.
	Disabled string

	Build Builder
}

var catalog = []Example{
	{
		Name:        "disaster",
		Description: "coal mining disasters switchpoint: slice on the rates, metropolis on the switchpoint",
		Build:       func(rand.Source) (*model.Model, Plan, error) { return buildDisaster("disaster", false) },
	},
	{
		Name:        "disaster_missing",
		Description: "switchpoint model with two missing years imputed as free variables",
		Build:       func(rand.Source) (*model.Model, Plan, error) { return buildDisaster("disaster_missing", true) },
	},
	{
		Name:        "latent_occupancy",
		Description: "zero-inflated Poisson occupancy on 100 simulated sites",
		Build:       buildLatentOccupancy,
	},
	{
		Name:        "rsv",
		Description: "RSV prevalence from hospital admissions: nuts on continuous, metropolis on counts",
		Build:       func(rand.Source) (*model.Model, Plan, error) { return buildRSV() },
	},
	{
		Name:        "glm_linear",
		Description: "simulated linear regression: powell MAP then slice",
		Build:       buildGLMLinear,
	},
	{
		Name:        "hierarchical",
		Description: "grouped regression with group-level predictors: MAP then nuts",
		Build:       buildHierarchical,
	},
	{
		Name:        "arm5_4",
		Description: "logistic regression of well switching: MAP then hmc scaled by the Hessian",
		Build:       func(rand.Source) (*model.Model, Plan, error) { return buildARM54() },
	},
	{
		Name:        "arm12_6",
		Description: "radon varying-intercept model for Minnesota counties",
		Build:       func(rand.Source) (*model.Model, Plan, error) { return buildARM126("arm12_6", false) },
	},
	{
		Name:        "arm12_6_uranium",
		Description: "radon model with a county uranium predictor",
		Build:       func(rand.Source) (*model.Model, Plan, error) { return buildARM126("arm12_6_uranium", true) },
	},
	{
		Name:        "two_gaussians",
		Description: "bimodal Gaussian mixture expressed as a potential",
		Disabled:    "still broken: needs a tempered multi-chain sampler",
		Build:       func(rand.Source) (*model.Model, Plan, error) { return buildTwoGaussians() },
	},
}

// All returns every example in catalog order.
func All() []Example {
	return append([]Example(nil), catalog...)
}

// Names returns the sorted example names.
func Names() []string {
	names := make([]string, len(catalog))
	for i, e := range catalog {
		names[i] = e.Name
	}
	sort.Strings(names)
	return names
}

// Lookup finds an example by name.
func Lookup(name string) (Example, error) {
	for _, e := range catalog {
		if e.Name == name {
			return e, nil
		}
	}
	return Example{}, fmt.Errorf("unknown example %q (want one of %v)", name, Names())
}

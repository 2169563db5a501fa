package infer

import (
	"errors"
	"math"

	"golang.org/x/exp/rand"

	"github.com/roach88/bayesharness/internal/metrics"
	"github.com/roach88/bayesharness/internal/model"
)

// stepper updates a subset of the flat vector once per draw.
type stepper interface {
	Method() Method
	Vars() []string

	// Step updates x in place. lp is LogP(x) on entry and the result is
	// LogP of the updated x.
	Step(x []float64, lp float64, tune bool) (float64, error)
}

// base holds what every step shares.
type base struct {
	method  Method
	vars    []string
	idx     []int
	c       *model.Compiled
	rng     *rand.Rand
	metrics *metrics.Sampler
}

func (b *base) Method() Method { return b.method }
func (b *base) Vars() []string { return b.vars }

// accept is the Metropolis rule for a log acceptance ratio.
func accept(rng *rand.Rand, logRatio float64) bool {
	if math.IsNaN(logRatio) {
		return false
	}
	return math.Log(rng.Float64()) < logRatio
}

var errSliceShrink = errors.New("slice shrinkage did not find a point inside the slice")

// compound runs its steps in order, each seeing the updates of the ones
// before it.
type compound struct {
	steps []stepper
}

func (c *compound) Step(x []float64, lp float64, tune bool) (float64, error) {
	for _, s := range c.steps {
		next, err := s.Step(x, lp, tune)
		if err != nil {
			return lp, &SamplingError{Draw: -1, Method: s.Method(), Reason: "step failed", Err: err}
		}
		lp = next
	}
	return lp, nil
}

package infer

import "math"

// tuneInterval is the number of proposals between scale updates.
const tuneInterval = 100

// metropolis is a joint random-walk Metropolis step. Discrete coordinates
// are rounded to the nearest integer.
type metropolis struct {
	base
	discrete []bool
	scaling  []float64
	scale    float64

	accepted int
	proposed int
}

func (s *metropolis) Step(x []float64, lp float64, tune bool) (float64, error) {
	if tune && s.proposed >= tuneInterval {
		s.scale = tuneScale(s.scale, float64(s.accepted)/float64(s.proposed))
		s.accepted, s.proposed = 0, 0
		s.metrics.StepSize(string(s.method), s.scale)
	}

	prop := append([]float64(nil), x...)
	for k, i := range s.idx {
		delta := s.scaling[k] * s.scale * s.rng.NormFloat64()
		if s.discrete[k] {
			prop[i] = math.Round(x[i] + delta)
		} else {
			prop[i] = x[i] + delta
		}
	}
	next := s.c.LogP(prop)

	s.proposed++
	ok := accept(s.rng, next-lp)
	s.metrics.Proposal(string(s.method), ok)
	if !ok {
		return lp, nil
	}
	s.accepted++
	copy(x, prop)
	return next, nil
}

// tuneScale grows or shrinks the proposal scale by acceptance rate.
func tuneScale(scale, rate float64) float64 {
	switch {
	case rate < 0.001:
		return scale * 0.1
	case rate < 0.05:
		return scale * 0.5
	case rate < 0.2:
		return scale * 0.9
	case rate > 0.95:
		return scale * 10
	case rate > 0.75:
		return scale * 2
	case rate > 0.5:
		return scale * 1.1
	}
	return scale
}

// binaryMetropolis flips each 0/1 coordinate in turn and accepts or rejects
// each flip on its own.
type binaryMetropolis struct {
	base
}

func (s *binaryMetropolis) Step(x []float64, lp float64, tune bool) (float64, error) {
	for _, i := range s.idx {
		old := x[i]
		x[i] = 1 - old
		next := s.c.LogP(x)
		ok := accept(s.rng, next-lp)
		s.metrics.Proposal(string(s.method), ok)
		if ok {
			lp = next
		} else {
			x[i] = old
		}
	}
	return lp, nil
}

package infer

import "math"

const (
	maxStepOut = 100
	maxShrink  = 500
)

// slice is a univariate stepping-out slice sampler applied to each
// coordinate in turn. During tuning each interval width tracks twice the
// mean absolute move of its coordinate.
type slice struct {
	base
	width []float64
	tuned int
}

func (s *slice) Step(x []float64, lp float64, tune bool) (float64, error) {
	for k, i := range s.idx {
		q0 := x[i]
		logY := lp - s.rng.ExpFloat64()
		w := s.width[k]

		r := s.rng.Float64() * w
		lo, hi := q0-r, q0+(w-r)
		x[i] = lo
		for j := 0; j < maxStepOut && s.c.LogP(x) > logY; j++ {
			lo -= w
			x[i] = lo
		}
		x[i] = hi
		for j := 0; j < maxStepOut && s.c.LogP(x) > logY; j++ {
			hi += w
			x[i] = hi
		}

		found := false
		for j := 0; j < maxShrink; j++ {
			q := lo + s.rng.Float64()*(hi-lo)
			x[i] = q
			next := s.c.LogP(x)
			if next > logY {
				lp = next
				found = true
				break
			}
			if q > q0 {
				hi = q
			} else {
				lo = q
			}
		}
		s.metrics.Proposal(string(s.method), found)
		if !found {
			x[i] = q0
			return lp, errSliceShrink
		}

		if tune {
			n := float64(s.tuned)
			if moved := 2 * math.Abs(x[i]-q0); moved > 0 {
				s.width[k] = s.width[k]*n/(n+1) + moved/(n+1)
			}
		}
	}
	if tune {
		s.tuned++
	}
	return lp, nil
}

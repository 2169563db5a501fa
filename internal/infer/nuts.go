package infer

import "math"

// nuts is the No-U-Turn sampler with slice-based tree building and a
// bounded tree depth.
type nuts struct {
	hamiltonian
	maxDepth int
}

type subtree struct {
	minus, plus phase
	prop        []float64
	propLP      float64
	n           int
	ok          bool
	alpha       float64
	nAlpha      int
}

func (s *nuts) Step(x []float64, lp float64, tune bool) (float64, error) {
	eps := s.da.stepSize(tune)
	p0 := s.momentum()
	joint0 := lp - s.kinetic(p0)
	logU := joint0 - s.rng.ExpFloat64()

	start := phase{q: append([]float64(nil), x...), p: p0, g: s.grad(x)}
	minus, plus := start, start
	prop, propLP := start.q, lp
	n := 1
	ok := true
	depth := 0
	alpha, nAlpha := 0.0, 1

	for ok && depth < s.maxDepth {
		var t subtree
		if s.rng.Float64() < 0.5 {
			t = s.build(minus, logU, -1, depth, eps, joint0)
			minus = t.minus
		} else {
			t = s.build(plus, logU, 1, depth, eps, joint0)
			plus = t.plus
		}
		if t.ok && s.rng.Float64() < float64(t.n)/float64(n) {
			prop, propLP = t.prop, t.propLP
		}
		n += t.n
		ok = t.ok && s.noUTurn(minus, plus)
		alpha, nAlpha = t.alpha, t.nAlpha
		depth++
	}

	s.metrics.TreeDepth(depth)
	s.metrics.StepSize(string(s.method), eps)
	if tune {
		s.da.update(alpha / float64(nAlpha))
	}
	moved := propLP != lp || !equalAt(prop, x, s.idx)
	s.metrics.Proposal(string(s.method), moved)
	copy(x, prop)
	return propLP, nil
}

// build grows a subtree of 2^depth leapfrog steps in direction dir from z.
func (s *nuts) build(z phase, logU float64, dir, depth int, eps, joint0 float64) subtree {
	if depth == 0 {
		next := s.leapfrog(z, float64(dir)*eps)
		lp := s.c.LogP(next.q)
		joint := lp - s.kinetic(next.p)
		t := subtree{
			minus:  next,
			plus:   next,
			prop:   next.q,
			propLP: lp,
			ok:     logU < joint+maxEnergyChange,
			nAlpha: 1,
		}
		if logU <= joint {
			t.n = 1
		}
		if !t.ok {
			s.metrics.Divergence()
		}
		if a := math.Exp(joint - joint0); !math.IsNaN(a) {
			t.alpha = math.Min(1, a)
		}
		return t
	}

	t := s.build(z, logU, dir, depth-1, eps, joint0)
	if !t.ok {
		return t
	}
	var t2 subtree
	if dir < 0 {
		t2 = s.build(t.minus, logU, dir, depth-1, eps, joint0)
		t.minus = t2.minus
	} else {
		t2 = s.build(t.plus, logU, dir, depth-1, eps, joint0)
		t.plus = t2.plus
	}
	if total := t.n + t2.n; total > 0 && s.rng.Float64() < float64(t2.n)/float64(total) {
		t.prop, t.propLP = t2.prop, t2.propLP
	}
	t.alpha += t2.alpha
	t.nAlpha += t2.nAlpha
	t.ok = t2.ok && s.noUTurn(t.minus, t.plus)
	t.n += t2.n
	return t
}

// noUTurn reports whether both ends of the trajectory still move apart.
func (s *nuts) noUTurn(minus, plus phase) bool {
	dMinus, dPlus := 0.0, 0.0
	for k, i := range s.idx {
		dq := plus.q[i] - minus.q[i]
		dMinus += dq * minus.p[k] / s.mass[k]
		dPlus += dq * plus.p[k] / s.mass[k]
	}
	return dMinus >= 0 && dPlus >= 0
}

func equalAt(a, b []float64, idx []int) bool {
	for _, i := range idx {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

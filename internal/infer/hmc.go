package infer

import "math"

const (
	// maxEnergyChange marks a trajectory as divergent.
	maxEnergyChange = 1000

	// maxLeapfrogSteps bounds one hmc trajectory.
	maxLeapfrogSteps = 1000
)

// hamiltonian carries what hmc and nuts share: the diagonal mass, gradient
// evaluation and step size adaptation.
type hamiltonian struct {
	base
	mass []float64
	da   *dualAverage
}

// phase is a position in the full vector with the momentum and gradient
// of the step's coordinates.
type phase struct {
	q []float64
	p []float64
	g []float64
}

func (h *hamiltonian) momentum() []float64 {
	p := make([]float64, len(h.idx))
	for k := range p {
		p[k] = math.Sqrt(h.mass[k]) * h.rng.NormFloat64()
	}
	return p
}

func (h *hamiltonian) kinetic(p []float64) float64 {
	e := 0.0
	for k, v := range p {
		e += v * v / (2 * h.mass[k])
	}
	return e
}

func (h *hamiltonian) grad(q []float64) []float64 {
	return h.c.Grad(q, h.idx)
}

// leapfrog advances a copy of z by one step of size eps.
func (h *hamiltonian) leapfrog(z phase, eps float64) phase {
	out := phase{
		q: append([]float64(nil), z.q...),
		p: append([]float64(nil), z.p...),
	}
	for k := range out.p {
		out.p[k] += eps / 2 * z.g[k]
	}
	for k, i := range h.idx {
		out.q[i] += eps * out.p[k] / h.mass[k]
	}
	out.g = h.grad(out.q)
	for k := range out.p {
		out.p[k] += eps / 2 * out.g[k]
	}
	return out
}

// hmc runs fixed-length leapfrog trajectories with a Metropolis correction.
type hmc struct {
	hamiltonian
	pathLength float64
}

func (s *hmc) Step(x []float64, lp float64, tune bool) (float64, error) {
	eps := s.da.stepSize(tune)
	n := int(math.Round(s.pathLength / eps))
	n = max(1, min(n, maxLeapfrogSteps))

	z := phase{q: x, p: s.momentum(), g: s.grad(x)}
	h0 := -lp + s.kinetic(z.p)
	for j := 0; j < n; j++ {
		z = s.leapfrog(z, eps)
	}
	next := s.c.LogP(z.q)
	dH := -next + s.kinetic(z.p) - h0
	if math.IsNaN(dH) {
		dH = math.Inf(1)
	}
	if dH > maxEnergyChange {
		s.metrics.Divergence()
	}

	if tune {
		s.da.update(math.Min(1, math.Exp(-dH)))
	}
	s.metrics.StepSize(string(s.method), eps)

	ok := accept(s.rng, -dH)
	s.metrics.Proposal(string(s.method), ok)
	if !ok {
		return lp, nil
	}
	copy(x, z.q)
	return next, nil
}

// dualAverage adapts a step size toward a target acceptance rate.
type dualAverage struct {
	target    float64
	mu        float64
	hBar      float64
	logEps    float64
	logEpsBar float64
	t         int
}

const (
	daGamma = 0.05
	daT0    = 10
	daKappa = 0.75
)

func newDualAverage(eps0, target float64) *dualAverage {
	return &dualAverage{
		target: target,
		mu:     math.Log(10 * eps0),
		logEps: math.Log(eps0),
	}
}

func (d *dualAverage) update(acceptRate float64) {
	if math.IsNaN(acceptRate) {
		acceptRate = 0
	}
	d.t++
	t := float64(d.t)
	eta := 1 / (t + daT0)
	d.hBar = (1-eta)*d.hBar + eta*(d.target-acceptRate)
	d.logEps = d.mu - math.Sqrt(t)/daGamma*d.hBar
	w := math.Pow(t, -daKappa)
	d.logEpsBar = w*d.logEps + (1-w)*d.logEpsBar
}

// stepSize is the adapting step during tuning and the averaged one after.
func (d *dualAverage) stepSize(tune bool) float64 {
	if tune || d.t == 0 {
		return math.Exp(d.logEps)
	}
	return math.Exp(d.logEpsBar)
}

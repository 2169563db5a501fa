package dist

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Dist is one distribution with concrete parameters.
type Dist interface {
	Kind() Kind

	// LogProb returns the log density (or mass) at x.
	LogProb(x float64) float64

	// Default returns a point inside the support used as a starting value.
	Default() float64

	// Rand draws a value using src.
	Rand(src rand.Source) float64

	// Transform returns the map from the support onto the real line.
	Transform() Transform
}

// ParamCountError is returned when New receives the wrong number of parameters.
type ParamCountError struct {
	Kind Kind
	Got  int
}

func (e *ParamCountError) Error() string {
	return fmt.Sprintf("%s takes %d parameters (%v), got %d",
		e.Kind, len(e.Kind.ParamNames()), e.Kind.ParamNames(), e.Got)
}

// New builds the variant for kind k with positional parameters theta.
func New(k Kind, theta ...float64) (Dist, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid kind %d", int(k))
	}
	if len(theta) != len(k.ParamNames()) {
		return nil, &ParamCountError{Kind: k, Got: len(theta)}
	}
	switch k {
	case Normal:
		return normal{mu: theta[0], tau: theta[1]}, nil
	case Uniform:
		return uniform{lower: theta[0], upper: theta[1]}, nil
	case Bernoulli:
		return bernoulli{p: theta[0]}, nil
	case Poisson:
		return poisson{mu: theta[0]}, nil
	case Binomial:
		return binomial{n: theta[0], p: theta[1]}, nil
	case Beta:
		return beta{alpha: theta[0], beta: theta[1]}, nil
	case Exponential:
		return exponential{lam: theta[0]}, nil
	case DiscreteUniform:
		return discreteUniform{lower: theta[0], upper: theta[1]}, nil
	case ZeroInflatedPoisson:
		return zeroInflatedPoisson{theta: theta[0], psi: theta[1]}, nil
	}
	return nil, fmt.Errorf("unhandled kind %s", k)
}

// MustNew is like New but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustNew(k Kind, theta ...float64) Dist {
	d, err := New(k, theta...)
	if err != nil {
		panic(err)
	}
	return d
}

var negInf = math.Inf(-1)

func isInt(x float64) bool {
	return x == math.Floor(x) && !math.IsInf(x, 0)
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type normal struct{ mu, tau float64 }

func (d normal) Kind() Kind { return Normal }

func (d normal) sigma() float64 { return 1 / math.Sqrt(d.tau) }

func (d normal) LogProb(x float64) float64 {
	if !(d.tau > 0) || !finite(d.mu, d.tau, x) {
		return negInf
	}
	return distuv.Normal{Mu: d.mu, Sigma: d.sigma()}.LogProb(x)
}

func (d normal) Default() float64 { return d.mu }

func (d normal) Rand(src rand.Source) float64 {
	return distuv.Normal{Mu: d.mu, Sigma: d.sigma(), Src: src}.Rand()
}

func (d normal) Transform() Transform { return Identity{} }

type uniform struct{ lower, upper float64 }

func (d uniform) Kind() Kind { return Uniform }

func (d uniform) LogProb(x float64) float64 {
	if !(d.upper > d.lower) || !finite(d.lower, d.upper, x) {
		return negInf
	}
	return distuv.Uniform{Min: d.lower, Max: d.upper}.LogProb(x)
}

func (d uniform) Default() float64 { return (d.lower + d.upper) / 2 }

func (d uniform) Rand(src rand.Source) float64 {
	return distuv.Uniform{Min: d.lower, Max: d.upper, Src: src}.Rand()
}

func (d uniform) Transform() Transform { return Interval{Lower: d.lower, Upper: d.upper} }

type bernoulli struct{ p float64 }

func (d bernoulli) Kind() Kind { return Bernoulli }

func (d bernoulli) LogProb(x float64) float64 {
	if d.p < 0 || d.p > 1 || math.IsNaN(d.p) {
		return negInf
	}
	return distuv.Bernoulli{P: d.p}.LogProb(x)
}

func (d bernoulli) Default() float64 {
	if d.p >= 0.5 {
		return 1
	}
	return 0
}

func (d bernoulli) Rand(src rand.Source) float64 {
	return distuv.Bernoulli{P: d.p, Src: src}.Rand()
}

func (d bernoulli) Transform() Transform { return Identity{} }

type poisson struct{ mu float64 }

func (d poisson) Kind() Kind { return Poisson }

func (d poisson) LogProb(x float64) float64 {
	return poissonLogProb(x, d.mu)
}

func poissonLogProb(x, mu float64) float64 {
	if mu < 0 || !finite(mu, x) || x < 0 || !isInt(x) {
		return negInf
	}
	if mu == 0 {
		if x == 0 {
			return 0
		}
		return negInf
	}
	return distuv.Poisson{Lambda: mu}.LogProb(x)
}

func (d poisson) Default() float64 { return math.Floor(d.mu) }

func (d poisson) Rand(src rand.Source) float64 {
	if d.mu <= 0 {
		return 0
	}
	return distuv.Poisson{Lambda: d.mu, Src: src}.Rand()
}

func (d poisson) Transform() Transform { return Identity{} }

type binomial struct{ n, p float64 }

func (d binomial) Kind() Kind { return Binomial }

func (d binomial) LogProb(x float64) float64 {
	if !finite(d.n, d.p, x) || d.n < 0 || !isInt(d.n) || d.p < 0 || d.p > 1 {
		return negInf
	}
	if x < 0 || x > d.n || !isInt(x) {
		return negInf
	}
	switch d.p {
	case 0:
		if x == 0 {
			return 0
		}
		return negInf
	case 1:
		if x == d.n {
			return 0
		}
		return negInf
	}
	return distuv.Binomial{N: d.n, P: d.p}.LogProb(x)
}

func (d binomial) Default() float64 { return math.Floor(d.n * d.p) }

func (d binomial) Rand(src rand.Source) float64 {
	if d.p <= 0 || d.n <= 0 {
		return 0
	}
	if d.p >= 1 {
		return d.n
	}
	return distuv.Binomial{N: d.n, P: d.p, Src: src}.Rand()
}

func (d binomial) Transform() Transform { return Identity{} }

type beta struct{ alpha, beta float64 }

func (d beta) Kind() Kind { return Beta }

func (d beta) LogProb(x float64) float64 {
	if !(d.alpha > 0) || !(d.beta > 0) || !finite(d.alpha, d.beta, x) {
		return negInf
	}
	if x <= 0 || x >= 1 {
		return negInf
	}
	return distuv.Beta{Alpha: d.alpha, Beta: d.beta}.LogProb(x)
}

func (d beta) Default() float64 { return d.alpha / (d.alpha + d.beta) }

func (d beta) Rand(src rand.Source) float64 {
	return distuv.Beta{Alpha: d.alpha, Beta: d.beta, Src: src}.Rand()
}

func (d beta) Transform() Transform { return LogOdds{} }

type exponential struct{ lam float64 }

func (d exponential) Kind() Kind { return Exponential }

func (d exponential) LogProb(x float64) float64 {
	if !(d.lam > 0) || !finite(d.lam, x) {
		return negInf
	}
	return distuv.Exponential{Rate: d.lam}.LogProb(x)
}

func (d exponential) Default() float64 { return 1 / d.lam }

func (d exponential) Rand(src rand.Source) float64 {
	return distuv.Exponential{Rate: d.lam, Src: src}.Rand()
}

func (d exponential) Transform() Transform { return Log{} }

type discreteUniform struct{ lower, upper float64 }

func (d discreteUniform) Kind() Kind { return DiscreteUniform }

func (d discreteUniform) LogProb(x float64) float64 {
	lo, hi := math.Ceil(d.lower), math.Floor(d.upper)
	if !finite(lo, hi, x) || hi < lo || !isInt(x) || x < lo || x > hi {
		return negInf
	}
	return -math.Log(hi - lo + 1)
}

func (d discreteUniform) Default() float64 {
	return math.Floor((math.Ceil(d.lower) + math.Floor(d.upper)) / 2)
}

func (d discreteUniform) Rand(src rand.Source) float64 {
	lo, hi := math.Ceil(d.lower), math.Floor(d.upper)
	u := distuv.Uniform{Min: 0, Max: 1, Src: src}.Rand()
	return math.Min(lo+math.Floor(u*(hi-lo+1)), hi)
}

func (d discreteUniform) Transform() Transform { return Identity{} }

// zeroInflatedPoisson mixes a point mass at zero (weight 1-psi) with a
// Poisson(theta) component (weight psi).
type zeroInflatedPoisson struct{ theta, psi float64 }

func (d zeroInflatedPoisson) Kind() Kind { return ZeroInflatedPoisson }

func (d zeroInflatedPoisson) LogProb(x float64) float64 {
	if d.psi < 0 || d.psi > 1 || d.theta < 0 || !finite(d.theta, d.psi, x) {
		return negInf
	}
	if x < 0 || !isInt(x) {
		return negInf
	}
	if x == 0 {
		return math.Log((1 - d.psi) + d.psi*math.Exp(-d.theta))
	}
	return math.Log(d.psi) + poissonLogProb(x, d.theta)
}

func (d zeroInflatedPoisson) Default() float64 { return math.Floor(d.psi * d.theta) }

func (d zeroInflatedPoisson) Rand(src rand.Source) float64 {
	if (distuv.Bernoulli{P: d.psi, Src: src}).Rand() == 0 {
		return 0
	}
	return poisson{mu: d.theta}.Rand(src)
}

func (d zeroInflatedPoisson) Transform() Transform { return Identity{} }

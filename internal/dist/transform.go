package dist

import "math"

// Transform maps a constrained value x onto the real line (Forward) and back
// (Backward). LogJacobian is log|dx/dy| evaluated at the unconstrained y.
type Transform interface {
	// Name is the suffix used for the transformed variable, or "" for Identity.
	Name() string
	Forward(x float64) float64
	Backward(y float64) float64
	LogJacobian(y float64) float64
}

// Identity leaves values unchanged.
type Identity struct{}

func (Identity) Name() string                  { return "" }
func (Identity) Forward(x float64) float64     { return x }
func (Identity) Backward(y float64) float64    { return y }
func (Identity) LogJacobian(y float64) float64 { return 0 }

// Log maps (0, ∞) to ℝ.
type Log struct{}

func (Log) Name() string                  { return "log" }
func (Log) Forward(x float64) float64     { return math.Log(x) }
func (Log) Backward(y float64) float64    { return math.Exp(y) }
func (Log) LogJacobian(y float64) float64 { return y }

// LogOdds maps (0, 1) to ℝ.
type LogOdds struct{}

func (LogOdds) Name() string              { return "logodds" }
func (LogOdds) Forward(x float64) float64 { return logit(x) }
func (LogOdds) Backward(y float64) float64 {
	return sigmoid(y)
}
func (LogOdds) LogJacobian(y float64) float64 {
	return -softplus(y) - softplus(-y)
}

// Interval maps (Lower, Upper) to ℝ.
type Interval struct {
	Lower, Upper float64
}

func (Interval) Name() string { return "interval" }

func (t Interval) Forward(x float64) float64 {
	return logit((x - t.Lower) / (t.Upper - t.Lower))
}

func (t Interval) Backward(y float64) float64 {
	return t.Lower + (t.Upper-t.Lower)*sigmoid(y)
}

func (t Interval) LogJacobian(y float64) float64 {
	return math.Log(t.Upper-t.Lower) - softplus(y) - softplus(-y)
}

// TransformedName returns the display name of a variable in unconstrained
// space, e.g. "early_mean_log_".
func TransformedName(name string, t Transform) string {
	if t == nil || t.Name() == "" {
		return name
	}
	return name + "_" + t.Name() + "_"
}

func sigmoid(y float64) float64 {
	if y >= 0 {
		return 1 / (1 + math.Exp(-y))
	}
	e := math.Exp(y)
	return e / (1 + e)
}

func logit(p float64) float64 {
	return math.Log(p) - math.Log1p(-p)
}

// softplus computes log(1 + exp(y)) without overflow.
func softplus(y float64) float64 {
	if y > 0 {
		return y + math.Log1p(math.Exp(-y))
	}
	return math.Log1p(math.Exp(y))
}

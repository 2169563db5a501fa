package infer

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/bayesharness/internal/metrics"
	"github.com/roach88/bayesharness/internal/model"
	"github.com/roach88/bayesharness/internal/trace"
)

// Method names a step method.
type Method string

const (
	MethodMetropolis       Method = "metropolis"
	MethodBinaryMetropolis Method = "binary_metropolis"
	MethodSlice            Method = "slice"
	MethodHMC              Method = "hmc"
	MethodNUTS             Method = "nuts"
)

// Methods lists every step method.
func Methods() []Method {
	return []Method{MethodMetropolis, MethodBinaryMetropolis, MethodSlice, MethodHMC, MethodNUTS}
}

// ParseMethod resolves a case-insensitive method name.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Methods() {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown step method %q (want one of %v)", s, Methods())
}

// gradient reports whether the method uses log-probability gradients.
func (m Method) gradient() bool {
	return m == MethodHMC || m == MethodNUTS
}

// accepts reports whether the method can update slot s.
func (m Method) accepts(s model.Slot) bool {
	switch m {
	case MethodMetropolis:
		return true
	case MethodBinaryMetropolis:
		return s.Binary()
	case MethodSlice, MethodHMC, MethodNUTS:
		return !s.Discrete()
	}
	return false
}

// StepSpec configures one step of a sampling sweep.
type StepSpec struct {
	Method Method

	// Vars lists the free variables the step updates. An empty list claims
	// every compatible variable not named by another step.
	Vars []string

	// Scaling is a diagonal, one entry per element or a single broadcast
	// entry. For metropolis it holds proposal standard deviations; for hmc
	// and nuts it holds the mass (precision) of each coordinate.
	Scaling []float64

	// ScalingHessian derives Scaling from the negative Hessian diagonal at
	// the start point.
	ScalingHessian bool

	// StepScale is the initial proposal scale (metropolis), interval width
	// (slice) or step size before dimension scaling (hmc, nuts).
	StepScale float64

	// PathLength is the integration time of an hmc trajectory.
	PathLength float64

	// MaxTreeDepth bounds nuts trees.
	MaxTreeDepth int

	// TargetAccept is the acceptance rate step size adaptation aims for.
	TargetAccept float64
}

const (
	defaultPathLength   = 2.0
	defaultMaxTreeDepth = 10
	defaultTargetNUTS   = 0.8
	defaultTargetHMC    = 0.65
	defaultGradientStep = 0.25
)

func (s StepSpec) withDefaults() StepSpec {
	if s.StepScale <= 0 {
		switch s.Method {
		case MethodHMC, MethodNUTS:
			s.StepScale = defaultGradientStep
		default:
			s.StepScale = 1
		}
	}
	if s.PathLength <= 0 {
		s.PathLength = defaultPathLength
	}
	if s.MaxTreeDepth <= 0 {
		s.MaxTreeDepth = defaultMaxTreeDepth
	}
	if s.TargetAccept <= 0 || s.TargetAccept >= 1 {
		if s.Method == MethodHMC {
			s.TargetAccept = defaultTargetHMC
		} else {
			s.TargetAccept = defaultTargetNUTS
		}
	}
	return s
}

// SampleConfig configures Sample.
type SampleConfig struct {
	// Draws is the trace length. The first Tune draws adapt step sizes and
	// are part of the trace.
	Draws int
	Tune  int

	// Start overrides initial values of free variables.
	Start model.Point

	Steps []StepSpec

	// Seed drives every random choice of the run.
	Seed uint64

	// RunID labels the trace. Empty means a fresh UUIDv7.
	RunID string

	// Store, when set, receives every draw and is closed when Sample returns.
	Store trace.Store

	Metrics *metrics.Sampler
	Logger  *slog.Logger
}

// MAP optimizers.
const (
	OptimizerBFGS   = "bfgs"
	OptimizerPowell = "powell"
)

// MAPConfig configures FindMAP.
type MAPConfig struct {
	Start model.Point

	// Vars restricts optimization to these variables. Empty means every
	// continuous free variable. Discrete variables are always held fixed.
	Vars []string

	// Method is "bfgs" (default) or "powell", which runs the
	// derivative-free Nelder-Mead simplex.
	Method string

	MaxIterations int

	// GradTol bounds the gradient norm accepted at the optimum.
	GradTol float64

	Metrics *metrics.Sampler
	Logger  *slog.Logger
}

const (
	defaultMAPIterations = 1000
	defaultGradTol       = 1e-3
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

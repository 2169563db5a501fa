package harness

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/roach88/bayesharness/internal/examples"
	"github.com/roach88/bayesharness/internal/infer"
	"github.com/roach88/bayesharness/internal/trace"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// assertionContext carries everything an assertion may inspect.
type assertionContext struct {
	ctx      context.Context
	harness  *Harness
	scenario *Scenario
	example  examples.Example
	exec     *execution
	result   *Result
}

func (a *assertionContext) trace() *trace.Trace { return a.exec.outcome.Trace }

// evaluateAssertions evaluates all assertions in order and returns the
// messages of those that failed.
func evaluateAssertions(actx *assertionContext, assertions []Assertion) []string {
	var errs []string
	for i, assertion := range assertions {
		var err error
		switch assertion.Type {
		case AssertTraceLength:
			err = assertTraceLength(actx, assertion)
		case AssertVarsPresent:
			err = assertVarsPresent(actx, assertion)
		case AssertObservedAbsent:
			err = assertObservedAbsent(actx)
		case AssertNonnegative:
			err = assertElements(actx, assertion, "nonnegative", func(v float64) bool { return v >= 0 })
		case AssertFinite:
			err = assertElements(actx, assertion, "finite", func(v float64) bool {
				return !math.IsNaN(v) && !math.IsInf(v, 0)
			})
		case AssertMeanWithin:
			err = assertMeanWithin(actx, assertion)
		case AssertGradientNorm:
			err = assertGradientNorm(actx, assertion)
		case AssertDeterministic:
			err = assertDeterministic(actx)
		case AssertRoundTrip:
			err = assertRoundTrip(actx, assertion)
		default:
			err = fmt.Errorf("unknown assertion type %q", assertion.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func assertTraceLength(actx *assertionContext, a Assertion) error {
	if n := actx.trace().Len(); n != a.Count {
		return &AssertionError{
			Type:     AssertTraceLength,
			Expected: fmt.Sprintf("%d draws", a.Count),
			Actual:   fmt.Sprintf("%d draws", n),
		}
	}
	return nil
}

// assertVarsPresent checks every draw holds a correctly sized value for
// each variable.
func assertVarsPresent(actx *assertionContext, a Assertion) error {
	names := a.Vars
	if len(names) == 0 {
		for _, v := range actx.exec.compiled.Model().FreeVars() {
			names = append(names, v.Name)
		}
	}
	t := actx.trace()
	for _, name := range names {
		v, ok := t.Var(name)
		if !ok {
			return &AssertionError{
				Type:     AssertVarsPresent,
				Expected: fmt.Sprintf("variable %q recorded", name),
				Actual:   fmt.Sprintf("recorded variables %v", varNames(t)),
			}
		}
		for i, d := range t.Draws {
			if got := len(d[name]); got != v.Size() {
				return &AssertionError{
					Type:     AssertVarsPresent,
					Expected: fmt.Sprintf("draw %d: %d values for %q", i, v.Size(), name),
					Actual:   fmt.Sprintf("%d values", got),
				}
			}
		}
	}
	return nil
}

func assertObservedAbsent(actx *assertionContext) error {
	t := actx.trace()
	for _, v := range actx.exec.compiled.Model().ObservedVars() {
		if _, ok := t.Var(v.Name); ok {
			return &AssertionError{
				Type:     AssertObservedAbsent,
				Expected: fmt.Sprintf("observed variable %q not recorded", v.Name),
				Actual:   "recorded in the trace header",
			}
		}
		for i, d := range t.Draws {
			if _, ok := d[v.Name]; ok {
				return &AssertionError{
					Type:     AssertObservedAbsent,
					Expected: fmt.Sprintf("observed variable %q not recorded", v.Name),
					Actual:   fmt.Sprintf("present in draw %d", i),
				}
			}
		}
	}
	return nil
}

// assertElements checks ok holds for every element of every draw of the
// selected variables.
func assertElements(actx *assertionContext, a Assertion, what string, ok func(float64) bool) error {
	t := actx.trace()
	names := a.Vars
	if len(names) == 0 {
		names = varNames(t)
	}
	for _, name := range names {
		if _, found := t.Var(name); !found {
			return fmt.Errorf("%s: variable %q is not recorded", what, name)
		}
		for i, d := range t.Draws {
			for j, v := range d[name] {
				if !ok(v) {
					return &AssertionError{
						Type:     what,
						Expected: fmt.Sprintf("%s[%d] %s in every draw", name, j, what),
						Actual:   fmt.Sprintf("%v in draw %d", v, i),
					}
				}
			}
		}
	}
	return nil
}

func assertMeanWithin(actx *assertionContext, a Assertion) error {
	xs, err := actx.trace().Series(a.Var, a.Elem, a.Burn)
	if err != nil {
		return fmt.Errorf("mean_within: %w", err)
	}
	if len(xs) == 0 {
		return fmt.Errorf("mean_within: no draws left after burning %d", a.Burn)
	}
	mean := stat.Mean(xs, nil)
	if !(math.Abs(mean-a.Mean) <= a.Tolerance) {
		return &AssertionError{
			Type:     AssertMeanWithin,
			Expected: fmt.Sprintf("mean of %s[%d] within %g of %g", a.Var, a.Elem, a.Tolerance, a.Mean),
			Actual:   fmt.Sprintf("%g over %d draws", mean, len(xs)),
		}
	}
	return nil
}

func assertGradientNorm(actx *assertionContext, a Assertion) error {
	opt := actx.exec.outcome.MAP
	if opt == nil {
		return fmt.Errorf("gradient_norm: example %s has no MAP stage", actx.example.Name)
	}
	var vars []string
	if cfg := actx.exec.plan.MAP; cfg != nil {
		vars = cfg.Vars
	}
	norm, err := infer.GradNorm(actx.exec.compiled, opt, vars)
	if err != nil {
		return fmt.Errorf("gradient_norm: %w", err)
	}
	if !(norm <= a.Max) {
		return &AssertionError{
			Type:     AssertGradientNorm,
			Expected: fmt.Sprintf("gradient norm at the MAP point <= %g", a.Max),
			Actual:   fmt.Sprintf("%g", norm),
		}
	}
	return nil
}

// assertDeterministic rebuilds and reruns the scenario from the same seed
// and compares trace digests.
func assertDeterministic(actx *assertionContext) error {
	rerun := NewResult(actx.scenario)
	rerun.Seed = actx.result.Seed
	rerun.RunID = actx.result.RunID
	if _, err := actx.harness.executeWith(actx.ctx, actx.scenario, actx.example, trace.KindMemory, rerun); err != nil {
		return fmt.Errorf("deterministic: rerun: %w", err)
	}
	if rerun.Digest != actx.result.Digest {
		return &AssertionError{
			Type:     AssertDeterministic,
			Expected: fmt.Sprintf("digest %s", actx.result.Digest),
			Actual:   fmt.Sprintf("digest %s on rerun", rerun.Digest),
		}
	}
	return nil
}

// assertRoundTrip writes the trace to a file-backed store, reopens it and
// compares what comes back. The reopened store must refuse new draws.
func assertRoundTrip(actx *assertionContext, a Assertion) error {
	kind := trace.KindSQLite
	if a.Backend != "" {
		k, err := trace.ParseKind(a.Backend)
		if err != nil {
			return fmt.Errorf("roundtrip: %w", err)
		}
		kind = k
	}
	dir, err := os.MkdirTemp("", "roundtrip-*")
	if err != nil {
		return fmt.Errorf("roundtrip: %w", err)
	}
	defer os.RemoveAll(dir)
	path := storePath(dir, kind)

	t := actx.trace()
	s, err := trace.Open(kind, path)
	if err != nil {
		return fmt.Errorf("roundtrip: %w", err)
	}
	if err := trace.Write(actx.ctx, s, t); err != nil {
		s.Close()
		return fmt.Errorf("roundtrip: %w", err)
	}
	if err := s.Close(); err != nil {
		return fmt.Errorf("roundtrip: %w", err)
	}

	s, err = trace.Open(kind, path)
	if err != nil {
		return fmt.Errorf("roundtrip: reopen: %w", err)
	}
	defer s.Close()
	back, err := trace.Load(actx.ctx, s)
	if err != nil {
		return fmt.Errorf("roundtrip: %w", err)
	}
	if back.Digest() != t.Digest() {
		return &AssertionError{
			Type:     AssertRoundTrip,
			Expected: fmt.Sprintf("%s store reproduces digest %s (%d draws)", kind, t.Digest(), t.Len()),
			Actual:   fmt.Sprintf("digest %s (%d draws)", back.Digest(), back.Len()),
		}
	}
	if t.Len() == 0 {
		return nil
	}
	if err := s.Append(actx.ctx, t.Draws[0]); !errors.Is(err, trace.ErrClosed) {
		return &AssertionError{
			Type:     AssertRoundTrip,
			Expected: "reopened store refuses appends",
			Actual:   fmt.Sprintf("append returned %v", err),
		}
	}
	return nil
}

func varNames(t *trace.Trace) []string {
	names := make([]string, len(t.Vars))
	for i, v := range t.Vars {
		names[i] = v.Name
	}
	sort.Strings(names)
	return names
}

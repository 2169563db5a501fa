package infer

import "fmt"

// OptimizationDivergedError is returned by FindMAP when the optimizer does
// not reach a stationary point within its budget.
type OptimizationDivergedError struct {
	Method     string
	Iterations int
	GradNorm   float64
	Status     string
	Err        error
}

func (e *OptimizationDivergedError) Error() string {
	msg := fmt.Sprintf("%s optimization diverged after %d iterations (status %s, gradient norm %.3g)",
		e.Method, e.Iterations, e.Status, e.GradNorm)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OptimizationDivergedError) Unwrap() error { return e.Err }

// SamplingError is returned by Sample when a draw cannot be produced.
// Draw is -1 for failures before the first draw.
type SamplingError struct {
	Draw   int
	Method Method
	Reason string
	Err    error
}

func (e *SamplingError) Error() string {
	msg := "sampling failed"
	if e.Draw >= 0 {
		msg = fmt.Sprintf("sampling failed at draw %d", e.Draw)
	}
	if e.Method != "" {
		msg += fmt.Sprintf(" (%s)", e.Method)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SamplingError) Unwrap() error { return e.Err }

// StepAssignmentError is returned when step specifications cannot be mapped
// onto the free variables of a model.
type StepAssignmentError struct {
	Step   int
	Method Method
	Var    string
	Reason string
}

func (e *StepAssignmentError) Error() string {
	if e.Var == "" {
		return fmt.Sprintf("step %d (%s): %s", e.Step, e.Method, e.Reason)
	}
	return fmt.Sprintf("step %d (%s): variable %q: %s", e.Step, e.Method, e.Var, e.Reason)
}

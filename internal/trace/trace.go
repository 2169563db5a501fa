package trace

import (
	"errors"
	"fmt"
)

// Var describes one recorded variable.
type Var struct {
	Name  string `json:"name"`
	Shape []int  `json:"shape"`
}

// Size is the number of scalar elements of the variable.
func (v Var) Size() int {
	n := 1
	for _, d := range v.Shape {
		n *= d
	}
	return n
}

// Draw maps variable names to values. Each value has the size of its Var.
type Draw map[string][]float64

// Clone returns a deep copy.
func (d Draw) Clone() Draw {
	out := make(Draw, len(d))
	for k, v := range d {
		out[k] = append([]float64(nil), v...)
	}
	return out
}

// ErrClosed is returned when appending to a sealed trace or closed store.
var ErrClosed = errors.New("trace is closed")

// DrawError is returned when a draw does not match the declared variables.
type DrawError struct {
	Index  int
	Var    string
	Reason string
}

func (e *DrawError) Error() string {
	return fmt.Sprintf("draw %d: variable %q: %s", e.Index, e.Var, e.Reason)
}

// Trace is the ordered sequence of draws of one inference run.
// It is appended to while the run lasts and immutable once sealed.
type Trace struct {
	RunID string
	Vars  []Var
	Draws []Draw

	sealed bool
}

// New returns an empty trace for vars.
func New(runID string, vars []Var) *Trace {
	return &Trace{RunID: runID, Vars: append([]Var(nil), vars...)}
}

// Len returns the number of draws.
func (t *Trace) Len() int { return len(t.Draws) }

// Append adds a draw after checking it against Vars.
func (t *Trace) Append(d Draw) error {
	if t.sealed {
		return ErrClosed
	}
	if err := checkDraw(t.Vars, len(t.Draws), d); err != nil {
		return err
	}
	t.Draws = append(t.Draws, d.Clone())
	return nil
}

// Seal makes the trace read-only.
func (t *Trace) Seal() { t.sealed = true }

// Sealed reports whether Seal was called.
func (t *Trace) Sealed() bool { return t.sealed }

// Var returns the named variable.
func (t *Trace) Var(name string) (Var, bool) {
	for _, v := range t.Vars {
		if v.Name == name {
			return v, true
		}
	}
	return Var{}, false
}

// Series returns element elem of the named variable across all draws,
// starting at draw burn.
func (t *Trace) Series(name string, elem, burn int) ([]float64, error) {
	v, ok := t.Var(name)
	if !ok {
		return nil, fmt.Errorf("trace has no variable %q", name)
	}
	if elem < 0 || elem >= v.Size() {
		return nil, fmt.Errorf("variable %q has %d elements, index %d out of range", name, v.Size(), elem)
	}
	if burn < 0 || burn > len(t.Draws) {
		return nil, fmt.Errorf("burn %d out of range for %d draws", burn, len(t.Draws))
	}
	out := make([]float64, 0, len(t.Draws)-burn)
	for _, d := range t.Draws[burn:] {
		out = append(out, d[name][elem])
	}
	return out, nil
}

func checkDraw(vars []Var, index int, d Draw) error {
	for _, v := range vars {
		vals, ok := d[v.Name]
		if !ok {
			return &DrawError{Index: index, Var: v.Name, Reason: "missing"}
		}
		if len(vals) != v.Size() {
			return &DrawError{
				Index:  index,
				Var:    v.Name,
				Reason: fmt.Sprintf("has %d elements, want %d", len(vals), v.Size()),
			}
		}
	}
	if len(d) != len(vars) {
		for name := range d {
			if !hasVar(vars, name) {
				return &DrawError{Index: index, Var: name, Reason: "not declared"}
			}
		}
	}
	return nil
}

func hasVar(vars []Var, name string) bool {
	for _, v := range vars {
		if v.Name == name {
			return true
		}
	}
	return false
}

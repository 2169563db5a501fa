package model

import (
	"fmt"
	"strings"

	"github.com/roach88/bayesharness/internal/dist"
)

// DuplicateNameError is returned when a variable name is already declared.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("variable %q already declared", e.Name)
}

// ShapeMismatchError is returned when a value's length disagrees with the
// declared shape of a variable.
type ShapeMismatchError struct {
	Name  string // variable being declared or evaluated
	What  string // "observed", "test value", "param mu", ...
	Shape []int
	Got   int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("variable %q: %s has %d elements, shape %s needs %d",
		e.Name, e.What, e.Got, FormatShape(e.Shape), ShapeSize(e.Shape))
}

// UnresolvedParentError is returned when a parameter references a variable
// that has not been declared.
type UnresolvedParentError struct {
	Name   string
	Param  string
	Parent string
}

func (e *UnresolvedParentError) Error() string {
	return fmt.Sprintf("variable %q: param %s references undeclared variable %q",
		e.Name, e.Param, e.Parent)
}

// ParamError is returned when the parameters passed to Declare do not match
// the distribution kind.
type ParamError struct {
	Name   string
	Kind   dist.Kind
	Param  string
	Reason string // "unknown" or "missing"
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("variable %q: %s param %q for %s (expects %v)",
		e.Name, e.Reason, e.Param, e.Kind, e.Kind.ParamNames())
}

// IndexRangeError is returned when an Index parameter selects an element
// outside the referenced variable.
type IndexRangeError struct {
	Name   string
	Param  string
	Parent string
	Index  int
	Size   int
}

func (e *IndexRangeError) Error() string {
	return fmt.Sprintf("variable %q: param %s indexes %s[%d] but %s has %d elements",
		e.Name, e.Param, e.Parent, e.Index, e.Parent, e.Size)
}

// InvalidShapeError is returned for shapes with non-positive dimensions.
type InvalidShapeError struct {
	Name  string
	Shape []int
}

func (e *InvalidShapeError) Error() string {
	return fmt.Sprintf("variable %q: invalid shape %v (dimensions must be positive)", e.Name, e.Shape)
}

// CycleError is returned by Compile when the parent graph contains a cycle.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Path, " → "))
}

// UnknownVariableError is returned when a point or step references a name
// that is not a free variable of the model.
type UnknownVariableError struct {
	Name string
}

func (e *UnknownVariableError) Error() string {
	return fmt.Sprintf("unknown free variable %q", e.Name)
}

package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Param is a distribution parameter expression. It evaluates to either a
// single value (broadcast over every element) or one value per element.
type Param interface {
	// Deps lists the variables the expression reads.
	Deps() []string

	// Eval computes the parameter at point p. p holds every variable the
	// expression depends on.
	Eval(p Point) []float64

	// String renders the expression for Describe.
	String() string
}

// Params maps parameter names (dist.Kind.ParamNames) to expressions.
type Params map[string]Param

type constParam struct{ vals []float64 }

// Const is a constant parameter.
func Const(vals ...float64) Param {
	return constParam{vals: append([]float64(nil), vals...)}
}

func (c constParam) Deps() []string       { return nil }
func (c constParam) Eval(Point) []float64 { return c.vals }
func (c constParam) String() string {
	if len(c.vals) == 1 {
		return strconv.FormatFloat(c.vals[0], 'g', -1, 64)
	}
	return fmt.Sprintf("const[%d]", len(c.vals))
}

type refParam struct{ name string }

// Ref reads the value of another variable.
func Ref(name string) Param {
	return refParam{name: name}
}

func (r refParam) Deps() []string         { return []string{r.name} }
func (r refParam) Eval(p Point) []float64 { return p[r.name] }
func (r refParam) String() string         { return r.name }

type powParam struct {
	name string
	exp  float64
}

// Pow raises each element of a variable to a constant power, e.g. turning a
// standard deviation into a precision with Pow("sd", -2).
func Pow(name string, exp float64) Param {
	return powParam{name: name, exp: exp}
}

func (q powParam) Deps() []string { return []string{q.name} }

func (q powParam) Eval(p Point) []float64 {
	src := p[q.name]
	out := make([]float64, len(src))
	for i, v := range src {
		out[i] = math.Pow(v, q.exp)
	}
	return out
}

func (q powParam) String() string {
	return q.name + "^" + strconv.FormatFloat(q.exp, 'g', -1, 64)
}

type indexParam struct {
	name string
	idx  []int
}

// Index gathers elements of a variable, e.g. means[group].
func Index(name string, idx []int) Param {
	return indexParam{name: name, idx: append([]int(nil), idx...)}
}

func (x indexParam) Deps() []string { return []string{x.name} }

func (x indexParam) Eval(p Point) []float64 {
	src := p[x.name]
	out := make([]float64, len(x.idx))
	for i, j := range x.idx {
		if j < 0 || j >= len(src) {
			out[i] = math.NaN()
			continue
		}
		out[i] = src[j]
	}
	return out
}

func (x indexParam) String() string {
	return fmt.Sprintf("%s[idx:%d]", x.name, len(x.idx))
}

type funcParam struct {
	deps []string
	fn   func(Point) []float64
}

// Func is an arbitrary expression over deps.
func Func(deps []string, fn func(Point) []float64) Param {
	return funcParam{deps: append([]string(nil), deps...), fn: fn}
}

func (f funcParam) Deps() []string         { return f.deps }
func (f funcParam) Eval(p Point) []float64 { return f.fn(p) }
func (f funcParam) String() string {
	return "f(" + strings.Join(f.deps, ", ") + ")"
}

package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/roach88/bayesharness/internal/dist"
)

// Slot locates one free variable in the flat unconstrained vector.
type Slot struct {
	Name   string
	Shape  []int
	Kind   dist.Kind
	Offset int
	Size   int

	// Transform names the map to the real line, or "" when the slot holds
	// natural-space values.
	Transform string
}

// Discrete reports whether the slot holds integer values.
func (s Slot) Discrete() bool { return s.Kind.Discrete() }

// Binary reports whether the slot holds 0/1 values.
func (s Slot) Binary() bool { return s.Kind.Binary() }

// Indices returns the vector positions covered by the slot.
func (s Slot) Indices() []int {
	idx := make([]int, s.Size)
	for i := range idx {
		idx[i] = s.Offset + i
	}
	return idx
}

// TransformedName is the display name of the slot, e.g. "early_mean_log_".
func (s Slot) TransformedName() string {
	if s.Transform == "" {
		return s.Name
	}
	return s.Name + "_" + s.Transform + "_"
}

// Ordering lays out the free variables of a compiled model.
type Ordering struct {
	Slots []Slot
	Size  int
	index map[string]int
}

// Lookup returns the slot of the named free variable.
func (o *Ordering) Lookup(name string) (Slot, bool) {
	i, ok := o.index[name]
	if !ok {
		return Slot{}, false
	}
	return o.Slots[i], true
}

// Compiled is an executable model: a joint log-probability over the flat
// unconstrained vector of its free variables.
type Compiled struct {
	model    *Model
	order    []*Var
	ordering *Ordering
}

// Compile validates the parent graph and lays out the free variables.
// It does not modify the model.
func (m *Model) Compile() (*Compiled, error) {
	if cycle := findCycle(m.graph()); cycle != nil {
		return nil, &CycleError{Path: cycle}
	}

	c := &Compiled{model: m, order: m.topoOrder()}
	c.ordering = &Ordering{index: make(map[string]int)}
	for _, v := range m.vars {
		if v.Role != RoleFree {
			continue
		}
		slot := Slot{
			Name:   v.Name,
			Shape:  v.Shape,
			Kind:   v.Kind,
			Offset: c.ordering.Size,
			Size:   v.Size(),
		}
		if !v.NoTransform && !v.Discrete() {
			slot.Transform = v.Kind.TransformName()
		}
		c.ordering.index[v.Name] = len(c.ordering.Slots)
		c.ordering.Slots = append(c.ordering.Slots, slot)
		c.ordering.Size += slot.Size
	}

	// A dry run catches parameter expressions whose length cannot broadcast.
	start, err := c.InitialPoint(nil)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", m.name, err)
	}
	x, err := c.Map(start)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", m.name, err)
	}
	if _, _, err := c.eval(x); err != nil {
		return nil, fmt.Errorf("compile %s: %w", m.name, err)
	}
	return c, nil
}

// Model returns the source model.
func (c *Compiled) Model() *Model { return c.model }

// Ordering returns the vector layout.
func (c *Compiled) Ordering() *Ordering { return c.ordering }

// Dim is the length of the flat vector.
func (c *Compiled) Dim() int { return c.ordering.Size }

// ContinuousIndices returns the vector positions of continuous variables.
func (c *Compiled) ContinuousIndices() []int {
	var idx []int
	for _, s := range c.ordering.Slots {
		if !s.Discrete() {
			idx = append(idx, s.Indices()...)
		}
	}
	return idx
}

// Recorded returns the variables written to traces: free variables in
// layout order followed by deterministics.
func (c *Compiled) Recorded() []*Var {
	var out []*Var
	for _, s := range c.ordering.Slots {
		out = append(out, c.model.byName[s.Name])
	}
	for _, v := range c.model.vars {
		if v.Role == RoleDeterministic {
			out = append(out, v)
		}
	}
	return out
}

// LogP returns the joint log-probability at x, including the log-Jacobians
// of transformed variables. Invalid points yield -Inf.
func (c *Compiled) LogP(x []float64) float64 {
	_, lp, err := c.eval(x)
	if err != nil || math.IsNaN(lp) {
		return math.Inf(-1)
	}
	return lp
}

const gradStep = 1e-6

// Grad returns the gradient of LogP at x with respect to the positions idx,
// by central finite differences.
func (c *Compiled) Grad(x []float64, idx []int) []float64 {
	sub, f := c.restrict(x, idx)
	return fd.Gradient(nil, f, sub, &fd.Settings{Formula: fd.Central, Step: gradStep})
}

// LogPGrad returns LogP and Grad at x.
func (c *Compiled) LogPGrad(x []float64, idx []int) (float64, []float64) {
	return c.LogP(x), c.Grad(x, idx)
}

// Hessian returns the matrix of second derivatives of LogP with respect to
// the positions idx.
func (c *Compiled) Hessian(x []float64, idx []int) *mat.SymDense {
	sub, f := c.restrict(x, idx)
	h := &mat.SymDense{}
	fd.Hessian(h, f, sub, &fd.Settings{Formula: fd.Central})
	return h
}

// restrict returns the values at idx and LogP as a function of them, with
// every other position held at x.
func (c *Compiled) restrict(x []float64, idx []int) ([]float64, func([]float64) float64) {
	sub := make([]float64, len(idx))
	for k, i := range idx {
		sub[k] = x[i]
	}
	buf := append([]float64(nil), x...)
	return sub, func(s []float64) float64 {
		for k, i := range idx {
			buf[i] = s[k]
		}
		return c.LogP(buf)
	}
}

// Unmap decodes x into natural-space values of the recorded variables.
func (c *Compiled) Unmap(x []float64) (Point, error) {
	full, _, err := c.eval(x)
	if err != nil {
		return nil, err
	}
	out := make(Point)
	for _, v := range c.Recorded() {
		out[v.Name] = full[v.Name]
	}
	return out, nil
}

// Map encodes a natural-space point into the flat vector. The point must
// hold every free variable; deterministic values are ignored.
func (c *Compiled) Map(p Point) ([]float64, error) {
	if err := c.checkNames(p, true); err != nil {
		return nil, err
	}
	x := make([]float64, c.ordering.Size)
	nat := make(Point, len(c.order))
	for _, v := range c.order {
		if v.Role != RoleFree {
			if err := c.derive(v, nat); err != nil {
				return nil, err
			}
			continue
		}
		vals, ok := p[v.Name]
		if !ok {
			return nil, fmt.Errorf("point has no value for free variable %q", v.Name)
		}
		if len(vals) != v.Size() {
			return nil, &ShapeMismatchError{Name: v.Name, What: "point value", Shape: v.Shape, Got: len(vals)}
		}
		slot, _ := c.ordering.Lookup(v.Name)
		err := c.eachElement(v, nat, func(j int, d dist.Dist) {
			x[slot.Offset+j] = c.transform(slot, d).Forward(vals[j])
		})
		if err != nil {
			return nil, err
		}
		nat[v.Name] = append([]float64(nil), vals...)
	}
	return x, nil
}

// InitialPoint returns the starting values of every free variable: start
// when given, otherwise the declared test value, otherwise the default of
// the distribution.
func (c *Compiled) InitialPoint(start Point) (Point, error) {
	if err := c.checkNames(start, false); err != nil {
		return nil, err
	}
	out := make(Point)
	nat := make(Point, len(c.order))
	for _, v := range c.order {
		if v.Role != RoleFree {
			if err := c.derive(v, nat); err != nil {
				return nil, err
			}
			continue
		}
		var vals []float64
		switch {
		case start[v.Name] != nil:
			b, err := broadcast(v.Name, "start value", start[v.Name], v.Shape)
			if err != nil {
				return nil, err
			}
			vals = b
		case v.TestValue != nil:
			vals = append([]float64(nil), v.TestValue...)
		default:
			vals = make([]float64, v.Size())
			err := c.eachElement(v, nat, func(j int, d dist.Dist) {
				vals[j] = d.Default()
			})
			if err != nil {
				return nil, err
			}
		}
		nat[v.Name] = vals
		out[v.Name] = vals
	}
	return out, nil
}

func (c *Compiled) checkNames(p Point, allowDerived bool) error {
	for name := range p {
		v, ok := c.model.byName[name]
		if ok && (v.Role == RoleFree || (allowDerived && v.Role == RoleDeterministic)) {
			continue
		}
		return &UnknownVariableError{Name: name}
	}
	return nil
}

func (c *Compiled) eval(x []float64) (Point, float64, error) {
	if len(x) != c.ordering.Size {
		return nil, 0, fmt.Errorf("vector has %d elements, model needs %d", len(x), c.ordering.Size)
	}
	p := make(Point, len(c.order))
	lp := 0.0
	for _, v := range c.order {
		switch v.Role {
		case RoleFree:
			slot, _ := c.ordering.Lookup(v.Name)
			vals := make([]float64, v.Size())
			imputed := v.ImputedFor != ""
			err := c.eachElement(v, p, func(j int, d dist.Dist) {
				y := x[slot.Offset+j]
				tr := c.transform(slot, d)
				vals[j] = tr.Backward(y)
				lp += tr.LogJacobian(y)
				// Imputed values are scored by the observed variable.
				if !imputed {
					lp += d.LogProb(vals[j])
				}
			})
			if err != nil {
				return nil, 0, err
			}
			p[v.Name] = vals

		case RoleObserved:
			if err := c.derive(v, p); err != nil {
				return nil, 0, err
			}
			data := p[v.Name]
			err := c.eachElement(v, p, func(i int, d dist.Dist) {
				lp += d.LogProb(data[i])
			})
			if err != nil {
				return nil, 0, err
			}

		case RoleDeterministic:
			if err := c.derive(v, p); err != nil {
				return nil, 0, err
			}

		case RolePotential:
			lp += v.fn(p)[0]
		}
	}
	return p, lp, nil
}

// derive fills p with the value of an observed or deterministic variable.
func (c *Compiled) derive(v *Var, p Point) error {
	switch v.Role {
	case RoleObserved:
		if v.Missing == "" {
			p[v.Name] = v.Observed
			return nil
		}
		data := append([]float64(nil), v.Observed...)
		fill := p[v.Missing]
		for j, i := range v.MissingIdx {
			data[i] = fill[j]
		}
		p[v.Name] = data
	case RoleDeterministic:
		vals := v.fn(p)
		if len(vals) != v.Size() {
			return &ShapeMismatchError{Name: v.Name, What: "value", Shape: v.Shape, Got: len(vals)}
		}
		p[v.Name] = vals
	}
	return nil
}

// eachElement calls fn with the distribution of every element of v, given
// parent values in p. Imputed variables use the parameters of the observed
// element they stand in for.
func (c *Compiled) eachElement(v *Var, p Point, fn func(j int, d dist.Dist)) error {
	src := v
	if v.ImputedFor != "" {
		src = c.model.byName[v.ImputedFor]
	}
	names := src.Kind.ParamNames()
	theta := make([][]float64, len(names))
	for k, pname := range names {
		vals, err := broadcast(src.Name, "param "+pname, src.Params[pname].Eval(p), src.Shape)
		if err != nil {
			return err
		}
		theta[k] = vals
	}
	args := make([]float64, len(names))
	for j := 0; j < v.Size(); j++ {
		i := j
		if src != v {
			i = src.MissingIdx[j]
		}
		for k := range theta {
			args[k] = theta[k][i]
		}
		d, err := dist.New(v.Kind, args...)
		if err != nil {
			return fmt.Errorf("variable %q: %w", v.Name, err)
		}
		fn(j, d)
	}
	return nil
}

func (c *Compiled) transform(s Slot, d dist.Dist) dist.Transform {
	if s.Transform == "" {
		return dist.Identity{}
	}
	return d.Transform()
}

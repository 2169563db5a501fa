package model

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/bayesharness/internal/dist"
)

// Role classifies a variable by how it takes part in the joint density.
type Role int

const (
	// RoleFree variables are sampled or optimized.
	RoleFree Role = iota + 1
	// RoleObserved variables are fixed by data and only add likelihood terms.
	RoleObserved
	// RoleDeterministic variables are derived values recorded in traces.
	RoleDeterministic
	// RolePotential variables add an arbitrary log-probability term.
	RolePotential
)

func (r Role) String() string {
	switch r {
	case RoleFree:
		return "free"
	case RoleObserved:
		return "observed"
	case RoleDeterministic:
		return "deterministic"
	case RolePotential:
		return "potential"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// MissingSuffix is appended to an observed variable's name to form the free
// variable that imputes its NaN entries.
const MissingSuffix = "_missing"

// Var is one declared variable.
type Var struct {
	Name   string
	Kind   dist.Kind // zero for deterministic and potential variables
	Params Params
	Shape  []int
	Role   Role

	// Observed holds the data of an observed variable. NaN entries are
	// filled from the Missing variable.
	Observed []float64

	// TestValue overrides the distribution default as the starting value.
	TestValue []float64

	// NoTransform keeps a bounded continuous variable in its natural space.
	NoTransform bool

	// Missing names the free variable imputing NaN observations, and
	// MissingIdx lists their positions.
	Missing    string
	MissingIdx []int

	// ImputedFor names the observed variable this free variable imputes.
	ImputedFor string

	deps []string
	fn   func(Point) []float64
}

// Size is the number of scalar elements.
func (v *Var) Size() int { return ShapeSize(v.Shape) }

// Deps lists the variables v reads, in parameter order without duplicates.
func (v *Var) Deps() []string { return v.deps }

// Discrete reports whether v has integer support.
func (v *Var) Discrete() bool { return v.Kind.Discrete() }

// Model is an explicit declaration context. Variables are evaluated in
// declaration order, so every reference must name an earlier variable.
// A Model is not safe for concurrent use.
type Model struct {
	name   string
	vars   []*Var
	byName map[string]*Var
}

// New returns an empty model.
func New(name string) *Model {
	return &Model{name: name, byName: make(map[string]*Var)}
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// Option configures Declare.
type Option func(*declareOptions)

type declareOptions struct {
	shape       []int
	shapeSet    bool
	observed    []float64
	observedSet bool
	testValue   []float64
	noTransform bool
}

// Shape sets the variable shape. Without it the shape is taken from the
// observed data, or is scalar.
func Shape(dims ...int) Option {
	return func(o *declareOptions) {
		o.shape = append([]int(nil), dims...)
		o.shapeSet = true
	}
}

// Observed fixes the variable to data. NaN entries are imputed.
func Observed(values []float64) Option {
	return func(o *declareOptions) {
		o.observed = append([]float64(nil), values...)
		o.observedSet = true
	}
}

// TestValue sets the starting value.
func TestValue(values ...float64) Option {
	return func(o *declareOptions) {
		o.testValue = append([]float64(nil), values...)
	}
}

// NoTransform disables the default transform of a bounded variable.
func NoTransform() Option {
	return func(o *declareOptions) { o.noTransform = true }
}

var errEmptyName = errors.New("variable name must not be empty")

// Declare registers a random variable of the given kind.
//
// Errors are returned immediately and leave the model unchanged:
// DuplicateNameError, ParamError, InvalidShapeError, ShapeMismatchError,
// IndexRangeError and UnresolvedParentError.
func (m *Model) Declare(name string, kind dist.Kind, params Params, opts ...Option) (*Var, error) {
	name = norm.NFC.String(name)
	if err := m.checkName(name); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("variable %q: invalid distribution kind %d", name, int(kind))
	}

	for pname := range params {
		if kind.ParamIndex(pname) < 0 {
			return nil, &ParamError{Name: name, Kind: kind, Param: pname, Reason: "unknown"}
		}
	}
	for _, pname := range kind.ParamNames() {
		if params[pname] == nil {
			return nil, &ParamError{Name: name, Kind: kind, Param: pname, Reason: "missing"}
		}
	}

	var o declareOptions
	for _, opt := range opts {
		opt(&o)
	}

	shape, err := resolveShape(name, o)
	if err != nil {
		return nil, err
	}
	v := &Var{
		Name:        name,
		Kind:        kind,
		Params:      make(Params, len(params)),
		Shape:       shape,
		Role:        RoleFree,
		NoTransform: o.noTransform,
	}
	for k, p := range params {
		v.Params[k] = p
	}

	if o.observedSet {
		if len(o.observed) == 0 || len(o.observed) != v.Size() {
			return nil, &ShapeMismatchError{Name: name, What: "observed", Shape: shape, Got: len(o.observed)}
		}
		v.Role = RoleObserved
		v.Observed = o.observed
	}
	if o.testValue != nil {
		tv, err := broadcast(name, "test value", o.testValue, shape)
		if err != nil {
			return nil, err
		}
		v.TestValue = tv
	}

	for _, pname := range kind.ParamNames() {
		deps, err := m.resolveParam(name, pname, params[pname], shape)
		if err != nil {
			return nil, err
		}
		v.deps = appendUnique(v.deps, deps...)
	}

	var missing *Var
	if v.Role == RoleObserved {
		for i, x := range v.Observed {
			if math.IsNaN(x) {
				v.MissingIdx = append(v.MissingIdx, i)
			}
		}
		if len(v.MissingIdx) > 0 {
			missing = &Var{
				Name:        name + MissingSuffix,
				Kind:        kind,
				Params:      v.Params,
				Shape:       []int{len(v.MissingIdx)},
				Role:        RoleFree,
				NoTransform: o.noTransform,
				ImputedFor:  name,
				deps:        v.deps,
			}
			if err := m.checkName(missing.Name); err != nil {
				return nil, err
			}
			v.Missing = missing.Name
			v.deps = appendUnique(v.deps, missing.Name)
		}
	}

	if missing != nil {
		m.add(missing)
	}
	m.add(v)
	return v, nil
}

// Deterministic registers a derived quantity computed from deps. It is
// recorded in traces but adds nothing to the log-probability. Pass Shape for
// non-scalar results.
func (m *Model) Deterministic(name string, deps []string, fn func(Point) []float64, opts ...Option) (*Var, error) {
	name = norm.NFC.String(name)
	if err := m.checkName(name); err != nil {
		return nil, err
	}
	var o declareOptions
	for _, opt := range opts {
		opt(&o)
	}
	shape, err := resolveShape(name, o)
	if err != nil {
		return nil, err
	}
	resolved, err := m.resolveDeps(name, "fn", deps)
	if err != nil {
		return nil, err
	}
	v := &Var{Name: name, Shape: shape, Role: RoleDeterministic, deps: resolved, fn: fn}
	m.add(v)
	return v, nil
}

// Potential registers an arbitrary log-probability term over deps.
func (m *Model) Potential(name string, deps []string, fn func(Point) float64) (*Var, error) {
	name = norm.NFC.String(name)
	if err := m.checkName(name); err != nil {
		return nil, err
	}
	resolved, err := m.resolveDeps(name, "fn", deps)
	if err != nil {
		return nil, err
	}
	v := &Var{
		Name: name,
		Role: RolePotential,
		deps: resolved,
		fn: func(p Point) []float64 {
			return []float64{fn(p)}
		},
	}
	m.add(v)
	return v, nil
}

// Var returns the named variable.
func (m *Model) Var(name string) (*Var, bool) {
	v, ok := m.byName[norm.NFC.String(name)]
	return v, ok
}

// Vars returns every variable in declaration order.
func (m *Model) Vars() []*Var {
	return append([]*Var(nil), m.vars...)
}

// FreeVars returns the free variables in declaration order.
func (m *Model) FreeVars() []*Var {
	return m.filter(RoleFree)
}

// ObservedVars returns the observed variables in declaration order.
func (m *Model) ObservedVars() []*Var {
	return m.filter(RoleObserved)
}

func (m *Model) filter(role Role) []*Var {
	var out []*Var
	for _, v := range m.vars {
		if v.Role == role {
			out = append(out, v)
		}
	}
	return out
}

func (m *Model) add(v *Var) {
	m.vars = append(m.vars, v)
	m.byName[v.Name] = v
}

func (m *Model) checkName(name string) error {
	if name == "" {
		return errEmptyName
	}
	if _, ok := m.byName[name]; ok {
		return &DuplicateNameError{Name: name}
	}
	return nil
}

func (m *Model) resolveDeps(name, param string, deps []string) ([]string, error) {
	var out []string
	for _, d := range deps {
		d = norm.NFC.String(d)
		parent, ok := m.byName[d]
		if !ok || parent.Role == RolePotential {
			return nil, &UnresolvedParentError{Name: name, Param: param, Parent: d}
		}
		out = appendUnique(out, d)
	}
	return out, nil
}

// resolveParam checks every reference of p and, where the length of p is
// known before evaluation, that it broadcasts over shape.
func (m *Model) resolveParam(name, pname string, p Param, shape []int) ([]string, error) {
	deps, err := m.resolveDeps(name, pname, p.Deps())
	if err != nil {
		return nil, err
	}
	size := ShapeSize(shape)
	n := -1
	switch q := p.(type) {
	case constParam:
		n = len(q.vals)
	case refParam:
		n = m.byName[deps[0]].Size()
	case powParam:
		n = m.byName[deps[0]].Size()
	case indexParam:
		n = len(q.idx)
		parent := m.byName[deps[0]].Size()
		for _, j := range q.idx {
			if j < 0 || j >= parent {
				return nil, &IndexRangeError{Name: name, Param: pname, Parent: deps[0], Index: j, Size: parent}
			}
		}
	}
	if n >= 0 && n != 1 && n != size {
		return nil, &ShapeMismatchError{Name: name, What: "param " + pname, Shape: shape, Got: n}
	}
	return deps, nil
}

func resolveShape(name string, o declareOptions) ([]int, error) {
	if o.shapeSet {
		for _, d := range o.shape {
			if d <= 0 {
				return nil, &InvalidShapeError{Name: name, Shape: o.shape}
			}
		}
		return o.shape, nil
	}
	if len(o.observed) > 1 {
		return []int{len(o.observed)}, nil
	}
	return []int{}, nil
}

func appendUnique(dst []string, names ...string) []string {
	for _, n := range names {
		found := false
		for _, d := range dst {
			if d == n {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, n)
		}
	}
	return dst
}

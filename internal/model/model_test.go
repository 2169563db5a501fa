package model

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bayesharness/internal/dist"
)

func TestDeclare_DuplicateName(t *testing.T) {
	m := New("dup")
	_, err := m.Declare("x", dist.Normal, Params{"mu": Const(0), "tau": Const(1)})
	require.NoError(t, err)

	_, err = m.Declare("x", dist.Normal, Params{"mu": Const(0), "tau": Const(1)})
	var dupErr *DuplicateNameError
	require.True(t, errors.As(err, &dupErr), "expected DuplicateNameError, got %v", err)
	assert.Equal(t, "x", dupErr.Name)
}

func TestDeclare_DuplicateNameAfterNormalization(t *testing.T) {
	m := New("nfc")
	// "é" precomposed vs. "e" + combining acute accent.
	_, err := m.Declare("café", dist.Normal, Params{"mu": Const(0), "tau": Const(1)})
	require.NoError(t, err)

	_, err = m.Declare("café", dist.Normal, Params{"mu": Const(0), "tau": Const(1)})
	var dupErr *DuplicateNameError
	assert.True(t, errors.As(err, &dupErr))
}

func TestDeclare_UnresolvedParent(t *testing.T) {
	m := New("unresolved")
	_, err := m.Declare("y", dist.Normal, Params{"mu": Ref("nope"), "tau": Const(1)})

	var refErr *UnresolvedParentError
	require.True(t, errors.As(err, &refErr), "expected UnresolvedParentError, got %v", err)
	assert.Equal(t, "y", refErr.Name)
	assert.Equal(t, "mu", refErr.Param)
	assert.Equal(t, "nope", refErr.Parent)
	assert.Empty(t, m.Vars(), "failed declaration must leave model unchanged")
}

func TestDeclare_ObservedShapeMismatch(t *testing.T) {
	tests := []struct {
		name  string
		shape []int
		data  []float64
	}{
		{"short", []int{4}, []float64{1, 2, 3}},
		{"long", []int{2}, []float64{1, 2, 3}},
		{"empty", []int{3}, []float64{}},
		{"nil", []int{3}, nil},
		{"empty scalar", nil, []float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New("shape")
			opts := []Option{Observed(tt.data)}
			if tt.shape != nil {
				opts = append(opts, Shape(tt.shape...))
			}
			_, err := m.Declare("y", dist.Poisson, Params{"mu": Const(3)}, opts...)

			var shapeErr *ShapeMismatchError
			require.True(t, errors.As(err, &shapeErr), "expected ShapeMismatchError, got %v", err)
			assert.Equal(t, "observed", shapeErr.What)
			assert.Equal(t, len(tt.data), shapeErr.Got)
			assert.Empty(t, m.Vars(), "failed declaration must leave model unchanged")
		})
	}
}

func TestDeclare_ParamShapeMismatch(t *testing.T) {
	m := New("shape")
	_, err := m.Declare("y", dist.Normal, Params{"mu": Const(1, 2), "tau": Const(1)}, Shape(3))

	var shapeErr *ShapeMismatchError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, "param mu", shapeErr.What)
}

func TestDeclare_IndexOutOfRange(t *testing.T) {
	m := New("index")
	_, err := m.Declare("means", dist.Normal, Params{"mu": Const(0), "tau": Const(1)}, Shape(3))
	require.NoError(t, err)

	for _, idx := range [][]int{{0, 3}, {-1, 0}} {
		_, err = m.Declare("y", dist.Normal, Params{"mu": Index("means", idx), "tau": Const(1)}, Shape(2))
		var rangeErr *IndexRangeError
		require.True(t, errors.As(err, &rangeErr), "expected IndexRangeError, got %v", err)
		assert.Equal(t, "means", rangeErr.Parent)
		assert.Equal(t, 3, rangeErr.Size)
	}
	assert.Len(t, m.Vars(), 1)

	_, err = m.Declare("y", dist.Normal, Params{"mu": Index("means", []int{2, 0}), "tau": Const(1)}, Shape(2))
	assert.NoError(t, err)
}

func TestDeclare_ParamErrors(t *testing.T) {
	m := New("params")

	_, err := m.Declare("a", dist.Normal, Params{"mu": Const(0)})
	var pErr *ParamError
	require.True(t, errors.As(err, &pErr))
	assert.Equal(t, "tau", pErr.Param)
	assert.Equal(t, "missing", pErr.Reason)

	_, err = m.Declare("b", dist.Exponential, Params{"lam": Const(1), "rate": Const(1)})
	require.True(t, errors.As(err, &pErr))
	assert.Equal(t, "rate", pErr.Param)
	assert.Equal(t, "unknown", pErr.Reason)
}

func TestDeclare_InvalidShape(t *testing.T) {
	m := New("shape")
	_, err := m.Declare("a", dist.Normal, Params{"mu": Const(0), "tau": Const(1)}, Shape(2, 0))

	var shapeErr *InvalidShapeError
	assert.True(t, errors.As(err, &shapeErr))
}

func TestDeclare_ShapeFromObserved(t *testing.T) {
	m := New("infer")
	v, err := m.Declare("y", dist.Poisson, Params{"mu": Const(2)}, Observed([]float64{1, 2, 3}))
	require.NoError(t, err)
	assert.Equal(t, []int{3}, v.Shape)
	assert.Equal(t, RoleObserved, v.Role)
}

func TestDeclare_ObservedNeverFree(t *testing.T) {
	m := New("roles")
	_, err := m.Declare("mu", dist.Exponential, Params{"lam": Const(1)})
	require.NoError(t, err)
	_, err = m.Declare("y", dist.Poisson, Params{"mu": Ref("mu")}, Observed([]float64{1, 2, 3}))
	require.NoError(t, err)

	for _, v := range m.FreeVars() {
		assert.NotEqual(t, "y", v.Name)
	}
	require.Len(t, m.ObservedVars(), 1)
	assert.Equal(t, "y", m.ObservedVars()[0].Name)
}

func TestDeclare_MissingObservations(t *testing.T) {
	m := New("missing")
	_, err := m.Declare("rate", dist.Exponential, Params{"lam": Const(1)})
	require.NoError(t, err)
	obs, err := m.Declare("y", dist.Poisson, Params{"mu": Ref("rate")},
		Observed([]float64{1, math.NaN(), 3, math.NaN()}))
	require.NoError(t, err)

	assert.Equal(t, "y_missing", obs.Missing)
	assert.Equal(t, []int{1, 3}, obs.MissingIdx)

	imputed, ok := m.Var("y_missing")
	require.True(t, ok)
	assert.Equal(t, RoleFree, imputed.Role)
	assert.Equal(t, []int{2}, imputed.Shape)
	assert.Equal(t, "y", imputed.ImputedFor)
}

func TestDeterministic_UnresolvedDep(t *testing.T) {
	m := New("det")
	_, err := m.Deterministic("d", []string{"ghost"}, func(p Point) []float64 { return nil })

	var refErr *UnresolvedParentError
	assert.True(t, errors.As(err, &refErr))
}

func TestPotential_CannotBeReferenced(t *testing.T) {
	m := New("pot")
	_, err := m.Declare("x", dist.Normal, Params{"mu": Const(0), "tau": Const(1)})
	require.NoError(t, err)
	_, err = m.Potential("pot", []string{"x"}, func(p Point) float64 { return 0 })
	require.NoError(t, err)

	_, err = m.Declare("y", dist.Normal, Params{"mu": Ref("pot"), "tau": Const(1)})
	var refErr *UnresolvedParentError
	assert.True(t, errors.As(err, &refErr))
}

func TestFormatShape(t *testing.T) {
	assert.Equal(t, "()", FormatShape(nil))
	assert.Equal(t, "(3)", FormatShape([]int{3}))
	assert.Equal(t, "(2, 5)", FormatShape([]int{2, 5}))
	assert.Equal(t, 1, ShapeSize(nil))
	assert.Equal(t, 10, ShapeSize([]int{2, 5}))
}

func TestParams_Eval(t *testing.T) {
	p := Point{"sd": {2, 4}, "means": {10, 20, 30}}

	assert.Equal(t, []float64{0.25, 0.0625}, Pow("sd", -2).Eval(p))
	assert.Equal(t, []float64{30, 10, 10, 20}, Index("means", []int{2, 0, 0, 1}).Eval(p))
	assert.True(t, math.IsNaN(Index("means", []int{7}).Eval(p)[0]))
	assert.Equal(t, "sd^-2", Pow("sd", -2).String())
	assert.Equal(t, "0.5", Const(0.5).String())
	assert.Equal(t, "f(a, b)", Func([]string{"a", "b"}, nil).String())
}

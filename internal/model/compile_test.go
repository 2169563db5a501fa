package model

import (
	"errors"
	"math"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bayesharness/internal/dist"
)

func normalLogPDF(x, mu, tau float64) float64 {
	return 0.5*math.Log(tau/(2*math.Pi)) - 0.5*tau*(x-mu)*(x-mu)
}

// buildNormalModel returns x ~ N(0, 1) with one observation y = 1 ~ N(x, 1).
func buildNormalModel(t *testing.T) *Compiled {
	t.Helper()
	m := New("normal")
	_, err := m.Declare("x", dist.Normal, Params{"mu": Const(0), "tau": Const(1)})
	require.NoError(t, err)
	_, err = m.Declare("y", dist.Normal, Params{"mu": Ref("x"), "tau": Const(1)}, Observed([]float64{1}))
	require.NoError(t, err)
	c, err := m.Compile()
	require.NoError(t, err)
	return c
}

func TestCompile_LogP(t *testing.T) {
	c := buildNormalModel(t)
	require.Equal(t, 1, c.Dim())

	want := normalLogPDF(0.5, 0, 1) + normalLogPDF(1, 0.5, 1)
	assert.InDelta(t, want, c.LogP([]float64{0.5}), 1e-12)
}

func TestCompile_GradAndHessian(t *testing.T) {
	c := buildNormalModel(t)
	x := []float64{0.2}

	// d/dx [-x²/2 - (1-x)²/2] = 1 - 2x
	grad := c.Grad(x, []int{0})
	require.Len(t, grad, 1)
	assert.InDelta(t, 0.6, grad[0], 1e-6)

	h := c.Hessian(x, []int{0})
	assert.InDelta(t, -2, h.At(0, 0), 1e-3)

	lp, g := c.LogPGrad(x, []int{0})
	assert.Equal(t, c.LogP(x), lp)
	assert.Equal(t, grad, g)
}

func TestCompile_TransformedLogP(t *testing.T) {
	m := New("exp")
	_, err := m.Declare("rate", dist.Exponential, Params{"lam": Const(1)})
	require.NoError(t, err)
	c, err := m.Compile()
	require.NoError(t, err)

	slot, ok := c.Ordering().Lookup("rate")
	require.True(t, ok)
	assert.Equal(t, "rate_log_", slot.TransformedName())

	// log p(e^y) + y with p = Exp(1)
	y := 0.3
	assert.InDelta(t, -math.Exp(y)+y, c.LogP([]float64{y}), 1e-12)
}

func TestCompile_NoTransform(t *testing.T) {
	m := New("raw")
	_, err := m.Declare("p", dist.Beta, Params{"alpha": Const(2), "beta": Const(2)}, NoTransform())
	require.NoError(t, err)
	c, err := m.Compile()
	require.NoError(t, err)

	slot, _ := c.Ordering().Lookup("p")
	assert.Equal(t, "", slot.Transform)
	assert.True(t, math.IsInf(c.LogP([]float64{1.5}), -1))
}

func TestCompile_MapUnmapRoundTrip(t *testing.T) {
	m := New("roundtrip")
	_, err := m.Declare("lo", dist.Uniform, Params{"lower": Const(-1), "upper": Const(3)}, Shape(2))
	require.NoError(t, err)
	_, err = m.Declare("p", dist.Beta, Params{"alpha": Const(1), "beta": Const(1)})
	require.NoError(t, err)
	_, err = m.Declare("k", dist.Poisson, Params{"mu": Const(4)})
	require.NoError(t, err)
	c, err := m.Compile()
	require.NoError(t, err)

	point := Point{"lo": {0.5, 2.25}, "p": {0.3}, "k": {7}}
	x, err := c.Map(point)
	require.NoError(t, err)
	require.Len(t, x, 4)
	assert.Equal(t, 7.0, x[3], "discrete values are stored untransformed")

	back, err := c.Unmap(x)
	require.NoError(t, err)
	for name, want := range point {
		assert.InDeltaSlice(t, want, back[name], 1e-12, name)
	}
}

func TestCompile_MapErrors(t *testing.T) {
	c := buildNormalModel(t)

	_, err := c.Map(Point{})
	assert.Error(t, err)

	_, err = c.Map(Point{"x": {1, 2}})
	var shapeErr *ShapeMismatchError
	assert.True(t, errors.As(err, &shapeErr))

	_, err = c.Map(Point{"x": {1}, "y": {1}})
	var unknown *UnknownVariableError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "y", unknown.Name)
}

func TestCompile_InitialPoint(t *testing.T) {
	m := New("init")
	_, err := m.Declare("a", dist.Normal, Params{"mu": Const(2), "tau": Const(1)})
	require.NoError(t, err)
	_, err = m.Declare("b", dist.Exponential, Params{"lam": Const(4)}, TestValue(0.5))
	require.NoError(t, err)
	_, err = m.Declare("c", dist.Normal, Params{"mu": Ref("a"), "tau": Const(1)}, Shape(3))
	require.NoError(t, err)
	c, err := m.Compile()
	require.NoError(t, err)

	p, err := c.InitialPoint(nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, p["a"])
	assert.Equal(t, []float64{0.5}, p["b"])
	assert.Equal(t, []float64{2, 2, 2}, p["c"])

	p, err = c.InitialPoint(Point{"a": {-1}})
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, -1, -1}, p["c"], "defaults follow overridden parents")

	_, err = c.InitialPoint(Point{"zzz": {1}})
	var unknown *UnknownVariableError
	assert.True(t, errors.As(err, &unknown))
}

func TestCompile_MissingObservationsAreImputed(t *testing.T) {
	m := New("missing")
	_, err := m.Declare("mu", dist.Exponential, Params{"lam": Const(1)}, TestValue(2))
	require.NoError(t, err)
	_, err = m.Declare("y", dist.Poisson, Params{"mu": Ref("mu")},
		Observed([]float64{1, math.NaN(), 3}))
	require.NoError(t, err)
	c, err := m.Compile()
	require.NoError(t, err)

	slot, ok := c.Ordering().Lookup("y_missing")
	require.True(t, ok)
	assert.Equal(t, 1, slot.Size)

	x, err := c.Map(Point{"mu": {2}, "y_missing": {5}})
	require.NoError(t, err)

	d := dist.MustNew(dist.Poisson, 2)
	want := -2 + math.Log(2) + // Exp(1) at 2 plus log-Jacobian
		d.LogProb(1) + d.LogProb(5) + d.LogProb(3)
	assert.InDelta(t, want, c.LogP(x), 1e-9)

	point, err := c.Unmap(x)
	require.NoError(t, err)
	assert.NotContains(t, point, "y", "observed variables are never recorded")
	assert.Equal(t, []float64{5}, point["y_missing"])
}

func TestCompile_DeterministicAndPotential(t *testing.T) {
	m := New("derived")
	_, err := m.Declare("a", dist.Normal, Params{"mu": Const(0), "tau": Const(1)})
	require.NoError(t, err)
	_, err = m.Deterministic("twice", []string{"a"}, func(p Point) []float64 {
		return []float64{2 * p.Scalar("a")}
	})
	require.NoError(t, err)
	_, err = m.Potential("penalty", []string{"twice"}, func(p Point) float64 {
		return -p.Scalar("twice")
	})
	require.NoError(t, err)
	c, err := m.Compile()
	require.NoError(t, err)

	recorded := c.Recorded()
	require.Len(t, recorded, 2)
	assert.Equal(t, "twice", recorded[1].Name)

	x := []float64{0.25}
	assert.InDelta(t, normalLogPDF(0.25, 0, 1)-0.5, c.LogP(x), 1e-12)

	point, err := c.Unmap(x)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5}, point["twice"])
	assert.NotContains(t, point, "penalty")
}

func TestCompile_FuncParamLengthChecked(t *testing.T) {
	m := New("badfunc")
	_, err := m.Declare("a", dist.Normal, Params{"mu": Const(0), "tau": Const(1)})
	require.NoError(t, err)
	_, err = m.Declare("b", dist.Normal, Params{
		"mu":  Func([]string{"a"}, func(p Point) []float64 { return []float64{1, 2} }),
		"tau": Const(1),
	}, Shape(3))
	require.NoError(t, err, "length of Func params is only known at compile time")

	_, err = m.Compile()
	var shapeErr *ShapeMismatchError
	require.True(t, errors.As(err, &shapeErr), "expected ShapeMismatchError, got %v", err)
	assert.Equal(t, "param mu", shapeErr.What)
}

func TestFindCycle(t *testing.T) {
	assert.Nil(t, findCycle(parentGraph{"a": {}, "b": {"a"}, "c": {"a", "b"}}))
	assert.Equal(t, []string{"a", "a"}, findCycle(parentGraph{"a": {"a"}}))

	path := findCycle(parentGraph{"a": {"c"}, "b": {"a"}, "c": {"b"}, "d": {}})
	require.Len(t, path, 4)
	assert.Equal(t, path[0], path[len(path)-1])

	err := &CycleError{Path: path}
	assert.Contains(t, err.Error(), "dependency cycle")
}

func TestTopoOrder_ParentsFirst(t *testing.T) {
	m := New("order")
	_, err := m.Declare("a", dist.Normal, Params{"mu": Const(0), "tau": Const(1)})
	require.NoError(t, err)
	_, err = m.Declare("y", dist.Poisson, Params{"mu": Func([]string{"a"}, func(p Point) []float64 {
		return []float64{math.Exp(p.Scalar("a"))}
	})}, Observed([]float64{1, math.NaN()}))
	require.NoError(t, err)

	pos := map[string]int{}
	for i, v := range m.topoOrder() {
		pos[v.Name] = i
	}
	assert.Less(t, pos["a"], pos["y_missing"])
	assert.Less(t, pos["y_missing"], pos["y"])
}

func TestDescribe_Golden(t *testing.T) {
	m := New("golden")
	_, err := m.Declare("switchpoint", dist.DiscreteUniform, Params{"lower": Const(0), "upper": Const(4)})
	require.NoError(t, err)
	_, err = m.Declare("early_mean", dist.Exponential, Params{"lam": Const(1)})
	require.NoError(t, err)
	_, err = m.Declare("late_mean", dist.Exponential, Params{"lam": Const(1)})
	require.NoError(t, err)
	deps := []string{"switchpoint", "early_mean", "late_mean"}
	_, err = m.Declare("disasters", dist.Poisson, Params{"mu": Func(deps, func(p Point) []float64 {
		out := make([]float64, 5)
		for i := range out {
			if float64(i) < p.Scalar("switchpoint") {
				out[i] = p.Scalar("early_mean")
			} else {
				out[i] = p.Scalar("late_mean")
			}
		}
		return out
	})}, Observed([]float64{4, 5, math.NaN(), 1, 0}))
	require.NoError(t, err)
	_, err = m.Deterministic("ratio", []string{"early_mean", "late_mean"}, func(p Point) []float64 {
		return []float64{p.Scalar("early_mean") / p.Scalar("late_mean")}
	})
	require.NoError(t, err)
	_, err = m.Declare("p", dist.Beta, Params{"alpha": Const(1), "beta": Const(1)}, Shape(2, 3))
	require.NoError(t, err)

	c, err := m.Compile()
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "describe_disaster", []byte(c.Describe()))
}

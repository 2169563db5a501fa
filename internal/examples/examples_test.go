package examples

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/roach88/bayesharness/internal/model"
)

func TestCatalog_EveryExampleCompilesWithFiniteStart(t *testing.T) {
	for _, ex := range All() {
		t.Run(ex.Name, func(t *testing.T) {
			m, plan, err := ex.Build(rand.NewSource(1))
			require.NoError(t, err)
			assert.Equal(t, ex.Name, m.Name())

			c, err := m.Compile()
			require.NoError(t, err)

			start, err := c.InitialPoint(plan.Start)
			require.NoError(t, err)
			x, err := c.Map(start)
			require.NoError(t, err)
			lp := c.LogP(x)
			assert.False(t, math.IsInf(lp, 0) || math.IsNaN(lp), "start log-probability %v", lp)

			assert.Positive(t, plan.Draws)
			assert.LessOrEqual(t, plan.Tune, plan.Draws)
			for _, step := range plan.Steps {
				for _, v := range step.Vars {
					_, ok := c.Ordering().Lookup(v)
					assert.True(t, ok, "step variable %q is free", v)
				}
			}
			if plan.MAP != nil {
				for _, v := range plan.MAP.Vars {
					_, ok := c.Ordering().Lookup(v)
					assert.True(t, ok, "MAP variable %q is free", v)
				}
			}
		})
	}
}

func TestCatalog_Lookup(t *testing.T) {
	names := Names()
	assert.True(t, sort.StringsAreSorted(names))
	assert.Len(t, names, 10)

	ex, err := Lookup("disaster")
	require.NoError(t, err)
	assert.Empty(t, ex.Disabled)

	ex, err = Lookup("arm12_6")
	require.NoError(t, err)
	assert.Empty(t, ex.Disabled)

	ex, err = Lookup("two_gaussians")
	require.NoError(t, err)
	assert.NotEmpty(t, ex.Disabled)

	_, err = Lookup("nope")
	assert.Error(t, err)
}

func TestPlan_Length(t *testing.T) {
	ptr := func(n int) *int { return &n }
	plan := Plan{Draws: 500, Tune: 50}

	tests := []struct {
		name        string
		draws, tune *int
		wantDraws   int
		wantTune    int
	}{
		{"plan values", nil, nil, 500, 50},
		{"draws caps tune", ptr(20), nil, 20, 20},
		{"draws above tune", ptr(100), nil, 100, 50},
		{"explicit zero tune", nil, ptr(0), 500, 0},
		{"both set", ptr(30), ptr(5), 30, 5},
		{"zero tune with draws", ptr(30), ptr(0), 30, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, tune := plan.Length(tt.draws, tt.tune)
			assert.Equal(t, tt.wantDraws, d)
			assert.Equal(t, tt.wantTune, tune)
		})
	}
}

func TestDisaster_MissingYearsAreImputed(t *testing.T) {
	require.Len(t, disasterCounts, 111)

	m, _, err := buildDisaster("disaster_missing", true)
	require.NoError(t, err)
	obs, ok := m.Var("disasters")
	require.True(t, ok)
	assert.Equal(t, model.RoleObserved, obs.Role)
	assert.Equal(t, disasterMissing, obs.MissingIdx)
	assert.Equal(t, "disasters_missing", obs.Missing)

	v, ok := m.Var("disasters_missing")
	require.True(t, ok)
	assert.Equal(t, model.RoleFree, v.Role)
	assert.Equal(t, "disasters", v.ImputedFor)
	assert.Equal(t, 2, v.Size())

	m, _, err = buildDisaster("disaster", false)
	require.NoError(t, err)
	_, ok = m.Var("disasters_missing")
	assert.False(t, ok)
}

func TestSimulation_SameSeedSameData(t *testing.T) {
	a := simulateOccupancy(rand.NewSource(42))
	b := simulateOccupancy(rand.NewSource(42))
	assert.Equal(t, a, b)
	assert.Len(t, a, occupancySites)
	for _, y := range a {
		assert.GreaterOrEqual(t, y, 0.0)
		assert.Equal(t, math.Round(y), y)
	}

	h1 := simulateHierarchical(rand.NewSource(7))
	h2 := simulateHierarchical(rand.NewSource(7))
	assert.Equal(t, h1.y, h2.y)
	assert.Len(t, h1.y, hierGroups*hierPerGroup)
}

func TestLoadWells(t *testing.T) {
	w, err := loadWells()
	require.NoError(t, err)
	assert.Len(t, w.switched, 200)
	assert.Equal(t, 5, w.columns)
	require.Len(t, w.predictors, 200*5)

	// Predictors are centered and the last column is the intercept.
	for k := 0; k < 4; k++ {
		sum := 0.0
		for i := 0; i < 200; i++ {
			sum += w.predictors[i*5+k]
		}
		assert.InDelta(t, 0, sum, 1e-9)
	}
	assert.Equal(t, 1.0, w.predictors[4])
}

func TestLoadRadon(t *testing.T) {
	r, err := loadRadon()
	require.NoError(t, err)

	assert.Len(t, r.logRadon, 48, "only Minnesota homes")
	assert.Len(t, r.groupMeans, 8)
	assert.Len(t, r.floor, len(r.logRadon))
	assert.Len(t, r.uranium, len(r.logRadon))
	for i, g := range r.group {
		assert.Less(t, g, len(r.groupMeans), "home %d", i)
	}
	// Zero activity is recorded as 0.1 before taking logs.
	assert.Contains(t, r.logRadon, math.Log(0.1))
}

func TestTwoGaussiansLogLike(t *testing.T) {
	at := func(v float64) float64 {
		return twoGaussiansLogLike([]float64{v, v, v, v})
	}
	assert.Greater(t, at(-0.5), at(0.5), "the heavier mode is at -0.5")
	assert.Greater(t, at(0.5), at(0))
	assert.False(t, math.IsInf(at(2), 0), "log-sum-exp stays finite far from both modes")
}

package examples

import (
	"golang.org/x/exp/rand"

	"github.com/roach88/bayesharness/internal/dist"
	"github.com/roach88/bayesharness/internal/infer"
	"github.com/roach88/bayesharness/internal/model"
)

const (
	hierGroups          = 5
	hierPerGroup        = 10
	hierGroupPredictors = 1
	hierPredictors      = 3
)

// hierData is a simulated grouped regression. Matrices are row-major.
type hierData struct {
	group           []int
	groupPredictors []float64 // groups x groupPredictors
	predictors      []float64 // observations x predictors
	y               []float64
}

func simulateHierarchical(src rand.Source) hierData {
	std := dist.MustNew(dist.Normal, 0, 1)
	normals := func(n int) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = std.Rand(src)
		}
		return out
	}

	n := hierGroups * hierPerGroup
	d := hierData{group: make([]int, n)}
	for i := range d.group {
		d.group[i] = i / hierPerGroup
	}
	d.groupPredictors = normals(hierGroups * hierGroupPredictors)
	d.predictors = normals(n * hierPredictors)

	groupEffects := normals(hierGroupPredictors * hierPredictors)
	effects := normals(hierGroups * hierPredictors)
	for g := 0; g < hierGroups; g++ {
		for k := 0; k < hierPredictors; k++ {
			for j := 0; j < hierGroupPredictors; j++ {
				effects[g*hierPredictors+k] += d.groupPredictors[g*hierGroupPredictors+j] * groupEffects[j*hierPredictors+k]
			}
		}
	}

	d.y = normals(n)
	for i := range d.y {
		g := d.group[i]
		for k := 0; k < hierPredictors; k++ {
			d.y[i] += effects[g*hierPredictors+k] * d.predictors[i*hierPredictors+k]
		}
	}
	return d
}

// buildHierarchical regresses y on per-group effects whose means depend on
// group-level predictors. Each group has its own noise scale.
func buildHierarchical(src rand.Source) (*model.Model, Plan, error) {
	d := simulateHierarchical(src)

	m := model.New("hierarchical")
	if _, err := m.Declare("group_effects", dist.Normal, model.Params{
		"mu":  model.Const(0),
		"tau": model.Const(0.1),
	}, model.Shape(hierGroupPredictors, hierPredictors)); err != nil {
		return nil, Plan{}, err
	}
	if _, err := m.Declare("sg", dist.Uniform, model.Params{
		"lower": model.Const(0.05),
		"upper": model.Const(10),
	}, model.TestValue(2)); err != nil {
		return nil, Plan{}, err
	}
	effectMeans := model.Func([]string{"group_effects"}, func(p model.Point) []float64 {
		ge := p["group_effects"]
		out := make([]float64, hierGroups*hierPredictors)
		for g := 0; g < hierGroups; g++ {
			for k := 0; k < hierPredictors; k++ {
				for j := 0; j < hierGroupPredictors; j++ {
					out[g*hierPredictors+k] += d.groupPredictors[g*hierGroupPredictors+j] * ge[j*hierPredictors+k]
				}
			}
		}
		return out
	})
	if _, err := m.Declare("effects", dist.Normal, model.Params{
		"mu":  effectMeans,
		"tau": model.Pow("sg", -2),
	}, model.Shape(hierGroups, hierPredictors)); err != nil {
		return nil, Plan{}, err
	}
	if _, err := m.Declare("s", dist.Uniform, model.Params{
		"lower": model.Const(0.01),
		"upper": model.Const(10),
	}, model.Shape(hierGroups)); err != nil {
		return nil, Plan{}, err
	}

	mu := model.Func([]string{"effects"}, func(p model.Point) []float64 {
		eff := p["effects"]
		out := make([]float64, len(d.y))
		for i := range out {
			g := d.group[i]
			for k := 0; k < hierPredictors; k++ {
				out[i] += eff[g*hierPredictors+k] * d.predictors[i*hierPredictors+k]
			}
		}
		return out
	})
	tau := model.Func([]string{"s"}, func(p model.Point) []float64 {
		s := p["s"]
		out := make([]float64, len(d.y))
		for i := range out {
			sd := s[d.group[i]]
			out[i] = 1 / (sd * sd)
		}
		return out
	})
	if _, err := m.Declare("y", dist.Normal, model.Params{"mu": mu, "tau": tau}, model.Observed(d.y)); err != nil {
		return nil, Plan{}, err
	}

	return m, Plan{
		Draws: 50,
		MAP:   &infer.MAPConfig{Vars: []string{"group_effects", "effects"}},
		Steps: []infer.StepSpec{{Method: infer.MethodNUTS, ScalingHessian: true, MaxTreeDepth: 6}},
	}, nil
}

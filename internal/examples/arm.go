package examples

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/roach88/bayesharness/internal/dist"
	"github.com/roach88/bayesharness/internal/infer"
	"github.com/roach88/bayesharness/internal/model"
)

// buildARM54 is a logistic regression of whether a household switched
// wells on arsenic level, distance, community association and education.
func buildARM54() (*model.Model, Plan, error) {
	w, err := loadWells()
	if err != nil {
		return nil, Plan{}, err
	}

	m := model.New("arm5_4")
	if _, err := m.Declare("effects", dist.Normal, model.Params{
		"mu":  model.Const(0),
		"tau": model.Const(math.Pow(100, -2)),
	}, model.Shape(w.columns)); err != nil {
		return nil, Plan{}, err
	}
	p := model.Func([]string{"effects"}, func(pt model.Point) []float64 {
		beta := pt["effects"]
		out := make([]float64, len(w.switched))
		for i := range out {
			eta := 0.0
			for k, b := range beta {
				eta += w.predictors[i*w.columns+k] * b
			}
			out[i] = 1 / (1 + math.Exp(-eta))
		}
		return out
	})
	if _, err := m.Declare("s", dist.Bernoulli, model.Params{"p": p}, model.Observed(w.switched)); err != nil {
		return nil, Plan{}, err
	}

	return m, Plan{
		Draws: 50,
		MAP:   &infer.MAPConfig{},
		Steps: []infer.StepSpec{{Method: infer.MethodHMC, ScalingHessian: true}},
	}, nil
}

// buildARM126 is a varying-intercept model of log radon by county with a
// basement indicator and, with uranium set, the county uranium level.
func buildARM126(name string, uranium bool) (*model.Model, Plan, error) {
	r, err := loadRadon()
	if err != nil {
		return nil, Plan{}, err
	}

	m := model.New(name)
	normal := func(v string, tau float64, opts ...model.Option) error {
		_, err := m.Declare(v, dist.Normal, model.Params{"mu": model.Const(0), "tau": model.Const(tau)}, opts...)
		return err
	}
	scale := func(v string) error {
		_, err := m.Declare(v, dist.Uniform, model.Params{"lower": model.Const(0), "upper": model.Const(10)})
		return err
	}
	if err := normal("groupmean", math.Pow(10, -2)); err != nil {
		return nil, Plan{}, err
	}
	if err := scale("groupsd"); err != nil {
		return nil, Plan{}, err
	}
	if err := scale("sd"); err != nil {
		return nil, Plan{}, err
	}
	if err := normal("floor_m", math.Pow(5, -2)); err != nil {
		return nil, Plan{}, err
	}
	deps := []string{"floor_m", "means"}
	if uranium {
		if err := normal("u_m", math.Pow(5, -2)); err != nil {
			return nil, Plan{}, err
		}
		deps = append(deps, "u_m")
	}
	if _, err := m.Declare("means", dist.Normal, model.Params{
		"mu":  model.Ref("groupmean"),
		"tau": model.Pow("groupsd", -2),
	}, model.Shape(len(r.groupMeans))); err != nil {
		return nil, Plan{}, err
	}

	mu := model.Func(deps, func(p model.Point) []float64 {
		floorM, means, uM := p.Scalar("floor_m"), p["means"], p.Scalar("u_m")
		out := make([]float64, len(r.logRadon))
		for i := range out {
			out[i] = r.floor[i]*floorM + means[r.group[i]] + r.uranium[i]*uM
		}
		return out
	})
	if _, err := m.Declare("lr", dist.Normal, model.Params{
		"mu":  mu,
		"tau": model.Pow("sd", -2),
	}, model.Observed(r.logRadon)); err != nil {
		return nil, Plan{}, err
	}

	start := model.Point{
		"groupmean": {stat.Mean(r.groupMeans, nil)},
		"groupsd":   {5},
		"sd":        {5},
		"means":     append([]float64(nil), r.groupMeans...),
		"floor_m":   {0},
	}
	plan := Plan{Draws: 50, Start: start}
	if uranium {
		start["u_m"] = []float64{0.72}
		plan.MAP = &infer.MAPConfig{Vars: []string{"groupmean", "groupsd", "sd", "floor_m", "u_m"}}
		plan.Steps = []infer.StepSpec{{Method: infer.MethodHMC, ScalingHessian: true}}
	} else {
		plan.MAP = &infer.MAPConfig{Vars: []string{"groupmean", "sd", "floor_m"}}
		plan.Steps = []infer.StepSpec{{Method: infer.MethodNUTS, ScalingHessian: true, MaxTreeDepth: 6}}
	}
	return m, plan, nil
}

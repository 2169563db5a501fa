package examples

import (
	"github.com/roach88/bayesharness/internal/dist"
	"github.com/roach88/bayesharness/internal/infer"
	"github.com/roach88/bayesharness/internal/model"
)

// RSV admissions at one hospital over three years, with the national count
// of one-year-olds and the share of them living in the city it serves.
var (
	rsvKids      = []float64{180489, 191817, 190830}
	rsvCityShare = 0.35
	rsvCases     = []float64{40, 59, 65}
)

// buildRSV estimates yearly RSV prevalence among one-year-olds. The
// hospital market share is only known as an expert range.
func buildRSV() (*model.Model, Plan, error) {
	years := len(rsvCases)
	m := model.New("rsv")
	if _, err := m.Declare("market_share", dist.Uniform, model.Params{
		"lower": model.Const(0.5),
		"upper": model.Const(0.6),
	}); err != nil {
		return nil, Plan{}, err
	}
	if _, err := m.Declare("n_city", dist.Binomial, model.Params{
		"n": model.Const(rsvKids...),
		"p": model.Const(rsvCityShare),
	}, model.Shape(years)); err != nil {
		return nil, Plan{}, err
	}
	if _, err := m.Declare("prev_rsv", dist.Beta, model.Params{
		"alpha": model.Const(1),
		"beta":  model.Const(5),
	}, model.Shape(years)); err != nil {
		return nil, Plan{}, err
	}
	if _, err := m.Declare("y_city", dist.Binomial, model.Params{
		"n": model.Ref("n_city"),
		"p": model.Ref("prev_rsv"),
	}, model.Shape(years), model.TestValue(100)); err != nil {
		return nil, Plan{}, err
	}
	if _, err := m.Declare("y_hosp", dist.Binomial, model.Params{
		"n": model.Ref("y_city"),
		"p": model.Ref("market_share"),
	}, model.Observed(rsvCases)); err != nil {
		return nil, Plan{}, err
	}

	return m, Plan{
		Draws: 50,
		Steps: []infer.StepSpec{
			{Method: infer.MethodNUTS, MaxTreeDepth: 6},
			{Method: infer.MethodMetropolis},
		},
	}, nil
}

package trace

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// summaryBatches is the number of batches used for the Monte Carlo error.
const summaryBatches = 5

// Stat summarizes one element of one variable.
type Stat struct {
	Var     string  `json:"var"`
	Index   int     `json:"index"`
	Mean    float64 `json:"mean"`
	SD      float64 `json:"sd"`
	MCError float64 `json:"mc_error"`
	Q025    float64 `json:"q2_5"`
	Median  float64 `json:"median"`
	Q975    float64 `json:"q97_5"`
}

// Label is "name" for scalars and "name[i]" otherwise.
func (s Stat) Label(size int) string {
	if size == 1 {
		return s.Var
	}
	return fmt.Sprintf("%s[%d]", s.Var, s.Index)
}

// Summary computes posterior statistics for every element of every
// variable, skipping the first burn draws.
func Summary(t *Trace, burn int) ([]Stat, error) {
	if burn < 0 || burn >= t.Len() {
		return nil, fmt.Errorf("summary: burn %d leaves no draws out of %d", burn, t.Len())
	}
	var out []Stat
	for _, v := range t.Vars {
		for i := 0; i < v.Size(); i++ {
			xs, err := t.Series(v.Name, i, burn)
			if err != nil {
				return nil, fmt.Errorf("summary: %w", err)
			}
			mean, sd := stat.MeanStdDev(xs, nil)
			if len(xs) < 2 {
				sd = 0
			}
			sorted := append([]float64(nil), xs...)
			sort.Float64s(sorted)
			out = append(out, Stat{
				Var:     v.Name,
				Index:   i,
				Mean:    mean,
				SD:      sd,
				MCError: batchMeansError(xs, summaryBatches),
				Q025:    stat.Quantile(0.025, stat.Empirical, sorted, nil),
				Median:  stat.Quantile(0.5, stat.Empirical, sorted, nil),
				Q975:    stat.Quantile(0.975, stat.Empirical, sorted, nil),
			})
		}
	}
	return out, nil
}

// batchMeansError estimates the Monte Carlo standard error as the standard
// deviation of batch means over the square root of the batch count.
func batchMeansError(xs []float64, batches int) float64 {
	size := len(xs) / batches
	if size == 0 {
		return math.NaN()
	}
	means := make([]float64, batches)
	for b := range means {
		means[b] = stat.Mean(xs[b*size:(b+1)*size], nil)
	}
	return stat.StdDev(means, nil) / math.Sqrt(float64(batches))
}

package examples

import (
	"embed"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/roach88/bayesharness/internal/dataset"
)

//go:embed data/*.dat
var dataFS embed.FS

func readTable(name string, sep byte) (*dataset.Table, error) {
	f, err := dataFS.Open("data/" + name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := dataset.Read(f, sep)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return t, nil
}

func floats(t *dataset.Table, names ...string) ([][]float64, error) {
	out := make([][]float64, len(names))
	for i, name := range names {
		col, err := t.Float(name)
		if err != nil {
			return nil, err
		}
		out[i] = col
	}
	return out, nil
}

// wells holds the well-switching survey with distance in hundreds of
// meters and education in units of four years.
type wells struct {
	switched []float64
	// predictors is row-major: arsenic, dist, assoc, educ centered on their
	// means, then a constant 1.
	predictors []float64
	columns    int
}

func loadWells() (wells, error) {
	t, err := readTable("wells.dat", ' ')
	if err != nil {
		return wells{}, err
	}
	cols, err := floats(t, "switch", "arsenic", "dist", "assoc", "educ")
	if err != nil {
		return wells{}, err
	}
	for i := range cols[2] {
		cols[2][i] /= 100
		cols[4][i] /= 4
	}
	preds := cols[1:]
	for _, c := range preds {
		mean := stat.Mean(c, nil)
		for i := range c {
			c[i] -= mean
		}
	}

	w := wells{switched: cols[0], columns: len(preds) + 1}
	w.predictors = make([]float64, 0, t.Len()*w.columns)
	for i := 0; i < t.Len(); i++ {
		for _, c := range preds {
			w.predictors = append(w.predictors, c[i])
		}
		w.predictors = append(w.predictors, 1)
	}
	return w, nil
}

// radon holds Minnesota home radon measurements joined with county uranium
// levels. Counties are numbered in order of first appearance.
type radon struct {
	logRadon []float64
	floor    []float64
	uranium  []float64
	group    []int
	// groupMeans is the mean log radon of each county.
	groupMeans []float64
}

func loadRadon() (radon, error) {
	homes, err := readTable("srrs2.dat", ',')
	if err != nil {
		return radon{}, err
	}
	counties, err := readTable("cty.dat", ',')
	if err != nil {
		return radon{}, err
	}
	homes = homes.Filter(dataset.Equals("state", "MN"))

	hc, err := floats(homes, "stfips", "cntyfips", "floor", "activity")
	if err != nil {
		return radon{}, err
	}
	cc, err := floats(counties, "stfips", "ctfips", "Uppm")
	if err != nil {
		return radon{}, err
	}
	uppm := make(map[int]float64, counties.Len())
	for i := range cc[0] {
		uppm[int(cc[0][i])*1000+int(cc[1][i])] = cc[2][i]
	}

	var r radon
	groups := make(map[int]int)
	var sums []float64
	var counts []int
	for i := range hc[0] {
		fips := int(hc[0][i])*1000 + int(hc[1][i])
		u, ok := uppm[fips]
		if !ok {
			continue
		}
		g, seen := groups[fips]
		if !seen {
			g = len(groups)
			groups[fips] = g
			sums = append(sums, 0)
			counts = append(counts, 0)
		}
		activity := hc[3][i]
		if activity == 0 {
			activity = 0.1
		}
		lr := math.Log(activity)

		r.logRadon = append(r.logRadon, lr)
		r.floor = append(r.floor, hc[2][i])
		r.uranium = append(r.uranium, u)
		r.group = append(r.group, g)
		sums[g] += lr
		counts[g]++
	}
	if len(r.logRadon) == 0 {
		return radon{}, fmt.Errorf("radon: no Minnesota homes with county data")
	}
	r.groupMeans = make([]float64, len(sums))
	for g := range sums {
		r.groupMeans[g] = sums[g] / float64(counts[g])
	}
	return r, nil
}

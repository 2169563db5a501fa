package dist

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"pgregory.net/rapid"
)

func TestNew_ParamCount(t *testing.T) {
	_, err := New(Normal, 0)
	require.Error(t, err)

	var pce *ParamCountError
	require.ErrorAs(t, err, &pce)
	assert.Equal(t, Normal, pce.Kind)
	assert.Equal(t, 1, pce.Got)
	assert.Contains(t, err.Error(), "Normal takes 2 parameters")
}

func TestNew_InvalidKind(t *testing.T) {
	_, err := New(Kind(99))
	assert.Error(t, err)
}

func TestLogProb_KnownValues(t *testing.T) {
	tests := []struct {
		name string
		d    Dist
		x    float64
		want float64
	}{
		{"standard normal at 0", MustNew(Normal, 0, 1), 0, -0.5 * math.Log(2*math.Pi)},
		{"normal precision 4", MustNew(Normal, 1, 4), 1, -0.5*math.Log(2*math.Pi) + 0.5*math.Log(4)},
		{"uniform inside", MustNew(Uniform, 0, 10), 3, -math.Log(10)},
		{"bernoulli one", MustNew(Bernoulli, 0.25), 1, math.Log(0.25)},
		{"bernoulli zero", MustNew(Bernoulli, 0.25), 0, math.Log(0.75)},
		{"poisson", MustNew(Poisson, 2), 3, 3*math.Log(2) - 2 - math.Log(6)},
		{"poisson zero rate", MustNew(Poisson, 0), 0, 0},
		{"binomial", MustNew(Binomial, 4, 0.5), 2, math.Log(6.0 / 16.0)},
		{"binomial p=1", MustNew(Binomial, 3, 1), 3, 0},
		{"beta uniform", MustNew(Beta, 1, 1), 0.3, 0},
		{"exponential", MustNew(Exponential, 1), 1, -1},
		{"discrete uniform", MustNew(DiscreteUniform, 0, 111), 40, -math.Log(112)},
		{"zip at zero", MustNew(ZeroInflatedPoisson, 2, 0.4), 0, math.Log(0.6 + 0.4*math.Exp(-2))},
		{"zip positive", MustNew(ZeroInflatedPoisson, 2, 0.4), 1, math.Log(0.4) + math.Log(2) - 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.d.LogProb(tt.x), 1e-10)
		})
	}
}

func TestLogProb_OutsideSupport(t *testing.T) {
	tests := []struct {
		name string
		d    Dist
		x    float64
	}{
		{"uniform below", MustNew(Uniform, 0, 1), -0.1},
		{"bernoulli two", MustNew(Bernoulli, 0.5), 2},
		{"poisson negative", MustNew(Poisson, 1), -1},
		{"poisson fractional", MustNew(Poisson, 1), 1.5},
		{"binomial above n", MustNew(Binomial, 3, 0.5), 4},
		{"beta at edge", MustNew(Beta, 2, 2), 1},
		{"exponential negative", MustNew(Exponential, 1), -0.5},
		{"discrete uniform above", MustNew(DiscreteUniform, 0, 5), 6},
		{"zip negative", MustNew(ZeroInflatedPoisson, 1, 0.5), -1},
		{"nan value", MustNew(Normal, 0, 1), math.NaN()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, math.IsInf(tt.d.LogProb(tt.x), -1))
		})
	}
}

func TestLogProb_InvalidParamsNeverPanic(t *testing.T) {
	tests := []Dist{
		MustNew(Normal, 0, -1),
		MustNew(Uniform, 1, 0),
		MustNew(Bernoulli, 1.5),
		MustNew(Poisson, -2),
		MustNew(Binomial, 2.5, 0.5),
		MustNew(Beta, 0, 1),
		MustNew(Exponential, 0),
		MustNew(ZeroInflatedPoisson, 1, 2),
	}
	for _, d := range tests {
		t.Run(d.Kind().String(), func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.True(t, math.IsInf(d.LogProb(0.5), -1))
			})
		})
	}
}

func TestDefault_InsideSupport(t *testing.T) {
	tests := []Dist{
		MustNew(Normal, 3, 1),
		MustNew(Uniform, 0, 10),
		MustNew(Bernoulli, 0.7),
		MustNew(Poisson, 2.5),
		MustNew(Binomial, 10, 0.35),
		MustNew(Beta, 1, 5),
		MustNew(Exponential, 1),
		MustNew(DiscreteUniform, 0, 111),
		MustNew(ZeroInflatedPoisson, 5, 0.5),
	}
	for _, d := range tests {
		t.Run(d.Kind().String(), func(t *testing.T) {
			lp := d.LogProb(d.Default())
			assert.False(t, math.IsInf(lp, 0), "default %v has logp %v", d.Default(), lp)
		})
	}
}

func TestRand_Deterministic(t *testing.T) {
	for _, k := range Kinds() {
		t.Run(k.String(), func(t *testing.T) {
			d := MustNew(k, defaultTheta(k)...)
			a := rand.NewSource(7)
			b := rand.NewSource(7)
			for i := 0; i < 20; i++ {
				assert.Equal(t, d.Rand(a), d.Rand(b))
			}
		})
	}
}

func TestRand_InSupport(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		k := rapid.SampledFrom(Kinds()).Draw(rt, "kind")
		seed := rapid.Uint64().Draw(rt, "seed")
		d := MustNew(k, defaultTheta(k)...)
		x := d.Rand(rand.NewSource(seed))
		lp := d.LogProb(x)
		if math.IsInf(lp, -1) || math.IsNaN(lp) {
			rt.Fatalf("%s drew %v with logp %v", k, x, lp)
		}
	})
}

func TestRand_ZeroInflation(t *testing.T) {
	// theta is large enough that the Poisson part almost never yields 0,
	// so the zero fraction is close to 1-psi.
	d := MustNew(ZeroInflatedPoisson, 20, 0.3)
	src := rand.NewSource(11)
	const n = 4000
	zeros := 0
	for i := 0; i < n; i++ {
		x := d.Rand(src)
		require.GreaterOrEqual(t, x, 0.0)
		if x == 0 {
			zeros++
		}
	}
	assert.InDelta(t, 0.7, float64(zeros)/n, 0.05)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("zeroinflatedpoisson")
	require.NoError(t, err)
	assert.Equal(t, ZeroInflatedPoisson, k)

	_, err = ParseKind("Cauchy")
	assert.Error(t, err)
}

func TestKind_TextRoundTrip(t *testing.T) {
	for _, k := range Kinds() {
		text, err := k.MarshalText()
		require.NoError(t, err)
		var got Kind
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, k, got)
	}
}

func TestKind_Discrete(t *testing.T) {
	assert.True(t, Bernoulli.Discrete())
	assert.True(t, DiscreteUniform.Discrete())
	assert.False(t, Normal.Discrete())
	assert.False(t, Beta.Discrete())
	assert.True(t, Bernoulli.Binary())
	assert.False(t, Poisson.Binary())
}

func TestKind_ParamIndex(t *testing.T) {
	assert.Equal(t, 1, Normal.ParamIndex("tau"))
	assert.Equal(t, -1, Normal.ParamIndex("sd"))
}

// defaultTheta returns valid parameters for each kind.
func defaultTheta(k Kind) []float64 {
	switch k {
	case Normal:
		return []float64{0, 1}
	case Uniform:
		return []float64{-2, 2}
	case Bernoulli:
		return []float64{0.4}
	case Poisson:
		return []float64{2.1}
	case Binomial:
		return []float64{20, 0.35}
	case Beta:
		return []float64{2, 5}
	case Exponential:
		return []float64{1.5}
	case DiscreteUniform:
		return []float64{0, 111}
	case ZeroInflatedPoisson:
		return []float64{2.1, 0.4}
	}
	return nil
}

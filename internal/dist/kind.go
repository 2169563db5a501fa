package dist

import (
	"fmt"
	"strings"
)

// Kind identifies a distribution family.
type Kind int

const (
	Normal Kind = iota + 1
	Uniform
	Bernoulli
	Poisson
	Binomial
	Beta
	Exponential
	DiscreteUniform
	ZeroInflatedPoisson
)

var kindNames = map[Kind]string{
	Normal:              "Normal",
	Uniform:             "Uniform",
	Bernoulli:           "Bernoulli",
	Poisson:             "Poisson",
	Binomial:            "Binomial",
	Beta:                "Beta",
	Exponential:         "Exponential",
	DiscreteUniform:     "DiscreteUniform",
	ZeroInflatedPoisson: "ZeroInflatedPoisson",
}

var kindParams = map[Kind][]string{
	Normal:              {"mu", "tau"},
	Uniform:             {"lower", "upper"},
	Bernoulli:           {"p"},
	Poisson:             {"mu"},
	Binomial:            {"n", "p"},
	Beta:                {"alpha", "beta"},
	Exponential:         {"lam"},
	DiscreteUniform:     {"lower", "upper"},
	ZeroInflatedPoisson: {"theta", "psi"},
}

// Kinds lists every supported kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		Normal, Uniform, Bernoulli, Poisson, Binomial,
		Beta, Exponential, DiscreteUniform, ZeroInflatedPoisson,
	}
}

// String returns the distribution name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParamNames returns the parameter names in positional order.
// The returned slice must not be modified.
func (k Kind) ParamNames() []string {
	return kindParams[k]
}

// ParamIndex returns the position of the named parameter, or -1.
func (k Kind) ParamIndex(name string) int {
	for i, p := range kindParams[k] {
		if p == name {
			return i
		}
	}
	return -1
}

// Discrete reports whether the kind has integer support.
func (k Kind) Discrete() bool {
	switch k {
	case Bernoulli, Poisson, Binomial, DiscreteUniform, ZeroInflatedPoisson:
		return true
	}
	return false
}

// Binary reports whether the support is {0, 1}.
func (k Kind) Binary() bool {
	return k == Bernoulli
}

// ParseKind resolves a case-insensitive distribution name.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if strings.EqualFold(n, name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown distribution %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// TransformName is the name of the transform applied to free variables of
// this kind, or "" when they are sampled in their natural space.
func (k Kind) TransformName() string {
	switch k {
	case Uniform:
		return Interval{}.Name()
	case Exponential:
		return Log{}.Name()
	case Beta:
		return LogOdds{}.Name()
	}
	return ""
}

package harness

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/bayesharness/internal/trace"
)

// Scenario runs one example model end to end and checks the resulting
// trace.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Example names the catalog model to build.
	Example string `yaml:"example"`

	// Seed fixes data simulation and inference. Nil means the harness
	// default.
	Seed *uint64 `yaml:"seed,omitempty"`

	// Draws and Tune override the example's plan.
	Draws int  `yaml:"draws,omitempty"`
	Tune  *int `yaml:"tune,omitempty"`

	// Backend selects the trace store the sampler writes to.
	Backend string `yaml:"backend,omitempty"`

	// RunID labels the trace. Empty means "test-run-default", so reruns
	// produce identical digests.
	RunID string `yaml:"run_id,omitempty"`

	// Skip, when set, reports the scenario as skipped with this reason.
	Skip string `yaml:"skip,omitempty"`

	Assertions []Assertion `yaml:"assertions"`
}

// Assertion checks one property of a finished run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Count is the expected trace length (trace_length).
	Count int `yaml:"count,omitempty"`

	// Vars limits vars_present, nonnegative and finite to these variables.
	// Empty means every free variable (vars_present) or every recorded
	// variable.
	Vars []string `yaml:"vars,omitempty"`

	// Var, Elem, Mean, Tolerance and Burn configure mean_within: the mean
	// of element Elem of Var after discarding Burn draws must lie within
	// Tolerance of Mean.
	Var       string  `yaml:"var,omitempty"`
	Elem      int     `yaml:"elem,omitempty"`
	Mean      float64 `yaml:"mean,omitempty"`
	Tolerance float64 `yaml:"tolerance,omitempty"`
	Burn      int     `yaml:"burn,omitempty"`

	// Max bounds the gradient norm at the MAP point (gradient_norm).
	Max float64 `yaml:"max,omitempty"`

	// Backend is the file store used by roundtrip. Empty means sqlite.
	Backend string `yaml:"backend,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceLength    = "trace_length"
	AssertVarsPresent    = "vars_present"
	AssertObservedAbsent = "observed_absent"
	AssertNonnegative    = "nonnegative"
	AssertFinite         = "finite"
	AssertMeanWithin     = "mean_within"
	AssertGradientNorm   = "gradient_norm"
	AssertDeterministic  = "deterministic"
	AssertRoundTrip      = "roundtrip"
)

//go:embed schema.cue
var schemaSource []byte

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields, or does not satisfy the scenario schema.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := checkSchema(data); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml and *.yml scenario in dir, ordered by file
// name.
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	seen := make(map[string]string)
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		if prev, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("%s: scenario %q already defined in %s", filepath.Base(p), s.Name, filepath.Base(prev))
		}
		seen[s.Name] = p
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// checkSchema unifies the raw document with #Scenario.
func checkSchema(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	js, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaSource).LookupPath(cue.ParsePath("#Scenario"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("scenario schema: %w", err)
	}
	v := ctx.CompileBytes(js)
	if err := v.Err(); err != nil {
		return err
	}
	return schema.Unify(v).Validate(cue.Concrete(true))
}

// validateScenario checks the rules the schema cannot express.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Example == "" {
		return fmt.Errorf("example is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.Tune != nil && s.Draws > 0 && *s.Tune > s.Draws {
		return fmt.Errorf("tune (%d) must not exceed draws (%d)", *s.Tune, s.Draws)
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceLength:
		if a.Count <= 0 {
			return fmt.Errorf("assertions[%d]: count must be positive for trace_length", index)
		}
	case AssertMeanWithin:
		if a.Var == "" {
			return fmt.Errorf("assertions[%d]: var is required for mean_within", index)
		}
		if a.Tolerance <= 0 {
			return fmt.Errorf("assertions[%d]: tolerance must be positive for mean_within", index)
		}
	case AssertGradientNorm:
		if a.Max <= 0 {
			return fmt.Errorf("assertions[%d]: max must be positive for gradient_norm", index)
		}
	case AssertRoundTrip:
		if strings.EqualFold(a.Backend, string(trace.KindMemory)) {
			return fmt.Errorf("assertions[%d]: roundtrip needs a file-backed store", index)
		}
	case AssertVarsPresent, AssertObservedAbsent, AssertNonnegative, AssertFinite, AssertDeterministic:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

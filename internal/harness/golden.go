package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/bayesharness/internal/trace"
)

// Snapshot is the platform-independent part of a Result: everything except
// sampled values, whose last bits may differ between architectures.
type Snapshot struct {
	Scenario   string      `json:"scenario"`
	Example    string      `json:"example"`
	Pass       bool        `json:"pass"`
	Stage      Stage       `json:"stage"`
	SkipReason string      `json:"skip_reason,omitempty"`
	Errors     []string    `json:"errors,omitempty"`
	Seed       uint64      `json:"seed"`
	RunID      string      `json:"run_id"`
	Draws      int         `json:"draws"`
	Vars       []trace.Var `json:"vars,omitempty"`
	MAPVars    []string    `json:"map_vars,omitempty"`
}

// NewSnapshot extracts the snapshot of r.
func NewSnapshot(r *Result) Snapshot {
	s := Snapshot{
		Scenario:   r.Scenario,
		Example:    r.Example,
		Pass:       r.Pass,
		Stage:      r.Stage,
		SkipReason: r.SkipReason,
		Errors:     r.Errors,
		Seed:       r.Seed,
		RunID:      r.RunID,
		Draws:      r.Draws,
	}
	if r.Trace != nil {
		s.Vars = r.Trace.Vars
	}
	if r.MAP != nil {
		s.MAPVars = r.MAP.Names()
	}
	return s
}

// AssertGolden compares the snapshot of result against
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := json.MarshalIndent(NewSnapshot(result), "", "  ")
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, append(data, '\n'))
	return nil
}

package harness

import (
	"fmt"

	"github.com/roach88/bayesharness/internal/model"
	"github.com/roach88/bayesharness/internal/trace"
)

// Stage is how far a scenario got. Stages only move forward.
type Stage int

const (
	StageFresh Stage = iota
	StageModelBuilt
	StageInferenceRun
	StageVerified
)

var stageNames = [...]string{"fresh", "model_built", "inference_run", "verified"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// MarshalText renders the stage name in JSON output.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is the outcome of a test scenario execution.
type Result struct {
	Scenario string `json:"scenario"`
	Example  string `json:"example"`

	// Pass indicates overall test success. A skipped scenario passes.
	Pass bool `json:"pass"`

	Stage Stage `json:"stage"`

	Skipped    bool   `json:"skipped,omitempty"`
	SkipReason string `json:"skip_reason,omitempty"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	Seed   uint64 `json:"seed"`
	RunID  string `json:"run_id,omitempty"`
	Draws  int    `json:"draws"`
	Digest string `json:"digest,omitempty"`

	// MAP is the optimum found before sampling, when the plan has one.
	MAP model.Point `json:"map,omitempty"`

	Trace *trace.Trace `json:"-"`
}

// NewResult creates a passing result at StageFresh.
func NewResult(s *Scenario) *Result {
	return &Result{
		Scenario: s.Name,
		Example:  s.Example,
		Pass:     true,
		Errors:   []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Outcome is "pass", "fail" or "skip".
func (r *Result) Outcome() string {
	switch {
	case r.Skipped:
		return "skip"
	case r.Pass:
		return "pass"
	}
	return "fail"
}

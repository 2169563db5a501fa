// Package harness runs example models end to end from YAML scenarios and
// checks the traces they produce.
//
// # Scenario Format
//
//	name: disaster
//	description: "Switchpoint model completes 500 draws"
//	example: disaster        # catalog name, see package examples
//	seed: 20090425           # optional; simulation and inference seed
//	draws: 500               # optional; overrides the example plan
//	tune: 50                 # optional
//	backend: sqlite          # optional; memory, sqlite, file or badger
//	skip: "reason"           # optional; report as skipped
//	assertions:
//	  - type: trace_length
//	    count: 500
//	  - type: mean_within
//	    var: early_mean
//	    mean: 3
//	    tolerance: 0.5
//	    burn: 100
//
// Files are decoded strictly, so unknown fields are errors, and must
// satisfy the embedded CUE schema in schema.cue.
//
// # Assertion Types
//
//   - trace_length: the trace has exactly count draws
//   - vars_present: every draw holds a correctly sized value for vars
//     (default: every free variable)
//   - observed_absent: no observed variable is recorded
//   - nonnegative, finite: every element of vars (default: all recorded)
//   - mean_within: the post-burn mean of var[elem] is within tolerance
//   - gradient_norm: the gradient at the MAP point is at most max
//   - deterministic: a rerun from the same seed has the same digest
//   - roundtrip: a file store reproduces the trace and refuses appends
//     once reopened
//
// # Stages
//
// Each run moves through StageFresh, StageModelBuilt, StageInferenceRun and
// StageVerified. The seed is fixed before the model is built; the seeded
// source first simulates any data, then supplies the inference seed. Run
// IDs are fixed, so reruns of a scenario are byte-identical.
//
// Examples the catalog disables, and scenarios with skip set, are reported
// as skipped rather than failed.
package harness

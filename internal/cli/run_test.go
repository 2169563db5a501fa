package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shippedScenarios = "../harness/testdata/scenarios"

func TestRun_PassingScenario(t *testing.T) {
	out, err := execute(t, "run", shippedScenarios, "--filter", "disaster_missing")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ disaster_missing (100 draws)")
	assert.Contains(t, out, "Summary: 1 passed, 0 failed, 0 skipped, 1 total")
}

func TestRun_SkippedScenarioJSON(t *testing.T) {
	out, err := execute(t, "run", shippedScenarios, "--filter", "two_gaussians", "--format", "json")
	require.NoError(t, err)

	var report RunReport
	resp := decodeResponse(t, out, &report)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Scenarios, 1)
	assert.Equal(t, "skip", report.Scenarios[0].Outcome)
}

func TestRun_FailingScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "short.yaml"), []byte(`
name: short
description: "expects the wrong length"
example: disaster
draws: 10
assertions:
  - type: trace_length
    count: 11
`), 0o644))

	out, err := execute(t, "run", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, ExitCode(err))
	assert.Contains(t, out, "✗ short (stage inference_run)")
	assert.Contains(t, out, "Expected: 11 draws")

	out, err = execute(t, "run", dir, "--format", "json")
	assert.Equal(t, ExitFailure, ExitCode(err))
	var report RunReport
	resp := decodeResponse(t, out, &report)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeScenariosFailed, resp.Error.Code)
	assert.Equal(t, 1, report.Failed)
}

func TestRun_CommandErrors(t *testing.T) {
	_, err := execute(t, "run", "/nonexistent/scenarios")
	assert.Equal(t, ExitCommandError, ExitCode(err))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: bad\nflow: []\n"), 0o644))
	_, err = execute(t, "run", dir)
	assert.Equal(t, ExitCommandError, ExitCode(err))

	_, err = execute(t, "run", shippedScenarios, "--filter", "[")
	assert.Equal(t, ExitCommandError, ExitCode(err))

	_, err = execute(t, "run", shippedScenarios, "--backend", "tape")
	assert.Equal(t, ExitCommandError, ExitCode(err))
}

func TestRun_EmptyFilterResult(t *testing.T) {
	out, err := execute(t, "run", shippedScenarios, "--filter", "nothing-matches")
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestRun_MetricsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.prom")
	_, err := execute(t, "run", shippedScenarios, "--filter", "disaster_missing", "--metrics-file", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `bayesharness_harness_scenarios_total{outcome="pass"} 1`)
	assert.Contains(t, string(data), "bayesharness_sampler_draws_total 100")
}

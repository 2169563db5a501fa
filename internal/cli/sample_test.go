package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSample_SQLiteThenSummary(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "disaster.db")
	prom := filepath.Join(dir, "sample.prom")

	out, err := execute(t, "sample", "disaster", "--draws", "30", "--seed", "5",
		"--backend", "sqlite", "--out", db, "--metrics-file", prom, "--format", "json")
	require.NoError(t, err)
	var sampled SampleReport
	decodeResponse(t, out, &sampled)
	assert.Equal(t, 30, sampled.Draws)
	assert.Equal(t, uint64(5), sampled.Seed)
	assert.Equal(t, db, sampled.Path)
	assert.Len(t, sampled.Summary, 3)

	data, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(data), "bayesharness_sampler_draws_total 30")

	out, err = execute(t, "summary", db, "--burn", "5", "--format", "json")
	require.NoError(t, err)
	var summary SummaryReport
	decodeResponse(t, out, &summary)
	assert.Equal(t, sampled.Digest, summary.Digest)
	assert.Equal(t, sampled.RunID, summary.RunID)
	assert.Equal(t, 30, summary.Draws)

	out, err = execute(t, "summary", db)
	require.NoError(t, err)
	assert.Contains(t, out, "early_mean")
	assert.Contains(t, out, "97.5%")
}

func TestSample_BadgerStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.badger")
	_, err := execute(t, "sample", "disaster", "--draws", "10", "--backend", "badger", "--out", path)
	require.NoError(t, err)

	out, err := execute(t, "summary", path)
	require.NoError(t, err)
	assert.Contains(t, out, "10 draws")
}

func TestSample_TextOutput(t *testing.T) {
	out, err := execute(t, "sample", "glm_linear", "--draws", "20")
	require.NoError(t, err)
	assert.Contains(t, out, "glm_linear: 20 draws")
	assert.Contains(t, out, "MAP:")
	assert.Contains(t, out, "intercept")
}

func TestSample_ExplicitZeroTune(t *testing.T) {
	out, err := execute(t, "sample", "disaster", "--tune", "0", "--draws", "15", "--format", "json")
	require.NoError(t, err)
	var r SampleReport
	decodeResponse(t, out, &r)
	assert.Equal(t, 15, r.Draws)
}

func TestSample_SameSeedSameDigest(t *testing.T) {
	run := func() SampleReport {
		out, err := execute(t, "sample", "latent_occupancy", "--draws", "10", "--seed", "8", "--format", "json")
		require.NoError(t, err)
		var r SampleReport
		decodeResponse(t, out, &r)
		return r
	}
	assert.Equal(t, run().Digest, run().Digest)
}

func TestSample_Errors(t *testing.T) {
	_, err := execute(t, "sample", "nope")
	assert.Equal(t, ExitCommandError, ExitCode(err))

	_, err = execute(t, "sample", "disaster", "--backend", "tape")
	assert.Equal(t, ExitCommandError, ExitCode(err))

	_, err = execute(t, "sample", "disaster", "--draws", "5", "--tune", "6")
	assert.Equal(t, ExitCommandError, ExitCode(err))

	_, err = execute(t, "sample", "disaster", "--draws", "0")
	assert.Equal(t, ExitCommandError, ExitCode(err))

	_, err = execute(t, "sample", "disaster", "--tune", "-1")
	assert.Equal(t, ExitCommandError, ExitCode(err))

	_, err = execute(t, "summary", "/nonexistent/trace.db")
	assert.Equal(t, ExitCommandError, ExitCode(err))
}

func TestSample_ReusedStoreRefused(t *testing.T) {
	db := filepath.Join(t.TempDir(), "once.db")
	_, err := execute(t, "sample", "disaster", "--draws", "5", "--backend", "sqlite", "--out", db)
	require.NoError(t, err)

	_, err = execute(t, "sample", "disaster", "--draws", "5", "--backend", "sqlite", "--out", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))
}

package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssertGolden_CompletedRun(t *testing.T) {
	seed := uint64(7)
	scenario := &Scenario{
		Name:       "disaster_short",
		Example:    "disaster",
		Seed:       &seed,
		Draws:      20,
		Assertions: []Assertion{{Type: AssertTraceLength, Count: 20}},
	}

	result, err := Run(context.Background(), scenario, Options{})
	require.NoError(t, err)
	require.True(t, result.Pass, result.Errors)

	require.NoError(t, AssertGolden(t, scenario.Name, result))
}

func TestAssertGolden_SkippedRun(t *testing.T) {
	scenario := &Scenario{
		Name:       "two_gaussians_skipped",
		Example:    "two_gaussians",
		Assertions: []Assertion{{Type: AssertTraceLength, Count: 50}},
	}

	result, err := Run(context.Background(), scenario, Options{})
	require.NoError(t, err)

	require.NoError(t, AssertGolden(t, scenario.Name, result))
}

package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// decodeResponse parses a JSON envelope, decoding its data into data.
func decodeResponse(t *testing.T, out string, data any) Response {
	t.Helper()
	var raw struct {
		Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), out)
	if data != nil {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.Response
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "bayesharness", cmd.Use)

	for _, name := range []string{"run", "sample", "summary", "list", "describe"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	_, err := execute(t, "list", "--format", "xml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestRootCommand_MissingConfig(t *testing.T) {
	_, err := execute(t, "list", "--config", "/nonexistent/bayesharness.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil))
	assert.Equal(t, ExitCommandError, ExitCode(errors.New("unknown flag")))
	assert.Equal(t, ExitFailure, ExitCode(NewExitError(ExitFailure, "failed")))

	wrapped := WrapExitError(ExitCommandError, "open", io.EOF)
	assert.Equal(t, "open: EOF", wrapped.Error())
	assert.ErrorIs(t, wrapped, io.EOF)
}

func TestList(t *testing.T) {
	out, err := execute(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "disaster")
	assert.Contains(t, out, "(disabled: still broken")

	out, err = execute(t, "list", "--format", "json")
	require.NoError(t, err)
	var rows []ExampleInfo
	resp := decodeResponse(t, out, &rows)
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, rows, 10)
}

func TestDescribe(t *testing.T) {
	out, err := execute(t, "describe", "disaster")
	require.NoError(t, err)
	assert.Contains(t, out, "model disaster\n")
	assert.Contains(t, out, "switchpoint")

	_, err = execute(t, "describe", "nope")
	assert.Equal(t, ExitCommandError, ExitCode(err))
}

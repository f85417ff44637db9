package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitErrorCodes(t *testing.T) {
	err := NewExitError(ExitCommandError, "bad path")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, "bad path", err.Error())

	wrapped := WrapExitError(ExitFailure, "read failed", errors.New("boom"))
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
	assert.Equal(t, "read failed: boom", wrapped.Error())
	assert.EqualError(t, errors.Unwrap(wrapped), "boom")

	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}

func TestOutputFormatterJSON(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	require.NoError(t, f.Success(map[string]int{"rows": 3}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)

	buf.Reset()
	require.NoError(t, f.Error("EMPTY_RESULT", "no common shots", nil))
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "EMPTY_RESULT", resp.Error.Code)
}

func TestOutputFormatterText(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}

	require.NoError(t, f.Error("E1", "went wrong", nil))
	assert.Equal(t, "Error [E1]: went wrong\n", buf.String())
}

func TestVerboseLog(t *testing.T) {
	var out, errw bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &out, ErrWriter: &errw, Verbose: false}
	f.VerboseLog("hidden %d", 1)
	assert.Empty(t, errw.String())

	f.Verbose = true
	f.VerboseLog("shown %d", 2)
	assert.Equal(t, "shown 2\n", errw.String())
	assert.Empty(t, out.String())
}

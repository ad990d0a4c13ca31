package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidConfig(t *testing.T) {
	configPath, _ := writeConfig(t)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"-c", configPath})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "✓ Config valid")
}

func TestValidateValidConfigJSON(t *testing.T) {
	configPath, _ := writeConfig(t)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"-c", configPath})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestValidateReportsAllIssues(t *testing.T) {
	dir := t.TempDir()
	config := `
schemas:
  UserPayload:
    type: object
    properties:
      user_id:
        type: string
        generator: no_such_generator
event_types:
  UserRegistered:
    payload_schema: MissingSchema
`
	configPath := filepath.Join(dir, "sim.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0o644))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"-c", configPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	output := buf.String()
	assert.Contains(t, output, "✗ Validation failed")
	assert.Contains(t, output, "no_such_generator")
	assert.Contains(t, output, "MissingSchema")
}

func TestValidateNonExistentConfig(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"-c", "/nonexistent/sim.yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E001")
}

func TestValidateIssuesJSON(t *testing.T) {
	dir := t.TempDir()
	config := `
event_types:
  Orphan:
    payload_schema: Nowhere
`
	configPath := filepath.Join(dir, "sim.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0o644))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"-c", configPath})

	err := cmd.Execute()
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.NotEmpty(t, resp.Error.Code)
}

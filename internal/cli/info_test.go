package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfoSummarizesConfig(t *testing.T) {
	configPath, _ := writeConfig(t)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewInfoCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"-c", configPath})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "Total events: 5")
	assert.Contains(t, output, "Random seed: 7")
	assert.Contains(t, output, "Schemas (1): UserPayload")
	assert.Contains(t, output, "Entities (1): User")
	assert.Contains(t, output, "Event types (1): UserRegistered")
	assert.Contains(t, output, "Output: file (enabled)")
}

func TestInfoJSON(t *testing.T) {
	configPath, _ := writeConfig(t)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewInfoCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"-c", configPath})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var info DocumentInfo
	require.NoError(t, json.Unmarshal(data, &info))
	assert.Equal(t, []string{"UserPayload"}, info.Schemas)
	assert.Equal(t, []string{"User"}, info.Entities)
	require.NotNil(t, info.TotalEvents)
	assert.Equal(t, 5, *info.TotalEvents)
}

func TestInfoInvalidConfigFails(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewInfoCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"-c", "/nonexistent/sim.yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

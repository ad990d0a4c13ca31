package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig drops a small but complete simulation config into a temp
// dir, emitting NDJSON to a file sink so tests can inspect the output.
func writeConfig(t *testing.T) (configPath, eventsPath string) {
	t.Helper()
	dir := t.TempDir()
	eventsPath = filepath.Join(dir, "events.ndjson")
	config := fmt.Sprintf(`
version: "1"
simulation_settings:
  total_events: 5
  random_seed: 7
  time_progression:
    start_time: "2025-01-01T00:00:00Z"
    time_multiplier: 1.0
schemas:
  UserPayload:
    type: object
    properties:
      user_id:
        type: string
        generator: uuid_v4
      plan:
        type: string
        generator: choice
        params:
          choices: [free, pro]
entities:
  User:
    schema: UserPayload
    primary_key: user_id
event_types:
  UserRegistered:
    payload_schema: UserPayload
    produces_entity: User
outputs:
  - type: file
    format: json
    file_path: %s
`, eventsPath)
	configPath = filepath.Join(dir, "sim.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0o644))
	return configPath, eventsPath
}

func TestRunEmitsBudgetedEvents(t *testing.T) {
	configPath, eventsPath := writeConfig(t)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"-c", configPath})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "5 event(s)")
	assert.Contains(t, buf.String(), "reason=total_events")

	data, err := os.ReadFile(eventsPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 5)
	for _, line := range lines {
		assert.True(t, json.Valid([]byte(line)), "each emitted line is valid JSON")
	}
}

func TestRunJSONSummary(t *testing.T) {
	configPath, _ := writeConfig(t)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"-c", configPath})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var summary RunSummary
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, 5, summary.EventsEmitted)
	assert.Equal(t, "total_events", summary.TerminationReason)
	assert.Equal(t, int64(7), summary.Seed)
}

func TestRunSeedFlagOverridesConfig(t *testing.T) {
	configPath, _ := writeConfig(t)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"-c", configPath, "--seed", "42"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), `"seed": 42`)
}

func TestRunMissingConfigIsCommandError(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"-c", "/nonexistent/sim.yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

package sink

import (
	"bufio"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resinker/resinker/internal/record"
	"github.com/resinker/resinker/internal/spec"
)

func sampleEvent(eventType string) *record.Event {
	payload := record.NewObject()
	payload.Set("user_id", "u-1")
	payload.Set("amount", 12.5)
	return &record.Event{
		EventType: eventType,
		Timestamp: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		Payload:   payload,
	}
}

func TestStdout_WritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	s := newStdoutTo(&buf, "json")
	require.NoError(t, s.Emit(sampleEvent("user_registered")))
	require.NoError(t, s.Emit(sampleEvent("order_placed")))
	require.NoError(t, s.Flush())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), `"event_type":"user_registered"`)
	assert.Contains(t, string(lines[0]), `"timestamp":"2025-06-01T09:00:00Z"`)
}

func TestFile_NDJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "events.ndjson")
	f, err := NewFile(spec.OutputConfig{Type: "file", FilePath: path, Format: "json"})
	require.NoError(t, err)

	for _, et := range []string{"a", "b", "c"} {
		require.NoError(t, f.Emit(sampleEvent(et)))
	}
	require.NoError(t, f.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var types []string
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		var ev record.Event
		require.NoError(t, ev.UnmarshalJSON(scanner.Bytes()))
		types = append(types, ev.EventType)
		assert.Equal(t, []string{"user_id", "amount"}, ev.Payload.Keys())
	}
	assert.Equal(t, []string{"a", "b", "c"}, types)
}

func TestFile_CountRotation(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(spec.OutputConfig{
		Type:         "file",
		FilePath:     filepath.Join(dir, "events.ndjson"),
		Format:       "json",
		FileRotation: "count",
	})
	require.NoError(t, err)

	for i := 0; i < rotationThreshold+5; i++ {
		require.NoError(t, f.Emit(sampleEvent("tick")))
	}
	require.NoError(t, f.Close())

	matches, err := filepath.Glob(filepath.Join(dir, "events_*.ndjson"))
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestBuild_SkipsDisabled(t *testing.T) {
	disabled := false
	sinks, err := Build([]spec.OutputConfig{
		{Type: "stdout"},
		{Type: "stdout", Enabled: &disabled},
	}, nil)
	require.NoError(t, err)
	assert.Len(t, sinks, 1)
}

type countingSink struct {
	name    string
	emitted atomic.Int64
	fail    bool
	block   chan struct{}
}

func (c *countingSink) Name() string { return c.name }

func (c *countingSink) Emit(*record.Event) error {
	if c.block != nil {
		<-c.block
	}
	if c.fail {
		return errors.New("boom")
	}
	c.emitted.Add(1)
	return nil
}

func (c *countingSink) Flush() error { return nil }
func (c *countingSink) Close() error { return nil }

func TestFanout_DeliversToEverySink(t *testing.T) {
	a := &countingSink{name: "a"}
	b := &countingSink{name: "b"}
	f := NewFanout([]Sink{a, b}, nil)

	for i := 0; i < 50; i++ {
		f.Emit(sampleEvent("tick"))
	}
	require.NoError(t, f.Close())

	assert.Equal(t, int64(50), a.emitted.Load())
	assert.Equal(t, int64(50), b.emitted.Load())
}

func TestFanout_DropPolicyCountsDrops(t *testing.T) {
	blocked := &countingSink{name: "slow", block: make(chan struct{})}
	f := NewFanout([]Sink{blocked}, nil, WithQueueSize(1), WithDropPolicy())

	// The worker parks on the first event; capacity one buffers the
	// second; the rest drop.
	for i := 0; i < 10; i++ {
		f.Emit(sampleEvent("tick"))
	}
	assert.GreaterOrEqual(t, f.Dropped()["slow"], int64(8))

	close(blocked.block)
	require.NoError(t, f.Close())
}

func TestFanout_UnhealthySinkIsSkipped(t *testing.T) {
	failing := &countingSink{name: "bad", fail: true}
	healthy := &countingSink{name: "good"}
	f := NewFanout([]Sink{failing, healthy}, nil)

	for i := 0; i < unhealthyAfter+20; i++ {
		f.Emit(sampleEvent("tick"))
	}
	require.NoError(t, f.Close())

	assert.Equal(t, int64(unhealthyAfter+20), healthy.emitted.Load())
	assert.Equal(t, int64(0), failing.emitted.Load())
}

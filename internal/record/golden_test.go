package record

import (
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

// The emitted envelope is a stability contract: event_type, timestamp,
// payload, with payload keys in declared order.
func TestEventEnvelopeGolden(t *testing.T) {
	item := NewObject()
	item.Set("sku", "A1")
	item.Set("qty", int64(2))

	payload := NewObject()
	payload.Set("order_id", "ord-1")
	payload.Set("items", []any{item})
	payload.Set("total", 19.9)
	payload.Set("note", nil)

	ev := &Event{
		EventType: "order_placed",
		Timestamp: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		Payload:   payload,
	}

	pretty, err := MarshalIndent(ev)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "event_envelope", pretty)
}

package record

import (
	"bytes"
	"encoding/json"
	"time"
)

// Event is a single emitted record: the event type, the simulation
// timestamp at emission, and the generated payload.
type Event struct {
	EventType string
	Timestamp time.Time
	Payload   *Object
}

// MarshalJSON emits the sink envelope: event_type, timestamp (ISO 8601),
// payload in declared field order.
func (e *Event) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"event_type":`)
	typeBytes, err := json.Marshal(e.EventType)
	if err != nil {
		return nil, err
	}
	buf.Write(typeBytes)
	buf.WriteString(`,"timestamp":`)
	tsBytes, err := json.Marshal(e.Timestamp.Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	buf.Write(tsBytes)
	buf.WriteString(`,"payload":`)
	payload := e.Payload
	if payload == nil {
		payload = NewObject()
	}
	payloadBytes, err := payload.MarshalJSON()
	if err != nil {
		return nil, err
	}
	buf.Write(payloadBytes)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a sink envelope, preserving payload key order.
// Used by tests and by consumers re-reading file-sink output.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw struct {
		EventType string          `json:"event_type"`
		Timestamp string          `json:"timestamp"`
		Payload   json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ts, err := time.Parse(time.RFC3339, raw.Timestamp)
	if err != nil {
		return err
	}
	payload := NewObject()
	if len(raw.Payload) > 0 {
		if err := payload.UnmarshalJSON(raw.Payload); err != nil {
			return err
		}
	}
	e.EventType = raw.EventType
	e.Timestamp = ts
	e.Payload = payload
	return nil
}

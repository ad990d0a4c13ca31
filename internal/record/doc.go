// Package record holds the value model for generated payloads and the
// envelope for emitted events.
//
// Payload objects preserve the field order declared in the simulation
// config.
// encoding/json sorts map keys, which would destroy that order, so Object
// carries its own key slice and implements json.Marshaler directly. All
// sinks and all tests observe the same declared-order serialization.
//
// Values inside an Object are plain Go values: string, int64, float64,
// bool, nil, []any, and *Object. Generators never produce anything else.
package record

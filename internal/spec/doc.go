// Package spec defines the Resinker specification document: the data
// shapes, entities, event types, scenarios, and outputs that drive a
// simulation run.
//
// The document model preserves declaration order everywhere it matters.
// YAML mappings normally decode into Go maps, which lose order and would
// make scheduling and payload generation non-deterministic across runs, so
// every order-sensitive section decodes through a custom UnmarshalYAML
// into a named slice.
//
// Loading merges the main file with its imports (depth-first, importing
// file wins per named definition, cycles rejected) and then validates
// cross-references so the engine can assume a well-formed document.
package spec

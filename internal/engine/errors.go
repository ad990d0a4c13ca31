package engine

import (
	"fmt"
	"time"
)

// RuntimeError codes.
const (
	CodeGeneratorFault = "generator_fault"
	CodeCommitFailed   = "commit_failed"
	CodeSeedFailed     = "seed_failed"
)

// Termination reasons reported in Result.
const (
	ReasonTotalEvents = "total_events"
	ReasonDuration    = "duration"
	ReasonStarved     = "starved"
	ReasonSignal      = "signal"
	ReasonExhausted   = "exhausted"
)

// RuntimeError is a per-event failure surfaced while the run continues.
type RuntimeError struct {
	Code      string
	EventType string
	Err       error
}

func (e *RuntimeError) Error() string {
	if e.EventType != "" {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.EventType, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// Diagnostic is one recorded incident of a run.
type Diagnostic struct {
	At        time.Time // simulation time
	Code      string
	EventType string
	Message   string
}

// Package sink delivers finished events to the configured outputs. Each
// sink runs behind its own worker with a bounded queue; sink failures are
// logged and never abort the simulation.
package sink

import (
	"fmt"
	"log/slog"

	"github.com/resinker/resinker/internal/record"
	"github.com/resinker/resinker/internal/spec"
)

// Sink is one event destination.
type Sink interface {
	Name() string
	Emit(ev *record.Event) error
	Flush() error
	Close() error
}

// Build constructs the enabled sinks from the output configs, in declared
// order. Unknown types are rejected by validation before this runs.
func Build(configs []spec.OutputConfig, logger *slog.Logger) ([]Sink, error) {
	var sinks []Sink
	for i, cfg := range configs {
		if !cfg.IsEnabled() {
			continue
		}
		var (
			s   Sink
			err error
		)
		switch cfg.Type {
		case "stdout":
			s = NewStdout(cfg.Format)
		case "file":
			s, err = NewFile(cfg)
		case "kafka":
			s, err = NewKafka(cfg, logger)
		default:
			err = fmt.Errorf("unknown sink type %q", cfg.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("outputs[%d]: %w", i, err)
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}

// encode renders the event envelope in the configured format. Payload keys
// keep their declared order.
func encode(ev *record.Event, format string) ([]byte, error) {
	if format == "json_pretty" {
		return record.MarshalIndent(ev)
	}
	return record.MarshalValue(ev)
}

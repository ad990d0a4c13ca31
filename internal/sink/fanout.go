package sink

import (
	"log/slog"
	"sync/atomic"

	"github.com/resinker/resinker/internal/record"
)

const (
	defaultQueueSize = 1024

	// consecutive emit failures before a sink is marked unhealthy and
	// skipped for the rest of the run
	unhealthyAfter = 10
)

// FanoutOption configures a Fanout.
type FanoutOption func(*Fanout)

// WithQueueSize sets the per-sink queue capacity.
func WithQueueSize(n int) FanoutOption {
	return func(f *Fanout) { f.queueSize = n }
}

// WithDropPolicy makes a full sink queue drop the event for that sink
// instead of blocking the scheduler.
func WithDropPolicy() FanoutOption {
	return func(f *Fanout) { f.drop = true }
}

// Fanout feeds every sink from its own worker goroutine. The default
// policy blocks event emission on the slowest sink so no sink ever misses
// an event; the drop policy keeps the scheduler moving and counts what
// each sink lost.
type Fanout struct {
	workers   []*worker
	queueSize int
	drop      bool
	logger    *slog.Logger
}

type worker struct {
	sink      Sink
	queue     chan *record.Event
	done      chan struct{}
	dropped   atomic.Int64
	unhealthy atomic.Bool
	logger    *slog.Logger
}

// NewFanout starts one worker per sink.
func NewFanout(sinks []Sink, logger *slog.Logger, opts ...FanoutOption) *Fanout {
	f := &Fanout{queueSize: defaultQueueSize, logger: logger}
	for _, opt := range opts {
		opt(f)
	}
	for _, s := range sinks {
		w := &worker{
			sink:   s,
			queue:  make(chan *record.Event, f.queueSize),
			done:   make(chan struct{}),
			logger: logger,
		}
		f.workers = append(f.workers, w)
		go w.run()
	}
	return f
}

// Emit hands the event to every healthy sink.
func (f *Fanout) Emit(ev *record.Event) {
	for _, w := range f.workers {
		if w.unhealthy.Load() {
			continue
		}
		if f.drop {
			select {
			case w.queue <- ev:
			default:
				w.dropped.Add(1)
			}
		} else {
			w.queue <- ev
		}
	}
}

// Dropped reports per-sink drop counts.
func (f *Fanout) Dropped() map[string]int64 {
	out := make(map[string]int64, len(f.workers))
	for _, w := range f.workers {
		out[w.sink.Name()] = w.dropped.Load()
	}
	return out
}

// Close drains the queues, flushes, and closes every sink. The first
// close error is returned; every sink is still closed.
func (f *Fanout) Close() error {
	var firstErr error
	for _, w := range f.workers {
		close(w.queue)
	}
	for _, w := range f.workers {
		<-w.done
		if err := w.sink.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := w.sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		if n := w.dropped.Load(); n > 0 && f.logger != nil {
			f.logger.Warn("sink dropped events", "sink", w.sink.Name(), "dropped", n)
		}
	}
	return firstErr
}

func (w *worker) run() {
	defer close(w.done)
	failures := 0
	for ev := range w.queue {
		if w.unhealthy.Load() {
			continue
		}
		if err := w.sink.Emit(ev); err != nil {
			failures++
			if w.logger != nil {
				w.logger.Error("sink emit failed", "sink", w.sink.Name(), "error", err)
			}
			if failures >= unhealthyAfter {
				w.unhealthy.Store(true)
				if w.logger != nil {
					w.logger.Error("sink marked unhealthy", "sink", w.sink.Name(), "failures", failures)
				}
			}
			continue
		}
		failures = 0
	}
}

// Package engine runs the simulation: a single-threaded scheduler loop
// that picks events by weight, resolves entity dependencies, generates
// payloads, commits state mutations, and emits records to the sinks.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/resinker/resinker/internal/faker"
	"github.com/resinker/resinker/internal/generate"
	"github.com/resinker/resinker/internal/randx"
	"github.com/resinker/resinker/internal/record"
	"github.com/resinker/resinker/internal/spec"
	"github.com/resinker/resinker/internal/store"
)

// interEventDelta advances the clock between events and on empty ticks.
const interEventDelta = time.Second

// defaultMaxStarvedTicks bounds consecutive ticks without a feasible
// event before the run terminates as starved.
const defaultMaxStarvedTicks = 300

// Emitter receives finished events. Satisfied by sink.Fanout.
type Emitter interface {
	Emit(ev *record.Event)
}

// Result summarizes a completed run.
type Result struct {
	EventsEmitted     int
	Duration          time.Duration // wall clock observed
	SimulatedDuration time.Duration
	TerminationReason string
	Diagnostics       []Diagnostic
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the run logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMaxStarvedTicks overrides the starvation bound.
func WithMaxStarvedTicks(n int) Option {
	return func(e *Engine) { e.maxStarved = n }
}

// WithSeed overrides the document's random_seed.
func WithSeed(seed int64) Option {
	return func(e *Engine) {
		e.seed = seed
		e.seedSet = true
	}
}

// Engine is the run controller. One engine runs one simulation.
type Engine struct {
	doc     *spec.Document
	emitter Emitter
	logger  *slog.Logger

	clock  *Clock
	store  *store.Store
	interp *generate.Interpreter

	schedule     *rand.Rand
	selection    *rand.Rand
	scenarioInit *rand.Rand

	startTime   time.Time
	duration    time.Duration
	hasDuration bool
	totalEvents *int
	maxStarved  int
	seed        int64
	seedSet     bool

	runs    []*scenarioRun
	runSeq  int
	emitted int
	diags   []Diagnostic
}

// New builds an engine for a validated document.
func New(doc *spec.Document, emitter Emitter, opts ...Option) (*Engine, error) {
	e := &Engine{
		doc:        doc,
		emitter:    emitter,
		logger:     slog.Default(),
		store:      store.New(),
		maxStarved: defaultMaxStarvedTicks,
	}
	for _, opt := range opts {
		opt(e)
	}

	settings := doc.SimulationSettings
	if !e.seedSet {
		if settings.RandomSeed != nil {
			e.seed = *settings.RandomSeed
		} else {
			e.seed = time.Now().UnixNano()
			e.logger.Info("no random_seed configured, derived one", "seed", e.seed)
		}
	}
	streams := randx.New(e.seed)
	e.schedule = streams.Stream(randx.StreamSchedule)
	e.selection = streams.Stream(randx.StreamSelection)
	e.scenarioInit = streams.Stream(randx.StreamScenarioInit)
	generator := streams.Stream(randx.StreamGenerator)
	e.interp = generate.New(doc, generator, faker.New(generator))

	start, err := spec.ResolveStartTime(settings.TimeProgression.StartTime, time.Now)
	if err != nil {
		return nil, err
	}
	e.startTime = start
	e.clock = NewClock(start, settings.TimeProgression.TimeMultiplier)

	if settings.Duration != "" {
		d, err := spec.ParseDuration(settings.Duration)
		if err != nil {
			return nil, err
		}
		e.duration = d
		e.hasDuration = true
	}
	e.totalEvents = settings.TotalEvents
	return e, nil
}

// Seed returns the root seed in effect.
func (e *Engine) Seed() int64 { return e.seed }

// Run executes the simulation until a budget trips, the pool starves, or
// ctx is cancelled. The entity store is seeded from initial_entity_counts
// before the first tick.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	wallStart := time.Now()
	if err := e.seedEntities(); err != nil {
		return nil, err
	}

	starved := 0
	reason := ""
	for {
		if ctx.Err() != nil {
			reason = ReasonSignal
			break
		}
		if e.totalEvents != nil && e.emitted >= *e.totalEvents {
			reason = ReasonTotalEvents
			break
		}
		if e.hasDuration && e.clock.Now().Sub(e.startTime) >= e.duration {
			reason = ReasonDuration
			break
		}

		e.maybeInitiate()
		candidates := e.collectCandidates()
		if len(candidates) == 0 {
			if e.exhausted() {
				reason = ReasonExhausted
				break
			}
			starved++
			if starved >= e.maxStarved {
				e.logger.Warn("no feasible event within starvation bound", "ticks", starved)
				reason = ReasonStarved
				break
			}
			e.clock.Advance(interEventDelta)
			continue
		}

		if e.fire(e.pick(candidates)) {
			starved = 0
		} else {
			starved++
			if starved >= e.maxStarved {
				reason = ReasonStarved
				break
			}
		}
		e.clock.Advance(interEventDelta)
	}

	return &Result{
		EventsEmitted:     e.emitted,
		Duration:          time.Since(wallStart),
		SimulatedDuration: e.clock.Now().Sub(e.startTime),
		TerminationReason: reason,
		Diagnostics:       e.diags,
	}, nil
}

// seedEntities populates the store from initial_entity_counts, in
// declared order.
func (e *Engine) seedEntities() error {
	for _, ec := range e.doc.SimulationSettings.InitialEntityCounts {
		ent, ok := e.doc.EntityByName(ec.Entity)
		if !ok {
			return &RuntimeError{Code: CodeSeedFailed, Err: fmt.Errorf("initial_entity_counts: entity %q not defined", ec.Entity)}
		}
		for i := 0; i < ec.Count; i++ {
			payload, err := e.interp.Payload(ent.Schema, &generate.Context{Clock: e.clock, Store: e.store})
			if err != nil {
				return &RuntimeError{Code: CodeSeedFailed, Err: err}
			}
			inst, err := e.buildInstance(ec.Entity, payload)
			if err != nil {
				return &RuntimeError{Code: CodeSeedFailed, Err: err}
			}
			if err := e.store.Insert(inst); err != nil {
				return &RuntimeError{Code: CodeSeedFailed, Err: err}
			}
		}
		e.logger.Debug("seeded entities", "kind", ec.Entity, "count", ec.Count)
	}
	return nil
}

// candidate is one schedulable firing: a due scenario step or a
// stand-alone event type.
type candidate struct {
	run     *scenarioRun // nil for stand-alone
	step    *spec.Step
	et      *spec.EventType
	weight  float64
	binding *generate.Binding
}

// collectCandidates builds the feasible pool: due scenario steps in run
// creation order, then stand-alone event types in declared order.
func (e *Engine) collectCandidates() []candidate {
	var out []candidate
	now := e.clock.Now()

	for _, run := range e.runs {
		if run.wakeup.After(now) {
			continue
		}
		step := run.currentStep()
		if step == nil {
			continue
		}
		et, ok := e.doc.EventTypeByName(step.EventType)
		if !ok {
			continue
		}
		binding, feasible := e.resolveEvent(et, run.binding)
		if !feasible {
			continue
		}
		// A scenario step stays schedulable even when its event type
		// opts out of the stand-alone pool with frequency_weight 0.
		w := et.EffectiveWeight()
		if w <= 0 {
			w = 1
		}
		out = append(out, candidate{run: run, step: step, et: et, weight: w, binding: binding})
	}

	for i := range e.doc.EventTypes {
		et := &e.doc.EventTypes[i]
		w := et.EffectiveWeight()
		if w <= 0 {
			continue
		}
		binding, feasible := e.resolveEvent(et, nil)
		if !feasible {
			continue
		}
		out = append(out, candidate{et: et, weight: w, binding: binding})
	}
	return out
}

// pick samples from the pool by weight via the schedule stream.
func (e *Engine) pick(pool []candidate) candidate {
	weights := make([]float64, len(pool))
	for i, c := range pool {
		weights[i] = c.weight
	}
	idx := randx.WeightedIndex(e.schedule, weights)
	if idx < 0 {
		idx = 0
	}
	return pool[idx]
}

// fire generates, commits, and emits one event. A generator fault or
// commit failure rolls the event back: state is untouched, the scenario
// step stays pending, and a diagnostic is recorded.
func (e *Engine) fire(c candidate) bool {
	var overrides map[string]any
	if c.step != nil {
		overrides = c.step.PayloadOverrides
	}
	payload, err := e.interp.Payload(c.et.PayloadSchema, &generate.Context{
		Clock:     e.clock,
		Store:     e.store,
		Binding:   c.binding,
		Overrides: overrides,
	})
	if err != nil {
		e.diagnose(CodeGeneratorFault, c.et.Name, err)
		return false
	}

	affected, err := e.commit(c.et, payload, c.binding)
	if err != nil {
		e.diagnose(CodeCommitFailed, c.et.Name, err)
		return false
	}

	if c.run != nil {
		c.run.binding = c.binding
		if affected != nil {
			c.run.binding.Add(affected.Kind, affected.Kind, affected)
		}
		e.advanceRun(c.run, c.step)
		e.pruneRuns()
	}

	ev := &record.Event{
		EventType: c.et.Name,
		Timestamp: e.clock.Now(),
		Payload:   payload,
	}
	e.emitter.Emit(ev)
	e.emitted++
	e.logger.Debug("event emitted", "event_type", c.et.Name, "emitted", e.emitted)
	return true
}

// exhausted reports that nothing is schedulable now or ever: no active
// runs, no weighted stand-alone types, and no weighted scenarios.
func (e *Engine) exhausted() bool {
	if len(e.runs) > 0 {
		return false
	}
	for i := range e.doc.EventTypes {
		if e.doc.EventTypes[i].EffectiveWeight() > 0 {
			return false
		}
	}
	for i := range e.doc.Scenarios {
		if e.doc.Scenarios[i].EffectiveWeight() > 0 {
			return false
		}
	}
	return true
}

func (e *Engine) diagnose(code, eventType string, err error) {
	e.diags = append(e.diags, Diagnostic{
		At:        e.clock.Now(),
		Code:      code,
		EventType: eventType,
		Message:   err.Error(),
	})
	e.logger.Warn("event rolled back", "code", code, "event_type", eventType, "error", err)
}

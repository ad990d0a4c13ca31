package engine

import (
	"time"

	"github.com/resinker/resinker/internal/generate"
	"github.com/resinker/resinker/internal/randx"
	"github.com/resinker/resinker/internal/spec"
)

// scenarioRun is one active journey through a scenario's steps. Multiple
// runs of the same scenario may be in flight at once; each carries its own
// binding and wakeup time.
type scenarioRun struct {
	id       int
	scenario *spec.Scenario
	step     int
	binding  *generate.Binding
	wakeup   time.Time

	// loopLeft counts remaining firings of the current step; -1 means
	// the count has not been sampled yet.
	loopLeft int
}

func (r *scenarioRun) currentStep() *spec.Step {
	if r.step >= len(r.scenario.Steps) {
		return nil
	}
	return &r.scenario.Steps[r.step]
}

func (r *scenarioRun) finished() bool {
	return r.step >= len(r.scenario.Steps)
}

// maybeInitiate draws over scenario initiation weights plus an idle slot
// and, when a scenario wins and its requirements are satisfiable, creates
// a run with bindings captured now.
func (e *Engine) maybeInitiate() {
	if len(e.doc.Scenarios) == 0 {
		return
	}
	weights := make([]float64, 0, len(e.doc.Scenarios)+1)
	var sum float64
	for i := range e.doc.Scenarios {
		w := e.doc.Scenarios[i].EffectiveWeight()
		weights = append(weights, w)
		sum += w
	}
	idle := sum / 4
	if idle < 1 {
		idle = 1
	}
	weights = append(weights, idle)

	idx := randx.WeightedIndex(e.scenarioInit, weights)
	if idx < 0 || idx == len(e.doc.Scenarios) {
		return
	}
	sc := &e.doc.Scenarios[idx]

	binding := generate.NewBinding()
	for _, req := range sc.RequiresInitialEntities {
		candidates := e.store.Select(req.Name, req.SelectionFilter)
		if len(candidates) < req.EffectiveMinRequired() {
			return
		}
		pick := candidates[e.selection.Intn(len(candidates))]
		alias := req.Alias
		if alias == "" {
			alias = req.Name
		}
		binding.Add(alias, req.Name, pick)
	}

	e.runSeq++
	run := &scenarioRun{
		id:       e.runSeq,
		scenario: sc,
		binding:  binding,
		wakeup:   e.clock.Now(),
		loopLeft: -1,
	}
	if first := run.currentStep(); first != nil && first.Delay != nil {
		run.wakeup = run.wakeup.Add(e.sampleDelay(first.Delay))
	}
	e.runs = append(e.runs, run)
	e.logger.Debug("scenario initiated", "scenario", sc.Name, "run", run.id)
}

// advanceRun moves a run past a just-fired step: loop bookkeeping, step
// index, and the wakeup delay of whatever fires next.
func (e *Engine) advanceRun(run *scenarioRun, step *spec.Step) {
	now := e.clock.Now()
	if step.Loop != nil {
		if run.loopLeft < 0 {
			lo, hi := step.Loop.MinCount, step.Loop.MaxCount
			if hi < lo {
				hi = lo
			}
			run.loopLeft = lo + e.schedule.Intn(hi-lo+1)
		}
		run.loopLeft--
		if run.loopLeft > 0 {
			run.wakeup = now
			if d := step.Loop.DelayBetweenLoops; d != nil {
				run.wakeup = now.Add(e.sampleDelay(d))
			}
			return
		}
	}
	run.step++
	run.loopLeft = -1
	run.wakeup = now
	if next := run.currentStep(); next != nil && next.Delay != nil {
		run.wakeup = now.Add(e.sampleDelay(next.Delay))
	}
}

// sampleDelay draws uniformly from [min_seconds, max_seconds].
func (e *Engine) sampleDelay(d *spec.DelayRange) time.Duration {
	lo, hi := d.MinSeconds, d.MaxSeconds
	if hi < lo {
		hi = lo
	}
	sec := lo + e.schedule.Float64()*(hi-lo)
	return time.Duration(sec * float64(time.Second))
}

// pruneRuns drops finished runs, preserving creation order.
func (e *Engine) pruneRuns() {
	kept := e.runs[:0]
	for _, run := range e.runs {
		if !run.finished() {
			kept = append(kept, run)
			continue
		}
		e.logger.Debug("scenario completed", "scenario", run.scenario.Name, "run", run.id)
	}
	e.runs = kept
}

package engine

import (
	"github.com/resinker/resinker/internal/generate"
	"github.com/resinker/resinker/internal/spec"
	"github.com/resinker/resinker/internal/store"
)

// resolveEvent binds every consumed entity of the event type, reusing
// captured scenario bindings where alias names match. It returns the
// binding to generate against and whether the event is feasible now.
//
// Captured instances must still satisfy the step's filters at firing
// time; a captured alias that no longer matches is re-picked from the
// store as if it were never captured. Fresh consumptions pick uniformly
// from the current candidates via the selection stream.
func (e *Engine) resolveEvent(et *spec.EventType, captured *generate.Binding) (*generate.Binding, bool) {
	var binding *generate.Binding
	if captured != nil {
		binding = captured.Clone()
	} else {
		binding = generate.NewBinding()
	}

	for _, c := range et.ConsumesEntities {
		alias := c.Alias
		if alias == "" {
			alias = c.Name
		}
		need := c.EffectiveMinRequired()

		if held := captured.ByAlias(alias); len(held) > 0 {
			matching := make([]*store.Instance, 0, len(held))
			for _, inst := range held {
				if store.Matches(inst, c.SelectionFilter) {
					matching = append(matching, inst)
				}
			}
			if len(matching) >= need {
				binding.Add(alias, c.Name, matching...)
				continue
			}
			// Captured instances drifted out of the step's filter; fall
			// back to a fresh pick from the store.
		}

		candidates := e.store.Select(c.Name, c.SelectionFilter)
		if len(candidates) < need {
			return nil, false
		}
		pick := candidates[e.selection.Intn(len(candidates))]
		binding.Add(alias, c.Name, pick)
	}

	if ma := et.MaxActive; ma != nil {
		if e.store.CountWhere(ma.Entity, ma.Attribute, ma.Value) >= ma.MaxCount {
			return nil, false
		}
	}
	return binding, true
}

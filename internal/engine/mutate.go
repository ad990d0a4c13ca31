package engine

import (
	"fmt"

	"github.com/resinker/resinker/internal/generate"
	"github.com/resinker/resinker/internal/record"
	"github.com/resinker/resinker/internal/spec"
	"github.com/resinker/resinker/internal/store"
)

// commit applies the event's entity effects in declared order. Every
// change is staged and validated first; nothing touches the store unless
// the whole commit succeeds. It returns the instance the event produced
// or updated, if any, so the caller can capture it into a scenario
// binding.
func (e *Engine) commit(et *spec.EventType, payload *record.Object, binding *generate.Binding) (*store.Instance, error) {
	var produced, updated *store.Instance
	affectedKind := et.ProducesEntity

	if et.ProducesEntity != "" {
		inst, err := e.buildInstance(et.ProducesEntity, payload)
		if err != nil {
			return nil, err
		}
		produced = inst
	}

	if et.ProducesOrUpdatesEntity != "" {
		kind := et.ProducesOrUpdatesEntity
		affectedKind = kind
		existing := e.store.All(kind)
		update := len(existing) > 0 && e.selection.Float64() < et.EffectiveUpdateProbability()
		if update {
			updated = existing[e.selection.Intn(len(existing))]
		} else {
			inst, err := e.buildInstance(kind, payload)
			if err != nil {
				return nil, err
			}
			produced = inst
		}
	}

	// The update branch binds the picked instance the same way a create
	// binds the new one, so updates_entity_state can target it.
	affected := produced
	if affected == nil {
		affected = updated
	}

	staged, err := e.stageStateUpdates(et, payload, binding, affected, affectedKind)
	if err != nil {
		return nil, err
	}

	// All stages validated; apply.
	now := e.clock.Now()
	if produced != nil {
		if err := e.store.Insert(produced); err != nil {
			return nil, err
		}
	}
	if updated != nil {
		_ = e.store.Update(updated.Kind, updated.PK, now, func(in *store.Instance) {
			in.Payload = payload.Clone()
		})
	}
	for _, set := range staged {
		set.inst.State.Set(set.attr, set.value)
		set.inst.LastUpdatedAt = now
	}
	return affected, nil
}

type stagedSet struct {
	inst  *store.Instance
	attr  string
	value any
}

// stageStateUpdates computes the final state values for every
// updates_entity_state entry without mutating anything. Increments read
// earlier staged values so multiple updates to one instance compose in
// declared order.
func (e *Engine) stageStateUpdates(et *spec.EventType, payload *record.Object, binding *generate.Binding, affected *store.Instance, affectedKind string) ([]stagedSet, error) {
	var staged []stagedSet
	current := func(inst *store.Instance, attr string) (any, bool) {
		for i := len(staged) - 1; i >= 0; i-- {
			if staged[i].inst == inst && staged[i].attr == attr {
				return staged[i].value, true
			}
		}
		return inst.StateValue(attr)
	}

	for _, upd := range et.UpdatesEntityState {
		inst := e.updateTarget(upd.EntityAlias, binding, affected, affectedKind)
		if inst == nil {
			return nil, &RuntimeError{
				Code:      CodeCommitFailed,
				EventType: et.Name,
				Err:       fmt.Errorf("no bound entity for alias %q", upd.EntityAlias),
			}
		}
		if inst.State == nil {
			inst.State = record.NewObject()
		}
		for _, set := range upd.SetAttributes {
			v, err := assignmentValue(set, payload)
			if err != nil {
				return nil, &RuntimeError{Code: CodeCommitFailed, EventType: et.Name, Err: err}
			}
			staged = append(staged, stagedSet{inst: inst, attr: set.Name, value: v})
		}
		for _, inc := range upd.IncrementAttributes {
			delta, err := assignmentValue(inc, payload)
			if err != nil {
				return nil, &RuntimeError{Code: CodeCommitFailed, EventType: et.Name, Err: err}
			}
			df, ok := record.ToFloat(delta)
			if !ok {
				return nil, &RuntimeError{
					Code:      CodeCommitFailed,
					EventType: et.Name,
					Err:       fmt.Errorf("increment of %q with non-numeric delta %v", inc.Name, delta),
				}
			}
			if inc.Negate {
				df = -df
			}
			base := 0.0
			if cur, ok := current(inst, inc.Name); ok && cur != nil {
				bf, ok := record.ToFloat(cur)
				if !ok {
					return nil, &RuntimeError{
						Code:      CodeCommitFailed,
						EventType: et.Name,
						Err:       fmt.Errorf("increment of non-numeric attribute %q", inc.Name),
					}
				}
				base = bf
			}
			staged = append(staged, stagedSet{inst: inst, attr: inc.Name, value: base + df})
		}
	}
	return staged, nil
}

// updateTarget resolves an updates_entity_state alias: bound aliases
// first, then the entity this event just produced or updated.
func (e *Engine) updateTarget(alias string, binding *generate.Binding, affected *store.Instance, affectedKind string) *store.Instance {
	if insts := binding.ByAlias(alias); len(insts) > 0 {
		return insts[0]
	}
	if affected != nil && alias == affectedKind {
		return affected
	}
	return nil
}

// assignmentValue resolves one set/increment entry: a literal, a pinned
// {value}, or a payload field read.
func assignmentValue(a spec.AttrAssignment, payload *record.Object) (any, error) {
	if a.FromPayloadField != "" {
		v, ok := record.Lookup(payload, a.FromPayloadField)
		if !ok {
			return nil, fmt.Errorf("payload field %q not present for attribute %q", a.FromPayloadField, a.Name)
		}
		return v, nil
	}
	return normalizeValue(a.Literal), nil
}

// buildInstance creates an entity instance from an event payload: primary
// key from the payload, state attributes from from_field reads and
// declared defaults.
func (e *Engine) buildInstance(kind string, payload *record.Object) (*store.Instance, error) {
	ent, ok := e.doc.EntityByName(kind)
	if !ok {
		return nil, fmt.Errorf("entity kind %q not defined", kind)
	}
	pkRaw, ok := record.Lookup(payload, ent.PrimaryKey)
	if !ok || pkRaw == nil {
		return nil, fmt.Errorf("payload has no primary key field %q for %s", ent.PrimaryKey, kind)
	}
	pk, ok := pkRaw.(string)
	if !ok {
		pk = fmt.Sprint(pkRaw)
	}
	if _, exists := e.store.Get(kind, pk); exists {
		return nil, fmt.Errorf("duplicate %s primary key %q", kind, pk)
	}

	state := record.NewObject()
	for _, attr := range ent.StateAttributes {
		if attr.FromField != "" {
			if v, ok := record.Lookup(payload, attr.FromField); ok {
				state.Set(attr.Name, v)
				continue
			}
		}
		if attr.Default != nil {
			state.Set(attr.Name, normalizeValue(attr.Default))
			continue
		}
		if attr.Nullable {
			state.Set(attr.Name, nil)
		}
	}

	now := e.clock.Now()
	return &store.Instance{
		Kind:          kind,
		PK:            pk,
		Payload:       payload.Clone(),
		State:         state,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}, nil
}

// normalizeValue widens decoded YAML integers to int64 to match payload
// values.
func normalizeValue(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case []any:
		out := make([]any, len(n))
		for i, e := range n {
			out[i] = normalizeValue(e)
		}
		return out
	default:
		return v
	}
}

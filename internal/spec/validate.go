package spec

import (
	"fmt"
	"strings"

	"github.com/resinker/resinker/internal/expr"
)

// Known generator names (faker.* handled by prefix).
var knownGenerators = map[string]bool{
	"uuid_v4":             true,
	"random_int":          true,
	"random_float":        true,
	"random_alphanumeric": true,
	"choice":              true,
	"conditional_choice":  true,
	"current_timestamp":   true,
	"static":              true,
	"static_hashed":       true,
	"derived":             true,
	"from_entity":         true,
}

var knownOperators = map[string]bool{
	"equals":           true,
	"not_equals":       true,
	"greater_than":     true,
	"less_than":        true,
	"greater_or_equal": true,
	"less_or_equal":    true,
	"in":               true,
	"not_in":           true,
}

// Validate checks every cross-reference and constraint of the merged
// document and returns all violations. A document that passes is safe for
// the engine to run without further checking.
func Validate(doc *Document) []*LoadError {
	v := &validator{doc: doc}
	v.checkSchemas()
	v.checkEntities()
	v.checkEventTypes()
	v.checkScenarios()
	v.checkOutputs()
	return v.errs
}

type validator struct {
	doc  *Document
	errs []*LoadError
}

func (v *validator) addf(code, path, format string, args ...any) {
	v.errs = append(v.errs, &LoadError{Code: code, Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) checkSchemas() {
	for _, ns := range v.doc.Schemas {
		v.checkNode(ns.Node, "schemas."+ns.Name, map[string]bool{ns.Name: true})
	}
}

// checkNode validates one schema node; seen carries the $ref chain for
// cycle rejection.
func (v *validator) checkNode(n *SchemaNode, path string, seen map[string]bool) {
	if n == nil {
		return
	}
	if n.Ref != "" {
		target, ok := v.doc.SchemaByName(n.Ref)
		if !ok {
			v.addf(ErrCodeUnknownRef, path, "$ref to undefined schema %q", n.Ref)
			return
		}
		if seen[n.Ref] {
			v.addf(ErrCodeRefCycle, path, "$ref cycle through schema %q", n.Ref)
			return
		}
		chained := make(map[string]bool, len(seen)+1)
		for k := range seen {
			chained[k] = true
		}
		chained[n.Ref] = true
		v.checkNode(target, path+" -> "+n.Ref, chained)
	}
	if n.NullableProbability < 0 || n.NullableProbability > 1 {
		v.addf(ErrCodeBadGenerator, path, "nullable_probability %v outside [0,1]", n.NullableProbability)
	}
	if n.FromEntity != "" {
		if _, ok := v.doc.EntityByName(n.FromEntity); !ok {
			v.addf(ErrCodeUnknownRef, path, "from_entity references undefined entity %q", n.FromEntity)
		}
		if n.Field == "" {
			v.addf(ErrCodeBadGenerator, path, "from_entity requires a field")
		}
	}
	if n.Generator != "" && !knownGenerators[n.Generator] && !strings.HasPrefix(n.Generator, "faker.") {
		v.addf(ErrCodeBadGenerator, path, "unknown generator %q", n.Generator)
	}
	switch n.Generator {
	case "choice":
		v.checkChoiceParams(n.Params, path)
	case "conditional_choice":
		v.checkConditionalParams(n.Params, path)
	case "derived":
		src, _ := n.Params["expression"].(string)
		if src == "" {
			v.addf(ErrCodeBadExpression, path, "derived generator requires an expression")
		} else if _, err := expr.Parse(src); err != nil {
			v.addf(ErrCodeBadExpression, path, "derived expression: %v", err)
		}
	}
	for _, p := range n.Properties {
		v.checkNode(p.Node, path+"."+p.Name, seen)
	}
	if n.Items != nil {
		v.checkNode(n.Items, path+"[]", seen)
		if n.MinItems != nil && n.MaxItems != nil && *n.MinItems > *n.MaxItems {
			v.addf(ErrCodeBadGenerator, path, "min_items %d exceeds max_items %d", *n.MinItems, *n.MaxItems)
		}
	}
}

func (v *validator) checkChoiceParams(params map[string]any, path string) {
	choices, _ := params["choices"].([]any)
	if len(choices) == 0 {
		v.addf(ErrCodeBadGenerator, path, "choice generator requires non-empty choices")
		return
	}
	if rawWeights, ok := params["weights"]; ok {
		weights, _ := rawWeights.([]any)
		if len(weights) != len(choices) {
			v.addf(ErrCodeBadGenerator, path, "choice weights length %d does not match %d choices", len(weights), len(choices))
			return
		}
		var total float64
		for _, w := range weights {
			f, ok := toFloat(w)
			if !ok || f < 0 {
				v.addf(ErrCodeBadGenerator, path, "choice weight %v is not a non-negative number", w)
				return
			}
			total += f
		}
		if total <= 0 {
			v.addf(ErrCodeBadGenerator, path, "choice weights must sum > 0")
		}
	}
}

func (v *validator) checkConditionalParams(params map[string]any, path string) {
	if field, _ := params["condition_field"].(string); field == "" {
		v.addf(ErrCodeBadGenerator, path, "conditional_choice requires condition_field")
	}
	cases, _ := params["cases"].([]any)
	if len(cases) == 0 {
		v.addf(ErrCodeBadGenerator, path, "conditional_choice requires cases")
	}
}

func (v *validator) checkEntities() {
	for i := range v.doc.Entities {
		e := &v.doc.Entities[i]
		path := "entities." + e.Name
		if _, ok := v.doc.SchemaByName(e.Schema); !ok {
			v.addf(ErrCodeUnknownRef, path, "schema %q not defined", e.Schema)
		}
		if e.PrimaryKey == "" {
			v.addf(ErrCodeUnknownRef, path, "primary_key is required")
		}
	}
}

func (v *validator) stateAttrDefined(entityName, attr string) bool {
	e, ok := v.doc.EntityByName(entityName)
	if !ok {
		return false
	}
	for _, a := range e.StateAttributes {
		if a.Name == attr {
			return true
		}
	}
	return false
}

func (v *validator) checkFilter(clauses []FilterClause, entityName, path string) {
	for _, cl := range clauses {
		if !knownOperators[cl.Operator] {
			v.addf(ErrCodeBadFilter, path, "unknown operator %q", cl.Operator)
		}
		if strings.HasPrefix(cl.Field, "state.") {
			attr := cl.Field[len("state."):]
			if !v.stateAttrDefined(entityName, attr) {
				v.addf(ErrCodeBadFilter, path, "entity %q has no state attribute %q", entityName, attr)
			}
		}
	}
}

func (v *validator) checkEventTypes() {
	for i := range v.doc.EventTypes {
		et := &v.doc.EventTypes[i]
		path := "event_types." + et.Name
		if _, ok := v.doc.SchemaByName(et.PayloadSchema); !ok {
			v.addf(ErrCodeUnknownRef, path, "payload_schema %q not defined", et.PayloadSchema)
		}
		if et.ProducesEntity != "" && et.ProducesOrUpdatesEntity != "" {
			v.addf(ErrCodeUnknownRef, path, "produces_entity and produces_or_updates_entity are mutually exclusive")
		}
		for _, kind := range []string{et.ProducesEntity, et.ProducesOrUpdatesEntity} {
			if kind != "" {
				if _, ok := v.doc.EntityByName(kind); !ok {
					v.addf(ErrCodeUnknownRef, path, "produced entity %q not defined", kind)
				}
			}
		}
		if p := et.UpdateExistingProbability; p != nil && (*p < 0 || *p > 1) {
			v.addf(ErrCodeUnknownRef, path, "update_existing_probability %v outside [0,1]", *p)
		}
		if w := et.FrequencyWeight; w != nil && *w < 0 {
			v.addf(ErrCodeUnknownRef, path, "frequency_weight must be >= 0")
		}
		aliases := map[string]string{}
		for _, c := range et.ConsumesEntities {
			cpath := path + ".consumes_entities." + c.Alias
			if _, ok := v.doc.EntityByName(c.Name); !ok {
				v.addf(ErrCodeUnknownRef, cpath, "entity %q not defined", c.Name)
			}
			if c.Alias != "" {
				aliases[c.Alias] = c.Name
			}
			v.checkFilter(c.SelectionFilter, c.Name, cpath)
		}
		produced := et.ProducesEntity
		if produced == "" {
			produced = et.ProducesOrUpdatesEntity
		}
		for _, u := range et.UpdatesEntityState {
			upath := path + ".updates_entity_state." + u.EntityAlias
			kind, ok := aliases[u.EntityAlias]
			if !ok {
				if _, isEntity := v.doc.EntityByName(u.EntityAlias); isEntity && u.EntityAlias == produced {
					kind = u.EntityAlias
				} else if isEntity {
					// Alias matches an entity kind not produced by this
					// event; resolvable only when a consumption of that
					// kind exists.
					kind = u.EntityAlias
					found := false
					for _, c := range et.ConsumesEntities {
						if c.Name == kind {
							found = true
							break
						}
					}
					if !found {
						v.addf(ErrCodeUnknownRef, upath, "alias %q is neither consumed nor produced by this event", u.EntityAlias)
					}
				} else {
					v.addf(ErrCodeUnknownRef, upath, "alias %q is neither consumed nor produced by this event", u.EntityAlias)
					continue
				}
			}
			for _, set := range u.SetAttributes {
				if !v.stateAttrDefined(kind, set.Name) {
					v.addf(ErrCodeBadFilter, upath, "entity %q has no state attribute %q", kind, set.Name)
				}
			}
			for _, inc := range u.IncrementAttributes {
				if !v.stateAttrDefined(kind, inc.Name) {
					v.addf(ErrCodeBadFilter, upath, "entity %q has no state attribute %q", kind, inc.Name)
				}
			}
		}
		if ma := et.MaxActive; ma != nil {
			mpath := path + ".max_active_instances_of_state"
			if _, ok := v.doc.EntityByName(ma.Entity); !ok {
				v.addf(ErrCodeUnknownRef, mpath, "entity %q not defined", ma.Entity)
			} else if !v.stateAttrDefined(ma.Entity, ma.Attribute) {
				v.addf(ErrCodeBadFilter, mpath, "entity %q has no state attribute %q", ma.Entity, ma.Attribute)
			}
			if ma.MaxCount < 0 {
				v.addf(ErrCodeUnknownRef, mpath, "max_count must be >= 0")
			}
		}
	}
}

func (v *validator) checkScenarios() {
	for i := range v.doc.Scenarios {
		sc := &v.doc.Scenarios[i]
		path := "scenarios." + sc.Name
		if w := sc.InitiationWeight; w != nil && *w < 0 {
			v.addf(ErrCodeBadScenario, path, "initiation_weight must be >= 0")
		}
		if len(sc.Steps) == 0 {
			v.addf(ErrCodeBadScenario, path, "scenario has no steps")
		}
		for _, req := range sc.RequiresInitialEntities {
			rpath := path + ".requires_initial_entities." + req.Alias
			if _, ok := v.doc.EntityByName(req.Name); !ok {
				v.addf(ErrCodeUnknownRef, rpath, "entity %q not defined", req.Name)
			}
			v.checkFilter(req.SelectionFilter, req.Name, rpath)
		}
		for j, step := range sc.Steps {
			spath := fmt.Sprintf("%s.steps[%d]", path, j)
			if _, ok := v.doc.EventTypeByName(step.EventType); !ok {
				v.addf(ErrCodeBadScenario, spath, "event type %q not defined", step.EventType)
			}
			if d := step.Delay; d != nil && (d.MinSeconds < 0 || d.MaxSeconds < d.MinSeconds) {
				v.addf(ErrCodeBadScenario, spath, "invalid delay range [%v, %v]", d.MinSeconds, d.MaxSeconds)
			}
			if l := step.Loop; l != nil && (l.MinCount < 0 || l.MaxCount < l.MinCount) {
				v.addf(ErrCodeBadScenario, spath, "invalid loop range [%d, %d]", l.MinCount, l.MaxCount)
			}
		}
	}
}

func (v *validator) checkOutputs() {
	for i, o := range v.doc.Outputs {
		path := fmt.Sprintf("outputs[%d]", i)
		switch o.Type {
		case "stdout":
		case "file":
			if o.FilePath == "" {
				v.addf(ErrCodeBadOutput, path, "file sink requires file_path")
			}
		case "kafka":
			if o.KafkaBrokers == "" {
				v.addf(ErrCodeBadOutput, path, "kafka sink requires kafka_brokers")
			}
		default:
			v.addf(ErrCodeBadOutput, path, "unknown sink type %q", o.Type)
		}
		if o.Format != "" && o.Format != "json" && o.Format != "json_pretty" {
			v.addf(ErrCodeBadOutput, path, "unknown format %q", o.Format)
		}
	}
	if s := v.doc.SimulationSettings.Duration; s != "" {
		if _, err := ParseDuration(s); err != nil {
			v.addf(ErrCodeBadOutput, "simulation_settings.duration", "%v", err)
		}
	}
	if m := v.doc.SimulationSettings.TimeProgression.TimeMultiplier; m < 0 {
		v.addf(ErrCodeBadOutput, "simulation_settings.time_progression", "time_multiplier must be >= 0")
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

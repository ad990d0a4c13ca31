// Package generate interprets payload schemas: it walks a schema tree and
// produces ordered payload objects, running the configured generator for
// each leaf. All randomness flows through the single generator stream
// handed in at construction, so payloads are reproducible per seed.
package generate

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/resinker/resinker/internal/randx"
	"github.com/resinker/resinker/internal/record"
	"github.com/resinker/resinker/internal/spec"
	"github.com/resinker/resinker/internal/store"
)

// Provider resolves faker.<method> generators. Implemented by the faker
// package; the interpreter depends only on this interface.
type Provider interface {
	Generate(method string, params map[string]any) (any, error)
}

// Clock supplies the simulation time for current_timestamp fields.
type Clock interface {
	Now() time.Time
}

// Context carries the per-event inputs of one payload generation.
type Context struct {
	Clock     Clock
	Store     *store.Store
	Binding   *Binding
	Overrides map[string]any // scenario payload_overrides, top-level fields only
}

// Interpreter generates payloads for a validated document.
type Interpreter struct {
	doc      *spec.Document
	r        *rand.Rand
	provider Provider
}

// New builds an interpreter drawing from r (the generator sub-stream).
func New(doc *spec.Document, r *rand.Rand, provider Provider) *Interpreter {
	return &Interpreter{doc: doc, r: r, provider: provider}
}

// scope gives a field visibility over earlier siblings and enclosing
// objects, innermost first.
type scope struct {
	parent *scope
	fields *record.Object
}

func (s *scope) lookup(name string) (any, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.fields != nil {
			if v, ok := cur.fields.Get(name); ok {
				return v, true
			}
		}
	}
	return nil, false
}

// Payload generates the named schema as an event payload. Scenario
// overrides pin top-level fields: an overridden field is written verbatim
// and its generator never runs; override keys outside the schema append
// after the declared fields.
func (it *Interpreter) Payload(schemaName string, ctx *Context) (*record.Object, error) {
	node, ok := it.doc.SchemaByName(schemaName)
	if !ok {
		return nil, faultf(schemaName, "schema %q not defined", schemaName)
	}
	if node.Ref != "" {
		resolved, err := it.resolveRef(node, schemaName)
		if err != nil {
			return nil, err
		}
		node = resolved
	}
	if node.Type != "object" && node.Type != "" {
		return nil, faultf(schemaName, "payload schema must be an object, got %q", node.Type)
	}

	obj := record.NewObject()
	sc := &scope{fields: obj}
	for _, p := range node.Properties {
		if ctx != nil && ctx.Overrides != nil {
			if v, ok := ctx.Overrides[p.Name]; ok {
				obj.Set(p.Name, normalize(v))
				continue
			}
		}
		v, err := it.generate(p.Node, ctx, sc, schemaName+"."+p.Name)
		if err != nil {
			return nil, err
		}
		obj.Set(p.Name, v)
	}
	if ctx != nil {
		for _, k := range sortedExtraKeys(ctx.Overrides, obj) {
			obj.Set(k, normalize(ctx.Overrides[k]))
		}
	}
	return obj, nil
}

// Value generates a single schema node outside a payload, used for
// entity state defaults sourced from schemas.
func (it *Interpreter) Value(node *spec.SchemaNode, ctx *Context, path string) (any, error) {
	return it.generate(node, ctx, &scope{}, path)
}

func (it *Interpreter) generate(node *spec.SchemaNode, ctx *Context, sc *scope, path string) (any, error) {
	if node == nil {
		return nil, faultf(path, "missing schema node")
	}
	if node.FromEntity != "" {
		return it.fromEntity(node, ctx, path)
	}
	if node.Ref != "" {
		resolved, err := it.resolveRef(node, path)
		if err != nil {
			return nil, err
		}
		node = resolved
	}
	if p := node.NullableProbability; p > 0 && it.r.Float64() < p {
		return nil, nil
	}
	if node.HasValue {
		return normalize(node.Value), nil
	}
	if node.Generator != "" {
		return it.runGenerator(node, ctx, sc, path)
	}
	switch node.Type {
	case "object":
		return it.object(node, ctx, sc, path)
	case "array":
		return it.array(node, ctx, sc, path)
	case "string", "":
		return it.defaultString(node, ctx)
	case "number":
		return it.r.Float64() * 100, nil
	case "integer":
		return int64(it.r.Intn(101)), nil
	case "boolean":
		return it.r.Intn(2) == 1, nil
	default:
		return nil, faultf(path, "unsupported schema type %q", node.Type)
	}
}

// resolveRef merges a $ref target with the referring node; local keys win.
func (it *Interpreter) resolveRef(node *spec.SchemaNode, path string) (*spec.SchemaNode, error) {
	target, ok := it.doc.SchemaByName(node.Ref)
	if !ok {
		return nil, faultf(path, "$ref to undefined schema %q", node.Ref)
	}
	merged := *target
	if node.Type != "" {
		merged.Type = node.Type
	}
	if node.Format != "" {
		merged.Format = node.Format
	}
	if node.Generator != "" {
		merged.Generator = node.Generator
	}
	if node.Params != nil {
		merged.Params = node.Params
	}
	if node.NullableProbability != 0 {
		merged.NullableProbability = node.NullableProbability
	}
	if node.HasValue {
		merged.Value = node.Value
		merged.HasValue = true
	}
	if len(node.Properties) > 0 {
		merged.Properties = node.Properties
	}
	if node.Items != nil {
		merged.Items = node.Items
	}
	if node.MinItems != nil {
		merged.MinItems = node.MinItems
	}
	if node.MaxItems != nil {
		merged.MaxItems = node.MaxItems
	}
	return &merged, nil
}

func (it *Interpreter) object(node *spec.SchemaNode, ctx *Context, sc *scope, path string) (*record.Object, error) {
	obj := record.NewObject()
	inner := &scope{parent: sc, fields: obj}
	for _, p := range node.Properties {
		v, err := it.generate(p.Node, ctx, inner, path+"."+p.Name)
		if err != nil {
			return nil, err
		}
		obj.Set(p.Name, v)
	}
	return obj, nil
}

func (it *Interpreter) array(node *spec.SchemaNode, ctx *Context, sc *scope, path string) ([]any, error) {
	if node.Items == nil {
		return nil, faultf(path, "array schema without items")
	}
	min := 0
	if node.MinItems != nil {
		min = *node.MinItems
	}
	max := min + 5
	if node.MaxItems != nil {
		max = *node.MaxItems
	}
	if max < min {
		max = min
	}
	n := min + it.r.Intn(max-min+1)
	items := make([]any, 0, n)
	for i := 0; i < n; i++ {
		v, err := it.generate(node.Items, ctx, sc, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, nil
}

func (it *Interpreter) fromEntity(node *spec.SchemaNode, ctx *Context, path string) (any, error) {
	if node.Field == "" {
		return nil, faultf(path, "from_entity requires a field")
	}
	var inst *store.Instance
	if ctx != nil {
		if insts := ctx.Binding.ByKind(node.FromEntity); len(insts) > 0 {
			inst = insts[0]
		} else if ctx.Store != nil {
			if all := ctx.Store.All(node.FromEntity); len(all) > 0 {
				inst = all[it.r.Intn(len(all))]
			}
		}
	}
	if inst == nil {
		return nil, faultf(path, "no %s instance available", node.FromEntity)
	}
	if attr, ok := strings.CutPrefix(node.Field, "state."); ok {
		v, _ := inst.StateValue(attr)
		return v, nil
	}
	v, _ := record.Lookup(inst.Payload, node.Field)
	return v, nil
}

func (it *Interpreter) defaultString(node *spec.SchemaNode, ctx *Context) (string, error) {
	switch node.Format {
	case "iso8601":
		return it.now(ctx).Format(time.RFC3339), nil
	case "date":
		return it.now(ctx).Format("2006-01-02"), nil
	case "time":
		return it.now(ctx).Format("15:04:05"), nil
	}
	if it.provider != nil {
		v, err := it.provider.Generate("word", nil)
		if err == nil {
			if s, ok := v.(string); ok {
				return s, nil
			}
		}
	}
	return it.alphanumeric(8), nil
}

func (it *Interpreter) now(ctx *Context) time.Time {
	if ctx != nil && ctx.Clock != nil {
		return ctx.Clock.Now()
	}
	return time.Now().UTC()
}

const alnum = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func (it *Interpreter) alphanumeric(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alnum[it.r.Intn(len(alnum))]
	}
	return string(b)
}

// uuidV4 draws a version-4 UUID from the generator stream.
func (it *Interpreter) uuidV4() (string, error) {
	id, err := uuid.NewRandomFromReader(it.r)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// weightedChoice picks from choices, optionally weighted.
func (it *Interpreter) weightedChoice(choices []any, weights []any, path string) (any, error) {
	if len(choices) == 0 {
		return nil, faultf(path, "choice generator requires choices")
	}
	if len(weights) == 0 {
		return normalize(choices[it.r.Intn(len(choices))]), nil
	}
	if len(weights) != len(choices) {
		return nil, faultf(path, "weights length %d does not match %d choices", len(weights), len(choices))
	}
	ws := make([]float64, len(weights))
	for i, w := range weights {
		f, ok := record.ToFloat(w)
		if !ok {
			return nil, faultf(path, "weight %v is not numeric", w)
		}
		ws[i] = f
	}
	idx := randx.WeightedIndex(it.r, ws)
	if idx < 0 {
		return nil, faultf(path, "choice weights sum to zero")
	}
	return normalize(choices[idx]), nil
}

// roundTo rounds half away from zero to the given number of decimals.
func roundTo(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	if v < 0 {
		return -math.Floor(-v*p+0.5) / p
	}
	return math.Floor(v*p+0.5) / p
}

// normalize converts decoded YAML values to the engine's value set:
// integers widen to int64, maps are rejected upstream so only scalars and
// slices pass through.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case []any:
		out := make([]any, len(n))
		for i, e := range n {
			out[i] = normalize(e)
		}
		return out
	default:
		return v
	}
}

// sortedExtraKeys returns override keys absent from the generated object,
// in lexical order so output stays stable.
func sortedExtraKeys(overrides map[string]any, obj *record.Object) []string {
	if len(overrides) == 0 {
		return nil
	}
	var extra []string
	for k := range overrides {
		if _, ok := obj.Get(k); !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return extra
}

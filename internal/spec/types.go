package spec

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document is a fully merged Resinker specification.
type Document struct {
	Version            string             `yaml:"version"`
	Imports            []string           `yaml:"imports"`
	SimulationSettings SimulationSettings `yaml:"simulation_settings"`
	Schemas            NamedSchemas       `yaml:"schemas"`
	Entities           Entities           `yaml:"entities"`
	EventTypes         EventTypes         `yaml:"event_types"`
	Scenarios          Scenarios          `yaml:"scenarios"`
	Outputs            []OutputConfig     `yaml:"outputs"`
}

// SchemaByName returns the schema node registered under name.
func (d *Document) SchemaByName(name string) (*SchemaNode, bool) {
	for i := range d.Schemas {
		if d.Schemas[i].Name == name {
			return d.Schemas[i].Node, true
		}
	}
	return nil, false
}

// EntityByName returns the entity definition for a kind.
func (d *Document) EntityByName(name string) (*Entity, bool) {
	for i := range d.Entities {
		if d.Entities[i].Name == name {
			return &d.Entities[i], true
		}
	}
	return nil, false
}

// EventTypeByName returns the event type definition.
func (d *Document) EventTypeByName(name string) (*EventType, bool) {
	for i := range d.EventTypes {
		if d.EventTypes[i].Name == name {
			return &d.EventTypes[i], true
		}
	}
	return nil, false
}

// ScenarioByName returns the scenario definition.
func (d *Document) ScenarioByName(name string) (*Scenario, bool) {
	for i := range d.Scenarios {
		if d.Scenarios[i].Name == name {
			return &d.Scenarios[i], true
		}
	}
	return nil, false
}

// SimulationSettings holds the run-level knobs.
type SimulationSettings struct {
	Duration            string          `yaml:"duration"`
	TotalEvents         *int            `yaml:"total_events"`
	InitialEntityCounts EntityCounts    `yaml:"initial_entity_counts"`
	TimeProgression     TimeProgression `yaml:"time_progression"`
	RandomSeed          *int64          `yaml:"random_seed"`
}

// TimeProgression controls the synthetic clock.
type TimeProgression struct {
	StartTime      string  `yaml:"start_time"`
	TimeMultiplier float64 `yaml:"time_multiplier"`
}

// EntityCount pairs an entity kind with its initial instance count.
type EntityCount struct {
	Entity string
	Count  int
}

// EntityCounts preserves the declaration order of initial_entity_counts.
type EntityCounts []EntityCount

// UnmarshalYAML decodes the mapping in source order.
func (c *EntityCounts) UnmarshalYAML(node *yaml.Node) error {
	return eachMappingEntry(node, "initial_entity_counts", func(key string, val *yaml.Node) error {
		var n int
		if err := val.Decode(&n); err != nil {
			return fmt.Errorf("count for %q: %w", key, err)
		}
		*c = append(*c, EntityCount{Entity: key, Count: n})
		return nil
	})
}

// NamedSchema is one entry of the top-level schemas mapping.
type NamedSchema struct {
	Name string
	Node *SchemaNode
}

// NamedSchemas preserves schema declaration order.
type NamedSchemas []NamedSchema

// UnmarshalYAML decodes the mapping in source order.
func (s *NamedSchemas) UnmarshalYAML(node *yaml.Node) error {
	return eachMappingEntry(node, "schemas", func(key string, val *yaml.Node) error {
		sn := &SchemaNode{}
		if err := val.Decode(sn); err != nil {
			return fmt.Errorf("schema %q: %w", key, err)
		}
		*s = append(*s, NamedSchema{Name: key, Node: sn})
		return nil
	})
}

// SchemaNode is one node of the schema tree: a primitive with a generator,
// an object with ordered properties, an array, or a $ref. A node may also
// be entity-sourced (from_entity + field).
type SchemaNode struct {
	Type                string
	Format              string
	Generator           string
	Params              map[string]any
	Description         string
	NullableProbability float64
	FromEntity          string
	Field               string
	Ref                 string
	Value               any // literal pinned by the spec (static shorthand)
	HasValue            bool
	Properties          []Property
	Items               *SchemaNode
	MinItems            *int
	MaxItems            *int
}

// Property is an object field with its declared position.
type Property struct {
	Name string
	Node *SchemaNode
}

// PropertyByName returns the field schema for name.
func (n *SchemaNode) PropertyByName(name string) (*SchemaNode, bool) {
	for i := range n.Properties {
		if n.Properties[i].Name == name {
			return n.Properties[i].Node, true
		}
	}
	return nil, false
}

// UnmarshalYAML decodes a schema node, keeping properties in declared
// order and rejecting unknown keys.
func (n *SchemaNode) UnmarshalYAML(node *yaml.Node) error {
	return eachMappingEntry(node, "schema node", func(key string, val *yaml.Node) error {
		switch key {
		case "type":
			return val.Decode(&n.Type)
		case "format":
			return val.Decode(&n.Format)
		case "generator":
			return val.Decode(&n.Generator)
		case "params":
			return val.Decode(&n.Params)
		case "description":
			return val.Decode(&n.Description)
		case "nullable_probability":
			return val.Decode(&n.NullableProbability)
		case "from_entity":
			return val.Decode(&n.FromEntity)
		case "field":
			return val.Decode(&n.Field)
		case "$ref":
			var ref string
			if err := val.Decode(&ref); err != nil {
				return err
			}
			n.Ref = TrimSchemaRef(ref)
			return nil
		case "value":
			n.HasValue = true
			return val.Decode(&n.Value)
		case "properties":
			return eachMappingEntry(val, "properties", func(propName string, propVal *yaml.Node) error {
				child := &SchemaNode{}
				if err := propVal.Decode(child); err != nil {
					return fmt.Errorf("property %q: %w", propName, err)
				}
				n.Properties = append(n.Properties, Property{Name: propName, Node: child})
				return nil
			})
		case "items":
			n.Items = &SchemaNode{}
			return val.Decode(n.Items)
		case "min_items":
			n.MinItems = new(int)
			return val.Decode(n.MinItems)
		case "max_items":
			n.MaxItems = new(int)
			return val.Decode(n.MaxItems)
		default:
			return fmt.Errorf("unknown schema key %q", key)
		}
	})
}

// TrimSchemaRef strips the "#/schemas/" prefix from a schema reference.
// Bare names pass through unchanged.
func TrimSchemaRef(ref string) string {
	const prefix = "#/schemas/"
	if len(ref) > len(prefix) && ref[:len(prefix)] == prefix {
		return ref[len(prefix):]
	}
	return ref
}

// Entity declares a stateful entity kind.
type Entity struct {
	Name            string
	Schema          string
	PrimaryKey      string
	StateAttributes []StateAttribute
}

// StateAttribute is one engine-managed attribute on an entity kind.
type StateAttribute struct {
	Name      string
	Type      string `yaml:"type"`
	Default   any    `yaml:"default"`
	Nullable  bool   `yaml:"nullable"`
	FromField string `yaml:"from_field"`
}

// Entities preserves entity declaration order.
type Entities []Entity

// UnmarshalYAML decodes the mapping in source order.
func (e *Entities) UnmarshalYAML(node *yaml.Node) error {
	return eachMappingEntry(node, "entities", func(key string, val *yaml.Node) error {
		ent := Entity{Name: key}
		if err := eachMappingEntry(val, "entity "+key, func(field string, fv *yaml.Node) error {
			switch field {
			case "schema":
				var ref string
				if err := fv.Decode(&ref); err != nil {
					return err
				}
				ent.Schema = TrimSchemaRef(ref)
				return nil
			case "primary_key":
				return fv.Decode(&ent.PrimaryKey)
			case "state_attributes":
				return eachMappingEntry(fv, "state_attributes", func(attrName string, av *yaml.Node) error {
					attr := StateAttribute{Name: attrName}
					if err := av.Decode(&attr); err != nil {
						return fmt.Errorf("state attribute %q: %w", attrName, err)
					}
					ent.StateAttributes = append(ent.StateAttributes, attr)
					return nil
				})
			default:
				return fmt.Errorf("unknown entity key %q", field)
			}
		}); err != nil {
			return err
		}
		*e = append(*e, ent)
		return nil
	})
}

// FilterClause is one conjunct of a selection filter.
type FilterClause struct {
	Field    string `yaml:"field"`
	Operator string `yaml:"operator"`
	Value    any    `yaml:"value"`
}

// Consumption declares an entity dependency of an event type (or a
// scenario's initial requirement).
type Consumption struct {
	Name            string         `yaml:"name"`
	Alias           string         `yaml:"alias"`
	SelectionFilter []FilterClause `yaml:"selection_filter"`
	MinRequired     int            `yaml:"min_required"`
}

// EffectiveMinRequired applies the default of 1.
func (c *Consumption) EffectiveMinRequired() int {
	if c.MinRequired < 1 {
		return 1
	}
	return c.MinRequired
}

// AttrAssignment is one entry of set_attributes or increment_attributes.
// Either Literal holds a YAML literal, or FromPayloadField names the
// payload field supplying the value. Negate flips the sign of increments.
type AttrAssignment struct {
	Name             string
	Literal          any
	FromPayloadField string
	Negate           bool
}

// AttrAssignments preserves declaration order of an attribute mapping.
type AttrAssignments []AttrAssignment

// UnmarshalYAML decodes either scalar literals or
// {from_payload_field, negate} objects, in source order.
func (a *AttrAssignments) UnmarshalYAML(node *yaml.Node) error {
	return eachMappingEntry(node, "attributes", func(key string, val *yaml.Node) error {
		assign := AttrAssignment{Name: key}
		if val.Kind == yaml.MappingNode {
			var spec struct {
				FromPayloadField string `yaml:"from_payload_field"`
				Value            any    `yaml:"value"`
				Negate           bool   `yaml:"negate"`
			}
			if err := val.Decode(&spec); err != nil {
				return fmt.Errorf("attribute %q: %w", key, err)
			}
			assign.FromPayloadField = spec.FromPayloadField
			assign.Literal = spec.Value
			assign.Negate = spec.Negate
		} else {
			if err := val.Decode(&assign.Literal); err != nil {
				return fmt.Errorf("attribute %q: %w", key, err)
			}
		}
		*a = append(*a, assign)
		return nil
	})
}

// StateUpdate mutates one bound entity's state after an event commits.
type StateUpdate struct {
	EntityAlias         string          `yaml:"entity_alias"`
	SetAttributes       AttrAssignments `yaml:"set_attributes"`
	IncrementAttributes AttrAssignments `yaml:"increment_attributes"`
}

// MaxActiveState caps how many instances of an entity kind may hold a
// given state attribute value at once.
type MaxActiveState struct {
	Entity    string `yaml:"entity"`
	Attribute string `yaml:"attribute"`
	Value     any    `yaml:"value"`
	MaxCount  int    `yaml:"max_count"`
}

// EventType declares a producible event.
type EventType struct {
	Name                      string
	PayloadSchema             string          `yaml:"payload_schema"`
	ProducesEntity            string          `yaml:"produces_entity"`
	ProducesOrUpdatesEntity   string          `yaml:"produces_or_updates_entity"`
	UpdateExistingProbability *float64        `yaml:"update_existing_probability"`
	ConsumesEntities          []Consumption   `yaml:"consumes_entities"`
	UpdatesEntityState        []StateUpdate   `yaml:"updates_entity_state"`
	FrequencyWeight           *float64        `yaml:"frequency_weight"`
	MaxActive                 *MaxActiveState `yaml:"max_active_instances_of_state"`
}

// EffectiveWeight applies the default frequency weight of 1.
func (e *EventType) EffectiveWeight() float64 {
	if e.FrequencyWeight == nil {
		return 1
	}
	return *e.FrequencyWeight
}

// EffectiveUpdateProbability applies the default of 0.5.
func (e *EventType) EffectiveUpdateProbability() float64 {
	if e.UpdateExistingProbability == nil {
		return 0.5
	}
	return *e.UpdateExistingProbability
}

// EventTypes preserves event-type declaration order.
type EventTypes []EventType

// UnmarshalYAML decodes the mapping in source order.
func (e *EventTypes) UnmarshalYAML(node *yaml.Node) error {
	return eachMappingEntry(node, "event_types", func(key string, val *yaml.Node) error {
		et := EventType{Name: key}
		if err := val.Decode(&et); err != nil {
			return fmt.Errorf("event type %q: %w", key, err)
		}
		et.PayloadSchema = TrimSchemaRef(et.PayloadSchema)
		*e = append(*e, et)
		return nil
	})
}

// DelayRange samples a delay uniformly from [MinSeconds, MaxSeconds].
type DelayRange struct {
	MinSeconds float64 `yaml:"min_seconds"`
	MaxSeconds float64 `yaml:"max_seconds"`
}

// Loop repeats a scenario step a sampled number of times.
type Loop struct {
	MinCount          int         `yaml:"min_count"`
	MaxCount          int         `yaml:"max_count"`
	DelayBetweenLoops *DelayRange `yaml:"delay_between_loops"`
}

// Step is one step of a scenario.
type Step struct {
	EventType        string         `yaml:"event_type"`
	PayloadOverrides map[string]any `yaml:"payload_overrides"`
	Delay            *DelayRange    `yaml:"delay_after_previous_step"`
	Loop             *Loop          `yaml:"loop"`
}

// Scenario is a multi-step user journey.
type Scenario struct {
	Name                    string
	Description             string        `yaml:"description"`
	InitiationWeight        *float64      `yaml:"initiation_weight"`
	RequiresInitialEntities []Consumption `yaml:"requires_initial_entities"`
	Steps                   []Step        `yaml:"steps"`
}

// EffectiveWeight applies the default initiation weight of 1.
func (s *Scenario) EffectiveWeight() float64 {
	if s.InitiationWeight == nil {
		return 1
	}
	return *s.InitiationWeight
}

// Scenarios preserves scenario declaration order.
type Scenarios []Scenario

// UnmarshalYAML decodes the mapping in source order.
func (s *Scenarios) UnmarshalYAML(node *yaml.Node) error {
	return eachMappingEntry(node, "scenarios", func(key string, val *yaml.Node) error {
		sc := Scenario{Name: key}
		if err := val.Decode(&sc); err != nil {
			return fmt.Errorf("scenario %q: %w", key, err)
		}
		*s = append(*s, sc)
		return nil
	})
}

// OutputConfig configures one sink.
type OutputConfig struct {
	Type    string `yaml:"type"`
	Enabled *bool  `yaml:"enabled"`
	Format  string `yaml:"format"`

	// File sink.
	FilePath     string `yaml:"file_path"`
	FileRotation string `yaml:"file_rotation"`

	// Kafka sink.
	TopicMapping     map[string]string `yaml:"topic_mapping"`
	DefaultTopic     string            `yaml:"default_topic"`
	KafkaBrokers     string            `yaml:"kafka_brokers"`
	SecurityProtocol string            `yaml:"security_protocol"`
	SASLMechanism    string            `yaml:"sasl_mechanism"`
	SASLUsername     string            `yaml:"sasl_plain_username"`
	SASLPassword     string            `yaml:"sasl_plain_password"`
}

// IsEnabled applies the default of true.
func (o *OutputConfig) IsEnabled() bool {
	return o.Enabled == nil || *o.Enabled
}

// eachMappingEntry iterates a YAML mapping node in source order, calling
// fn for each key/value pair.
func eachMappingEntry(node *yaml.Node, what string, fn func(key string, val *yaml.Node) error) error {
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%s: expected a mapping, got %s", what, nodeKindName(node.Kind))
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var key string
		if err := node.Content[i].Decode(&key); err != nil {
			return fmt.Errorf("%s: mapping key: %w", what, err)
		}
		if err := fn(key, node.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func nodeKindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}

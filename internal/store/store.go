// Package store holds the run-scoped entity population. The store is a
// plain in-memory structure: one simulation run owns one store, nothing
// outlives the run, and iteration follows insertion order so selection
// stays deterministic.
package store

import (
	"fmt"
	"time"

	"github.com/resinker/resinker/internal/record"
	"github.com/resinker/resinker/internal/spec"
)

// Instance is one live entity.
type Instance struct {
	Kind          string
	PK            string
	Payload       *record.Object
	State         *record.Object
	CreatedAt     time.Time
	LastUpdatedAt time.Time
}

// StateValue reads a state attribute.
func (in *Instance) StateValue(name string) (any, bool) {
	if in.State == nil {
		return nil, false
	}
	return in.State.Get(name)
}

// Store indexes instances by kind and primary key. Not safe for
// concurrent use; the engine is the single writer.
type Store struct {
	kinds map[string]*kindBucket
	order []string // kind registration order
}

type kindBucket struct {
	byPK      map[string]*Instance
	instances []*Instance // insertion order
}

// New returns an empty store.
func New() *Store {
	return &Store{kinds: make(map[string]*kindBucket)}
}

func (s *Store) bucket(kind string) *kindBucket {
	b, ok := s.kinds[kind]
	if !ok {
		b = &kindBucket{byPK: make(map[string]*Instance)}
		s.kinds[kind] = b
		s.order = append(s.order, kind)
	}
	return b
}

// Insert adds a new instance. The primary key must be unique within the
// kind.
func (s *Store) Insert(in *Instance) error {
	b := s.bucket(in.Kind)
	if _, exists := b.byPK[in.PK]; exists {
		return fmt.Errorf("duplicate %s primary key %q", in.Kind, in.PK)
	}
	b.byPK[in.PK] = in
	b.instances = append(b.instances, in)
	return nil
}

// Get returns the instance with the given primary key.
func (s *Store) Get(kind, pk string) (*Instance, bool) {
	b, ok := s.kinds[kind]
	if !ok {
		return nil, false
	}
	in, ok := b.byPK[pk]
	return in, ok
}

// Update applies mutate to the instance and stamps LastUpdatedAt.
func (s *Store) Update(kind, pk string, now time.Time, mutate func(*Instance)) error {
	in, ok := s.Get(kind, pk)
	if !ok {
		return fmt.Errorf("no %s instance with primary key %q", kind, pk)
	}
	mutate(in)
	in.LastUpdatedAt = now
	return nil
}

// Select returns the instances of kind matching every filter clause, in
// insertion order.
func (s *Store) Select(kind string, filter []spec.FilterClause) []*Instance {
	b, ok := s.kinds[kind]
	if !ok {
		return nil
	}
	var out []*Instance
	for _, in := range b.instances {
		if Matches(in, filter) {
			out = append(out, in)
		}
	}
	return out
}

// CountWhere counts instances of kind whose state attribute equals value.
func (s *Store) CountWhere(kind, attribute string, value any) int {
	b, ok := s.kinds[kind]
	if !ok {
		return 0
	}
	n := 0
	for _, in := range b.instances {
		if v, ok := in.StateValue(attribute); ok && record.Equal(v, value) {
			n++
		}
	}
	return n
}

// Count returns the number of instances of kind.
func (s *Store) Count(kind string) int {
	b, ok := s.kinds[kind]
	if !ok {
		return 0
	}
	return len(b.instances)
}

// All returns every instance of kind in insertion order.
func (s *Store) All(kind string) []*Instance {
	b, ok := s.kinds[kind]
	if !ok {
		return nil
	}
	out := make([]*Instance, len(b.instances))
	copy(out, b.instances)
	return out
}

// Kinds returns the kinds that hold at least one instance, in first-insert
// order.
func (s *Store) Kinds() []string {
	out := make([]string, 0, len(s.order))
	for _, k := range s.order {
		if len(s.kinds[k].instances) > 0 {
			out = append(out, k)
		}
	}
	return out
}

package generate

import "github.com/resinker/resinker/internal/store"

// Binding maps aliases to the entity instances selected for one event (or
// captured for a scenario run). Entries keep their add order so alias and
// kind lookups stay deterministic.
type Binding struct {
	entries []bindingEntry
}

type bindingEntry struct {
	alias string
	kind  string
	insts []*store.Instance
}

// NewBinding returns an empty binding.
func NewBinding() *Binding {
	return &Binding{}
}

// Add registers instances under an alias. Adding an existing alias
// replaces its instances.
func (b *Binding) Add(alias, kind string, insts ...*store.Instance) {
	for i := range b.entries {
		if b.entries[i].alias == alias {
			b.entries[i].kind = kind
			b.entries[i].insts = insts
			return
		}
	}
	b.entries = append(b.entries, bindingEntry{alias: alias, kind: kind, insts: insts})
}

// ByAlias returns the instances bound under alias.
func (b *Binding) ByAlias(alias string) []*store.Instance {
	if b == nil {
		return nil
	}
	for _, e := range b.entries {
		if e.alias == alias {
			return e.insts
		}
	}
	return nil
}

// ByKind returns the instances of the first entry holding the given
// entity kind, checking aliases first so an alias named after the kind
// wins.
func (b *Binding) ByKind(kind string) []*store.Instance {
	if b == nil {
		return nil
	}
	if insts := b.ByAlias(kind); insts != nil {
		return insts
	}
	for _, e := range b.entries {
		if e.kind == kind {
			return e.insts
		}
	}
	return nil
}

// Aliases returns the bound aliases in add order.
func (b *Binding) Aliases() []string {
	out := make([]string, 0, len(b.entries))
	for _, e := range b.entries {
		out = append(out, e.alias)
	}
	return out
}

// Clone returns a shallow copy sharing the instances.
func (b *Binding) Clone() *Binding {
	c := &Binding{entries: make([]bindingEntry, len(b.entries))}
	copy(c.entries, b.entries)
	return c
}

// Package schema holds the registered key table for Skiff configuration.
//
// Every key the application understands is declared here once, with its
// section, value shape, default and constraint. The table is the single
// source of truth consulted on load (decode and validate), on read (default
// materialization) and on write (validate before commit). Keys absent from
// the table are unknown: they survive load/save cycles verbatim but are
// never interpreted.
package schema

import (
	"fmt"
	"sync"

	"github.com/skiffnet/skiff/internal/config/value"
)

// CurrentVersion is the schema version this build reads and writes. Files at
// older versions are migrated forward on load; files beyond it are rejected.
const CurrentVersion = 18

// ErrDuplicateKey indicates an attempt to register the same section/key
// twice.
var ErrDuplicateKey = fmt.Errorf("key already registered")

// Table maintains all known key definitions in registration order.
type Table struct {
	mu           sync.RWMutex
	defs         map[string]*Definition
	sections     map[string][]*Definition
	sectionOrder []string
	order        []*Definition
	version      int
}

// New creates an empty table at the current schema version.
func New() *Table {
	return &Table{
		defs:     make(map[string]*Definition),
		sections: make(map[string][]*Definition),
		version:  CurrentVersion,
	}
}

// Register adds a key definition. Returns an error for duplicates.
func (t *Table) Register(def Definition) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	path := def.Path()
	if _, exists := t.defs[path]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, path)
	}

	d := &def
	t.defs[path] = d
	if _, seen := t.sections[def.Section]; !seen {
		t.sectionOrder = append(t.sectionOrder, def.Section)
	}
	t.sections[def.Section] = append(t.sections[def.Section], d)
	t.order = append(t.order, d)

	return nil
}

// MustRegister registers a definition and panics on error. Used for the
// built-in table at init time.
func (t *Table) MustRegister(def Definition) {
	if err := t.Register(def); err != nil {
		panic(err)
	}
}

// Verify checks table-wide invariants: every section other than general
// must declare the reserved enabled key as a non-nullable boolean.
func (t *Table) Verify() error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, section := range t.sectionOrder {
		if section == "general" {
			continue
		}
		var enabled *Definition
		for _, d := range t.sections[section] {
			if d.Key == "enabled" {
				enabled = d
				break
			}
		}
		if enabled == nil {
			return fmt.Errorf("section %s has no enabled key", section)
		}
		if enabled.Kind != value.KindBool || enabled.Nullable {
			return fmt.Errorf("section %s: enabled must be a non-nullable bool", section)
		}
	}
	return nil
}

// Lookup returns the definition for section/key.
func (t *Table) Lookup(section, key string) (*Definition, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.defs[section+"."+key]
	return d, ok
}

// Has reports whether section/key is a known key.
func (t *Table) Has(section, key string) bool {
	_, ok := t.Lookup(section, key)
	return ok
}

// HasSection reports whether any key is registered under section.
func (t *Table) HasSection(section string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.sections[section]
	return ok
}

// Section returns the definitions of one section in registration order.
func (t *Table) Section(name string) []*Definition {
	t.mu.RLock()
	defer t.mu.RUnlock()

	defs := t.sections[name]
	out := make([]*Definition, len(defs))
	copy(out, defs)
	return out
}

// Sections returns all section names in registration order.
func (t *Table) Sections() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]string, len(t.sectionOrder))
	copy(out, t.sectionOrder)
	return out
}

// SectionsAt returns the sections that existed at the given schema version,
// judged by the earliest Since among each section's keys. Sections that
// changed name along the way are reported under their current name only.
func (t *Table) SectionsAt(version int) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []string
	for _, section := range t.sectionOrder {
		earliest := 0
		for i, d := range t.sections[section] {
			if i == 0 || d.Since < earliest {
				earliest = d.Since
			}
		}
		if earliest <= version {
			out = append(out, section)
		}
	}
	return out
}

// All returns every definition in registration order.
func (t *Table) All() []*Definition {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*Definition, len(t.order))
	copy(out, t.order)
	return out
}

// Version returns the schema version the table describes.
func (t *Table) Version() int {
	return t.version
}

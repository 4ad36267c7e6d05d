// Package store implements the ordered section store for Skiff
// configuration files.
//
// A Store holds sections in file order and keys in section order, each entry
// carrying both its raw literal text and, for keys the schema recognizes, the
// decoded value. Unknown entries keep their raw text untouched, so a
// load/save cycle reproduces them byte for byte. Comment and blank lines stay
// attached to the section or key that follows them.
//
// The store is the single synchronization point of the configuration
// subsystem: every mutation takes its write lock, and reads that materialize
// defaults upgrade to the write lock before inserting.
package store

import (
	"sync"

	"github.com/skiffnet/skiff/internal/config/value"
)

// Store is an ordered section/key container for one configuration file.
type Store struct {
	mu       sync.RWMutex
	sections []*section
	index    map[string]*section
	trailing []string
}

type section struct {
	name     string
	entries  []*entry
	index    map[string]*entry
	comments []string
}

type entry struct {
	key      string
	raw      string
	val      value.Value
	known    bool
	comments []string
}

// RawEntry is one key with its literal text, as persisted.
type RawEntry struct {
	// Key is the entry's key name.
	Key string
	// Raw is the literal value text.
	Raw string
	// Known reports whether the entry carries a decoded value.
	Known bool
}

// SectionDump is the ordered raw content of one section.
type SectionDump struct {
	// Name is the section name.
	Name string
	// Entries lists the section's entries in file order.
	Entries []RawEntry
}

// New creates an empty store.
func New() *Store {
	return &Store{index: make(map[string]*section)}
}

// Sections returns the section names in file order.
func (s *Store) Sections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.sections))
	for i, sec := range s.sections {
		out[i] = sec.name
	}
	return out
}

// HasSection reports whether the section exists.
func (s *Store) HasSection(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[name]
	return ok
}

// EnsureSection creates the section if absent, appending it after existing
// sections.
func (s *Store) EnsureSection(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureSection(name)
}

func (s *Store) ensureSection(name string) *section {
	if sec, ok := s.index[name]; ok {
		return sec
	}
	sec := &section{name: name, index: make(map[string]*entry)}
	s.sections = append(s.sections, sec)
	s.index[name] = sec
	return sec
}

// Keys returns the key names of a section in file order.
func (s *Store) Keys(sectionName string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sec, ok := s.index[sectionName]
	if !ok {
		return nil
	}
	out := make([]string, len(sec.entries))
	for i, e := range sec.entries {
		out[i] = e.key
	}
	return out
}

// Has reports whether the entry exists, decoded or not.
func (s *Store) Has(sectionName, key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sec, ok := s.index[sectionName]
	if !ok {
		return false
	}
	_, ok = sec.index[key]
	return ok
}

// Raw returns the literal text of an entry.
func (s *Store) Raw(sectionName, key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sec, ok := s.index[sectionName]
	if !ok {
		return "", false
	}
	e, ok := sec.index[key]
	if !ok {
		return "", false
	}
	return e.raw, true
}

// Value returns the decoded value of a known entry. Entries the schema does
// not recognize have no decoded value and report false.
func (s *Store) Value(sectionName, key string) (value.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sec, ok := s.index[sectionName]
	if !ok {
		return value.Value{}, false
	}
	e, ok := sec.index[key]
	if !ok || !e.known {
		return value.Value{}, false
	}
	return e.val, true
}

// Set replaces or appends an entry with a decoded value and its canonical
// raw text. New entries append at the end of their section; existing entries
// keep their position and attached comments.
func (s *Store) Set(sectionName, key string, v value.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(sectionName, key, v)
}

func (s *Store) set(sectionName, key string, v value.Value) {
	sec := s.ensureSection(sectionName)
	if e, ok := sec.index[key]; ok {
		e.raw = value.Encode(v)
		e.val = v
		e.known = true
		return
	}
	e := &entry{key: key, raw: value.Encode(v), val: v, known: true}
	sec.entries = append(sec.entries, e)
	sec.index[key] = e
}

// SetRaw replaces or appends an entry carrying only literal text. The entry
// stays unknown until MarkKnown attaches a decoded value.
func (s *Store) SetRaw(sectionName, key, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sec := s.ensureSection(sectionName)
	if e, ok := sec.index[key]; ok {
		e.raw = raw
		e.val = value.Value{}
		e.known = false
		return
	}
	e := &entry{key: key, raw: raw}
	sec.entries = append(sec.entries, e)
	sec.index[key] = e
}

// MarkKnown attaches a decoded value to an existing entry, leaving its raw
// text as persisted. Reports false when the entry does not exist.
func (s *Store) MarkKnown(sectionName, key string, v value.Value) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sec, ok := s.index[sectionName]
	if !ok {
		return false
	}
	e, ok := sec.index[key]
	if !ok {
		return false
	}
	e.val = v
	e.known = true
	return true
}

// Materialize returns the decoded value of an entry, inserting the given
// default when the entry is absent. The insert happens under the write lock
// with a second existence check, so concurrent readers materialize once.
func (s *Store) Materialize(sectionName, key string, def value.Value) value.Value {
	s.mu.RLock()
	if sec, ok := s.index[sectionName]; ok {
		if e, ok := sec.index[key]; ok && e.known {
			v := e.val
			s.mu.RUnlock()
			return v
		}
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	sec := s.ensureSection(sectionName)
	if e, ok := sec.index[key]; ok && e.known {
		return e.val
	}
	s.set(sectionName, key, def)
	return def
}

// Delete removes an entry. Its attached comments disappear with it.
func (s *Store) Delete(sectionName, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sec, ok := s.index[sectionName]
	if !ok {
		return false
	}
	if _, ok := sec.index[key]; !ok {
		return false
	}
	delete(sec.index, key)
	for i, e := range sec.entries {
		if e.key == key {
			sec.entries = append(sec.entries[:i], sec.entries[i+1:]...)
			break
		}
	}
	return true
}

// DeleteSection removes a whole section.
func (s *Store) DeleteSection(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[name]; !ok {
		return false
	}
	delete(s.index, name)
	for i, sec := range s.sections {
		if sec.name == name {
			s.sections = append(s.sections[:i], s.sections[i+1:]...)
			break
		}
	}
	return true
}

// RenameSection renames a section in place, keeping order, entries and
// comments. Reports false when the source is missing or the target exists.
func (s *Store) RenameSection(oldName, newName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sec, ok := s.index[oldName]
	if !ok {
		return false
	}
	if _, exists := s.index[newName]; exists {
		return false
	}
	delete(s.index, oldName)
	sec.name = newName
	s.index[newName] = sec
	return true
}

// RenameKey renames an entry in place, keeping position, raw text, decoded
// value and comments. Reports false when the source is missing or the target
// exists.
func (s *Store) RenameKey(sectionName, oldKey, newKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sec, ok := s.index[sectionName]
	if !ok {
		return false
	}
	e, ok := sec.index[oldKey]
	if !ok {
		return false
	}
	if _, exists := sec.index[newKey]; exists {
		return false
	}
	delete(sec.index, oldKey)
	e.key = newKey
	sec.index[newKey] = e
	return true
}

// SetSectionComments replaces the comment lines emitted before a section
// header. Lines are emitted verbatim; an empty string emits a blank line.
func (s *Store) SetSectionComments(name string, lines []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sec := s.ensureSection(name)
	sec.comments = append([]string(nil), lines...)
}

// DumpSection returns the ordered raw entries of one section.
func (s *Store) DumpSection(name string) []RawEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sec, ok := s.index[name]
	if !ok {
		return nil
	}
	return sec.dump()
}

// Dump returns the ordered raw content of the whole store.
func (s *Store) Dump() []SectionDump {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SectionDump, len(s.sections))
	for i, sec := range s.sections {
		out[i] = SectionDump{Name: sec.name, Entries: sec.dump()}
	}
	return out
}

func (sec *section) dump() []RawEntry {
	out := make([]RawEntry, len(sec.entries))
	for i, e := range sec.entries {
		out[i] = RawEntry{Key: e.key, Raw: e.raw, Known: e.known}
	}
	return out
}

// Clone creates a deep copy of the store. Migrations run against a clone so
// a failed chain leaves the original untouched.
func (s *Store) Clone() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := New()
	out.trailing = append([]string(nil), s.trailing...)
	for _, sec := range s.sections {
		cp := &section{
			name:     sec.name,
			index:    make(map[string]*entry, len(sec.entries)),
			comments: append([]string(nil), sec.comments...),
		}
		for _, e := range sec.entries {
			ce := &entry{
				key:      e.key,
				raw:      e.raw,
				val:      e.val,
				known:    e.known,
				comments: append([]string(nil), e.comments...),
			}
			cp.entries = append(cp.entries, ce)
			cp.index[ce.key] = ce
		}
		out.sections = append(out.sections, cp)
		out.index[cp.name] = cp
	}
	return out
}

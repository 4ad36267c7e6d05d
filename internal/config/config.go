package config

import (
	"errors"
	"sync"

	"github.com/skiffnet/skiff/internal/config/notify"
	"github.com/skiffnet/skiff/internal/config/schema"
	"github.com/skiffnet/skiff/internal/config/store"
	"github.com/skiffnet/skiff/internal/config/value"
)

// Registry provides unified access to the Skiff configuration system.
// It owns the persisted section store, migrates stale files to the
// current schema version on load, validates every known key, and
// exposes typed accessors plus change notification to the components
// it configures.
//
// A Registry returned by Load or New is ready for concurrent use.
// Reads of keys the file never set materialize the schema default, so
// a later Save writes that default explicitly.
type Registry struct {
	mu sync.RWMutex

	// Section store holding raw and decoded entries
	store *store.Store

	// Static key table, safe for concurrent reads
	schema *schema.Table

	// Version upgrade chain
	migrator *Migrator

	// Change notifier
	notifier *notify.Notifier

	// Whether load rewrote the store to a newer version
	migrated bool
}

// New returns a Registry holding only schema defaults at the current
// version, the state of a first run with no persisted file.
func New() *Registry {
	r, err := Load("")
	if err != nil {
		// An empty blob has no lines to reject and needs no migration.
		panic(err)
	}
	return r
}

// Load parses a persisted configuration blob and returns a ready
// Registry. Stale files are upgraded step by step to the current
// schema version; the caller's blob is never partially migrated.
//
// All problems in the blob are collected before Load fails: the
// returned error is a *LoadError listing every unreadable line,
// malformed value and constraint violation. errors.Is and errors.As
// reach the individual errors through it.
func Load(text string) (*Registry, error) {
	return load(text, schema.Default(), defaultMigrator())
}

func load(text string, table *schema.Table, migrator *Migrator) (*Registry, error) {
	s, parseErrs := store.Parse(text)
	if len(parseErrs) > 0 {
		le := &LoadError{}
		for _, err := range parseErrs {
			le.Add(err)
		}
		return nil, le
	}

	// A missing version marks a fresh store, which is already current.
	from := table.Version()
	if raw, ok := s.Raw("general", "version"); ok {
		v, err := value.Decode(raw, value.Shape{Kind: value.KindInt})
		if err != nil {
			return nil, &LoadError{Errors: []error{
				&MalformedValueError{Section: "general", Key: "version", Raw: raw, Reason: "config version must be an integer"},
			}}
		}
		n, _ := v.Int()
		from = int(n)
	}

	migrated := false
	if from != table.Version() {
		upgraded, err := migrator.Run(s, from)
		if err != nil {
			return nil, &LoadError{Errors: []error{err}}
		}
		s = upgraded
		migrated = true
	}

	r := &Registry{
		store:    s,
		schema:   table,
		migrator: migrator,
		notifier: notify.New(),
		migrated: migrated,
	}
	if err := r.validate(s); err != nil {
		return nil, err
	}

	// Every ready store carries its version explicitly so the next
	// load never mistakes an old file for a current one.
	s.Materialize("general", "version", value.Int(int64(table.Version())))

	return r, nil
}

// validate decodes and checks every persisted entry the schema knows,
// collecting every failure. Unknown keys are left untouched; they
// round-trip to disk verbatim.
func (r *Registry) validate(s *store.Store) error {
	le := &LoadError{}
	for _, sec := range s.Dump() {
		for _, entry := range sec.Entries {
			def, ok := r.schema.Lookup(sec.Name, entry.Key)
			if !ok {
				continue
			}
			v, err := def.Decode(entry.Raw)
			if err != nil {
				le.Add(&MalformedValueError{
					Section: sec.Name,
					Key:     entry.Key,
					Raw:     entry.Raw,
					Reason:  decodeReason(err),
				})
				continue
			}
			if err := def.Validate(v); err != nil {
				le.Add(&ValidationError{
					Section:    sec.Name,
					Key:        entry.Key,
					Constraint: constraintName(err),
					Value:      v,
				})
				continue
			}
			s.MarkKnown(sec.Name, entry.Key, v)
		}
	}
	return le.AsError()
}

// decodeReason extracts the human-readable reason from a codec error.
func decodeReason(err error) string {
	var de *value.DecodeError
	if errors.As(err, &de) {
		return de.Reason
	}
	return err.Error()
}

// constraintName names the constraint a validation failure violated.
func constraintName(err error) string {
	var ce *schema.ConstraintError
	if errors.As(err, &ce) {
		return ce.Constraint
	}
	return err.Error()
}

// Close shuts down change notification. The registry stays readable;
// only observers stop receiving events.
func (r *Registry) Close() {
	r.notifier.Close()
}

// Migrated reports whether Load upgraded the store from an older
// version. Callers use it to decide whether to persist immediately.
func (r *Registry) Migrated() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.migrated
}

// Version returns the schema version recorded in the store.
func (r *Registry) Version() int {
	n, err := r.GetInt("general", "version")
	if err != nil {
		return r.schema.Version()
	}
	return n
}

// Schema returns the static key table.
func (r *Registry) Schema() *schema.Table {
	return r.schema
}

// Save serializes the current state, including retained unknown keys
// and any defaults materialized since load, as one blob suitable for
// overwrite-in-place persistence.
func (r *Registry) Save() string {
	r.mu.RLock()
	s := r.store
	r.mu.RUnlock()
	return s.Serialize()
}

// Dump returns the raw section/key/text view of the current state.
func (r *Registry) Dump() []store.SectionDump {
	r.mu.RLock()
	s := r.store
	r.mu.RUnlock()
	return s.Dump()
}

// Subscribe registers an observer for all configuration changes.
func (r *Registry) Subscribe(observer notify.Observer) *notify.Subscription {
	return r.notifier.Subscribe(observer)
}

// SubscribeSection registers an observer for changes within one section.
func (r *Registry) SubscribeSection(section string, observer notify.Observer) *notify.Subscription {
	return r.notifier.SubscribeSection(section, observer)
}

// IsEnabled reports whether the component a section configures should
// be started. The general section is always active; every other
// section is gated by its reserved enabled key.
func (r *Registry) IsEnabled(section string) (bool, error) {
	if section == "general" {
		return true, nil
	}
	return r.GetBool(section, "enabled")
}

// get returns the validated value for a known key, materializing the
// schema default on first read of a key the file never set.
func (r *Registry) get(section, key string) (value.Value, *schema.Definition, error) {
	def, ok := r.schema.Lookup(section, key)
	if !ok {
		return value.Value{}, nil, &UnknownKeyError{Section: section, Key: key}
	}
	r.mu.RLock()
	s := r.store
	r.mu.RUnlock()
	if v, ok := s.Value(section, key); ok {
		return v, def, nil
	}
	return s.Materialize(section, key, def.Default), def, nil
}

// set validates a value against the key's definition and commits it.
// On failure the prior value is retained untouched.
func (r *Registry) set(section, key string, v value.Value) error {
	def, ok := r.schema.Lookup(section, key)
	if !ok {
		return &UnknownKeyError{Section: section, Key: key}
	}
	if err := def.Validate(v); err != nil {
		return &ValidationError{
			Section:    section,
			Key:        key,
			Constraint: constraintName(err),
			Value:      v,
		}
	}
	r.mu.RLock()
	s := r.store
	r.mu.RUnlock()
	old, _ := s.Value(section, key)
	s.Set(section, key, v)
	r.notifier.NotifySet(section, key, old, v, "set")
	return nil
}

// Get returns the effective value for a known key regardless of kind,
// materializing the schema default on first read. Callers that know the
// kind should prefer the typed accessors.
func (r *Registry) Get(section, key string) (value.Value, error) {
	v, _, err := r.get(section, key)
	return v, err
}

// Set validates a value of any kind against the key's definition and
// commits it. On failure the prior value is retained untouched.
func (r *Registry) Set(section, key string, v value.Value) error {
	return r.set(section, key, v)
}

// GetBool returns a boolean value at the given section and key.
func (r *Registry) GetBool(section, key string) (bool, error) {
	v, def, err := r.get(section, key)
	if err != nil {
		return false, err
	}
	b, ok := v.Bool()
	if !ok {
		return false, &TypeError{Section: section, Key: key, Expected: "bool", Actual: def.Kind.String()}
	}
	return b, nil
}

// GetInt returns an integer value at the given section and key.
func (r *Registry) GetInt(section, key string) (int, error) {
	v, def, err := r.get(section, key)
	if err != nil {
		return 0, err
	}
	i, ok := v.Int()
	if !ok {
		return 0, &TypeError{Section: section, Key: key, Expected: "int", Actual: def.Kind.String()}
	}
	return int(i), nil
}

// GetFloat returns a float value at the given section and key.
// Integer-kinded keys convert losslessly.
func (r *Registry) GetFloat(section, key string) (float64, error) {
	v, def, err := r.get(section, key)
	if err != nil {
		return 0, err
	}
	if f, ok := v.Float(); ok {
		return f, nil
	}
	if i, ok := v.Int(); ok {
		return float64(i), nil
	}
	return 0, &TypeError{Section: section, Key: key, Expected: "float", Actual: def.Kind.String()}
}

// GetString returns a string value at the given section and key.
func (r *Registry) GetString(section, key string) (string, error) {
	v, def, err := r.get(section, key)
	if err != nil {
		return "", err
	}
	s, ok := v.Str()
	if !ok {
		return "", &TypeError{Section: section, Key: key, Expected: "string", Actual: def.Kind.String()}
	}
	return s, nil
}

// GetStringOrNil returns a nullable string value. A nil result means
// the key is explicitly None.
func (r *Registry) GetStringOrNil(section, key string) (*string, error) {
	v, def, err := r.get(section, key)
	if err != nil {
		return nil, err
	}
	if v.IsNull() {
		return nil, nil
	}
	s, ok := v.Str()
	if !ok {
		return nil, &TypeError{Section: section, Key: key, Expected: "string", Actual: def.Kind.String()}
	}
	return &s, nil
}

// GetIntList returns an integer list value at the given section and key.
func (r *Registry) GetIntList(section, key string) ([]int, error) {
	v, def, err := r.get(section, key)
	if err != nil {
		return nil, err
	}
	elems, ok := v.Elems()
	if !ok {
		return nil, &TypeError{Section: section, Key: key, Expected: "list of int", Actual: def.Kind.String()}
	}
	out := make([]int, len(elems))
	for i, e := range elems {
		n, ok := e.Int()
		if !ok {
			return nil, &TypeError{Section: section, Key: key, Expected: "list of int", Actual: "list of " + e.Kind().String()}
		}
		out[i] = int(n)
	}
	return out, nil
}

// GetStringList returns a string list value at the given section and key.
func (r *Registry) GetStringList(section, key string) ([]string, error) {
	v, def, err := r.get(section, key)
	if err != nil {
		return nil, err
	}
	elems, ok := v.Elems()
	if !ok {
		return nil, &TypeError{Section: section, Key: key, Expected: "list of string", Actual: def.Kind.String()}
	}
	out := make([]string, len(elems))
	for i, e := range elems {
		s, ok := e.Str()
		if !ok {
			return nil, &TypeError{Section: section, Key: key, Expected: "list of string", Actual: "list of " + e.Kind().String()}
		}
		out[i] = s
	}
	return out, nil
}

// GetAddr returns a composite address value: a host and its ordered
// candidate ports.
func (r *Registry) GetAddr(section, key string) (string, []int, error) {
	v, def, err := r.get(section, key)
	if err != nil {
		return "", nil, err
	}
	host, ports, ok := v.Addr()
	if !ok {
		return "", nil, &TypeError{Section: section, Key: key, Expected: "address", Actual: def.Kind.String()}
	}
	return host, ports, nil
}

// SetBool sets a boolean value at the given section and key.
func (r *Registry) SetBool(section, key string, b bool) error {
	return r.set(section, key, value.Bool(b))
}

// SetInt sets an integer value at the given section and key.
func (r *Registry) SetInt(section, key string, i int) error {
	return r.set(section, key, value.Int(int64(i)))
}

// SetFloat sets a float value at the given section and key.
func (r *Registry) SetFloat(section, key string, f float64) error {
	return r.set(section, key, value.Float(f))
}

// SetString sets a string value at the given section and key.
func (r *Registry) SetString(section, key string, s string) error {
	return r.set(section, key, value.String(s))
}

// SetNull sets an explicit None at the given section and key. Only
// nullable keys accept it.
func (r *Registry) SetNull(section, key string) error {
	return r.set(section, key, value.Null())
}

// SetIntList sets an integer list value at the given section and key.
func (r *Registry) SetIntList(section, key string, ints []int) error {
	elems := make([]value.Value, len(ints))
	for i, n := range ints {
		elems[i] = value.Int(int64(n))
	}
	return r.set(section, key, value.List(elems...))
}

// SetStringList sets a string list value at the given section and key.
func (r *Registry) SetStringList(section, key string, strs []string) error {
	elems := make([]value.Value, len(strs))
	for i, s := range strs {
		elems[i] = value.String(s)
	}
	return r.set(section, key, value.List(elems...))
}

// SetAddr sets a composite address value at the given section and key.
func (r *Registry) SetAddr(section, key, host string, ports []int) error {
	return r.set(section, key, value.Addr(host, ports))
}

// Reload replaces the current state with a freshly loaded blob, for
// live reload after the backing file changes on disk. The swap is
// atomic: readers see either the old state or the fully validated new
// one. Subscribers receive one change per key that differs, then a
// reload event.
func (r *Registry) Reload(text string) error {
	next, err := load(text, r.schema, r.migrator)
	if err != nil {
		return err
	}
	next.Close()

	r.mu.Lock()
	old := r.store
	r.store = next.store
	r.migrated = next.migrated
	r.mu.Unlock()

	batch := r.notifier.NewBatch()
	diffStores(batch, old, next.store)
	batch.Commit()
	r.notifier.NotifyReload("reload")
	return nil
}

// diffStores batches one change per key whose decoded value or raw
// text differs between two stores.
func diffStores(batch *notify.Batch, old, next *store.Store) {
	seen := make(map[string]map[string]bool)
	for _, sec := range next.Dump() {
		seen[sec.Name] = make(map[string]bool)
		for _, entry := range sec.Entries {
			seen[sec.Name][entry.Key] = true
			oldRaw, had := old.Raw(sec.Name, entry.Key)
			if had && oldRaw == entry.Raw {
				continue
			}
			oldVal, _ := old.Value(sec.Name, entry.Key)
			newVal, _ := next.Value(sec.Name, entry.Key)
			batch.Set(sec.Name, entry.Key, oldVal, newVal, "reload")
		}
	}
	for _, sec := range old.Dump() {
		for _, entry := range sec.Entries {
			if seen[sec.Name][entry.Key] {
				continue
			}
			oldVal, _ := old.Value(sec.Name, entry.Key)
			batch.Add(notify.Change{
				Section: sec.Name,
				Key:     entry.Key,
				Type:    notify.ChangeDelete,
				Old:     oldVal,
				Source:  "reload",
			})
		}
	}
}

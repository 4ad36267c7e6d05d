package config

import (
	"fmt"
	"sort"

	"github.com/skiffnet/skiff/internal/config/store"
	"github.com/skiffnet/skiff/internal/config/value"
)

// Step upgrades a persisted store from one schema version to its
// successor. Steps operate on raw entries, before any schema decoding,
// so they can reshape values whose type changed between versions.
type Step struct {
	// From is the version this step upgrades from. Applying the step
	// commits From+1 into general.version.
	From int

	// Description summarizes what the step changes.
	Description string

	// Apply rewrites the store in place.
	Apply func(s *store.Store) error
}

// Migrator upgrades persisted stores along a contiguous chain of
// version steps. The chain must reach the target version without
// gaps; a missing step makes every older file unreadable, which is
// treated as a registration bug rather than a recoverable condition.
type Migrator struct {
	steps  map[int]Step
	target int
}

// NewMigrator creates a migrator that upgrades stores to target.
func NewMigrator(target int) *Migrator {
	return &Migrator{
		steps:  make(map[int]Step),
		target: target,
	}
}

// Register adds a step to the chain. Registering two steps with the
// same From version is an error.
func (m *Migrator) Register(step Step) error {
	if step.Apply == nil {
		return fmt.Errorf("step %d -> %d: nil apply func", step.From, step.From+1)
	}
	if _, ok := m.steps[step.From]; ok {
		return fmt.Errorf("step %d -> %d: already registered", step.From, step.From+1)
	}
	m.steps[step.From] = step
	return nil
}

// MustRegister adds a step and panics on error. Intended for the
// package-level chain built at startup.
func (m *Migrator) MustRegister(step Step) {
	if err := m.Register(step); err != nil {
		panic(err)
	}
}

// Target returns the version the migrator upgrades to.
func (m *Migrator) Target() int {
	return m.target
}

// Steps returns the registered steps ordered by From version.
func (m *Migrator) Steps() []Step {
	out := make([]Step, 0, len(m.steps))
	for _, step := range m.steps {
		out = append(out, step)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].From < out[j].From
	})
	return out
}

// NeedsMigration reports whether a store at the given version must be
// upgraded before use.
func (m *Migrator) NeedsMigration(from int) bool {
	return from < m.target
}

// Run upgrades a store from the given version to the target version
// and returns the upgraded copy. The input store is never modified:
// steps apply to a clone, so a failed run leaves the caller's store
// exactly as persisted.
//
// A version newer than the target yields a FutureVersionError. A
// version older than the oldest registered step, or any gap in the
// chain, yields a MigrationError.
func (m *Migrator) Run(s *store.Store, from int) (*store.Store, error) {
	if from == m.target {
		return s, nil
	}
	if from > m.target {
		return nil, &FutureVersionError{Persisted: from, Supported: m.target}
	}
	work := s.Clone()
	for v := from; v < m.target; v++ {
		step, ok := m.steps[v]
		if !ok {
			return nil, &MigrationError{From: v, To: v + 1, Reason: "no registered step"}
		}
		if err := step.Apply(work); err != nil {
			return nil, &MigrationError{From: v, To: v + 1, Reason: err.Error(), Err: err}
		}
		work.Set("general", "version", value.Int(int64(v+1)))
	}
	return work, nil
}

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/skiffnet/skiff/internal/config/value"
)

// Errors returned by configuration operations.
var (
	// ErrMalformedValue indicates raw text that cannot be decoded for its key.
	ErrMalformedValue = errors.New("malformed value")

	// ErrUnknownKey indicates a section or key the schema does not declare.
	ErrUnknownKey = errors.New("unknown key")

	// ErrValidation indicates a decoded value that fails its constraint.
	ErrValidation = errors.New("validation failed")

	// ErrMigration indicates a failed or impossible version upgrade.
	ErrMigration = errors.New("migration failed")

	// ErrFutureVersion indicates a persisted version newer than this build supports.
	ErrFutureVersion = errors.New("future config version")

	// ErrNotFound indicates a section/key pair the schema does not declare.
	ErrNotFound = errors.New("setting not found")

	// ErrTypeMismatch indicates a typed accessor used on a key of another kind.
	ErrTypeMismatch = errors.New("type mismatch")
)

// MalformedValueError reports raw text that could not be decoded
// into the kind the schema declares for its key.
type MalformedValueError struct {
	// Section is the section containing the bad entry.
	Section string
	// Key is the key within the section.
	Key string
	// Raw is the persisted text that failed to decode.
	Raw string
	// Reason describes why decoding failed.
	Reason string
}

// Error implements the error interface.
func (e *MalformedValueError) Error() string {
	return fmt.Sprintf("%s.%s: malformed value %q: %s", e.Section, e.Key, e.Raw, e.Reason)
}

// Is implements error matching for MalformedValueError.
func (e *MalformedValueError) Is(target error) bool {
	return target == ErrMalformedValue
}

// UnknownKeyError reports a persisted entry whose section/key pair
// is not declared in the schema.
type UnknownKeyError struct {
	// Section is the section of the unrecognized entry.
	Section string
	// Key is the unrecognized key. Empty when the whole section is unknown.
	Key string
}

// Error implements the error interface.
func (e *UnknownKeyError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("unknown section %q", e.Section)
	}
	return fmt.Sprintf("%s: unknown key %q", e.Section, e.Key)
}

// Is implements error matching for UnknownKeyError.
func (e *UnknownKeyError) Is(target error) bool {
	return target == ErrUnknownKey
}

// ValidationError reports a well-formed value that violates the
// constraint declared for its key.
type ValidationError struct {
	// Section is the section containing the value.
	Section string
	// Key is the key within the section.
	Key string
	// Constraint names the violated constraint.
	Constraint string
	// Value is the rejected value.
	Value value.Value
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s.%s: value %s violates %s", e.Section, e.Key, e.Value, e.Constraint)
}

// Is implements error matching for ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// MigrationError reports a version upgrade step that failed or is missing.
type MigrationError struct {
	// From is the version the failed step upgrades from.
	From int
	// To is the version the failed step upgrades to.
	To int
	// Reason describes the failure.
	Reason string
	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration %d -> %d: %s", e.From, e.To, e.Reason)
}

// Unwrap returns the underlying error.
func (e *MigrationError) Unwrap() error {
	return e.Err
}

// Is implements error matching for MigrationError.
func (e *MigrationError) Is(target error) bool {
	return target == ErrMigration
}

// FutureVersionError reports a persisted version newer than the
// highest version this build knows how to read.
type FutureVersionError struct {
	// Persisted is the version recorded in the file.
	Persisted int
	// Supported is the highest version this build supports.
	Supported int
}

// Error implements the error interface.
func (e *FutureVersionError) Error() string {
	return fmt.Sprintf("config version %d is newer than supported version %d", e.Persisted, e.Supported)
}

// Is implements error matching for FutureVersionError.
func (e *FutureVersionError) Is(target error) bool {
	return target == ErrFutureVersion
}

// TypeError is returned when a typed accessor does not match the
// kind the schema declares for the key.
type TypeError struct {
	// Section is the section of the misread key.
	Section string
	// Key is the misread key.
	Key string
	// Expected is the accessor's kind.
	Expected string
	// Actual is the key's declared kind.
	Actual string
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	return fmt.Sprintf("type error for %s.%s: expected %s, got %s", e.Section, e.Key, e.Expected, e.Actual)
}

// Is implements error matching for TypeError.
func (e *TypeError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// LoadError aggregates every problem found while loading a persisted
// configuration. Load inspects the whole file before failing, so a
// single report covers all malformed, unknown, and invalid entries.
type LoadError struct {
	// Errors holds the individual problems in file order.
	Errors []error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d config errors:", len(e.Errors))
	for _, err := range e.Errors {
		sb.WriteString("\n  - ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Unwrap returns the aggregated errors for errors.Is and errors.As.
func (e *LoadError) Unwrap() []error {
	return e.Errors
}

// Add appends an error to the aggregate. Nil errors are ignored.
func (e *LoadError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// AsError returns nil when no errors were collected, otherwise e.
func (e *LoadError) AsError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

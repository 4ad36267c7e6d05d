package schema

import (
	"fmt"

	"github.com/skiffnet/skiff/internal/config/value"
)

// Definition describes one registered configuration key: its location, its
// value shape, its built-in default and the constraint a value must satisfy.
type Definition struct {
	// Section is the section the key lives in.
	Section string

	// Key is the key name within the section.
	Key string

	// Kind is the expected value kind.
	Kind value.Kind

	// Elem is the list element kind when Kind is KindList.
	Elem value.Kind

	// Arity lists the positional shapes when Kind is KindTuple.
	Arity []value.Shape

	// Default is materialized when the key is absent from a loaded file.
	Default value.Value

	// Nullable permits the literal None in place of a value.
	Nullable bool

	// Check constrains decoded values. Nil means any well-typed value is
	// acceptable.
	Check *Predicate

	// Description documents the key for operators.
	Description string

	// Since is the schema version that introduced the key.
	Since int
}

// Path returns the section-qualified key name.
func (d *Definition) Path() string {
	return d.Section + "." + d.Key
}

// Shape returns the decode shape for this key.
func (d *Definition) Shape() value.Shape {
	return value.Shape{Kind: d.Kind, Elem: d.Elem, Arity: d.Arity, Nullable: d.Nullable}
}

// Decode parses raw literal text against this key's shape.
func (d *Definition) Decode(raw string) (value.Value, error) {
	return value.Decode(raw, d.Shape())
}

// ConstraintError reports which rule a value broke during validation.
type ConstraintError struct {
	// Constraint is the short name of the violated rule, either a
	// predicate name or one of the built-in shape rules.
	Constraint string

	// Err describes the violation.
	Err error
}

// Error implements the error interface.
func (e *ConstraintError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying violation.
func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// Validate checks a decoded value against the definition: nullability, kind,
// element kinds and the constraint predicate. Predicates never see Null; an
// explicit None short-circuits as valid for nullable keys. Failures are
// *ConstraintError naming the violated rule.
func (d *Definition) Validate(v value.Value) error {
	if v.IsNull() {
		if d.Nullable {
			return nil
		}
		return &ConstraintError{Constraint: "non-nullable", Err: fmt.Errorf("null is not permitted")}
	}
	if v.Kind() != d.Kind {
		return &ConstraintError{Constraint: "kind", Err: fmt.Errorf("want %s, have %s", d.Kind, v.Kind())}
	}
	if d.Kind == value.KindList {
		elems, _ := v.Elems()
		for i, e := range elems {
			if e.Kind() != d.Elem {
				return &ConstraintError{Constraint: "element-kind", Err: fmt.Errorf("element %d: want %s, have %s", i, d.Elem, e.Kind())}
			}
		}
	}
	if d.Check != nil {
		if err := d.Check.Check(v); err != nil {
			return &ConstraintError{Constraint: d.Check.Name, Err: err}
		}
	}
	return nil
}

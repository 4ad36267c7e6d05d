// Package value implements the typed literal codec for Skiff configuration
// values.
//
// Persisted configuration entries are single-line literals in the spelling the
// Skiff file format inherited from its predecessors: booleans as True/False,
// null as None, ordered lists as [5,4,3,2,1], fixed-arity tuples as
// ('127.0.0.1', [5,4,3,2,1]). The codec is schema-directed, not
// self-describing: a raw string is decoded against a Shape supplied by the
// schema table, and the same value always encodes back to the same canonical
// text.
package value

// Kind identifies the type of a configuration value.
type Kind uint8

const (
	// KindInvalid is the zero Kind; no legal value carries it.
	KindInvalid Kind = iota
	// KindBool is a boolean (True/False).
	KindBool
	// KindInt is a signed base-10 integer.
	KindInt
	// KindFloat is a floating-point number.
	KindFloat
	// KindString is a text value, bare or single-quoted.
	KindString
	// KindNull is the explicit absence marker (None).
	KindNull
	// KindList is an ordered list of uniform scalar elements.
	KindList
	// KindTuple is a fixed-arity positional grouping.
	KindTuple
	// KindAddr is a composite address: a host with an ordered candidate
	// port list, spelled ('host', [p1,p2,...]).
	KindAddr
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindNull:
		return "null"
	case KindList:
		return "list"
	case KindTuple:
		return "tuple"
	case KindAddr:
		return "address"
	default:
		return "invalid"
	}
}

// Scalar reports whether the kind is a scalar element type legal inside a
// list.
func (k Kind) Scalar() bool {
	switch k {
	case KindBool, KindInt, KindFloat, KindString:
		return true
	default:
		return false
	}
}

// Shape describes the form a raw literal must decode to. The schema table
// derives one Shape per key descriptor.
type Shape struct {
	// Kind is the expected value kind.
	Kind Kind

	// Elem is the element kind when Kind is KindList. It must be scalar.
	Elem Kind

	// Arity lists the positional shapes when Kind is KindTuple.
	Arity []Shape

	// Nullable permits the literal None in place of the value.
	Nullable bool
}

// Value is an immutable configuration value. The zero Value is invalid;
// construct values through Bool, Int, Float, String, Null, List, Tuple and
// Addr.
type Value struct {
	kind  Kind
	b     bool
	i     int64
	f     float64
	s     string // string payload, or address host
	items []Value
	ports []int
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Int returns an integer value.
func Int(i int64) Value {
	return Value{kind: KindInt, i: i}
}

// Float returns a floating-point value.
func Float(f float64) Value {
	return Value{kind: KindFloat, f: f}
}

// String returns a text value.
func String(s string) Value {
	return Value{kind: KindString, s: s}
}

// Null returns the explicit absence marker.
func Null() Value {
	return Value{kind: KindNull}
}

// List returns an ordered list value. Elements keep their order, and
// duplicates are legal.
func List(elems ...Value) Value {
	items := make([]Value, len(elems))
	copy(items, elems)
	return Value{kind: KindList, items: items}
}

// Tuple returns a fixed-arity tuple value.
func Tuple(elems ...Value) Value {
	items := make([]Value, len(elems))
	copy(items, elems)
	return Value{kind: KindTuple, items: items}
}

// Addr returns a composite address value from a host and an ordered
// candidate port list.
func Addr(host string, ports []int) Value {
	p := make([]int, len(ports))
	copy(p, ports)
	return Value{kind: KindAddr, s: host, ports: p}
}

// Kind returns the value's kind.
func (v Value) Kind() Kind {
	return v.kind
}

// IsValid reports whether the value was built by a constructor.
func (v Value) IsValid() bool {
	return v.kind != KindInvalid
}

// IsNull reports whether the value is the explicit absence marker.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// Bool returns the boolean payload. ok is false when the kind differs.
func (v Value) Bool() (b bool, ok bool) {
	return v.b, v.kind == KindBool
}

// Int returns the integer payload. ok is false when the kind differs.
func (v Value) Int() (i int64, ok bool) {
	return v.i, v.kind == KindInt
}

// Float returns the floating-point payload. ok is false when the kind
// differs.
func (v Value) Float() (f float64, ok bool) {
	return v.f, v.kind == KindFloat
}

// Str returns the text payload. ok is false when the kind differs.
func (v Value) Str() (s string, ok bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// Elems returns a copy of the list or tuple elements. ok is false for other
// kinds.
func (v Value) Elems() (elems []Value, ok bool) {
	if v.kind != KindList && v.kind != KindTuple {
		return nil, false
	}
	out := make([]Value, len(v.items))
	copy(out, v.items)
	return out, true
}

// Addr returns the host and a copy of the candidate port list. ok is false
// for other kinds.
func (v Value) Addr() (host string, ports []int, ok bool) {
	if v.kind != KindAddr {
		return "", nil, false
	}
	out := make([]int, len(v.ports))
	copy(out, v.ports)
	return v.s, out, true
}

// Equal reports deep equality of two values. Kind, payload, element order
// and arity all participate.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindNull:
		return true
	case KindList, KindTuple:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case KindAddr:
		if v.s != o.s || len(v.ports) != len(o.ports) {
			return false
		}
		for i := range v.ports {
			if v.ports[i] != o.ports[i] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String returns the canonical encoded literal.
func (v Value) String() string {
	return Encode(v)
}

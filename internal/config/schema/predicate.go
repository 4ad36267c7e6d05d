package schema

import (
	"fmt"
	"strings"

	"github.com/skiffnet/skiff/internal/config/value"
)

// Predicate is a named constraint applied to decoded values. The name appears
// in validation failures so operators can tell which rule a value broke.
type Predicate struct {
	// Name is the short constraint identifier.
	Name string

	// Check returns a descriptive error when v violates the constraint.
	Check func(v value.Value) error
}

// Port accepts integers in [0,65535], or -1 meaning unset.
func Port() *Predicate {
	return &Predicate{
		Name: "port",
		Check: func(v value.Value) error {
			i, _ := v.Int()
			if i < -1 || i > 65535 {
				return fmt.Errorf("port: %d outside [-1,65535]", i)
			}
			return nil
		},
	}
}

// EachPort accepts integer lists whose every element is a valid port.
func EachPort() *Predicate {
	port := Port()
	return &Predicate{
		Name: "each-port",
		Check: func(v value.Value) error {
			elems, _ := v.Elems()
			for i, e := range elems {
				if err := port.Check(e); err != nil {
					return fmt.Errorf("element %d: %w", i, err)
				}
			}
			return nil
		},
	}
}

// NonNegative accepts integers and floats greater than or equal to zero.
func NonNegative() *Predicate {
	return &Predicate{
		Name: "non-negative",
		Check: func(v value.Value) error {
			if i, ok := v.Int(); ok {
				if i < 0 {
					return fmt.Errorf("non-negative: have %d", i)
				}
				return nil
			}
			if f, ok := v.Float(); ok {
				if f < 0 {
					return fmt.Errorf("non-negative: have %v", f)
				}
			}
			return nil
		},
	}
}

// Positive accepts integers greater than zero.
func Positive() *Predicate {
	return &Predicate{
		Name: "positive",
		Check: func(v value.Value) error {
			i, _ := v.Int()
			if i <= 0 {
				return fmt.Errorf("positive: have %d", i)
			}
			return nil
		},
	}
}

// AtLeast accepts integers greater than or equal to n.
func AtLeast(n int64) *Predicate {
	return &Predicate{
		Name: fmt.Sprintf("at-least(%d)", n),
		Check: func(v value.Value) error {
			i, _ := v.Int()
			if i < n {
				return fmt.Errorf("at-least(%d): have %d", n, i)
			}
			return nil
		},
	}
}

// Range accepts integers in [lo,hi].
func Range(lo, hi int64) *Predicate {
	return &Predicate{
		Name: fmt.Sprintf("range[%d,%d]", lo, hi),
		Check: func(v value.Value) error {
			i, _ := v.Int()
			if i < lo || i > hi {
				return fmt.Errorf("range[%d,%d]: have %d", lo, hi, i)
			}
			return nil
		},
	}
}

// HopCount accepts tunnel hop counts, integers in [0,3].
func HopCount() *Predicate {
	return &Predicate{
		Name: "hop-count",
		Check: func(v value.Value) error {
			i, _ := v.Int()
			if i < 0 || i > 3 {
				return fmt.Errorf("hop-count: have %d, want 0 to 3", i)
			}
			return nil
		},
	}
}

// OneOf accepts strings from a fixed set.
func OneOf(allowed ...string) *Predicate {
	return &Predicate{
		Name: "one-of[" + strings.Join(allowed, ",") + "]",
		Check: func(v value.Value) error {
			s, _ := v.Str()
			for _, a := range allowed {
				if s == a {
					return nil
				}
			}
			return fmt.Errorf("one-of[%s]: have %q", strings.Join(allowed, ","), s)
		},
	}
}

package value

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformed indicates raw text that cannot be decoded to the expected
// shape.
var ErrMalformed = errors.New("malformed value")

// DecodeError describes a failed decode of one raw literal.
type DecodeError struct {
	// Raw is the literal text that failed to decode.
	Raw string
	// Want is the expected kind name.
	Want string
	// Reason describes the failure.
	Reason string
	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode %q as %s: %s", e.Raw, e.Want, e.Reason)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is implements error matching for DecodeError.
func (e *DecodeError) Is(target error) bool {
	return target == ErrMalformed
}

// Decode parses raw literal text against the expected shape. Leading and
// trailing whitespace is ignored. The literal None decodes to Null only when
// the shape is nullable; everywhere else it is malformed, which keeps None
// reserved as the absence marker.
func Decode(raw string, shape Shape) (Value, error) {
	text := strings.TrimSpace(raw)
	if text == "None" {
		if shape.Nullable {
			return Null(), nil
		}
		return Value{}, decodeErr(raw, shape.Kind, "None is only legal for nullable keys", nil)
	}
	switch shape.Kind {
	case KindBool:
		return decodeBool(raw, text)
	case KindInt:
		return decodeInt(raw, text)
	case KindFloat:
		return decodeFloat(raw, text)
	case KindString:
		return decodeString(raw, text)
	case KindList:
		return decodeList(raw, text, shape.Elem)
	case KindTuple:
		return decodeTuple(raw, text, shape.Arity)
	case KindAddr:
		return decodeAddr(raw, text)
	default:
		return Value{}, decodeErr(raw, shape.Kind, "shape has no decodable kind", nil)
	}
}

func decodeBool(raw, text string) (Value, error) {
	switch text {
	case "True", "true", "1":
		return Bool(true), nil
	case "False", "false", "0":
		return Bool(false), nil
	}
	return Value{}, decodeErr(raw, KindBool, "want True/true/1 or False/false/0", nil)
}

func decodeInt(raw, text string) (Value, error) {
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return Value{}, decodeErr(raw, KindInt, "not a base-10 integer", err)
	}
	return Int(i), nil
}

func decodeFloat(raw, text string) (Value, error) {
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Value{}, decodeErr(raw, KindFloat, "not a floating-point number", err)
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return Value{}, decodeErr(raw, KindFloat, "infinities and NaN are not representable", nil)
	}
	return Float(f), nil
}

func decodeString(raw, text string) (Value, error) {
	if strings.HasPrefix(text, "'") {
		s, err := unquote(text)
		if err != nil {
			return Value{}, decodeErr(raw, KindString, err.Error(), nil)
		}
		return String(s), nil
	}
	return String(text), nil
}

func decodeList(raw, text string, elem Kind) (Value, error) {
	inner, ok := frame(text, '[', ']')
	if !ok {
		return Value{}, decodeErr(raw, KindList, "want [elem,elem,...]", nil)
	}
	if strings.TrimSpace(inner) == "" {
		return List(), nil
	}
	parts, err := splitItems(inner)
	if err != nil {
		return Value{}, decodeErr(raw, KindList, err.Error(), nil)
	}
	elems := make([]Value, 0, len(parts))
	for _, part := range parts {
		v, err := Decode(part, Shape{Kind: elem})
		if err != nil {
			return Value{}, decodeErr(raw, KindList, fmt.Sprintf("element %q: not a %s", strings.TrimSpace(part), elem), err)
		}
		elems = append(elems, v)
	}
	return List(elems...), nil
}

func decodeTuple(raw, text string, arity []Shape) (Value, error) {
	inner, ok := frame(text, '(', ')')
	if !ok {
		return Value{}, decodeErr(raw, KindTuple, "want (elem, elem, ...)", nil)
	}
	parts, err := splitItems(inner)
	if err != nil {
		return Value{}, decodeErr(raw, KindTuple, err.Error(), nil)
	}
	if len(parts) != len(arity) {
		return Value{}, decodeErr(raw, KindTuple, fmt.Sprintf("want %d elements, have %d", len(arity), len(parts)), nil)
	}
	elems := make([]Value, 0, len(parts))
	for i, part := range parts {
		v, err := Decode(part, arity[i])
		if err != nil {
			return Value{}, decodeErr(raw, KindTuple, fmt.Sprintf("element %d: not a %s", i, arity[i].Kind), err)
		}
		elems = append(elems, v)
	}
	return Tuple(elems...), nil
}

func decodeAddr(raw, text string) (Value, error) {
	inner, ok := frame(text, '(', ')')
	if !ok {
		return Value{}, decodeErr(raw, KindAddr, "want ('host', [port,port,...])", nil)
	}
	parts, err := splitItems(inner)
	if err != nil {
		return Value{}, decodeErr(raw, KindAddr, err.Error(), nil)
	}
	if len(parts) != 2 {
		return Value{}, decodeErr(raw, KindAddr, fmt.Sprintf("want host and port list, have %d elements", len(parts)), nil)
	}
	hostVal, err := Decode(parts[0], Shape{Kind: KindString})
	if err != nil {
		return Value{}, decodeErr(raw, KindAddr, "host is not a string", err)
	}
	host, _ := hostVal.Str()
	portsVal, err := Decode(parts[1], Shape{Kind: KindList, Elem: KindInt})
	if err != nil {
		return Value{}, decodeErr(raw, KindAddr, "ports are not an integer list", err)
	}
	elems, _ := portsVal.Elems()
	ports := make([]int, 0, len(elems))
	for _, e := range elems {
		p, _ := e.Int()
		if p < -1 || p > 65535 {
			return Value{}, decodeErr(raw, KindAddr, fmt.Sprintf("port %d outside [-1,65535]", p), nil)
		}
		ports = append(ports, int(p))
	}
	return Addr(host, ports), nil
}

// frame strips one level of open/close delimiters from s.
func frame(s string, open, closing byte) (inner string, ok bool) {
	if len(s) < 2 || s[0] != open || s[len(s)-1] != closing {
		return "", false
	}
	return s[1 : len(s)-1], true
}

// splitItems splits container content on top-level commas, honoring nested
// brackets, parentheses and single-quoted runs.
func splitItems(s string) ([]string, error) {
	var items []string
	depth := 0
	inQuote := false
	escaped := false
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inQuote {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '\'':
				inQuote = false
			}
			continue
		}
		switch c {
		case '\'':
			inQuote = true
		case '[', '(':
			depth++
		case ']', ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced %q", string(c))
			}
		case ',':
			if depth == 0 {
				items = append(items, s[start:i])
				start = i + 1
			}
		}
	}
	if inQuote {
		return nil, errors.New("unterminated quote")
	}
	if depth != 0 {
		return nil, errors.New("unbalanced brackets")
	}
	return append(items, s[start:]), nil
}

// unquote parses a complete single-quoted literal.
func unquote(s string) (string, error) {
	var b strings.Builder
	b.Grow(len(s))
	escaped := false
	for i := 1; i < len(s); i++ {
		c := s[i]
		if escaped {
			switch c {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(c)
			}
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '\'':
			if i != len(s)-1 {
				return "", fmt.Errorf("trailing text after closing quote: %q", s[i+1:])
			}
			return b.String(), nil
		default:
			b.WriteByte(c)
		}
	}
	return "", errors.New("unterminated quote")
}

func decodeErr(raw string, want Kind, reason string, err error) error {
	return &DecodeError{Raw: strings.TrimSpace(raw), Want: want.String(), Reason: reason, Err: err}
}

package value

import (
	"strconv"
	"strings"
)

// Encode returns the canonical literal text for a value. Decoding the result
// against the value's own shape yields an equal value.
//
// Canonical spellings: booleans are True/False, null is None, floats always
// carry a decimal point or exponent, list elements join with "," and tuple
// elements with ", ". Top-level strings stay bare unless quoting is needed to
// keep them unambiguous; strings nested in lists or tuples are always
// single-quoted.
func Encode(v Value) string {
	switch v.kind {
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	case KindString:
		if needsQuote(v.s) {
			return quote(v.s)
		}
		return v.s
	case KindNull:
		return "None"
	case KindList:
		parts := make([]string, len(v.items))
		for i, e := range v.items {
			parts[i] = encodeElem(e)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case KindTuple:
		parts := make([]string, len(v.items))
		for i, e := range v.items {
			parts[i] = encodeElem(e)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindAddr:
		ports := make([]string, len(v.ports))
		for i, p := range v.ports {
			ports[i] = strconv.Itoa(p)
		}
		return "(" + quote(v.s) + ", [" + strings.Join(ports, ",") + "])"
	default:
		return ""
	}
}

// encodeElem encodes a value nested inside a list or tuple. Strings are
// always quoted there so element boundaries stay unambiguous.
func encodeElem(v Value) string {
	if v.kind == KindString {
		return quote(v.s)
	}
	return Encode(v)
}

// formatFloat renders a float so it never re-reads as an integer literal.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// needsQuote reports whether a bare spelling of s would be ambiguous or
// lossy.
func needsQuote(s string) bool {
	if s == "" {
		return true
	}
	if s != strings.TrimSpace(s) {
		return true
	}
	switch s {
	case "True", "False", "None":
		return true
	}
	switch s[0] {
	case '[', '(', '\'':
		return true
	}
	return strings.ContainsAny(s, "\n\r")
}

// quote wraps s in single quotes, escaping backslashes, quotes and line
// breaks.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\', '\'':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

package store

import (
	"fmt"
	"strings"
)

// LineError describes one unusable line found while parsing.
type LineError struct {
	// Line is the 1-based line number.
	Line int
	// Section is the section open at that line, empty before the first
	// header.
	Section string
	// Text is the offending line.
	Text string
	// Reason describes the problem.
	Reason string
}

// Error implements the error interface.
func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %s (%q)", e.Line, e.Reason, e.Text)
}

// Parse reads configuration text into a store, collecting every unusable
// line instead of stopping at the first. Entries parse as raw text only;
// decoding against the schema happens in a later pass. The first occurrence
// of a duplicated section or key wins.
func Parse(text string) (*Store, []error) {
	s := New()
	var errs []error
	var pending []string
	var current *section

	lines := strings.Split(text, "\n")
	// A trailing newline produces one empty trailing element, not a blank
	// line of content.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	for i, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		trimmed := strings.TrimSpace(line)
		lineNo := i + 1

		switch {
		case trimmed == "" || strings.HasPrefix(trimmed, "#"):
			pending = append(pending, line)

		case strings.HasPrefix(trimmed, "["):
			if !strings.HasSuffix(trimmed, "]") {
				errs = append(errs, lineErr(lineNo, current, line, "unterminated section header"))
				pending = nil
				continue
			}
			name := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
			if name == "" {
				errs = append(errs, lineErr(lineNo, current, line, "empty section name"))
				pending = nil
				continue
			}
			if _, exists := s.index[name]; exists {
				errs = append(errs, lineErr(lineNo, current, line, "duplicate section"))
				current = s.index[name]
				pending = nil
				continue
			}
			current = s.ensureSection(name)
			current.comments = pending
			pending = nil

		default:
			eq := strings.IndexByte(line, '=')
			if eq < 0 {
				errs = append(errs, lineErr(lineNo, current, line, "neither section header nor key = value"))
				pending = nil
				continue
			}
			key := strings.TrimSpace(line[:eq])
			raw := strings.TrimSpace(line[eq+1:])
			if key == "" {
				errs = append(errs, lineErr(lineNo, current, line, "empty key"))
				pending = nil
				continue
			}
			if current == nil {
				errs = append(errs, lineErr(lineNo, current, line, "key before any section header"))
				pending = nil
				continue
			}
			if _, exists := current.index[key]; exists {
				errs = append(errs, lineErr(lineNo, current, line, "duplicate key"))
				pending = nil
				continue
			}
			e := &entry{key: key, raw: raw, comments: pending}
			pending = nil
			current.entries = append(current.entries, e)
			current.index[key] = e
		}
	}

	s.trailing = pending
	return s, errs
}

func lineErr(line int, current *section, text, reason string) *LineError {
	sectionName := ""
	if current != nil {
		sectionName = current.name
	}
	return &LineError{Line: line, Section: sectionName, Text: text, Reason: reason}
}

// Serialize renders the store back to configuration text: comments, section
// order and key order as loaded, appended entries at the tail of their
// section. Entries are written as "key = raw", so values a load/save cycle
// never touched come back byte for byte.
func (s *Store) Serialize() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b strings.Builder
	for _, sec := range s.sections {
		for _, c := range sec.comments {
			b.WriteString(c)
			b.WriteByte('\n')
		}
		b.WriteByte('[')
		b.WriteString(sec.name)
		b.WriteString("]\n")
		for _, e := range sec.entries {
			for _, c := range e.comments {
				b.WriteString(c)
				b.WriteByte('\n')
			}
			b.WriteString(e.key)
			b.WriteString(" = ")
			b.WriteString(e.raw)
			b.WriteByte('\n')
		}
	}
	for _, c := range s.trailing {
		b.WriteString(c)
		b.WriteByte('\n')
	}
	return b.String()
}

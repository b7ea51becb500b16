package techsim

import "strings"

// Template is a narration line with $Name or ${Name} placeholders. "$$" is a
// literal dollar sign. Placeholders without a value are left verbatim.
type Template struct {
	source   string
	segments []segment
}

type segment struct {
	literal string
	name    string // set for placeholders
	raw     string // original placeholder text
}

// ParseTemplate splits s into literal and placeholder segments.
func ParseTemplate(s string) *Template {
	t := &Template{source: s}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			t.segments = append(t.segments, segment{literal: lit.String()})
			lit.Reset()
		}
	}
	for i := 0; i < len(s); {
		if s[i] != '$' || i+1 >= len(s) {
			lit.WriteByte(s[i])
			i++
			continue
		}
		next := s[i+1]
		switch {
		case next == '$':
			lit.WriteByte('$')
			i += 2
		case next == '{':
			end := strings.IndexByte(s[i+2:], '}')
			if end < 0 || !isIdent(s[i+2:i+2+end]) {
				lit.WriteByte('$')
				i++
				continue
			}
			flush()
			name := s[i+2 : i+2+end]
			t.segments = append(t.segments, segment{name: name, raw: s[i : i+3+end]})
			i += 3 + end
		case isIdentStart(next):
			j := i + 2
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			flush()
			t.segments = append(t.segments, segment{name: s[i+1 : j], raw: s[i:j]})
			i = j
		default:
			lit.WriteByte('$')
			i++
		}
	}
	flush()
	return t
}

// String returns the unparsed template.
func (t *Template) String() string {
	return t.source
}

// Render substitutes values; unknown placeholders pass through unchanged.
func (t *Template) Render(values map[string]string) string {
	var b strings.Builder
	for _, seg := range t.segments {
		if seg.name == "" {
			b.WriteString(seg.literal)
			continue
		}
		if v, ok := values[seg.name]; ok {
			b.WriteString(v)
		} else {
			b.WriteString(seg.raw)
		}
	}
	return b.String()
}

func isIdent(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}
	return true
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

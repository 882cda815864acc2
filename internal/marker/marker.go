// Package marker extracts structured results that the model embeds in
// otherwise free-form assistant text. The model is instructed to emit a fixed
// sentinel literal followed by a JSON object, but it is not a reliable JSON
// emitter: keys are sometimes bare and values sometimes unquoted. A tolerant
// repair pass normalizes exactly those two cases and nothing more.
package marker

import (
	"encoding/json"
	"strings"
)

// Sentinel literals the prompts instruct the model to emit.
const (
	IkigaiSummaryMarker = "IKIGAI_FINAL_SUMMARY:"
	ProjectIdeaMarker   = "PROJECT_IDEA_AGREED_TO_SAVE:"
)

// Extract locates the marker in text and returns the balanced-brace JSON
// span that follows it. Absence of the marker, or an unbalanced span, yields
// ok=false; neither is an error.
func Extract(text, marker string) (span string, ok bool) {
	start := strings.Index(text, marker)
	if start == -1 {
		return "", false
	}

	open := strings.Index(text[start+len(marker):], "{")
	if open == -1 {
		return "", false
	}
	open += start + len(marker)

	depth := 0
	for i := open; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
		}
		if depth == 0 {
			return text[open : i+1], true
		}
	}

	// Depth never returned to zero: malformed output, not a fatal error.
	return "", false
}

// Contains reports whether the marker literal appears in text at all.
func Contains(text, marker string) bool {
	return strings.Contains(text, marker)
}

// Repair normalizes bare object keys and unquoted scalar values so the span
// parses as strict JSON. Input that is already valid JSON is returned
// unchanged. Booleans, numbers, null and quoted strings are never touched.
// If the span cannot be walked structurally the input is returned as-is and
// the subsequent parse is left to fail.
func Repair(s string) string {
	if json.Valid([]byte(s)) {
		return s
	}

	r := &repairer{src: s}
	out, ok := r.value()
	r.skipSpace()
	if !ok || r.pos != len(r.src) {
		return s
	}
	return out
}

type repairer struct {
	src string
	pos int
}

func (r *repairer) skipSpace() {
	for r.pos < len(r.src) {
		switch r.src[r.pos] {
		case ' ', '\t', '\n', '\r':
			r.pos++
		default:
			return
		}
	}
}

func (r *repairer) value() (string, bool) {
	r.skipSpace()
	if r.pos >= len(r.src) {
		return "", false
	}
	switch r.src[r.pos] {
	case '{':
		return r.object()
	case '[':
		return r.array()
	case '"':
		return r.quoted()
	default:
		return r.bare(false)
	}
}

func (r *repairer) object() (string, bool) {
	var b strings.Builder
	b.WriteByte('{')
	r.pos++ // consume {

	r.skipSpace()
	if r.pos < len(r.src) && r.src[r.pos] == '}' {
		r.pos++
		return "{}", true
	}

	for {
		r.skipSpace()
		key, ok := r.key()
		if !ok {
			return "", false
		}
		b.WriteString(key)

		r.skipSpace()
		if r.pos >= len(r.src) || r.src[r.pos] != ':' {
			return "", false
		}
		r.pos++
		b.WriteByte(':')

		val, ok := r.memberValue()
		if !ok {
			return "", false
		}
		b.WriteString(val)

		r.skipSpace()
		if r.pos >= len(r.src) {
			return "", false
		}
		switch r.src[r.pos] {
		case ',':
			r.pos++
			b.WriteByte(',')
		case '}':
			r.pos++
			b.WriteByte('}')
			return b.String(), true
		default:
			return "", false
		}
	}
}

func (r *repairer) array() (string, bool) {
	var b strings.Builder
	b.WriteByte('[')
	r.pos++ // consume [

	r.skipSpace()
	if r.pos < len(r.src) && r.src[r.pos] == ']' {
		r.pos++
		return "[]", true
	}

	for {
		r.skipSpace()
		var val string
		var ok bool
		if r.pos < len(r.src) && (r.src[r.pos] == '"' || r.src[r.pos] == '{' || r.src[r.pos] == '[') {
			val, ok = r.value()
		} else {
			val, ok = r.bare(true)
		}
		if !ok {
			return "", false
		}
		b.WriteString(val)

		r.skipSpace()
		if r.pos >= len(r.src) {
			return "", false
		}
		switch r.src[r.pos] {
		case ',':
			r.pos++
			b.WriteByte(',')
		case ']':
			r.pos++
			b.WriteByte(']')
			return b.String(), true
		default:
			return "", false
		}
	}
}

// key parses a quoted or bare object key, returning it quoted.
func (r *repairer) key() (string, bool) {
	if r.pos < len(r.src) && r.src[r.pos] == '"' {
		return r.quoted()
	}

	start := r.pos
	for r.pos < len(r.src) && isIdentChar(r.src[r.pos]) {
		r.pos++
	}
	if r.pos == start {
		return "", false
	}
	return `"` + r.src[start:r.pos] + `"`, true
}

// memberValue parses an object member value. A bare value runs until the
// closing brace or a comma that introduces another key, so prose containing
// commas stays one value.
func (r *repairer) memberValue() (string, bool) {
	r.skipSpace()
	if r.pos >= len(r.src) {
		return "", false
	}
	switch r.src[r.pos] {
	case '{', '[', '"':
		return r.value()
	default:
		return r.bare(false)
	}
}

// quoted copies a quoted string verbatim, honoring escapes.
func (r *repairer) quoted() (string, bool) {
	start := r.pos
	r.pos++ // consume opening quote
	for r.pos < len(r.src) {
		switch r.src[r.pos] {
		case '\\':
			r.pos += 2
		case '"':
			r.pos++
			return r.src[start:r.pos], true
		default:
			r.pos++
		}
	}
	return "", false
}

// bare consumes an unquoted scalar. Inside arrays any comma terminates; in
// objects only a comma followed by a key does. The token is left alone if it
// is a number, boolean or null, otherwise it is escaped and quoted.
func (r *repairer) bare(inArray bool) (string, bool) {
	start := r.pos
	end := -1
	for i := r.pos; i < len(r.src); i++ {
		c := r.src[i]
		if c == '}' || c == ']' {
			end = i
			break
		}
		if c == ',' {
			if inArray || r.nextIsKey(i+1) {
				end = i
				break
			}
		}
		// An interior quote is content (the model forgot to escape it); a
		// structural opener inside a bare token is unrecoverable.
		if c == '{' || c == '[' {
			return "", false
		}
	}
	if end == -1 {
		return "", false
	}
	r.pos = end

	token := strings.TrimSpace(r.src[start:end])
	if token == "" {
		return "", false
	}
	if isLiteral(token) {
		return token, true
	}

	escaped := strings.ReplaceAll(token, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `"` + escaped + `"`, true
}

// nextIsKey reports whether src[at:] starts with `identifier:` (optionally
// quoted), i.e. the comma before it separates object members.
func (r *repairer) nextIsKey(at int) bool {
	i := at
	for i < len(r.src) && (r.src[i] == ' ' || r.src[i] == '\t' || r.src[i] == '\n' || r.src[i] == '\r') {
		i++
	}
	if i < len(r.src) && r.src[i] == '"' {
		i++
		for i < len(r.src) && r.src[i] != '"' {
			i++
		}
		i++
	} else {
		start := i
		for i < len(r.src) && isIdentChar(r.src[i]) {
			i++
		}
		if i == start {
			return false
		}
	}
	for i < len(r.src) && (r.src[i] == ' ' || r.src[i] == '\t') {
		i++
	}
	return i < len(r.src) && r.src[i] == ':'
}

func isIdentChar(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

func isLiteral(token string) bool {
	switch token {
	case "true", "false", "null":
		return true
	}
	if _, err := parseNumber(token); err == nil {
		return true
	}
	return false
}

func parseNumber(token string) (float64, error) {
	var f float64
	err := json.Unmarshal([]byte(token), &f)
	return f, err
}

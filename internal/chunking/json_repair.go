package chunking

import (
	"encoding/json"
	"fmt"
	"strings"
)

// unmarshalSections parses the model's JSON array, retrying once with
// control-character sanitisation. Models sometimes emit literal newlines or
// tabs inside JSON string values instead of the escaped forms, which makes
// a strict parse fail with "invalid character".
func unmarshalSections(s string) ([]semanticSection, error) {
	var sections []semanticSection
	if err := json.Unmarshal([]byte(s), &sections); err == nil {
		return sections, nil
	}
	if err := json.Unmarshal([]byte(sanitizeJSON(s)), &sections); err != nil {
		return nil, fmt.Errorf("parse semantic sections: %w", err)
	}
	return sections, nil
}

// sanitizeJSON escapes bare control characters found inside string
// literals. String boundaries are tracked with a quote flag and a
// backslash-escape flag; control characters outside strings are left alone.
func sanitizeJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escapeNext := false
	for _, ch := range s {
		switch {
		case escapeNext:
			b.WriteRune(ch)
			escapeNext = false
		case ch == '\\' && inString:
			b.WriteRune(ch)
			escapeNext = true
		case ch == '"':
			inString = !inString
			b.WriteRune(ch)
		case inString && ch < 32:
			switch ch {
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			case '\t':
				b.WriteString(`\t`)
			default:
				fmt.Fprintf(&b, `\u%04x`, ch)
			}
		default:
			b.WriteRune(ch)
		}
	}
	return b.String()
}

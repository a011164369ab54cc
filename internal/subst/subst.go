// Package subst implements flat {key} placeholder substitution for mail templates.
package subst

import "strings"

// Row maps placeholder keys to replacement values for a single recipient.
// One Row is built per data record.
type Row map[string]string

// Has reports whether the row defines key.
func (r Row) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// Apply replaces every {key} in template whose key is present in row with the
// row's value. Tokens with unknown keys are left as literal text. Replacement
// values are inserted verbatim and never rescanned.
func Apply(template string, row Row) string {
	if len(row) == 0 || !strings.Contains(template, "{") {
		return template
	}

	var b strings.Builder
	b.Grow(len(template))

	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			return b.String()
		}
		b.WriteString(rest[:open])

		closeIdx := strings.IndexByte(rest[open+1:], '}')
		if closeIdx < 0 {
			b.WriteString(rest[open:])
			return b.String()
		}

		key := rest[open+1 : open+1+closeIdx]
		if value, ok := row[key]; ok {
			b.WriteString(value)
			rest = rest[open+closeIdx+2:]
			continue
		}

		// Not a known key: keep the brace and resume right after it so a
		// nested token such as "{{name}}" still resolves its inner part.
		b.WriteByte('{')
		rest = rest[open+1:]
	}
}

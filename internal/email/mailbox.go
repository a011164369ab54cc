package email

import (
	"mime"
	"strings"
)

// Mailbox is a validated display-name/address pair.
type Mailbox struct {
	Name    string
	Address string
}

// String formats the mailbox for a header: "addr" without a name, "Name <addr>"
// when the name is a plain phrase, a quoted name when it contains specials and an
// RFC 2047 encoded name when it is not ASCII.
func (m Mailbox) String() string {
	addr := "<" + m.Address + ">"
	if m.Name == "" {
		return m.Address
	}

	switch {
	case isPhrase(m.Name):
		return m.Name + " " + addr
	case isPrintableASCII(m.Name):
		return quote(m.Name) + " " + addr
	default:
		return mime.QEncoding.Encode("utf-8", m.Name) + " " + addr
	}
}

// isPhrase reports whether s is a sequence of RFC 5322 atoms separated by single spaces.
func isPhrase(s string) bool {
	if strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") || strings.Contains(s, "  ") {
		return false
	}
	for _, c := range s {
		if c != ' ' && !isAtext(c) {
			return false
		}
	}
	return true
}

func isAtext(c rune) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.ContainsRune("!#$%&'*+-/=?^_`{|}~", c)
}

func isPrintableASCII(s string) bool {
	for _, c := range s {
		if c < ' ' || c > '~' {
			return false
		}
	}
	return true
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, c := range s {
		if c == '\\' || c == '"' {
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	b.WriteByte('"')
	return b.String()
}

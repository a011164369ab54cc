package address

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/shineum/dispatch/internal/email"
	"github.com/shineum/dispatch/internal/subst"
)

var (
	errMissingDomain = errors.New("missing domain")
	errInvalidDomain = errors.New("domain must contain at least one dot")
)

// ParseMailbox parses "Name <user@host>" or "user@host". On top of RFC 5322
// syntax the domain must contain at least one dot.
func ParseMailbox(s string) (email.Mailbox, error) {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return email.Mailbox{}, err
	}

	at := strings.LastIndex(addr.Address, "@")
	if at == -1 || at == len(addr.Address)-1 {
		return email.Mailbox{}, errMissingDomain
	}
	domain := addr.Address[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return email.Mailbox{}, errInvalidDomain
	}

	return email.Mailbox{Name: addr.Name, Address: addr.Address}, nil
}

// ResolveOne substitutes template through row and parses the result as a
// single mailbox. Failures are reported as *email.AddressError naming the raw
// template.
func ResolveOne(template string, row subst.Row) (email.Mailbox, error) {
	box, err := ParseMailbox(subst.Apply(template, row))
	if err != nil {
		return email.Mailbox{}, &email.AddressError{Template: template, Err: err}
	}
	return box, nil
}

// Resolve resolves every template of r in order. A nil r yields no mailboxes.
// The first unparsable entry fails the whole resolution.
func Resolve(r *Recipients, row subst.Row) ([]email.Mailbox, error) {
	templates := r.Templates()
	if len(templates) == 0 {
		return nil, nil
	}

	boxes := make([]email.Mailbox, 0, len(templates))
	for _, tmpl := range templates {
		box, err := ResolveOne(tmpl, row)
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, box)
	}
	return boxes, nil
}

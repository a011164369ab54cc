package smtptest

import (
	"encoding/base64"
	"errors"
	"strings"
)

var errBadCredentials = errors.New("authentication failed")

// credentials checks AUTH responses against a single account. The zero value
// disables authentication.
type credentials struct {
	username string
	password string
}

func (c credentials) enabled() bool {
	return c.username != "" || c.password != ""
}

// checkPlain verifies a base64 AUTH PLAIN response: authzid\0authcid\0password.
func (c credentials) checkPlain(encoded string) error {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return errors.New("invalid base64 encoding")
	}
	fields := strings.SplitN(string(decoded), "\x00", 3)
	if len(fields) != 3 {
		return errors.New("invalid AUTH PLAIN format")
	}
	return c.check(fields[1], fields[2])
}

// checkLogin verifies the two base64 answers of an AUTH LOGIN exchange.
func (c credentials) checkLogin(encodedUser, encodedPass string) error {
	user, err := base64.StdEncoding.DecodeString(encodedUser)
	if err != nil {
		return errors.New("invalid base64 username")
	}
	pass, err := base64.StdEncoding.DecodeString(encodedPass)
	if err != nil {
		return errors.New("invalid base64 password")
	}
	return c.check(string(user), string(pass))
}

func (c credentials) check(user, pass string) error {
	if user != c.username || pass != c.password {
		return errBadCredentials
	}
	return nil
}

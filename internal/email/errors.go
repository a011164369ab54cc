package email

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoBody indicates neither an HTML nor a text body was available.
	ErrNoBody = errors.New("message must have an HTML or text body")

	// ErrEmptyBatch indicates the data source produced no rows.
	ErrEmptyBatch = errors.New("no emails to send")

	// ErrDeclined indicates the operator declined to continue past an
	// unmatched placeholder warning.
	ErrDeclined = errors.New("dispatch canceled")
)

// ConfigError reports a missing or invalid configuration value.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "invalid configuration: " + e.Reason
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// AddressError reports an address template that did not parse as a mailbox
// after substitution.
type AddressError struct {
	// Template is the raw address template from the configuration.
	Template string
	Err      error
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("could not parse address %s: %v", e.Template, e.Err)
}

func (e *AddressError) Unwrap() error { return e.Err }

// FileError reports a body, data or related-content file that could not be read.
type FileError struct {
	Path string
	// ContentID is set when the file backs a related-content entry.
	ContentID string
	Err       error
}

func (e *FileError) Error() string {
	if e.ContentID != "" {
		return fmt.Sprintf("could not read related content %s from %s: %v", e.ContentID, e.Path, e.Err)
	}
	return fmt.Sprintf("could not read %s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// SendError reports a transport failure for one message.
type SendError struct {
	Recipients []string
	Err        error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("error sending email to %s: %v", strings.Join(e.Recipients, ", "), e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

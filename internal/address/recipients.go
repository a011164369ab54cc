// Package address resolves recipient templates into validated mailboxes.
package address

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Recipients is either a single address template (Individual) or an ordered
// list of templates (Multiple). An absent recipient class is a nil
// *Recipients, never an empty list.
type Recipients struct {
	templates []string
	multiple  bool
}

// Individual returns a recipients value holding a single address.
func Individual(template string) *Recipients {
	return &Recipients{templates: []string{template}}
}

// Multiple returns an ordered list of address templates.
func Multiple(templates ...string) *Recipients {
	return &Recipients{templates: append([]string(nil), templates...), multiple: true}
}

// IsMultiple reports whether r was given as a list.
func (r *Recipients) IsMultiple() bool { return r != nil && r.multiple }

// Templates returns the raw address templates in order.
func (r *Recipients) Templates() []string {
	if r == nil {
		return nil
	}
	return r.templates
}

// UnmarshalJSON decodes a JSON string as Individual and a JSON array of
// strings as Multiple.
func (r *Recipients) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("recipients: empty value")
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("recipients: %w", err)
		}
		*r = Recipients{templates: []string{s}}
	case '[':
		var list []string
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return fmt.Errorf("recipients: %w", err)
		}
		*r = Recipients{templates: list, multiple: true}
	default:
		return fmt.Errorf("recipients: expected a string or a list of strings, got %s", trimmed)
	}
	return nil
}

// MarshalJSON writes Individual as a string and Multiple as an array.
func (r Recipients) MarshalJSON() ([]byte, error) {
	if r.multiple {
		if r.templates == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(r.templates)
	}
	if len(r.templates) == 0 {
		return []byte(`""`), nil
	}
	return json.Marshal(r.templates[0])
}

// UnmarshalYAML decodes a scalar node as Individual and a sequence node as Multiple.
func (r *Recipients) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return fmt.Errorf("recipients: %w", err)
		}
		*r = Recipients{templates: []string{s}}
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return fmt.Errorf("recipients: %w", err)
		}
		*r = Recipients{templates: list, multiple: true}
	default:
		return fmt.Errorf("recipients: line %d: expected a string or a list of strings", value.Line)
	}
	return nil
}

// MarshalYAML mirrors MarshalJSON.
func (r Recipients) MarshalYAML() (any, error) {
	if r.multiple {
		return r.templates, nil
	}
	if len(r.templates) == 0 {
		return "", nil
	}
	return r.templates[0], nil
}

package subst

import (
	"reflect"
	"strings"
	"testing"
)

func TestApply(t *testing.T) {
	t.Parallel()

	row := Row{"name": "Ann", "email": "ann@example.com", "code": "{name}"}

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"no placeholders", "Hello there", "Hello there"},
		{"single key", "Hello {name}", "Hello Ann"},
		{"repeated key", "{name} and {name}", "Ann and Ann"},
		{"unknown key kept", "Hello {nickname}", "Hello {nickname}"},
		{"mixed", "{name} <{email}> {missing}", "Ann <ann@example.com> {missing}"},
		{"no double substitution", "Code: {code}", "Code: {name}"},
		{"nested braces", "{{name}}", "{Ann}"},
		{"unterminated", "Hello {name", "Hello {name"},
		{"empty token", "a {} b", "a {} b"},
		{"adjacent tokens", "{name}{email}", "Annann@example.com"},
		{"unicode", "Grüße, {name}!", "Grüße, Ann!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Apply(tt.template, row); got != tt.want {
				t.Errorf("Apply(%q): got %q, want %q", tt.template, got, tt.want)
			}
		})
	}
}

func TestApply_EmptyRow(t *testing.T) {
	t.Parallel()

	if got := Apply("Hi {name}", nil); got != "Hi {name}" {
		t.Errorf("Apply with nil row: got %q, want %q", got, "Hi {name}")
	}
}

func TestApply_KeysWithSpaces(t *testing.T) {
	t.Parallel()

	row := Row{"first name": "Ann"}
	if got := Apply("Hi {first name}", row); got != "Hi Ann" {
		t.Errorf("got %q, want %q", got, "Hi Ann")
	}
}

func TestUnmatched(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		row      Row
		want     []string
	}{
		{
			name:     "one missing key",
			template: "Hello {name}, your code is {code}",
			row:      Row{"name": "Ann"},
			want:     []string{"code"},
		},
		{
			name:     "all matched",
			template: "Hello {name}",
			row:      Row{"name": "Ann"},
			want:     nil,
		},
		{
			name:     "space cancels token",
			template: "body { color: red; } and {code}",
			row:      Row{},
			want:     []string{"code"},
		},
		{
			name:     "open brace restarts token",
			template: "{abc{code}",
			row:      Row{},
			want:     []string{"code"},
		},
		{
			name:     "unterminated token at end",
			template: "Hello {name",
			row:      Row{},
			want:     nil,
		},
		{
			name:     "stray closing brace",
			template: "a } b {x}",
			row:      Row{},
			want:     []string{"x"},
		},
		{
			name:     "scan order and repeats",
			template: "{b} {a} {b}",
			row:      Row{},
			want:     []string{"b", "a", "b"},
		},
		{
			name:     "empty token",
			template: "{}",
			row:      Row{},
			want:     []string{""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Unmatched(tt.template, tt.row)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Unmatched(%q): got %q, want %q", tt.template, got, tt.want)
			}
		})
	}
}

// Every key reported as unmatched must survive Apply as literal text, and every
// key in the row must be gone after Apply.
func TestApplyAndUnmatchedAgree(t *testing.T) {
	t.Parallel()

	row := Row{"name": "Ann", "city": "Oslo"}
	template := "Dear {name} from {city}, your {plan} renews on {date}."

	out := Apply(template, row)
	for _, key := range Unmatched(template, row) {
		token := "{" + key + "}"
		if !strings.Contains(out, token) {
			t.Errorf("unmatched token %s missing from output %q", token, out)
		}
	}
	for key := range row {
		if strings.Contains(out, "{"+key+"}") {
			t.Errorf("matched token {%s} still present in output %q", key, out)
		}
	}
}

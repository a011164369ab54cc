package prompt

import (
	"bytes"
	"strings"
	"testing"
)

func TestAsk(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		input      string
		question   string
		def        string
		want       string
		wantOutput string
	}{
		{name: "answer", input: "Ann\n", question: "Name", want: "Ann", wantOutput: "Name? "},
		{name: "trimmed", input: "  Ann \r\n", question: "Name", want: "Ann", wantOutput: "Name? "},
		{name: "default", input: "\n", question: "Server", def: "smtp.gmail.com", want: "smtp.gmail.com", wantOutput: "Server (default: smtp.gmail.com)? "},
		{name: "override default", input: "mail.example.com\n", question: "Server", def: "smtp.gmail.com", want: "mail.example.com"},
		{name: "eof uses default", input: "", question: "Subject", def: "Hello", want: "Hello"},
		{name: "eof without newline", input: "yes", question: "Continue", def: "n", want: "yes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			p := New(strings.NewReader(tt.input), &out)

			got, err := p.Ask(tt.question, tt.def)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Ask: got %q, want %q", got, tt.want)
			}
			if tt.wantOutput != "" && out.String() != tt.wantOutput {
				t.Errorf("output: got %q, want %q", out.String(), tt.wantOutput)
			}
		})
	}
}

func TestAskSequence(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := New(strings.NewReader("first\n\nthird\n"), &out)

	for i, want := range []string{"first", "dflt", "third"} {
		got, err := p.Ask("Q", "dflt")
		if err != nil {
			t.Fatalf("Ask %d: unexpected error: %v", i, err)
		}
		if got != want {
			t.Errorf("Ask %d: got %q, want %q", i, got, want)
		}
	}
}

func TestPasswordFromPipe(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := New(strings.NewReader(" s3cret \n"), &out)

	got, err := p.Password("Password for me@example.com: ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != " s3cret " {
		t.Errorf("Password: got %q, want %q", got, " s3cret ")
	}
	if out.String() != "Password for me@example.com: " {
		t.Errorf("output: got %q", out.String())
	}
}

func TestNo(t *testing.T) {
	t.Parallel()

	for answer, want := range map[string]bool{
		"n": true, "N": true, "no": true, "Nope": true,
		"y": false, "yes": false, "ok": false, "sure": false, "": false,
	} {
		if got := No(answer); got != want {
			t.Errorf("No(%q): got %v, want %v", answer, got, want)
		}
	}
}

func TestYes(t *testing.T) {
	t.Parallel()

	for answer, want := range map[string]bool{
		"y": true, "Y": true, "yes": true, "Yep": true,
		"n": false, "no": false, "": false, "sure": false,
	} {
		if got := Yes(answer); got != want {
			t.Errorf("Yes(%q): got %v, want %v", answer, got, want)
		}
	}
}

// Package prompt asks the operator questions on a terminal.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter asks a question and returns the trimmed answer, or def when the
// answer is empty. An empty def means the question has no default.
type Prompter interface {
	Ask(question, def string) (string, error)
}

// Terminal prompts on an output stream and reads answers line by line.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
	// fd is the descriptor used for echo-free password entry, or -1.
	fd int
}

// New returns a Terminal reading from in and writing questions to out.
// Password entry disables echo when in is a terminal.
func New(in io.Reader, out io.Writer) *Terminal {
	fd := -1
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd = int(f.Fd())
	}
	return &Terminal{in: bufio.NewReader(in), out: out, fd: fd}
}

// Ask prints "question (default: def)? " and reads one line.
func (t *Terminal) Ask(question, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(t.out, "%s (default: %s)? ", question, def)
	} else {
		fmt.Fprintf(t.out, "%s? ", question)
	}

	line, err := t.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read answer: %w", err)
	}

	answer := strings.TrimSpace(line)
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// Password prints label and reads a secret without echo when possible.
func (t *Terminal) Password(label string) (string, error) {
	fmt.Fprint(t.out, label)

	if t.fd >= 0 {
		secret, err := term.ReadPassword(t.fd)
		fmt.Fprintln(t.out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(secret), nil
	}

	line, err := t.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// No reports whether answer is a refusal. Anything not starting with n counts
// as consent.
func No(answer string) bool {
	return strings.HasPrefix(strings.ToLower(answer), "n")
}

// Yes reports whether answer is affirmative.
func Yes(answer string) bool {
	return strings.HasPrefix(strings.ToLower(answer), "y")
}

// Package prompt covers the two questions foxglove asks: a yes/no
// confirmation and a hidden API key read. Anything fancier is out of scope
// on purpose.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter reads answers from In and writes questions to Out.
type Prompter struct {
	In  io.Reader
	Out io.Writer

	// fd is the terminal file descriptor used for hidden reads.
	fd           int
	isTerminal   func(int) bool
	readPassword func(int) ([]byte, error)
}

// New returns a Prompter bound to stdin/stderr. Questions go to stderr so
// piped stdout stays clean.
func New() *Prompter {
	return &Prompter{
		In:           os.Stdin,
		Out:          os.Stderr,
		fd:           int(os.Stdin.Fd()),
		isTerminal:   term.IsTerminal,
		readPassword: term.ReadPassword,
	}
}

// Confirm asks a yes/no question. Empty input returns def.
func (p *Prompter) Confirm(question string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	if _, err := fmt.Fprintf(p.Out, "%s [%s] ", question, hint); err != nil {
		return def, err
	}

	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && err != io.EOF {
		return def, fmt.Errorf("read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Secret reads a value without echoing when attached to a terminal, and
// falls back to a plain line read otherwise (pipes, CI).
func (p *Prompter) Secret(label string) (string, error) {
	if _, err := fmt.Fprintf(p.Out, "%s: ", label); err != nil {
		return "", err
	}

	if p.isTerminal != nil && p.readPassword != nil && p.isTerminal(p.fd) {
		raw, err := p.readPassword(p.fd)
		_, _ = fmt.Fprintln(p.Out)
		if err != nil {
			return "", fmt.Errorf("read secret: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}

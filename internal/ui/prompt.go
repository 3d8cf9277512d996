package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var yesNoPattern = regexp.MustCompile(`^[YyNn]$`)

// Prompter asks the operator yes/no questions.
type Prompter interface {
	// Confirm asks question and returns the answer. An empty answer selects
	// defaultYes.
	Confirm(question string, defaultYes bool) (bool, error)
}

// ConsolePrompter reads answers line by line from an input stream. Answers
// that are not a single y/Y/n/N are rejected and the question is repeated.
type ConsolePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsolePrompter returns a ConsolePrompter reading from in and writing
// questions to out.
func NewConsolePrompter(in io.Reader, out io.Writer) *ConsolePrompter {
	return &ConsolePrompter{in: bufio.NewReader(in), out: out}
}

// Confirm implements Prompter. End of input selects the default.
func (p *ConsolePrompter) Confirm(question string, defaultYes bool) (bool, error) {
	def := "n"
	if defaultYes {
		def = "y"
	}

	for {
		fmt.Fprintf(p.out, "%s[%s] ", question, def)

		line, err := p.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, fmt.Errorf("reading answer: %w", err)
		}
		answer := strings.TrimSpace(line)

		if answer == "" {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(p.out)
			}
			return defaultYes, nil
		}
		if yesNoPattern.MatchString(answer) {
			return strings.EqualFold(answer, "y"), nil
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(p.out)
			return defaultYes, nil
		}
		fmt.Fprintf(p.out, "Please answer y or n (got %q).\n", answer)
	}
}

// DefaultPrompter answers every question with its default. It is used when
// stdin is not a terminal.
type DefaultPrompter struct{}

// Confirm implements Prompter.
func (DefaultPrompter) Confirm(_ string, defaultYes bool) (bool, error) {
	return defaultYes, nil
}

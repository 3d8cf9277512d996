package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Printer writes styled, line-oriented messages to a single stream. Progress
// and errors share the stream so the invoking shell sees them in order.
type Printer struct {
	w io.Writer
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Writer returns the underlying stream.
func (p *Printer) Writer() io.Writer {
	return p.w
}

// Success prints an affirmative (green) message.
func (p *Printer) Success(format string, args ...interface{}) {
	p.styled(SuccessStyle, fmt.Sprintf(format, args...))
}

// Error prints an alert (red) message.
func (p *Printer) Error(format string, args ...interface{}) {
	p.styled(ErrorStyle, fmt.Sprintf(format, args...))
}

// Muted prints a dimmed message.
func (p *Printer) Muted(format string, args ...interface{}) {
	p.styled(MutedStyle, fmt.Sprintf(format, args...))
}

// Running traces a command line as "[local] run: <cmdline>".
func (p *Printer) Running(cmdline string) {
	p.Muted("[local] run: %s", cmdline)
}

// styled renders each line on its own so multi-line messages are not padded
// to a common width.
func (p *Printer) styled(style lipgloss.Style, msg string) {
	lines := strings.Split(msg, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = style.Render(line)
		}
	}
	fmt.Fprintln(p.w, strings.Join(lines, "\n"))
}

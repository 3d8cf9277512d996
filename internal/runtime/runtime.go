package runtime

import (
	"context"
	"fmt"
	"strings"
)

// Command is a single external process invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory; empty means the current directory.
	Dir string
	// Env is the full process environment; nil inherits the current one.
	Env []string
}

// String renders the command line for traces and error messages.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Policy selects which categories of subprocess output are hidden.
type Policy struct {
	// HideStdout discards the command's standard output.
	HideStdout bool
	// HideRunning suppresses the "[local] run: ..." trace line.
	HideRunning bool
}

// PolicyFor maps a -v count to the default policy: 0 hides stdout and the
// trace, 1 hides the trace, 2 and above hide nothing.
func PolicyFor(verbosity int) Policy {
	return Policy{
		HideStdout:  verbosity < 1,
		HideRunning: verbosity < 2,
	}
}

// Runner executes external commands synchronously.
type Runner interface {
	// Run blocks until the command exits. A non-zero exit is returned as
	// *ExitError; failures to start are returned as-is.
	Run(ctx context.Context, cmd Command, policy Policy) error
}

// ExitError reports a command that ran and exited non-zero.
type ExitError struct {
	Command  string
	ExitCode int
	// Output holds the tail of the command's combined output.
	Output string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("command %q exited with status %d", e.Command, e.ExitCode)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ":\n" + out
	}
	return msg
}

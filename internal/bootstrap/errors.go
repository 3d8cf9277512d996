package bootstrap

import "fmt"

// Kind classifies a bootstrap failure.
type Kind string

const (
	// UserInput covers problems the operator can fix by changing the request:
	// invalid or conflicting names, an existing project directory, a held lock.
	UserInput Kind = "user-input"
	// ExternalTool covers download, extraction, filesystem and subprocess
	// failures.
	ExternalTool Kind = "external-tool"
	// Metadata covers a missing or incomplete template metadata file.
	Metadata Kind = "metadata"
)

// Error is returned by Bootstrapper.Run for every failure.
type Error struct {
	Kind Kind
	Step Step
	Msg  string
	Err  error
}

// Error returns the human-readable message.
func (e *Error) Error() string {
	if e.Msg == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Msg
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Err
}

func userError(step Step, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: UserInput, Step: step, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// failure builds an error whose message ends with the cause.
func failure(kind Kind, step Step, cause error, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	if cause != nil {
		msg += ": " + cause.Error()
	}
	return &Error{Kind: kind, Step: step, Msg: msg, Err: cause}
}

package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
)

// outputTailSize bounds how much output an ExitError carries.
const outputTailSize = 4096

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Stdout and Stderr default to the process streams.
	Stdout io.Writer
	Stderr io.Writer
	// Trace receives each command line before it starts, unless the policy
	// hides it. Nil writes "[local] run: <cmdline>" to Stdout.
	Trace func(cmdline string)
	// Stdin is connected to every command so tools can prompt.
	Stdin io.Reader
}

// NewExecRunner returns an ExecRunner bound to the process streams.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Stdin:  os.Stdin,
	}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, c Command, policy Policy) error {
	stdout, stderr := r.Stdout, r.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	if !policy.HideRunning {
		if r.Trace != nil {
			r.Trace(c.String())
		} else {
			fmt.Fprintf(stdout, "[local] run: %s\n", c.String())
		}
	}

	bin, err := LookPath(c.Name, c.Env)
	if err != nil {
		return fmt.Errorf("locating %s: %w", c.Name, err)
	}

	cmd := exec.CommandContext(ctx, bin, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.Stdin = r.Stdin

	tail := &tailBuffer{limit: outputTailSize}
	if policy.HideStdout {
		cmd.Stdout = tail
	} else {
		cmd.Stdout = io.MultiWriter(stdout, tail)
	}
	cmd.Stderr = io.MultiWriter(stderr, tail)

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{
				Command:  c.String(),
				ExitCode: exitErr.ExitCode(),
				Output:   tail.String(),
			}
		}
		return fmt.Errorf("running %s: %w", c.String(), err)
	}
	return nil
}

// LookPath resolves name against the PATH found in env, so commands run
// inside an activated environment pick up its executables. Names containing
// a path separator are returned unchanged and resolved by the OS relative to
// the command's working directory. A nil env falls back to exec.LookPath.
func LookPath(name string, env []string) (string, error) {
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		return name, nil
	}
	if env == nil || goruntime.GOOS == "windows" {
		return exec.LookPath(name)
	}

	path, _ := lookupEnv(env, "PATH")
	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() && info.Mode().Perm()&0111 != 0 {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%q: %w", name, exec.ErrNotFound)
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.limit {
		t.buf = t.buf[len(t.buf)-t.limit:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}

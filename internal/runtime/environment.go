package runtime

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"
)

// Environment is an isolated Python environment rooted at Dir. Commands run
// with Environ() behave as if its activate script had been sourced.
type Environment struct {
	Dir string
}

// NewEnvironment returns an Environment rooted at the absolute form of dir.
func NewEnvironment(dir string) (*Environment, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving environment path %s: %w", dir, err)
	}
	return &Environment{Dir: abs}, nil
}

// BinDir returns the directory holding the environment's executables.
func (e *Environment) BinDir() string {
	if goruntime.GOOS == "windows" {
		return filepath.Join(e.Dir, "Scripts")
	}
	return filepath.Join(e.Dir, "bin")
}

// Provision creates the environment by running argv with the environment
// directory appended, e.g. ["virtualenv"] runs `virtualenv <dir>`.
func (e *Environment) Provision(ctx context.Context, r Runner, argv []string, policy Policy) error {
	if len(argv) == 0 {
		return fmt.Errorf("no environment command configured")
	}
	args := append(append([]string{}, argv[1:]...), e.Dir)
	if err := r.Run(ctx, Command{Name: argv[0], Args: args}, policy); err != nil {
		return fmt.Errorf("creating environment at %s: %w", e.Dir, err)
	}
	return nil
}

// Environ returns base with the environment activated: VIRTUAL_ENV set, the
// bin directory first on PATH, PYTHONHOME removed. A nil Environment returns
// a copy of base unchanged, i.e. the ambient environment.
func (e *Environment) Environ(base []string) []string {
	env := append([]string{}, base...)
	if e == nil {
		return env
	}
	env = setEnv(env, "VIRTUAL_ENV", e.Dir)
	path, ok := lookupEnv(env, "PATH")
	if ok && path != "" {
		path = e.BinDir() + string(os.PathListSeparator) + path
	} else {
		path = e.BinDir()
	}
	env = setEnv(env, "PATH", path)
	return unsetEnv(env, "PYTHONHOME")
}

// setEnv sets an environment variable, dropping any earlier definitions.
func setEnv(env []string, key, value string) []string {
	return append(unsetEnv(env, key), key+"="+value)
}

func unsetEnv(env []string, key string) []string {
	prefix := key + "="
	out := env[:0]
	for _, kv := range env {
		if !strings.HasPrefix(kv, prefix) {
			out = append(out, kv)
		}
	}
	return out
}

// lookupEnv returns the last value of key in env, matching os/exec semantics
// where later entries win.
func lookupEnv(env []string, key string) (string, bool) {
	prefix := key + "="
	value, found := "", false
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			value, found = kv[len(prefix):], true
		}
	}
	return value, found
}

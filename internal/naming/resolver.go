package naming

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// StaticResolver reports names from a fixed set as bound.
type StaticResolver map[string]struct{}

// NewStaticResolver builds a StaticResolver from names.
func NewStaticResolver(names ...string) StaticResolver {
	r := make(StaticResolver, len(names))
	for _, n := range names {
		r[n] = struct{}{}
	}
	return r
}

// Bound implements NamespaceResolver.
func (r StaticResolver) Bound(_ context.Context, name string) (bool, error) {
	_, ok := r[name]
	return ok, nil
}

// InterpreterResolver asks a Python interpreter whether `import <name>`
// succeeds in the ambient environment. Files and folders in the caller's
// working directory are not considered.
type InterpreterResolver struct {
	Python string
}

// Bound implements NamespaceResolver. The name must already be a valid
// identifier; it is interpolated into the import statement.
func (r InterpreterResolver) Bound(ctx context.Context, name string) (bool, error) {
	if !Validate(name) {
		return false, fmt.Errorf("project name %q: %w", name, ErrInvalidName)
	}
	python := r.Python
	if python == "" {
		python = "python"
	}
	bin, err := exec.LookPath(python)
	if err != nil {
		return false, fmt.Errorf("locating %s interpreter: %w", python, err)
	}

	// The interpreter puts its working directory first on sys.path, so run it
	// from an empty directory to keep local folders from counting as modules.
	scratch, err := os.MkdirTemp("", "harvest-import-")
	if err != nil {
		return false, fmt.Errorf("creating lookup directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	cmd := exec.CommandContext(ctx, bin, "-c", "import "+name)
	cmd.Dir = scratch
	err = cmd.Run()
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	return false, fmt.Errorf("running %s: %w", python, err)
}

// ChainResolver consults resolvers in order. The first one reporting a
// binding wins. Errors are only surfaced when no resolver reports a binding.
type ChainResolver []NamespaceResolver

// Bound implements NamespaceResolver.
func (c ChainResolver) Bound(ctx context.Context, name string) (bool, error) {
	var errs []error
	for _, r := range c {
		bound, err := r.Bound(ctx, name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if bound {
			return true, nil
		}
	}
	return false, errors.Join(errs...)
}

// DefaultResolver checks the bundled standard-library module list first and
// then the given interpreter.
func DefaultResolver(python string) NamespaceResolver {
	return ChainResolver{
		NewStaticResolver(StdlibModules...),
		InterpreterResolver{Python: python},
	}
}

// Package naming decides whether a requested project name can be used: it
// must be a legal identifier and must not already be bound in the host
// runtime's module namespace.
package naming

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var (
	// ErrInvalidName is returned for names that are not legal identifiers.
	ErrInvalidName = errors.New("not a valid identifier")
	// ErrNameConflict is returned for names already bound to a module.
	ErrNameConflict = errors.New("conflicts with an existing module")
)

// Validate reports whether name is a legal identifier. There is no
// normalization and no length limit.
func Validate(name string) bool {
	return identifierPattern.MatchString(name)
}

// NamespaceResolver answers whether an identifier is already bound in the
// host runtime's importable namespace.
type NamespaceResolver interface {
	Bound(ctx context.Context, name string) (bool, error)
}

// Check validates name and queries resolver for a conflict. The returned
// error wraps ErrInvalidName or ErrNameConflict, or the resolver's error.
func Check(ctx context.Context, resolver NamespaceResolver, name string) error {
	if !Validate(name) {
		return fmt.Errorf("project name %q: %w", name, ErrInvalidName)
	}
	if resolver == nil {
		return nil
	}
	bound, err := resolver.Bound(ctx, name)
	if err != nil {
		return fmt.Errorf("checking project name %q: %w", name, err)
	}
	if bound {
		return fmt.Errorf("project name %q: %w", name, ErrNameConflict)
	}
	return nil
}

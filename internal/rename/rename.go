// Package rename rewrites a template's package token throughout a project
// tree.
package rename

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrEmptyToken is returned when the token to replace is empty.
var ErrEmptyToken = errors.New("replacement token is empty")

// Stats summarizes a FindReplace pass.
type Stats struct {
	Scanned  int
	Modified int
}

// Replace returns content with every occurrence of old replaced by new.
func Replace(content, old, new []byte) []byte {
	if len(old) == 0 {
		return content
	}
	return bytes.ReplaceAll(content, old, new)
}

// FindReplace applies Replace to every regular file under root, writing back
// only files whose content changed. Symlinks are not followed.
func FindReplace(root, old, new string) (Stats, error) {
	var stats Stats
	if old == "" {
		return stats, ErrEmptyToken
	}
	oldB, newB := []byte(old), []byte(new)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		stats.Scanned++

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		if !bytes.Contains(content, oldB) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if err := os.WriteFile(path, Replace(content, oldB, newB), info.Mode().Perm()); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		stats.Modified++
		return nil
	})
	return stats, err
}

// RenamePackage moves projectDir/old to projectDir/new. Equal names are a
// no-op.
func RenamePackage(projectDir, old, new string) error {
	if old == new {
		return nil
	}
	if old == "" || new == "" {
		return ErrEmptyToken
	}
	from := filepath.Join(projectDir, old)
	to := filepath.Join(projectDir, new)
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("renaming package directory %s to %s: %w", old, new, err)
	}
	return nil
}

package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrEmptyArchive is returned when an archive has no entries.
var ErrEmptyArchive = errors.New("archive is empty")

// TemplateRoot returns the top-level directory of the archive, taken from
// its first entry with any trailing slash stripped. Archives whose first
// entry is a nested path yield that path's first segment.
func TemplateRoot(archivePath string) (string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("opening zip archive: %w", err)
	}
	defer r.Close()

	if len(r.File) == 0 {
		return "", ErrEmptyArchive
	}
	root := strings.TrimRight(r.File[0].Name, "/")
	if i := strings.Index(root, "/"); i >= 0 {
		root = root[:i]
	}
	if root == "" || root == "." || root == ".." {
		return "", fmt.Errorf("archive has no usable root entry (%q)", r.File[0].Name)
	}
	return root, nil
}

// Extract unpacks every entry of the archive into dest. File modes are kept,
// subject to the process umask.
// One "inflating: <name>" line per file is written to w when w is non-nil.
// Entries that would land outside dest are rejected.
func Extract(archivePath, dest string, w io.Writer) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("opening zip archive: %w", err)
	}
	defer r.Close()

	dest, err = filepath.Abs(dest)
	if err != nil {
		return fmt.Errorf("resolving extraction directory: %w", err)
	}

	for _, f := range r.File {
		target, err := entryPath(dest, f.Name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("creating directory %s: %w", f.Name, err)
			}
			continue
		}
		if !f.Mode().IsRegular() {
			continue
		}

		if w != nil {
			fmt.Fprintf(w, "  inflating: %s\n", f.Name)
		}
		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

// entryPath joins name onto dest and checks the result stays inside dest.
func entryPath(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(name) {
		return "", fmt.Errorf("archive entry %q escapes extraction directory", name)
	}
	return target, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", f.Name, err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", f.Name, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("extracting %s: %w", f.Name, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("extracting %s: %w", f.Name, err)
	}
	return nil
}

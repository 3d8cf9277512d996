// Package metadata reads and updates the INI file a template ships at its
// root, which records the template's internal package name and version.
package metadata

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/ini.v1"
)

const (
	keyPackage = "package"
	keyVersion = "version"
)

// Error reports a missing or malformed metadata file or key.
type Error struct {
	Path string
	Key  string
	Err  error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("metadata %s: missing key %q", e.Path, e.Key)
	}
	return fmt.Sprintf("metadata %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// File is a loaded metadata file bound to one section.
type File struct {
	path    string
	section string
	cfg     *ini.File
}

// Load parses the metadata file at path. The section is created on write if
// it does not exist yet.
func Load(path, section string) (*File, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &Error{Path: path, Err: fmt.Errorf("file not found")}
		}
		return nil, &Error{Path: path, Err: err}
	}

	// Keys match case-insensitively and are written back lowercased.
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment: true,
		InsensitiveKeys:     true,
	}, path)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	return &File{path: path, section: section, cfg: cfg}, nil
}

// Package returns the template's internal package name.
func (f *File) Package() (string, error) {
	return f.get(keyPackage)
}

// Version returns the recorded template version.
func (f *File) Version() (string, error) {
	return f.get(keyVersion)
}

func (f *File) get(key string) (string, error) {
	sec, err := f.cfg.GetSection(f.section)
	if err != nil || !sec.HasKey(key) {
		return "", &Error{Path: f.path, Key: key}
	}
	v := sec.Key(key).String()
	if v == "" {
		return "", &Error{Path: f.path, Key: key}
	}
	return v, nil
}

// SetPackage records the project's package name.
func (f *File) SetPackage(name string) {
	f.cfg.Section(f.section).Key(keyPackage).SetValue(name)
}

// SetVersion records the template version the project was created from.
func (f *File) SetVersion(version string) {
	f.cfg.Section(f.section).Key(keyVersion).SetValue(version)
}

// Save writes the metadata back to its file.
func (f *File) Save() error {
	if err := f.cfg.SaveTo(f.path); err != nil {
		return &Error{Path: f.path, Err: err}
	}
	return nil
}

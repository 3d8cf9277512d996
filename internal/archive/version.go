package archive

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// VersionFromRoot returns the trailing dash-delimited segment of a template
// root, e.g. "harvest-template-2.1.2" yields "2.1.2". A root without a dash
// is returned as is.
func VersionFromRoot(root string) string {
	if i := strings.LastIndex(root, "-"); i >= 0 {
		return root[i+1:]
	}
	return root
}

// IsRelease reports whether version is a tagged release (a semantic version,
// leading "v" tolerated) rather than a branch name such as "main".
func IsRelease(version string) bool {
	_, err := semver.NewVersion(strings.TrimPrefix(version, "v"))
	return err == nil
}

// SPDX-License-Identifier: MPL-2.0

package signature

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Version is the manifest version string. It is kept verbatim; discovery
// and dependency resolution never interpret it.
type Version string

func (v Version) String() string { return string(v) }

// IsValid reports whether v is a semantic version. A leading "v" is optional.
func (v Version) IsValid() bool {
	return semver.IsValid(v.canonical())
}

// Compare orders two versions by semantic version precedence. Invalid
// versions sort before valid ones and compare equal to each other.
func (v Version) Compare(other Version) int {
	a, b := v.canonical(), other.canonical()
	return semver.Compare(a, b)
}

// Canonical returns the normalized "vMAJOR.MINOR.PATCH" form, or "" when
// v is not a semantic version.
func (v Version) Canonical() string {
	return semver.Canonical(v.canonical())
}

func (v Version) canonical() string {
	s := strings.TrimSpace(string(v))
	if s == "" {
		return ""
	}
	if s[0] != 'v' {
		s = "v" + s
	}
	return s
}

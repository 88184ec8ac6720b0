package modloader

import (
	"fmt"
	"strconv"
	"strings"
)

// VersionSpec is a four component version (major.minor.build.revision).
// The zero value means "unspecified" and, when used as a minimum, places
// no constraint on the dependency.
type VersionSpec struct {
	Major    int
	Minor    int
	Build    int
	Revision int
}

// NewVersion builds a VersionSpec from its components.
func NewVersion(major, minor, build, revision int) (VersionSpec, error) {
	v := VersionSpec{Major: major, Minor: minor, Build: build, Revision: revision}
	for _, c := range v.components() {
		if c < 0 {
			return VersionSpec{}, fmt.Errorf("%w: %d.%d.%d.%d", ErrNegativeVersion, major, minor, build, revision)
		}
	}
	return v, nil
}

// MustVersion is like ParseVersion but panics on error. It is meant for
// constants in host code and tests.
func MustVersion(s string) VersionSpec {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseVersion parses "1", "1.2", "1.2.3" or "1.2.3.4", with an optional
// leading "v". Missing components are zero. An empty string yields the
// zero VersionSpec.
func ParseVersion(s string) (VersionSpec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return VersionSpec{}, nil
	}
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "v"), "V")

	parts := strings.Split(trimmed, ".")
	if len(parts) > 4 {
		return VersionSpec{}, fmt.Errorf("%w: %q has more than four components", ErrInvalidVersion, s)
	}

	var comps [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return VersionSpec{}, fmt.Errorf("%w: %q: component %d is not a number", ErrInvalidVersion, s, i+1)
		}
		if n < 0 {
			return VersionSpec{}, fmt.Errorf("%w: %q", ErrNegativeVersion, s)
		}
		comps[i] = n
	}

	return VersionSpec{Major: comps[0], Minor: comps[1], Build: comps[2], Revision: comps[3]}, nil
}

func (v VersionSpec) components() [4]int {
	return [4]int{v.Major, v.Minor, v.Build, v.Revision}
}

// IsZero reports whether v is the unspecified version.
func (v VersionSpec) IsZero() bool {
	return v == VersionSpec{}
}

// Compare returns -1, 0 or 1 comparing v to other lexicographically.
func (v VersionSpec) Compare(other VersionSpec) int {
	a, b := v.components(), other.components()
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

// AtLeast reports whether v satisfies the minimum version minimum.
// A zero minimum is always satisfied.
func (v VersionSpec) AtLeast(minimum VersionSpec) bool {
	if minimum.IsZero() {
		return true
	}
	return v.Compare(minimum) >= 0
}

// String formats the version as major.minor.build.revision.
func (v VersionSpec) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
}

// MarshalText encodes the version for JSON and YAML reports.
func (v VersionSpec) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText decodes a version written by MarshalText or ParseVersion input.
func (v *VersionSpec) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

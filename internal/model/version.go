package model

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// SnapshotLiteral is the version override that marks an unreleased build.
const SnapshotLiteral = "SNAPSHOT"

// Version is a MAJOR.MINOR.PATCH triple. A Snapshot version carries no
// numbers and is never incremented.
type Version struct {
	Major, Minor, Patch int
	Snapshot            bool
}

// ParseVersion accepts exactly MAJOR.MINOR.PATCH or the literal SNAPSHOT.
func ParseVersion(s string) (Version, error) {
	if s == SnapshotLiteral {
		return Version{Snapshot: true}, nil
	}
	parts := strings.Split(s, ".")
	if len(parts) != 3 || !semver.IsValid("v"+s) || semver.Prerelease("v"+s) != "" || semver.Build("v"+s) != "" {
		return Version{}, fmt.Errorf("model: invalid version %q: want MAJOR.MINOR.PATCH or %s", s, SnapshotLiteral)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, fmt.Errorf("model: invalid version %q: %w", s, err)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// MustParseVersion is ParseVersion for constants known to be valid.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string {
	if v.Snapshot {
		return SnapshotLiteral
	}
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

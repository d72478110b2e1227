// Package version provides tolerant API version-string comparison used to
// select which bridges apply to a request.
package version

import (
	"fmt"
	"strings"

	"github.com/blang/semver/v4"
)

// Parse parses a version string leniently: "2", "2.1", "v2.1.3" all work.
func Parse(s string) (semver.Version, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "v")
	if trimmed == "" {
		return semver.Version{}, fmt.Errorf("empty version string")
	}
	v, err := semver.ParseTolerant(trimmed)
	if err != nil {
		return semver.Version{}, fmt.Errorf("parse version %q: %w", s, err)
	}
	return v, nil
}

// Compare returns -1, 0, or 1 when a is respectively older than, equal to,
// or newer than b. An unparseable side compares as older.
func Compare(a, b string) int {
	va, errA := Parse(a)
	vb, errB := Parse(b)
	switch {
	case errA != nil && errB != nil:
		return 0
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	}
	return va.Compare(vb)
}

// Older reports whether a is strictly older than b.
func Older(a, b string) bool {
	return Compare(a, b) < 0
}

// AtMost reports whether v is older than or equal to limit.
func AtMost(v, limit string) bool {
	return Compare(v, limit) <= 0
}

// Between reports whether v falls in the inclusive range [from, to]. An
// empty bound is open.
func Between(v, from, to string) bool {
	if from != "" && Compare(v, from) < 0 {
		return false
	}
	if to != "" && Compare(v, to) > 0 {
		return false
	}
	return true
}

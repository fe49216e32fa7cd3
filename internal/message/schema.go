package message

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a parsed semantic version string (major.minor.patch).
type Version struct {
	Major, Minor, Patch int
}

// ParseVersion parses a "major.minor.patch" string.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("message: malformed schema version %q", s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, fmt.Errorf("message: malformed schema version %q: %w", s, err)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// Compatible reports whether a record written at version v can be read by
// code requiring "required": same major, and v.Minor >= required.Minor
// (spec §6 "Schema versioning" — additive minor changes are backward
// compatible; major bumps are not).
func (v Version) Compatible(required Version) bool {
	return v.Major == required.Major && v.Minor >= required.Minor
}

// CheckSchemaVersion fails loudly if got is not compatible with the
// version this build requires.
func CheckSchemaVersion(got string) error {
	required, err := ParseVersion(SchemaVersion)
	if err != nil {
		return err
	}
	gotV, err := ParseVersion(got)
	if err != nil {
		return fmt.Errorf("message: unreadable schema_version %q: %w", got, err)
	}
	if !gotV.Compatible(required) {
		return fmt.Errorf("message: incompatible schema_version %q, require compatible with %q", got, SchemaVersion)
	}
	return nil
}

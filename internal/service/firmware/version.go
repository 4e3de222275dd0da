package firmware

import (
	"fmt"
	"strconv"

	"github.com/Masterminds/semver/v3"
)

// The version column stores a semantic version as one integer built from
// fixed-width decimal fields: MAJOR*100 + MINOR*10 + PATCH, with MINOR
// and PATCH each limited to a single digit. Integer ordering on the
// column therefore matches version precedence, and the stored values
// coincide with the historical dot-stripping encoding for every version
// that encoding could represent without corruption.

// InitialVersion is assigned to a repository's first build when the
// caller does not supply a version.
const InitialVersion = "0.1.0"

// ParseVersion validates a MAJOR.MINOR.PATCH string and returns its
// parts. Prerelease or build metadata suffixes are rejected.
func ParseVersion(version string) (major, minor, patch uint64, err error) {
	v, err := semver.StrictNewVersion(version)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidVersion, version)
	}
	if v.Prerelease() != "" || v.Metadata() != "" {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidVersion, version)
	}
	return v.Major(), v.Minor(), v.Patch(), nil
}

// EncodeVersion packs a MAJOR.MINOR.PATCH string into the stored integer
// form. MINOR or PATCH wider than one digit returns ErrVersionRange.
func EncodeVersion(version string) (int64, error) {
	major, minor, patch, err := ParseVersion(version)
	if err != nil {
		return 0, err
	}
	if minor > 9 || patch > 9 {
		return 0, fmt.Errorf("%w: %q", ErrVersionRange, version)
	}
	return int64(major)*100 + int64(minor)*10 + int64(patch), nil
}

// DecodeVersion unpacks a stored value back into its semantic string.
// PATCH is the last decimal digit, MINOR the one before it, MAJOR the
// rest, which inverts EncodeVersion exactly for every encodable version.
func DecodeVersion(value int64) (string, error) {
	if value < 0 {
		return "", fmt.Errorf("%w: stored value %d", ErrInvalidVersion, value)
	}
	patch := value % 10
	minor := (value / 10) % 10
	major := value / 100
	return fmt.Sprintf("%d.%d.%d", major, minor, patch), nil
}

// DecodeLegacyVersion reproduces the decoding the original platform
// applied to the dot-stripped column values: the first digit is MAJOR,
// the second MINOR, everything after is PATCH, with short values padded
// by zeros. It exists only for migrating rows written before the
// fixed-width codec; versions with MAJOR 0 or a multi-digit MAJOR came
// back wrong under this scheme, so it is not an inverse of
// EncodeVersion and must not be used on new data.
func DecodeLegacyVersion(value int64) string {
	digits := strconv.FormatInt(value, 10)
	switch len(digits) {
	case 1:
		return digits + ".0.0"
	case 2:
		return digits[:1] + "." + digits[1:] + ".0"
	default:
		return digits[:1] + "." + digits[1:2] + "." + digits[2:]
	}
}

// NextPatchVersion returns version with PATCH incremented. A PATCH of 9
// rolls over to the next MINOR, and a full 9.9 tail rolls over to the
// next MAJOR, keeping the result inside the codec's range.
func NextPatchVersion(version string) (string, error) {
	major, minor, patch, err := ParseVersion(version)
	if err != nil {
		return "", err
	}
	switch {
	case patch < 9:
		patch++
	case minor < 9:
		minor++
		patch = 0
	default:
		major++
		minor = 0
		patch = 0
	}
	return fmt.Sprintf("%d.%d.%d", major, minor, patch), nil
}

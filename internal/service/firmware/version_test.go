package firmware

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeVersionPacksFixedWidthDigits(t *testing.T) {
	cases := map[string]int64{
		"0.0.0":  0,
		"0.1.0":  10,
		"1.0.0":  100,
		"1.2.3":  123,
		"9.9.9":  999,
		"10.2.3": 1023,
		"42.0.7": 4207,
	}
	for version, want := range cases {
		got, err := EncodeVersion(version)
		require.NoError(t, err, version)
		assert.Equal(t, want, got, version)
	}
}

func TestVersionCodecRoundTrip(t *testing.T) {
	for major := 0; major <= 9; major++ {
		for minor := 0; minor <= 9; minor++ {
			for patch := 0; patch <= 9; patch++ {
				version := fmt.Sprintf("%d.%d.%d", major, minor, patch)
				encoded, err := EncodeVersion(version)
				require.NoError(t, err, version)
				decoded, err := DecodeVersion(encoded)
				require.NoError(t, err, version)
				assert.Equal(t, version, decoded)
			}
		}
	}
}

func TestEncodeVersionRejectsWideComponents(t *testing.T) {
	for _, version := range []string{"1.10.0", "1.2.10", "0.12.34"} {
		_, err := EncodeVersion(version)
		assert.ErrorIs(t, err, ErrVersionRange, version)
	}
}

func TestParseVersionRejectsMalformedInput(t *testing.T) {
	for _, version := range []string{"", "1", "1.2", "v1.2.3", "1.2.3-beta", "1.2.3+build.7", "a.b.c", "1..3"} {
		_, _, _, err := ParseVersion(version)
		assert.ErrorIs(t, err, ErrInvalidVersion, version)
	}
}

func TestEncodeOrderMatchesVersionPrecedence(t *testing.T) {
	ordered := []string{"0.1.0", "0.1.1", "0.2.0", "1.0.0", "1.9.9", "2.0.0", "10.0.0"}
	var previous int64 = -1
	for _, version := range ordered {
		encoded, err := EncodeVersion(version)
		require.NoError(t, err, version)
		assert.Greater(t, encoded, previous, version)
		previous = encoded
	}
}

func TestDecodeVersionRejectsNegativeValues(t *testing.T) {
	_, err := DecodeVersion(-1)
	assert.ErrorIs(t, err, ErrInvalidVersion)
}

// The legacy decoder splits on digit positions from the left, which
// inverted the old encoding only when MAJOR was a single non-zero
// digit. These cases pin down that historical behavior, including the
// rows it reconstructed incorrectly.
func TestDecodeLegacyVersion(t *testing.T) {
	cases := map[int64]string{
		1:    "1.0.0",
		23:   "2.3.0",
		123:  "1.2.3",
		999:  "9.9.9",
		10:   "1.0.0", // was "0.1.0" before encoding
		1023: "1.0.23",
	}
	for value, want := range cases {
		assert.Equal(t, want, DecodeLegacyVersion(value), "value %d", value)
	}
}

func TestNextPatchVersion(t *testing.T) {
	cases := map[string]string{
		"0.1.0": "0.1.1",
		"1.2.3": "1.2.4",
		"1.2.9": "1.3.0",
		"1.9.9": "2.0.0",
		"9.9.9": "10.0.0",
	}
	for current, want := range cases {
		next, err := NextPatchVersion(current)
		require.NoError(t, err, current)
		assert.Equal(t, want, next)
	}

	_, err := NextPatchVersion("not-a-version")
	assert.ErrorIs(t, err, ErrInvalidVersion)
}

func TestNextPatchVersionStaysEncodable(t *testing.T) {
	version := InitialVersion
	for i := 0; i < 250; i++ {
		next, err := NextPatchVersion(version)
		require.NoError(t, err, version)
		_, err = EncodeVersion(next)
		require.NoError(t, err, next)
		version = next
	}
}

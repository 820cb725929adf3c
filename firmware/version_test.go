package firmware

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	for _, tc := range []struct {
		s        string
		expected Version
	}{
		{"1.1h", Version{Major: 1, Minor: 1, Build: "h"}},
		{"0.9j", Version{Major: 0, Minor: 9, Build: "j"}},
		{"9.20", Version{Major: 9, Minor: 20}},
		{"3.7.12", Version{Major: 3, Minor: 7, Patch: 12}},
		{"v1.0.1", Version{Major: 1, Minor: 0, Patch: 1}},
		{"101.03", Version{Major: 101, Minor: 3}},
	} {
		t.Run(tc.s, func(t *testing.T) {
			v, err := ParseVersion(tc.s)
			require.NoError(t, err)
			require.Equal(t, tc.expected, v)
		})
	}

	for _, s := range []string{"", "x.y", "1..2", "h1.1"} {
		t.Run(s, func(t *testing.T) {
			_, err := ParseVersion(s)
			require.Error(t, err)
		})
	}
}

func TestVersionCompare(t *testing.T) {
	for _, tc := range []struct {
		a, b     string
		expected int
	}{
		// Field-wise numeric ordering, never lexicographic.
		{"9.2", "9.10", -1},
		{"9.10", "9.2", 1},
		{"1.0.0", "1.0.1", -1},
		{"1.1", "1.1", 0},
		{"2.0", "1.9", 1},
		{"1.1f", "1.1h", -1},
		{"1.1", "1.1h", -1},
		{"0.9j", "1.1h", -1},
	} {
		t.Run(tc.a+" vs "+tc.b, func(t *testing.T) {
			a, err := ParseVersion(tc.a)
			require.NoError(t, err)
			b, err := ParseVersion(tc.b)
			require.NoError(t, err)
			require.Equal(t, tc.expected, a.Compare(b))
		})
	}
}

func TestVersionAtLeast(t *testing.T) {
	v11h, err := ParseVersion("1.1h")
	require.NoError(t, err)
	v11, err := ParseVersion("1.1")
	require.NoError(t, err)
	v09j, err := ParseVersion("0.9j")
	require.NoError(t, err)

	require.True(t, v11h.AtLeast(v11))
	require.True(t, v11.AtLeast(v11))
	require.False(t, v09j.AtLeast(v11))
}

func TestVersionString(t *testing.T) {
	for _, s := range []string{"1.1h", "9.20", "3.7.12"} {
		v, err := ParseVersion(s)
		require.NoError(t, err)
		require.Equal(t, s, v.String())
	}
}

func TestCapabilitySetHasAxis(t *testing.T) {
	caps := CapabilitySet{SupportedAxes: "XYZ"}
	require.True(t, caps.HasAxis('X'))
	require.True(t, caps.HasAxis('Z'))
	require.False(t, caps.HasAxis('A'))
	require.False(t, caps.HasAxis('x'))
}

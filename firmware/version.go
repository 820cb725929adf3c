package firmware

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a firmware version with field-wise numeric ordering: 9.2 sorts
// before 9.10. Build carries a trailing non-numeric suffix (eg the "h" of Grbl
// "1.1h") and orders lexicographically after the numeric fields.
type Version struct {
	Major int
	Minor int
	Patch int
	Build string
}

func (v Version) String() string {
	s := fmt.Sprintf("%d.%d", v.Major, v.Minor)
	if v.Patch != 0 {
		s += fmt.Sprintf(".%d", v.Patch)
	}
	return s + v.Build
}

// Compare returns -1, 0 or 1 ordering v against o.
func (v Version) Compare(o Version) int {
	for _, d := range []int{
		v.Major - o.Major,
		v.Minor - o.Minor,
		v.Patch - o.Patch,
		strings.Compare(v.Build, o.Build),
	} {
		if d < 0 {
			return -1
		}
		if d > 0 {
			return 1
		}
	}
	return 0
}

func (v Version) AtLeast(o Version) bool {
	return v.Compare(o) >= 0
}

// ParseVersion parses a dotted version string like "1.1h", "9.20" or "3.7.12".
// A trailing non-numeric suffix on the last field becomes Build.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	if s == "" {
		return Version{}, fmt.Errorf("empty version string")
	}

	parts := strings.SplitN(s, ".", 3)
	fields := []*int{}
	var v Version
	for i := range parts {
		switch i {
		case 0:
			fields = append(fields, &v.Major)
		case 1:
			fields = append(fields, &v.Minor)
		case 2:
			fields = append(fields, &v.Patch)
		}
	}

	for i, part := range parts {
		numeric := part
		if i == len(parts)-1 {
			// Last field may carry a build suffix: "1h" -> 1 + "h".
			end := 0
			for end < len(part) && part[end] >= '0' && part[end] <= '9' {
				end++
			}
			numeric = part[:end]
			v.Build = part[end:]
		}
		n, err := strconv.Atoi(numeric)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version field %#v in %#v", part, s)
		}
		*fields[i] = n
	}

	return v, nil
}

// CapabilitySet is the feature/axis/limits profile of a dialect+version pair.
// Derived once per connection after version detection; when no version could
// be detected, each dialect falls back to its most conservative set so no
// unsupported feature is ever claimed.
type CapabilitySet struct {
	MaxAxes           int
	SupportedAxes     string
	Jogging           bool
	RealTimeOverrides bool
	Probing           bool
	WiFi              bool
	ToolChange        bool
	MaxSpindleSpeed   int
}

// HasAxis reports whether the given axis letter is addressable.
func (c CapabilitySet) HasAxis(axis byte) bool {
	return strings.IndexByte(c.SupportedAxes, axis) >= 0
}

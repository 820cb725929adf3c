package firmware

import (
	"strconv"
	"strings"
)

// FluidNCProtocol implements the FluidNC wire protocol. FluidNC is
// Grbl-compatible on the wire, with two departures this implementation cares
// about: errors may carry a free-text message after the code ("error: 5
// Invalid G code", captured verbatim), and the firmware version is announced
// via "[MSG:INFO: FluidNC v3.7.8 ...]" feedback lines rather than the Grbl
// banner version field.
type FluidNCProtocol struct {
	GrblProtocol
}

var _ Protocol = &FluidNCProtocol{}

func (p *FluidNCProtocol) Dialect() Dialect {
	return DialectFluidNC
}

func (p *FluidNCProtocol) ParseLine(line string) Message {
	if rest, found := strings.CutPrefix(line, "error:"); found {
		rest = strings.TrimPrefix(rest, " ")
		code := -1
		text := rest
		if codeStr, message, found := strings.Cut(rest, " "); found {
			if n, err := strconv.Atoi(codeStr); err == nil {
				code = n
				// Free-text message following the code, verbatim.
				text = message
			}
		} else if n, err := strconv.Atoi(rest); err == nil {
			code = n
			text = grblErrorTexts[n]
		}
		return &ErrorMessage{Raw: line, Code: code, Text: text}
	}
	return p.GrblProtocol.ParseLine(line)
}

const fluidNCVersionPrefix = "FluidNC v"

// DetectVersion recognizes both the startup banner ("FluidNC v3.7.8
// (wifi)...") and the "[MSG:INFO: FluidNC v3.7.8]" feedback line.
func (p *FluidNCProtocol) DetectVersion(line string) (Version, bool) {
	i := strings.Index(line, fluidNCVersionPrefix)
	if i < 0 {
		return Version{}, false
	}
	rest := line[i+len(fluidNCVersionPrefix):]
	rest = strings.TrimSuffix(strings.Fields(rest)[0], "]")
	v, err := ParseVersion(rest)
	if err != nil {
		return Version{}, false
	}
	return v, true
}

func (p *FluidNCProtocol) Capabilities(v Version) CapabilitySet {
	// FluidNC always speaks the Grbl 1.1 protocol level: jogging and
	// real-time overrides are available regardless of detected version.
	return CapabilitySet{
		MaxAxes:           6,
		SupportedAxes:     "XYZABC",
		Jogging:           true,
		RealTimeOverrides: true,
		Probing:           true,
		WiFi:              true,
		ToolChange:        true,
		MaxSpindleSpeed:   24000,
	}
}

package firmware

// G2CoreProtocol implements the g2core wire protocol. g2core is the TinyG
// successor and shares its JSON response grammar; it differs in build
// numbering (fb >= 100) and in supporting homing per axis and tool change
// macros.
type G2CoreProtocol struct {
	TinyGProtocol
}

var _ Protocol = &G2CoreProtocol{}

func (p *G2CoreProtocol) Dialect() Dialect {
	return DialectG2Core
}

var g2coreV101 = Version{Major: 101}

func (p *G2CoreProtocol) Capabilities(v Version) CapabilitySet {
	caps := CapabilitySet{
		MaxAxes:         6,
		SupportedAxes:   "XYZABC",
		Jogging:         true,
		Probing:         true,
		MaxSpindleSpeed: 20000,
	}
	if v.AtLeast(g2coreV101) {
		caps.ToolChange = true
	}
	return caps
}

package firmware

import (
	"strconv"
	"strings"
)

// parseGrblStatusReport parses the bracket-delimited status report grammar
// shared by Grbl, FluidNC and Smoothieware:
//
//	<State|MPos:x,y,z|FS:feed,speed|...>
//
// Total: malformed reports degrade to *UnknownMessage.
func parseGrblStatusReport(line string) Message {
	if !strings.HasPrefix(line, "<") || !strings.HasSuffix(line, ">") {
		return &UnknownMessage{Raw: line}
	}

	fields := strings.Split(line[1:len(line)-1], "|")
	state, ok := parseMachineState(fields[0])
	if !ok {
		return &UnknownMessage{Raw: line}
	}

	report := &StatusReportMessage{
		Raw:          line,
		MachineState: state,
	}

	for _, field := range fields[1:] {
		parts := strings.SplitN(field, ":", 2)
		if len(parts) != 2 {
			return &UnknownMessage{Raw: line}
		}
		values := strings.Split(parts[1], ",")

		ok := true
		switch parts[0] {
		case "MPos":
			report.MachinePosition, ok = parsePosition(values)
		case "WPos":
			report.WorkPosition, ok = parsePosition(values)
		case "WCO":
			report.WorkCoordinateOffset, ok = parsePosition(values)
		case "Bf":
			report.BufferState, ok = parseBufferState(values)
		case "Ln":
			report.LineNumber, ok = parseIntField(values)
		case "F":
			report.Feed, ok = parseFloatField(values)
		case "FS":
			report.Feed, report.SpindleSpeed, ok = parseFeedSpindle(values)
		case "Pn":
			report.Pins = parts[1]
		case "Ov":
			report.OverrideValues, ok = parseOverrideValues(values)
		}
		if !ok {
			return &UnknownMessage{Raw: line}
		}
	}

	return report
}

func parseMachineState(field string) (MachineState, bool) {
	parts := strings.Split(field, ":")
	if len(parts) > 2 || parts[0] == "" {
		return MachineState{}, false
	}
	state := MachineState{Name: parts[0]}
	if len(parts) == 2 {
		subState, err := strconv.Atoi(parts[1])
		if err != nil {
			return MachineState{}, false
		}
		state.SubState = &subState
	}
	return state, true
}

func parsePosition(values []string) (*Position, bool) {
	if len(values) < 3 || len(values) > 4 {
		return nil, false
	}
	coords := make([]float64, len(values))
	for i, value := range values {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, false
		}
		coords[i] = f
	}
	position := &Position{X: coords[0], Y: coords[1], Z: coords[2]}
	if len(coords) == 4 {
		position.A = &coords[3]
	}
	return position, true
}

func parseBufferState(values []string) (*BufferState, bool) {
	if len(values) != 2 {
		return nil, false
	}
	blocks, err := strconv.Atoi(values[0])
	if err != nil {
		return nil, false
	}
	bytes, err := strconv.Atoi(values[1])
	if err != nil {
		return nil, false
	}
	return &BufferState{AvailableBlocks: blocks, AvailableBytes: bytes}, true
}

func parseIntField(values []string) (*int, bool) {
	if len(values) != 1 {
		return nil, false
	}
	n, err := strconv.Atoi(values[0])
	if err != nil {
		return nil, false
	}
	return &n, true
}

func parseFloatField(values []string) (*float64, bool) {
	if len(values) != 1 {
		return nil, false
	}
	f, err := strconv.ParseFloat(values[0], 64)
	if err != nil {
		return nil, false
	}
	return &f, true
}

func parseFeedSpindle(values []string) (*float64, *float64, bool) {
	if len(values) != 2 {
		return nil, nil, false
	}
	feed, err := strconv.ParseFloat(values[0], 64)
	if err != nil {
		return nil, nil, false
	}
	speed, err := strconv.ParseFloat(values[1], 64)
	if err != nil {
		return nil, nil, false
	}
	return &feed, &speed, true
}

func parseOverrideValues(values []string) (*OverrideValues, bool) {
	if len(values) != 3 {
		return nil, false
	}
	percents := make([]float64, 3)
	for i, value := range values {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, false
		}
		percents[i] = f
	}
	return &OverrideValues{
		Feed:    percents[0],
		Rapids:  percents[1],
		Spindle: percents[2],
	}, true
}

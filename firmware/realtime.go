package firmware

import (
	"fmt"
)

// RealTimeCommand is a single control byte interpreted immediately by the
// firmware, out-of-band from the line stream. Real-time commands never
// consume flow-control slots.
type RealTimeCommand byte

var (
	RealTimeSoftReset         RealTimeCommand = 0x18
	RealTimeStatusReportQuery RealTimeCommand = '?'
	RealTimeCycleStartResume  RealTimeCommand = '~'
	RealTimeFeedHold          RealTimeCommand = '!'
	// TinyG/g2core queue flush.
	RealTimeQueueFlush RealTimeCommand = '%'
	// Grbl >= 1.1 extended set.
	RealTimeSafetyDoor                RealTimeCommand = 0x84
	RealTimeJogCancel                 RealTimeCommand = 0x85
	RealTimeFeedOverrideReset         RealTimeCommand = 0x90
	RealTimeFeedOverrideCoarsePlus    RealTimeCommand = 0x91
	RealTimeFeedOverrideCoarseMinus   RealTimeCommand = 0x92
	RealTimeFeedOverrideFinePlus      RealTimeCommand = 0x93
	RealTimeFeedOverrideFineMinus     RealTimeCommand = 0x94
	RealTimeRapidOverrideReset        RealTimeCommand = 0x95
	RealTimeRapidOverrideMedium       RealTimeCommand = 0x96
	RealTimeRapidOverrideLow          RealTimeCommand = 0x97
	RealTimeSpindleOverrideReset      RealTimeCommand = 0x99
	RealTimeSpindleOverrideCoarsePlus RealTimeCommand = 0x9A
	RealTimeSpindleOverrideCoarseMin  RealTimeCommand = 0x9B
	RealTimeSpindleOverrideFinePlus   RealTimeCommand = 0x9C
	RealTimeSpindleOverrideFineMinus  RealTimeCommand = 0x9D
	RealTimeToggleSpindleStop         RealTimeCommand = 0x9E
	RealTimeToggleFloodCoolant        RealTimeCommand = 0xA0
	RealTimeToggleMistCoolant         RealTimeCommand = 0xA1
)

var realTimeCommandNames = map[RealTimeCommand]string{
	RealTimeSoftReset:                 "Soft-Reset",
	RealTimeStatusReportQuery:         "Status Report Query",
	RealTimeCycleStartResume:          "Cycle Start / Resume",
	RealTimeFeedHold:                  "Feed Hold",
	RealTimeQueueFlush:                "Queue Flush",
	RealTimeSafetyDoor:                "Safety Door",
	RealTimeJogCancel:                 "Jog Cancel",
	RealTimeFeedOverrideReset:         "Feed Override: Set 100% of programmed rate",
	RealTimeFeedOverrideCoarsePlus:    "Feed Override: Increase 10%",
	RealTimeFeedOverrideCoarseMinus:   "Feed Override: Decrease 10%",
	RealTimeFeedOverrideFinePlus:      "Feed Override: Increase 1%",
	RealTimeFeedOverrideFineMinus:     "Feed Override: Decrease 1%",
	RealTimeRapidOverrideReset:        "Rapid Override: Set to 100% full rapid rate",
	RealTimeRapidOverrideMedium:       "Rapid Override: Set to 50% of rapid rate",
	RealTimeRapidOverrideLow:          "Rapid Override: Set to 25% of rapid rate",
	RealTimeSpindleOverrideReset:      "Spindle Speed Override: Set 100% of programmed spindle speed",
	RealTimeSpindleOverrideCoarsePlus: "Spindle Speed Override: Increase 10%",
	RealTimeSpindleOverrideCoarseMin:  "Spindle Speed Override: Decrease 10%",
	RealTimeSpindleOverrideFinePlus:   "Spindle Speed Override: Increase 1%",
	RealTimeSpindleOverrideFineMinus:  "Spindle Speed Override: Decrease 1%",
	RealTimeToggleSpindleStop:         "Toggle Spindle Stop",
	RealTimeToggleFloodCoolant:        "Toggle Flood Coolant",
	RealTimeToggleMistCoolant:         "Toggle Mist Coolant",
}

func (c RealTimeCommand) String() string {
	if name, ok := realTimeCommandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (%#v)", byte(c))
}

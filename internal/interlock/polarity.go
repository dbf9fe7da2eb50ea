package interlock

// Tone is the status colour of a line.
type Tone string

const (
	ToneGreen   Tone = "green"
	ToneRed     Tone = "red"
	ToneUnknown Tone = "gray"
)

// Indicator is what the status circle of a row shows.
type Indicator struct {
	Tone Tone
	// Ring marks a simulated line.
	Ring bool
}

// polarity is the single mapping from line mode to indicator.
//
//	mode        sensed active   indicator
//	RealSensed  yes             red
//	RealSensed  no              green
//	SimOn       -               red + ring
//	SimOff      -               green + ring
var polarity = map[State][2]Indicator{
	RealSensed: {{Tone: ToneGreen}, {Tone: ToneRed}},
	SimOn:      {{Tone: ToneRed, Ring: true}, {Tone: ToneRed, Ring: true}},
	SimOff:     {{Tone: ToneGreen, Ring: true}, {Tone: ToneGreen, Ring: true}},
}

// IndicatorFor returns the indicator for a line in mode. sensedActive is
// only consulted for RealSensed. It is also used for the edit preview,
// with mode set to the candidate state.
func IndicatorFor(mode State, sensedActive bool) Indicator {
	row, ok := polarity[mode]
	if !ok {
		return Indicator{Tone: ToneUnknown}
	}
	if sensedActive {
		return row[1]
	}
	return row[0]
}

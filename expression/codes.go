package expression

// Action is what a control-track perforation does to the mechanism.
type Action int

const (
	ActionNone Action = iota
	MFOff
	MFOn
	SlowCrescendoOff
	SlowCrescendoOn
	ForzandoOff // fast decrescendo for the perforation's length
	ForzandoOn  // fast crescendo for the perforation's length
	SoftPedalOff
	SoftPedalOn
	SustainPedalOn
	SustainPedalOff
)

// Red Welte control codes (MIDI key numbers of the expression tracks).
//
//	bass  treble  meaning
//	 14    113    MF off
//	 15    112    MF on
//	 16    111    slow crescendo off
//	 17    110    slow crescendo on
//	 18    109    forzando off (fast decrescendo)
//	 19    108    forzando on (fast crescendo)
//	 20     -     soft pedal off
//	 21     -     soft pedal on
//	  -    106    sustain pedal on
//	  -    107    sustain pedal off
var codeTable = map[int]Action{
	14:  MFOff,
	15:  MFOn,
	16:  SlowCrescendoOff,
	17:  SlowCrescendoOn,
	18:  ForzandoOff,
	19:  ForzandoOn,
	20:  SoftPedalOff,
	21:  SoftPedalOn,
	106: SustainPedalOn,
	107: SustainPedalOff,
	108: ForzandoOn,
	109: ForzandoOff,
	110: SlowCrescendoOn,
	111: SlowCrescendoOff,
	112: MFOn,
	113: MFOff,
}

// Classify returns the action for a code. Codes outside the table
// (motor, rewind, electric cutoff) report ActionNone.
func Classify(code int) Action {
	return codeTable[code]
}

// IsPedal reports whether the action belongs to the pedal reconstructor.
func (a Action) IsPedal() bool {
	switch a {
	case SoftPedalOff, SoftPedalOn, SustainPedalOn, SustainPedalOff:
		return true
	}
	return false
}

// IsValve reports whether the action drives one of the four valves.
func (a Action) IsValve() bool {
	return a != ActionNone && !a.IsPedal()
}

func (a Action) String() string {
	switch a {
	case MFOff:
		return "mf-off"
	case MFOn:
		return "mf-on"
	case SlowCrescendoOff:
		return "cresc-off"
	case SlowCrescendoOn:
		return "cresc-on"
	case ForzandoOff:
		return "forzando-off"
	case ForzandoOn:
		return "forzando-on"
	case SoftPedalOff:
		return "soft-off"
	case SoftPedalOn:
		return "soft-on"
	case SustainPedalOn:
		return "sustain-on"
	case SustainPedalOff:
		return "sustain-off"
	}
	return "none"
}

// CodedEvent is one perforation on a control track.
// Start and End are milliseconds from the start of the piece; the tick
// fields carry the container position through to emitted pedal events.
type CodedEvent struct {
	Code      int
	Start     int
	End       int
	StartTick int64
	EndTick   int64
}

// Action classifies the event's code.
func (e CodedEvent) Action() Action {
	return Classify(e.Code)
}

// ValveEvents drops pedal and unknown codes, keeping order.
func ValveEvents(events []CodedEvent) []CodedEvent {
	out := make([]CodedEvent, 0, len(events))
	for _, e := range events {
		if e.Action().IsValve() {
			out = append(out, e)
		}
	}
	return out
}

package expression

import "go-welte/debug"

// Timeline is a per-millisecond valve state.
type Timeline []bool

// Active reports whether the valve is open at ms i. Out of range is closed.
func (t Timeline) Active(i int) bool {
	return i >= 0 && i < len(t) && t[i]
}

// mark sets [start, end) clipped to the timeline.
func (t Timeline) mark(start, end int) {
	start = max(start, 0)
	end = min(end, len(t))
	for i := start; i < end; i++ {
		t[i] = true
	}
}

// Valves holds the four timelines of one hand.
type Valves struct {
	MF              Timeline
	SlowCrescendo   Timeline
	FastCrescendo   Timeline
	FastDecrescendo Timeline
}

// Len is the number of milliseconds covered.
func (v Valves) Len() int { return len(v.MF) }

// NewValves allocates four closed timelines of the given length.
func NewValves(length int) Valves {
	length = max(length, 0)
	return Valves{
		MF:              make(Timeline, length),
		SlowCrescendo:   make(Timeline, length),
		FastCrescendo:   make(Timeline, length),
		FastDecrescendo: make(Timeline, length),
	}
}

// valveState is a lock-and-cancel valve: Disengaged, or Engaged since start.
type valveState struct {
	engaged bool
	start   int
}

// interval is a closed-over span [start, end) that a transition produced.
type interval struct {
	start, end int
}

// on engages the valve. A second "on" keeps the original start.
func (s valveState) on(at int) valveState {
	if s.engaged {
		return s
	}
	return valveState{engaged: true, start: at}
}

// off disengages the valve and yields the span it was open for.
func (s valveState) off(at int) (valveState, interval, bool) {
	if !s.engaged {
		return s, interval{}, false
	}
	return valveState{}, interval{s.start, at}, true
}

// TrackValves folds a time-ordered control stream into valve timelines.
//
// MF and slow crescendo are toggled by on/off pairs; forzando codes open the
// fast crescendo or decrescendo for exactly the perforation's length. A
// valve still engaged when the stream ends is not recorded.
func TrackValves(events []CodedEvent, length int) Valves {
	v := NewValves(length)
	var mf, slow valveState

	for _, e := range events {
		var (
			span interval
			ok   bool
		)
		switch e.Action() {
		case MFOn:
			mf = mf.on(e.Start)
		case MFOff:
			if mf, span, ok = mf.off(e.Start); ok {
				v.MF.mark(span.start, span.end)
			}
		case SlowCrescendoOn:
			slow = slow.on(e.Start)
		case SlowCrescendoOff:
			if slow, span, ok = slow.off(e.Start); ok {
				v.SlowCrescendo.mark(span.start, span.end)
			}
		case ForzandoOn:
			v.FastCrescendo.mark(e.Start, e.End)
		case ForzandoOff:
			v.FastDecrescendo.mark(e.Start, e.End)
		default:
			continue
		}
		debug.LogEvery(50, "valve", "%s at %dms", e.Action(), e.Start)
	}

	if mf.engaged || slow.engaged {
		debug.Log("valve", "dropping open valves at end of stream (mf=%v cresc=%v)", mf.engaged, slow.engaged)
	}
	return v
}

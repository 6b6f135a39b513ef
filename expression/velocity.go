package expression

import (
	"math"

	"go-welte/debug"
)

// Hand identifies one half of the keyboard.
type Hand int

const (
	LeftHand Hand = iota
	RightHand
)

func (h Hand) String() string {
	if h == LeftHand {
		return "bass"
	}
	return "treble"
}

// Note is a performance note. Times are milliseconds; Tick and Ref locate
// the note-on in its container track.
type Note struct {
	Start    int
	End      int
	Pitch    uint8
	Velocity uint8
	Tick     int64
	Ref      int
}

// MapVelocities samples the curve at every note onset and returns a copy
// of notes with velocities set. The input slice is not modified.
func MapVelocities(curve Curve, notes []Note, hand Hand, cfg Config) []Note {
	out := make([]Note, len(notes))
	for i, n := range notes {
		n.Velocity = velocityAt(curve, n.Start, hand, cfg)
		debug.LogEvery(200, "velocity", "%s note %d at %dms -> %d", hand, n.Pitch, n.Start, n.Velocity)
		out[i] = n
	}
	return out
}

func velocityAt(curve Curve, ms int, hand Hand, cfg Config) uint8 {
	v := cfg.MFThreshold
	if len(curve) > 0 {
		i := min(max(ms, 0), len(curve)-1)
		v = curve[i]
		if v == 0 {
			v = previousNonzero(curve, i, cfg.MFThreshold)
		}
	}

	vel := int(math.Floor(v + 0.5))
	vel = min(max(vel, 0), 127)
	if hand == LeftHand {
		vel = min(max(vel+cfg.LeftHandOffset, 0), 127)
	}
	return uint8(vel)
}

// previousNonzero walks back from i for the last positive sample.
func previousNonzero(curve Curve, i int, fallback float64) float64 {
	for ; i >= 0; i-- {
		if curve[i] > 0 {
			return curve[i]
		}
	}
	return fallback
}

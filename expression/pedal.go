package expression

import (
	"github.com/charmbracelet/log"

	"go-welte/midi"
)

// Pedal identifies a piano pedal by its MIDI controller number.
type Pedal uint8

const (
	SustainPedal Pedal = Pedal(midi.CCSustain)
	SoftPedal    Pedal = Pedal(midi.CCSoft)
)

func (p Pedal) String() string {
	switch p {
	case SustainPedal:
		return "sustain"
	case SoftPedal:
		return "soft"
	}
	return "pedal"
}

// PedalEvent is a depress or release emitted onto both hand tracks.
type PedalEvent struct {
	Pedal   Pedal
	Engaged bool
	Time    int   // ms
	Tick    int64 // container position
}

// pendingPedal is an onset waiting for its release code.
type pendingPedal struct {
	set  bool
	time int
	tick int64
}

// ReconstructPedals pairs pedal on/off codes into engage/release events.
// Soft pedal codes are read from the bass stream, sustain codes from the
// treble stream. Soft pedal events come first, each pedal in time order.
func ReconstructPedals(bass, treble []CodedEvent, logger *log.Logger) []PedalEvent {
	if logger == nil {
		logger = log.Default()
	}
	var out []PedalEvent
	out = pairPedal(out, bass, SoftPedal, SoftPedalOn, SoftPedalOff, logger)
	out = pairPedal(out, treble, SustainPedal, SustainPedalOn, SustainPedalOff, logger)
	return out
}

func pairPedal(out []PedalEvent, events []CodedEvent, pedal Pedal, on, off Action, logger *log.Logger) []PedalEvent {
	var pending pendingPedal
	for _, e := range events {
		switch e.Action() {
		case on:
			if pending.set {
				logger.Warn("pedal onset overwritten before release",
					"pedal", pedal, "lost", pending.time, "at", e.Start)
			}
			pending = pendingPedal{set: true, time: e.Start, tick: e.StartTick}
		case off:
			if !pending.set {
				// already released
				continue
			}
			out = append(out,
				PedalEvent{Pedal: pedal, Engaged: true, Time: pending.time, Tick: pending.tick},
				PedalEvent{Pedal: pedal, Engaged: false, Time: e.End, Tick: e.EndTick},
			)
			pending = pendingPedal{}
		}
	}
	if pending.set {
		logger.Debug("pedal never released, dropping onset", "pedal", pedal, "at", pending.time)
	}
	return out
}

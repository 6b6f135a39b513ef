package midi

import gomidi "gitlab.com/gomidi/midi/v2"

// MIDI message types
const (
	NoteOn  uint8 = 0x90
	NoteOff uint8 = 0x80
	CC      uint8 = 0xB0
)

// Controller numbers written by the expression pipeline
const (
	CCPan     uint8 = 10
	CCSustain uint8 = 64
	CCSoft    uint8 = 67
)

// Event is a channel message placed at an absolute tick
type Event struct {
	Tick     int64
	Type     uint8 // NoteOn, NoteOff, CC
	Channel  uint8
	Note     uint8 // key, or controller number for CC
	Velocity uint8 // velocity, or controller value for CC
}

// Message encodes the event
func (e Event) Message() gomidi.Message {
	switch e.Type {
	case NoteOn:
		return gomidi.NoteOn(e.Channel, e.Note, e.Velocity)
	case NoteOff:
		return gomidi.NoteOff(e.Channel, e.Note)
	default:
		return gomidi.ControlChange(e.Channel, e.Note, e.Velocity)
	}
}

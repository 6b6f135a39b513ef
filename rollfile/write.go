package rollfile

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"go-welte/expression"
	"go-welte/midi"
)

// Output holds the per-hand values written alongside the expression.
type Output struct {
	PanBass           uint8
	PanTreble         uint8
	PedalEngageValue  uint8
	PedalReleaseValue uint8
}

// DefaultOutput pans bass left of centre and treble right.
func DefaultOutput() Output {
	return Output{
		PanBass:          52,
		PanTreble:        76,
		PedalEngageValue: 70,
	}
}

// Apply writes note velocities, pan and pedal controllers into the hand
// tracks. It can run once per roll; call Performance before Apply.
func (r *Roll) Apply(res expression.Result, out Output) error {
	if r.applied {
		return errors.WithStack(ErrAlreadyApplied)
	}

	hands := []struct {
		role  Role
		notes []expression.Note
		pan   uint8
	}{
		{BassNotes, res.Bass.Notes, out.PanBass},
		{TrebleNotes, res.Treble.Notes, out.PanTreble},
	}

	for _, h := range hands {
		ch := r.channel(h.role, uint8(h.role)+1)
		if err := r.setVelocities(h.role, h.notes); err != nil {
			return err
		}
		r.setPan(h.role, ch, h.pan)

		var added []timed
		for _, p := range res.Pedals {
			value := out.PedalReleaseValue
			if p.Engaged {
				value = out.PedalEngageValue
			}
			ev := midi.Event{Tick: p.Tick, Type: midi.CC, Channel: ch, Note: uint8(p.Pedal), Velocity: value}
			added = append(added, timed{tick: ev.Tick, msg: smf.Message(ev.Message())})
		}
		idx := r.TrackIndex(h.role)
		r.tracks[idx] = append(r.tracks[idx], added...)
		sortTrack(r.tracks[idx])
	}

	r.applied = true
	return nil
}

// setVelocities rewrites the note-ons the notes were read from.
func (r *Roll) setVelocities(role Role, notes []expression.Note) error {
	tr := r.track(role)
	var ch, key, vel uint8
	for _, n := range notes {
		if n.Ref < 0 || n.Ref >= len(tr) {
			return errors.Errorf("%s: note ref %d out of range", role, n.Ref)
		}
		ev := &tr[n.Ref]
		if !gomidi.Message(ev.msg).GetNoteStart(&ch, &key, &vel) || key != n.Pitch {
			return errors.Errorf("%s: event %d is not the note-on of key %d", role, n.Ref, n.Pitch)
		}
		// a zero-velocity note-on is a note-off on the wire
		v := max(n.Velocity, 1)
		ev.msg = smf.Message(midi.Event{Type: midi.NoteOn, Channel: ch, Note: key, Velocity: v}.Message())
	}
	return nil
}

// setPan updates every pan controller on the track, or adds one at tick 0.
func (r *Roll) setPan(role Role, ch, value uint8) {
	idx := r.TrackIndex(role)
	tr := r.tracks[idx]
	var c, cc, val uint8
	found := false
	for i := range tr {
		if gomidi.Message(tr[i].msg).GetControlChange(&c, &cc, &val) && cc == midi.CCPan {
			tr[i].msg = smf.Message(gomidi.ControlChange(c, midi.CCPan, value))
			found = true
		}
	}
	if found {
		return
	}
	pan := timed{tick: 0, msg: smf.Message(gomidi.ControlChange(ch, midi.CCPan, value))}
	r.tracks[idx] = append([]timed{pan}, tr...)
}

// encode rebuilds a format 1 file from the absolute-tick tracks.
func (r *Roll) encode(dropExpression bool) (*smf.SMF, error) {
	s := smf.New()
	s.TimeFormat = r.format
	for i, tr := range r.tracks {
		if dropExpression && (i == r.TrackIndex(BassControls) || i == r.TrackIndex(TrebleControls)) {
			continue
		}
		var track smf.Track
		var last int64
		for _, ev := range tr {
			track.Add(uint32(ev.tick-last), ev.msg)
			last = ev.tick
		}
		track.Close(0)
		if err := s.Add(track); err != nil {
			return nil, errors.Wrapf(err, "add track %d", i)
		}
	}
	return s, nil
}

// SMF returns a decoded copy of the roll as it would be written.
func (r *Roll) SMF() (*smf.SMF, error) {
	var buf bytes.Buffer
	if _, err := r.WriteTo(&buf); err != nil {
		return nil, err
	}
	s, err := smf.ReadFrom(&buf)
	return s, errors.Wrap(err, "decode roll")
}

// WriteTo encodes the roll.
func (r *Roll) WriteTo(w io.Writer) (int64, error) {
	s, err := r.encode(r.opts.DropExpressionTracks)
	if err != nil {
		return 0, err
	}
	n, err := s.WriteTo(w)
	return n, errors.Wrap(err, "write roll")
}

// WriteFile encodes the roll to path.
func (r *Roll) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create output")
	}
	if _, err := r.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "close output")
}

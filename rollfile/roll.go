// Package rollfile reads and writes Red Welte roll scans stored as
// standard MIDI files with four role tracks.
package rollfile

import (
	"bytes"
	"io"
	"math"
	"os"
	"sort"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"go-welte/expression"
)

// Role is the fixed meaning of a track in a roll file.
type Role int

const (
	BassNotes Role = iota
	TrebleNotes
	BassControls
	TrebleControls
	numRoles
)

func (r Role) String() string {
	switch r {
	case BassNotes:
		return "bass notes"
	case TrebleNotes:
		return "treble notes"
	case BassControls:
		return "bass expression"
	case TrebleControls:
		return "treble expression"
	}
	return "unknown"
}

// RedWelteTempo is the roll speed used for Red Welte scans.
const RedWelteTempo = 104.331

var (
	ErrTrackLayout       = errors.New("roll needs 4 role tracks, optionally after a conductor track")
	ErrAlreadyCorrected  = errors.New("hole correction already applied")
	ErrAlreadyApplied    = errors.New("expression already applied")
	ErrUnsupportedTiming = errors.New("SMPTE time format is not supported")
)

// Options control how a roll is prepared after reading.
type Options struct {
	RollTempo            float64 // > 0 sets ticks per quarter to round(tempo*6)
	HoleCorrection       bool
	PunchDiameter        float64 // hole diameter in ticks at 300 dpi
	PunchFraction        float64 // fraction of the diameter added to each hole
	DropExpressionTracks bool
}

// DefaultOptions returns tracker-bar defaults for 300 dpi scans.
func DefaultOptions() Options {
	return Options{
		PunchDiameter: 21.5,
		PunchFraction: 0.75,
	}
}

type timed struct {
	tick int64
	msg  smf.Message
}

// Roll is a loaded roll file. Events are kept at absolute ticks so they
// can be shifted and inserted before the file is encoded again.
type Roll struct {
	opts      Options
	format    smf.TimeFormat
	tracks    [][]timed
	first     int // index of the bass notes track
	timing    *smf.SMF
	corrected bool
	applied   bool
}

// Load reads a roll from a file.
func Load(path string, opts Options) (*Roll, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open roll")
	}
	defer f.Close()

	r, err := Read(f, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return r, nil
}

// Read decodes a roll and applies the tempo and hole options.
func Read(rd io.Reader, opts Options) (*Roll, error) {
	s, err := smf.ReadFrom(rd)
	if err != nil {
		return nil, errors.Wrap(err, "decode MIDI")
	}

	r := &Roll{opts: opts, format: s.TimeFormat, timing: s}
	switch len(s.Tracks) {
	case int(numRoles):
		r.first = 0
	case int(numRoles) + 1:
		r.first = 1
	default:
		return nil, errors.Wrapf(ErrTrackLayout, "found %d tracks", len(s.Tracks))
	}

	for _, tr := range s.Tracks {
		r.tracks = append(r.tracks, absolute(tr))
	}

	if opts.RollTempo > 0 {
		if err := r.SetRollTempo(opts.RollTempo); err != nil {
			return nil, err
		}
	}
	if opts.HoleCorrection {
		if err := r.CorrectHoles(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// absolute converts delta times to absolute ticks and drops end-of-track.
func absolute(tr smf.Track) []timed {
	out := make([]timed, 0, len(tr))
	var abs int64
	for _, ev := range tr {
		abs += int64(ev.Delta)
		if isEndOfTrack(ev.Message) {
			continue
		}
		out = append(out, timed{tick: abs, msg: ev.Message})
	}
	return out
}

func isEndOfTrack(m smf.Message) bool {
	return len(m) >= 2 && m[0] == 0xFF && m[1] == 0x2F
}

// Resolution is the current ticks per quarter note.
func (r *Roll) Resolution() (uint16, error) {
	mt, ok := r.format.(smf.MetricTicks)
	if !ok {
		return 0, errors.WithStack(ErrUnsupportedTiming)
	}
	return mt.Resolution(), nil
}

// SetRollTempo reinterprets tick positions for a roll speed: scans are
// 300 dpi, so one quarter note is tempo*6 ticks.
func (r *Roll) SetRollTempo(tempo float64) error {
	if _, err := r.Resolution(); err != nil {
		return err
	}
	tpq := math.Floor(tempo*6 + 0.5)
	if tpq < 1 || tpq > 0x7FFF {
		return errors.Errorf("roll tempo %.3f gives %v ticks per quarter", tempo, tpq)
	}
	r.format = smf.MetricTicks(uint16(tpq))
	r.timing = nil
	return nil
}

// CorrectHoles lengthens every hole to emulate the tracker bar width:
// each note-off moves later by round(diameter*fraction) ticks.
func (r *Roll) CorrectHoles() error {
	if r.corrected {
		return errors.WithStack(ErrAlreadyCorrected)
	}
	shift := int64(math.Floor(r.opts.PunchDiameter*r.opts.PunchFraction + 0.5))
	var ch, key uint8
	for i, tr := range r.tracks {
		for j := range tr {
			if gomidi.Message(tr[j].msg).GetNoteEnd(&ch, &key) {
				tr[j].tick += shift
			}
		}
		sortTrack(r.tracks[i])
	}
	r.corrected = true
	r.timing = nil
	return nil
}

func sortTrack(tr []timed) {
	sort.SliceStable(tr, func(i, j int) bool { return tr[i].tick < tr[j].tick })
}

// Micros is the absolute time of a tick in microseconds.
func (r *Roll) Micros(tick int64) (int64, error) {
	if r.timing == nil {
		s, err := r.reencode()
		if err != nil {
			return 0, err
		}
		r.timing = s
	}
	return r.timing.TimeAt(tick), nil
}

// millis rounds a tick to the nearest millisecond.
func (r *Roll) millis(tick int64) (int, error) {
	us, err := r.Micros(tick)
	if err != nil {
		return 0, err
	}
	return int((us + 500) / 1000), nil
}

// reencode round-trips the current state so tempo lookups see the
// current resolution and tempo events.
func (r *Roll) reencode() (*smf.SMF, error) {
	enc, err := r.encode(false)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := enc.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "encode roll")
	}
	s, err := smf.ReadFrom(&buf)
	if err != nil {
		return nil, errors.Wrap(err, "decode roll")
	}
	return s, nil
}

// TrackIndex is the file track holding a role.
func (r *Roll) TrackIndex(role Role) int {
	return r.first + int(role)
}

func (r *Roll) track(role Role) []timed {
	return r.tracks[r.TrackIndex(role)]
}

// channel returns the channel of the first channel message on a track,
// or fallback if it has none.
func (r *Roll) channel(role Role, fallback uint8) uint8 {
	for _, ev := range r.track(role) {
		msg := gomidi.Message(ev.msg)
		if len(msg) > 0 && msg[0] >= 0x80 && msg[0] < 0xF0 {
			return msg[0] & 0x0F
		}
	}
	return fallback
}

// Performance extracts the notes and control perforations of both hands.
func (r *Roll) Performance() (expression.Performance, error) {
	bassNotes, err := r.notes(BassNotes)
	if err != nil {
		return expression.Performance{}, err
	}
	trebleNotes, err := r.notes(TrebleNotes)
	if err != nil {
		return expression.Performance{}, err
	}
	bassCodes, err := r.codes(BassControls)
	if err != nil {
		return expression.Performance{}, err
	}
	trebleCodes, err := r.codes(TrebleControls)
	if err != nil {
		return expression.Performance{}, err
	}
	return expression.Performance{
		Bass:   expression.Part{Notes: bassNotes, Controls: bassCodes},
		Treble: expression.Part{Notes: trebleNotes, Controls: trebleCodes},
	}, nil
}

// held is a note-on paired with its note-off.
type held struct {
	key, vel uint8
	start    int64
	end      int64
	ref      int
}

// pairs matches note-ons with note-offs first-in first-out per key.
// A note left open ends where it starts.
func (r *Roll) pairs(role Role) []held {
	var out []held
	pending := make(map[uint8][]int)
	var ch, key, vel uint8
	for i, ev := range r.track(role) {
		msg := gomidi.Message(ev.msg)
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			pending[key] = append(pending[key], len(out))
			out = append(out, held{key: key, vel: vel, start: ev.tick, end: ev.tick, ref: i})
		case msg.GetNoteEnd(&ch, &key):
			if q := pending[key]; len(q) > 0 {
				out[q[0]].end = ev.tick
				pending[key] = q[1:]
			}
		}
	}
	return out
}

// notes reads a note track with times in milliseconds.
func (r *Roll) notes(role Role) ([]expression.Note, error) {
	ps := r.pairs(role)
	out := make([]expression.Note, len(ps))
	for i, p := range ps {
		start, err := r.millis(p.start)
		if err != nil {
			return nil, err
		}
		end, err := r.millis(p.end)
		if err != nil {
			return nil, err
		}
		out[i] = expression.Note{
			Start:    start,
			End:      end,
			Pitch:    p.key,
			Velocity: p.vel,
			Tick:     p.start,
			Ref:      p.ref,
		}
	}
	return out, nil
}

// codes reads a control track as perforations.
func (r *Roll) codes(role Role) ([]expression.CodedEvent, error) {
	ps := r.pairs(role)
	out := make([]expression.CodedEvent, len(ps))
	for i, p := range ps {
		start, err := r.millis(p.start)
		if err != nil {
			return nil, err
		}
		end, err := r.millis(p.end)
		if err != nil {
			return nil, err
		}
		out[i] = expression.CodedEvent{
			Code:      int(p.key),
			Start:     start,
			End:       end,
			StartTick: p.start,
			EndTick:   p.end,
		}
	}
	return out, nil
}

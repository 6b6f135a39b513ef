package rollfile

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"go-welte/expression"
)

type at struct {
	tick uint32
	msg  []byte
}

func trackOf(evs ...at) smf.Track {
	var tr smf.Track
	var last uint32
	for _, e := range evs {
		tr.Add(e.tick-last, e.msg)
		last = e.tick
	}
	tr.Close(0)
	return tr
}

func hole(ch, key uint8, on, off uint32) []at {
	return []at{{on, gomidi.NoteOn(ch, key, 64)}, {off, gomidi.NoteOff(ch, key)}}
}

func join(parts ...[]at) []at {
	var out []at
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// testRoll encodes a small roll at 1000 ticks per quarter and 60 bpm, so
// one tick is one millisecond.
func testRoll(t *testing.T, conductor bool) []byte {
	t.Helper()
	tempo := at{0, smf.MetaTempo(60)}

	bass := join(hole(0, 40, 0, 500), hole(0, 45, 1000, 1500))
	treble := join([]at{{0, gomidi.ControlChange(1, 10, 32)}}, hole(1, 80, 200, 700))
	bassCodes := join(hole(2, 17, 100, 110), hole(2, 21, 500, 510), hole(2, 20, 1190, 1200), hole(2, 16, 1400, 1410))
	trebleCodes := join(hole(3, 106, 100, 110), hole(3, 107, 900, 950))

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(1000)
	var tracks []smf.Track
	if conductor {
		tracks = append(tracks, trackOf(tempo), trackOf(bass...))
	} else {
		tracks = append(tracks, trackOf(append([]at{tempo}, bass...)...))
	}
	tracks = append(tracks, trackOf(treble...), trackOf(bassCodes...), trackOf(trebleCodes...))
	for _, tr := range tracks {
		if err := s.Add(tr); err != nil {
			t.Fatalf("add track: %v", err)
		}
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatalf("write test roll: %v", err)
	}
	return buf.Bytes()
}

func readRoll(t *testing.T, data []byte, opts Options) *Roll {
	t.Helper()
	r, err := Read(bytes.NewReader(data), opts)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	return r
}

func TestPerformanceReadsBothLayouts(t *testing.T) {
	for _, conductor := range []bool{true, false} {
		r := readRoll(t, testRoll(t, conductor), DefaultOptions())
		perf, err := r.Performance()
		if err != nil {
			t.Fatalf("Performance: %v", err)
		}

		bass := perf.Bass.Notes
		if len(bass) != 2 {
			t.Fatalf("conductor=%v: got %d bass notes", conductor, len(bass))
		}
		if bass[0].Start != 0 || bass[0].End != 500 || bass[0].Pitch != 40 {
			t.Fatalf("conductor=%v: first bass note = %+v", conductor, bass[0])
		}
		if bass[1].Start != 1000 || bass[1].End != 1500 || bass[1].Tick != 1000 {
			t.Fatalf("conductor=%v: second bass note = %+v", conductor, bass[1])
		}

		treble := perf.Treble.Notes
		if len(treble) != 1 || treble[0].Start != 200 || treble[0].Ref != 1 {
			t.Fatalf("conductor=%v: treble notes = %+v", conductor, treble)
		}

		codes := perf.Bass.Controls
		if len(codes) != 4 || codes[1].Code != 21 || codes[1].Start != 500 || codes[1].End != 510 {
			t.Fatalf("conductor=%v: bass controls = %+v", conductor, codes)
		}
		if len(perf.Treble.Controls) != 2 || perf.Treble.Controls[1].EndTick != 950 {
			t.Fatalf("conductor=%v: treble controls = %+v", conductor, perf.Treble.Controls)
		}
	}
}

func TestReadRejectsTrackLayout(t *testing.T) {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(1000)
	for i := 0; i < 3; i++ {
		if err := s.Add(trackOf(hole(0, 60, 0, 10)...)); err != nil {
			t.Fatalf("add track: %v", err)
		}
	}
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Read(&buf, DefaultOptions())
	if !errors.Is(err, ErrTrackLayout) {
		t.Fatalf("err = %v, want ErrTrackLayout", err)
	}
}

func TestHoleCorrection(t *testing.T) {
	opts := DefaultOptions()
	opts.HoleCorrection = true
	opts.PunchDiameter = 20
	opts.PunchFraction = 0.5
	r := readRoll(t, testRoll(t, true), opts)

	perf, err := r.Performance()
	if err != nil {
		t.Fatalf("Performance: %v", err)
	}
	if n := perf.Bass.Notes[0]; n.Start != 0 || n.End != 510 {
		t.Fatalf("corrected note = %+v, want 0..510", n)
	}
	if c := perf.Bass.Controls[1]; c.Start != 500 || c.End != 520 {
		t.Fatalf("corrected code = %+v, want 500..520", c)
	}

	if err := r.CorrectHoles(); !errors.Is(err, ErrAlreadyCorrected) {
		t.Fatalf("second correction err = %v", err)
	}
}

func TestSetRollTempo(t *testing.T) {
	opts := DefaultOptions()
	opts.RollTempo = 100
	r := readRoll(t, testRoll(t, true), opts)

	res, err := r.Resolution()
	if err != nil || res != 600 {
		t.Fatalf("Resolution = %d, %v; want 600", res, err)
	}
	perf, err := r.Performance()
	if err != nil {
		t.Fatalf("Performance: %v", err)
	}
	// 1000 ticks at 600 per one-second quarter
	if got := perf.Bass.Notes[1].Start; got != 1667 {
		t.Fatalf("second note start = %dms, want 1667", got)
	}

	if err := r.SetRollTempo(0); err == nil {
		t.Fatalf("expected an error for a zero tempo")
	}
}

type ccEvent struct {
	tick  int64
	cc    uint8
	value uint8
}

func controllers(tr smf.Track) []ccEvent {
	var out []ccEvent
	var abs int64
	var ch, cc, val uint8
	for _, ev := range tr {
		abs += int64(ev.Delta)
		if gomidi.Message(ev.Message).GetControlChange(&ch, &cc, &val) {
			out = append(out, ccEvent{abs, cc, val})
		}
	}
	return out
}

func filterCC(evs []ccEvent, cc uint8) []ccEvent {
	var out []ccEvent
	for _, e := range evs {
		if e.cc == cc {
			out = append(out, e)
		}
	}
	return out
}

func expand(t *testing.T, r *Roll) expression.Result {
	t.Helper()
	perf, err := r.Performance()
	if err != nil {
		t.Fatalf("Performance: %v", err)
	}
	res, err := expression.Process(perf, expression.DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if err := r.Apply(res, DefaultOutput()); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return res
}

func TestApplyWritesExpression(t *testing.T) {
	r := readRoll(t, testRoll(t, true), DefaultOptions())
	res := expand(t, r)

	s, err := r.SMF()
	if err != nil {
		t.Fatalf("SMF: %v", err)
	}
	if len(s.Tracks) != 5 {
		t.Fatalf("got %d tracks, want 5", len(s.Tracks))
	}

	for _, hand := range []struct {
		role Role
		pan  uint8
	}{{BassNotes, 52}, {TrebleNotes, 76}} {
		ccs := controllers(s.Tracks[r.TrackIndex(hand.role)])

		pans := filterCC(ccs, 10)
		if len(pans) != 1 || pans[0].tick != 0 || pans[0].value != hand.pan {
			t.Fatalf("%s pan = %+v, want one pan %d at 0", hand.role, pans, hand.pan)
		}
		soft := filterCC(ccs, 67)
		if len(soft) != 2 || soft[0] != (ccEvent{500, 67, 70}) || soft[1] != (ccEvent{1200, 67, 0}) {
			t.Fatalf("%s soft pedal = %+v", hand.role, soft)
		}
		sustain := filterCC(ccs, 64)
		if len(sustain) != 2 || sustain[0] != (ccEvent{100, 64, 70}) || sustain[1] != (ccEvent{950, 64, 0}) {
			t.Fatalf("%s sustain pedal = %+v", hand.role, sustain)
		}
	}

	var buf bytes.Buffer
	if _, err := r.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	back := readRoll(t, buf.Bytes(), DefaultOptions())
	perf, err := back.Performance()
	if err != nil {
		t.Fatalf("Performance: %v", err)
	}
	for i, n := range perf.Bass.Notes {
		if n.Velocity != res.Bass.Notes[i].Velocity {
			t.Fatalf("bass note %d velocity = %d, want %d", i, n.Velocity, res.Bass.Notes[i].Velocity)
		}
	}
	if perf.Treble.Notes[0].Velocity != res.Treble.Notes[0].Velocity {
		t.Fatalf("treble velocity = %d, want %d", perf.Treble.Notes[0].Velocity, res.Treble.Notes[0].Velocity)
	}

	if err := r.Apply(res, DefaultOutput()); !errors.Is(err, ErrAlreadyApplied) {
		t.Fatalf("second Apply err = %v", err)
	}
}

func TestApplyNeverWritesZeroVelocity(t *testing.T) {
	r := readRoll(t, testRoll(t, true), DefaultOptions())
	perf, err := r.Performance()
	if err != nil {
		t.Fatalf("Performance: %v", err)
	}
	res := expression.Result{
		Bass:   expression.HandResult{Notes: perf.Bass.Notes},
		Treble: expression.HandResult{Notes: perf.Treble.Notes},
	}
	for i := range res.Bass.Notes {
		res.Bass.Notes[i].Velocity = 0
	}
	if err := r.Apply(res, DefaultOutput()); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	s, err := r.SMF()
	if err != nil {
		t.Fatalf("SMF: %v", err)
	}
	back, err := Read(bytes.NewReader(mustWrite(t, s)), DefaultOptions())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	perf, err = back.Performance()
	if err != nil {
		t.Fatalf("Performance: %v", err)
	}
	if len(perf.Bass.Notes) != 2 {
		t.Fatalf("lost notes: %+v", perf.Bass.Notes)
	}
	for _, n := range perf.Bass.Notes {
		if n.Velocity != 1 {
			t.Fatalf("velocity = %d, want 1", n.Velocity)
		}
	}
}

func TestApplyRejectsStaleRefs(t *testing.T) {
	r := readRoll(t, testRoll(t, true), DefaultOptions())
	res := expression.Result{
		Bass: expression.HandResult{Notes: []expression.Note{{Pitch: 41, Ref: 0}}},
	}
	if err := r.Apply(res, DefaultOutput()); err == nil {
		t.Fatalf("expected an error for a ref that is not the note-on of key 41")
	}
}

func TestDropExpressionTracks(t *testing.T) {
	opts := DefaultOptions()
	opts.DropExpressionTracks = true
	r := readRoll(t, testRoll(t, true), opts)
	expand(t, r)

	s, err := r.SMF()
	if err != nil {
		t.Fatalf("SMF: %v", err)
	}
	if len(s.Tracks) != 3 {
		t.Fatalf("got %d tracks, want conductor and two hands", len(s.Tracks))
	}
}

func mustWrite(t *testing.T, s *smf.SMF) []byte {
	t.Helper()
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	return buf.Bytes()
}

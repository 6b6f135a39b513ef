package expression

import "testing"

func notesAt(starts ...int) []Note {
	out := make([]Note, len(starts))
	for i, s := range starts {
		out[i] = Note{Start: s, End: s + 100, Pitch: uint8(40 + i), Velocity: 99, Ref: i}
	}
	return out
}

func TestMapVelocitiesSamplesOnset(t *testing.T) {
	cfg := DefaultConfig()
	curve := Curve{40, 50.4, 50.5, 70}
	got := MapVelocities(curve, notesAt(0, 1, 2, 3), RightHand, cfg)
	want := []uint8{40, 50, 51, 70}
	for i, n := range got {
		if n.Velocity != want[i] {
			t.Fatalf("note %d velocity = %d, want %d", i, n.Velocity, want[i])
		}
	}
}

func TestMapVelocitiesPastCurveEndUsesLastSample(t *testing.T) {
	cfg := DefaultConfig()
	curve := Curve{40, 45, 66}
	got := MapVelocities(curve, notesAt(10, 5000), RightHand, cfg)
	for _, n := range got {
		if n.Velocity != 66 {
			t.Fatalf("velocity at %dms = %d, want 66", n.Start, n.Velocity)
		}
	}
}

func TestMapVelocitiesZeroSampleFallsBack(t *testing.T) {
	cfg := DefaultConfig()
	got := MapVelocities(Curve{44, 0, 0}, notesAt(2), RightHand, cfg)
	if got[0].Velocity != 44 {
		t.Fatalf("velocity = %d, want previous nonzero 44", got[0].Velocity)
	}

	got = MapVelocities(Curve{0, 0}, notesAt(1), RightHand, cfg)
	if got[0].Velocity != uint8(cfg.MFThreshold) {
		t.Fatalf("velocity = %d, want MF threshold", got[0].Velocity)
	}

	got = MapVelocities(nil, notesAt(0), RightHand, cfg)
	if got[0].Velocity != uint8(cfg.MFThreshold) {
		t.Fatalf("empty curve velocity = %d, want MF threshold", got[0].Velocity)
	}
}

func TestMapVelocitiesClampsToMIDIRange(t *testing.T) {
	cfg := DefaultConfig()
	got := MapVelocities(Curve{-5, 300}, notesAt(0, 1), RightHand, cfg)
	if got[0].Velocity != 0 || got[1].Velocity != 127 {
		t.Fatalf("velocities = %d, %d, want 0, 127", got[0].Velocity, got[1].Velocity)
	}
}

func TestMapVelocitiesLeftHandOffset(t *testing.T) {
	cfg := DefaultConfig()
	curve := Curve{60, 10}
	bass := MapVelocities(curve, notesAt(0, 1), LeftHand, cfg)
	treble := MapVelocities(curve, notesAt(0, 1), RightHand, cfg)

	if bass[0].Velocity != 45 || treble[0].Velocity != 60 {
		t.Fatalf("velocities = %d (bass), %d (treble), want 45, 60", bass[0].Velocity, treble[0].Velocity)
	}
	if bass[1].Velocity != 0 {
		t.Fatalf("bass offset must floor at 0, got %d", bass[1].Velocity)
	}
}

func TestMapVelocitiesLeavesInputAlone(t *testing.T) {
	in := notesAt(0, 1)
	out := MapVelocities(Curve{50, 50}, in, RightHand, DefaultConfig())
	if in[0].Velocity != 99 || in[1].Velocity != 99 {
		t.Fatalf("input notes were modified")
	}
	for i := range out {
		if out[i].Ref != in[i].Ref || out[i].Pitch != in[i].Pitch || out[i].Start != in[i].Start {
			t.Fatalf("note %d lost its identity: %+v", i, out[i])
		}
	}
}

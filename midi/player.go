package midi

import (
	"context"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Cue is a channel message at an offset from the start of playback
type Cue struct {
	At  time.Duration
	Msg gomidi.Message
}

// Schedule flattens all tracks into time-ordered channel messages.
// Meta and sysex events are skipped.
func Schedule(s *smf.SMF) []Cue {
	var cues []Cue
	for _, track := range s.Tracks {
		var abs int64
		for _, ev := range track {
			abs += int64(ev.Delta)
			msg := gomidi.Message(ev.Message)
			if len(msg) == 0 || msg[0] >= 0xF0 {
				continue
			}
			us := s.TimeAt(abs)
			cues = append(cues, Cue{At: time.Duration(us) * time.Microsecond, Msg: msg})
		}
	}
	sort.SliceStable(cues, func(i, j int) bool { return cues[i].At < cues[j].At })
	return cues
}

// Play sends the file to out in real time until it ends or ctx is done.
// Sounding notes are silenced on cancellation.
func Play(ctx context.Context, out drivers.Out, s *smf.SMF) error {
	logger := log.FromContext(ctx)

	send, err := gomidi.SendTo(out)
	if err != nil {
		return errors.Wrapf(err, "open output %s", out.String())
	}

	cues := Schedule(s)
	logger.Info("playing", "port", out.String(), "events", len(cues))

	start := time.Now()
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for _, c := range cues {
		if wait := c.At - time.Since(start); wait > 0 {
			timer.Reset(wait)
			select {
			case <-ctx.Done():
				allNotesOff(send)
				return ctx.Err()
			case <-timer.C:
			}
		}
		if err := send(c.Msg); err != nil {
			return errors.Wrap(err, "send")
		}
	}
	return nil
}

func allNotesOff(send func(gomidi.Message) error) {
	for ch := uint8(0); ch < 16; ch++ {
		send(gomidi.ControlChange(ch, 123, 0))
	}
}

package expression

import (
	"slices"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// Part is one hand's input: its notes and its control track.
type Part struct {
	Notes    []Note
	Controls []CodedEvent
}

// Length is the number of milliseconds the part's timelines must cover.
func (p Part) Length() int {
	end := -1
	for _, n := range p.Notes {
		end = max(end, n.Start, n.End)
	}
	for _, e := range p.Controls {
		end = max(end, e.Start, e.End)
	}
	return end + 1
}

// Performance is the input to the expression pipeline.
type Performance struct {
	Bass   Part
	Treble Part
}

// HandResult is the output of one hand's dynamics pipeline.
type HandResult struct {
	Valves Valves
	Curve  Curve
	Notes  []Note
}

// Result is everything the pipeline reconstructs.
type Result struct {
	Bass   HandResult
	Treble HandResult
	Pedals []PedalEvent
}

// Process reconstructs dynamics for both hands and, if enabled, the pedals.
// Only an invalid cfg is an error; malformed control data degrades the
// curve instead of failing.
func Process(perf Performance, cfg Config, logger *log.Logger) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if logger == nil {
		logger = log.Default()
	}

	var res Result
	var g errgroup.Group
	g.Go(func() error {
		res.Bass = processHand(perf.Bass, LeftHand, cfg)
		return nil
	})
	g.Go(func() error {
		res.Treble = processHand(perf.Treble, RightHand, cfg)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	if cfg.Pedals {
		res.Pedals = ReconstructPedals(sortedControls(perf.Bass.Controls), sortedControls(perf.Treble.Controls), logger)
	}

	logger.Debug("expression reconstructed",
		"bassNotes", len(res.Bass.Notes), "trebleNotes", len(res.Treble.Notes),
		"bassMs", len(res.Bass.Curve), "trebleMs", len(res.Treble.Curve),
		"pedalEvents", len(res.Pedals))
	return res, nil
}

func processHand(p Part, hand Hand, cfg Config) HandResult {
	valves := TrackValves(ValveEvents(sortedControls(p.Controls)), p.Length())
	curve := Integrate(valves, cfg)
	return HandResult{
		Valves: valves,
		Curve:  curve,
		Notes:  MapVelocities(curve, p.Notes, hand, cfg),
	}
}

// sortedControls returns a start-ordered copy; ties keep file order.
func sortedControls(events []CodedEvent) []CodedEvent {
	out := slices.Clone(events)
	slices.SortStableFunc(out, func(a, b CodedEvent) int {
		return a.Start - b.Start
	})
	return out
}

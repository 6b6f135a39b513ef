package main

import (
	"bufio"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"go-welte/expression"
	"go-welte/theme"
	"go-welte/widgets"
)

func styledVelocity(th *theme.Theme, v uint8) string {
	return widgets.RenderValue(th.Velocity(v), int(v))
}

// velocityStats summarises the velocities of one hand
type velocityStats struct {
	count         int
	lo, hi        uint8
	mean          float64
	fallbackNotes int // notes sampled past the end of the curve
}

func statsFor(h expression.HandResult) velocityStats {
	var s velocityStats
	if len(h.Notes) == 0 {
		return s
	}
	s.lo = 127
	var sum int
	for _, n := range h.Notes {
		s.lo = min(s.lo, n.Velocity)
		s.hi = max(s.hi, n.Velocity)
		sum += int(n.Velocity)
		if n.Start >= len(h.Curve) {
			s.fallbackNotes++
		}
	}
	s.count = len(h.Notes)
	s.mean = float64(sum) / float64(s.count)
	return s
}

func openMillis(t expression.Timeline) int {
	n := 0
	for _, on := range t {
		if on {
			n++
		}
	}
	return n
}

func pedalCounts(events []expression.PedalEvent) (sustain, soft int) {
	for _, e := range events {
		if !e.Engaged {
			continue
		}
		switch e.Pedal {
		case expression.SustainPedal:
			sustain++
		case expression.SoftPedal:
			soft++
		}
	}
	return sustain, soft
}

func handSection(th *theme.Theme, hand expression.Hand, h expression.HandResult) widgets.Section {
	s := statsFor(h)
	rows := []widgets.Row{
		{Label: "notes", Value: fmt.Sprintf("%d", s.count)},
		{Label: "length", Value: fmt.Sprintf("%.3fs", float64(len(h.Curve))/1000)},
	}
	if s.count > 0 {
		rows = append(rows, widgets.Row{
			Label: "velocity",
			Value: fmt.Sprintf("%s .. %s  mean %.1f", styledVelocity(th, s.lo), styledVelocity(th, s.hi), s.mean),
		})
	}
	if s.fallbackNotes > 0 {
		warn := lipgloss.NewStyle().Foreground(th.Warning())
		rows = append(rows, widgets.Row{
			Label: "past curve end",
			Value: warn.Render(fmt.Sprintf("%c %d notes", th.Symbols.Warning, s.fallbackNotes)),
		})
	}
	rows = append(rows,
		widgets.Row{Label: "mf hook open", Value: fmt.Sprintf("%dms", openMillis(h.Valves.MF))},
		widgets.Row{Label: "crescendo open", Value: fmt.Sprintf("%dms", openMillis(h.Valves.SlowCrescendo))},
		widgets.Row{Label: "forzando", Value: fmt.Sprintf("%dms up, %dms down",
			openMillis(h.Valves.FastCrescendo), openMillis(h.Valves.FastDecrescendo))},
	)
	return widgets.Section{Title: hand.String(), Rows: rows}
}

func renderReport(th *theme.Theme, cfg expression.Config, in, out string, res expression.Result) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(th.Accent())
	muted := lipgloss.NewStyle().Foreground(th.Muted())

	sustain, soft := pedalCounts(res.Pedals)
	sections := []widgets.Section{
		{Title: "files", Rows: []widgets.Row{
			{Label: "in", Value: in},
			{Label: "out", Value: out},
		}},
		handSection(th, expression.LeftHand, res.Bass),
		handSection(th, expression.RightHand, res.Treble),
		{Title: "pedals", Rows: []widgets.Row{
			{Label: "sustain", Value: fmt.Sprintf("%c %d", th.Symbols.Engaged, sustain)},
			{Label: "soft", Value: fmt.Sprintf("%c %d", th.Symbols.Engaged, soft)},
		}},
	}

	legend := muted.Render("velocity colors:") + "\n" +
		widgets.RenderLegendItem(th.Velocity(uint8(cfg.Piano)), "p", "piano floor") + "\n" +
		widgets.RenderLegendItem(th.Velocity(uint8(cfg.MFThreshold)), "mf", "mezzo-forte hook") + "\n" +
		widgets.RenderLegendItem(th.Velocity(uint8(cfg.Forte)), "f", "forte")

	return widgets.RenderSections(title, sections) + "\n\n" + legend
}

// writeCurve prints one tab-separated line per millisecond: time, bass
// level, treble level, optionally followed by each hand's valve states
func writeCurve(w io.Writer, res expression.Result, extended bool) error {
	bw := bufio.NewWriter(w)
	n := max(len(res.Bass.Curve), len(res.Treble.Curve))
	for i := 0; i < n; i++ {
		fmt.Fprintf(bw, "%d\t%s", i, level(res.Bass.Curve, i))
		if extended {
			writeValves(bw, res.Bass.Valves, i)
		}
		fmt.Fprintf(bw, "\t%s", level(res.Treble.Curve, i))
		if extended {
			writeValves(bw, res.Treble.Valves, i)
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}

func level(c expression.Curve, i int) string {
	if i >= len(c) {
		return "-"
	}
	return fmt.Sprintf("%.4f", c[i])
}

func writeValves(w io.Writer, v expression.Valves, i int) {
	for _, t := range []expression.Timeline{v.MF, v.SlowCrescendo, v.FastCrescendo, v.FastDecrescendo} {
		b := 0
		if t.Active(i) {
			b = 1
		}
		fmt.Fprintf(w, "\t%d", b)
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"go-welte/config"
	"go-welte/debug"
	"go-welte/expression"
	"go-welte/midi"
	"go-welte/rollfile"
	"go-welte/theme"
)

// options are the flags shared by every command that reads a roll
type options struct {
	cfg        *config.Config
	configPath string
	fs         *flag.FlagSet

	redWelte   bool
	noPedal    bool
	panBass    int
	panTreble  int
	debug      bool
	logLevel   string
	saveConfig bool
}

// newOptions loads the config named by -config (or the default one) and
// binds flags over it, so flags win over the file.
func newOptions(name string, args []string) (*options, error) {
	path := configPathFromArgs(args)
	var (
		cfg *config.Config
		err error
	)
	if path == "" {
		cfg, err = config.Load()
		path, _ = config.ConfigPath()
	} else {
		cfg, err = config.LoadFile(path)
	}
	if err != nil {
		return nil, err
	}

	o := &options{cfg: cfg, configPath: path, fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	fs := o.fs
	e := &cfg.Expression

	fs.StringVar(&o.configPath, "config", path, "config file")
	fs.Float64Var(&e.Piano, "piano", e.Piano, "piano floor velocity (minimum dynamics)")
	fs.Float64Var(&e.MFThreshold, "mf", e.MFThreshold, "mezzo-forte hook velocity")
	fs.Float64Var(&e.Forte, "forte", e.Forte, "forte velocity (maximum dynamics)")
	fs.Float64Var(&e.LoudCap, "loud", e.LoudCap, "ceiling of a slow crescendo alone")
	fs.Float64Var(&e.CrescendoRate, "rate", e.CrescendoRate, "crescendo rate multiplier")
	fs.IntVar(&e.LeftHandOffset, "left-offset", e.LeftHandOffset, "velocity offset for the bass hand")
	fs.Float64Var(&e.SlowDecayMillis, "slow-decay", e.SlowDecayMillis, "slow crescendo time to the MF hook (ms)")
	fs.Float64Var(&e.FastCrescendoMillis, "fast-crescendo", e.FastCrescendoMillis, "fast crescendo time across the range (ms)")
	fs.Float64Var(&e.FastDecrescendoMillis, "fast-decrescendo", e.FastDecrescendoMillis, "fast decrescendo time across the range (ms)")
	fs.BoolVar(&o.noPedal, "no-pedal", !e.Pedals, "do not reconstruct pedalling")
	fs.IntVar(&o.panBass, "pan-bass", int(cfg.Output.PanBass), "pan controller value for the bass hand")
	fs.IntVar(&o.panTreble, "pan-treble", int(cfg.Output.PanTreble), "pan controller value for the treble hand")
	fs.BoolVar(&cfg.Output.DropExpressionTracks, "remove-expression", cfg.Output.DropExpressionTracks, "drop the expression tracks on write")

	fs.Float64Var(&cfg.Roll.Tempo, "tempo", cfg.Roll.Tempo, "roll tempo (ticks per quarter = tempo*6), 0 keeps the file")
	fs.BoolVar(&o.redWelte, "red-welte", false, fmt.Sprintf("use the Red Welte roll tempo %.3f", rollfile.RedWelteTempo))
	fs.BoolVar(&cfg.Roll.HoleCorrection, "adjust-holes", cfg.Roll.HoleCorrection, "lengthen holes to emulate the tracker bar width")
	fs.Float64Var(&cfg.Roll.PunchDiameter, "punch-diameter", cfg.Roll.PunchDiameter, "hole punch diameter in ticks at 300 dpi")
	fs.Float64Var(&cfg.Roll.PunchFraction, "punch-fraction", cfg.Roll.PunchFraction, "fraction of the diameter to extend holes by")

	fs.BoolVar(&o.debug, "debug", false, "write a trace log next to the config")
	fs.StringVar(&o.logLevel, "log-level", cfg.UI.LogLevel, "debug, info, warn or error")
	fs.BoolVar(&o.saveConfig, "save-config", false, "persist the effective settings")
	return o, nil
}

// configPathFromArgs finds -config before flags are bound
func configPathFromArgs(args []string) string {
	for i, a := range args {
		a = strings.TrimLeft(a, "-")
		if v, ok := strings.CutPrefix(a, "config="); ok {
			return v
		}
		if a == "config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// parse applies flags and derived settings, and sets up logging
func (o *options) parse(args []string, logger *log.Logger) error {
	if err := o.fs.Parse(args); err != nil {
		return err
	}

	cfg := o.cfg
	cfg.Expression.Pedals = !o.noPedal
	cfg.Output.PanBass = uint8(min(max(o.panBass, 0), 127))
	cfg.Output.PanTreble = uint8(min(max(o.panTreble, 0), 127))
	if o.redWelte {
		cfg.Roll.Tempo = rollfile.RedWelteTempo
	}
	cfg.UI.LogLevel = o.logLevel

	lvl, err := log.ParseLevel(o.logLevel)
	if err != nil {
		return errors.Wrap(err, "log level")
	}
	logger.SetLevel(lvl)

	if err := cfg.Validate(); err != nil {
		return err
	}

	if o.debug {
		if err := debug.Enable(filepath.Join(filepath.Dir(o.configPath), "debug.log")); err != nil {
			logger.Warn("trace log unavailable", "err", err)
		}
	}
	if o.saveConfig {
		if err := cfg.SaveFile(o.configPath); err != nil {
			return err
		}
		logger.Info("saved config", "path", o.configPath)
	}
	return nil
}

func (o *options) theme() *theme.Theme {
	if o.cfg.UI.Palette != "" {
		if p, err := theme.LoadGPL(o.cfg.UI.Palette); err == nil {
			return theme.New(p)
		}
	}
	return theme.New(theme.Default())
}

// expandRoll loads a roll and runs the whole expression pipeline on it
func expandRoll(path string, cfg *config.Config, logger *log.Logger) (*rollfile.Roll, expression.Result, error) {
	roll, err := rollfile.Load(path, cfg.RollOptions())
	if err != nil {
		return nil, expression.Result{}, err
	}
	perf, err := roll.Performance()
	if err != nil {
		return nil, expression.Result{}, err
	}
	res, err := expression.Process(perf, cfg.Expression, logger)
	if err != nil {
		return nil, expression.Result{}, err
	}
	if err := roll.Apply(res, cfg.RollOutput()); err != nil {
		return nil, expression.Result{}, err
	}
	return roll, res, nil
}

func runExpand(logger *log.Logger, args []string) error {
	o, err := newOptions("expand", args)
	if err != nil {
		return err
	}
	if err := o.parse(args, logger); err != nil {
		return err
	}
	defer debug.Disable()

	if o.fs.NArg() != 2 {
		return errors.New("usage: go-welte expand [flags] IN.mid OUT.mid")
	}
	in, out := o.fs.Arg(0), o.fs.Arg(1)

	roll, res, err := expandRoll(in, o.cfg, logger)
	if err != nil {
		return err
	}
	if err := roll.WriteFile(out); err != nil {
		return err
	}
	logger.Info("wrote", "path", out)

	fmt.Println(renderReport(o.theme(), o.cfg.Expression, in, out, res))
	return nil
}

func runVelocities(logger *log.Logger, args []string) error {
	o, err := newOptions("velocities", args)
	if err != nil {
		return err
	}
	treble := o.fs.Bool("treble", false, "list the treble hand instead of the bass")
	millis := o.fs.Bool("ms", false, "print times in milliseconds instead of seconds")
	if err := o.parse(args, logger); err != nil {
		return err
	}
	defer debug.Disable()

	if o.fs.NArg() != 1 {
		return errors.New("usage: go-welte velocities [flags] IN.mid")
	}
	roll, err := rollfile.Load(o.fs.Arg(0), o.cfg.RollOptions())
	if err != nil {
		return err
	}
	perf, err := roll.Performance()
	if err != nil {
		return err
	}

	notes := perf.Bass.Notes
	if *treble {
		notes = perf.Treble.Notes
	}
	return writeVelocities(os.Stdout, o.theme(), notes, *millis)
}

// writeVelocities lists one line per onset; chord members after the
// first are skipped
func writeVelocities(w io.Writer, th *theme.Theme, notes []expression.Note, millis bool) error {
	last := int64(-1)
	for _, n := range notes {
		if n.Tick == last {
			continue
		}
		last = n.Tick
		at := fmt.Sprintf("%.3f", float64(n.Start)/1000)
		if millis {
			at = fmt.Sprintf("%d", n.Start)
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\n", at, styledVelocity(th, n.Velocity)); err != nil {
			return err
		}
	}
	return nil
}

func runCurve(logger *log.Logger, args []string) error {
	o, err := newOptions("curve", args)
	if err != nil {
		return err
	}
	extended := o.fs.Bool("x", false, "add the valve states of each hand")
	if err := o.parse(args, logger); err != nil {
		return err
	}
	defer debug.Disable()

	if o.fs.NArg() != 1 {
		return errors.New("usage: go-welte curve [flags] IN.mid")
	}
	_, res, err := expandRoll(o.fs.Arg(0), o.cfg, logger)
	if err != nil {
		return err
	}
	return writeCurve(os.Stdout, res, *extended)
}

func runPorts(logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("ports", flag.ContinueOnError)
	timeout := fs.Duration("timeout", midi.DefaultScanTimeout, "give up on a hung MIDI driver after this long")
	if err := fs.Parse(args); err != nil {
		return err
	}
	defer midi.CloseDriver()

	outs, err := midi.OutputPorts(*timeout)
	if err != nil {
		return err
	}
	fmt.Println("=== MIDI Output Ports ===")
	for i, p := range outs {
		fmt.Printf("  %d: %s\n", i, p.String())
	}
	if len(outs) == 0 {
		logger.Warn("no output ports found")
	}
	return nil
}

func runPlay(logger *log.Logger, args []string) error {
	o, err := newOptions("play", args)
	if err != nil {
		return err
	}
	port := o.fs.String("port", o.cfg.UI.OutputPort, "output port name (substring match, first port if empty)")
	if err := o.parse(args, logger); err != nil {
		return err
	}
	defer debug.Disable()

	if o.fs.NArg() != 1 {
		return errors.New("usage: go-welte play [flags] IN.mid")
	}
	roll, _, err := expandRoll(o.fs.Arg(0), o.cfg, logger)
	if err != nil {
		return err
	}
	s, err := roll.SMF()
	if err != nil {
		return err
	}

	defer midi.CloseDriver()
	out, err := midi.FindOutput(*port, midi.DefaultScanTimeout)
	if err != nil {
		return err
	}
	if o.saveConfig && *port != o.cfg.UI.OutputPort {
		o.cfg.UI.OutputPort = *port
		if err := o.cfg.SaveFile(o.configPath); err != nil {
			logger.Warn("could not remember port", "err", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = log.WithContext(ctx, logger)

	if err := midi.Play(ctx, out, s); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

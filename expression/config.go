package expression

import "fmt"

// Physical timings of the Red Welte expression mechanism in milliseconds,
// adapted from table 4.1 of Peter Phillips' thesis with some regulation.
const (
	SlowDecayMillis       = 2380.0
	FastCrescendoMillis   = 700.0 * 2.0
	FastDecrescendoMillis = 150.0 * 2.2
)

// PianoFloor is the softest dynamic the mechanism reaches (welte p).
const PianoFloor = 38.0

// Config holds every constant the expression pipeline reads.
// It is passed by value; nothing in the pipeline mutates it.
type Config struct {
	Piano          float64 `json:"piano"`          // minDynamics
	MFThreshold    float64 `json:"mfThreshold"`    // MF hook
	Forte          float64 `json:"forte"`          // maxDynamics
	LoudCap        float64 `json:"loudCap"`        // ceiling for slow crescendo alone
	CrescendoRate  float64 `json:"crescendoRate"`  // multiplier on all rates
	LeftHandOffset int     `json:"leftHandOffset"` // added to bass velocities, floored at 0

	SlowDecayMillis       float64 `json:"slowDecayMillis"`
	FastCrescendoMillis   float64 `json:"fastCrescendoMillis"`
	FastDecrescendoMillis float64 `json:"fastDecrescendoMillis"`

	Pedals            bool  `json:"pedals"`
	PedalEngageValue  uint8 `json:"pedalEngageValue"`
	PedalReleaseValue uint8 `json:"pedalReleaseValue"`
}

// DefaultConfig returns the Red Welte defaults.
func DefaultConfig() Config {
	return Config{
		Piano:          PianoFloor,
		MFThreshold:    60,
		Forte:          85,
		LoudCap:        75,
		CrescendoRate:  1.0,
		LeftHandOffset: -15,

		SlowDecayMillis:       SlowDecayMillis,
		FastCrescendoMillis:   FastCrescendoMillis,
		FastDecrescendoMillis: FastDecrescendoMillis,

		Pedals:           true,
		PedalEngageValue: 70,
	}
}

// Steps are the per-millisecond curve increments derived from a Config.
type Steps struct {
	Slow            float64
	FastCrescendo   float64
	FastDecrescendo float64 // negative
}

// Steps derives the integrator rates.
func (c Config) Steps() Steps {
	span := c.Forte - c.Piano
	return Steps{
		Slow:            c.CrescendoRate * c.MFThreshold / c.SlowDecayMillis,
		FastCrescendo:   c.CrescendoRate * span / c.FastCrescendoMillis,
		FastDecrescendo: -c.CrescendoRate * span / c.FastDecrescendoMillis,
	}
}

// MinDynamics is the lower curve bound.
func (c Config) MinDynamics() float64 { return c.Piano }

// MaxDynamics is the upper curve bound.
func (c Config) MaxDynamics() float64 { return c.Forte }

// Validate reports configurations the integrator cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Piano < 0:
		return fmt.Errorf("piano floor %.2f is negative", c.Piano)
	case c.Piano >= c.Forte:
		return fmt.Errorf("piano floor %.2f must be below forte %.2f", c.Piano, c.Forte)
	case c.Forte > 127:
		return fmt.Errorf("forte %.2f exceeds the MIDI velocity range", c.Forte)
	case c.CrescendoRate <= 0:
		return fmt.Errorf("crescendo rate %.2f must be positive", c.CrescendoRate)
	case c.SlowDecayMillis <= 0 || c.FastCrescendoMillis <= 0 || c.FastDecrescendoMillis <= 0:
		return fmt.Errorf("valve timings must be positive")
	case c.PedalEngageValue > 127 || c.PedalReleaseValue > 127:
		return fmt.Errorf("pedal controller values must be within 0-127")
	}
	return nil
}

package expression

// Curve is the reconstructed dynamics level at every millisecond.
type Curve []float64

// At samples the curve, clamping the index into range.
func (c Curve) At(i int) float64 {
	if len(c) == 0 {
		return 0
	}
	return c[min(max(i, 0), len(c)-1)]
}

// Integrate runs the dynamics simulation over one hand's valves.
// The curve starts at the piano floor and every step is derived from the
// previous one, so the result is a pure function of valves and cfg.
func Integrate(v Valves, cfg Config) Curve {
	n := v.Len()
	curve := make(Curve, n)
	if n == 0 {
		return curve
	}

	steps := cfg.Steps()
	lo, hi := cfg.MinDynamics(), cfg.MaxDynamics()
	hook := cfg.MFThreshold

	curve[0] = lo
	for i := 1; i < n; i++ {
		slow := v.SlowCrescendo[i]
		fastC := v.FastCrescendo[i]
		fastD := v.FastDecrescendo[i]

		// slow decrescendo is always on when nothing else is
		amount := -steps.Slow
		if slow || fastC || fastD {
			amount = 0
			if slow {
				amount += steps.Slow
			}
			if fastC {
				amount += steps.FastCrescendo
			}
			if fastD {
				amount += steps.FastDecrescendo
			}
		}

		prev := curve[i-1]
		next := prev + amount

		if v.MF[i] {
			// the MF hook stops motion toward the threshold; a level sitting
			// exactly on it is held in both directions
			switch {
			case prev >= hook && amount < 0:
				next = max(next, hook)
			case prev <= hook && amount > 0:
				next = min(next, hook)
			}
		} else if slow && !fastC {
			next = min(next, cfg.LoudCap)
		}

		curve[i] = min(max(next, lo), hi)
	}
	return curve
}

package dsp

import "math"

// Oscillators keep their phase in [0,1) across blocks. Frequency inputs are
// audio-rate where the module supports it; the phase increment is clamped
// below Nyquist so a runaway control signal cannot alias the accumulator
// itself.

const maxPhaseInc = 0.49

type sineGen struct {
	sampleRate float32
	phase      float64
}

func newSineGen(sampleRate float32) *sineGen {
	return &sineGen{sampleRate: sampleRate}
}

func (m *sineGen) Process(inputs []*Block, outputs []*Block) {
	if !validPorts(ModSineGen, inputs, []int{0}, outputs, 1) {
		return
	}
	freq, out := inputs[0], outputs[0]
	sr := float64(m.sampleRate)
	for i := range out {
		out[i] = float32(math.Sin(2 * math.Pi * m.phase))
		m.phase = wrap01(m.phase + clamp(float64(freq[i])/sr, 0, maxPhaseInc))
	}
}

// phasorGen is the naive ramp in [0,1): no band-limiting, by contract.
type phasorGen struct {
	sampleRate float32
	phase      float64
}

func newPhasorGen(sampleRate float32) *phasorGen {
	return &phasorGen{sampleRate: sampleRate}
}

func (m *phasorGen) Process(inputs []*Block, outputs []*Block) {
	if !validPorts(ModPhasorGen, inputs, []int{0}, outputs, 1) {
		return
	}
	freq, out := inputs[0], outputs[0]
	sr := float64(m.sampleRate)
	for i := range out {
		out[i] = float32(m.phase)
		m.phase = wrap01(m.phase + clamp(float64(freq[i])/sr, 0, maxPhaseInc))
	}
}

// sawGen is a polyBLEP-corrected sawtooth in [-1,1].
type sawGen struct {
	sampleRate float32
	phase      float64
}

func newSawGen(sampleRate float32) *sawGen {
	return &sawGen{sampleRate: sampleRate}
}

func (m *sawGen) Process(inputs []*Block, outputs []*Block) {
	if !validPorts(ModSawGen, inputs, []int{0}, outputs, 1) {
		return
	}
	freq, out := inputs[0], outputs[0]
	sr := float64(m.sampleRate)
	for i := range out {
		dt := clamp(float64(freq[i])/sr, 0, maxPhaseInc)
		out[i] = float32(2*m.phase - 1 - polyBLEP(m.phase, dt))
		m.phase = wrap01(m.phase + dt)
	}
}

// pulseGen is a polyBLEP-corrected pulse. Frequency and width are taken as
// scalars from the first sample of each block.
type pulseGen struct {
	sampleRate float32
	phase      float64
}

func newPulseGen(sampleRate float32) *pulseGen {
	return &pulseGen{sampleRate: sampleRate}
}

func (m *pulseGen) Process(inputs []*Block, outputs []*Block) {
	if !validPorts(ModPulseGen, inputs, []int{0, 1}, outputs, 1) {
		return
	}
	out := outputs[0]
	dt := clamp(float64(inputs[0][0])/float64(m.sampleRate), 0, maxPhaseInc)
	width := clamp(float64(inputs[1][0]), 0.01, 0.99)
	for i := range out {
		v := -1.0
		if m.phase < width {
			v = 1.0
		}
		v += polyBLEP(m.phase, dt)
		v -= polyBLEP(wrap01(m.phase-width+1), dt)
		out[i] = float32(v)
		m.phase = wrap01(m.phase + dt)
	}
}

// polyBLEP smooths the step discontinuity at a phase wrap with a two-sample
// polynomial band-limited step residual.
func polyBLEP(t, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	if t < dt {
		x := t / dt
		return x + x - x*x - 1
	}
	if t > 1-dt {
		x := (t - 1) / dt
		return x*x + x + x + 1
	}
	return 0
}

func wrap01(p float64) float64 {
	if p >= 1 {
		p -= math.Floor(p)
	}
	return p
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

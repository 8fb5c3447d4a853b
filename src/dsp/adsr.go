package dsp

import "math"

const (
	phaseNone = iota
	phaseAttack
	phaseDecay
	phaseSustain
	phaseRelease
)

// attackOvershoot makes the exponential attack actually reach 1.0: the
// segment aims past the peak and switches to decay on arrival.
const attackOvershoot = 1.3

// adsr is a gate-driven four-stage piecewise-exponential envelope. The four
// time/level parameters are read from the first sample of their inputs once
// per block; the gate is sampled at audio rate.
type adsr struct {
	sampleRate float32
	phase      int
	value      float64
	gateHigh   bool

	attackCoef  float64
	decayCoef   float64
	releaseCoef float64
	sustain     float64
}

func newADSR(sampleRate float32) *adsr {
	return &adsr{sampleRate: sampleRate}
}

func (m *adsr) Process(inputs []*Block, outputs []*Block) {
	if !validPorts(ModADSR, inputs, []int{0, 1, 2, 3, 4}, outputs, 1) {
		return
	}
	gate, out := inputs[0], outputs[0]
	m.attackCoef = onePoleCoef(float64(inputs[1][0]), float64(m.sampleRate))
	m.decayCoef = onePoleCoef(float64(inputs[2][0]), float64(m.sampleRate))
	m.sustain = clamp(float64(inputs[3][0]), 0, 1)
	m.releaseCoef = onePoleCoef(float64(inputs[4][0]), float64(m.sampleRate))

	for i := range out {
		high := gate[i] > 0.5
		if high && !m.gateHigh {
			m.phase = phaseAttack
		} else if !high && m.gateHigh && m.phase != phaseNone {
			m.phase = phaseRelease
		}
		m.gateHigh = high
		m.step()
		out[i] = float32(m.value)
	}
}

func (m *adsr) step() {
	switch m.phase {
	case phaseAttack:
		m.value += m.attackCoef * (attackOvershoot - m.value)
		if m.value >= 1 {
			m.value = 1
			m.phase = phaseDecay
		}
	case phaseDecay:
		m.value += m.decayCoef * (m.sustain - m.value)
		if math.Abs(m.value-m.sustain) < 0.001 {
			m.value = m.sustain
			m.phase = phaseSustain
		}
	case phaseSustain:
		m.value = m.sustain
	case phaseRelease:
		m.value += m.releaseCoef * (0 - m.value)
		if m.value < 0.001 {
			m.value = 0
			m.phase = phaseNone
		}
	default:
		m.value = 0
	}
}

// onePoleCoef converts a segment time in seconds to a per-sample smoothing
// coefficient. Zero or negative times jump immediately.
func onePoleCoef(seconds, sampleRate float64) float64 {
	if seconds <= 0 {
		return 1
	}
	return 1 - math.Exp(-1/(seconds*sampleRate))
}

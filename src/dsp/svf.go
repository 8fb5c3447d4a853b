package dsp

import "math"

// The lopass/hipass/bandpass family shares one topology-preserving-transform
// state-variable filter (Simper). Coefficients are recomputed every sample,
// so cutoff and Q may be driven at audio rate without zipper noise.

type svfMode int

const (
	svfLow svfMode = iota
	svfBand
	svfHigh
)

type svf struct {
	moduleID   uint32
	mode       svfMode
	sampleRate float32
	ic1eq      float64
	ic2eq      float64
}

func newSVF(moduleID uint32, mode svfMode, sampleRate float32) *svf {
	return &svf{moduleID: moduleID, mode: mode, sampleRate: sampleRate}
}

func (m *svf) Process(inputs []*Block, outputs []*Block) {
	if !validPorts(m.moduleID, inputs, []int{0, 1, 2}, outputs, 1) {
		return
	}
	in, cutoff, q, out := inputs[0], inputs[1], inputs[2], outputs[0]
	sr := float64(m.sampleRate)
	for i := range out {
		// omega clamped below Nyquist, Q clamped into [0.1, 100]
		omega := clamp(float64(cutoff[i])/sr, 0, 0.49)
		k := 1 / clamp(float64(q[i]), 0.1, 100)
		g := math.Tan(math.Pi * omega)

		a1 := 1 / (1 + g*(g+k))
		a2 := g * a1
		a3 := g * a2

		x := float64(in[i])
		v3 := x - m.ic2eq
		v1 := a1*m.ic1eq + a2*v3
		v2 := m.ic2eq + a2*m.ic1eq + a3*v3
		m.ic1eq = 2*v1 - m.ic1eq
		m.ic2eq = 2*v2 - m.ic2eq

		low := v2
		band := v1
		high := x - k*v1 - v2
		switch m.mode {
		case svfLow:
			out[i] = float32(low)
		case svfBand:
			out[i] = float32(band)
		default:
			out[i] = float32(high)
		}
	}
}

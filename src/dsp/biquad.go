package dsp

import "math"

// biquad is an RBJ-cookbook low-pass. Unlike the SVF family it takes cutoff
// and Q as scalars (first sample of each block) and only recomputes its
// coefficients when they change.
type biquad struct {
	sampleRate float32
	cutoff     float32
	q          float32
	a          [3]float64 // feedforward
	b          [2]float64 // feedback
	past       [2]float64
	primed     bool
}

func newBiquad(sampleRate float32) *biquad {
	return &biquad{sampleRate: sampleRate}
}

func (m *biquad) Process(inputs []*Block, outputs []*Block) {
	if !validPorts(ModBiquad, inputs, []int{0, 1, 2}, outputs, 1) {
		return
	}
	in, out := inputs[0], outputs[0]
	cutoff := inputs[1][0]
	q := inputs[2][0]
	if !m.primed || cutoff != m.cutoff || q != m.q {
		m.setCoefficients(cutoff, q)
	}
	for i := range out {
		out[i] = float32(m.step(float64(in[i])))
	}
}

// from RBJ's cookbook
func (m *biquad) setCoefficients(cutoff, q float32) {
	m.cutoff = cutoff
	m.q = q
	m.primed = true
	fc := clamp(float64(cutoff)/float64(m.sampleRate), 0, 0.49)
	qq := clamp(float64(q), 0.1, 100)
	w0 := 2 * math.Pi * fc
	alpha := math.Sin(w0) / (2 * qq)
	b0 := (1 - math.Cos(w0)) / 2
	b1 := 1 - math.Cos(w0)
	b2 := (1 - math.Cos(w0)) / 2
	a0 := 1 + alpha
	a1 := -2 * math.Cos(w0)
	a2 := 1 - alpha
	m.a = [3]float64{b0 / a0, b1 / a0, b2 / a0}
	m.b = [2]float64{a1 / a0, a2 / a0}
}

func (m *biquad) step(in float64) float64 {
	// direct form II: apply feedback, then feedforward, then shift state
	in -= m.past[0]*m.b[0] + m.past[1]*m.b[1]
	o := in*m.a[0] + m.past[0]*m.a[1] + m.past[1]*m.a[2]
	m.past[1] = m.past[0]
	m.past[0] = in
	return o
}

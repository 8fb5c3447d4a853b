package dsp

import "math"

// maxEchoSeconds bounds the delay line so the buffer can be allocated once
// at construction and never grown on the audio thread.
const maxEchoSeconds = 2

// echo is a feedback delay. The delay time is a scalar (first sample of the
// block); feedback and mix default to 0 and 0.5 when unconnected.
type echo struct {
	sampleRate float32
	cursor     int
	length     int
	past       []float32
}

func newEcho(sampleRate float32) *echo {
	return &echo{
		sampleRate: sampleRate,
		length:     1,
		past:       make([]float32, int(sampleRate)*maxEchoSeconds),
	}
}

func (m *echo) Process(inputs []*Block, outputs []*Block) {
	if !validPorts(ModEcho, inputs, []int{0, 1}, outputs, 1) {
		return
	}
	in, out := inputs[0], outputs[0]
	length := int(math.Round(float64(inputs[1][0]) * float64(m.sampleRate)))
	if length < 1 {
		length = 1
	}
	if length > len(m.past) {
		length = len(m.past)
	}
	if length != m.length {
		m.length = length
		if m.cursor >= length {
			m.cursor = 0
		}
	}
	feedback := float32(0)
	if len(inputs) > 2 && inputs[2] != nil {
		feedback = clampf32(inputs[2][0], 0, 0.99)
	}
	mix := float32(0.5)
	if len(inputs) > 3 && inputs[3] != nil {
		mix = clampf32(inputs[3][0], 0, 1)
	}
	for i := range out {
		delayed := m.past[m.cursor]
		m.past[m.cursor] = in[i] + delayed*feedback
		m.cursor++
		if m.cursor >= m.length {
			m.cursor = 0
		}
		out[i] = in[i] + delayed*mix
	}
}

func clampf32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

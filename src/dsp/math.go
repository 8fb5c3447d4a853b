package dsp

// add sums two signals element-wise.
type add struct{}

func (add) Process(inputs []*Block, outputs []*Block) {
	if !validPorts(ModAdd, inputs, []int{0, 1}, outputs, 1) {
		return
	}
	in1, in2, out := inputs[0], inputs[1], outputs[0]
	for i := range out {
		out[i] = in1[i] + in2[i]
	}
}

// mul multiplies two signals element-wise.
type mul struct{}

func (mul) Process(inputs []*Block, outputs []*Block) {
	if !validPorts(ModMul, inputs, []int{0, 1}, outputs, 1) {
		return
	}
	in1, in2, out := inputs[0], inputs[1], outputs[0]
	for i := range out {
		out[i] = in1[i] * in2[i]
	}
}

// gain scales a signal by an audio-rate gain input. Same arithmetic as mul;
// the separate name keeps patches readable.
type gain struct{}

func (gain) Process(inputs []*Block, outputs []*Block) {
	if !validPorts(ModGain, inputs, []int{0, 1}, outputs, 1) {
		return
	}
	in, g, out := inputs[0], inputs[1], outputs[0]
	for i := range out {
		out[i] = in[i] * g[i]
	}
}

// threshold emits 1.0 where the signal exceeds the threshold, 0.0 elsewhere.
type threshold struct{}

func (threshold) Process(inputs []*Block, outputs []*Block) {
	if !validPorts(ModThreshold, inputs, []int{0, 1}, outputs, 1) {
		return
	}
	signal, thresh, out := inputs[0], inputs[1], outputs[0]
	for i := range out {
		if signal[i] > thresh[i] {
			out[i] = 1
		} else {
			out[i] = 0
		}
	}
}

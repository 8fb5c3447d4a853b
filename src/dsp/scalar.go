package dsp

// floatHold latches a scalar from its optional input and emits it as a
// constant block. The latched value survives across blocks, so a patch can
// wiggle the input for one block and keep the value afterwards.
type floatHold struct {
	value float32
}

func newFloatHold() *floatHold { return &floatHold{} }

func (m *floatHold) Process(inputs []*Block, outputs []*Block) {
	if !validPorts(ModFloat, inputs, nil, outputs, 1) {
		return
	}
	if len(inputs) > 0 && inputs[0] != nil {
		m.value = inputs[0][0]
	}
	out := outputs[0]
	for i := range out {
		out[i] = m.value
	}
}

// intHold is floatHold with truncation to integer on latch.
type intHold struct {
	value int32
}

func newIntHold() *intHold { return &intHold{} }

func (m *intHold) Process(inputs []*Block, outputs []*Block) {
	if !validPorts(ModInt, inputs, nil, outputs, 1) {
		return
	}
	if len(inputs) > 0 && inputs[0] != nil {
		m.value = int32(inputs[0][0])
	}
	out := outputs[0]
	v := float32(m.value)
	for i := range out {
		out[i] = v
	}
}

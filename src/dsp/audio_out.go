package dsp

// AudioOut is the stereo sink. The instance the VM creates is always
// silent: the final mix leaves the program through the AUDIO_OUT opcode,
// which copies registers straight into the host driver's buffers. A silent
// instance still exists so a patch that names audio_out has a module behind
// it, and so tests can route blocks through the module contract.
type AudioOut struct {
	silent bool
}

// NewAudioOut returns a sink. silent is true for instances living inside
// the VM; the host driver owns the one real sink per process.
func NewAudioOut(silent bool) *AudioOut {
	return &AudioOut{silent: silent}
}

func (m *AudioOut) Process(inputs []*Block, outputs []*Block) {
	if m.silent {
		return
	}
	for ch := 0; ch < 2 && ch < len(inputs) && ch < len(outputs); ch++ {
		if inputs[ch] == nil || outputs[ch] == nil {
			continue
		}
		*outputs[ch] = *inputs[ch]
	}
}

package dsp

// New builds a module instance for a stable module ID. This switch is the
// only place type identity is resolved from an ID; the compiler and
// data/modules.json must stay in agreement with it. events is the side
// channel consumed by voice_controller instances; other modules ignore it.
// Returns nil for unknown IDs.
func New(moduleID uint32, sampleRate float32, events *VoiceEvents) Module {
	switch moduleID {
	case ModAudioOut:
		// always silent inside the VM; the real sink is the host driver
		return NewAudioOut(true)
	case ModSineGen:
		return newSineGen(sampleRate)
	case ModPhasorGen:
		return newPhasorGen(sampleRate)
	case ModSawGen:
		return newSawGen(sampleRate)
	case ModPulseGen:
		return newPulseGen(sampleRate)
	case ModAdd:
		return add{}
	case ModMul:
		return mul{}
	case ModGain:
		return gain{}
	case ModFloat:
		return newFloatHold()
	case ModInt:
		return newIntHold()
	case ModThreshold:
		return threshold{}
	case ModADSR:
		return newADSR(sampleRate)
	case ModLopass:
		return newSVF(ModLopass, svfLow, sampleRate)
	case ModHipass:
		return newSVF(ModHipass, svfHigh, sampleRate)
	case ModBandpass:
		return newSVF(ModBandpass, svfBand, sampleRate)
	case ModBiquad:
		return newBiquad(sampleRate)
	case ModEcho:
		return newEcho(sampleRate)
	case ModVoiceController:
		return newVoiceController(events)
	default:
		return nil
	}
}

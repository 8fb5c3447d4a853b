package dsp

// Stable module IDs. These are the link between the compiler's output and
// the VM's factory: both sides must agree, and data/modules.json must list
// the same values.
const (
	ModAudioOut        uint32 = 1
	ModSineGen         uint32 = 256
	ModPhasorGen       uint32 = 257
	ModSawGen          uint32 = 258
	ModPulseGen        uint32 = 259
	ModAdd             uint32 = 1024
	ModMul             uint32 = 1025
	ModGain            uint32 = 1027
	ModFloat           uint32 = 1028
	ModInt             uint32 = 1029
	ModThreshold       uint32 = 1280
	ModADSR            uint32 = 1536
	ModLopass          uint32 = 1792
	ModHipass          uint32 = 1793
	ModBandpass        uint32 = 1794
	ModBiquad          uint32 = 1795
	ModEcho            uint32 = 1796
	ModVoiceController uint32 = 2048
)

// RequiredInputs lists the input port indices that must be connected (or
// constant-bound) for the module to produce sound. The compiler rejects a
// patch that leaves one of these dangling; everything else may stay
// unconnected and arrives as a nil block.
func RequiredInputs(moduleID uint32) []int {
	switch moduleID {
	case ModSineGen, ModPhasorGen, ModSawGen:
		return []int{0}
	case ModPulseGen:
		return []int{0, 1}
	case ModAdd, ModMul, ModGain, ModThreshold:
		return []int{0, 1}
	case ModLopass, ModHipass, ModBandpass, ModBiquad:
		return []int{0, 1, 2}
	case ModEcho:
		return []int{0, 1}
	case ModADSR:
		return []int{0, 1, 2, 3, 4}
	default:
		// float, int, audio_out, voice_controller: all inputs optional.
		return nil
	}
}

// Known reports whether the module ID maps to an implementation.
func Known(moduleID uint32) bool {
	switch moduleID {
	case ModAudioOut, ModSineGen, ModPhasorGen, ModSawGen, ModPulseGen,
		ModAdd, ModMul, ModGain, ModFloat, ModInt, ModThreshold,
		ModADSR, ModLopass, ModHipass, ModBandpass, ModBiquad,
		ModEcho, ModVoiceController:
		return true
	}
	return false
}

// Package dsp holds the block-processing modules the virtual machine drives.
// A module consumes and produces fixed-size blocks of audio-rate samples and
// keeps whatever state it needs (phase, filter memory, envelope stage)
// between blocks. Process is called from the audio thread: it must not
// allocate, lock, block, or log above warning.
package dsp

import (
	"patchvm/src/rtlog"
)

// BlockSize is the number of samples processed per call. Registers, module
// buffers, and the audio driver all work in units of one block.
const BlockSize = 64

// Block is one block of audio-rate samples.
type Block [BlockSize]float32

// Module is the contract every DSP processor implements. A nil entry in
// inputs means the port is unconnected; every output block must be fully
// written. The number and order of ports match the registry entry for the
// module's type.
type Module interface {
	Process(inputs []*Block, outputs []*Block)
}

// Zero fills a block with silence.
func Zero(b *Block) {
	for i := range b {
		b[i] = 0
	}
}

// silenceOutputs is the failure path shared by all modules: leave nothing
// stale in the output registers.
func silenceOutputs(outputs []*Block) {
	for _, out := range outputs {
		if out != nil {
			Zero(out)
		}
	}
}

// validPorts checks that all required inputs are connected and that the
// expected number of outputs was wired up. On failure it logs one record
// and the caller returns early with silent outputs.
func validPorts(moduleID uint32, inputs []*Block, required []int, outputs []*Block, wantOutputs int) bool {
	if len(outputs) < wantOutputs {
		rtlog.Errorf(rtlog.ComponentDSP, "module %d: output port mismatch, got %d", int64(moduleID), int64(len(outputs)))
		silenceOutputs(outputs)
		return false
	}
	for _, idx := range required {
		if idx >= len(inputs) || inputs[idx] == nil {
			rtlog.Errorf(rtlog.ComponentDSP, "module %d: missing input connection %d", int64(moduleID), int64(idx))
			silenceOutputs(outputs)
			return false
		}
	}
	return true
}

// Package bytecode defines the binary program format shared by the compiler
// and the virtual machine: a four-word header followed by a flat stream of
// 32-bit instruction words.
package bytecode

import (
	"fmt"
	"math"
)

// Version is the current bytecode format version. Increment when making
// incompatible changes to the format.
const Version uint32 = 1

// Magic identifies a patchvm bytecode buffer: "PVM1" in ASCII.
const Magic uint32 = 0x50564D31

// HeaderWords is the size of the header in 32-bit words.
const HeaderWords = 4

// NullReg marks an unconnected input port in a PROC instruction. The
// register allocator never hands out this index.
const NullReg uint32 = 0xFFFFFFFF

// Opcode is a single VM instruction tag. The underlying representation is a
// full 32-bit word, like every other element of the instruction stream.
type Opcode uint32

const (
	OpNoOp     Opcode = 0x00 // no operation
	OpLoadK    Opcode = 0x01 // dest_reg, raw f32 bits (broadcast to the register)
	OpProc     Opcode = 0x02 // node_id, module_id, n_in, n_out, in_regs..., out_regs...
	OpAudioOut Opcode = 0x03 // n_in, in_regs...
	OpEnd      Opcode = 0xFF // end of program
)

// String returns a human-readable mnemonic for the opcode.
func (op Opcode) String() string {
	switch op {
	case OpNoOp:
		return "NO_OP"
	case OpLoadK:
		return "LOAD_K"
	case OpProc:
		return "PROC"
	case OpAudioOut:
		return "AUDIO_OUT"
	case OpEnd:
		return "END"
	default:
		return fmt.Sprintf("Opcode(0x%02X)", uint32(op))
	}
}

// Header is the fixed prefix of every program.
type Header struct {
	Magic        uint32
	Version      uint32
	ProgramWords uint32 // total size including the header
	NumRegisters uint32
}

// ParseHeader reads the header from the start of a program buffer.
func ParseHeader(words []uint32) (Header, error) {
	if len(words) < HeaderWords {
		return Header{}, fmt.Errorf("bytecode too small for header: %d words", len(words))
	}
	h := Header{
		Magic:        words[0],
		Version:      words[1],
		ProgramWords: words[2],
		NumRegisters: words[3],
	}
	if h.Magic != Magic {
		return Header{}, fmt.Errorf("bad magic number 0x%08X", h.Magic)
	}
	if h.Version != Version {
		return Header{}, fmt.Errorf("bytecode version mismatch: got %d, want %d", h.Version, Version)
	}
	return h, nil
}

// Words returns the header in instruction-stream order.
func (h Header) Words() [HeaderWords]uint32 {
	return [HeaderWords]uint32{h.Magic, h.Version, h.ProgramWords, h.NumRegisters}
}

// FloatBits converts a constant value to its instruction-word encoding.
func FloatBits(v float32) uint32 {
	return math.Float32bits(v)
}

// FloatFromBits decodes a LOAD_K operand back into its constant value.
func FloatFromBits(bits uint32) float32 {
	return math.Float32frombits(bits)
}

package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders a full program as one instruction per line. It is used
// by tests and debugging tools; malformed programs stop disassembly with a
// trailing error line rather than panicking.
func Disassemble(words []uint32) string {
	var b strings.Builder
	h, err := ParseHeader(words)
	if err != nil {
		fmt.Fprintf(&b, "; invalid header: %v\n", err)
		return b.String()
	}
	fmt.Fprintf(&b, "; magic=0x%08X version=%d words=%d registers=%d\n",
		h.Magic, h.Version, h.ProgramWords, h.NumRegisters)

	pc := uint32(HeaderWords)
	for pc < uint32(len(words)) {
		next, line := disasmOne(words, pc)
		fmt.Fprintf(&b, "%04d  %s\n", pc, line)
		if next <= pc {
			break
		}
		pc = next
	}
	return b.String()
}

func disasmOne(words []uint32, pc uint32) (uint32, string) {
	op := Opcode(words[pc])
	switch op {
	case OpNoOp:
		return pc + 1, op.String()
	case OpLoadK:
		if pc+3 > uint32(len(words)) {
			return pc, "LOAD_K <truncated>"
		}
		return pc + 3, fmt.Sprintf("LOAD_K    r%d  %g", words[pc+1], FloatFromBits(words[pc+2]))
	case OpProc:
		if pc+5 > uint32(len(words)) {
			return pc, "PROC <truncated>"
		}
		nodeID, moduleID := words[pc+1], words[pc+2]
		nIn, nOut := words[pc+3], words[pc+4]
		end := pc + 5 + nIn + nOut
		if end > uint32(len(words)) {
			return pc, "PROC <truncated operands>"
		}
		return end, fmt.Sprintf("PROC      node=%d module=%d in=%s out=%s",
			nodeID, moduleID, regList(words[pc+5:pc+5+nIn]), regList(words[pc+5+nIn:end]))
	case OpAudioOut:
		if pc+2 > uint32(len(words)) {
			return pc, "AUDIO_OUT <truncated>"
		}
		nIn := words[pc+1]
		end := pc + 2 + nIn
		if end > uint32(len(words)) {
			return pc, "AUDIO_OUT <truncated operands>"
		}
		return end, fmt.Sprintf("AUDIO_OUT %s", regList(words[pc+2:end]))
	case OpEnd:
		return pc + 1, op.String()
	default:
		return pc, op.String()
	}
}

func regList(regs []uint32) string {
	parts := make([]string, len(regs))
	for i, r := range regs {
		if r == NullReg {
			parts[i] = "null"
		} else {
			parts[i] = fmt.Sprintf("r%d", r)
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Package vm executes compiled patch programs one audio block at a time.
// The control thread loads programs; the audio thread calls Process. The
// two never share mutable state directly: a loaded program (bytecode,
// registers, module instances) sits behind an atomic pointer and is
// replaced wholesale, with the old program retired on the control thread.
package vm

import (
	"sync/atomic"

	"github.com/rs/zerolog"

	"patchvm/src/bytecode"
	"patchvm/src/dsp"
	"patchvm/src/rtlog"
)

// program bundles everything owned by one loaded patch. Registers and
// instances are touched only by the audio thread once the program is live.
type program struct {
	code      []uint32
	registers []dsp.Block
	instances map[uint32]dsp.Module // node ID -> live module

	// scratch pointer lists sized for the widest instruction, so Process
	// never allocates for them
	inPtrs  []*dsp.Block
	outPtrs []*dsp.Block
}

// VM is the register-based DSP virtual machine.
type VM struct {
	sampleRate float32
	testMode   bool
	logger     zerolog.Logger

	prog   atomic.Pointer[program]
	events dsp.VoiceEvents
	sink   atomic.Pointer[dsp.AudioOut] // external, non-owning
}

// New creates a VM with no program loaded. testMode enables the register
// snapshot accessor used by tests.
func New(sampleRate float32, testMode bool, logger zerolog.Logger) *VM {
	return &VM{sampleRate: sampleRate, testMode: testMode, logger: logger}
}

// LoadProgram validates and installs a new program, replacing registers and
// module instances. Control thread only. A bad header is logged and leaves
// the VM in the no-program state, emitting silence.
func (v *VM) LoadProgram(words []uint32) {
	header, err := bytecode.ParseHeader(words)
	if err != nil {
		v.logger.Error().Err(err).Msg("rejecting bytecode")
		v.prog.Store(nil)
		return
	}
	p := &program{
		code:      words,
		registers: make([]dsp.Block, header.NumRegisters),
		instances: make(map[uint32]dsp.Module),
	}
	maxIn, maxOut := scanPortWidths(words)
	p.inPtrs = make([]*dsp.Block, maxIn)
	p.outPtrs = make([]*dsp.Block, maxOut)
	v.prog.Store(p)
	v.logger.Info().
		Uint32("words", header.ProgramWords).
		Uint32("registers", header.NumRegisters).
		Msg("program loaded")
}

// ClearProgram drops the current program; the VM emits silence afterwards.
func (v *VM) ClearProgram() {
	v.prog.Store(nil)
}

// SetAudioSink records the externally owned sink. The VM never drives it;
// samples reach the host through the AUDIO_OUT opcode.
func (v *VM) SetAudioSink(sink *dsp.AudioOut) {
	v.sink.Store(sink)
}

// AudioSink returns the externally owned sink, or nil.
func (v *VM) AudioSink() *dsp.AudioOut {
	return v.sink.Load()
}

// NoteOn pushes a note-on into the voice controller side channel.
func (v *VM) NoteOn(pitch, velocity uint8) {
	v.events.Push(dsp.VoiceEvent{On: true, Pitch: pitch, Velocity: velocity})
}

// NoteOff pushes a note-off into the voice controller side channel.
func (v *VM) NoteOff(pitch uint8) {
	v.events.Push(dsp.VoiceEvent{On: false, Pitch: pitch})
}

// Process runs one block of the loaded program. Audio thread only; nFrames
// must equal dsp.BlockSize. outputs may be nil (headless), and individual
// channels may be nil.
func (v *VM) Process(inputs [][]float32, outputs [][]float32, nFrames int) {
	p := v.prog.Load()
	if p == nil {
		fillSilence(outputs)
		return
	}
	if nFrames != dsp.BlockSize {
		rtlog.Errorf(rtlog.ComponentVM, "unsupported block size %d, want %d", int64(nFrames), dsp.BlockSize)
		fillSilence(outputs)
		return
	}

	code := p.code
	pc := uint32(bytecode.HeaderWords)
	for pc < uint32(len(code)) {
		switch bytecode.Opcode(code[pc]) {
		case bytecode.OpNoOp:
			pc++

		case bytecode.OpLoadK:
			if pc+3 > uint32(len(code)) {
				rtlog.Errorf(rtlog.ComponentVM, "truncated LOAD_K at pc=%d", int64(pc), 0)
				return
			}
			dest := code[pc+1]
			if dest >= uint32(len(p.registers)) {
				rtlog.Errorf(rtlog.ComponentVM, "LOAD_K register %d out of range at pc=%d", int64(dest), int64(pc))
				return
			}
			value := bytecode.FloatFromBits(code[pc+2])
			reg := &p.registers[dest]
			for i := range reg {
				reg[i] = value
			}
			pc += 3

		case bytecode.OpProc:
			next, ok := v.execProc(p, pc)
			if !ok {
				return
			}
			pc = next

		case bytecode.OpAudioOut:
			if pc+2 > uint32(len(code)) {
				rtlog.Errorf(rtlog.ComponentVM, "truncated AUDIO_OUT at pc=%d", int64(pc), 0)
				return
			}
			nIn := code[pc+1]
			if pc+2+nIn > uint32(len(code)) {
				rtlog.Errorf(rtlog.ComponentVM, "truncated AUDIO_OUT operands at pc=%d", int64(pc), 0)
				return
			}
			for i := uint32(0); i < nIn; i++ {
				regIdx := code[pc+2+i]
				if regIdx == bytecode.NullReg || regIdx >= uint32(len(p.registers)) {
					continue
				}
				if outputs == nil || i >= uint32(len(outputs)) || outputs[i] == nil {
					continue
				}
				src := &p.registers[regIdx]
				copy(outputs[i][:dsp.BlockSize], src[:])
			}
			pc += 2 + nIn

		case bytecode.OpEnd:
			return

		default:
			rtlog.Errorf(rtlog.ComponentVM, "unknown opcode %d at pc=%d", int64(code[pc]), int64(pc))
			return
		}
	}
}

// execProc decodes and runs one PROC instruction. Returns the next pc, or
// ok=false to end the block.
func (v *VM) execProc(p *program, pc uint32) (uint32, bool) {
	code := p.code
	if pc+5 > uint32(len(code)) {
		rtlog.Errorf(rtlog.ComponentVM, "truncated PROC at pc=%d", int64(pc), 0)
		return 0, false
	}
	nodeID := code[pc+1]
	moduleID := code[pc+2]
	nIn := code[pc+3]
	nOut := code[pc+4]
	end := pc + 5 + nIn + nOut
	if end > uint32(len(code)) || nIn > uint32(len(p.inPtrs)) || nOut > uint32(len(p.outPtrs)) {
		rtlog.Errorf(rtlog.ComponentVM, "malformed PROC operands at pc=%d", int64(pc), 0)
		return 0, false
	}

	instance, ok := p.instances[nodeID]
	if !ok {
		instance = dsp.New(moduleID, v.sampleRate, &v.events)
		if instance == nil {
			rtlog.Errorf(rtlog.ComponentVM, "unknown module id %d at pc=%d", int64(moduleID), int64(pc))
			return 0, false
		}
		p.instances[nodeID] = instance
	}

	ins := p.inPtrs[:nIn]
	for i := uint32(0); i < nIn; i++ {
		regIdx := code[pc+5+i]
		if regIdx == bytecode.NullReg {
			ins[i] = nil
			continue
		}
		if regIdx >= uint32(len(p.registers)) {
			rtlog.Errorf(rtlog.ComponentVM, "input register %d out of range at pc=%d", int64(regIdx), int64(pc))
			return 0, false
		}
		ins[i] = &p.registers[regIdx]
	}
	outs := p.outPtrs[:nOut]
	for i := uint32(0); i < nOut; i++ {
		regIdx := code[pc+5+nIn+i]
		if regIdx == bytecode.NullReg || regIdx >= uint32(len(p.registers)) {
			rtlog.Errorf(rtlog.ComponentVM, "output register %d out of range at pc=%d", int64(regIdx), int64(pc))
			return 0, false
		}
		outs[i] = &p.registers[regIdx]
	}

	instance.Process(ins, outs)
	return end, true
}

// RegisterSnapshot exposes one register for inspection. Test mode only;
// returns nil otherwise. The pointer is valid until the next LoadProgram.
func (v *VM) RegisterSnapshot(index int) *dsp.Block {
	if !v.testMode {
		return nil
	}
	p := v.prog.Load()
	if p == nil || index < 0 || index >= len(p.registers) {
		return nil
	}
	return &p.registers[index]
}

// NumInstances reports how many module instances the current program has
// created so far.
func (v *VM) NumInstances() int {
	p := v.prog.Load()
	if p == nil {
		return 0
	}
	return len(p.instances)
}

func fillSilence(outputs [][]float32) {
	for _, ch := range outputs {
		for i := range ch {
			ch[i] = 0
		}
	}
}

// scanPortWidths finds the widest PROC input and output lists so the
// pointer scratch can be sized once at load time.
func scanPortWidths(code []uint32) (maxIn, maxOut uint32) {
	pc := uint32(bytecode.HeaderWords)
	for pc < uint32(len(code)) {
		switch bytecode.Opcode(code[pc]) {
		case bytecode.OpNoOp:
			pc++
		case bytecode.OpLoadK:
			pc += 3
		case bytecode.OpProc:
			if pc+5 > uint32(len(code)) {
				return
			}
			nIn, nOut := code[pc+3], code[pc+4]
			if nIn > maxIn {
				maxIn = nIn
			}
			if nOut > maxOut {
				maxOut = nOut
			}
			pc += 5 + nIn + nOut
		case bytecode.OpAudioOut:
			if pc+2 > uint32(len(code)) {
				return
			}
			pc += 2 + code[pc+1]
		default:
			return
		}
	}
	return
}

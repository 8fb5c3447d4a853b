package dsp

import (
	"math"
	"sync"
	"sync/atomic"
)

// NumVoices is the fixed polyphony of the voice controller.
const NumVoices = 8

// VoiceOutputs is the number of control outputs emitted per voice, in
// declaration order: pitch (Hz), gate, velocity.
const VoiceOutputs = 3

// VoiceEvent is one note on/off pushed from outside the audio thread.
type VoiceEvent struct {
	On       bool
	Pitch    uint8 // MIDI note number
	Velocity uint8 // 0-127
}

const voiceRingSize = 256 // power of two

// VoiceEvents is the side channel between event sources (MIDI listener,
// command socket) and the voice controller on the audio thread. Producers
// serialize on a mutex; they all live on the control side. The audio-thread
// consumer is lock-free.
type VoiceEvents struct {
	slots    [voiceRingSize]VoiceEvent
	writeIdx atomic.Uint32
	readIdx  atomic.Uint32
	pushMu   sync.Mutex
}

// Push enqueues one event. When the ring is full the event is dropped.
// Never call this from the audio thread.
func (q *VoiceEvents) Push(ev VoiceEvent) bool {
	q.pushMu.Lock()
	defer q.pushMu.Unlock()
	w := q.writeIdx.Load()
	next := (w + 1) & (voiceRingSize - 1)
	if next == q.readIdx.Load() {
		return false
	}
	q.slots[w&(voiceRingSize-1)] = ev
	q.writeIdx.Store(next)
	return true
}

func (q *VoiceEvents) pop() (VoiceEvent, bool) {
	rd := q.readIdx.Load()
	if rd == q.writeIdx.Load() {
		return VoiceEvent{}, false
	}
	ev := q.slots[rd&(voiceRingSize-1)]
	q.readIdx.Store((rd + 1) & (voiceRingSize - 1))
	return ev, true
}

type voice struct {
	note     uint8
	freq     float32
	velocity float32
	gate     bool
	serial   uint64 // for oldest-voice stealing
}

// voiceController drains the event ring at the top of each block and holds
// per-voice pitch/gate/velocity for the rest of it. Events are quantized to
// block boundaries.
type voiceController struct {
	events *VoiceEvents
	voices [NumVoices]voice
	serial uint64
}

func newVoiceController(events *VoiceEvents) *voiceController {
	return &voiceController{events: events}
}

func (m *voiceController) Process(inputs []*Block, outputs []*Block) {
	if !validPorts(ModVoiceController, inputs, nil, outputs, NumVoices*VoiceOutputs) {
		return
	}
	if m.events != nil {
		for {
			ev, ok := m.events.pop()
			if !ok {
				break
			}
			if ev.On && ev.Velocity > 0 {
				m.noteOn(ev.Pitch, ev.Velocity)
			} else {
				m.noteOff(ev.Pitch)
			}
		}
	}
	for v := 0; v < NumVoices; v++ {
		vc := &m.voices[v]
		gate := float32(0)
		if vc.gate {
			gate = 1
		}
		fillBlock(outputs[v*VoiceOutputs+0], vc.freq)
		fillBlock(outputs[v*VoiceOutputs+1], gate)
		fillBlock(outputs[v*VoiceOutputs+2], vc.velocity)
	}
}

func (m *voiceController) noteOn(note, velocity uint8) {
	m.serial++
	// reuse the voice already holding this note, then a free voice, then
	// steal the oldest
	target := -1
	for i := range m.voices {
		if m.voices[i].gate && m.voices[i].note == note {
			target = i
			break
		}
	}
	if target < 0 {
		for i := range m.voices {
			if !m.voices[i].gate {
				target = i
				break
			}
		}
	}
	if target < 0 {
		oldest := uint64(math.MaxUint64)
		for i := range m.voices {
			if m.voices[i].serial < oldest {
				oldest = m.voices[i].serial
				target = i
			}
		}
	}
	m.voices[target] = voice{
		note:     note,
		freq:     noteToFreq(note),
		velocity: float32(velocity) / 127,
		gate:     true,
		serial:   m.serial,
	}
}

func (m *voiceController) noteOff(note uint8) {
	for i := range m.voices {
		if m.voices[i].gate && m.voices[i].note == note {
			m.voices[i].gate = false
		}
	}
}

func fillBlock(b *Block, v float32) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = v
	}
}

func noteToFreq(note uint8) float32 {
	return float32(440 * math.Pow(2, float64(int(note)-69)/12))
}

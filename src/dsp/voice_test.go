package dsp

import "testing"

func voiceOutputs() []*Block {
	outs := make([]*Block, NumVoices*VoiceOutputs)
	for i := range outs {
		outs[i] = &Block{}
	}
	return outs
}

func TestVoiceEventsRing(t *testing.T) {
	var q VoiceEvents
	if !q.Push(VoiceEvent{On: true, Pitch: 60, Velocity: 100}) {
		t.Fatal("push into empty ring failed")
	}
	ev, ok := q.pop()
	if !ok || ev.Pitch != 60 || !ev.On {
		t.Fatalf("pop returned %v %v", ev, ok)
	}
	if _, ok := q.pop(); ok {
		t.Fatal("pop from drained ring should fail")
	}
}

func TestVoiceEventsRingDropsOnOverflow(t *testing.T) {
	var q VoiceEvents
	for i := 0; i < voiceRingSize-1; i++ {
		if !q.Push(VoiceEvent{Pitch: uint8(i)}) {
			t.Fatalf("push %d failed before the ring was full", i)
		}
	}
	if q.Push(VoiceEvent{Pitch: 1}) {
		t.Fatal("push into a full ring should report a drop")
	}
}

func TestVoiceControllerNoteLifecycle(t *testing.T) {
	var q VoiceEvents
	m := newVoiceController(&q)
	outs := voiceOutputs()

	q.Push(VoiceEvent{On: true, Pitch: 69, Velocity: 127})
	m.Process(nil, outs)

	if pitch := outs[0][0]; pitch < 439 || pitch > 441 {
		t.Errorf("voice 0 pitch: got %v, want ~440Hz", pitch)
	}
	if outs[1][0] != 1 {
		t.Errorf("voice 0 gate should be high, got %v", outs[1][0])
	}
	if outs[2][0] != 1 {
		t.Errorf("voice 0 velocity should be 1, got %v", outs[2][0])
	}

	q.Push(VoiceEvent{On: false, Pitch: 69})
	m.Process(nil, outs)
	if outs[1][0] != 0 {
		t.Errorf("voice 0 gate should be low after note off, got %v", outs[1][0])
	}
}

func TestVoiceControllerPolyphony(t *testing.T) {
	var q VoiceEvents
	m := newVoiceController(&q)
	outs := voiceOutputs()

	for n := 0; n < NumVoices; n++ {
		q.Push(VoiceEvent{On: true, Pitch: uint8(60 + n), Velocity: 100})
	}
	m.Process(nil, outs)

	for v := 0; v < NumVoices; v++ {
		if outs[v*VoiceOutputs+1][0] != 1 {
			t.Errorf("voice %d gate should be high", v)
		}
	}
}

func TestVoiceControllerStealsOldestVoice(t *testing.T) {
	var q VoiceEvents
	m := newVoiceController(&q)
	outs := voiceOutputs()

	for n := 0; n < NumVoices+1; n++ {
		q.Push(VoiceEvent{On: true, Pitch: uint8(60 + n), Velocity: 100})
	}
	m.Process(nil, outs)

	// the first note (pitch 60) was stolen for the ninth
	want := noteToFreq(60 + NumVoices)
	got := outs[0][0]
	if got < want-1 || got > want+1 {
		t.Errorf("voice 0 should have been stolen: got %vHz, want %vHz", got, want)
	}
}

package dsp

import "testing"

func TestEchoRepeatsImpulse(t *testing.T) {
	m := newEcho(testSampleRate)
	var impulse Block
	impulse[0] = 1

	// delay of exactly half a block, full mix
	inputs := []*Block{&impulse, constBlock(32.0 / testSampleRate), constBlock(0), constBlock(1)}
	var out Block
	m.Process(inputs, []*Block{&out})

	if out[0] != 1 {
		t.Errorf("dry impulse should pass through, got %v", out[0])
	}
	if out[32] != 1 {
		t.Errorf("expected the echo at sample 32, got %v", out[32])
	}
	if out[1] != 0 || out[33] != 0 {
		t.Errorf("unexpected energy outside the impulse and its echo: %v %v", out[1], out[33])
	}
}

func TestEchoFeedbackDecays(t *testing.T) {
	m := newEcho(testSampleRate)
	var impulse Block
	impulse[0] = 1
	var silence Block

	delay := constBlock(16.0 / testSampleRate)
	var out Block
	m.Process([]*Block{&impulse, delay, constBlock(0.5), constBlock(1)}, []*Block{&out})

	if out[16] != 1 {
		t.Errorf("first repeat should be full scale, got %v", out[16])
	}
	if out[32] != 0.5 {
		t.Errorf("second repeat should be halved by feedback, got %v", out[32])
	}
	if out[48] != 0.25 {
		t.Errorf("third repeat should keep decaying, got %v", out[48])
	}
	m.Process([]*Block{&silence, delay, constBlock(0.5), constBlock(1)}, []*Block{&out})
	if out[0] != 0.125 {
		t.Errorf("feedback tail should continue into the next block, got %v", out[0])
	}
}

func TestEchoProcessDoesNotGrowBuffer(t *testing.T) {
	m := newEcho(testSampleRate)
	var in Block
	inputs := []*Block{&in, constBlock(10), constBlock(0.5), constBlock(0.5)} // far beyond the cap
	var out Block
	m.Process(inputs, []*Block{&out})
	if m.length > len(m.past) {
		t.Errorf("delay length %d exceeds preallocated buffer %d", m.length, len(m.past))
	}
}

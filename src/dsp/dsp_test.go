package dsp

import "testing"

func TestAdd(t *testing.T) {
	var out Block
	add{}.Process([]*Block{constBlock(10), constBlock(20)}, []*Block{&out})
	for i, v := range out {
		if v != 30 {
			t.Fatalf("lane %d: got %v, want 30", i, v)
		}
	}
}

func TestMulAndGainAgree(t *testing.T) {
	var a, b Block
	inputs := []*Block{constBlock(0.5), constBlock(-2)}
	mul{}.Process(inputs, []*Block{&a})
	gain{}.Process(inputs, []*Block{&b})
	for i := range a {
		if a[i] != -1 || b[i] != -1 {
			t.Fatalf("lane %d: mul=%v gain=%v, want -1", i, a[i], b[i])
		}
	}
}

func TestThreshold(t *testing.T) {
	signal := &Block{}
	for i := range signal {
		signal[i] = float32(i) // ramp crossing the threshold mid-block
	}
	var out Block
	threshold{}.Process([]*Block{signal, constBlock(31.5)}, []*Block{&out})
	for i, v := range out {
		want := float32(0)
		if float32(i) > 31.5 {
			want = 1
		}
		if v != want {
			t.Fatalf("lane %d: got %v, want %v", i, v, want)
		}
	}
}

func TestFloatLatchesAndHolds(t *testing.T) {
	m := newFloatHold()
	var out Block
	m.Process([]*Block{constBlock(1.5)}, []*Block{&out})
	if out[0] != 1.5 {
		t.Fatalf("got %v, want 1.5", out[0])
	}
	// unconnected input: the latched value must survive
	m.Process([]*Block{nil}, []*Block{&out})
	for i, v := range out {
		if v != 1.5 {
			t.Fatalf("lane %d: got %v, want held 1.5", i, v)
		}
	}
}

func TestIntTruncatesOnLatch(t *testing.T) {
	m := newIntHold()
	var out Block
	m.Process([]*Block{constBlock(99.8)}, []*Block{&out})
	for i, v := range out {
		if v != 99 {
			t.Fatalf("lane %d: got %v, want 99", i, v)
		}
	}
}

func TestMissingRequiredInputFillsSilence(t *testing.T) {
	var out Block
	out[3] = 0.25
	add{}.Process([]*Block{constBlock(1), nil}, []*Block{&out})
	for i, v := range out {
		if v != 0 {
			t.Fatalf("lane %d: got %v, want silence", i, v)
		}
	}
}

func TestFactoryCoversAllKnownIDs(t *testing.T) {
	ids := []uint32{
		ModAudioOut, ModSineGen, ModPhasorGen, ModSawGen, ModPulseGen,
		ModAdd, ModMul, ModGain, ModFloat, ModInt, ModThreshold,
		ModADSR, ModLopass, ModHipass, ModBandpass, ModBiquad,
		ModEcho, ModVoiceController,
	}
	var events VoiceEvents
	for _, id := range ids {
		if !Known(id) {
			t.Errorf("id %d not reported as known", id)
		}
		if New(id, testSampleRate, &events) == nil {
			t.Errorf("factory returned nil for id %d", id)
		}
	}
	if New(0xBEEF, testSampleRate, &events) != nil {
		t.Error("factory should return nil for an unknown id")
	}
}

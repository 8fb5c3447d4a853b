package audio

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"patchvm/src/dsp"
	"patchvm/src/vm"
)

func TestWriteBlockInterleavesChannels(t *testing.T) {
	left := make([]float32, dsp.BlockSize)
	right := make([]float32, dsp.BlockSize)
	left[0] = 0.5
	right[0] = -0.5
	buf := make([]byte, blockBytes)

	writeBlock(buf, left, 0)
	writeBlock(buf, right, 1)

	l := int16(buf[0]) | int16(buf[1])<<8
	r := int16(buf[2]) | int16(buf[3])<<8
	// 0.5*32767 = 16383.5, truncated toward zero by the int16 conversion
	if l != 16383 {
		t.Errorf("left sample = %d, want %d", l, 16383)
	}
	if r != -16383 {
		t.Errorf("right sample = %d, want %d", r, -16383)
	}
}

func TestWriteBlockClips(t *testing.T) {
	samples := make([]float32, dsp.BlockSize)
	samples[0] = 2.0
	samples[1] = -2.0
	buf := make([]byte, blockBytes)
	writeBlock(buf, samples, 0)

	first := int16(buf[0]) | int16(buf[1])<<8
	second := int16(buf[4]) | int16(buf[5])<<8
	if first != 32767 {
		t.Errorf("over-range sample should clip to 32767, got %d", first)
	}
	if second != -32767 {
		t.Errorf("under-range sample should clip to -32767, got %d", second)
	}
}

func TestPumpMidiDecodesNotes(t *testing.T) {
	machine := vm.New(48000, true, zerolog.Nop())
	messages := make(chan []byte, 4)
	messages <- []byte{0x90, 69, 100} // note on
	messages <- []byte{0x90, 70, 0}   // note on with zero velocity = off
	messages <- []byte{0x80, 69, 0}   // note off
	messages <- []byte{0xB0, 1, 2}    // control change, ignored
	close(messages)

	if err := PumpMidi(context.Background(), machine, messages, zerolog.Nop()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPumpMidiStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	machine := vm.New(48000, true, zerolog.Nop())
	if err := PumpMidi(ctx, machine, make(chan []byte), zerolog.Nop()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

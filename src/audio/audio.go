// Package audio owns the host side of the audio boundary: the output device
// and the callback-style loop that pulls blocks out of the VM. The VM never
// talks to hardware; this package calls vm.Process once per block and hands
// the samples to oto.
package audio

import (
	"context"
	"io"

	"github.com/hajimehoshi/oto"
	"github.com/rs/zerolog"

	"patchvm/src/dsp"
	"patchvm/src/vm"
)

const (
	channelNum      = 2
	bitDepthInBytes = 2
)

const bytesPerSample = bitDepthInBytes * channelNum
const blockBytes = dsp.BlockSize * bytesPerSample

// Driver streams the VM's output to the default audio device. It owns the
// one real audio_out sink in the process; the VM only keeps a weak
// reference to it.
type Driver struct {
	otoContext *oto.Context
	vm         *vm.VM
	sink       *dsp.AudioOut
	logger     zerolog.Logger
	bufBytes   int

	// per-block scratch handed to the VM; AUDIO_OUT writes into these
	left  []float32
	right []float32
	outs  [][]float32
}

var _ io.Reader = (*Driver)(nil)

// NewDriver opens the output device. bufferBlocks controls driver latency:
// the oto buffer holds that many VM blocks.
func NewDriver(v *vm.VM, sampleRate int, bufferBlocks int, logger zerolog.Logger) (*Driver, error) {
	if bufferBlocks < 1 {
		bufferBlocks = 1
	}
	otoContext, err := oto.NewContext(sampleRate, channelNum, bitDepthInBytes, blockBytes*bufferBlocks)
	if err != nil {
		return nil, err
	}
	d := &Driver{
		otoContext: otoContext,
		vm:         v,
		sink:       dsp.NewAudioOut(false),
		logger:     logger,
		bufBytes:   blockBytes * bufferBlocks,
		left:       make([]float32, dsp.BlockSize),
		right:      make([]float32, dsp.BlockSize),
	}
	d.outs = [][]float32{d.left, d.right}
	v.SetAudioSink(d.sink)
	return d, nil
}

// Read fills buf with interleaved 16-bit PCM, one VM block at a time. This
// is the audio thread: everything below here must stay allocation-free.
func (d *Driver) Read(buf []byte) (int, error) {
	blocks := len(buf) / blockBytes
	if blocks == 0 {
		return 0, nil
	}
	for b := 0; b < blocks; b++ {
		d.vm.Process(nil, d.outs, dsp.BlockSize)
		writeBlock(buf[b*blockBytes:], d.left, 0)
		writeBlock(buf[b*blockBytes:], d.right, 1)
	}
	return blocks * blockBytes, nil
}

// writeBlock converts one channel of float32 samples to interleaved 16-bit
// little-endian PCM.
func writeBlock(buf []byte, samples []float32, ch int) {
	for i, value := range samples {
		if value > 1 {
			value = 1
		} else if value < -1 {
			value = -1
		}
		const max = 32767
		b := int16(value * max)
		buf[bytesPerSample*i+2*ch] = byte(b)
		buf[bytesPerSample*i+2*ch+1] = byte(b >> 8)
	}
}

// Start streams until the context is cancelled.
func (d *Driver) Start(ctx context.Context) error {
	p := d.otoContext.NewPlayer()
	defer func() {
		if err := p.Close(); err != nil {
			d.logger.Error().Err(err).Msg("failed to close player")
		}
	}()
	buf := make([]byte, d.bufBytes)
	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("audio loop ended")
			return nil
		default:
		}
		n, err := d.Read(buf)
		if err != nil {
			return err
		}
		if _, err := p.Write(buf[:n]); err != nil {
			return err
		}
	}
}

// Close releases the audio device.
func (d *Driver) Close() error {
	return d.otoContext.Close()
}

package audio

import (
	"context"

	"github.com/rs/zerolog"
	"gitlab.com/gomidi/rtmididrv"

	"patchvm/src/vm"
)

// ListenToMidiIn opens the MIDI input selected by portIndex (-1 picks the
// first available) and forwards raw messages on the returned channel until
// the context is cancelled.
func ListenToMidiIn(ctx context.Context, portIndex int, logger zerolog.Logger) <-chan []byte {
	ch := make(chan []byte, 65536)
	go func() {
		drv, err := rtmididrv.New()
		if err != nil {
			logger.Error().Err(err).Msg("failed to initialize MIDI driver")
			return
		}
		defer func() {
			if err := drv.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close MIDI driver")
			}
		}()
		ins, err := drv.Ins()
		if err != nil {
			logger.Error().Err(err).Msg("failed to get MIDI IN")
			return
		}
		if len(ins) == 0 {
			logger.Warn().Msg("MIDI IN not found")
			return
		}
		if portIndex < 0 {
			portIndex = 0
		}
		if portIndex >= len(ins) {
			logger.Error().Int("port", portIndex).Int("available", len(ins)).Msg("no such MIDI IN port")
			return
		}
		in := ins[portIndex]
		if err := in.Open(); err != nil {
			logger.Error().Err(err).Msg("failed to open MIDI IN")
			return
		}
		logger.Info().Str("port", in.String()).Msg("listening to MIDI IN")
		if err := in.SetListener(func(data []byte, deltaMicroseconds int64) {
			ch <- data
		}); err != nil {
			logger.Error().Err(err).Msg("failed to set MIDI listener")
		}
		defer func() {
			if err := in.StopListening(); err != nil {
				logger.Error().Err(err).Msg("failed to stop listening")
			}
			if err := in.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close MIDI IN")
			}
		}()
		defer close(ch)
		<-ctx.Done()
	}()
	return ch
}

// ListMidiIns returns the names of the available MIDI input ports.
func ListMidiIns() ([]string, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, err
	}
	defer drv.Close()
	ins, err := drv.Ins()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	return names, nil
}

// PumpMidi decodes note on/off messages and pushes them into the VM's voice
// event channel. Runs until the context is cancelled or the input closes.
func PumpMidi(ctx context.Context, v *vm.VM, messages <-chan []byte, logger zerolog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("MIDI pump ended")
			return nil
		case data, ok := <-messages:
			if !ok {
				return nil
			}
			if len(data) < 3 {
				continue
			}
			status := data[0] >> 4
			note := data[1] & 0x7F
			velocity := data[2] & 0x7F
			switch {
			case status == 8 || (status == 9 && velocity == 0):
				v.NoteOff(note)
			case status == 9:
				v.NoteOn(note, velocity)
			}
		}
	}
}

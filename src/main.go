package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"patchvm/src/audio"
	"patchvm/src/compiler"
	"patchvm/src/patch"
	"patchvm/src/registry"
	"patchvm/src/rtlog"
	"patchvm/src/vm"
)

type config struct {
	SampleRate   int    `toml:"sample_rate"`
	BufferBlocks int    `toml:"buffer_blocks"`
	LogLevel     string `toml:"log_level"`
	Registry     string `toml:"registry"`
	Socket       string `toml:"socket"`
	MidiPort     int    `toml:"midi_port"`
}

func defaultConfig() config {
	return config{
		SampleRate:   48000,
		BufferBlocks: 16,
		LogLevel:     "info",
		Registry:     "data/modules.json",
		Socket:       "/tmp/patchvm.sock",
		MidiPort:     -1,
	}
}

func main() {
	configPath := flag.String("config", "patchvm.toml", "path to the TOML config file")
	patchPath := flag.String("patch", "", "patch file to compile and load at startup")
	registryPath := flag.String("registry", "", "module registry descriptor (overrides config)")
	listMidi := flag.Bool("list-midi", false, "list MIDI input ports and exit")
	midiPort := flag.Int("midi", -1, "MIDI input port index (overrides config)")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()

	if *listMidi {
		names, err := audio.ListMidiIns()
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to list MIDI inputs")
		}
		for i, name := range names {
			fmt.Printf("%d: %s\n", i, name)
		}
		return
	}

	cfg := defaultConfig()
	if _, err := toml.DecodeFile(*configPath, &cfg); err != nil && !os.IsNotExist(err) {
		logger.Fatal().Err(err).Str("path", *configPath).Msg("failed to read config")
	}
	if *registryPath != "" {
		cfg.Registry = *registryPath
	}
	if *midiPort >= 0 {
		cfg.MidiPort = *midiPort
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	ring := rtlog.NewRing()
	rtlog.Install(ring)

	reg, err := registry.Load(cfg.Registry)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load module registry")
	}

	machine := vm.New(float32(cfg.SampleRate), false, logger.With().Str("component", "vm").Logger())
	if *patchPath != "" {
		if err := loadPatch(machine, reg, *patchPath); err != nil {
			logger.Fatal().Err(err).Str("path", *patchPath).Msg("failed to load patch")
		}
		logger.Info().Str("path", *patchPath).Msg("patch loaded")
	}

	driver, err := audio.NewDriver(machine, cfg.SampleRate, cfg.BufferBlocks, logger.With().Str("component", "audio").Logger())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open audio device")
	}
	defer driver.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signalCh)
	go func() {
		sig := <-signalCh
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return driver.Start(ctx)
	})
	g.Go(func() error {
		midiCh := audio.ListenToMidiIn(ctx, cfg.MidiPort, logger.With().Str("component", "midi").Logger())
		return audio.PumpMidi(ctx, machine, midiCh, logger)
	})
	g.Go(func() error {
		return flushLogs(ctx, ring, logger)
	})
	g.Go(func() error {
		return serveCommands(ctx, cfg.Socket, machine, reg, logger)
	})
	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Fatal().Err(err).Msg("exited with error")
	}
	ring.Flush(logger)
}

func loadPatch(machine *vm.VM, reg *registry.Registry, path string) error {
	text, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	graph, err := patch.Parse(text)
	if err != nil {
		return err
	}
	program, err := compiler.Compile(graph, reg)
	if err != nil {
		return err
	}
	machine.LoadProgram(program)
	return nil
}

// flushLogs drains the audio thread's log ring at a steady rate.
func flushLogs(ctx context.Context, ring *rtlog.Ring, logger zerolog.Logger) error {
	t := time.NewTicker(time.Second / 60)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			ring.Flush(logger)
		}
	}
}

// serveCommands accepts line commands over a unix socket:
//
//	load <patch.json>
//	note_on <note> [velocity]
//	note_off <note>
func serveCommands(ctx context.Context, sockPath string, machine *vm.VM, reg *registry.Registry, logger zerolog.Logger) error {
	os.Remove(sockPath)
	listener, err := new(net.ListenConfig).Listen(ctx, "unix", sockPath)
	if err != nil {
		return err
	}
	defer func() {
		listener.Close()
		os.Remove(sockPath)
	}()
	go func() {
		<-ctx.Done()
		listener.Close()
	}()
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		handleConn(ctx, conn, machine, reg, logger)
	}
}

func handleConn(ctx context.Context, conn net.Conn, machine *vm.VM, reg *registry.Registry, logger zerolog.Logger) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			return
		}
		if err != nil {
			logger.Error().Err(err).Msg("command read failed")
			return
		}
		if err := runCommand(machine, reg, strings.Fields(strings.TrimSpace(line))); err != nil {
			logger.Error().Err(err).Str("command", strings.TrimSpace(line)).Msg("command failed")
			fmt.Fprintf(conn, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(conn, "ok")
	}
}

func runCommand(machine *vm.VM, reg *registry.Registry, command []string) error {
	if len(command) == 0 {
		return nil
	}
	switch command[0] {
	case "load":
		if len(command) != 2 {
			return fmt.Errorf("usage: load <patch.json>")
		}
		return loadPatch(machine, reg, command[1])
	case "note_on":
		if len(command) < 2 {
			return fmt.Errorf("usage: note_on <note> [velocity]")
		}
		note, err := strconv.ParseUint(command[1], 10, 7)
		if err != nil {
			return err
		}
		velocity := uint64(100)
		if len(command) > 2 {
			if velocity, err = strconv.ParseUint(command[2], 10, 7); err != nil {
				return err
			}
		}
		machine.NoteOn(uint8(note), uint8(velocity))
		return nil
	case "note_off":
		if len(command) != 2 {
			return fmt.Errorf("usage: note_off <note>")
		}
		note, err := strconv.ParseUint(command[1], 10, 7)
		if err != nil {
			return err
		}
		machine.NoteOff(uint8(note))
		return nil
	default:
		return fmt.Errorf("unknown command %q", command[0])
	}
}

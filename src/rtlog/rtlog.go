// Package rtlog is the diagnostic channel for the audio thread. Records go
// through a fixed-size single-producer single-consumer ring: the audio
// thread writes one slot (or drops the record when the ring is full) and a
// foreground goroutine drains the ring into zerolog. Writers never allocate
// and never block.
package rtlog

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Level mirrors zerolog's severity ladder for records produced on the audio
// thread. The audio thread must not log above Warn.
type Level uint8

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

// Component identifies the subsystem that produced a record.
type Component uint8

const (
	ComponentMain Component = iota
	ComponentVM
	ComponentAudio
	ComponentDSP
	ComponentCompiler
	ComponentParser
)

func (c Component) String() string {
	switch c {
	case ComponentMain:
		return "main"
	case ComponentVM:
		return "vm"
	case ComponentAudio:
		return "audio"
	case ComponentDSP:
		return "dsp"
	case ComponentCompiler:
		return "compiler"
	case ComponentParser:
		return "parser"
	default:
		return fmt.Sprintf("component(%d)", uint8(c))
	}
}

// record is one ring slot. The format string must be a constant with at most
// two %d-style verbs; the two args cover everything the audio thread needs
// to report (register indices, opcodes, counts).
type record struct {
	timestampUS int64
	component   Component
	level       Level
	format      string
	arg1        int64
	arg2        int64
}

const ringSize = 512 // power of two, so masking replaces modulo

// Ring is the SPSC buffer between the audio thread and the flusher.
type Ring struct {
	slots    [ringSize]record
	writeIdx atomic.Uint32 // owned by the producer
	readIdx  atomic.Uint32 // owned by the consumer
	dropped  atomic.Uint32
	start    time.Time
}

// NewRing returns an empty ring. One producer and one consumer only.
func NewRing() *Ring {
	return &Ring{start: time.Now()}
}

// Log writes one record, dropping it if the ring is full.
func (r *Ring) Log(level Level, component Component, format string, arg1, arg2 int64) {
	w := r.writeIdx.Load()
	next := (w + 1) & (ringSize - 1)
	if next == r.readIdx.Load() {
		r.dropped.Add(1)
		return
	}
	r.slots[w&(ringSize-1)] = record{
		timestampUS: time.Since(r.start).Microseconds(),
		component:   component,
		level:       level,
		format:      format,
		arg1:        arg1,
		arg2:        arg2,
	}
	r.writeIdx.Store(next)
}

// Flush drains all pending records into the given logger. Call it from a
// foreground goroutine, never from the audio thread.
func (r *Ring) Flush(logger zerolog.Logger) {
	for {
		rd := r.readIdx.Load()
		if rd == r.writeIdx.Load() {
			break
		}
		rec := r.slots[rd&(ringSize-1)]
		event(logger, rec.level).
			Str("component", rec.component.String()).
			Int64("t_us", rec.timestampUS).
			Msg(renderMessage(rec))
		r.readIdx.Store((rd + 1) & (ringSize - 1))
	}
	if n := r.dropped.Swap(0); n > 0 {
		logger.Warn().Uint32("count", n).Msg("dropped log records on overflow")
	}
}

// Pending reports how many records are waiting to be flushed.
func (r *Ring) Pending() int {
	w := r.writeIdx.Load()
	rd := r.readIdx.Load()
	return int((w - rd) & (ringSize - 1))
}

// renderMessage formats a record on the consumer side, passing only as many
// args as the format string asks for.
func renderMessage(rec record) string {
	switch strings.Count(rec.format, "%") {
	case 0:
		return rec.format
	case 1:
		return fmt.Sprintf(rec.format, rec.arg1)
	default:
		return fmt.Sprintf(rec.format, rec.arg1, rec.arg2)
	}
}

func event(logger zerolog.Logger, level Level) *zerolog.Event {
	switch level {
	case LevelTrace:
		return logger.Trace()
	case LevelDebug:
		return logger.Debug()
	case LevelInfo:
		return logger.Info()
	case LevelWarn:
		return logger.Warn()
	default:
		return logger.Error()
	}
}

// The process-wide sink. Installed once at startup; audio-thread callers
// observe either nil (records discarded) or a fully constructed ring.
var installed atomic.Pointer[Ring]

// Install makes ring the destination for the package-level helpers.
func Install(ring *Ring) {
	installed.Store(ring)
}

// Installed returns the current sink, or nil if none was installed.
func Installed() *Ring {
	return installed.Load()
}

// Errorf logs one error record through the installed ring.
func Errorf(component Component, format string, arg1, arg2 int64) {
	if r := installed.Load(); r != nil {
		r.Log(LevelError, component, format, arg1, arg2)
	}
}

// Warnf logs one warning record through the installed ring.
func Warnf(component Component, format string, arg1, arg2 int64) {
	if r := installed.Load(); r != nil {
		r.Log(LevelWarn, component, format, arg1, arg2)
	}
}

// Infof logs one info record through the installed ring.
func Infof(component Component, format string, arg1, arg2 int64) {
	if r := installed.Load(); r != nil {
		r.Log(LevelInfo, component, format, arg1, arg2)
	}
}

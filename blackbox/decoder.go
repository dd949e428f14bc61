/*
NAME
  decoder.go

DESCRIPTION
  decoder.go provides the Decoder and its frame-level dispatcher: a small
  state machine that reads frame markers, invokes the per-type parsers,
  validates frame boundaries against iteration and time jump limits, and
  resynchronises after corruption.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package blackbox

import (
	"github.com/ausocean/utils/logging"
)

// Frame boundary validation limits. A valid log never produces a frame
// longer than MaxFrameLength bytes, an iteration jump of MaxIterationJump
// or a time jump of MaxTimeJump microseconds between accepted frames.
const (
	MaxFrameLength   = 256
	MaxIterationJump = 5000
	MaxTimeJump      = 10 * 1000 * 1000
)

// FrameHandler receives one callback per framed stretch of the data
// section. valid distinguishes accepted frames from corrupt or rejected
// ones; frame is nil for event frames, corrupt stretches and P-frames dropped
// while the main stream awaits a valid I-frame, and is reused by the decoder
// after the callback returns.
type FrameHandler func(valid bool, frame []int32, typ byte, offset, size int)

// Decoder decodes a blackbox flight data log from a byte buffer. A Decoder
// owns all of its state and must not be shared between goroutines; the
// input bytes are borrowed read-only and must outlive it.
type Decoder struct {
	stream    *Stream
	sysConfig *SysConfig
	frameDefs *FrameDefs
	stats     *Stats

	main     mainHistory
	home     homeHistory
	lastGPS  []int32
	lastSlow []int32

	lastEvent         *Event
	lastIter          int64
	lastTime          int64
	mainStreamIsValid bool

	dataVersion int

	log logging.Logger
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger sets the logger used for parse diagnostics.
func WithLogger(l logging.Logger) Option {
	return func(d *Decoder) { d.log = l }
}

// New returns a Decoder bound to the given log bytes.
func New(data []byte, options ...Option) *Decoder {
	d := &Decoder{
		stream:      NewStream(data),
		sysConfig:   newSysConfig(),
		frameDefs:   &FrameDefs{},
		stats:       newStats(),
		lastIter:    -1,
		dataVersion: 1,
	}
	for _, o := range options {
		o(d)
	}
	return d
}

// SysConfig returns the header-derived configuration.
func (d *Decoder) SysConfig() *SysConfig { return d.sysConfig }

// FrameDefs returns the frame definitions built by ParseHeader.
func (d *Decoder) FrameDefs() *FrameDefs { return d.frameDefs }

// Stats returns the accumulated decoding statistics.
func (d *Decoder) Stats() *Stats { return d.stats }

// LastEvent returns the most recently decoded event record, or nil.
func (d *Decoder) LastEvent() *Event { return d.lastEvent }

// Pos returns the stream cursor, which after ParseHeader is the offset of
// the first data frame.
func (d *Decoder) Pos() int { return d.stream.pos }

// ResetDataState zeroes the frame history and validation markers so the
// data section can be parsed again, preserving the configuration and frame
// definitions.
func (d *Decoder) ResetDataState() {
	d.main.reset()
	d.home.reset()
	for i := range d.lastGPS {
		d.lastGPS[i] = 0
	}
	for i := range d.lastSlow {
		d.lastSlow[i] = 0
	}
	d.lastEvent = nil
	d.lastIter = -1
	d.lastTime = 0
	d.mainStreamIsValid = false
}

// ResetAllState additionally discards the configuration, frame definitions
// and statistics.
func (d *Decoder) ResetAllState() {
	d.ResetDataState()
	d.sysConfig = newSysConfig()
	d.frameDefs = &FrameDefs{}
	d.stats = newStats()
	d.dataVersion = 1
	d.main = mainHistory{}
	d.home = homeHistory{}
	d.lastGPS = nil
	d.lastSlow = nil
}

// SetGPSHomeHistory publishes an externally sourced GPS home snapshot, as
// when the caller replays a home position recorded elsewhere in the log.
// A length mismatch with the H frame definition invalidates the home
// position instead.
func (d *Decoder) SetGPSHomeHistory(values []int32) {
	if d.frameDefs.H == nil || len(values) != d.frameDefs.H.Count {
		d.home.valid = false
		return
	}
	copy(d.home.ring[1], values)
	d.home.valid = true
}

// allocHistory sizes the history rings once the header has fixed the field
// counts.
func (d *Decoder) allocHistory() {
	if d.frameDefs.I != nil && d.frameDefs.I.Count > 0 {
		d.main.alloc(d.frameDefs.I.Count)
	}
	if d.frameDefs.G != nil {
		d.lastGPS = make([]int32, d.frameDefs.G.Count)
	}
	if d.frameDefs.H != nil {
		d.home.alloc(d.frameDefs.H.Count)
	}
	if d.frameDefs.S != nil {
		d.lastSlow = make([]int32, d.frameDefs.S.Count)
	}
}

// invalidateMainStream marks the main frame stream as requiring an accepted
// I-frame before further P-frames can be interpreted.
func (d *Decoder) invalidateMainStream() {
	d.mainStreamIsValid = false
}

// knownFrameMarker reports whether b is one of the frame markers.
func knownFrameMarker(b byte) bool {
	switch b {
	case FrameIntra, FrameInter, FrameGPS, FrameGPSHome, FrameSlow, FrameEvent:
		return true
	}
	return false
}

// ParseLogData iterates the frames in the window [start,end), invoking
// onFrame for each framed stretch, corrupt ones included. raw decodes
// without prediction for inspection. The returned error is fatal: the
// schema references a predictor, encoding or field the decoder cannot
// honour, and the log is unprocessable.
func (d *Decoder) ParseLogData(raw bool, start, end int, onFrame FrameHandler) error {
	if d.frameDefs.I == nil || !d.frameDefs.I.complete() {
		return ErrMissingIDefs
	}
	if d.frameDefs.I.Count <= TimeIndex {
		return ErrShortMainFrame
	}
	p := d.frameDefs.P
	if p == nil || len(p.Predictor) != p.Count || len(p.Encoding) != p.Count {
		return ErrMissingPDefs
	}

	s := d.stream
	s.start = start
	s.end = end
	s.pos = start
	s.eof = false

	d.stats.TotalBytes += int64(end - start)

	var (
		inFrame      bool
		pseudo       bool // garbage stretch, not a parseable frame
		frameType    byte
		frameStart   int
		prematureEof bool
	)

	for {
		command := s.ReadChar()

		if inFrame {
			frameEnd := s.pos
			if command != EOF {
				frameEnd = s.pos - 1
			}
			size := frameEnd - frameStart

			switch {
			case pseudo:
				if command != EOF && !knownFrameMarker(byte(command)) {
					// The garbage stretch absorbs this byte too.
					continue
				}
				d.stats.countCorrupt(frameType)
				d.invalidateMainStream()
				d.logDebug("corrupt stretch", "offset", frameStart, "size", size)
				if onFrame != nil {
					onFrame(false, nil, frameType, frameStart, size)
				}
				inFrame = false
			case size > MaxFrameLength || (command == EOF && prematureEof):
				// The frame overran or was truncated; search for the next
				// frame from the byte after its marker.
				d.stats.countCorrupt(frameType)
				d.invalidateMainStream()
				d.logDebug("corrupt frame", "type", string(rune(frameType)), "offset", frameStart, "size", size)
				if onFrame != nil {
					onFrame(false, nil, frameType, frameStart, size)
				}
				inFrame = false
				prematureEof = false
				s.eof = false
				s.pos = frameStart + 1
				continue
			default:
				d.completeFrame(frameType, frameStart, size, raw, onFrame)
				inFrame = false
			}
		}

		if command == EOF {
			break
		}

		marker := byte(command)
		frameStart = s.pos - 1
		frameType = marker
		inFrame = true
		prematureEof = false

		var err error
		switch {
		case marker == FrameEvent:
			pseudo = false
			err = d.parseEventFrame()
		case knownFrameMarker(marker) && d.frameDefs.ByMarker(marker) != nil:
			pseudo = false
			switch marker {
			case FrameIntra:
				err = d.parseIntraframe(raw)
			case FrameInter:
				err = d.parseInterframe(raw)
			case FrameGPS:
				err = d.parseGPSFrame(raw)
			case FrameGPSHome:
				err = d.parseGPSHomeFrame(raw)
			case FrameSlow:
				err = d.parseSlowFrame(raw)
			}
		default:
			// Unknown marker, or a known one the log defines no schema
			// for; either way we cannot frame it.
			pseudo = true
		}
		if err != nil {
			return err
		}
		if s.EOFFlag() {
			prematureEof = true
		}
	}

	return nil
}

// completeFrame runs the completion hook for a framed stretch: the frame's
// values are validated, statistics credited and the callback invoked.
func (d *Decoder) completeFrame(typ byte, start, size int, raw bool, onFrame FrameHandler) {
	switch typ {
	case FrameIntra:
		d.completeIntraframe(start, size, raw, onFrame)
	case FrameInter:
		d.completeInterframe(start, size, raw, onFrame)
	case FrameGPS:
		d.stats.countFrame(FrameGPS, size, d.lastGPS)
		if onFrame != nil {
			onFrame(true, d.lastGPS, FrameGPS, start, size)
		}
	case FrameGPSHome:
		d.home.publish()
		d.stats.countFrame(FrameGPSHome, size, d.home.ring[1])
		if onFrame != nil {
			onFrame(true, d.home.ring[1], FrameGPSHome, start, size)
		}
	case FrameSlow:
		d.stats.countFrame(FrameSlow, size, d.lastSlow)
		if onFrame != nil {
			onFrame(true, d.lastSlow, FrameSlow, start, size)
		}
	case FrameEvent:
		d.completeEventFrame(start, size, onFrame)
	}
}

// completeIntraframe validates a decoded I-frame. Acceptance re-validates
// the main stream and rotates the history ring so both previous slots alias
// this frame.
func (d *Decoder) completeIntraframe(start, size int, raw bool, onFrame FrameHandler) {
	cur := d.main.current()
	iter := int64(uint32(cur[IterationIndex]))
	time := int64(uint32(cur[TimeIndex]))

	accept := raw || d.lastIter < 0 ||
		(iter >= d.lastIter && iter < d.lastIter+MaxIterationJump &&
			time >= d.lastTime && time < d.lastTime+MaxTimeJump)

	if !accept {
		d.invalidateMainStream()
		d.stats.countCorrupt(FrameIntra)
		if onFrame != nil {
			onFrame(false, cur, FrameIntra, start, size)
		}
		return
	}

	if !raw {
		d.stats.IntentionallyAbsentIterations += d.countIntentionallySkippedFramesTo(iter)
		d.lastIter = iter
		d.lastTime = time
	}
	d.mainStreamIsValid = true
	d.stats.countFrame(FrameIntra, size, cur)
	if onFrame != nil {
		onFrame(true, cur, FrameIntra, start, size)
	}
	d.main.advanceIntra()
}

// completeInterframe validates a decoded P-frame. P-frames are only
// meaningful against a valid main stream; validation failure drops the
// frame and invalidates the stream until the next accepted I-frame.
func (d *Decoder) completeInterframe(start, size int, raw bool, onFrame FrameHandler) {
	if !d.mainStreamIsValid && !raw {
		d.stats.countCorrupt(FrameInter)
		if onFrame != nil {
			onFrame(false, nil, FrameInter, start, size)
		}
		return
	}

	cur := d.main.current()
	iter := int64(uint32(cur[IterationIndex]))
	time := int64(uint32(cur[TimeIndex]))

	accept := raw ||
		(iter >= d.lastIter && iter < d.lastIter+MaxIterationJump &&
			time >= d.lastTime && time < d.lastTime+MaxTimeJump)

	if !accept {
		d.invalidateMainStream()
		d.stats.countCorrupt(FrameInter)
		if onFrame != nil {
			onFrame(false, cur, FrameInter, start, size)
		}
		return
	}

	if !raw {
		d.stats.IntentionallyAbsentIterations += d.countIntentionallySkippedFramesTo(iter)
		d.lastIter = iter
		d.lastTime = time
	}
	d.stats.countFrame(FrameInter, size, cur)
	if onFrame != nil {
		onFrame(true, cur, FrameInter, start, size)
	}
	d.main.advanceInter()
}

// completeEventFrame finishes an event record. A logging-resume event
// adopts its iteration and time as the new validation baseline so the jump
// forward is accepted.
func (d *Decoder) completeEventFrame(start, size int, onFrame FrameHandler) {
	if d.lastEvent != nil && d.lastEvent.Type == EventLoggingResume {
		resume := d.lastEvent.Data.(LoggingResume)
		d.lastIter = int64(resume.LogIteration)
		d.lastTime = int64(resume.CurrentTime)
	}
	d.stats.countFrame(FrameEvent, size, nil)
	if onFrame != nil {
		onFrame(true, nil, FrameEvent, start, size)
	}
}

func (d *Decoder) logDebug(msg string, args ...interface{}) {
	if d.log != nil {
		d.log.Debug(msg, args...)
	}
}

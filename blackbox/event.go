/*
NAME
  event.go

DESCRIPTION
  event.go provides decoding of the variable-shape event (E) records embedded
  in the data section: sync beeps, flight mode changes, tuning cycles,
  in-flight adjustments, logging resumption and the end-of-log sentinel.

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

import "math"

// EventType identifies the shape of an event record's payload.
type EventType int

// Event types as logged by the firmware.
const (
	EventSyncBeep            EventType = 0
	EventAutotuneCycleStart  EventType = 10
	EventAutotuneCycleResult EventType = 11
	EventAutotuneTargets     EventType = 12
	EventInflightAdjustment  EventType = 13
	EventLoggingResume       EventType = 14
	EventGTuneCycleResult    EventType = 20
	EventFlightMode          EventType = 30
	EventTwitchTest          EventType = 40
	EventLogEnd              EventType = 255
)

// logEndMessage is the sentinel payload that terminates a log.
const logEndMessage = "End of log\x00"

// Event is a decoded event record. Data holds one of the payload types
// below according to Type.
type Event struct {
	Type EventType
	Data interface{}
}

// SyncBeep marks the time the flight controller sounded a synchronisation
// beep.
type SyncBeep struct {
	Time uint32
}

// FlightModeChange carries the new and previous flight mode flag sets.
type FlightModeChange struct {
	NewFlags  uint32
	LastFlags uint32
}

// AutotuneCycleStart marks the start of an autotune cycle.
type AutotuneCycleStart struct {
	Phase  uint8
	Cycle  uint8
	Rising uint8
	P      uint8
	I      uint8
	D      uint8
}

// AutotuneCycleResult carries the tuned PID terms at the end of a cycle.
type AutotuneCycleResult struct {
	Overshot uint8
	P        uint8
	I        uint8
	D        uint8
}

// AutotuneTargets carries the target angles of an autotune cycle, in
// degrees.
type AutotuneTargets struct {
	CurrentAngle      float64
	TargetAngle       int8
	TargetAngleAtPeak int8
	FirstPeakAngle    float64
	SecondPeakAngle   float64
}

// GTuneCycleResult carries a G-Tune gain update for one axis.
type GTuneCycleResult struct {
	Axis    uint8
	GyroAVG int32
	NewP    int16
}

// InflightAdjustment is an in-flight tuning parameter change made from the
// transmitter.
type InflightAdjustment struct {
	Function uint8
	Name     string
	Value    float64
}

// TwitchTest carries a twitch test stage measurement.
type TwitchTest struct {
	Stage uint8
	Value float64
}

// LoggingResume marks logging restarting after a pause; the iteration and
// time it carries become the new validation baseline.
type LoggingResume struct {
	LogIteration uint32
	CurrentTime  uint32
}

// adjustmentFunction describes one entry of the in-flight adjustment
// function table: the integer-valued adjustments use scale, the
// float-valued ones scalef.
type adjustmentFunction struct {
	name   string
	scale  float64
	scalef float64
}

var adjustmentFunctions = [22]adjustmentFunction{
	{name: "None"},
	{name: "RC Rate", scale: 0.01},
	{name: "RC Expo", scale: 0.01},
	{name: "Throttle Expo", scale: 0.01},
	{name: "Pitch & Roll Rate", scale: 0.01},
	{name: "Yaw Rate", scale: 0.01},
	{name: "Pitch & Roll P", scale: 0.1, scalef: 1},
	{name: "Pitch & Roll I", scale: 0.001, scalef: 0.1},
	{name: "Pitch & Roll D", scalef: 1000},
	{name: "Yaw P", scale: 0.1, scalef: 1},
	{name: "Yaw I", scale: 0.001, scalef: 0.1},
	{name: "Yaw D", scalef: 1000},
	{name: "Rate Profile"},
	{name: "Pitch Rate", scale: 0.01},
	{name: "Roll Rate", scale: 0.01},
	{name: "Pitch P", scale: 0.1, scalef: 1},
	{name: "Pitch I", scale: 0.001, scalef: 0.1},
	{name: "Pitch D", scalef: 1000},
	{name: "Roll P", scale: 0.1, scalef: 1},
	{name: "Roll I", scale: 0.001, scalef: 0.1},
	{name: "Roll D", scalef: 1000},
	{name: "RC Yaw Expo", scale: 0.01},
}

// parseEventFrame decodes one event record. Unrecognised event types
// discard the last event; a spurious end-of-log sentinel is likewise
// discarded, while a genuine one shrinks the stream window so the
// dispatcher halts without reading further.
func (d *Decoder) parseEventFrame() error {
	s := d.stream
	typ := EventType(s.ReadU8())

	switch typ {
	case EventSyncBeep:
		d.lastEvent = &Event{Type: typ, Data: SyncBeep{Time: s.ReadUnsignedVB()}}
	case EventFlightMode:
		d.lastEvent = &Event{Type: typ, Data: FlightModeChange{
			NewFlags:  s.ReadUnsignedVB(),
			LastFlags: s.ReadUnsignedVB(),
		}}
	case EventAutotuneCycleStart:
		phase := s.ReadU8()
		cycleAndRising := s.ReadU8()
		d.lastEvent = &Event{Type: typ, Data: AutotuneCycleStart{
			Phase:  phase,
			Cycle:  cycleAndRising & 0x7f,
			Rising: (cycleAndRising >> 7) & 1,
			P:      s.ReadU8(),
			I:      s.ReadU8(),
			D:      s.ReadU8(),
		}}
	case EventAutotuneCycleResult:
		d.lastEvent = &Event{Type: typ, Data: AutotuneCycleResult{
			Overshot: s.ReadU8(),
			P:        s.ReadU8(),
			I:        s.ReadU8(),
			D:        s.ReadU8(),
		}}
	case EventAutotuneTargets:
		d.lastEvent = &Event{Type: typ, Data: AutotuneTargets{
			CurrentAngle:      float64(s.ReadS16()) / 10.0,
			TargetAngle:       s.ReadS8(),
			TargetAngleAtPeak: s.ReadS8(),
			FirstPeakAngle:    float64(s.ReadS16()) / 10.0,
			SecondPeakAngle:   float64(s.ReadS16()) / 10.0,
		}}
	case EventGTuneCycleResult:
		d.lastEvent = &Event{Type: typ, Data: GTuneCycleResult{
			Axis:    s.ReadU8(),
			GyroAVG: s.ReadSignedVB(),
			NewP:    s.ReadS16(),
		}}
	case EventInflightAdjustment:
		tmp := s.ReadU8()
		adj := InflightAdjustment{Function: tmp & 0x7f, Name: "Unknown"}
		var fn adjustmentFunction
		if int(adj.Function) < len(adjustmentFunctions) {
			fn = adjustmentFunctions[adj.Function]
			adj.Name = fn.name
		}
		if tmp < 128 {
			adj.Value = float64(s.ReadSignedVB())
			if fn.scale != 0 {
				adj.Value *= fn.scale
			}
		} else {
			adj.Value = float64(math.Float32frombits(s.ReadU32()))
			if fn.scalef != 0 {
				adj.Value *= fn.scalef
			}
		}
		adj.Value = math.Round(adj.Value*10000) / 10000
		d.lastEvent = &Event{Type: typ, Data: adj}
	case EventTwitchTest:
		d.lastEvent = &Event{Type: typ, Data: TwitchTest{
			Stage: s.ReadU8(),
			Value: float64(math.Float32frombits(s.ReadU32())),
		}}
	case EventLoggingResume:
		d.lastEvent = &Event{Type: typ, Data: LoggingResume{
			LogIteration: s.ReadUnsignedVB(),
			CurrentTime:  s.ReadUnsignedVB(),
		}}
	case EventLogEnd:
		if s.ReadString(len(logEndMessage)) == logEndMessage {
			d.lastEvent = &Event{Type: typ}
			s.end = s.pos
		} else {
			// Spurious end-of-log; keep parsing.
			d.lastEvent = nil
		}
	default:
		d.lastEvent = nil
	}
	return nil
}

/*
NAME
  stats.go

DESCRIPTION
  stats.go provides the statistics the decoder accumulates while parsing:
  byte totals, per-frame-type counts and size histograms, per-field ranges
  and the count of iterations the sampling policy intentionally omitted.

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

// FieldStats tracks the range of values seen for one field.
type FieldStats struct {
	Min int32
	Max int32
}

// FrameStats accumulates statistics for one frame type.
type FrameStats struct {
	Bytes        int64
	SizeCount    [MaxFrameLength + 1]int
	ValidCount   int
	CorruptCount int
	Field        []FieldStats
}

// Stats accumulates decoding statistics across ParseLogData calls.
type Stats struct {
	TotalBytes                    int64
	TotalCorruptFrames            int
	IntentionallyAbsentIterations int

	frames map[byte]*FrameStats
}

func newStats() *Stats {
	return &Stats{frames: make(map[byte]*FrameStats)}
}

// Frame returns the statistics for the given frame marker, creating the
// entry if this is the first frame of that type.
func (s *Stats) Frame(typ byte) *FrameStats {
	fs, ok := s.frames[typ]
	if !ok {
		fs = &FrameStats{}
		s.frames[typ] = fs
	}
	return fs
}

// countFrame credits an accepted frame of the given size against typ,
// folding the field values into the per-field ranges.
func (s *Stats) countFrame(typ byte, size int, values []int32) {
	fs := s.Frame(typ)
	fs.ValidCount++
	fs.Bytes += int64(size)
	if size >= 0 && size < len(fs.SizeCount) {
		fs.SizeCount[size]++
	}
	if values == nil {
		return
	}
	if len(fs.Field) < len(values) {
		grown := make([]FieldStats, len(values))
		copy(grown, fs.Field)
		for i := len(fs.Field); i < len(grown); i++ {
			grown[i] = FieldStats{Min: math.MaxInt32, Max: math.MinInt32}
		}
		fs.Field = grown
	}
	for i, v := range values {
		if v < fs.Field[i].Min {
			fs.Field[i].Min = v
		}
		if v > fs.Field[i].Max {
			fs.Field[i].Max = v
		}
	}
}

// countCorrupt credits a corrupt stretch against typ.
func (s *Stats) countCorrupt(typ byte) {
	s.TotalCorruptFrames++
	s.Frame(typ).CorruptCount++
}

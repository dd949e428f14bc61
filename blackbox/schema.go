/*
NAME
  schema.go

DESCRIPTION
  schema.go provides the per-frame-type field tables built from the log
  header, along with the predictor and encoding identifiers they refer to.

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

import "github.com/pkg/errors"

// Frame markers as they appear in the data section.
const (
	FrameIntra   = 'I'
	FrameInter   = 'P'
	FrameGPS     = 'G'
	FrameGPSHome = 'H'
	FrameSlow    = 'S'
	FrameEvent   = 'E'
)

// Field predictors. A predictor converts a decoded delta back into an
// absolute field value using history and sysconfig.
const (
	PredictorNone              = 0
	PredictorPrevious          = 1
	PredictorStraightLine      = 2
	PredictorAverage2          = 3
	PredictorMinThrottle       = 4
	PredictorMotor0            = 5
	PredictorInc               = 6
	PredictorHomeCoord         = 7
	Predictor1500              = 8
	PredictorVbatRef           = 9
	PredictorLastMainFrameTime = 10
	PredictorHomeCoord1        = 256
)

// Field encodings.
const (
	EncodingSignedVB   = 0
	EncodingUnsignedVB = 1
	EncodingNeg14Bit   = 3
	EncodingTag8_8SVB  = 6
	EncodingTag2_3S32  = 7
	EncodingTag8_4S16  = 8
	EncodingNull       = 9
)

// Well-known main frame field indices.
const (
	IterationIndex = 0
	TimeIndex      = 1
)

// FrameDef describes the fields of one frame type: parallel arrays of name,
// signedness, predictor and encoding, plus a name lookup.
type FrameDef struct {
	Count     int
	Name      []string
	Signed    []bool
	Predictor []int
	Encoding  []int

	index map[string]int
}

// setNames installs the field names of the definition, rebuilding the name
// lookup and resizing the signedness array to match.
func (f *FrameDef) setNames(names []string) {
	f.Name = names
	f.Count = len(names)
	f.index = make(map[string]int, len(names))
	for i, n := range names {
		f.index[n] = i
	}
	signed := make([]bool, len(names))
	copy(signed, f.Signed)
	f.Signed = signed
}

// IndexOf returns the index of the named field, or -1 if it is not defined.
func (f *FrameDef) IndexOf(name string) int {
	if f == nil || f.index == nil {
		return -1
	}
	if i, ok := f.index[name]; ok {
		return i
	}
	return -1
}

// complete reports whether the definition's four arrays agree in length.
func (f *FrameDef) complete() bool {
	return f.Count > 0 &&
		len(f.Name) == f.Count &&
		len(f.Signed) == f.Count &&
		len(f.Predictor) == f.Count &&
		len(f.Encoding) == f.Count
}

// FrameDefs holds the definitions for each frame type present in the header.
// A nil entry means the log does not carry that frame type.
type FrameDefs struct {
	I *FrameDef
	P *FrameDef
	G *FrameDef
	H *FrameDef
	S *FrameDef
}

// ByMarker returns the definition for the given frame marker, or nil.
func (d *FrameDefs) ByMarker(m byte) *FrameDef {
	switch m {
	case FrameIntra:
		return d.I
	case FrameInter:
		return d.P
	case FrameGPS:
		return d.G
	case FrameGPSHome:
		return d.H
	case FrameSlow:
		return d.S
	}
	return nil
}

// get returns the definition for marker m, creating it if absent.
func (d *FrameDefs) get(m byte) *FrameDef {
	if def := d.ByMarker(m); def != nil {
		return def
	}
	def := &FrameDef{}
	switch m {
	case FrameIntra:
		d.I = def
	case FrameInter:
		d.P = def
	case FrameGPS:
		d.G = def
	case FrameGPSHome:
		d.H = def
	case FrameSlow:
		d.S = def
	}
	return def
}

// Errors raised by definition validation after header parse.
var (
	ErrMissingIDefs   = errors.New("log is missing required definitions for I frames")
	ErrMissingPDefs   = errors.New("log is missing required definitions for P frames")
	ErrShortMainFrame = errors.New("I frame definition lacks loopIteration and time fields")
	errIncompleteDef  = errors.New("frame definition arrays disagree in length")
)

// finalise runs the post-header fixups: P inherits I's field names,
// signedness and lookup; paired home coordinate predictors in the G
// definition are disambiguated so only the first keeps the latitude
// predictor.
func (d *FrameDefs) finalise() error {
	if d.P != nil && d.I != nil {
		d.P.Count = d.I.Count
		d.P.Name = d.I.Name
		d.P.Signed = d.I.Signed
		d.P.index = d.I.index
	}

	for _, def := range []*FrameDef{d.I, d.P, d.G, d.H, d.S} {
		if def == nil || def.Count == 0 {
			continue
		}
		if len(def.Predictor) != 0 && len(def.Predictor) != def.Count ||
			len(def.Encoding) != 0 && len(def.Encoding) != def.Count {
			return errIncompleteDef
		}
	}

	if d.G != nil {
		seen := false
		for i, p := range d.G.Predictor {
			if p == PredictorHomeCoord {
				if seen {
					d.G.Predictor[i] = PredictorHomeCoord1
				}
				seen = true
			}
		}
	}
	return nil
}

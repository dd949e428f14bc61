/*
NAME
  predictor.go

DESCRIPTION
  predictor.go provides the predictor evaluator, which reconstructs an
  absolute field value from a decoded delta using frame history and the
  system configuration.

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

// Errors raised when a predictor's required context is not defined by the
// log. These are fatal: the schema references fields the log never declares.
var (
	ErrNoMotor0    = errors.New("motor[0] predictor requires motor[0] to be defined in the I frame")
	ErrNoHomeCoord = errors.New("home coordinate predictor requires a GPS home frame definition")
)

// applyPrediction converts the raw decoded value v for field i into an
// absolute value. In raw mode every predictor is forced to none so the
// caller can inspect the undecorated deltas.
func (d *Decoder) applyPrediction(i, predictor int, v int32, current, previous, previous2 []int32, skippedFrames int, raw bool) (int32, error) {
	if raw {
		predictor = PredictorNone
	}
	switch predictor {
	case PredictorNone:
	case PredictorPrevious:
		if previous != nil {
			v += previous[i]
		}
	case PredictorStraightLine:
		if previous != nil {
			v += 2*previous[i] - previous2[i]
		}
	case PredictorAverage2:
		if previous != nil {
			// Sum in 64 bits so the averaging truncates toward zero
			// without overflow.
			v += int32((int64(previous[i]) + int64(previous2[i])) / 2)
		}
	case PredictorMinThrottle:
		v += int32(d.sysConfig.MinThrottle)
	case PredictorMotor0:
		idx := d.frameDefs.I.IndexOf("motor[0]")
		if idx < 0 {
			return 0, ErrNoMotor0
		}
		v += current[idx]
	case PredictorInc:
		v = int32(skippedFrames) + 1
		if previous != nil {
			v += previous[i]
		}
	case PredictorHomeCoord:
		idx := d.frameDefs.H.IndexOf("GPS_home[0]")
		if idx < 0 {
			return 0, ErrNoHomeCoord
		}
		v += d.home.ring[1][idx]
	case PredictorHomeCoord1:
		idx := d.frameDefs.H.IndexOf("GPS_home[1]")
		if idx < 0 {
			return 0, ErrNoHomeCoord
		}
		v += d.home.ring[1][idx]
	case Predictor1500:
		v += 1500
	case PredictorVbatRef:
		v += int32(d.sysConfig.Vbatref)
	case PredictorLastMainFrameTime:
		if prev := d.main.previous(); prev != nil {
			v += prev[TimeIndex]
		}
	default:
		return 0, errors.Errorf("unknown field predictor %d", predictor)
	}
	return v, nil
}

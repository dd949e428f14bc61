/*
NAME
  frame.go

DESCRIPTION
  frame.go provides the per-frame-type parse routines that walk a frame
  definition, decode each field's encoding and apply its predictor, along
  with the sampling-rate model that accounts for iterations the logging
  policy intentionally omits.

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

// parseFrame walks the fields of def, decoding raw values from the stream
// and applying each field's predictor to produce absolute values in current.
// skippedFrames is the count of intentionally omitted iterations feeding the
// increment predictor.
func (d *Decoder) parseFrame(def *FrameDef, current, previous, previous2 []int32, skippedFrames int, raw bool) error {
	var group [8]int32
	s := d.stream

	i := 0
	for i < def.Count {
		switch def.Encoding[i] {
		case EncodingSignedVB:
			v, err := d.applyPrediction(i, def.Predictor[i], s.ReadSignedVB(), current, previous, previous2, skippedFrames, raw)
			if err != nil {
				return err
			}
			current[i] = v
			i++
		case EncodingUnsignedVB:
			v, err := d.applyPrediction(i, def.Predictor[i], int32(s.ReadUnsignedVB()), current, previous, previous2, skippedFrames, raw)
			if err != nil {
				return err
			}
			current[i] = v
			i++
		case EncodingNeg14Bit:
			v, err := d.applyPrediction(i, def.Predictor[i], -signExtend(int32(s.ReadUnsignedVB()), 14), current, previous, previous2, skippedFrames, raw)
			if err != nil {
				return err
			}
			current[i] = v
			i++
		case EncodingNull:
			v, err := d.applyPrediction(i, def.Predictor[i], 0, current, previous, previous2, skippedFrames, raw)
			if err != nil {
				return err
			}
			current[i] = v
			i++
		case EncodingTag8_8SVB:
			// Find the run of consecutive fields sharing this encoding; the
			// group shares one presence header byte.
			n := 1
			for n < 8 && i+n < def.Count && def.Encoding[i+n] == EncodingTag8_8SVB {
				n++
			}
			s.ReadTag8_8SVB(group[:n], n)
			err := d.applyGroup(def, group[:n], i, current, previous, previous2, skippedFrames, raw)
			if err != nil {
				return err
			}
			i += n
		case EncodingTag2_3S32:
			s.ReadTag2_3S32(group[:3])
			n := 3
			if i+n > def.Count {
				n = def.Count - i
			}
			err := d.applyGroup(def, group[:n], i, current, previous, previous2, skippedFrames, raw)
			if err != nil {
				return err
			}
			i += n
		case EncodingTag8_4S16:
			if d.dataVersion < 2 {
				s.ReadTag8_4S16V1(group[:4])
			} else {
				s.ReadTag8_4S16V2(group[:4])
			}
			n := 4
			if i+n > def.Count {
				n = def.Count - i
			}
			err := d.applyGroup(def, group[:n], i, current, previous, previous2, skippedFrames, raw)
			if err != nil {
				return err
			}
			i += n
		default:
			return errors.Errorf("unknown field encoding %d", def.Encoding[i])
		}
	}
	return nil
}

// applyGroup applies the per-field predictors to a group of raw values
// decoded together, writing absolute values starting at field base.
func (d *Decoder) applyGroup(def *FrameDef, raws []int32, base int, current, previous, previous2 []int32, skippedFrames int, raw bool) error {
	for j, r := range raws {
		v, err := d.applyPrediction(base+j, def.Predictor[base+j], r, current, previous, previous2, skippedFrames, raw)
		if err != nil {
			return err
		}
		current[base+j] = v
	}
	return nil
}

// parseIntraframe decodes an I-frame into the main ring's write target. The
// previous accepted frame is available to predictors, but no older history.
func (d *Decoder) parseIntraframe(raw bool) error {
	return d.parseFrame(d.frameDefs.I, d.main.current(), d.main.previous(), nil, 0, raw)
}

// parseInterframe decodes a P-frame, first counting the iterations the
// sampling policy skipped since the last accepted frame.
func (d *Decoder) parseInterframe(raw bool) error {
	skipped := d.countIntentionallySkippedFrames()
	return d.parseFrame(d.frameDefs.P, d.main.current(), d.main.previous(), d.main.previous2(), skipped, raw)
}

// parseGPSFrame decodes a G-frame. GPS frames carry no prediction history.
func (d *Decoder) parseGPSFrame(raw bool) error {
	return d.parseFrame(d.frameDefs.G, d.lastGPS, nil, nil, 0, raw)
}

// parseGPSHomeFrame decodes an H-frame into the home ring's decode target.
func (d *Decoder) parseGPSHomeFrame(raw bool) error {
	return d.parseFrame(d.frameDefs.H, d.home.ring[0], nil, nil, 0, raw)
}

// parseSlowFrame decodes an S-frame.
func (d *Decoder) parseSlowFrame(raw bool) error {
	return d.parseFrame(d.frameDefs.S, d.lastSlow, nil, nil, 0, raw)
}

// shouldHaveFrame reports whether the sampling policy logs loop iteration
// num, given the I-frame interval and the P-frame numerator/denominator.
func (d *Decoder) shouldHaveFrame(num int64) bool {
	c := d.sysConfig
	return (num%int64(c.FrameIntervalI)+int64(c.FrameIntervalPNum)-1)%int64(c.FrameIntervalPDenom) < int64(c.FrameIntervalPNum)
}

// countIntentionallySkippedFrames returns the number of un-logged iterations
// between the last accepted frame and the next iteration the policy logs.
func (d *Decoder) countIntentionallySkippedFrames() int {
	if d.lastIter < 0 {
		// Haven't parsed a frame yet.
		return 0
	}
	count := 0
	for num := d.lastIter + 1; !d.shouldHaveFrame(num); num++ {
		count++
	}
	return count
}

// countIntentionallySkippedFramesTo returns the number of un-logged
// iterations in the open range between the last accepted frame and target.
func (d *Decoder) countIntentionallySkippedFramesTo(target int64) int {
	if d.lastIter < 0 {
		return 0
	}
	count := 0
	for num := d.lastIter + 1; num < target; num++ {
		if !d.shouldHaveFrame(num) {
			count++
		}
	}
	return count
}

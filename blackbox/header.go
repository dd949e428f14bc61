/*
NAME
  header.go

DESCRIPTION
  header.go provides parsing of the textual header section of a blackbox log:
  `H <key>:<value>` lines that populate the SysConfig and the per-frame-type
  field definitions.

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
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// A header line is bounded; anything longer is discarded as garbage.
const maxHeaderLength = 1024

// Firmware revision matches that upgrade the firmware family identified by
// the "Firmware type" header.
var (
	betaflightRevision = regexp.MustCompile(`^Betaflight.* \d+\.\d+(\.\d+)?`)
	inavRevision       = regexp.MustCompile(`^INAV.* \d+\.\d+\.\d+`)
)

// Degrees/second to radians/microsecond.
const gyroDegreesToRadians = math.Pi / 180.0 * 0.000001

// ParseHeader reads header lines from the window [start,end) until the first
// data frame marker, populating the system configuration and the frame
// definitions. All prior decoder state is discarded. An error is returned if
// a frame definition's predictor or encoding list disagrees in length with its
// field count (P taking its count from I); the signedness list is not checked
// here. A header with no data frame definitions at all parses cleanly, and the
// missing definitions are reported by ParseLogData instead.
func (d *Decoder) ParseHeader(start, end int) error {
	d.ResetAllState()

	s := d.stream
	s.start = start
	s.end = end
	s.pos = start
	s.eof = false

	for {
		command := s.ReadChar()
		if command == EOF {
			break
		}
		if command != 'H' || !d.parseHeaderLine() {
			// Either not a header marker, or an 'H' with no following
			// space, which is a GPS home frame; both end the header.
			s.UnreadChar()
			break
		}
		if s.EOFFlag() {
			break
		}
	}

	err := d.frameDefs.finalise()
	if err != nil {
		return errors.Wrap(err, "invalid frame definitions in header")
	}
	d.allocHistory()
	return nil
}

// parseHeaderLine consumes one `H key:value` line, reporting false if the
// byte after the marker is not a space, in which case nothing is consumed
// and the 'H' is not a header line at all. A line without a colon is
// consumed and discarded.
func (d *Decoder) parseHeaderLine() bool {
	s := d.stream
	if s.PeekChar() != ' ' {
		return false
	}
	s.ReadChar()

	lineStart := s.pos
	sep := -1
	lineEnd := -1
	for i := 0; i < maxHeaderLength; i++ {
		c := s.ReadChar()
		if c == EOF || c == '\n' {
			lineEnd = s.pos
			if c == '\n' {
				lineEnd--
			}
			break
		}
		if c == ':' && sep == -1 {
			sep = s.pos - 1
		}
	}
	if lineEnd == -1 || sep == -1 {
		return true
	}

	name := string(s.data[lineStart:sep])
	value := string(s.data[sep+1 : lineEnd])
	d.parseHeaderValue(name, value)
	return true
}

// parseHeaderValue dispatches a single header key.
func (d *Decoder) parseHeaderValue(name, value string) {
	c := d.sysConfig
	switch name {
	case "I interval":
		c.FrameIntervalI = atoi(value, c.FrameIntervalI)
		if c.FrameIntervalI < 1 {
			c.FrameIntervalI = 1
		}
	case "P interval":
		num, denom, ok := strings.Cut(value, "/")
		if ok {
			c.FrameIntervalPNum = atoi(num, c.FrameIntervalPNum)
			c.FrameIntervalPDenom = atoi(denom, c.FrameIntervalPDenom)
		}
	case "Data version":
		d.dataVersion = atoi(value, d.dataVersion)
	case "Firmware type":
		if strings.Contains(value, "Cleanflight") {
			c.Firmware = FirmwareCleanflight
		} else {
			c.Firmware = FirmwareBaseflight
		}
	case "Firmware revision":
		switch {
		case betaflightRevision.MatchString(value):
			c.Firmware = FirmwareBetaflight
		case inavRevision.MatchString(value):
			c.Firmware = FirmwareINAV
		}
	case "minthrottle":
		c.MinThrottle = atoi(value, c.MinThrottle)
	case "maxthrottle":
		c.MaxThrottle = atoi(value, c.MaxThrottle)
	case "rcRate":
		c.RCRate = atoi(value, c.RCRate)
	case "looptime":
		c.LoopTime = atoi(value, c.LoopTime)
	case "gyro_lpf":
		c.GyroLPF = atoi(value, c.GyroLPF)
	case "vbatref":
		c.Vbatref = atoi(value, c.Vbatref)
	case "vbatscale":
		c.Vbatscale = atoi(value, c.Vbatscale)
	case "acc_1G":
		c.Acc1G = atoi(value, c.Acc1G)
	case "vbatcellvoltage":
		v, ok := atoiList(value)
		if ok && len(v) == 3 {
			c.VbatMinCellVoltage, c.VbatWarnCellVoltage, c.VbatMaxCellVoltage = v[0], v[1], v[2]
		}
	case "currentMeter":
		v, ok := atoiList(value)
		if ok && len(v) == 2 {
			c.CurrentMeterOffset, c.CurrentMeterScale = v[0], v[1]
		}
	case "gyro.scale":
		bits, err := strconv.ParseUint(strings.TrimPrefix(value, "0x"), 16, 32)
		if err != nil {
			break
		}
		c.GyroScale = float64(math.Float32frombits(uint32(bits)))
		// Cleanflight-class firmware logs the scale in deg/s rather than
		// rad/µs.
		switch c.Firmware {
		case FirmwareCleanflight, FirmwareBetaflight, FirmwareINAV:
			c.GyroScale *= gyroDegreesToRadians
		}
	case "deviceUID", "Device UID":
		c.DeviceUID = value
	default:
		if strings.HasPrefix(name, "Field ") {
			if d.parseFieldDefHeader(name, value) {
				return
			}
		}
		if v, ok := atoiList(value); ok {
			c.Extra[name] = v
			return
		}
		c.UnknownHeaders = append(c.UnknownHeaders, Header{Name: name, Value: value})
	}
}

// parseFieldDefHeader handles the `Field X <property>` keys that build the
// frame definitions, returning false if the key is not of that shape.
func (d *Decoder) parseFieldDefHeader(name, value string) bool {
	// Shape is "Field X property" where X is the frame marker.
	rest := strings.TrimPrefix(name, "Field ")
	if len(rest) < 3 || rest[1] != ' ' {
		return false
	}
	marker := rest[0]
	property := rest[2:]
	switch marker {
	case FrameIntra, FrameInter, FrameGPS, FrameGPSHome, FrameSlow:
	default:
		return false
	}

	def := d.frameDefs.get(marker)
	switch property {
	case "name":
		names := strings.Split(value, ",")
		for i, n := range names {
			names[i] = renameField(n)
		}
		def.setNames(names)
	case "signed":
		v, ok := atoiList(value)
		if !ok {
			return false
		}
		signed := make([]bool, len(v))
		for i, s := range v {
			signed[i] = s != 0
		}
		def.Signed = signed
	case "predictor":
		v, ok := atoiList(value)
		if !ok {
			return false
		}
		def.Predictor = v
	case "encoding":
		v, ok := atoiList(value)
		if !ok {
			return false
		}
		def.Encoding = v
	default:
		return false
	}
	return true
}

// renameField maps legacy field names onto their current spelling.
func renameField(name string) string {
	if strings.HasPrefix(name, "gyroData") {
		return "gyroADC" + name[len("gyroData"):]
	}
	return name
}

// atoi parses a base-10 signed integer, returning def on failure.
func atoi(s string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return v
}

// atoiList parses a comma-separated list of base-10 signed integers.
func atoiList(s string) ([]int, bool) {
	parts := strings.Split(s, ",")
	v := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, false
		}
		v[i] = n
	}
	return v, true
}

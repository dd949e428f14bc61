/*
NAME
  header_test.go

DESCRIPTION
  header_test.go provides testing for the log header parsing found in
  header.go.

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
	"testing"

	"github.com/google/go-cmp/cmp"
)

// Magic header line beginning every log session.
const magic = "H Product:Blackbox flight data recorder by Nicholas Sherlock\n"

// headerBytes builds a header buffer from the magic line and the given
// key:value lines.
func headerBytes(lines ...string) []byte {
	b := []byte(magic)
	for _, l := range lines {
		b = append(b, 'H', ' ')
		b = append(b, l...)
		b = append(b, '\n')
	}
	return b
}

// TestParseHeaderSysConfig checks that the recognised header keys populate
// the system configuration.
func TestParseHeaderSysConfig(t *testing.T) {
	data := headerBytes(
		"Data version:2",
		"I interval:32",
		"P interval:1/4",
		"Firmware type:Cleanflight",
		"minthrottle:1000",
		"maxthrottle:2000",
		"vbatref:4027",
		"vbatscale:110",
		"acc_1G:512",
		"looptime:500",
		"rcRate:90",
		"gyro_lpf:0",
		"vbatcellvoltage:33,35,43",
		"currentMeter:0,400",
		"rollPID:40,30,23",
		"deviceUID:0x12345678",
	)

	d := New(data)
	err := d.ParseHeader(0, len(data))
	if err != nil {
		t.Fatalf("did not expect error from ParseHeader: %v", err)
	}

	c := d.SysConfig()
	if c.FrameIntervalI != 32 || c.FrameIntervalPNum != 1 || c.FrameIntervalPDenom != 4 {
		t.Errorf("did not get expected frame intervals. Got: %d %d/%d", c.FrameIntervalI, c.FrameIntervalPNum, c.FrameIntervalPDenom)
	}
	if c.Firmware != FirmwareCleanflight {
		t.Errorf("did not get expected firmware. Got: %v", c.Firmware)
	}
	if c.MinThrottle != 1000 || c.MaxThrottle != 2000 {
		t.Errorf("did not get expected throttle range. Got: %d %d", c.MinThrottle, c.MaxThrottle)
	}
	if c.Vbatref != 4027 || c.Vbatscale != 110 {
		t.Errorf("did not get expected vbat config. Got: %d %d", c.Vbatref, c.Vbatscale)
	}
	if c.VbatMinCellVoltage != 33 || c.VbatWarnCellVoltage != 35 || c.VbatMaxCellVoltage != 43 {
		t.Errorf("did not get expected cell voltages. Got: %d %d %d", c.VbatMinCellVoltage, c.VbatWarnCellVoltage, c.VbatMaxCellVoltage)
	}
	if c.CurrentMeterOffset != 0 || c.CurrentMeterScale != 400 {
		t.Errorf("did not get expected current meter config. Got: %d %d", c.CurrentMeterOffset, c.CurrentMeterScale)
	}
	if c.Acc1G != 512 || c.LoopTime != 500 || c.RCRate != 90 {
		t.Errorf("did not get expected numeric values. Got: %d %d %d", c.Acc1G, c.LoopTime, c.RCRate)
	}
	if c.DeviceUID != "0x12345678" {
		t.Errorf("did not get expected device UID. Got: %q", c.DeviceUID)
	}
	if !cmp.Equal(c.Extra["rollPID"], []int{40, 30, 23}) {
		t.Errorf("did not get expected rollPID. Got: %v", c.Extra["rollPID"])
	}
	if d.dataVersion != 2 {
		t.Errorf("did not get expected data version. Got: %v", d.dataVersion)
	}
}

// TestParseHeaderFirmwareRevision checks the firmware family upgrades from
// the revision line.
func TestParseHeaderFirmwareRevision(t *testing.T) {
	tests := []struct {
		lines []string
		want  FirmwareType
	}{
		{
			lines: []string{"Firmware type:Cleanflight"},
			want:  FirmwareCleanflight,
		},
		{
			lines: []string{"Firmware type:Some other firmware"},
			want:  FirmwareBaseflight,
		},
		{
			lines: []string{"Firmware type:Cleanflight", "Firmware revision:Betaflight 3.1.0 (e1234567) SPRACINGF3"},
			want:  FirmwareBetaflight,
		},
		{
			lines: []string{"Firmware type:Cleanflight", "Firmware revision:INAV 1.7.3"},
			want:  FirmwareINAV,
		},
		{
			lines: []string{"Firmware type:Cleanflight", "Firmware revision:Cleanflight 1.14.2"},
			want:  FirmwareCleanflight,
		},
	}

	for testNum, test := range tests {
		data := headerBytes(test.lines...)
		d := New(data)
		err := d.ParseHeader(0, len(data))
		if err != nil {
			t.Fatalf("did not expect error from ParseHeader for test %v: %v", testNum, err)
		}
		if got := d.SysConfig().Firmware; got != test.want {
			t.Errorf("did not get expected firmware for test: %v.\n Got: %v\n Want: %v\n", testNum, got, test.want)
		}
	}
}

// TestParseHeaderGyroScale checks the hex float parse and the deg/s to
// rad/µs conversion applied for Cleanflight-class firmware.
func TestParseHeaderGyroScale(t *testing.T) {
	// 0x3f800000 is 1.0.
	data := headerBytes("Firmware type:Cleanflight", "gyro.scale:0x3f800000")
	d := New(data)
	err := d.ParseHeader(0, len(data))
	if err != nil {
		t.Fatalf("did not expect error from ParseHeader: %v", err)
	}
	want := math.Pi / 180.0 * 0.000001
	if got := d.SysConfig().GyroScale; math.Abs(got-want) > 1e-15 {
		t.Errorf("did not get expected gyro scale.\n Got: %v\n Want: %v\n", got, want)
	}

	// Baseflight keeps the value as logged.
	data = headerBytes("Firmware type:Baseflight", "gyro.scale:0x3f800000")
	d = New(data)
	err = d.ParseHeader(0, len(data))
	if err != nil {
		t.Fatalf("did not expect error from ParseHeader: %v", err)
	}
	if got := d.SysConfig().GyroScale; got != 1.0 {
		t.Errorf("did not get expected gyro scale.\n Got: %v\n Want: 1.0\n", got)
	}
}

// TestParseHeaderFieldDefs checks the frame definition headers, P's
// inheritance from I and the legacy field rename.
func TestParseHeaderFieldDefs(t *testing.T) {
	data := headerBytes(
		"Field I name:loopIteration,time,gyroData[0]",
		"Field I signed:0,0,1",
		"Field I predictor:6,0,1",
		"Field I encoding:1,1,0",
		"Field P predictor:6,2,2",
		"Field P encoding:9,0,0",
	)
	d := New(data)
	err := d.ParseHeader(0, len(data))
	if err != nil {
		t.Fatalf("did not expect error from ParseHeader: %v", err)
	}

	defs := d.FrameDefs()
	if defs.I == nil || !defs.I.complete() {
		t.Fatal("expected complete I frame definition")
	}
	wantNames := []string{"loopIteration", "time", "gyroADC[0]"}
	if !cmp.Equal(defs.I.Name, wantNames) {
		t.Errorf("did not get expected I field names.\n Got: %v\n Want: %v\n", defs.I.Name, wantNames)
	}
	if defs.P == nil || defs.P.Count != 3 {
		t.Fatal("expected P definition to inherit I's field count")
	}
	if !cmp.Equal(defs.P.Name, wantNames) {
		t.Errorf("did not get expected inherited P field names.\n Got: %v\n", defs.P.Name)
	}
	if got := defs.P.IndexOf("gyroADC[0]"); got != 2 {
		t.Errorf("did not get expected index from inherited name map. Got: %v", got)
	}
	if !cmp.Equal(defs.P.Predictor, []int{6, 2, 2}) {
		t.Errorf("did not get expected P predictors.\n Got: %v\n", defs.P.Predictor)
	}
}

// TestParseHeaderHomeCoordRewrite checks that the second of two paired home
// coordinate predictors in the G definition is disambiguated.
func TestParseHeaderHomeCoordRewrite(t *testing.T) {
	data := headerBytes(
		"Field G name:GPS_coord[0],GPS_coord[1],GPS_altitude",
		"Field G signed:1,1,0",
		"Field G predictor:7,7,0",
		"Field G encoding:0,0,1",
	)
	d := New(data)
	err := d.ParseHeader(0, len(data))
	if err != nil {
		t.Fatalf("did not expect error from ParseHeader: %v", err)
	}

	want := []int{PredictorHomeCoord, PredictorHomeCoord1, PredictorNone}
	if !cmp.Equal(d.FrameDefs().G.Predictor, want) {
		t.Errorf("did not get expected G predictors.\n Got: %v\n Want: %v\n", d.FrameDefs().G.Predictor, want)
	}
}

// TestParseHeaderUnknownKeys checks that unrecognised headers are kept, not
// rejected.
func TestParseHeaderUnknownKeys(t *testing.T) {
	data := headerBytes("Craft name:banana bread")
	d := New(data)
	err := d.ParseHeader(0, len(data))
	if err != nil {
		t.Fatalf("did not expect error from ParseHeader: %v", err)
	}

	c := d.SysConfig()
	want := []Header{
		{Name: "Product", Value: "Blackbox flight data recorder by Nicholas Sherlock"},
		{Name: "Craft name", Value: "banana bread"},
	}
	if !cmp.Equal(c.UnknownHeaders, want) {
		t.Errorf("did not get expected unknown headers.\n Got: %v\n Want: %v\n", c.UnknownHeaders, want)
	}
}

// TestParseHeaderStopsAtFrameMarker checks that the header parser pushes the
// first data frame marker back for the data parser.
func TestParseHeaderStopsAtFrameMarker(t *testing.T) {
	data := headerBytes("I interval:16")
	headerLen := len(data)
	data = append(data, 'I', 0x00)

	d := New(data)
	err := d.ParseHeader(0, len(data))
	if err != nil {
		t.Fatalf("did not expect error from ParseHeader: %v", err)
	}
	if d.Pos() != headerLen {
		t.Errorf("did not stop at frame marker. Got: %v Want: %v", d.Pos(), headerLen)
	}
	if d.SysConfig().FrameIntervalI != 16 {
		t.Errorf("did not get expected I interval. Got: %v", d.SysConfig().FrameIntervalI)
	}
}

// TestParseHeaderIncompleteDef checks that a definition whose arrays
// disagree in length is rejected at header parse.
func TestParseHeaderIncompleteDef(t *testing.T) {
	data := headerBytes(
		"Field I name:loopIteration,time",
		"Field I signed:0,0",
		"Field I predictor:6",
		"Field I encoding:1,1",
	)
	d := New(data)
	err := d.ParseHeader(0, len(data))
	if err == nil {
		t.Fatal("expected error from ParseHeader for inconsistent definition")
	}
}

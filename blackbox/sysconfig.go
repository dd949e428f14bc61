/*
NAME
  sysconfig.go

DESCRIPTION
  sysconfig.go provides the process-lifetime configuration recovered from a
  blackbox log header. The configuration is immutable once the header has
  been parsed.

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

// FirmwareType identifies the flight controller firmware family that wrote
// the log.
type FirmwareType int

const (
	FirmwareUnknown FirmwareType = iota
	FirmwareBaseflight
	FirmwareCleanflight
	FirmwareBetaflight
	FirmwareINAV
)

// String returns the firmware family name.
func (t FirmwareType) String() string {
	switch t {
	case FirmwareBaseflight:
		return "Baseflight"
	case FirmwareCleanflight:
		return "Cleanflight"
	case FirmwareBetaflight:
		return "Betaflight"
	case FirmwareINAV:
		return "INAV"
	}
	return "Unknown"
}

// Header is a raw header line the parser did not recognise. Unknown headers
// are accumulated, never rejected.
type Header struct {
	Name  string
	Value string
}

// SysConfig holds the header-derived decoding parameters. Values not present
// in the header keep the defaults below.
type SysConfig struct {
	FrameIntervalI      int
	FrameIntervalPNum   int
	FrameIntervalPDenom int

	Firmware FirmwareType

	MinThrottle int
	MaxThrottle int

	Vbatref             int
	Vbatscale           int
	VbatMinCellVoltage  int
	VbatWarnCellVoltage int
	VbatMaxCellVoltage  int

	// GyroScale is in rad/µs once the header has been parsed for
	// Cleanflight-class firmware, which logs it in deg/s.
	GyroScale float64

	Acc1G int

	CurrentMeterOffset int
	CurrentMeterScale  int

	DeviceUID string

	LoopTime int
	RCRate   int
	GyroLPF  int

	// Extra holds the open-ended named tuning parameters (PIDs, rates and
	// any other purely numeric headers without a dedicated field).
	Extra map[string][]int

	UnknownHeaders []Header
}

// newSysConfig returns a SysConfig carrying the decoder defaults used when a
// header omits a value.
func newSysConfig() *SysConfig {
	return &SysConfig{
		FrameIntervalI:      32,
		FrameIntervalPNum:   1,
		FrameIntervalPDenom: 1,
		MinThrottle:         1150,
		MaxThrottle:         1850,
		Vbatref:             4095,
		Vbatscale:           110,
		VbatMinCellVoltage:  33,
		VbatWarnCellVoltage: 35,
		VbatMaxCellVoltage:  43,
		GyroScale:           1,
		Acc1G:               1,
		CurrentMeterScale:   400,
		Extra:               make(map[string][]int),
	}
}

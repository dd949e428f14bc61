/*
NAME
  session.go

DESCRIPTION
  session.go provides splitting of a blackbox log buffer into its component
  log sessions, each beginning with the recorder's magic header line. A
  single buffer commonly holds several sessions back to back when the
  flight controller re-arms between flights.

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

// Package session locates the log sessions within a blackbox log buffer.
package session

import (
	"bytes"

	"github.com/pkg/errors"
)

// Magic is the header line beginning every log session.
const Magic = "H Product:Blackbox flight data recorder by Nicholas Sherlock\n"

// ErrNoSessions is returned when a buffer contains no log sessions.
var ErrNoSessions = errors.New("no log sessions in buffer")

// Range is the [Start,End) byte extent of one log session.
type Range struct {
	Start int
	End   int
}

// Split returns the extent of each log session in data, in order. Each
// session runs from its magic line to the next session's magic line, or the
// end of the buffer for the last one.
func Split(data []byte) ([]Range, error) {
	magic := []byte(Magic)

	var ranges []Range
	off := 0
	for {
		i := bytes.Index(data[off:], magic)
		if i < 0 {
			break
		}
		start := off + i
		if n := len(ranges); n > 0 {
			ranges[n-1].End = start
		}
		ranges = append(ranges, Range{Start: start, End: len(data)})
		off = start + len(magic)
	}

	if len(ranges) == 0 {
		return nil, ErrNoSessions
	}
	return ranges, nil
}

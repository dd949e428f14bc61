/*
NAME
  stream_test.go

DESCRIPTION
  stream_test.go provides testing for the byte cursor, variable-byte integer
  reads and packed group codecs found in stream.go.

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
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// encodeUnsignedVB is the inverse of Stream.ReadUnsignedVB, used to build
// test input.
func encodeUnsignedVB(v uint32) []byte {
	var b bytes.Buffer
	for v > 127 {
		b.WriteByte(byte(v&0x7f | 0x80))
		v >>= 7
	}
	b.WriteByte(byte(v))
	return b.Bytes()
}

// encodeSignedVB zig-zag maps v and writes it as an unsigned variable-byte
// integer.
func encodeSignedVB(v int32) []byte {
	return encodeUnsignedVB(uint32(v)<<1 ^ uint32(v>>31))
}

// TestUnsignedVBRoundTrip checks that unsigned variable-byte values of all
// widths survive an encode-decode round trip.
func TestUnsignedVBRoundTrip(t *testing.T) {
	tests := []uint32{0, 1, 127, 128, 300, 1000, 16383, 16384, 1 << 21, 1<<28 - 1, 1 << 28, 0xffffffff}

	for _, want := range tests {
		s := NewStream(encodeUnsignedVB(want))
		got := s.ReadUnsignedVB()
		if got != want {
			t.Errorf("did not get expected result for %d.\n Got: %v\n Want: %v\n", want, got, want)
		}
		if s.pos != s.end {
			t.Errorf("did not consume whole encoding for %d: pos=%d end=%d", want, s.pos, s.end)
		}
	}
}

// TestSignedVBRoundTrip checks the zig-zag mapping over negative and
// positive values.
func TestSignedVBRoundTrip(t *testing.T) {
	tests := []int32{0, 1, -1, 2, -2, 63, -64, 64, 1000, -1000, 1 << 30, -(1 << 30), 2147483647, -2147483648}

	for _, want := range tests {
		s := NewStream(encodeSignedVB(want))
		got := s.ReadSignedVB()
		if got != want {
			t.Errorf("did not get expected result for %d.\n Got: %v\n Want: %v\n", want, got, want)
		}
	}
}

// TestReadUnsignedVBTruncated checks that a continuation byte at the end of
// the stream flags eof and yields zero.
func TestReadUnsignedVBTruncated(t *testing.T) {
	s := NewStream([]byte{0x80})
	if got := s.ReadUnsignedVB(); got != 0 {
		t.Errorf("did not get zero from truncated read, got: %v", got)
	}
	if !s.EOFFlag() {
		t.Error("expected eof flag after truncated read")
	}
}

// TestFixedWidthReads checks the little-endian fixed-width readers.
func TestFixedWidthReads(t *testing.T) {
	s := NewStream([]byte{0x12, 0xfe, 0x34, 0x12, 0x18, 0xfc, 0x78, 0x56, 0x34, 0x12})

	if got := s.ReadU8(); got != 0x12 {
		t.Errorf("ReadU8 did not get expected result. Got: %#x Want: 0x12", got)
	}
	if got := s.ReadS8(); got != -2 {
		t.Errorf("ReadS8 did not get expected result. Got: %v Want: -2", got)
	}
	if got := s.ReadU16(); got != 0x1234 {
		t.Errorf("ReadU16 did not get expected result. Got: %#x Want: 0x1234", got)
	}
	if got := s.ReadS16(); got != -1000 {
		t.Errorf("ReadS16 did not get expected result. Got: %v Want: -1000", got)
	}
	if got := s.ReadU32(); got != 0x12345678 {
		t.Errorf("ReadU32 did not get expected result. Got: %#x Want: 0x12345678", got)
	}
	if s.EOFFlag() {
		t.Error("did not expect eof flag")
	}
	s.ReadU16()
	if !s.EOFFlag() {
		t.Error("expected eof flag after read past end")
	}
}

// TestPushback checks single byte peek, consume and pushback.
func TestPushback(t *testing.T) {
	s := NewStream([]byte{'I', 'P'})
	if got := s.PeekChar(); got != 'I' {
		t.Errorf("PeekChar did not get expected result. Got: %v Want: %v", got, 'I')
	}
	if got := s.ReadChar(); got != 'I' {
		t.Errorf("ReadChar did not get expected result. Got: %v Want: %v", got, 'I')
	}
	s.UnreadChar()
	if got := s.ReadChar(); got != 'I' {
		t.Errorf("ReadChar after pushback did not get expected result. Got: %v Want: %v", got, 'I')
	}
	s.ReadChar()
	if got := s.ReadChar(); got != EOF {
		t.Errorf("did not get EOF at end of stream, got: %v", got)
	}
}

// TestReadTag8_8SVB checks the presence-bitmap group codec, in particular
// that a zero header consumes exactly one byte and yields eight zeros.
func TestReadTag8_8SVB(t *testing.T) {
	tests := []struct {
		data  []byte
		count int
		want  []int32
		used  int
	}{
		{
			data:  []byte{0x00},
			count: 8,
			want:  []int32{0, 0, 0, 0, 0, 0, 0, 0},
			used:  1,
		},
		{
			// Fields 0 and 2 present.
			data:  append(append([]byte{0x05}, encodeSignedVB(-5)...), encodeSignedVB(1000)...),
			count: 8,
			want:  []int32{-5, 0, 1000, 0, 0, 0, 0, 0},
			used:  1 + 1 + 2,
		},
		{
			// A single-field group has no header byte.
			data:  encodeSignedVB(-42),
			count: 1,
			want:  []int32{-42},
			used:  1,
		},
	}

	for testNum, test := range tests {
		s := NewStream(test.data)
		got := make([]int32, test.count)
		s.ReadTag8_8SVB(got, test.count)
		if !cmp.Equal(got, test.want) {
			t.Errorf("did not get expected result for test: %v.\n Got: %v\n Want: %v\n", testNum, got, test.want)
		}
		if s.pos != test.used {
			t.Errorf("did not consume expected bytes for test: %v.\n Got: %v\n Want: %v\n", testNum, s.pos, test.used)
		}
	}
}

// TestReadTag2_3S32 checks the three-field packed codec across the bit-width
// selectors and the variable-byte escape.
func TestReadTag2_3S32(t *testing.T) {
	tests := []struct {
		data []byte
		want [3]int32
	}{
		{
			// Selectors 0,1,2: 2, 4 and 6 bit fields packed MSB-first.
			// Field 0 = 1, field 1 = -3 (0b1101), field 2 = 20 (0b010100).
			data: []byte{0x24, 0x75, 0x40},
			want: [3]int32{1, -3, 20},
		},
		{
			// All three escape to signed variable-byte.
			data: append(append(append([]byte{0x3f}, encodeSignedVB(100000)...), encodeSignedVB(-100000)...), encodeSignedVB(7)...),
			want: [3]int32{100000, -100000, 7},
		},
		{
			// All 2-bit fields, sign extension from width 2.
			// Field 0 = -1 (0b11), field 1 = 1 (0b01), field 2 = -2 (0b10).
			data: []byte{0x00, 0xda},
			want: [3]int32{-1, 1, -2},
		},
	}

	for testNum, test := range tests {
		s := NewStream(test.data)
		var got [3]int32
		s.ReadTag2_3S32(got[:])
		if got != test.want {
			t.Errorf("did not get expected result for test: %v.\n Got: %v\n Want: %v\n", testNum, got, test.want)
		}
	}
}

// TestReadTag8_4S16V1 checks the version 1 four-field codec's nibble
// packing, with the first field in the low nibble of the first byte.
func TestReadTag8_4S16V1(t *testing.T) {
	tests := []struct {
		data []byte
		want [4]int32
	}{
		{
			// Selectors 0,1,2,3: empty, -2 as a nibble, 100 as two
			// nibbles, -1000 as four nibbles, least significant first.
			data: []byte{0xe4, 0x4e, 0x86, 0xc1, 0x0f},
			want: [4]int32{0, -2, 100, -1000},
		},
		{
			// All empty: just the header byte.
			data: []byte{0x00},
			want: [4]int32{0, 0, 0, 0},
		},
	}

	for testNum, test := range tests {
		s := NewStream(test.data)
		var got [4]int32
		s.ReadTag8_4S16V1(got[:])
		if got != test.want {
			t.Errorf("did not get expected result for test: %v.\n Got: %v\n Want: %v\n", testNum, got, test.want)
		}
	}
}

// TestReadTag8_4S16V2 checks the version 2 four-field codec: byte-aligned 8
// and 16 bit fields and pairwise nibble packing for 4-bit fields.
func TestReadTag8_4S16V2(t *testing.T) {
	tests := []struct {
		data []byte
		want [4]int32
	}{
		{
			// Selectors 0,1,2,3.
			data: []byte{0xe4, 0x0e, 0x64, 0x18, 0xfc},
			want: [4]int32{0, -2, 100, -1000},
		},
		{
			// Two adjacent 4-bit fields share a byte, first in the low
			// nibble: 3 then -1.
			data: []byte{0x05, 0xf3},
			want: [4]int32{3, -1, 0, 0},
		},
	}

	for testNum, test := range tests {
		s := NewStream(test.data)
		var got [4]int32
		s.ReadTag8_4S16V2(got[:])
		if got != test.want {
			t.Errorf("did not get expected result for test: %v.\n Got: %v\n Want: %v\n", testNum, got, test.want)
		}
	}
}

// TestReadString checks string extraction and truncation at the window end.
func TestReadString(t *testing.T) {
	s := NewStream([]byte("End of log\x00"))
	if got := s.ReadString(11); got != "End of log\x00" {
		t.Errorf("did not get expected result.\n Got: %q\n", got)
	}
	if s.EOFFlag() {
		t.Error("did not expect eof flag")
	}

	s = NewStream([]byte("End"))
	if got := s.ReadString(11); got != "End" {
		t.Errorf("did not get expected truncated result.\n Got: %q\n", got)
	}
	if !s.EOFFlag() {
		t.Error("expected eof flag after truncated string read")
	}
}

// TestSignExtend checks sign extension from the packed codec widths.
func TestSignExtend(t *testing.T) {
	tests := []struct {
		v     int32
		width uint
		want  int32
	}{
		{0x3, 2, -1},
		{0x1, 2, 1},
		{0xf, 4, -1},
		{0x7, 4, 7},
		{0x2000, 14, -8192},
		{0x1fff, 14, 8191},
		{0x8000, 16, -32768},
	}

	for testNum, test := range tests {
		if got := signExtend(test.v, test.width); got != test.want {
			t.Errorf("did not get expected result for test: %v.\n Got: %v\n Want: %v\n", testNum, got, test.want)
		}
	}
}

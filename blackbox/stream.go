/*
NAME
  stream.go

DESCRIPTION
  stream.go provides a random-access byte cursor over a blackbox log buffer,
  with the primitive fixed-width reads, variable-byte integer reads and the
  packed group codecs used by the frame decoders.

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

// EOF is the sentinel returned by ReadChar and PeekChar once the cursor has
// passed the end of the stream window.
const EOF = -1

// Maximum number of bytes a variable-byte encoded 32-bit integer may span.
const maxVBLength = 5

// Stream is a cursor over a read-only byte slice. The window [start,end)
// bounds all reads; fixed-width reads that run past end flag eof and yield
// whatever truncation gives, which the frame dispatcher inspects after each
// frame attempt.
type Stream struct {
	data  []byte
	pos   int
	start int
	end   int
	eof   bool
}

// NewStream returns a Stream over data with the window covering the whole
// slice.
func NewStream(data []byte) *Stream {
	return &Stream{data: data, end: len(data)}
}

// Pos returns the cursor position.
func (s *Stream) Pos() int { return s.pos }

// EOFFlag reports whether a read has run past the end of the window since the
// flag was last cleared.
func (s *Stream) EOFFlag() bool { return s.eof }

// ReadChar consumes and returns one byte, or EOF past the window end.
func (s *Stream) ReadChar() int {
	if s.pos < s.end {
		c := int(s.data[s.pos])
		s.pos++
		return c
	}
	s.eof = true
	return EOF
}

// PeekChar returns the next byte without consuming it, or EOF.
func (s *Stream) PeekChar() int {
	if s.pos < s.end {
		return int(s.data[s.pos])
	}
	return EOF
}

// UnreadChar pushes the most recently consumed byte back onto the stream.
// Only one byte of pushback is supported.
func (s *Stream) UnreadChar() {
	s.pos--
}

// ReadU8 reads one unsigned byte.
func (s *Stream) ReadU8() uint8 {
	if s.pos < s.end {
		v := s.data[s.pos]
		s.pos++
		return v
	}
	s.eof = true
	return 0
}

// ReadS8 reads one signed byte.
func (s *Stream) ReadS8() int8 {
	return int8(s.ReadU8())
}

// ReadU16 reads a little-endian unsigned 16-bit integer.
func (s *Stream) ReadU16() uint16 {
	lo := uint16(s.ReadU8())
	hi := uint16(s.ReadU8())
	return hi<<8 | lo
}

// ReadS16 reads a little-endian signed 16-bit integer.
func (s *Stream) ReadS16() int16 {
	return int16(s.ReadU16())
}

// ReadU32 reads a little-endian unsigned 32-bit integer.
func (s *Stream) ReadU32() uint32 {
	var v uint32
	for i := uint(0); i < 4; i++ {
		v |= uint32(s.ReadU8()) << (8 * i)
	}
	return v
}

// ReadUnsignedVB reads an unsigned variable-byte integer: the low seven bits
// of each byte accumulate little-endian, and a clear high bit ends the
// encoding. Returns 0 if the encoding is longer than a 32-bit value permits
// or the stream ends mid-read.
func (s *Stream) ReadUnsignedVB() uint32 {
	var v uint32
	for i := 0; i < maxVBLength; i++ {
		c := s.ReadChar()
		if c == EOF {
			return 0
		}
		v |= uint32(c&0x7f) << uint(7*i)
		if c&0x80 == 0 {
			return v
		}
	}
	// Integer is too long to be valid.
	return 0
}

// ReadSignedVB reads an unsigned variable-byte integer and undoes the zig-zag
// mapping.
func (s *Stream) ReadSignedVB() int32 {
	v := s.ReadUnsignedVB()
	return int32(v>>1) ^ -int32(v&1)
}

// signExtend sign-extends v from the given bit width to 32 bits.
func signExtend(v int32, width uint) int32 {
	if v&(1<<(width-1)) != 0 {
		v |= ^int32(0) << width
	}
	return v
}

// ReadTag8_8SVB reads a group of up to eight signed variable-byte values that
// share one presence-bitmap header byte. Bit i of the header marks field i as
// present; absent fields decode to zero. A single-field group is written with
// no header byte at all.
func (s *Stream) ReadTag8_8SVB(values []int32, count int) {
	if count == 1 {
		values[0] = s.ReadSignedVB()
		return
	}
	header := s.ReadU8()
	for i := 0; i < count && i < 8; i++ {
		if header&1 != 0 {
			values[i] = s.ReadSignedVB()
		} else {
			values[i] = 0
		}
		header >>= 1
	}
}

// ReadTag2_3S32 reads three signed values sharing a header byte of three
// 2-bit width selectors (bits 0-1 select for field 0). Selector values 0, 1
// and 2 give 2, 4 and 6 bit fields packed MSB-first into the following bytes
// and sign-extended; selector 3 reads a full signed variable-byte value.
func (s *Stream) ReadTag2_3S32(values []int32) {
	header := s.ReadU8()
	var (
		buf   uint32
		nbits uint
	)
	for i := 0; i < 3; i++ {
		sel := (header >> uint(2*i)) & 0x03
		if sel == 3 {
			values[i] = s.ReadSignedVB()
			continue
		}
		width := uint(2 + 2*sel)
		for nbits < width {
			buf = buf<<8 | uint32(s.ReadU8())
			nbits += 8
		}
		v := int32((buf >> (nbits - width)) & ((1 << width) - 1))
		nbits -= width
		values[i] = signExtend(v, width)
	}
}

// ReadTag8_4S16V1 reads four signed values sharing a header byte of four
// 2-bit width selectors. Widths are 0, 4, 8 and 16 bits; non-empty values are
// drawn from a nibble cursor with the first field in the low nibble of the
// first byte, least-significant nibble first, and sign-extended from their
// width.
func (s *Stream) ReadTag8_4S16V1(values []int32) {
	header := s.ReadU8()
	var (
		buf  uint8
		have bool
	)
	nibble := func() int32 {
		if have {
			have = false
			return int32(buf >> 4)
		}
		buf = s.ReadU8()
		have = true
		return int32(buf & 0x0f)
	}
	for i := 0; i < 4; i++ {
		sel := (header >> uint(2*i)) & 0x03
		switch sel {
		case 0:
			values[i] = 0
		case 1:
			values[i] = signExtend(nibble(), 4)
		case 2:
			values[i] = signExtend(nibble()|nibble()<<4, 8)
		case 3:
			values[i] = signExtend(nibble()|nibble()<<4|nibble()<<8|nibble()<<12, 16)
		}
	}
}

// ReadTag8_4S16V2 is the data-version-2 form of the four-field group. Widths
// are 0, 4, 8 and 16 bits; 4-bit fields are nibble-packed pairwise with the
// first in the low nibble, 8-bit fields take a whole byte and 16-bit fields
// are little-endian.
func (s *Stream) ReadTag8_4S16V2(values []int32) {
	header := s.ReadU8()
	var (
		buf  uint8
		have bool
	)
	for i := 0; i < 4; i++ {
		sel := (header >> uint(2*i)) & 0x03
		switch sel {
		case 0:
			values[i] = 0
		case 1:
			if have {
				have = false
				values[i] = signExtend(int32(buf>>4), 4)
			} else {
				buf = s.ReadU8()
				have = true
				values[i] = signExtend(int32(buf&0x0f), 4)
			}
		case 2:
			values[i] = int32(s.ReadS8())
		case 3:
			values[i] = int32(s.ReadS16())
		}
	}
}

// ReadString copies n bytes from the stream as an ASCII string. The result is
// truncated at the window end, flagging eof.
func (s *Stream) ReadString(n int) string {
	if s.pos+n > s.end {
		n = s.end - s.pos
		s.eof = true
	}
	str := string(s.data[s.pos : s.pos+n])
	s.pos += n
	return str
}

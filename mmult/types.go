// Copyright 2026 cs5222-lab-fpga Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mmult

import "fmt"

// MaxTransportWidth is the widest transport word supported, in bits.
const MaxTransportWidth = 64

// Word is one transport data word. Only the low TransportWidth bits are used.
type Word uint64

// Packet is a single transfer on the inbound or outbound channel.
type Packet struct {
	Data Word
	// Last marks the end of the stream.
	Last bool
}

// String returns the packet as a hex word, with a " last" suffix when the
// end-of-stream marker is set.
func (p Packet) String() string {
	if p.Last {
		return fmt.Sprintf("%016x last", uint64(p.Data))
	}
	return fmt.Sprintf("%016x", uint64(p.Data))
}

// Role selects which field descriptor interprets the fields of a packet.
type Role int

const (
	// RoleInput interprets input feature values.
	RoleInput Role = iota

	// RoleWeight interprets weight matrix coefficients.
	RoleWeight

	// RoleOutput interprets offsets and results.
	RoleOutput
)

// String returns a human-readable name for the role.
func (r Role) String() string {
	switch r {
	case RoleInput:
		return "input"
	case RoleWeight:
		return "weight"
	case RoleOutput:
		return "output"
	default:
		return "unknown"
	}
}

// Field describes a fixed-point value packed into a transport word.
//
// There is no binary point scaling: the raw bits of the field are the
// value's representation, so a field is effectively a Width-bit two's
// complement (Signed) or unsigned integer.
type Field struct {
	Width  int
	Signed bool
}

// Int returns a signed field of the given width.
func Int(width int) Field { return Field{Width: width, Signed: true} }

// Uint returns an unsigned field of the given width.
func Uint(width int) Field { return Field{Width: width} }

// String returns the field in ap_int / ap_uint notation, e.g. "int8".
func (f Field) String() string {
	if f.Signed {
		return fmt.Sprintf("int%d", f.Width)
	}
	return fmt.Sprintf("uint%d", f.Width)
}

// Mask returns a mask covering the low Width bits.
func (f Field) Mask() uint64 {
	return ^uint64(0) >> (64 - f.Width)
}

// Bits returns the bit pattern of v masked to the field width.
func (f Field) Bits(v int64) uint64 {
	return uint64(v) & f.Mask()
}

// Reinterpret treats the low Width bits of bits as the field's
// representation and returns its value. Higher bits are ignored.
func (f Field) Reinterpret(bits uint64) int64 {
	// Unsigned fields shift by zero; signed fields shift the sign bit to
	// bit 63 and back so the arithmetic shift sign-extends.
	shift := f.signShift()
	return int64((bits&f.Mask())<<shift) >> shift
}

// Truncate wraps v to the field width, the way a hardware register of this
// width would hold it.
func (f Field) Truncate(v int64) int64 {
	return f.Reinterpret(uint64(v))
}

// Min returns the smallest representable value.
func (f Field) Min() int64 {
	if !f.Signed {
		return 0
	}
	return -1 << (f.Width - 1)
}

// Max returns the largest representable value. Unsigned 64-bit fields
// report the largest int64, their upper half wraps to negative int64.
func (f Field) Max() int64 {
	if !f.Signed {
		if f.Width == 64 {
			return int64(^uint64(0) >> 1)
		}
		return int64(f.Mask())
	}
	return int64(f.Mask() >> 1)
}

func (f Field) signShift() uint {
	if f.Signed {
		return uint(64 - f.Width)
	}
	return 0
}

func (f Field) valid(transportWidth int) bool {
	return f.Width >= 1 && f.Width <= transportWidth && f.Width <= MaxTransportWidth
}

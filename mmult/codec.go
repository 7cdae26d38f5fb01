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

// Unpack splits w into ratio fields of f and writes them to dst[:ratio].
// Field k is taken from bits [k*f.Width, (k+1)*f.Width) of w, least
// significant field first, and reinterpreted (not converted) as a value of f.
//
// The loop has no data-dependent branches; every field is extracted with the
// same shift/mask sequence.
//
// Example:
//
//	dst := make([]int64, 4)
//	Unpack(0x0004_0003_0002_0001, Uint(16), 4, dst) // dst = [1, 2, 3, 4]
func Unpack(w Word, f Field, ratio int, dst []int64) {
	dst = dst[:ratio]
	mask := f.Mask()
	shift := f.signShift()
	for k := range dst {
		bits := (uint64(w) >> (uint(k) * uint(f.Width))) & mask
		dst[k] = int64(bits<<shift) >> shift
	}
}

// Pack is the inverse of Unpack: each value's bit pattern, masked to
// f.Width, is ORed into slot k of the word. The end-of-stream marker is set
// only when last is true.
//
// Example:
//
//	p := Pack([]int64{1, -1}, Int(8), true) // p.Data = 0xff01, p.Last = true
func Pack(src []int64, f Field, last bool) Packet {
	mask := f.Mask()
	var w uint64
	for k, v := range src {
		w |= (uint64(v) & mask) << (uint(k) * uint(f.Width))
	}
	return Packet{Data: Word(w), Last: last}
}

// UnpackRole is Unpack using the field and ratio the configuration assigns
// to role r.
func (c Config) UnpackRole(w Word, r Role, dst []int64) {
	Unpack(w, c.Field(r), c.Ratio(r), dst)
}

// PackRole is Pack using the field the configuration assigns to role r.
// len(src) must not exceed Ratio(r).
func (c Config) PackRole(src []int64, r Role, last bool) Packet {
	return Pack(src, c.Field(r), last)
}

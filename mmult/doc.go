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

// Package mmult provides the shared vocabulary of the streaming fixed-point
// matrix-multiplication kernel: its shape configuration, the fixed-point
// field descriptors for each role, the transport packet and the packet codec
// that maps one wide transport word onto several narrow fixed-point values.
//
// # Stream protocol
//
// A run consumes, in this exact order:
//  1. ceil(Classes/OutputRatio) packets holding the offset (bias) vector.
//  2. Classes weight rows, each ceil(Feat/WeightRatio) packets.
//  3. Batch/Tiling tiles of Tiling input rows, each row ceil(Feat/InputRatio)
//     packets.
//
// and produces Batch rows of ceil(Classes/OutputRatio) output packets, the
// very last one carrying the end-of-stream marker.
//
// # Fields
//
// Fields are packed least-significant first: field k of a word occupies bits
// [k*Width, (k+1)*Width). Values are carried as int64 holding the
// reinterpreted bit pattern (sign-extended for signed fields):
//
//	cfg := mmult.DefaultConfig()
//	vals := make([]int64, cfg.InputRatio())
//	mmult.Unpack(pkt.Data, cfg.Input, cfg.InputRatio(), vals)
//	out := mmult.Pack(vals, cfg.Input, false)
//
// The kernel itself lives in package kernel; transports live in package
// stream.
package mmult

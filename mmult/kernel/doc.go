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

// Package kernel implements the tiled fixed-point affine kernel:
//
//	out[i][j] = offset[j] + sum_k in[i][k] * weight[j][k]
//
// for every input row i of a batch, read from an inbound packet stream and
// written to an outbound packet stream.
//
// A run has four stages:
//   - the constant loader reads the offset vector, then the weight matrix
//     row by row, into buffers that live for the whole run;
//   - the tile stager reads Tiling input rows into the tile input buffer;
//   - the dot-product engine fills the tile output buffer;
//   - the output packer packs the tile output into outbound packets.
//
// The last three repeat once per tile. Accumulation is done in int64 with
// two's complement wraparound, left to right over k, and the result is
// truncated to the output field on store. Since truncation to a field of at
// most 64 bits commutes with wrapping addition and multiplication, this is
// bit-exact with a hardware accumulator of the output width.
//
// Example:
//
//	k, err := kernel.New(mmult.DefaultConfig())
//	if err != nil {
//	    return err // configuration error, nothing was read
//	}
//	defer k.Close()
//	stats, err := k.Run(ctx, src, dst)
package kernel

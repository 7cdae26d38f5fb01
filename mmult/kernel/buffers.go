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

package kernel

import "github.com/LiewWS/cs5222-lab-fpga/mmult"

// Buffers holds the on-chip memories of one run. All slices are sized from
// the configuration when the run starts and never grow.
type Buffers struct {
	// Offsets has Classes entries.
	Offsets []int64
	// Weights is Classes x Feat, row-major.
	Weights []int64
	// TileIn is Tiling x Feat, row-major.
	TileIn []int64
	// TileOut is Tiling x Classes, row-major.
	TileOut []int64

	// scratch receives the fields of one unpacked packet.
	scratch []int64
}

// NewBuffers allocates the buffers for one run of cfg.
func NewBuffers(cfg mmult.Config) *Buffers {
	maxRatio := max(cfg.InputRatio(), cfg.WeightRatio(), cfg.OutputRatio())
	return &Buffers{
		Offsets: make([]int64, cfg.Classes),
		Weights: make([]int64, cfg.Classes*cfg.Feat),
		TileIn:  make([]int64, cfg.Tiling*cfg.Feat),
		TileOut: make([]int64, cfg.Tiling*cfg.Classes),
		scratch: make([]int64, maxRatio),
	}
}

// WeightRow returns row j of the weight matrix.
func (b *Buffers) WeightRow(cfg mmult.Config, j int) []int64 {
	return b.Weights[j*cfg.Feat : (j+1)*cfg.Feat]
}

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

import (
	"context"

	"github.com/LiewWS/cs5222-lab-fpga/mmult"
)

// loadRows fills dst, a rows x cols row-major matrix, from the inbound
// channel. Each row takes ceil(cols/ratio) packets of role r; fields of the
// last packet of a row beyond cols are dropped.
func loadRows(ctx context.Context, cfg mmult.Config, in *inbound, stage string, r mmult.Role, dst []int64, rows, cols int, scratch []int64) error {
	ratio := cfg.Ratio(r)
	fields := scratch[:ratio]
	for i := range rows {
		row := dst[i*cols : (i+1)*cols]
		for j := 0; j < cols; j += ratio {
			p, err := in.next(ctx, stage)
			if err != nil {
				return err
			}
			cfg.UnpackRole(p.Data, r, fields)
			copy(row[j:], fields)
		}
	}
	return nil
}

// loadOffsets reads the offset vector: ceil(Classes/OutputRatio) packets of
// the output role.
func loadOffsets(ctx context.Context, cfg mmult.Config, in *inbound, b *Buffers) error {
	return loadRows(ctx, cfg, in, stageOffsets, mmult.RoleOutput, b.Offsets, 1, cfg.Classes, b.scratch)
}

// loadWeights reads the Classes x Feat weight matrix, row-major.
func loadWeights(ctx context.Context, cfg mmult.Config, in *inbound, b *Buffers) error {
	return loadRows(ctx, cfg, in, stageWeights, mmult.RoleWeight, b.Weights, cfg.Classes, cfg.Feat, b.scratch)
}

// loadConstants runs the constant loader. Offsets always precede weights.
func loadConstants(ctx context.Context, cfg mmult.Config, in *inbound, b *Buffers) error {
	if err := loadOffsets(ctx, cfg, in, b); err != nil {
		return err
	}
	return loadWeights(ctx, cfg, in, b)
}

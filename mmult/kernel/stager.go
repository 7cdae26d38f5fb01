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

// stageTile fills tileIn (Tiling x Feat) with the next Tiling input rows.
// It returns only once the whole tile is staged or the stream fails; the
// engine never reads a partial tile.
func stageTile(ctx context.Context, cfg mmult.Config, in *inbound, tileIn, scratch []int64) error {
	return loadRows(ctx, cfg, in, stageInput, mmult.RoleInput, tileIn, cfg.Tiling, cfg.Feat, scratch)
}

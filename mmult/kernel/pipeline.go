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

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// pipelineDepth is the number of tile input buffers in flight.
const pipelineDepth = 2

// runTilesPipelined overlaps the stager with the engine and packer using a
// ring of pipelineDepth tile input buffers. The stager is the only reader
// of the inbound channel and the consumer handles tiles in the order they
// were staged, so the outbound sequence equals runTiles'.
func (k *Kernel) runTilesPipelined(ctx context.Context, in *inbound, b *Buffers, pk *packer, stats *Stats) error {
	cfg := k.cfg
	tiles := make([][]int64, pipelineDepth)
	tiles[0] = b.TileIn
	for s := 1; s < pipelineDepth; s++ {
		tiles[s] = make([]int64, cfg.Tiling*cfg.Feat)
	}

	free := make(chan int, pipelineDepth)
	for s := range pipelineDepth {
		free <- s
	}
	ready := make(chan int, pipelineDepth)

	g, gctx := errgroup.WithContext(ctx)

	// Stager.
	g.Go(func() error {
		defer close(ready)
		for range cfg.Tiles() {
			var slot int
			select {
			case slot = <-free:
			case <-gctx.Done():
				return gctx.Err()
			}
			if err := stageTile(gctx, cfg, in, tiles[slot], b.scratch); err != nil {
				return err
			}
			ready <- slot
		}
		return nil
	})

	// Engine and packer.
	g.Go(func() error {
		for slot := range ready {
			k.engine.ComputeTile(b.Offsets, b.Weights, tiles[slot], b.TileOut)
			pk.packTile(b.TileOut)
			stats.Tiles++
			klog.V(2).Infof("mmult: tile %d/%d done (pipelined)", stats.Tiles, cfg.Tiles())
			free <- slot
		}
		return nil
	})

	return g.Wait()
}

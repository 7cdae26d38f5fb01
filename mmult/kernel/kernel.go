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
	"fmt"
	"time"

	"k8s.io/klog/v2"

	"github.com/LiewWS/cs5222-lab-fpga/mmult"
	"github.com/LiewWS/cs5222-lab-fpga/mmult/contrib/workerpool"
	"github.com/LiewWS/cs5222-lab-fpga/mmult/stream"
)

type options struct {
	workers  int
	pool     *workerpool.Pool
	pipeline bool
	strict   bool
	level    mmult.DispatchLevel
}

// Option configures a Kernel.
type Option func(*options)

// WithWorkers sets the number of engine workers. 1 computes on the calling
// goroutine. The default is mmult.DefaultWorkers().
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithPool shares an existing worker pool. The kernel does not close it.
func WithPool(p *workerpool.Pool) Option {
	return func(o *options) { o.pool = p }
}

// WithPipeline overlaps staging of tile t+1 with compute and packing of
// tile t. The outbound packet sequence is unchanged.
func WithPipeline(on bool) Option {
	return func(o *options) { o.pipeline = on }
}

// WithStrictFraming makes the kernel check the inbound end-of-stream
// marker: a marker before the final packet is an underrun, and a final
// packet without one is mmult.ErrFraming.
func WithStrictFraming(on bool) Option {
	return func(o *options) { o.strict = on }
}

// WithLevel overrides the dot-product level chosen by mmult.CurrentLevel.
func WithLevel(level mmult.DispatchLevel) Option {
	return func(o *options) { o.level = level }
}

// Stats describes one run.
type Stats struct {
	// InboundPackets is the number of packets consumed.
	InboundPackets int
	// OutboundPackets is the number of packets delivered to the sink.
	OutboundPackets int
	// Tiles is the number of tiles computed.
	Tiles   int
	Level   mmult.DispatchLevel
	Elapsed time.Duration
}

// Kernel is a configured kernel instance. Runs are independent: each one
// allocates its own buffers, so a Kernel may serve concurrent runs.
type Kernel struct {
	cfg      mmult.Config
	engine   *Engine
	pool     *workerpool.Pool
	ownsPool bool
	pipeline bool
	strict   bool
}

// New validates cfg and returns a kernel for it. A configuration error is
// returned before any stream is touched and matches mmult.ErrConfig.
func New(cfg mmult.Config, opts ...Option) (*Kernel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{workers: mmult.DefaultWorkers(), level: mmult.CurrentLevel()}
	for _, opt := range opts {
		opt(&o)
	}

	k := &Kernel{cfg: cfg, pipeline: o.pipeline, strict: o.strict}
	switch {
	case o.pool != nil:
		k.pool = o.pool
	case o.workers > 1:
		k.pool = workerpool.New(o.workers)
		k.ownsPool = true
	}
	k.engine = NewEngine(cfg, o.level, k.pool)
	return k, nil
}

// Config returns the kernel's configuration.
func (k *Kernel) Config() mmult.Config {
	return k.cfg
}

// Close releases the worker pool if the kernel created it.
func (k *Kernel) Close() {
	if k.ownsPool {
		k.pool.Close()
	}
}

// Run consumes exactly cfg.InboundPackets() packets from src and, if all of
// them arrived, sends exactly cfg.OutboundPackets() packets to dst, the last
// one marked end-of-stream.
//
// If src runs dry first, Run returns an error matching mmult.ErrUnderrun
// and sends nothing. Packets left in src after the run are not read.
func (k *Kernel) Run(ctx context.Context, src stream.Source, dst stream.Sink) (stats Stats, err error) {
	cfg := k.cfg
	start := time.Now()
	stats.Level = k.engine.Level()
	defer func() { stats.Elapsed = time.Since(start) }()

	klog.V(1).Infof("mmult: run start %v level=%v pipeline=%v", cfg, k.engine.Level(), k.pipeline)

	b := NewBuffers(cfg)
	in := &inbound{src: src, expected: cfg.InboundPackets(), strict: k.strict}
	pk := newPacker(cfg)

	err = loadConstants(ctx, cfg, in, b)
	if err == nil {
		if k.pipeline && cfg.Tiles() > 1 {
			err = k.runTilesPipelined(ctx, in, b, pk, &stats)
		} else {
			err = k.runTiles(ctx, in, b, pk, &stats)
		}
	}
	stats.InboundPackets = in.count
	if err != nil {
		klog.V(1).Infof("mmult: run aborted after %d inbound packets: %v", in.count, err)
		return stats, err
	}

	if in.count != cfg.InboundPackets() || pk.emitted() != cfg.OutboundPackets() {
		return stats, fmt.Errorf("%w: consumed %d of %d, produced %d of %d", mmult.ErrCount,
			in.count, cfg.InboundPackets(), pk.emitted(), cfg.OutboundPackets())
	}

	for _, p := range pk.staged {
		if err := dst.Send(ctx, p); err != nil {
			return stats, fmt.Errorf("kernel: outbound packet %d: %w", stats.OutboundPackets, err)
		}
		stats.OutboundPackets++
	}
	klog.V(1).Infof("mmult: run done in=%d out=%d tiles=%d in %v", stats.InboundPackets, stats.OutboundPackets, stats.Tiles, time.Since(start))
	return stats, nil
}

// runTiles is the reference schedule: stage, compute, pack, one tile at a
// time.
func (k *Kernel) runTiles(ctx context.Context, in *inbound, b *Buffers, pk *packer, stats *Stats) error {
	for t := range k.cfg.Tiles() {
		if err := stageTile(ctx, k.cfg, in, b.TileIn, b.scratch); err != nil {
			return err
		}
		k.engine.ComputeTile(b.Offsets, b.Weights, b.TileIn, b.TileOut)
		pk.packTile(b.TileOut)
		stats.Tiles++
		klog.V(2).Infof("mmult: tile %d/%d done, %d packets consumed", t+1, k.cfg.Tiles(), in.count)
	}
	return nil
}

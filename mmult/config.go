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

import (
	"fmt"
	"strings"
)

// Config is the fixed shape of a kernel instance. In hardware these are
// synthesis-time constants; here a Config is validated once, before any
// stream activity, and never changes during a run.
type Config struct {
	// Batch is the number of input rows per run.
	Batch int
	// Feat is the number of features per input row.
	Feat int
	// Classes is the number of output columns (weight rows).
	Classes int
	// Tiling is the number of input rows staged on chip at a time.
	Tiling int

	// TransportWidth is the width of a transport word in bits.
	TransportWidth int

	Input  Field
	Weight Field
	// Output describes both the offsets and the results.
	Output Field
}

// DefaultConfig returns the classifier configuration the kernel was sized
// for: 2048 rows of 256 uint8 features against 10 int8 weight rows, with
// int32 offsets and outputs over a 64-bit stream.
func DefaultConfig() Config {
	return Config{
		Batch:          2048,
		Feat:           256,
		Classes:        10,
		Tiling:         128,
		TransportWidth: 64,
		Input:          Uint(8),
		Weight:         Int(8),
		Output:         Int(32),
	}
}

// Field returns the field descriptor for a role.
func (c Config) Field(r Role) Field {
	switch r {
	case RoleInput:
		return c.Input
	case RoleWeight:
		return c.Weight
	default:
		return c.Output
	}
}

// Ratio returns how many fields of role r fit in one transport word.
func (c Config) Ratio(r Role) int {
	f := c.Field(r)
	if f.Width <= 0 {
		return 0
	}
	return c.TransportWidth / f.Width
}

// InputRatio is Ratio(RoleInput).
func (c Config) InputRatio() int { return c.Ratio(RoleInput) }

// WeightRatio is Ratio(RoleWeight).
func (c Config) WeightRatio() int { return c.Ratio(RoleWeight) }

// OutputRatio is Ratio(RoleOutput).
func (c Config) OutputRatio() int { return c.Ratio(RoleOutput) }

// Validate checks every shape invariant and returns a *ConfigError listing
// all violations, or nil.
func (c Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	for _, d := range []struct {
		name string
		v    int
	}{{"batch", c.Batch}, {"feat", c.Feat}, {"classes", c.Classes}, {"tiling", c.Tiling}} {
		if d.v <= 0 {
			fail("%s must be positive, got %d", d.name, d.v)
		}
	}
	if c.TransportWidth < 1 || c.TransportWidth > MaxTransportWidth {
		fail("transport width must be in [1, %d], got %d", MaxTransportWidth, c.TransportWidth)
	}
	for _, r := range []Role{RoleInput, RoleWeight, RoleOutput} {
		if f := c.Field(r); !f.valid(c.TransportWidth) {
			fail("%s width must be in [1, %d], got %d", r, min(c.TransportWidth, MaxTransportWidth), f.Width)
		}
	}
	if len(errs) > 0 {
		// Ratios are meaningless past this point.
		return &ConfigError{Violations: errs}
	}

	if c.Batch%c.Tiling != 0 {
		fail("batch %d is not a multiple of tiling %d", c.Batch, c.Tiling)
	}
	if c.Feat%c.WeightRatio() != 0 {
		fail("feat %d is not a multiple of the weight ratio %d", c.Feat, c.WeightRatio())
	}
	if c.Feat%c.InputRatio() != 0 {
		fail("feat %d is not a multiple of the input ratio %d", c.Feat, c.InputRatio())
	}
	if (c.Batch*c.Classes)%c.OutputRatio() != 0 {
		fail("batch*classes %d is not a multiple of the output ratio %d", c.Batch*c.Classes, c.OutputRatio())
	}
	if len(errs) > 0 {
		return &ConfigError{Violations: errs}
	}
	return nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// OffsetPackets is the number of packets carrying the offset vector.
func (c Config) OffsetPackets() int { return ceilDiv(c.Classes, c.OutputRatio()) }

// WeightPacketsPerRow is the number of packets carrying one weight row.
func (c Config) WeightPacketsPerRow() int { return ceilDiv(c.Feat, c.WeightRatio()) }

// InputPacketsPerRow is the number of packets carrying one input row.
func (c Config) InputPacketsPerRow() int { return ceilDiv(c.Feat, c.InputRatio()) }

// OutputPacketsPerRow is the number of packets carrying one output row.
func (c Config) OutputPacketsPerRow() int { return ceilDiv(c.Classes, c.OutputRatio()) }

// Tiles is the number of tiles per run.
func (c Config) Tiles() int { return c.Batch / c.Tiling }

// ConstantPackets is the number of inbound packets before the first tile.
func (c Config) ConstantPackets() int {
	return c.OffsetPackets() + c.Classes*c.WeightPacketsPerRow()
}

// TileInboundPackets is the number of inbound packets per tile.
func (c Config) TileInboundPackets() int { return c.Tiling * c.InputPacketsPerRow() }

// TileOutboundPackets is the number of outbound packets per tile.
func (c Config) TileOutboundPackets() int { return c.Tiling * c.OutputPacketsPerRow() }

// InboundPackets is the total number of packets a run consumes.
func (c Config) InboundPackets() int {
	return c.ConstantPackets() + c.Tiles()*c.TileInboundPackets()
}

// OutboundPackets is the total number of packets a run produces.
func (c Config) OutboundPackets() int {
	return c.Tiles() * c.TileOutboundPackets()
}

// String summarizes the shape, e.g.
// "batch=2048 feat=256 classes=10 tiling=128 axi=64 in=uint8 w=int8 out=int32".
func (c Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "batch=%d feat=%d classes=%d tiling=%d axi=%d", c.Batch, c.Feat, c.Classes, c.Tiling, c.TransportWidth)
	fmt.Fprintf(&b, " in=%v w=%v out=%v", c.Input, c.Weight, c.Output)
	return b.String()
}

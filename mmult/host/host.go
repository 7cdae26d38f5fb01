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

// Package host is the host-side driver of the kernel: it stages a problem
// (offsets, weights and a batch of inputs) into the inbound packet stream,
// decodes the outbound stream back into a result matrix and provides a
// plain reference model to check the kernel against.
package host

import (
	"fmt"
	"math/rand"

	"github.com/samber/lo"

	"github.com/LiewWS/cs5222-lab-fpga/mmult"
)

// Problem is one run's worth of data. Values are the fixed-point values as
// the kernel sees them; Encode truncates anything outside a field's range.
type Problem struct {
	// Offsets has Classes entries.
	Offsets []int64
	// Weights is Classes rows of Feat coefficients.
	Weights [][]int64
	// Inputs is Batch rows of Feat features.
	Inputs [][]int64
}

// Check reports whether p has the shape cfg requires.
func (p Problem) Check(cfg mmult.Config) error {
	if len(p.Offsets) != cfg.Classes {
		return fmt.Errorf("host: %d offsets, want %d", len(p.Offsets), cfg.Classes)
	}
	if err := checkMatrix("weights", p.Weights, cfg.Classes, cfg.Feat); err != nil {
		return err
	}
	return checkMatrix("inputs", p.Inputs, cfg.Batch, cfg.Feat)
}

func checkMatrix(name string, m [][]int64, rows, cols int) error {
	if len(m) != rows {
		return fmt.Errorf("host: %s has %d rows, want %d", name, len(m), rows)
	}
	for i, row := range m {
		if len(row) != cols {
			return fmt.Errorf("host: %s row %d has %d columns, want %d", name, i, len(row), cols)
		}
	}
	return nil
}

// packRow packs one row into ceil(len(row)/ratio) packets of role r.
func packRow(cfg mmult.Config, r mmult.Role, row []int64) []mmult.Packet {
	return lo.Map(lo.Chunk(row, cfg.Ratio(r)), func(group []int64, _ int) mmult.Packet {
		return cfg.PackRole(group, r, false)
	})
}

// Encode stages p as the inbound stream of one run: offsets, weight rows,
// then input rows. The final packet carries the end-of-stream marker.
func Encode(cfg mmult.Config, p Problem) ([]mmult.Packet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := p.Check(cfg); err != nil {
		return nil, err
	}

	out := make([]mmult.Packet, 0, cfg.InboundPackets())
	out = append(out, packRow(cfg, mmult.RoleOutput, p.Offsets)...)
	for _, row := range p.Weights {
		out = append(out, packRow(cfg, mmult.RoleWeight, row)...)
	}
	for _, row := range p.Inputs {
		out = append(out, packRow(cfg, mmult.RoleInput, row)...)
	}
	out[len(out)-1].Last = true
	return out, nil
}

// EncodeOutputs packs a Batch x Classes result matrix the way the kernel's
// output packer does, e.g. to write the expected outbound stream of a test
// vector.
func EncodeOutputs(cfg mmult.Config, outputs [][]int64) []mmult.Packet {
	out := make([]mmult.Packet, 0, len(outputs)*cfg.OutputPacketsPerRow())
	for _, row := range outputs {
		out = append(out, packRow(cfg, mmult.RoleOutput, row)...)
	}
	if len(out) > 0 {
		out[len(out)-1].Last = true
	}
	return out
}

// Decode unpacks an outbound stream into Batch rows of Classes results. It
// checks the packet count and that exactly the final packet is marked
// end-of-stream.
func Decode(cfg mmult.Config, packets []mmult.Packet) ([][]int64, error) {
	if len(packets) != cfg.OutboundPackets() {
		return nil, fmt.Errorf("%w: %d outbound packets, want %d", mmult.ErrCount, len(packets), cfg.OutboundPackets())
	}
	for i, p := range packets {
		if p.Last != (i == len(packets)-1) {
			return nil, fmt.Errorf("%w: outbound packet %d of %d has last=%v", mmult.ErrFraming, i+1, len(packets), p.Last)
		}
	}

	ratio := cfg.OutputRatio()
	perRow := cfg.OutputPacketsPerRow()
	rows := lo.Chunk(packets, perRow)
	return lo.Map(rows, func(rowPackets []mmult.Packet, _ int) []int64 {
		vals := lo.FlatMap(rowPackets, func(p mmult.Packet, _ int) []int64 {
			fields := make([]int64, ratio)
			cfg.UnpackRole(p.Data, mmult.RoleOutput, fields)
			return fields
		})
		return vals[:cfg.Classes]
	}), nil
}

// Reference computes the expected results with the kernel's arithmetic:
// inputs, weights and offsets are first reinterpreted in their fields, the
// sum is formed in wrapping int64 and truncated to the output field.
func Reference(cfg mmult.Config, p Problem) [][]int64 {
	offsets := lo.Map(p.Offsets, func(v int64, _ int) int64 { return cfg.Output.Truncate(v) })
	weights := truncateMatrix(cfg.Weight, p.Weights)
	out := make([][]int64, len(p.Inputs))
	for i, row := range truncateMatrix(cfg.Input, p.Inputs) {
		out[i] = make([]int64, cfg.Classes)
		for j := range cfg.Classes {
			acc := offsets[j]
			for k := range cfg.Feat {
				acc += row[k] * weights[j][k]
			}
			out[i][j] = cfg.Output.Truncate(acc)
		}
	}
	return out
}

func truncateMatrix(f mmult.Field, m [][]int64) [][]int64 {
	return lo.Map(m, func(row []int64, _ int) []int64 {
		return lo.Map(row, func(v int64, _ int) int64 { return f.Truncate(v) })
	})
}

// RandomProblem returns a problem whose values cover each field's full
// range.
func RandomProblem(cfg mmult.Config, rng *rand.Rand) Problem {
	return Problem{
		Offsets: randomRow(cfg.Output, cfg.Classes, rng),
		Weights: randomMatrix(cfg.Weight, cfg.Classes, cfg.Feat, rng),
		Inputs:  randomMatrix(cfg.Input, cfg.Batch, cfg.Feat, rng),
	}
}

func randomMatrix(f mmult.Field, rows, cols int, rng *rand.Rand) [][]int64 {
	return lo.Times(rows, func(int) []int64 { return randomRow(f, cols, rng) })
}

func randomRow(f mmult.Field, n int, rng *rand.Rand) []int64 {
	return lo.Times(n, func(int) int64 { return f.Reinterpret(rng.Uint64()) })
}

// Flatten returns a matrix as one row-major slice.
func Flatten(m [][]int64) []int64 {
	return lo.Flatten(m)
}

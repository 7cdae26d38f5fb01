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
	"github.com/LiewWS/cs5222-lab-fpga/mmult"
	"github.com/LiewWS/cs5222-lab-fpga/mmult/contrib/workerpool"
)

// DotFunc returns acc + sum_k in[k]*w[k], accumulated left to right in
// int64 with wraparound. len(w) must be at least len(in).
type DotFunc func(acc int64, in, w []int64) int64

// BaseDot is the scalar dot product: one term per iteration.
func BaseDot(acc int64, in, w []int64) int64 {
	w = w[:len(in)]
	for k := range in {
		acc += in[k] * w[k]
	}
	return acc
}

// dotUnroll4 is BaseDot with four terms per iteration. The single
// accumulator keeps the order of additions identical to BaseDot.
func dotUnroll4(acc int64, in, w []int64) int64 {
	w = w[:len(in)]
	k := 0
	for ; k+4 <= len(in); k += 4 {
		acc += in[k] * w[k]
		acc += in[k+1] * w[k+1]
		acc += in[k+2] * w[k+2]
		acc += in[k+3] * w[k+3]
	}
	for ; k < len(in); k++ {
		acc += in[k] * w[k]
	}
	return acc
}

// dotUnroll8 is BaseDot with eight terms per iteration.
func dotUnroll8(acc int64, in, w []int64) int64 {
	w = w[:len(in)]
	k := 0
	for ; k+8 <= len(in); k += 8 {
		acc += in[k] * w[k]
		acc += in[k+1] * w[k+1]
		acc += in[k+2] * w[k+2]
		acc += in[k+3] * w[k+3]
		acc += in[k+4] * w[k+4]
		acc += in[k+5] * w[k+5]
		acc += in[k+6] * w[k+6]
		acc += in[k+7] * w[k+7]
	}
	for ; k < len(in); k++ {
		acc += in[k] * w[k]
	}
	return acc
}

// DotFor returns the dot product implementation for a dispatch level.
func DotFor(level mmult.DispatchLevel) DotFunc {
	switch level {
	case mmult.DispatchUnroll8:
		return dotUnroll8
	case mmult.DispatchUnroll4:
		return dotUnroll4
	default:
		return BaseDot
	}
}

// Engine computes tile outputs from a staged tile and the resident
// constants. An Engine holds no per-run state and may be shared by
// concurrent runs.
type Engine struct {
	cfg   mmult.Config
	level mmult.DispatchLevel
	dot   DotFunc
	pool  *workerpool.Pool
}

// NewEngine returns an engine for cfg using the given dot-product level.
// A nil pool computes every tile on the caller's goroutine.
func NewEngine(cfg mmult.Config, level mmult.DispatchLevel, pool *workerpool.Pool) *Engine {
	return &Engine{cfg: cfg, level: level, dot: DotFor(level), pool: pool}
}

// Level returns the dot-product level in use.
func (e *Engine) Level() mmult.DispatchLevel {
	return e.level
}

// ComputeTile writes tileOut[i][j] = offsets[j] + tileIn[i] . weights[j],
// truncated to the output field, for every row i of the tile and class j.
//
// Output cells are independent, so rows are spread over the pool. When the
// tile has fewer rows than workers the individual dot products are
// distributed instead.
func (e *Engine) ComputeTile(offsets, weights, tileIn, tileOut []int64) {
	cfg := e.cfg
	if e.pool != nil && cfg.Tiling < e.pool.NumWorkers() {
		e.pool.ParallelForAtomic(cfg.Tiling*cfg.Classes, func(cell int) {
			i, j := cell/cfg.Classes, cell%cfg.Classes
			tileOut[cell] = e.cell(offsets, weights, tileIn, i, j)
		})
		return
	}
	e.pool.ParallelFor(cfg.Tiling, func(start, end int) {
		for i := start; i < end; i++ {
			for j := range cfg.Classes {
				tileOut[i*cfg.Classes+j] = e.cell(offsets, weights, tileIn, i, j)
			}
		}
	})
}

func (e *Engine) cell(offsets, weights, tileIn []int64, i, j int) int64 {
	feat := e.cfg.Feat
	acc := e.dot(offsets[j], tileIn[i*feat:(i+1)*feat], weights[j*feat:(j+1)*feat])
	return e.cfg.Output.Truncate(acc)
}

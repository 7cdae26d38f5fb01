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
	"os"
	"runtime"
	"strconv"
	"strings"
)

// DispatchLevel selects the dot-product inner loop used by the engine.
// Every level accumulates left to right into one int64 accumulator, so the
// results are bit-identical; levels differ only in loop unrolling.
type DispatchLevel int

const (
	// DispatchScalar is the plain one-term-per-iteration loop.
	DispatchScalar DispatchLevel = iota

	// DispatchUnroll4 processes four terms per iteration.
	DispatchUnroll4

	// DispatchUnroll8 processes eight terms per iteration.
	DispatchUnroll8
)

// String returns a human-readable name for the dispatch level.
func (d DispatchLevel) String() string {
	switch d {
	case DispatchScalar:
		return "scalar"
	case DispatchUnroll4:
		return "unroll4"
	case DispatchUnroll8:
		return "unroll8"
	default:
		return "unknown"
	}
}

// currentLevel is the detected level for this runtime.
// Set by init() in dispatch_*.go files.
var currentLevel DispatchLevel

// cpuFeatures lists the CPU features that informed currentLevel.
// Set by init() in dispatch_*.go files.
var cpuFeatures []string

// CurrentLevel returns the dot-product level the engine uses by default.
func CurrentLevel() DispatchLevel {
	return currentLevel
}

// CPUFeatures returns a space separated list of the detected CPU features
// relevant to the engine, or "none".
func CPUFeatures() string {
	if len(cpuFeatures) == 0 {
		return "none"
	}
	return strings.Join(cpuFeatures, " ")
}

// NoUnrollEnv checks if the MMULT_NO_UNROLL environment variable is set.
// When set, the engine uses the scalar dot product regardless of the CPU.
func NoUnrollEnv() bool {
	val := os.Getenv("MMULT_NO_UNROLL")
	if val == "" {
		return false
	}
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return true
}

// DefaultWorkers returns the engine worker count: MMULT_WORKERS when it is a
// positive integer, GOMAXPROCS otherwise.
func DefaultWorkers() int {
	if n, err := strconv.Atoi(os.Getenv("MMULT_WORKERS")); err == nil && n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}

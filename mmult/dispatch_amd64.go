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

//go:build amd64

package mmult

import "golang.org/x/sys/cpu"

func init() {
	if cpu.X86.HasAVX2 {
		cpuFeatures = append(cpuFeatures, "avx2")
	}
	if cpu.X86.HasAVX512F {
		cpuFeatures = append(cpuFeatures, "avx512f")
	}
	if cpu.X86.HasBMI2 {
		cpuFeatures = append(cpuFeatures, "bmi2")
	}

	if NoUnrollEnv() {
		currentLevel = DispatchScalar
		return
	}

	// Wide out-of-order cores keep eight independent multiplies in flight.
	switch {
	case cpu.X86.HasAVX2:
		currentLevel = DispatchUnroll8
	default:
		currentLevel = DispatchUnroll4
	}
}

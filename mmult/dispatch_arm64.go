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

//go:build arm64

package mmult

import "golang.org/x/sys/cpu"

func init() {
	if cpu.ARM64.HasASIMD {
		cpuFeatures = append(cpuFeatures, "asimd")
	}
	if cpu.ARM64.HasASIMDDP {
		cpuFeatures = append(cpuFeatures, "asimddp")
	}
	if cpu.ARM64.HasSVE {
		cpuFeatures = append(cpuFeatures, "sve")
	}

	if NoUnrollEnv() {
		currentLevel = DispatchScalar
		return
	}

	// cpu.ARM64.HasASIMD is always true on ARMv8+.
	if cpu.ARM64.HasASIMD {
		currentLevel = DispatchUnroll4
	} else {
		currentLevel = DispatchScalar
	}
}

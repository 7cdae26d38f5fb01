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
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfig reports a shape configuration that violates an invariant.
	// It is always detected before any packet is read.
	ErrConfig = errors.New("mmult: invalid configuration")

	// ErrUnderrun reports an inbound stream that ended before the statically
	// required number of packets arrived.
	ErrUnderrun = errors.New("mmult: inbound stream underrun")

	// ErrFraming reports an end-of-stream marker in the wrong place.
	ErrFraming = errors.New("mmult: stream framing violation")

	// ErrCount reports a run whose packet counts differ from the static totals.
	ErrCount = errors.New("mmult: packet count mismatch")
)

// ConfigError lists every invariant a Config violates.
type ConfigError struct {
	Violations []error
}

func (e *ConfigError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Error()
	}
	return fmt.Sprintf("%v: %s", ErrConfig, strings.Join(msgs, "; "))
}

// Is makes errors.Is(err, ErrConfig) hold for a *ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// Unwrap returns the individual violations.
func (e *ConfigError) Unwrap() []error {
	return e.Violations
}

// UnderrunError records where an inbound stream ran dry.
type UnderrunError struct {
	// Stage is the consumer that was waiting: "offsets", "weights" or "input".
	Stage string
	// Received is the number of inbound packets consumed before the underrun.
	Received int
	// Expected is the static inbound total for the run.
	Expected int
}

func (e *UnderrunError) Error() string {
	return fmt.Sprintf("%v: %s stage after %d of %d packets", ErrUnderrun, e.Stage, e.Received, e.Expected)
}

// Unwrap returns ErrUnderrun.
func (e *UnderrunError) Unwrap() error {
	return ErrUnderrun
}

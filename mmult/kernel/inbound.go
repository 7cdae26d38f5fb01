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
	"errors"
	"fmt"
	"io"

	"github.com/LiewWS/cs5222-lab-fpga/mmult"
	"github.com/LiewWS/cs5222-lab-fpga/mmult/stream"
)

// Stage names used in underrun errors and logs.
const (
	stageOffsets = "offsets"
	stageWeights = "weights"
	stageInput   = "input"
)

// inbound counts packets read from the inbound channel and turns an
// exhausted channel into an underrun. It is used by one goroutine at a time.
type inbound struct {
	src      stream.Source
	count    int
	expected int
	strict   bool
}

func (in *inbound) next(ctx context.Context, stage string) (mmult.Packet, error) {
	p, err := in.src.Recv(ctx)
	if errors.Is(err, io.EOF) {
		return mmult.Packet{}, &mmult.UnderrunError{Stage: stage, Received: in.count, Expected: in.expected}
	}
	if err != nil {
		return mmult.Packet{}, fmt.Errorf("kernel: %s stage: %w", stage, err)
	}
	in.count++

	if in.strict {
		switch {
		case p.Last && in.count < in.expected:
			// The sender ended the stream early.
			return mmult.Packet{}, &mmult.UnderrunError{Stage: stage, Received: in.count, Expected: in.expected}
		case !p.Last && in.count == in.expected:
			return mmult.Packet{}, fmt.Errorf("%w: inbound packet %d of %d has no end-of-stream marker", mmult.ErrFraming, in.count, in.expected)
		}
	}
	return p, nil
}

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

// Package stream provides the packet channels the kernel reads from and
// writes to. A channel is strictly ordered, unaddressed and lossless; the
// only framing is the Last marker on a packet.
//
// In-memory channels (SliceSource, SliceSink), Go-channel backed channels
// (ChanSource, ChanSink, Pipe) and file channels (Reader, Writer) all satisfy
// the same two interfaces.
package stream

import (
	"context"
	"io"
	"sync"

	"github.com/LiewWS/cs5222-lab-fpga/mmult"
)

// Source is an inbound channel. Recv blocks until the next packet is
// available and returns io.EOF once the channel is exhausted.
type Source interface {
	Recv(ctx context.Context) (mmult.Packet, error)
}

// Sink is an outbound channel. Send blocks until the packet is accepted.
type Sink interface {
	Send(ctx context.Context, p mmult.Packet) error
}

// SliceSource replays a fixed packet slice.
type SliceSource struct {
	packets []mmult.Packet
	next    int
}

// NewSliceSource returns a Source that yields packets in order, then io.EOF.
func NewSliceSource(packets []mmult.Packet) *SliceSource {
	return &SliceSource{packets: packets}
}

// Recv returns the next packet.
func (s *SliceSource) Recv(ctx context.Context) (mmult.Packet, error) {
	if err := ctx.Err(); err != nil {
		return mmult.Packet{}, err
	}
	if s.next >= len(s.packets) {
		return mmult.Packet{}, io.EOF
	}
	p := s.packets[s.next]
	s.next++
	return p, nil
}

// Remaining returns the number of packets not yet received.
func (s *SliceSource) Remaining() int {
	return len(s.packets) - s.next
}

// SliceSink collects sent packets in memory. It is safe for concurrent use.
type SliceSink struct {
	mu      sync.Mutex
	packets []mmult.Packet
}

// NewSliceSink returns a Sink with room for capacity packets.
func NewSliceSink(capacity int) *SliceSink {
	return &SliceSink{packets: make([]mmult.Packet, 0, capacity)}
}

// Send appends p.
func (s *SliceSink) Send(ctx context.Context, p mmult.Packet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.packets = append(s.packets, p)
	s.mu.Unlock()
	return nil
}

// Packets returns a copy of everything sent so far.
func (s *SliceSink) Packets() []mmult.Packet {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]mmult.Packet, len(s.packets))
	copy(out, s.packets)
	return out
}

// Len returns the number of packets sent so far.
func (s *SliceSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.packets)
}

// ChanSource reads packets from a Go channel. A closed channel is io.EOF.
type ChanSource struct {
	c <-chan mmult.Packet
}

// NewChanSource wraps c.
func NewChanSource(c <-chan mmult.Packet) *ChanSource {
	return &ChanSource{c: c}
}

// Recv blocks for the next packet or ctx cancellation.
func (s *ChanSource) Recv(ctx context.Context) (mmult.Packet, error) {
	select {
	case p, ok := <-s.c:
		if !ok {
			return mmult.Packet{}, io.EOF
		}
		return p, nil
	case <-ctx.Done():
		return mmult.Packet{}, ctx.Err()
	}
}

// ChanSink writes packets to a Go channel.
type ChanSink struct {
	c chan<- mmult.Packet
}

// NewChanSink wraps c.
func NewChanSink(c chan<- mmult.Packet) *ChanSink {
	return &ChanSink{c: c}
}

// Send blocks until c accepts p or ctx is cancelled.
func (s *ChanSink) Send(ctx context.Context, p mmult.Packet) error {
	select {
	case s.c <- p:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pipe connects a Sink to a Source through a buffered channel of the given
// capacity. Calling close on the returned func marks the end of the
// channel; the Source then drains and returns io.EOF.
func Pipe(capacity int) (*ChanSource, *ChanSink, func()) {
	c := make(chan mmult.Packet, capacity)
	var once sync.Once
	return NewChanSource(c), NewChanSink(c), func() { once.Do(func() { close(c) }) }
}

// Forward copies one frame from src to dst: every packet up to and
// including the first one carrying Last. It returns the number of packets
// forwarded. If src ends before a Last marker, Forward returns
// io.ErrUnexpectedEOF.
func Forward(ctx context.Context, src Source, dst Sink) (int, error) {
	n := 0
	for {
		p, err := src.Recv(ctx)
		if err == io.EOF {
			return n, io.ErrUnexpectedEOF
		}
		if err != nil {
			return n, err
		}
		if err := dst.Send(ctx, p); err != nil {
			return n, err
		}
		n++
		if p.Last {
			return n, nil
		}
	}
}

// Drain receives packets from src until io.EOF and returns them.
func Drain(ctx context.Context, src Source) ([]mmult.Packet, error) {
	var out []mmult.Packet
	for {
		p, err := src.Recv(ctx)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, p)
	}
}

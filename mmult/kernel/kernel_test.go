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
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/LiewWS/cs5222-lab-fpga/mmult"
	"github.com/LiewWS/cs5222-lab-fpga/mmult/contrib/workerpool"
	"github.com/LiewWS/cs5222-lab-fpga/mmult/host"
	"github.com/LiewWS/cs5222-lab-fpga/mmult/stream"
)

// testRNG returns a seeded random number generator for reproducible tests.
func testRNG() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

// runKernel runs one problem through a fresh kernel and returns the
// outbound packets.
func runKernel(t *testing.T, cfg mmult.Config, inbound []mmult.Packet, opts ...Option) ([]mmult.Packet, Stats, error) {
	t.Helper()
	k, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New(%v): %v", cfg, err)
	}
	defer k.Close()

	dst := stream.NewSliceSink(cfg.OutboundPackets())
	stats, err := k.Run(context.Background(), stream.NewSliceSource(inbound), dst)
	return dst.Packets(), stats, err
}

func scenarioConfig() mmult.Config {
	return mmult.Config{
		Batch: 2, Feat: 4, Classes: 2, Tiling: 2, TransportWidth: 64,
		Input: mmult.Uint(16), Weight: mmult.Int(16), Output: mmult.Int(32),
	}
}

func scenarioProblem() host.Problem {
	return host.Problem{
		Offsets: []int64{0, 1},
		Weights: [][]int64{{1, 1, 1, 1}, {2, 0, 0, 2}},
		Inputs:  [][]int64{{1, 2, 3, 4}, {0, 0, 0, 1}},
	}
}

func TestRunConcreteScenario(t *testing.T) {
	cfg := scenarioConfig()
	inbound, err := host.Encode(cfg, scenarioProblem())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	packets, stats, err := runKernel(t, cfg, inbound, WithWorkers(1))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, err := host.Decode(cfg, packets)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	// Row 0, class 1 is 1 + 2*1 + 2*4 = 11.
	want := [][]int64{{10, 11}, {1, 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("outputs mismatch (-want +got):\n%s", diff)
	}

	wantPackets := []mmult.Packet{
		{Data: 0x0000000b_0000000a},
		{Data: 0x00000003_00000001, Last: true},
	}
	if diff := cmp.Diff(wantPackets, packets); diff != "" {
		t.Errorf("outbound packets mismatch (-want +got):\n%s", diff)
	}
	if stats.InboundPackets != 5 || stats.OutboundPackets != 2 || stats.Tiles != 1 {
		t.Errorf("stats = %+v, want 5 in, 2 out, 1 tile", stats)
	}
}

func TestNewRejectsConfigBeforeStreaming(t *testing.T) {
	// FEAT=3 with two weights per word.
	cfg := mmult.Config{
		Batch: 2, Feat: 3, Classes: 2, Tiling: 2, TransportWidth: 32,
		Input: mmult.Uint(32), Weight: mmult.Int(16), Output: mmult.Int(32),
	}
	k, err := New(cfg)
	if !errors.Is(err, mmult.ErrConfig) {
		t.Fatalf("New = %v, want ErrConfig", err)
	}
	if k != nil {
		t.Error("New returned a kernel for an invalid configuration")
	}
}

func randomConfigs() []mmult.Config {
	return []mmult.Config{
		{Batch: 8, Feat: 16, Classes: 3, Tiling: 4, TransportWidth: 64,
			Input: mmult.Uint(8), Weight: mmult.Int(8), Output: mmult.Int(32)},
		{Batch: 12, Feat: 12, Classes: 5, Tiling: 3, TransportWidth: 48,
			Input: mmult.Int(12), Weight: mmult.Int(8), Output: mmult.Int(16)},
		{Batch: 6, Feat: 9, Classes: 7, Tiling: 6, TransportWidth: 27,
			Input: mmult.Uint(3), Weight: mmult.Int(9), Output: mmult.Uint(9)},
		{Batch: 4, Feat: 8, Classes: 10, Tiling: 1, TransportWidth: 64,
			Input: mmult.Int(32), Weight: mmult.Int(32), Output: mmult.Int(64)},
		{Batch: 32, Feat: 64, Classes: 10, Tiling: 8, TransportWidth: 64,
			Input: mmult.Uint(8), Weight: mmult.Int(8), Output: mmult.Int(32)},
	}
}

func TestRunMatchesReference(t *testing.T) {
	rng := testRNG()
	levels := []mmult.DispatchLevel{mmult.DispatchScalar, mmult.DispatchUnroll4, mmult.DispatchUnroll8}

	for _, cfg := range randomConfigs() {
		if err := cfg.Validate(); err != nil {
			t.Fatalf("test config %v: %v", cfg, err)
		}
		p := host.RandomProblem(cfg, rng)
		inbound, err := host.Encode(cfg, p)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		want := host.Reference(cfg, p)

		for _, level := range levels {
			for _, workers := range []int{1, 3} {
				for _, pipeline := range []bool{false, true} {
					name := fmt.Sprintf("%v/%v/workers=%d/pipeline=%v", cfg, level, workers, pipeline)
					t.Run(name, func(t *testing.T) {
						packets, stats, err := runKernel(t, cfg, inbound,
							WithLevel(level), WithWorkers(workers), WithPipeline(pipeline), WithStrictFraming(true))
						if err != nil {
							t.Fatalf("Run: %v", err)
						}
						got, err := host.Decode(cfg, packets)
						if err != nil {
							t.Fatalf("Decode: %v", err)
						}
						if diff := cmp.Diff(want, got); diff != "" {
							t.Errorf("outputs mismatch (-want +got):\n%s", diff)
						}
						if stats.InboundPackets != cfg.InboundPackets() || stats.OutboundPackets != cfg.OutboundPackets() {
							t.Errorf("stats = %+v, want %d in, %d out", stats, cfg.InboundPackets(), cfg.OutboundPackets())
						}
						if stats.Tiles != cfg.Tiles() || stats.Level != level {
							t.Errorf("stats = %+v, want %d tiles at %v", stats, cfg.Tiles(), level)
						}
					})
				}
			}
		}
	}
}

func TestRunLastMarkerOnlyOnFinalPacket(t *testing.T) {
	cfg := randomConfigs()[4]
	inbound, err := host.Encode(cfg, host.RandomProblem(cfg, testRNG()))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	packets, _, err := runKernel(t, cfg, inbound, WithPipeline(true))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	marked := 0
	for i, p := range packets {
		if p.Last {
			marked++
			if i != len(packets)-1 {
				t.Errorf("packet %d of %d carries the end-of-stream marker", i+1, len(packets))
			}
		}
	}
	if marked != 1 {
		t.Errorf("%d packets marked last, want 1", marked)
	}
}

func TestRunTilingTransparency(t *testing.T) {
	base := mmult.Config{
		Batch: 24, Feat: 16, Classes: 6, TransportWidth: 64,
		Input: mmult.Uint(8), Weight: mmult.Int(8), Output: mmult.Int(32),
	}
	p := host.RandomProblem(base, testRNG())

	var want []mmult.Packet
	for _, tiling := range []int{24, 12, 8, 6, 4, 3, 2, 1} {
		cfg := base
		cfg.Tiling = tiling
		inbound, err := host.Encode(cfg, p)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		got, _, err := runKernel(t, cfg, inbound)
		if err != nil {
			t.Fatalf("tiling=%d: Run: %v", tiling, err)
		}
		if want == nil {
			want = got
			continue
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("tiling=%d differs from tiling=%d (-want +got):\n%s", tiling, base.Batch, diff)
		}
	}
}

func TestRunUnderrun(t *testing.T) {
	cfg := scenarioConfig()
	inbound, err := host.Encode(cfg, scenarioProblem())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	testCases := []struct {
		name  string
		keep  int
		stage string
	}{
		{"one_input_packet_short", len(inbound) - 1, stageInput},
		{"no_inputs", cfg.ConstantPackets(), stageInput},
		{"weights_short", cfg.OffsetPackets() + 1, stageWeights},
		{"empty", 0, stageOffsets},
	}

	for _, tc := range testCases {
		for _, pipeline := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s/pipeline=%v", tc.name, pipeline), func(t *testing.T) {
				packets, stats, err := runKernel(t, cfg, inbound[:tc.keep], WithPipeline(pipeline))
				if !errors.Is(err, mmult.ErrUnderrun) {
					t.Fatalf("Run = %v, want ErrUnderrun", err)
				}
				var ue *mmult.UnderrunError
				if !errors.As(err, &ue) {
					t.Fatalf("Run error %v is not an *UnderrunError", err)
				}
				if ue.Stage != tc.stage || ue.Received != tc.keep || ue.Expected != len(inbound) {
					t.Errorf("underrun = %+v, want stage %s after %d of %d", ue, tc.stage, tc.keep, len(inbound))
				}
				if len(packets) != 0 || stats.OutboundPackets != 0 {
					t.Errorf("underrun emitted %d packets, want none", len(packets))
				}
			})
		}
	}
}

func TestRunUnderrunEmitsNoPartialTiles(t *testing.T) {
	// Several complete tiles arrive before the stream runs dry.
	cfg := randomConfigs()[4]
	inbound, err := host.Encode(cfg, host.RandomProblem(cfg, testRNG()))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	packets, stats, err := runKernel(t, cfg, inbound[:len(inbound)-1], WithPipeline(true))
	if !errors.Is(err, mmult.ErrUnderrun) {
		t.Fatalf("Run = %v, want ErrUnderrun", err)
	}
	if len(packets) != 0 {
		t.Errorf("underrun emitted %d packets, want none", len(packets))
	}
	if stats.InboundPackets != len(inbound)-1 {
		t.Errorf("InboundPackets = %d, want %d", stats.InboundPackets, len(inbound)-1)
	}
}

func TestRunStrictFraming(t *testing.T) {
	cfg := scenarioConfig()
	inbound, err := host.Encode(cfg, scenarioProblem())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	early := append([]mmult.Packet(nil), inbound...)
	early[2].Last = true
	if _, _, err := runKernel(t, cfg, early, WithStrictFraming(true)); !errors.Is(err, mmult.ErrUnderrun) {
		t.Errorf("early marker: Run = %v, want ErrUnderrun", err)
	}
	// Without strict framing the marker is not interpreted.
	if _, _, err := runKernel(t, cfg, early); err != nil {
		t.Errorf("early marker, lax framing: Run = %v", err)
	}

	missing := append([]mmult.Packet(nil), inbound...)
	missing[len(missing)-1].Last = false
	if _, _, err := runKernel(t, cfg, missing, WithStrictFraming(true)); !errors.Is(err, mmult.ErrFraming) {
		t.Errorf("missing marker: Run = %v, want ErrFraming", err)
	}
}

func TestRunLeavesTrailingPackets(t *testing.T) {
	cfg := scenarioConfig()
	inbound, err := host.Encode(cfg, scenarioProblem())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	extra := append(append([]mmult.Packet(nil), inbound...), mmult.Packet{Data: 0xdead})

	k, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer k.Close()
	src := stream.NewSliceSource(extra)
	if _, err := k.Run(context.Background(), src, stream.NewSliceSink(0)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if src.Remaining() != 1 {
		t.Errorf("Remaining() = %d, want 1", src.Remaining())
	}
}

func TestRunCancelledWhileWaiting(t *testing.T) {
	cfg := scenarioConfig()
	inbound, err := host.Encode(cfg, scenarioProblem())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	src, sink, closeFn := stream.Pipe(len(inbound))
	defer closeFn()
	for _, p := range inbound[:3] {
		if err := sink.Send(context.Background(), p); err != nil {
			t.Fatal(err)
		}
	}

	k, err := New(cfg, WithPipeline(true))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer k.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	dst := stream.NewSliceSink(0)
	_, err = k.Run(ctx, src, dst)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run = %v, want context.DeadlineExceeded", err)
	}
	if dst.Len() != 0 {
		t.Errorf("cancelled run emitted %d packets", dst.Len())
	}
}

func TestRunOverChannels(t *testing.T) {
	cfg := randomConfigs()[0]
	p := host.RandomProblem(cfg, testRNG())
	inbound, err := host.Encode(cfg, p)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	ctx := context.Background()
	inSrc, inSink, closeIn := stream.Pipe(1)
	outSrc, outSink, closeOut := stream.Pipe(1)

	go func() {
		defer closeIn()
		for _, pkt := range inbound {
			if err := inSink.Send(ctx, pkt); err != nil {
				return
			}
		}
	}()

	k, err := New(cfg, WithPipeline(true))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer k.Close()

	errC := make(chan error, 1)
	go func() {
		defer closeOut()
		_, err := k.Run(ctx, inSrc, outSink)
		errC <- err
	}()

	collected := stream.NewSliceSink(0)
	if _, err := stream.Forward(ctx, outSrc, collected); err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if err := <-errC; err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, err := host.Decode(cfg, collected.Packets())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if diff := cmp.Diff(host.Reference(cfg, p), got); diff != "" {
		t.Errorf("outputs mismatch (-want +got):\n%s", diff)
	}
}

func TestConcurrentRunsShareKernel(t *testing.T) {
	cfg := randomConfigs()[4]
	pool := workerpool.New(4)
	defer pool.Close()

	k, err := New(cfg, WithPool(pool), WithPipeline(true))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer k.Close()

	const runs = 4
	rng := testRNG()
	problems := make([]host.Problem, runs)
	for i := range problems {
		problems[i] = host.RandomProblem(cfg, rng)
	}

	var wg sync.WaitGroup
	errs := make([]error, runs)
	outs := make([][]mmult.Packet, runs)
	for i := range runs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inbound, err := host.Encode(cfg, problems[i])
			if err != nil {
				errs[i] = err
				return
			}
			dst := stream.NewSliceSink(cfg.OutboundPackets())
			_, errs[i] = k.Run(context.Background(), stream.NewSliceSource(inbound), dst)
			outs[i] = dst.Packets()
		}()
	}
	wg.Wait()

	for i := range runs {
		if errs[i] != nil {
			t.Fatalf("run %d: %v", i, errs[i])
		}
		got, err := host.Decode(cfg, outs[i])
		if err != nil {
			t.Fatalf("run %d: Decode: %v", i, err)
		}
		if diff := cmp.Diff(host.Reference(cfg, problems[i]), got); diff != "" {
			t.Errorf("run %d outputs mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func BenchmarkRunDefault(b *testing.B) {
	cfg := mmult.DefaultConfig()
	inbound, err := host.Encode(cfg, host.RandomProblem(cfg, testRNG()))
	if err != nil {
		b.Fatal(err)
	}
	for _, pipeline := range []bool{false, true} {
		b.Run(fmt.Sprintf("pipeline=%v", pipeline), func(b *testing.B) {
			k, err := New(cfg, WithPipeline(pipeline))
			if err != nil {
				b.Fatal(err)
			}
			defer k.Close()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				dst := stream.NewSliceSink(cfg.OutboundPackets())
				if _, err := k.Run(context.Background(), stream.NewSliceSource(inbound), dst); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

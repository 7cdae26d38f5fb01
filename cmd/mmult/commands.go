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

package main

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/LiewWS/cs5222-lab-fpga/mmult"
	"github.com/LiewWS/cs5222-lab-fpga/mmult/host"
	"github.com/LiewWS/cs5222-lab-fpga/mmult/kernel"
	"github.com/LiewWS/cs5222-lab-fpga/mmult/stream"
)

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the configuration, packing ratios and packet counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "config:    %v\n", cfg)
			fmt.Fprintf(w, "ratios:    in=%d w=%d out=%d\n", cfg.InputRatio(), cfg.WeightRatio(), cfg.OutputRatio())
			fmt.Fprintf(w, "tiles:     %d x %d rows\n", cfg.Tiles(), cfg.Tiling)
			fmt.Fprintf(w, "inbound:   %d packets (%d offsets, %d weights, %d inputs)\n",
				cfg.InboundPackets(), cfg.OffsetPackets(), cfg.Classes*cfg.WeightPacketsPerRow(), cfg.Batch*cfg.InputPacketsPerRow())
			fmt.Fprintf(w, "outbound:  %d packets\n", cfg.OutboundPackets())
			fmt.Fprintf(w, "dispatch:  %v (cpu: %s)\n", mmult.CurrentLevel(), mmult.CPUFeatures())
			fmt.Fprintf(w, "workers:   %d\n", mmult.DefaultWorkers())
			return nil
		},
	}
}

func newGenCmd(a *app) *cobra.Command {
	var (
		seed   int64
		inPath string
		want   string
	)
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate a random inbound stream and its expected outbound stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.streamFormat()
			if err != nil {
				return err
			}
			p := host.RandomProblem(a.cfg, rand.New(rand.NewSource(seed)))
			inbound, err := host.Encode(a.cfg, p)
			if err != nil {
				return err
			}
			if err := writePackets(inPath, format, inbound); err != nil {
				return err
			}
			if want != "" {
				expected := host.EncodeOutputs(a.cfg, host.Reference(a.cfg, p))
				if err := writePackets(want, format, expected); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d inbound packets to %s\n", len(inbound), inPath)
			return nil
		},
	}
	fs := cmd.Flags()
	fs.Int64Var(&seed, "seed", 1, "random seed")
	fs.StringVar(&inPath, "in", "", "inbound stream file to write")
	fs.StringVar(&want, "want", "", "expected outbound stream file to write")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func newRunCmd(a *app) *cobra.Command {
	var (
		inPath   string
		outPath  string
		workers  int
		pipeline bool
		strict   bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the kernel over an inbound stream file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.streamFormat()
			if err != nil {
				return err
			}
			k, err := kernel.New(a.cfg,
				kernel.WithWorkers(workers), kernel.WithPipeline(pipeline), kernel.WithStrictFraming(strict))
			if err != nil {
				return err
			}
			defer k.Close()

			in, err := os.Open(inPath)
			if err != nil {
				return err
			}
			defer in.Close()
			out, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer out.Close()

			src := stream.NewReader(bufio.NewReader(in), format)
			dst := stream.NewWriter(out, format)
			stats, err := k.Run(cmd.Context(), src, dst)
			if err != nil {
				return fmt.Errorf("run %s: %w", inPath, err)
			}
			if err := dst.Flush(); err != nil {
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
			klog.V(1).Infof("mmult: %+v", stats)
			fmt.Fprintf(cmd.OutOrStdout(), "in=%d out=%d tiles=%d level=%v elapsed=%v\n",
				stats.InboundPackets, stats.OutboundPackets, stats.Tiles, stats.Level, stats.Elapsed)
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&inPath, "in", "", "inbound stream file")
	fs.StringVar(&outPath, "out", "", "outbound stream file to write")
	fs.IntVar(&workers, "workers", mmult.DefaultWorkers(), "engine workers (1 computes inline)")
	fs.BoolVar(&pipeline, "pipeline", false, "overlap tile staging with compute")
	fs.BoolVar(&strict, "strict", false, "require the inbound end-of-stream marker on exactly the final packet")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newCheckCmd(a *app) *cobra.Command {
	var got, want string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compare an outbound stream file against the expected one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.streamFormat()
			if err != nil {
				return err
			}
			gotPackets, err := readPackets(got, format)
			if err != nil {
				return err
			}
			wantPackets, err := readPackets(want, format)
			if err != nil {
				return err
			}
			if err := comparePackets(gotPackets, wantPackets); err != nil {
				return err
			}
			// Also checks the count and end-of-stream framing for this shape.
			if _, err := host.Decode(a.cfg, gotPackets); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d packets match\n", len(gotPackets))
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&got, "got", "", "outbound stream produced by run")
	fs.StringVar(&want, "want", "", "expected outbound stream")
	_ = cmd.MarkFlagRequired("got")
	_ = cmd.MarkFlagRequired("want")
	return cmd
}

func comparePackets(got, want []mmult.Packet) error {
	for i := range min(len(got), len(want)) {
		if got[i] != want[i] {
			return fmt.Errorf("packet %d: got %v, want %v", i, got[i], want[i])
		}
	}
	if len(got) != len(want) {
		return fmt.Errorf("%w: got %d packets, want %d", mmult.ErrCount, len(got), len(want))
	}
	return nil
}

func readPackets(path string, format stream.Format) ([]mmult.Packet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	packets, err := stream.ReadAll(bufio.NewReader(f), format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return packets, nil
}

func writePackets(path string, format stream.Format, packets []mmult.Packet) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := stream.WriteAll(f, format, packets); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

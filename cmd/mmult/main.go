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

// Command mmult drives the streaming matrix-multiply kernel from packet
// stream files.
//
// Usage:
//
//	mmult info --batch 64 --tiling 16
//	mmult gen --seed 7 --in in.bin --want want.bin
//	mmult run --in in.bin --out got.bin --pipeline
//	mmult check --got got.bin --want want.bin
//
// Every command accepts the shape flags (--batch, --feat, --classes,
// --tiling, --transport-width and the per-field --*-width/--*-signed
// flags) plus the klog flags, e.g. -v=2 to log every tile.
package main

import (
	goflag "flag"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/LiewWS/cs5222-lab-fpga/mmult"
	"github.com/LiewWS/cs5222-lab-fpga/mmult/stream"
)

// app holds the state shared by all subcommands.
type app struct {
	cfg    mmult.Config
	format string
}

func (a *app) streamFormat() (stream.Format, error) {
	return stream.ParseFormat(a.format)
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: mmult.DefaultConfig(), format: "bin"}

	root := &cobra.Command{
		Use:           "mmult",
		Short:         "Software model of a streaming fixed-point matrix-multiply kernel",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.streamFormat(); err != nil {
				return err
			}
			return a.cfg.Validate()
		},
	}

	pf := root.PersistentFlags()
	mmult.BindFlags(pf, &a.cfg)
	pf.StringVar(&a.format, "format", a.format, "packet file format: bin or text")

	gfs := goflag.NewFlagSet("klog", goflag.ContinueOnError)
	klog.InitFlags(gfs)
	pf.AddGoFlagSet(gfs)

	root.AddCommand(
		newInfoCmd(a),
		newGenCmd(a),
		newRunCmd(a),
		newCheckCmd(a),
	)
	return root
}

func main() {
	defer klog.Flush()
	if err := newRootCmd().Execute(); err != nil {
		klog.Errorf("mmult: %v", err)
		klog.Flush()
		os.Exit(1)
	}
}

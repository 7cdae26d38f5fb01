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

import "github.com/spf13/pflag"

// BindFlags registers the shape flags on fs, with the current values of cfg
// as defaults. Parsing fs writes straight into cfg.
func BindFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.IntVar(&cfg.Batch, "batch", cfg.Batch, "input rows per run (BATCH)")
	fs.IntVar(&cfg.Feat, "feat", cfg.Feat, "features per input row (FEAT)")
	fs.IntVar(&cfg.Classes, "classes", cfg.Classes, "output classes, i.e. weight rows (CLASSES)")
	fs.IntVar(&cfg.Tiling, "tiling", cfg.Tiling, "input rows staged per tile (TILING)")
	fs.IntVar(&cfg.TransportWidth, "transport-width", cfg.TransportWidth, "transport word width in bits")
	bindField(fs, &cfg.Input, "in", "input")
	bindField(fs, &cfg.Weight, "w", "weight")
	bindField(fs, &cfg.Output, "out", "output and offset")
}

func bindField(fs *pflag.FlagSet, f *Field, prefix, what string) {
	fs.IntVar(&f.Width, prefix+"-width", f.Width, what+" field width in bits")
	fs.BoolVar(&f.Signed, prefix+"-signed", f.Signed, what+" fields are two's complement")
}

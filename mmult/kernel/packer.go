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

import "github.com/LiewWS/cs5222-lab-fpga/mmult"

// packer turns tile outputs into outbound packets. Packets are staged in a
// run-owned slice of exactly OutboundPackets entries and only reach the
// outbound channel once the run has succeeded.
type packer struct {
	cfg    mmult.Config
	total  int
	staged []mmult.Packet
}

func newPacker(cfg mmult.Config) *packer {
	total := cfg.OutboundPackets()
	return &packer{cfg: cfg, total: total, staged: make([]mmult.Packet, 0, total)}
}

// packTile drains tileOut row-major. Each row becomes
// ceil(Classes/OutputRatio) packets, the trailing slots of the last one
// zero. Only the packet that brings the count to the static total carries
// the end-of-stream marker.
func (pk *packer) packTile(tileOut []int64) {
	cfg := pk.cfg
	ratio := cfg.OutputRatio()
	for i := range cfg.Tiling {
		row := tileOut[i*cfg.Classes : (i+1)*cfg.Classes]
		for j := 0; j < cfg.Classes; j += ratio {
			last := len(pk.staged)+1 == pk.total
			pk.staged = append(pk.staged, mmult.Pack(row[j:min(j+ratio, cfg.Classes)], cfg.Output, last))
		}
	}
}

func (pk *packer) emitted() int {
	return len(pk.staged)
}

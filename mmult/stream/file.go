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

package stream

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/LiewWS/cs5222-lab-fpga/mmult"
)

// Format selects the on-disk packet encoding.
type Format int

const (
	// FormatBinary stores each packet as an 8-byte little-endian word
	// followed by one flag byte (bit 0 = Last).
	FormatBinary Format = iota

	// FormatText stores one packet per line as 16 hex digits, followed by
	// " last" when the marker is set. Blank lines and lines starting with
	// '#' are ignored on read.
	FormatText
)

const binaryRecordSize = 9

const flagLast = 1

// String returns "bin" or "text".
func (f Format) String() string {
	switch f {
	case FormatBinary:
		return "bin"
	case FormatText:
		return "text"
	default:
		return "unknown"
	}
}

// ParseFormat parses "bin"/"binary" or "text"/"hex".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "bin", "binary":
		return FormatBinary, nil
	case "text", "hex":
		return FormatText, nil
	default:
		return 0, fmt.Errorf("stream: unknown format %q (want bin or text)", s)
	}
}

// Reader is a Source decoding packets from an io.Reader.
type Reader struct {
	format Format
	br     *bufio.Reader
	line   int
	rec    [binaryRecordSize]byte
}

// NewReader returns a Source reading packets in the given format.
func NewReader(r io.Reader, format Format) *Reader {
	return &Reader{format: format, br: bufio.NewReader(r)}
}

// Recv decodes the next packet. A truncated binary record is
// io.ErrUnexpectedEOF; a malformed text line reports its line number.
func (r *Reader) Recv(ctx context.Context) (mmult.Packet, error) {
	if err := ctx.Err(); err != nil {
		return mmult.Packet{}, err
	}
	if r.format == FormatText {
		return r.recvText()
	}
	if _, err := io.ReadFull(r.br, r.rec[:]); err != nil {
		return mmult.Packet{}, err
	}
	return mmult.Packet{
		Data: mmult.Word(binary.LittleEndian.Uint64(r.rec[:8])),
		Last: r.rec[8]&flagLast != 0,
	}, nil
}

func (r *Reader) recvText() (mmult.Packet, error) {
	for {
		s, err := r.br.ReadString('\n')
		if err != nil && (err != io.EOF || s == "") {
			return mmult.Packet{}, err
		}
		r.line++
		s = strings.TrimSpace(s)
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		fields := strings.Fields(s)
		w, perr := strconv.ParseUint(strings.TrimPrefix(fields[0], "0x"), 16, 64)
		if perr != nil {
			return mmult.Packet{}, fmt.Errorf("stream: line %d: %w", r.line, perr)
		}
		p := mmult.Packet{Data: mmult.Word(w)}
		switch {
		case len(fields) == 1:
		case len(fields) == 2 && fields[1] == "last":
			p.Last = true
		default:
			return mmult.Packet{}, fmt.Errorf("stream: line %d: unexpected %q", r.line, s)
		}
		return p, nil
	}
}

// Writer is a Sink encoding packets to an io.Writer. Call Flush when done.
type Writer struct {
	format Format
	bw     *bufio.Writer
	rec    [binaryRecordSize]byte
}

// NewWriter returns a Sink writing packets in the given format.
func NewWriter(w io.Writer, format Format) *Writer {
	return &Writer{format: format, bw: bufio.NewWriter(w)}
}

// Send encodes p.
func (w *Writer) Send(ctx context.Context, p mmult.Packet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.format == FormatText {
		_, err := fmt.Fprintln(w.bw, p.String())
		return err
	}
	binary.LittleEndian.PutUint64(w.rec[:8], uint64(p.Data))
	w.rec[8] = 0
	if p.Last {
		w.rec[8] = flagLast
	}
	_, err := w.bw.Write(w.rec[:])
	return err
}

// Flush writes any buffered data to the underlying io.Writer.
func (w *Writer) Flush() error {
	return w.bw.Flush()
}

// ReadAll decodes every packet in r.
func ReadAll(r io.Reader, format Format) ([]mmult.Packet, error) {
	return Drain(context.Background(), NewReader(r, format))
}

// WriteAll encodes packets to w and flushes.
func WriteAll(w io.Writer, format Format, packets []mmult.Packet) error {
	pw := NewWriter(w, format)
	ctx := context.Background()
	for _, p := range packets {
		if err := pw.Send(ctx, p); err != nil {
			return err
		}
	}
	if err := pw.Flush(); err != nil {
		return fmt.Errorf("stream: flush: %w", err)
	}
	return nil
}

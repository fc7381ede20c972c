// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package gziptext

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"time"

	"github.com/klauspost/compress/flate"
)

// now is a function pointer that returns time.Now to the caller.
var now = time.Now

// magicBytesGZip are the magic bytes for gzip compressed files.
var magicBytesGZip = [][]byte{
	{gzipID1, gzipID2},
}

// IsGZip checks if the header matches the magic bytes for gzip
// compressed files.
func IsGZip(header []byte) bool {
	for _, magic := range magicBytesGZip {
		if len(header) >= len(magic) && bytes.Equal(header[:len(magic)], magic) {
			return true
		}
	}
	return false
}

// countReader tracks the byte offset of every read so the exact end of
// a member's compressed data can be recovered. The deflate decoder pulls
// its input through ReadByte and therefore never consumes past the end
// of the compressed stream, which makes the counter the authoritative
// member boundary.
type countReader struct {
	r *bufio.Reader
	n int64
}

func (cr *countReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += int64(n)
	return n, err
}

func (cr *countReader) ReadByte() (byte, error) {
	b, err := cr.r.ReadByte()
	if err == nil {
		cr.n++
	}
	return b, err
}

func (cr *countReader) count() int64 {
	return cr.n
}

func newCountReader(r io.Reader) *countReader {
	if br, ok := r.(*bufio.Reader); ok {
		return &countReader{r: br}
	}
	return &countReader{r: bufio.NewReader(r)}
}

// Parser walks a stream of concatenated gzip members. Members are
// decoded lazily, one per Next call, so a caller can stop early without
// reading the rest of the input. Parsing is strictly sequential: each
// member's boundary is only discoverable after decoding everything
// before it.
type Parser struct {
	cfg   *Config
	cr    *countReader
	ler   *limitErrorReader
	fr    io.ReadCloser
	chunk []byte
	err   error
	td    *TelemetryData
}

// NewParser returns a Parser reading members from src. If cfg is nil
// the default configuration is used. Callers should Close the parser
// when done to release the deflate decoder; the underlying reader is
// not closed.
func NewParser(src io.Reader, cfg *Config) *Parser {
	if cfg == nil {
		cfg = NewConfig()
	}
	ler := newLimitErrorReader(src, cfg.MaxInputSize())
	return &Parser{
		cfg:   cfg,
		cr:    newCountReader(bufio.NewReader(ler)),
		ler:   ler,
		chunk: make([]byte, cfg.ChunkSize()),
	}
}

// Next decodes the next member of the stream. It returns io.EOF when
// the input is exhausted. After any other error the parser is stuck:
// the stream position is no longer trustworthy and no resynchronization
// is attempted, so subsequent calls return the same error.
func (p *Parser) Next() (*Member, error) {
	if p.err != nil {
		return nil, p.err
	}

	// end of input before the next header terminates the sequence
	if _, err := p.cr.r.Peek(1); err == io.EOF {
		p.err = io.EOF
		return nil, io.EOF
	}

	m, err := p.next()
	if err != nil {
		p.err = err
		return nil, err
	}
	if p.td != nil {
		p.td.Members++
	}
	return m, nil
}

func (p *Parser) next() (*Member, error) {
	m, err := readHeader(p.cr, p.cfg)
	if err != nil {
		return nil, err
	}
	p.cfg.Logger().Debug("parsed member header",
		"offset", m.HeaderOffset, "cm", m.CM, "flg", uint8(m.Flags), "name", m.FileName())

	size, digest, err := p.scanPayload(m)
	if err != nil {
		return nil, err
	}
	if p.td != nil {
		p.td.CompressedBytes += p.cr.count() - m.DataOffset
		p.td.UncompressedBytes += size
	}

	m.CRC32, m.ISize, err = readFooter(p.cr)
	if err != nil {
		return nil, err
	}

	if m.CRC32 != digest || m.ISize != uint32(size) {
		if p.cfg.StrictCRC() {
			return nil, fmt.Errorf("%w: footer crc32=%#08x isize=%d, computed crc32=%#08x isize=%d",
				ErrChecksum, m.CRC32, m.ISize, digest, uint32(size))
		}
		p.cfg.Logger().Warn("footer checksum mismatch",
			"crc32", m.CRC32, "isize", m.ISize, "computedCrc32", digest, "computedIsize", uint32(size))
	}

	return m, nil
}

// scanPayload drives the deflate decoder until the end-of-stream marker
// and leaves the stream cursor exactly at the first footer byte. The
// payload is accumulated on the member only when configured; the CRC-32
// digest and size are always computed.
func (p *Parser) scanPayload(m *Member) (int64, uint32, error) {
	m.DataOffset = p.cr.count()

	if p.fr == nil {
		p.fr = flate.NewReader(p.cr)
	} else if err := p.fr.(flate.Resetter).Reset(p.cr, nil); err != nil {
		return 0, 0, err
	}

	var payload *bytes.Buffer
	if p.cfg.CapturePayload() {
		payload = new(bytes.Buffer)
	}

	digest := crc32.NewIEEE()
	var size int64
	for {
		n, err := p.fr.Read(p.chunk)
		if n > 0 {
			size += int64(n)
			digest.Write(p.chunk[:n])
			if payload != nil {
				payload.Write(p.chunk[:n])
			}
			if err := p.cfg.CheckPayloadSize(size); err != nil {
				return size, 0, err
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return size, 0, p.classifyInflateError(m, err)
		}
	}

	if payload != nil {
		m.Payload = payload.Bytes()
		if m.Payload == nil {
			m.Payload = []byte{}
		}
	}
	return size, digest.Sum32(), nil
}

func (p *Parser) classifyInflateError(m *Member, err error) error {
	var corrupt flate.CorruptInputError
	if errors.As(err, &corrupt) {
		return &CorruptPayloadError{Offset: m.DataOffset, Err: err}
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || err == io.EOF {
		return &TruncatedInputError{Offset: p.cr.count(), Field: "deflate stream"}
	}
	return err
}

// Offset returns the current byte position in the input stream. After a
// successful Next it points at the first byte after the member footer,
// which is where the following member's header starts.
func (p *Parser) Offset() int64 {
	return p.cr.count()
}

// Close releases the deflate decoder. It does not close the underlying
// reader.
func (p *Parser) Close() error {
	if p.fr == nil {
		return nil
	}
	fr := p.fr
	p.fr = nil
	return fr.Close()
}

// Parse decodes all members of src and returns them in stream order.
// Parsing halts on the first error; members decoded up to that point
// are returned alongside the error. Telemetry data is captured and
// submitted through the configured hook when the parse finishes.
func Parse(ctx context.Context, src io.Reader, cfg *Config) ([]*Member, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	cfg.Logger().Info("parse", "capturePayload", cfg.CapturePayload())

	// prepare telemetry capturing
	td := &TelemetryData{}
	defer cfg.TelemetryHook()(ctx, td)
	defer captureParseDuration(td, now())

	p := NewParser(src, cfg)
	p.td = td
	defer p.Close()
	defer captureInputSize(td, p.ler)

	var members []*Member
	for {
		// check if context is canceled
		if err := ctx.Err(); err != nil {
			return members, handleError(cfg, td, "context error", err)
		}

		m, err := p.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return members, handleError(cfg, td, "cannot parse member", err)
		}
		members = append(members, m)
	}

	return members, nil
}

// handleError sets the latest error on the telemetry data and logs it.
// The sequencer never resynchronizes, so the error always ends the parse.
func handleError(cfg *Config, td *TelemetryData, msg string, err error) error {
	td.ParseErrors++
	td.LastParseError = err
	cfg.Logger().Error(msg, "error", err)
	return err
}

// captureParseDuration captures the duration of the parse
func captureParseDuration(td *TelemetryData, start time.Time) {
	stop := now()
	td.ParseDuration = stop.Sub(start)
}

// captureInputSize captures the input size of the parse
func captureInputSize(td *TelemetryData, ler *limitErrorReader) {
	td.InputSize = int64(ler.ReadBytes())
}

// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package gziptext

import (
	"context"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"
)

// XFL hint values defined for deflate, RFC 1952 section 2.3.1
const (
	xflBestCompression = 2
	xflBestSpeed       = 4
)

// Writer re-assembles decoded members into a binary gzip stream.
// Members are independent; each WriteMember emits one complete member
// (header, compressed payload, footer).
type Writer struct {
	w     io.Writer
	cfg   *Config
	fw    *flate.Writer
	level int
}

// NewWriter returns a Writer emitting members to w. If cfg is nil the
// default configuration is used.
func NewWriter(w io.Writer, cfg *Config) *Writer {
	if cfg == nil {
		cfg = NewConfig()
	}
	return &Writer{w: w, cfg: cfg}
}

// WriteMember serializes the header of m, compresses its payload and
// appends the footer. The footer CRC32 and ISIZE are recomputed from
// the payload; only a member without a captured payload (parsed with
// payload capture disabled) falls back to the stored footer values, and
// then cannot reproduce the original data.
func (w *Writer) WriteMember(m *Member) error {
	header, err := appendHeader(make([]byte, 0, 64), m)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(header); err != nil {
		return fmt.Errorf("cannot write member header: %w", err)
	}

	if err := w.compressPayload(m); err != nil {
		return err
	}

	crc, isize := m.CRC32, m.ISize
	if m.Payload != nil {
		crc = crc32.ChecksumIEEE(m.Payload)
		isize = uint32(len(m.Payload))
	}
	if _, err := w.w.Write(appendFooter(make([]byte, 0, 8), crc, isize)); err != nil {
		return fmt.Errorf("cannot write member footer: %w", err)
	}
	return nil
}

// compressPayload feeds the payload through a raw deflate compressor
// and flushes it to completion. The round trip is defined at the
// decompressed-payload level; the compressed bytes are not guaranteed
// to be identical to the original stream.
func (w *Writer) compressPayload(m *Member) error {
	level := w.cfg.CompressionLevel()

	// honor the XFL hint of the member so a re-assembled file keeps
	// the compression characteristics it declares
	switch m.ExtraFlags {
	case xflBestCompression:
		level = flate.BestCompression
	case xflBestSpeed:
		level = flate.BestSpeed
	}

	if w.fw == nil || level != w.level {
		fw, err := flate.NewWriter(w.w, level)
		if err != nil {
			return fmt.Errorf("cannot create deflate writer: %w", err)
		}
		w.fw = fw
		w.level = level
	} else {
		w.fw.Reset(w.w)
	}

	if _, err := w.fw.Write(m.Payload); err != nil {
		return fmt.Errorf("cannot compress payload: %w", err)
	}
	if err := w.fw.Close(); err != nil {
		return fmt.Errorf("cannot flush deflate stream: %w", err)
	}
	return nil
}

// Write re-assembles members into w in order. The inverse of [Parse].
func Write(ctx context.Context, w io.Writer, members []*Member, cfg *Config) error {
	if cfg == nil {
		cfg = NewConfig()
	}
	cfg.Logger().Info("write", "members", len(members))

	gw := NewWriter(w, cfg)
	for i, m := range members {
		// check if context is canceled
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := gw.WriteMember(m); err != nil {
			return fmt.Errorf("cannot write member %d: %w", i, err)
		}
	}
	return nil
}

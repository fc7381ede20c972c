// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package gziptext

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
)

// DecodeHeader reads exactly one member header from r and returns it as
// a [Member] with footer and payload fields zeroed. It is the codec
// counterpart of [EncodeHeader]; the member parser uses the same walk
// internally.
func DecodeHeader(r io.Reader) (*Member, error) {
	return readHeader(newCountReader(r), NewConfig())
}

// readHeader parses the fixed 10-byte header and the flag-governed
// optional fields from cr. The walk matches RFC 1952 section 2.3: extra
// field, file name, comment, header CRC, strictly in that order.
func readHeader(cr *countReader, cfg *Config) (*Member, error) {
	start := cr.count()

	var fixed [10]byte
	if _, err := io.ReadFull(cr, fixed[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, &TruncatedInputError{Offset: cr.count(), Field: "fixed header"}
		}
		return nil, err
	}
	if fixed[0] != gzipID1 || fixed[1] != gzipID2 {
		return nil, &BadMagicError{Offset: start, ID1: fixed[0], ID2: fixed[1]}
	}

	m := &Member{
		CM:           fixed[2],
		Flags:        Flags(fixed[3]),
		ModTime:      binary.LittleEndian.Uint32(fixed[4:8]),
		ExtraFlags:   fixed[8],
		OS:           fixed[9],
		HeaderOffset: start,
	}

	// unknown methods and reserved flag bits are data, not failures
	if m.CM != CMDeflate {
		cfg.Logger().Debug("unknown compression method", "cm", m.CM, "offset", start)
	}
	if m.Flags&flagReserved != 0 {
		cfg.Logger().Warn("reserved flag bits set", "flg", uint8(m.Flags), "offset", start)
	}

	// raw accumulates the header bytes read so far for FHCRC verification
	raw := append(make([]byte, 0, 64), fixed[:]...)

	if m.Flags.Has(FlagExtra) {
		var lenBuf [2]byte
		if _, err := io.ReadFull(cr, lenBuf[:]); err != nil {
			return nil, &TruncatedInputError{Offset: cr.count(), Field: "extra field length"}
		}
		xlen := binary.LittleEndian.Uint16(lenBuf[:])
		xdataOff := cr.count()
		xdata := make([]byte, xlen)
		if _, err := io.ReadFull(cr, xdata); err != nil {
			return nil, &TruncatedInputError{Offset: cr.count(), Field: "extra field"}
		}
		recs, err := parseExtra(xdata, xdataOff)
		if err != nil {
			return nil, err
		}
		m.Extra = recs
		raw = append(raw, lenBuf[:]...)
		raw = append(raw, xdata...)
	}

	if m.Flags.Has(FlagName) {
		name, err := readCString(cr, "file name")
		if err != nil {
			return nil, err
		}
		m.Name = name
		raw = append(append(raw, name...), 0)
	}

	if m.Flags.Has(FlagComment) {
		comment, err := readCString(cr, "comment")
		if err != nil {
			return nil, err
		}
		m.Comment = comment
		raw = append(append(raw, comment...), 0)
	}

	if m.Flags.Has(FlagHeaderCRC) {
		want := uint16(crc32.ChecksumIEEE(raw))
		var crcBuf [2]byte
		if _, err := io.ReadFull(cr, crcBuf[:]); err != nil {
			return nil, &TruncatedInputError{Offset: cr.count(), Field: "header checksum"}
		}
		got := binary.LittleEndian.Uint16(crcBuf[:])
		m.HeaderCRC = &got
		if got != want {
			if cfg.StrictCRC() {
				return nil, fmt.Errorf("%w: got %#04x, want %#04x", ErrHeaderChecksum, got, want)
			}
			cfg.Logger().Warn("header checksum mismatch", "got", got, "want", want, "offset", start)
		}
	}

	return m, nil
}

// parseExtra splits the XLEN-sized buffer into subfield records. Each
// record declares its own data length; a record claiming more bytes
// than remain in the buffer is rejected.
func parseExtra(xdata []byte, off int64) ([]ExtraRecord, error) {
	recs := make([]ExtraRecord, 0, 1)
	rest := xdata
	for len(rest) > 0 {
		pos := off + int64(len(xdata)-len(rest))
		if len(rest) < 4 {
			return nil, &InvalidExtraFieldError{Offset: pos, Declared: 4, Remaining: len(rest)}
		}
		slen := int(binary.LittleEndian.Uint16(rest[2:4]))
		if slen > len(rest)-4 {
			return nil, &InvalidExtraFieldError{Offset: pos, Declared: slen, Remaining: len(rest) - 4}
		}
		recs = append(recs, ExtraRecord{
			SI1:  rest[0],
			SI2:  rest[1],
			Data: append([]byte{}, rest[4:4+slen]...),
		})
		rest = rest[4+slen:]
	}
	return recs, nil
}

// readCString reads bytes up to and excluding a NUL terminator. The
// result is never nil, so an empty string stays distinguishable from an
// absent field.
func readCString(cr *countReader, field string) ([]byte, error) {
	s := []byte{}
	for {
		c, err := cr.ReadByte()
		if err != nil {
			if err == io.EOF {
				return nil, &TruncatedInputError{Offset: cr.count(), Field: field}
			}
			return nil, err
		}
		if c == 0 {
			return s, nil
		}
		s = append(s, c)
	}
}

// EncodeHeader serializes the header fields of m back to canonical
// bytes. The flag presence bits are derived from which optional fields
// are non-nil; only FlagText and the reserved bits are carried over from
// m.Flags, so the emitted header can never contradict itself. A set
// HeaderCRC is recomputed over the emitted bytes rather than trusted.
func EncodeHeader(m *Member) ([]byte, error) {
	return appendHeader(make([]byte, 0, 64), m)
}

func appendHeader(dst []byte, m *Member) ([]byte, error) {
	if bytes.IndexByte(m.Name, 0) >= 0 {
		return nil, fmt.Errorf("gziptext: file name must not contain a NUL byte")
	}
	if bytes.IndexByte(m.Comment, 0) >= 0 {
		return nil, fmt.Errorf("gziptext: comment must not contain a NUL byte")
	}

	flg := m.Flags & (FlagText | flagReserved)
	if m.Extra != nil {
		flg |= FlagExtra
	}
	if m.Name != nil {
		flg |= FlagName
	}
	if m.Comment != nil {
		flg |= FlagComment
	}
	if m.HeaderCRC != nil {
		flg |= FlagHeaderCRC
	}

	start := len(dst)
	dst = append(dst, gzipID1, gzipID2, m.CM, byte(flg))
	dst = binary.LittleEndian.AppendUint32(dst, m.ModTime)
	dst = append(dst, m.ExtraFlags, m.OS)

	if m.Extra != nil {
		xlen := 0
		for _, rec := range m.Extra {
			if len(rec.Data) > 0xffff {
				return nil, fmt.Errorf("gziptext: extra subfield data exceeds 65535 bytes")
			}
			xlen += 4 + len(rec.Data)
		}
		if xlen > 0xffff {
			return nil, fmt.Errorf("gziptext: extra field exceeds 65535 bytes")
		}
		dst = binary.LittleEndian.AppendUint16(dst, uint16(xlen))
		for _, rec := range m.Extra {
			dst = append(dst, rec.SI1, rec.SI2)
			dst = binary.LittleEndian.AppendUint16(dst, uint16(len(rec.Data)))
			dst = append(dst, rec.Data...)
		}
	}

	if m.Name != nil {
		dst = append(append(dst, m.Name...), 0)
	}
	if m.Comment != nil {
		dst = append(append(dst, m.Comment...), 0)
	}
	if m.HeaderCRC != nil {
		crc16 := uint16(crc32.ChecksumIEEE(dst[start:]))
		dst = binary.LittleEndian.AppendUint16(dst, crc16)
	}

	return dst, nil
}

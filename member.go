// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package gziptext

import "time"

const (
	// magic bytes of a gzip member, RFC 1952 section 2.3.1
	gzipID1 = 0x1f
	gzipID2 = 0x8b

	// CMDeflate is the only compression method defined by RFC 1952.
	// Other values are preserved verbatim and not decoded further.
	CMDeflate byte = 8

	// OSUnknown is the operating system code for "unknown".
	OSUnknown byte = 255
)

// Flags is the FLG byte of a member header. The lower five bits govern
// which optional header fields are present, the upper three are reserved.
type Flags uint8

const (
	FlagText Flags = 1 << iota
	FlagHeaderCRC
	FlagExtra
	FlagName
	FlagComment
)

// flagReserved are the reserved FLG bits. RFC 1952 requires them to be
// zero; they are preserved verbatim and logged when set.
const flagReserved Flags = 0xe0

// Has returns true if all bits of flag are set.
func (f Flags) Has(flag Flags) bool {
	return f&flag == flag
}

// ExtraRecord is one subfield of the extra field, identified by a
// two-byte subfield ID.
type ExtraRecord struct {
	SI1  byte
	SI2  byte
	Data []byte
}

// Member is the decoded representation of one gzip member. Optional
// header fields are nil when their flag bit was clear in the stream;
// the encoder derives the presence bits from the fields, not from Flags.
//
// A Member returned by the parser is not referenced again; callers may
// modify it and feed it back into a [Writer] to re-assemble a gzip file.
type Member struct {
	// CM is the compression method. Only CMDeflate is defined.
	CM byte

	// Flags is the raw FLG byte as read from the stream. On encoding,
	// the field-presence bits are recomputed; only FlagText and the
	// reserved bits are taken from this value.
	Flags Flags

	// ModTime is the modification time in seconds since the Unix epoch,
	// 0 meaning not available.
	ModTime uint32

	// ExtraFlags is the XFL compressor hint (2 = best compression,
	// 4 = fastest).
	ExtraFlags byte

	// OS identifies the file system the compression was performed on.
	OS byte

	// Extra holds the subfields of the extra field, nil if FEXTRA was
	// clear. An empty non-nil slice represents a present field with
	// XLEN 0.
	Extra []ExtraRecord

	// Name and Comment are the raw latin-1 bytes without the NUL
	// terminator, nil if the corresponding flag was clear.
	Name    []byte
	Comment []byte

	// HeaderCRC is the stored FHCRC value, nil if the flag was clear.
	// It is the low 16 bits of the CRC-32 over the preceding header
	// bytes. The encoder recomputes it and ignores the stored value.
	HeaderCRC *uint16

	// Payload is the decompressed member data. It is nil when the
	// parser was configured not to capture payloads; an empty member
	// yields an empty non-nil slice.
	Payload []byte

	// CRC32 and ISize are the footer values: the CRC-32 of the
	// uncompressed data and its size modulo 2^32.
	CRC32 uint32
	ISize uint32

	// HeaderOffset and DataOffset are the byte offsets of the member
	// header and of the compressed payload within the input stream.
	HeaderOffset int64
	DataOffset   int64
}

// FileName returns the original file name decoded from latin-1, or the
// empty string if the header carried none.
func (m *Member) FileName() string {
	return latin1String(m.Name)
}

// CommentText returns the header comment decoded from latin-1, or the
// empty string if the header carried none.
func (m *Member) CommentText() string {
	return latin1String(m.Comment)
}

// ModTimeUTC returns the modification time as a UTC time.Time. The zero
// ModTime maps to the zero time.Time.
func (m *Member) ModTimeUTC() time.Time {
	if m.ModTime == 0 {
		return time.Time{}
	}
	return time.Unix(int64(m.ModTime), 0).UTC()
}

// latin1String decodes b with a one-byte-per-rune mapping. It never
// fails; every byte value 0-255 maps to the code point of equal value.
func latin1String(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	r := make([]rune, len(b))
	for i, c := range b {
		r[i] = rune(c)
	}
	return string(r)
}

// latin1Bytes is the inverse of latin1String. It fails if s contains a
// rune above U+00FF, which has no single-byte representation.
func latin1Bytes(s string) ([]byte, bool) {
	b := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xff {
			return nil, false
		}
		b = append(b, byte(r))
	}
	return b, true
}

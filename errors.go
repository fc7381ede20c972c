// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package gziptext

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrHeaderChecksum is returned in strict mode when the stored FHCRC
	// value does not match the checksum of the preceding header bytes.
	ErrHeaderChecksum = errors.New("gziptext: invalid header checksum")

	// ErrChecksum is returned in strict mode when the footer CRC32 or
	// ISIZE does not match the decompressed payload.
	ErrChecksum = errors.New("gziptext: invalid checksum")

	// ErrInputLimit is returned when the input exceeds the configured
	// maximum input size before a member was fully parsed.
	ErrInputLimit = errors.New("gziptext: input size limit exceeded")

	// ErrPayloadLimit is returned when the decompressed payload of a
	// member exceeds the configured maximum payload size.
	ErrPayloadLimit = errors.New("gziptext: payload size limit exceeded")
)

// BadMagicError is returned when the first two bytes of a member are not
// the gzip magic pair. It carries the offending bytes for diagnostics.
type BadMagicError struct {
	Offset int64
	ID1    byte
	ID2    byte
}

func (e *BadMagicError) Error() string {
	return fmt.Sprintf("gziptext: bad magic bytes [%#02x %#02x] at offset %d", e.ID1, e.ID2, e.Offset)
}

// TruncatedInputError is returned when the stream ends before a required
// field or the compressed payload was satisfiable. Field names the
// structure that was being read.
type TruncatedInputError struct {
	Offset int64
	Field  string
}

func (e *TruncatedInputError) Error() string {
	return fmt.Sprintf("gziptext: truncated input reading %s at offset %d", e.Field, e.Offset)
}

// Unwrap allows errors.Is(err, io.ErrUnexpectedEOF) checks.
func (e *TruncatedInputError) Unwrap() error {
	return io.ErrUnexpectedEOF
}

// CorruptPayloadError is returned when the deflate decoder rejects the
// compressed payload. Offset is the position where compressed data began.
type CorruptPayloadError struct {
	Offset int64
	Err    error
}

func (e *CorruptPayloadError) Error() string {
	return fmt.Sprintf("gziptext: corrupt deflate stream starting at offset %d: %v", e.Offset, e.Err)
}

func (e *CorruptPayloadError) Unwrap() error {
	return e.Err
}

// InvalidExtraFieldError is returned when a subfield inside the extra
// field claims more data bytes than remain in the declared XLEN buffer.
type InvalidExtraFieldError struct {
	Offset    int64
	Declared  int
	Remaining int
}

func (e *InvalidExtraFieldError) Error() string {
	return fmt.Sprintf("gziptext: extra subfield claims %d bytes with %d remaining at offset %d", e.Declared, e.Remaining, e.Offset)
}

// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package gziptext

import (
	"encoding/binary"
	"io"
)

// DecodeFooter reads the trailing 8 bytes of a member and returns the
// CRC-32 of the uncompressed data and its size modulo 2^32.
func DecodeFooter(r io.Reader) (crc, isize uint32, err error) {
	return readFooter(newCountReader(r))
}

func readFooter(cr *countReader) (crc, isize uint32, err error) {
	var buf [8]byte
	if _, err := io.ReadFull(cr, buf[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return 0, 0, &TruncatedInputError{Offset: cr.count(), Field: "footer"}
		}
		return 0, 0, err
	}
	return binary.LittleEndian.Uint32(buf[0:4]), binary.LittleEndian.Uint32(buf[4:8]), nil
}

// EncodeFooter serializes crc and isize to the 8-byte little-endian
// member trailer.
func EncodeFooter(crc, isize uint32) []byte {
	return appendFooter(make([]byte, 0, 8), crc, isize)
}

func appendFooter(dst []byte, crc, isize uint32) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, crc)
	return binary.LittleEndian.AppendUint32(dst, isize)
}

// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package gziptext

import (
	"io"
)

// limitErrorReader is a reader that returns ErrInputLimit if the limit
// is exceeded before the underlying reader is fully read.
// If the limit is -1, all data from the original reader is read.
type limitErrorReader struct {
	r io.Reader // underlying reader
	l int64     // limit
	n int64     // number of bytes read
}

// Read reads from the underlying reader and fills up p.
// It returns ErrInputLimit if the limit is exceeded, even if the
// underlying reader is not fully read.
func (l *limitErrorReader) Read(p []byte) (int, error) {
	// determine how many bytes to read
	m := l.l - l.n
	if l.l == -1 || m > int64(len(p)) {
		m = int64(len(p))
	}

	// check if limit has exceeded
	if m == 0 {
		return 0, ErrInputLimit
	}

	// read from underlying reader and preserve error type
	n, err := l.r.Read(p[:m])
	l.n += int64(n)
	return n, err
}

// ReadBytes returns how many bytes have been read from the underlying reader
func (l *limitErrorReader) ReadBytes() int {
	return int(l.n)
}

// newLimitErrorReader returns a new limitErrorReader that reads from r
func newLimitErrorReader(r io.Reader, limit int64) *limitErrorReader {
	return &limitErrorReader{r: r, l: limit, n: 0}
}

// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package gziptext

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Record is the interchange form of a [Member]: a flat, JSON-friendly
// view with one key per wire field. Flag-governed keys are omitted when
// the field is absent. In humanize mode the cm, flg, mtime, xfl and os
// keys carry symbolic labels instead of raw integers; humanized records
// are display-only and cannot be converted back into a Member.
type Record struct {
	ID1     uint8         `json:"id1"`
	ID2     uint8         `json:"id2"`
	CM      any           `json:"cm"`
	Flg     any           `json:"flg"`
	Mtime   any           `json:"mtime"`
	Xfl     any           `json:"xfl"`
	OS      any           `json:"os"`
	Xlen    *uint16       `json:"xlen,omitempty"`
	Xdata   []RecordExtra `json:"xdata,omitempty"`
	Name    *string       `json:"name,omitempty"`
	Comment *string       `json:"comment,omitempty"`
	CRC16   *uint16       `json:"crc16,omitempty"`
	Data    []byte        `json:"data,omitempty"`
	CRC32   uint32        `json:"crc32"`
	ISize   uint32        `json:"isize"`
}

// RecordExtra is the interchange form of one extra-field subfield.
type RecordExtra struct {
	SI1  uint8  `json:"si1"`
	SI2  uint8  `json:"si2"`
	Len  uint16 `json:"len"`
	Data []byte `json:"data"`
}

// label tables for humanize mode, outside the parsing state machine.
// The operating system list is the one defined in RFC 1952.
var osNames = map[byte]string{
	0:   "FAT",
	1:   "Amiga",
	2:   "VMS",
	3:   "Unix",
	4:   "VM/CMS",
	5:   "Atari TOS",
	6:   "HPFS",
	7:   "Macintosh",
	8:   "Z-System",
	9:   "CP/M",
	10:  "TOPS-20",
	11:  "NTFS",
	12:  "QDOS",
	13:  "Acorn RISCOS",
	255: "unknown",
}

var cmNames = map[byte]string{
	CMDeflate: "deflate",
}

var xflNames = map[byte]string{
	xflBestCompression: "best-compression",
	xflBestSpeed:       "best-speed",
}

// Labels returns the symbolic names of the set flag bits.
func (f Flags) Labels() []string {
	labels := []string{}
	if f.Has(FlagText) {
		labels = append(labels, "ftext")
	}
	if f.Has(FlagHeaderCRC) {
		labels = append(labels, "fhcrc")
	}
	if f.Has(FlagExtra) {
		labels = append(labels, "fextra")
	}
	if f.Has(FlagName) {
		labels = append(labels, "fname")
	}
	if f.Has(FlagComment) {
		labels = append(labels, "fcomment")
	}
	if f&flagReserved != 0 {
		labels = append(labels, "reserved")
	}
	return labels
}

// NewRecord converts m into its interchange form. With humanize set,
// codes and the timestamp are replaced by human-readable labels; codes
// without a defined label stay raw integers.
func NewRecord(m *Member, humanize bool) *Record {
	r := &Record{
		ID1:   gzipID1,
		ID2:   gzipID2,
		CM:    int(m.CM),
		Flg:   int(m.Flags),
		Mtime: int64(m.ModTime),
		Xfl:   int(m.ExtraFlags),
		OS:    int(m.OS),
		CRC32: m.CRC32,
		ISize: m.ISize,
	}

	if humanize {
		if name, ok := cmNames[m.CM]; ok {
			r.CM = name
		}
		r.Flg = m.Flags.Labels()
		if m.ModTime != 0 {
			r.Mtime = m.ModTimeUTC().Format(time.RFC3339)
		}
		if name, ok := xflNames[m.ExtraFlags]; ok {
			r.Xfl = name
		}
		if name, ok := osNames[m.OS]; ok {
			r.OS = name
		}
	}

	if m.Extra != nil {
		xlen := uint16(0)
		xdata := make([]RecordExtra, 0, len(m.Extra))
		for _, rec := range m.Extra {
			xlen += uint16(4 + len(rec.Data))
			xdata = append(xdata, RecordExtra{
				SI1:  rec.SI1,
				SI2:  rec.SI2,
				Len:  uint16(len(rec.Data)),
				Data: rec.Data,
			})
		}
		r.Xlen = &xlen
		if len(xdata) > 0 {
			r.Xdata = xdata
		}
	}

	if m.Name != nil {
		name := latin1String(m.Name)
		r.Name = &name
	}
	if m.Comment != nil {
		comment := latin1String(m.Comment)
		r.Comment = &comment
	}
	if m.HeaderCRC != nil {
		crc16 := *m.HeaderCRC
		r.CRC16 = &crc16
	}
	if m.Payload != nil {
		r.Data = m.Payload
	}

	return r
}

// Member converts the interchange form back into a [Member]. Only raw
// (non-humanized) records can be converted; the fixed id1/id2 values
// are supplied by the encoder and ignored here.
func (r *Record) Member() (*Member, error) {
	cm, err := recordUint(r.CM, 8, "cm", uint64(CMDeflate))
	if err != nil {
		return nil, err
	}
	flg, err := recordUint(r.Flg, 8, "flg", 0)
	if err != nil {
		return nil, err
	}
	mtime, err := recordUint(r.Mtime, 32, "mtime", 0)
	if err != nil {
		return nil, err
	}
	xfl, err := recordUint(r.Xfl, 8, "xfl", 0)
	if err != nil {
		return nil, err
	}
	osCode, err := recordUint(r.OS, 8, "os", uint64(OSUnknown))
	if err != nil {
		return nil, err
	}

	m := &Member{
		CM:         byte(cm),
		Flags:      Flags(flg),
		ModTime:    uint32(mtime),
		ExtraFlags: byte(xfl),
		OS:         byte(osCode),
		HeaderCRC:  r.CRC16,
		Payload:    r.Data,
		CRC32:      r.CRC32,
		ISize:      r.ISize,
	}

	if r.Xlen != nil || r.Xdata != nil {
		m.Extra = make([]ExtraRecord, 0, len(r.Xdata))
		for _, rec := range r.Xdata {
			m.Extra = append(m.Extra, ExtraRecord{SI1: rec.SI1, SI2: rec.SI2, Data: rec.Data})
		}
	}

	if r.Name != nil {
		name, ok := latin1Bytes(*r.Name)
		if !ok {
			return nil, fmt.Errorf("gziptext: name is not representable in latin-1")
		}
		m.Name = name
	}
	if r.Comment != nil {
		comment, ok := latin1Bytes(*r.Comment)
		if !ok {
			return nil, fmt.Errorf("gziptext: comment is not representable in latin-1")
		}
		m.Comment = comment
	}

	return m, nil
}

// recordUint reads an integer-valued interchange field. JSON decoding
// yields float64 or json.Number, programmatic construction may use Go
// integers; humanized label values are rejected.
func recordUint(v any, bits int, key string, def uint64) (uint64, error) {
	max := uint64(1)<<bits - 1
	switch t := v.(type) {
	case nil:
		return def, nil
	case float64:
		if t < 0 || t != math.Trunc(t) || uint64(t) > max {
			return 0, fmt.Errorf("gziptext: %s: value %v out of range", key, t)
		}
		return uint64(t), nil
	case json.Number:
		u, err := strconv.ParseUint(t.String(), 10, bits)
		if err != nil {
			return 0, fmt.Errorf("gziptext: %s: %w", key, err)
		}
		return u, nil
	case int:
		if t < 0 || uint64(t) > max {
			return 0, fmt.Errorf("gziptext: %s: value %d out of range", key, t)
		}
		return uint64(t), nil
	case int64:
		if t < 0 || uint64(t) > max {
			return 0, fmt.Errorf("gziptext: %s: value %d out of range", key, t)
		}
		return uint64(t), nil
	case uint64:
		if t > max {
			return 0, fmt.Errorf("gziptext: %s: value %d out of range", key, t)
		}
		return t, nil
	default:
		return 0, fmt.Errorf("gziptext: %s: expected integer, got %T (humanized records cannot be re-assembled)", key, v)
	}
}

// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package gziptext_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"reflect"
	"testing"

	gziptext "github.com/hashicorp/go-gziptext"
)

// buildHeader assembles raw header bytes for decode tests.
func buildHeader(flg byte, tail ...byte) []byte {
	hdr := []byte{0x1f, 0x8b, 0x08, flg, 0x00, 0x00, 0x00, 0x00, 0x00, 0x03}
	return append(hdr, tail...)
}

func TestDecodeHeader(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		want    func(*testing.T, *gziptext.Member)
		wantErr any
	}{
		{
			name:  "minimal header",
			input: buildHeader(0),
			want: func(t *testing.T, m *gziptext.Member) {
				if m.CM != gziptext.CMDeflate || m.Flags != 0 || m.OS != 3 {
					t.Errorf("decoded fields = cm %d flg %d os %d", m.CM, m.Flags, m.OS)
				}
				if m.Name != nil || m.Comment != nil || m.Extra != nil || m.HeaderCRC != nil {
					t.Errorf("optional fields decoded without flags: %+v", m)
				}
			},
		},
		{
			name:  "file name",
			input: buildHeader(byte(gziptext.FlagName), append([]byte("test.txt"), 0)...),
			want: func(t *testing.T, m *gziptext.Member) {
				if m.FileName() != "test.txt" {
					t.Errorf("FileName() = %q, want test.txt", m.FileName())
				}
			},
		},
		{
			name: "name and comment",
			input: buildHeader(byte(gziptext.FlagName|gziptext.FlagComment),
				append(append(append([]byte("a"), 0), []byte("remark")...), 0)...),
			want: func(t *testing.T, m *gziptext.Member) {
				if m.FileName() != "a" || m.CommentText() != "remark" {
					t.Errorf("name/comment = %q/%q", m.FileName(), m.CommentText())
				}
			},
		},
		{
			name:  "empty file name stays present",
			input: buildHeader(byte(gziptext.FlagName), 0),
			want: func(t *testing.T, m *gziptext.Member) {
				if m.Name == nil || len(m.Name) != 0 {
					t.Errorf("Name = %v, want present empty", m.Name)
				}
			},
		},
		{
			name: "extra field with two subfields",
			input: buildHeader(byte(gziptext.FlagExtra),
				0x0b, 0x00, // xlen 11
				'A', 'p', 0x02, 0x00, 0xca, 0xfe,
				'B', 'q', 0x01, 0x00, 0x42),
			want: func(t *testing.T, m *gziptext.Member) {
				want := []gziptext.ExtraRecord{
					{SI1: 'A', SI2: 'p', Data: []byte{0xca, 0xfe}},
					{SI1: 'B', SI2: 'q', Data: []byte{0x42}},
				}
				if !reflect.DeepEqual(m.Extra, want) {
					t.Errorf("Extra = %v, want %v", m.Extra, want)
				}
			},
		},
		{
			name:  "extra field with xlen zero",
			input: buildHeader(byte(gziptext.FlagExtra), 0x00, 0x00),
			want: func(t *testing.T, m *gziptext.Member) {
				if m.Extra == nil || len(m.Extra) != 0 {
					t.Errorf("Extra = %v, want present empty", m.Extra)
				}
			},
		},
		{
			name:    "short input",
			input:   []byte{0x1f, 0x8b, 0x08, 0x00},
			wantErr: &gziptext.TruncatedInputError{},
		},
		{
			name:    "bad magic",
			input:   []byte{0x1f, 0x7b, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x03},
			wantErr: &gziptext.BadMagicError{},
		},
		{
			name:    "name without terminator",
			input:   buildHeader(byte(gziptext.FlagName), []byte("unterminated")...),
			wantErr: &gziptext.TruncatedInputError{},
		},
		{
			name:    "extra field shorter than xlen",
			input:   buildHeader(byte(gziptext.FlagExtra), 0x08, 0x00, 'A', 'p'),
			wantErr: &gziptext.TruncatedInputError{},
		},
		{
			name: "subfield overruns xlen buffer",
			input: buildHeader(byte(gziptext.FlagExtra),
				0x06, 0x00,
				'A', 'p', 0x09, 0x00, 0xca, 0xfe),
			wantErr: &gziptext.InvalidExtraFieldError{},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m, err := gziptext.DecodeHeader(bytes.NewReader(test.input))

			if test.wantErr != nil {
				if err == nil {
					t.Fatalf("DecodeHeader() error = nil, want %T", test.wantErr)
				}
				switch test.wantErr.(type) {
				case *gziptext.TruncatedInputError:
					var target *gziptext.TruncatedInputError
					if !errors.As(err, &target) {
						t.Fatalf("DecodeHeader() error = %v, want TruncatedInputError", err)
					}
				case *gziptext.BadMagicError:
					var target *gziptext.BadMagicError
					if !errors.As(err, &target) {
						t.Fatalf("DecodeHeader() error = %v, want BadMagicError", err)
					}
					if target.ID1 != 0x1f || target.ID2 != 0x7b {
						t.Errorf("BadMagicError bytes = [%#02x %#02x]", target.ID1, target.ID2)
					}
				case *gziptext.InvalidExtraFieldError:
					var target *gziptext.InvalidExtraFieldError
					if !errors.As(err, &target) {
						t.Fatalf("DecodeHeader() error = %v, want InvalidExtraFieldError", err)
					}
					if target.Declared != 9 || target.Remaining != 2 {
						t.Errorf("InvalidExtraFieldError = declared %d remaining %d, want 9/2", target.Declared, target.Remaining)
					}
				}
				return
			}

			if err != nil {
				t.Fatalf("DecodeHeader() error = %v", err)
			}
			test.want(t, m)
		})
	}
}

func TestDecodeHeaderCRC(t *testing.T) {
	base := buildHeader(byte(gziptext.FlagHeaderCRC))
	crc16 := uint16(crc32.ChecksumIEEE(base))
	good := binary.LittleEndian.AppendUint16(base, crc16)

	m, err := gziptext.DecodeHeader(bytes.NewReader(good))
	if err != nil {
		t.Fatalf("DecodeHeader() error = %v", err)
	}
	if m.HeaderCRC == nil || *m.HeaderCRC != crc16 {
		t.Fatalf("HeaderCRC = %v, want %#04x", m.HeaderCRC, crc16)
	}

	// a wrong value is stored as-is by default
	bad := binary.LittleEndian.AppendUint16(append([]byte{}, base...), crc16^0xffff)
	m, err = gziptext.DecodeHeader(bytes.NewReader(bad))
	if err != nil {
		t.Fatalf("DecodeHeader() with bad crc error = %v", err)
	}
	if *m.HeaderCRC != crc16^0xffff {
		t.Errorf("HeaderCRC = %#04x, want stored value %#04x", *m.HeaderCRC, crc16^0xffff)
	}
}

func TestEncodeHeaderRoundTrip(t *testing.T) {
	crc16 := uint16(0) // recomputed by the encoder
	tests := []struct {
		name   string
		member *gziptext.Member
	}{
		{
			name:   "minimal",
			member: &gziptext.Member{CM: gziptext.CMDeflate, OS: 3},
		},
		{
			name: "all optional fields",
			member: &gziptext.Member{
				CM:         gziptext.CMDeflate,
				Flags:      gziptext.FlagText,
				ModTime:    1623760200,
				ExtraFlags: 2,
				OS:         3,
				Extra: []gziptext.ExtraRecord{
					{SI1: 'A', SI2: 'p', Data: []byte{0xca, 0xfe}},
				},
				Name:      []byte("data.bin"),
				Comment:   []byte("round trip"),
				HeaderCRC: &crc16,
			},
		},
		{
			name:   "latin-1 name",
			member: &gziptext.Member{CM: gziptext.CMDeflate, OS: 3, Name: []byte{'r', 0xe9, 's', 'u', 'm', 0xe9}},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			encoded, err := gziptext.EncodeHeader(test.member)
			if err != nil {
				t.Fatalf("EncodeHeader() error = %v", err)
			}

			decoded, err := gziptext.DecodeHeader(bytes.NewReader(encoded))
			if err != nil {
				t.Fatalf("DecodeHeader() error = %v", err)
			}

			if decoded.CM != test.member.CM ||
				decoded.ModTime != test.member.ModTime ||
				decoded.ExtraFlags != test.member.ExtraFlags ||
				decoded.OS != test.member.OS {
				t.Errorf("fixed fields differ: got %+v", decoded)
			}
			if !bytes.Equal(decoded.Name, test.member.Name) {
				t.Errorf("Name = %q, want %q", decoded.Name, test.member.Name)
			}
			if !bytes.Equal(decoded.Comment, test.member.Comment) {
				t.Errorf("Comment = %q, want %q", decoded.Comment, test.member.Comment)
			}
			if !reflect.DeepEqual(decoded.Extra, test.member.Extra) {
				t.Errorf("Extra = %v, want %v", decoded.Extra, test.member.Extra)
			}
			if (decoded.HeaderCRC == nil) != (test.member.HeaderCRC == nil) {
				t.Errorf("HeaderCRC presence = %v, want %v", decoded.HeaderCRC != nil, test.member.HeaderCRC != nil)
			}
		})
	}
}

func TestEncodeHeaderDerivesFlags(t *testing.T) {
	// the stored presence bits are ignored, only field presence counts
	m := &gziptext.Member{
		CM:    gziptext.CMDeflate,
		Flags: gziptext.FlagExtra | gziptext.FlagComment | gziptext.FlagHeaderCRC,
		OS:    255,
		Name:  []byte("only-name"),
	}

	encoded, err := gziptext.EncodeHeader(m)
	if err != nil {
		t.Fatalf("EncodeHeader() error = %v", err)
	}

	flg := gziptext.Flags(encoded[3])
	if !flg.Has(gziptext.FlagName) {
		t.Errorf("FNAME not set in encoded flags %#02x", encoded[3])
	}
	if flg.Has(gziptext.FlagExtra) || flg.Has(gziptext.FlagComment) || flg.Has(gziptext.FlagHeaderCRC) {
		t.Errorf("presence bits without fields in encoded flags %#02x", encoded[3])
	}
}

func TestEncodeHeaderRecomputesCRC(t *testing.T) {
	stale := uint16(0xbeef)
	m := &gziptext.Member{CM: gziptext.CMDeflate, OS: 3, HeaderCRC: &stale}

	encoded, err := gziptext.EncodeHeader(m)
	if err != nil {
		t.Fatalf("EncodeHeader() error = %v", err)
	}

	want := uint16(crc32.ChecksumIEEE(encoded[:len(encoded)-2]))
	got := binary.LittleEndian.Uint16(encoded[len(encoded)-2:])
	if got != want {
		t.Errorf("encoded crc16 = %#04x, want recomputed %#04x", got, want)
	}
	if got == stale {
		t.Errorf("encoded crc16 kept the stale value %#04x", stale)
	}
}

func TestEncodeHeaderRejectsNUL(t *testing.T) {
	tests := []struct {
		name   string
		member *gziptext.Member
	}{
		{"name with NUL", &gziptext.Member{CM: gziptext.CMDeflate, Name: []byte("a\x00b")}},
		{"comment with NUL", &gziptext.Member{CM: gziptext.CMDeflate, Comment: []byte("a\x00b")}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := gziptext.EncodeHeader(test.member); err == nil {
				t.Errorf("EncodeHeader() error = nil, want NUL rejection")
			}
		})
	}
}

func TestFooterCodec(t *testing.T) {
	encoded := gziptext.EncodeFooter(0xdeadbeef, 42)
	if len(encoded) != 8 {
		t.Fatalf("EncodeFooter() len = %d, want 8", len(encoded))
	}

	crc, isize, err := gziptext.DecodeFooter(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("DecodeFooter() error = %v", err)
	}
	if crc != 0xdeadbeef || isize != 42 {
		t.Errorf("DecodeFooter() = %#08x/%d, want 0xdeadbeef/42", crc, isize)
	}

	var target *gziptext.TruncatedInputError
	if _, _, err := gziptext.DecodeFooter(bytes.NewReader(encoded[:5])); !errors.As(err, &target) {
		t.Errorf("DecodeFooter() short error = %v, want TruncatedInputError", err)
	}
}

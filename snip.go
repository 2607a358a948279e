// Copyright 2025 The go-openlcb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package openlcb

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var ErrInvalidSNIP = errors.New("openlcb: invalid simple node ident info")

// Field limits, including the terminating NUL.
const (
	snipManufacturerLen = 41
	snipModelLen        = 41
	snipHardwareLen     = 21
	snipSoftwareLen     = 21
	snipUserNameLen     = 63
	snipUserDescLen     = 64
)

// SNIP is the decoded Simple Node Identification Information payload.
type SNIP struct {
	ManufacturerVersion byte
	Manufacturer        string
	Model               string
	HardwareVersion     string
	SoftwareVersion     string

	UserVersion     byte
	UserName        string
	UserDescription string
}

// ParseSNIP decodes a reply payload. Strings that are not valid UTF-8
// are decoded as ISO 8859-1. A payload truncated after the manufacturer
// section yields empty user fields.
func ParseSNIP(data []byte) (SNIP, error) {
	var s SNIP
	if len(data) == 0 {
		return s, fmt.Errorf("%w: empty payload", ErrInvalidSNIP)
	}
	r := snipReader{buf: data}
	s.ManufacturerVersion = r.byte()
	fixed := []*string{&s.Manufacturer, &s.Model, &s.HardwareVersion, &s.SoftwareVersion}
	for _, dst := range fixed {
		v, ok := r.str()
		if !ok {
			return s, fmt.Errorf("%w: truncated manufacturer section", ErrInvalidSNIP)
		}
		*dst = v
	}
	if r.done() {
		return s, nil
	}
	s.UserVersion = r.byte()
	for _, dst := range []*string{&s.UserName, &s.UserDescription} {
		v, ok := r.str()
		if !ok {
			break
		}
		*dst = v
	}
	return s, nil
}

// Encode renders the payload, truncating fields to their protocol limits.
func (s SNIP) Encode() []byte {
	var buf bytes.Buffer
	mv := s.ManufacturerVersion
	if mv == 0 {
		mv = 4
	}
	buf.WriteByte(mv)
	writeSNIPString(&buf, s.Manufacturer, snipManufacturerLen)
	writeSNIPString(&buf, s.Model, snipModelLen)
	writeSNIPString(&buf, s.HardwareVersion, snipHardwareLen)
	writeSNIPString(&buf, s.SoftwareVersion, snipSoftwareLen)
	uv := s.UserVersion
	if uv == 0 {
		uv = 2
	}
	buf.WriteByte(uv)
	writeSNIPString(&buf, s.UserName, snipUserNameLen)
	writeSNIPString(&buf, s.UserDescription, snipUserDescLen)
	return buf.Bytes()
}

func writeSNIPString(buf *bytes.Buffer, v string, limit int) {
	b := []byte(v)
	if len(b) > limit-1 {
		b = b[:limit-1]
		for len(b) > 0 && !utf8.Valid(b) {
			b = b[:len(b)-1]
		}
	}
	buf.Write(b)
	buf.WriteByte(0)
}

type snipReader struct {
	buf []byte
	pos int
}

func (r *snipReader) done() bool { return r.pos >= len(r.buf) }

func (r *snipReader) byte() byte {
	if r.done() {
		return 0
	}
	b := r.buf[r.pos]
	r.pos++
	return b
}

func (r *snipReader) str() (string, bool) {
	if r.done() {
		return "", false
	}
	end := bytes.IndexByte(r.buf[r.pos:], 0)
	var raw []byte
	if end < 0 {
		raw = r.buf[r.pos:]
		r.pos = len(r.buf)
	} else {
		raw = r.buf[r.pos : r.pos+end]
		r.pos += end + 1
	}
	return decodeSNIPString(raw), true
}

func decodeSNIPString(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), "?")
	}
	return string(s)
}

// snipContent renders a raw payload with separators in place of NULs and
// control bytes as decimal numbers.
func snipContent(data []byte) string {
	var sb strings.Builder
	for _, b := range data {
		switch {
		case b == 0:
			sb.WriteByte(',')
		case b < 0x20:
			sb.WriteString(strconv.Itoa(int(b)))
			sb.WriteByte(',')
		default:
			sb.WriteByte(b)
		}
	}
	return sb.String()
}

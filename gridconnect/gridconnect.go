// Copyright 2025 The go-openlcb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gridconnect provides the GridConnect ASCII form of CAN frames
// used by OpenLCB hubs and USB adapters:
//
//	:X19100123N010203040506;
//
// An extended frame is ':' 'X', eight hex digits of header, 'N', two hex
// digits per data byte and ';'.
package gridconnect

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"github.com/destiny/openlcb/can"
)

var (
	ErrInvalidFrame = errors.New("gridconnect: invalid frame")
	ErrStandard     = errors.New("gridconnect: standard frames not supported")
)

const hexDigits = "0123456789ABCDEF"

// EncodedLen returns the text length of a frame with n data bytes.
func EncodedLen(n int) int {
	return 2 + 8 + 1 + 2*n + 1
}

// Append appends the text form of f to dst.
func Append(dst []byte, f can.Frame) []byte {
	dst = append(dst, ':', 'X')
	for shift := 28; shift >= 0; shift -= 4 {
		dst = append(dst, hexDigits[f.Header>>uint(shift)&0xF])
	}
	dst = append(dst, 'N')
	for _, b := range f.Data {
		dst = append(dst, hexDigits[b>>4], hexDigits[b&0xF])
	}
	return append(dst, ';')
}

// Format returns the text form of f.
func Format(f can.Frame) string {
	return string(Append(make([]byte, 0, EncodedLen(len(f.Data))), f))
}

// Parse decodes one frame. Surrounding whitespace is ignored and hex
// digits may be in either case.
func Parse(text []byte) (can.Frame, error) {
	text = bytes.TrimSpace(text)
	if len(text) < 4 || text[0] != ':' || text[len(text)-1] != ';' {
		return can.Frame{}, fmt.Errorf("%w: %q", ErrInvalidFrame, text)
	}
	body := text[1 : len(text)-1]
	switch body[0] {
	case 'X', 'x':
	case 'S', 's':
		return can.Frame{}, fmt.Errorf("%w: %q", ErrStandard, text)
	default:
		return can.Frame{}, fmt.Errorf("%w: %q", ErrInvalidFrame, text)
	}
	body = body[1:]

	n := -1
	for i, c := range body {
		if c == 'N' || c == 'n' || c == 'R' || c == 'r' {
			n = i
			break
		}
	}
	if n < 1 || n > 8 {
		return can.Frame{}, fmt.Errorf("%w: %q", ErrInvalidFrame, text)
	}
	if body[n] == 'R' || body[n] == 'r' {
		return can.Frame{}, fmt.Errorf("%w: remote frame %q", ErrInvalidFrame, text)
	}

	header, err := strconv.ParseUint(string(body[:n]), 16, 32)
	if err != nil {
		return can.Frame{}, fmt.Errorf("%w: header %q: %v", ErrInvalidFrame, body[:n], err)
	}
	payload := body[n+1:]
	if len(payload)%2 != 0 || len(payload) > 2*can.MaxDataLen {
		return can.Frame{}, fmt.Errorf("%w: data %q", ErrInvalidFrame, payload)
	}
	data := make([]byte, len(payload)/2)
	if _, err := hex.Decode(data, payload); err != nil {
		return can.Frame{}, fmt.Errorf("%w: data %q: %v", ErrInvalidFrame, payload, err)
	}

	f := can.Frame{Header: uint32(header), Data: data}
	if err := f.Validate(); err != nil {
		return can.Frame{}, fmt.Errorf("%w: %w", ErrInvalidFrame, err)
	}
	return f, nil
}

// ParseString decodes one frame from a string.
func ParseString(text string) (can.Frame, error) {
	return Parse([]byte(text))
}

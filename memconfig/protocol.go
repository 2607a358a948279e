// Copyright 2025 The go-openlcb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memconfig

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// DatagramID is the first payload byte of every memory configuration
// datagram.
const DatagramID byte = 0x20

// Well-known address spaces.
const (
	SpaceCDI              byte = 0xFF
	SpaceAll              byte = 0xFE
	SpaceConfig           byte = 0xFD
	SpaceACDIManufacturer byte = 0xFC
	SpaceACDIUser         byte = 0xFB
)

// Command bytes. The low two bits of read and write commands select the
// space: 0 means an explicit space byte follows the address, 1..3 mean
// 0xFD..0xFF.
const (
	cmdWrite          byte = 0x00
	cmdWriteReply     byte = 0x10
	cmdRead           byte = 0x40
	cmdReadReply      byte = 0x50
	cmdFailed         byte = 0x08
	cmdGetOptions     byte = 0x80
	cmdOptionsReply   byte = 0x82
	cmdGetSpaceInfo   byte = 0x84
	cmdSpaceInfoReply byte = 0x86
	cmdSpaceAbsent    byte = 0x87
)

// MaxTransferLen is the largest read or write in one request.
const MaxTransferLen = 64

var (
	ErrInvalidLength = errors.New("memconfig: invalid transfer length")
	ErrNotReply      = errors.New("memconfig: not a reply datagram")
	ErrTruncated     = errors.New("memconfig: truncated reply")
)

// SpaceInfo describes one address space of a remote node.
type SpaceInfo struct {
	Space          byte
	Present        bool
	HighestAddress uint32
	LowestAddress  uint32
	ReadOnly       bool
	Description    string
}

// ConfigOptions describes the memory configuration features of a node.
type ConfigOptions struct {
	Commands     uint16
	WriteLengths byte
	HighestSpace byte
	LowestSpace  byte
	Name         string
}

// Available command bits of ConfigOptions.Commands.
const (
	OptionWriteUnderMask uint16 = 0x8000
	OptionUnalignedRead  uint16 = 0x4000
	OptionUnalignedWrite uint16 = 0x2000
	OptionACDIMfgRead    uint16 = 0x0800
	OptionACDIUserRead   uint16 = 0x0400
	OptionACDIUserWrite  uint16 = 0x0200
)

func spaceBits(space byte) byte {
	if space >= SpaceConfig {
		return space - 0xFC
	}
	return 0
}

func header(cmd byte, space byte, address uint32) []byte {
	bits := spaceBits(space)
	out := []byte{DatagramID, cmd | bits}
	out = binary.BigEndian.AppendUint32(out, address)
	if bits == 0 {
		out = append(out, space)
	}
	return out
}

// ReadPayload builds a read request.
func ReadPayload(space byte, address uint32, length int) ([]byte, error) {
	if length < 1 || length > MaxTransferLen {
		return nil, fmt.Errorf("%w: read of %d bytes", ErrInvalidLength, length)
	}
	return append(header(cmdRead, space, address), byte(length)), nil
}

// WritePayload builds a write request.
func WritePayload(space byte, address uint32, data []byte) ([]byte, error) {
	if len(data) < 1 || len(data) > MaxTransferLen {
		return nil, fmt.Errorf("%w: write of %d bytes", ErrInvalidLength, len(data))
	}
	return append(header(cmdWrite, space, address), data...), nil
}

// SpaceInfoPayload builds an address space query.
func SpaceInfoPayload(space byte) []byte {
	return []byte{DatagramID, cmdGetSpaceInfo, space}
}

// ConfigOptionsPayload builds a configuration options query.
func ConfigOptionsPayload() []byte {
	return []byte{DatagramID, cmdGetOptions}
}

type replyKind int

const (
	replyRead replyKind = iota + 1
	replyWrite
	replySpaceInfo
	replyOptions
)

// reply is a decoded reply datagram.
type reply struct {
	kind    replyKind
	failed  bool
	code    uint16
	space   byte
	address uint32
	data    []byte
	info    SpaceInfo
	options ConfigOptions
}

// IsReply reports whether payload is a memory configuration reply.
func IsReply(payload []byte) bool {
	if len(payload) < 2 || payload[0] != DatagramID {
		return false
	}
	_, ok := classify(payload[1])
	return ok
}

func classify(cmd byte) (replyKind, bool) {
	switch {
	case cmd&0xF0 == cmdReadReply:
		return replyRead, true
	case cmd&0xF0 == cmdWriteReply:
		return replyWrite, true
	case cmd == cmdOptionsReply:
		return replyOptions, true
	case cmd == cmdSpaceInfoReply || cmd == cmdSpaceAbsent:
		return replySpaceInfo, true
	}
	return 0, false
}

func parseReply(payload []byte) (reply, error) {
	var r reply
	if len(payload) < 2 || payload[0] != DatagramID {
		return r, ErrNotReply
	}
	cmd := payload[1]
	kind, ok := classify(cmd)
	if !ok {
		return r, fmt.Errorf("%w: command 0x%02X", ErrNotReply, cmd)
	}
	r.kind = kind

	switch kind {
	case replyRead, replyWrite:
		return parseTransferReply(r, cmd, payload[2:])
	case replySpaceInfo:
		return parseSpaceInfo(r, cmd, payload[2:])
	default:
		return parseOptions(r, payload[2:])
	}
}

func parseTransferReply(r reply, cmd byte, p []byte) (reply, error) {
	if len(p) < 4 {
		return r, ErrTruncated
	}
	r.address = binary.BigEndian.Uint32(p)
	p = p[4:]
	if bits := cmd & 0x03; bits != 0 {
		r.space = 0xFC + bits
	} else {
		if len(p) < 1 {
			return r, ErrTruncated
		}
		r.space = p[0]
		p = p[1:]
	}
	if cmd&cmdFailed != 0 {
		r.failed = true
		if len(p) >= 2 {
			r.code = binary.BigEndian.Uint16(p)
		}
		return r, nil
	}
	r.data = append([]byte{}, p...)
	return r, nil
}

func parseSpaceInfo(r reply, cmd byte, p []byte) (reply, error) {
	if len(p) < 1 {
		return r, ErrTruncated
	}
	r.info.Space = p[0]
	r.space = p[0]
	if cmd == cmdSpaceAbsent {
		return r, nil
	}
	r.info.Present = true
	if len(p) < 6 {
		return r, ErrTruncated
	}
	r.info.HighestAddress = binary.BigEndian.Uint32(p[1:])
	flags := p[5]
	r.info.ReadOnly = flags&0x01 != 0
	p = p[6:]
	if flags&0x02 != 0 {
		if len(p) < 4 {
			return r, ErrTruncated
		}
		r.info.LowestAddress = binary.BigEndian.Uint32(p)
		p = p[4:]
	}
	r.info.Description = cString(p)
	return r, nil
}

func parseOptions(r reply, p []byte) (reply, error) {
	if len(p) < 4 {
		return r, ErrTruncated
	}
	r.options.Commands = binary.BigEndian.Uint16(p)
	r.options.WriteLengths = p[2]
	r.options.HighestSpace = p[3]
	p = p[4:]
	if len(p) > 0 {
		r.options.LowestSpace = p[0]
		r.options.Name = cString(p[1:])
	}
	return r, nil
}

func cString(p []byte) string {
	if i := bytes.IndexByte(p, 0); i >= 0 {
		p = p[:i]
	}
	return string(p)
}

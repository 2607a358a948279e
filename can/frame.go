// Copyright 2025 The go-openlcb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package can

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/destiny/openlcb"
)

var (
	ErrInvalidHeader = errors.New("can: invalid frame header")
	ErrInvalidLen    = errors.New("can: invalid data length")
)

// MaxDataLen is the payload limit of a classical CAN frame.
const MaxDataLen = 8

const maxHeader = 0x1FFFFFFF

// Alias is a 12-bit node alias. Zero is never a valid alias.
type Alias uint16

// Valid reports whether a is a usable alias.
func (a Alias) Valid() bool { return a != 0 && a <= 0xFFF }

func (a Alias) String() string { return fmt.Sprintf("%03X", uint16(a)) }

// FrameFormat is the 3-bit field in header bits 26-24 of an OpenLCB frame.
type FrameFormat uint8

const (
	FormatGlobalAddressed FrameFormat = 1
	FormatDatagramOnly    FrameFormat = 2
	FormatDatagramFirst   FrameFormat = 3
	FormatDatagramMiddle  FrameFormat = 4
	FormatDatagramLast    FrameFormat = 5
	FormatStream          FrameFormat = 7
)

const (
	headerReserved uint32 = 0x10000000
	headerOpenLCB  uint32 = 0x08000000
)

// Frame is a CAN frame with a 29-bit extended header.
type Frame struct {
	Header uint32
	Data   []byte
}

// NewFrame copies data into a new Frame.
func NewFrame(header uint32, data []byte) Frame {
	f := Frame{Header: header & maxHeader, Data: make([]byte, len(data))}
	copy(f.Data, data)
	return f
}

// Validate returns an error if the frame cannot be sent on the bus.
func (f Frame) Validate() error {
	if f.Header > maxHeader {
		return fmt.Errorf("%w: 0x%08X", ErrInvalidHeader, f.Header)
	}
	if len(f.Data) > MaxDataLen {
		return fmt.Errorf("%w: %d", ErrInvalidLen, len(f.Data))
	}
	return nil
}

// Source returns the alias in bits 11-0.
func (f Frame) Source() Alias { return Alias(f.Header & 0xFFF) }

// IsOpenLCB reports whether the frame carries an OpenLCB message rather
// than a CAN control frame.
func (f Frame) IsOpenLCB() bool { return f.Header&headerOpenLCB != 0 }

// Format returns the frame format of an OpenLCB frame.
func (f Frame) Format() FrameFormat { return FrameFormat(f.Header >> 24 & 0x7) }

// Variable returns the 12-bit field in bits 23-12: the CAN MTI of a
// message frame, or the destination alias of a datagram frame.
func (f Frame) Variable() uint16 { return uint16(f.Header >> 12 & 0xFFF) }

// IsDatagram reports whether the frame is a datagram segment.
func (f Frame) IsDatagram() bool {
	if !f.IsOpenLCB() {
		return false
	}
	switch f.Format() {
	case FormatDatagramOnly, FormatDatagramFirst, FormatDatagramMiddle, FormatDatagramLast:
		return true
	}
	return false
}

// Equal reports whether two frames have the same header and data.
func (f Frame) Equal(o Frame) bool {
	if f.Header != o.Header || len(f.Data) != len(o.Data) {
		return false
	}
	for i := range f.Data {
		if f.Data[i] != o.Data[i] {
			return false
		}
	}
	return true
}

func (f Frame) String() string {
	return fmt.Sprintf("[%08X] %s", f.Header, hex.EncodeToString(f.Data))
}

func messageHeader(mti openlcb.MTI, src Alias) uint32 {
	return headerReserved | headerOpenLCB | uint32(FormatGlobalAddressed)<<24 |
		uint32(mti&0xFFF)<<12 | uint32(src&0xFFF)
}

func datagramHeader(format FrameFormat, dst, src Alias) uint32 {
	return headerReserved | headerOpenLCB | uint32(format)<<24 |
		uint32(dst&0xFFF)<<12 | uint32(src&0xFFF)
}

// Control frames. Bits 26-12 hold the control type; CID frames carry a
// 12-bit slice of the node ID in bits 23-12.
const (
	controlRID uint32 = 0x0700
	controlAMD uint32 = 0x0701
	controlAME uint32 = 0x0702
	controlAMR uint32 = 0x0703
)

// ControlType classifies a CAN control frame.
type ControlType int

const (
	ControlUnknown ControlType = iota
	ControlCheckID
	ControlReserveID
	ControlAliasMapDefinition
	ControlAliasMapEnquiry
	ControlAliasMapReset
)

func (c ControlType) String() string {
	switch c {
	case ControlCheckID:
		return "CID"
	case ControlReserveID:
		return "RID"
	case ControlAliasMapDefinition:
		return "AMD"
	case ControlAliasMapEnquiry:
		return "AME"
	case ControlAliasMapReset:
		return "AMR"
	default:
		return "Unknown"
	}
}

// Control classifies a control frame. OpenLCB message frames report
// ControlUnknown.
func (f Frame) Control() ControlType {
	if f.IsOpenLCB() {
		return ControlUnknown
	}
	field := f.Header >> 12 & 0x7FFF
	if field >= 0x4000 {
		// sequence numbers 7..4 in bits 26-24
		return ControlCheckID
	}
	switch field {
	case controlRID:
		return ControlReserveID
	case controlAMD:
		return ControlAliasMapDefinition
	case controlAME:
		return ControlAliasMapEnquiry
	case controlAMR:
		return ControlAliasMapReset
	}
	return ControlUnknown
}

// CheckIDSequence returns the CID sequence number (7..4).
func (f Frame) CheckIDSequence() int { return int(f.Header >> 24 & 0x7) }

// CheckIDFrame builds CID frame seq (7, 6, 5 or 4) carrying the matching
// 12-bit slice of id, most significant slice first.
func CheckIDFrame(seq int, id openlcb.NodeID, alias Alias) Frame {
	shift := uint((seq - 4) * 12)
	slice := uint32(id.Uint64()>>shift) & 0xFFF
	header := headerReserved | uint32(seq&0x7)<<24 | slice<<12 | uint32(alias&0xFFF)
	return NewFrame(header, nil)
}

// ReserveIDFrame builds an RID frame.
func ReserveIDFrame(alias Alias) Frame {
	return NewFrame(headerReserved|controlRID<<12|uint32(alias&0xFFF), nil)
}

// AliasMapDefinitionFrame builds an AMD frame.
func AliasMapDefinitionFrame(alias Alias, id openlcb.NodeID) Frame {
	return NewFrame(headerReserved|controlAMD<<12|uint32(alias&0xFFF), id[:])
}

// AliasMapEnquiryFrame builds an AME frame, optionally naming one node.
func AliasMapEnquiryFrame(alias Alias, id *openlcb.NodeID) Frame {
	var data []byte
	if id != nil {
		data = id[:]
	}
	return NewFrame(headerReserved|controlAME<<12|uint32(alias&0xFFF), data)
}

// AliasMapResetFrame builds an AMR frame.
func AliasMapResetFrame(alias Alias, id openlcb.NodeID) Frame {
	return NewFrame(headerReserved|controlAMR<<12|uint32(alias&0xFFF), id[:])
}

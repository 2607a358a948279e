// Copyright 2025 The go-openlcb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package openlcb

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidNodeID  = errors.New("openlcb: invalid node ID")
	ErrInvalidEventID = errors.New("openlcb: invalid event ID")
)

// NodeID is the 48-bit globally unique identifier of a node.
type NodeID [6]byte

// EventID is the 64-bit identifier of an event.
type EventID [8]byte

// NodeIDFromBytes copies the first six bytes of b into a NodeID.
func NodeIDFromBytes(b []byte) (NodeID, error) {
	var id NodeID
	if len(b) < len(id) {
		return id, fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidNodeID, len(id), len(b))
	}
	copy(id[:], b)
	return id, nil
}

// NodeIDFromUint64 builds a NodeID from the low 48 bits of v.
func NodeIDFromUint64(v uint64) NodeID {
	var id NodeID
	for i := len(id) - 1; i >= 0; i-- {
		id[i] = byte(v)
		v >>= 8
	}
	return id
}

// ParseNodeID parses the dotted hex form "01.02.03.04.05.06".
func ParseNodeID(s string) (NodeID, error) {
	var id NodeID
	if err := parseDotted(s, id[:]); err != nil {
		return id, fmt.Errorf("%w: %q: %v", ErrInvalidNodeID, s, err)
	}
	return id, nil
}

// Uint64 returns the identifier as an integer.
func (id NodeID) Uint64() uint64 {
	var v uint64
	for _, b := range id {
		v = v<<8 | uint64(b)
	}
	return v
}

// IsZero reports whether id is the all-zero identifier.
func (id NodeID) IsZero() bool { return id == NodeID{} }

func (id NodeID) String() string { return formatDotted(id[:]) }

// EventIDFromBytes copies the first eight bytes of b into an EventID.
func EventIDFromBytes(b []byte) (EventID, error) {
	var ev EventID
	if len(b) < len(ev) {
		return ev, fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidEventID, len(ev), len(b))
	}
	copy(ev[:], b)
	return ev, nil
}

// ParseEventID parses the dotted hex form "01.02.03.04.05.06.07.08".
func ParseEventID(s string) (EventID, error) {
	var ev EventID
	if err := parseDotted(s, ev[:]); err != nil {
		return ev, fmt.Errorf("%w: %q: %v", ErrInvalidEventID, s, err)
	}
	return ev, nil
}

func (ev EventID) String() string { return formatDotted(ev[:]) }

func formatDotted(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) * 3)
	for i, v := range b {
		if i > 0 {
			sb.WriteByte('.')
		}
		fmt.Fprintf(&sb, "%02X", v)
	}
	return sb.String()
}

func parseDotted(s string, dst []byte) error {
	parts := strings.Split(s, ".")
	if len(parts) != len(dst) {
		return fmt.Errorf("expected %d groups, got %d", len(dst), len(parts))
	}
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return err
		}
		dst[i] = byte(v)
	}
	return nil
}

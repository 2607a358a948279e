// Copyright 2025 The go-openlcb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package can

import "github.com/destiny/openlcb"

// NIDa generates candidate aliases for a node. It is a 12-bit
// maximal-length linear feedback shift register (taps 12, 11, 10, 4), so
// successive candidates never repeat within 4095 steps and are never
// zero. Seeding from the node ID makes the sequence reproducible.
//
// NIDa is a value; Next returns the advanced state without modifying
// the receiver.
type NIDa struct {
	state uint16
}

// NewNIDa seeds a generator from the low 12 bits of id, folding in higher
// bits while the seed is zero.
func NewNIDa(id openlcb.NodeID) NIDa {
	v := id.Uint64()
	for i := 0; i < 4; i++ {
		if seed := uint16(v >> (12 * i) & 0xFFF); seed != 0 {
			return NIDa{state: seed}
		}
	}
	return NIDa{state: 1}
}

// NIDaFromSeed starts a generator at seed. A zero seed becomes 1.
func NIDaFromSeed(seed uint16) NIDa {
	seed &= 0xFFF
	if seed == 0 {
		seed = 1
	}
	return NIDa{state: seed}
}

// Current returns the present candidate.
func (n NIDa) Current() Alias { return Alias(n.state) }

// Next returns the generator advanced by one step.
func (n NIDa) Next() NIDa {
	v := n.state
	bit := (v ^ v>>1 ^ v>>2 ^ v>>8) & 1
	return NIDa{state: (v>>1 | bit<<11) & 0xFFF}
}

// Advance steps the generator in place and returns the new candidate.
func (n *NIDa) Advance() Alias {
	*n = n.Next()
	return n.Current()
}

// Copyright 2025 The go-openlcb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package can

import (
	"time"

	"github.com/destiny/openlcb"
	"github.com/destiny/openlcb/datagram"
)

// Option configures some aspect of an Interface.
// (e.g. Logger, SNIP, ...)
type Option func(ifc *Interface)

// DefaultReserveDelay is how long a node waits after its last CID frame
// before claiming the alias.
const DefaultReserveDelay = 200 * time.Millisecond

// DefaultProtocols is advertised in Protocol Support Reply messages.
const DefaultProtocols = openlcb.ProtocolSimple | openlcb.ProtocolDatagram |
	openlcb.ProtocolMemoryConfig | openlcb.ProtocolSNIP

// WithLogger sets a dedicated logger for the interface and the datagram
// and memory configuration layers it owns.
func WithLogger(log *openlcb.Logger) Option {
	return func(ifc *Interface) {
		ifc.log = log
	}
}

// WithReserveDelay sets the wait between the last CID frame and the RID
// frame during alias reservation.
func WithReserveDelay(delay time.Duration) Option {
	return func(ifc *Interface) {
		ifc.reserveDelay = delay
	}
}

// WithSNIP sets the identification returned to SNIP requests.
func WithSNIP(snip openlcb.SNIP) Option {
	return func(ifc *Interface) {
		ifc.snip = snip
	}
}

// WithProtocols sets the protocol bits returned to protocol support
// inquiries.
func WithProtocols(protocols uint64) Option {
	return func(ifc *Interface) {
		ifc.protocols = protocols
	}
}

// WithAliasMap shares an existing alias map, for instance between
// several interfaces attached to the same bus in tests.
func WithAliasMap(aliases *AliasMap) Option {
	return func(ifc *Interface) {
		ifc.aliases = aliases
	}
}

// WithAliasSeed starts the alias generator at seed instead of deriving
// it from the node ID.
func WithAliasSeed(seed uint16) Option {
	return func(ifc *Interface) {
		ifc.nida = NIDaFromSeed(seed)
	}
}

// WithHandler registers a handler for every inbound message.
func WithHandler(h openlcb.Handler) Option {
	return func(ifc *Interface) {
		ifc.handlers = append(ifc.handlers, h)
	}
}

func (ifc *Interface) datagramOptions() *datagram.Options {
	opts := datagram.DefaultOptions()
	opts.Logger = ifc.log
	return opts
}

// WithDatagramRejection controls whether datagrams addressed to the
// local node that no built-in service consumes are rejected. Disable it
// when a registered handler answers datagrams itself.
func WithDatagramRejection(reject bool) Option {
	return func(ifc *Interface) {
		ifc.rejectDatagrams = reject
	}
}

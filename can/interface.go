// Copyright 2025 The go-openlcb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package can

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/destiny/openlcb"
	"github.com/destiny/openlcb/datagram"
	"github.com/destiny/openlcb/memconfig"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("can: interface closed")

// FrameSink writes frames to the bus.
type FrameSink interface {
	WriteFrame(f Frame) error
}

// FrameSinkFunc adapts a function to a FrameSink.
type FrameSinkFunc func(f Frame) error

// WriteFrame calls fn(f).
func (fn FrameSinkFunc) WriteFrame(f Frame) error { return fn(f) }

// State is the alias state of the local node.
type State int

const (
	StateInhibited State = iota
	StateReserving
	StatePermitted
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInhibited:
		return "inhibited"
	case StateReserving:
		return "reserving"
	case StatePermitted:
		return "permitted"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Interface attaches one local node to a CAN bus. Outbound messages pass
// through a datagram metering buffer, are encoded to frames and written
// to the sink. Inbound frames are fed to HandleFrame and the decoded
// messages are delivered, in order, to the metering buffer's reply
// connection, the built-in node responder, the memory configuration
// service and the registered handlers.
type Interface struct {
	id   openlcb.NodeID
	sink FrameSink
	log  *openlcb.Logger

	reserveDelay    time.Duration
	snip            openlcb.SNIP
	protocols       uint64
	rejectDatagrams bool

	aliases   *AliasMap
	metering  *datagram.MeteringBuffer
	memconfig *memconfig.Service
	responder responder

	mu        sync.Mutex
	decoder   *MessageBuilder
	nida      NIDa
	state     State
	alias     Alias
	candidate Alias
	collided  bool

	outMu   sync.Mutex
	encoder *MessageBuilder

	hmu      sync.RWMutex
	handlers []openlcb.Handler
}

// NewInterface creates an interface for node id writing frames to sink.
// The node cannot send until Start has reserved an alias.
func NewInterface(id openlcb.NodeID, sink FrameSink, opts ...Option) *Interface {
	ifc := &Interface{
		id:              id,
		sink:            sink,
		log:             openlcb.DevNullLogger,
		reserveDelay:    DefaultReserveDelay,
		protocols:       DefaultProtocols,
		rejectDatagrams: true,
		nida:            NewNIDa(id),
	}
	for _, opt := range opts {
		opt(ifc)
	}
	if ifc.log == nil {
		ifc.log = openlcb.DevNullLogger
	}
	if ifc.aliases == nil {
		ifc.aliases = NewAliasMap()
	}

	ifc.decoder = NewMessageBuilder(ifc.aliases, ifc.log)
	ifc.encoder = NewMessageBuilder(ifc.aliases, ifc.log)
	ifc.metering = datagram.NewMeteringBuffer(openlcb.ConnectionFunc(ifc.send), ifc.datagramOptions())
	ifc.memconfig = memconfig.NewService(id, ifc.metering, &memconfig.Options{Logger: ifc.log})
	ifc.responder = responder{ifc: ifc}
	return ifc
}

// NodeID returns the local node ID.
func (ifc *Interface) NodeID() openlcb.NodeID { return ifc.id }

// Alias returns the reserved alias, or zero before Start completes.
func (ifc *Interface) Alias() Alias {
	ifc.mu.Lock()
	defer ifc.mu.Unlock()
	if ifc.state != StatePermitted {
		return 0
	}
	return ifc.alias
}

// State returns the alias state.
func (ifc *Interface) State() State {
	ifc.mu.Lock()
	defer ifc.mu.Unlock()
	return ifc.state
}

// AliasMap returns the alias map shared by the encoder and decoder.
func (ifc *Interface) AliasMap() *AliasMap { return ifc.aliases }

// Output returns the connection for outbound messages. Datagrams are
// metered; everything else is sent in order.
func (ifc *Interface) Output() openlcb.Connection { return ifc.metering }

// MemoryConfig returns the memory configuration client of the local node.
func (ifc *Interface) MemoryConfig() *memconfig.Service { return ifc.memconfig }

// AddHandler registers h for every inbound message.
func (ifc *Interface) AddHandler(h openlcb.Handler) {
	ifc.hmu.Lock()
	defer ifc.hmu.Unlock()
	ifc.handlers = append(ifc.handlers, h)
}

// WaitForSendQueue blocks until every queued message has been written or
// is held back waiting for a datagram acknowledgment.
func (ifc *Interface) WaitForSendQueue() { ifc.metering.WaitForSendQueue() }

// Start reserves an alias and announces the node with Initialization
// Complete. A collision during the reservation delay restarts with the
// next alias from the generator. Start returns immediately once an alias
// is held; after losing it to another node, Start reserves a new one.
func (ifc *Interface) Start(ctx context.Context) error {
	for {
		ifc.mu.Lock()
		switch ifc.state {
		case StateClosed:
			ifc.mu.Unlock()
			return ErrClosed
		case StatePermitted:
			ifc.mu.Unlock()
			return nil
		}
		candidate := ifc.nida.Current()
		for _, used := ifc.aliases.NodeID(candidate); used; _, used = ifc.aliases.NodeID(candidate) {
			candidate = ifc.nida.Advance()
		}
		ifc.state = StateReserving
		ifc.candidate = candidate
		ifc.collided = false
		ifc.mu.Unlock()

		ifc.log.Debug("can: %s checking alias %s", ifc.id, candidate)
		for seq := 7; seq >= 4; seq-- {
			if err := ifc.writeFrame(CheckIDFrame(seq, ifc.id, candidate)); err != nil {
				return fmt.Errorf("can: could not send CID frame: %w", err)
			}
		}

		timer := time.NewTimer(ifc.reserveDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			ifc.mu.Lock()
			if ifc.state == StateReserving {
				ifc.state = StateInhibited
			}
			ifc.mu.Unlock()
			return ctx.Err()
		case <-timer.C:
		}

		ifc.mu.Lock()
		if ifc.state == StateClosed {
			ifc.mu.Unlock()
			return ErrClosed
		}
		if ifc.collided {
			ifc.nida.Advance()
			ifc.mu.Unlock()
			ifc.log.Info("can: alias %s of %s in use, retrying", candidate, ifc.id)
			continue
		}
		ifc.state = StatePermitted
		ifc.alias = candidate
		ifc.aliases.Insert(candidate, ifc.id)
		ifc.mu.Unlock()

		if err := ifc.writeFrame(ReserveIDFrame(candidate)); err != nil {
			return fmt.Errorf("can: could not send RID frame: %w", err)
		}
		if err := ifc.writeFrame(AliasMapDefinitionFrame(candidate, ifc.id)); err != nil {
			return fmt.Errorf("can: could not send AMD frame: %w", err)
		}
		break
	}

	ifc.log.Info("can: %s using alias %s", ifc.id, ifc.Alias())
	ifc.metering.Put(openlcb.NewInitializationComplete(ifc.id), nil)
	return nil
}

// HandleFrame processes one frame read from the bus. Decoded messages
// are delivered before HandleFrame returns.
func (ifc *Interface) HandleFrame(f Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}

	ifc.mu.Lock()
	if ifc.state == StateClosed {
		ifc.mu.Unlock()
		return ErrClosed
	}
	reply := ifc.checkConflictLocked(f)
	ifc.aliases.ProcessFrame(f)
	msgs := ifc.decoder.ProcessFrame(f)
	ifc.mu.Unlock()

	for _, r := range reply {
		if err := ifc.writeFrame(r); err != nil {
			ifc.log.Error("can: could not answer %s: %v", f.Control(), err)
		}
	}
	for _, msg := range msgs {
		ifc.deliver(msg)
	}
	return nil
}

// checkConflictLocked defends the local alias against f and returns the
// frames to send in response.
func (ifc *Interface) checkConflictLocked(f Frame) []Frame {
	src := f.Source()
	switch ifc.state {
	case StateReserving:
		if src == ifc.candidate {
			ifc.collided = true
		}
		return nil
	case StatePermitted:
	default:
		return nil
	}

	if f.Control() == ControlAliasMapEnquiry && src != ifc.alias {
		if len(f.Data) == 0 {
			return []Frame{AliasMapDefinitionFrame(ifc.alias, ifc.id)}
		}
		if id, err := openlcb.NodeIDFromBytes(f.Data); err == nil && id == ifc.id {
			return []Frame{AliasMapDefinitionFrame(ifc.alias, ifc.id)}
		}
		return nil
	}
	if src != ifc.alias {
		return nil
	}
	if f.Control() == ControlCheckID {
		return []Frame{ReserveIDFrame(ifc.alias)}
	}

	ifc.log.Error("can: alias %s of %s used by another node: %s", ifc.alias, ifc.id, f)
	alias := ifc.alias
	ifc.state = StateInhibited
	ifc.alias = 0
	ifc.aliases.Remove(alias)
	ifc.nida.Advance()
	return []Frame{AliasMapResetFrame(alias, ifc.id)}
}

func (ifc *Interface) deliver(msg openlcb.Message) {
	switch msg.(type) {
	case *openlcb.DatagramAcknowledged, *openlcb.DatagramRejected:
		ifc.metering.ReplyConnection().Put(msg, nil)
	}

	out := ifc.Output()
	openlcb.Dispatch(msg, &ifc.responder, out)
	openlcb.Dispatch(msg, ifc.memconfig, out)

	ifc.hmu.RLock()
	handlers := ifc.handlers
	ifc.hmu.RUnlock()
	for _, h := range handlers {
		openlcb.Dispatch(msg, h, out)
	}
}

func (ifc *Interface) writeFrame(f Frame) error {
	ifc.outMu.Lock()
	defer ifc.outMu.Unlock()
	return ifc.sink.WriteFrame(f)
}

// send is the downstream end of the metering buffer.
func (ifc *Interface) send(msg openlcb.Message, _ openlcb.Connection) {
	err := ifc.encodeAndWrite(msg)
	if err == nil {
		return
	}
	ifc.log.Warn("can: could not send %s: %v", msg.MTI(), err)

	// An unsendable datagram would hold the metering buffer forever.
	if dg, ok := msg.(*openlcb.Datagram); ok {
		ifc.deliver(openlcb.NewDatagramRejected(dg.Destination(), dg.Source(), openlcb.RejectPermanentError))
	}
}

func (ifc *Interface) encodeAndWrite(msg openlcb.Message) error {
	ifc.outMu.Lock()
	defer ifc.outMu.Unlock()

	frames, err := ifc.encoder.ProcessMessage(msg)
	if err != nil {
		return err
	}
	for _, f := range frames {
		if err := ifc.sink.WriteFrame(f); err != nil {
			return err
		}
	}
	return nil
}

// Close stops the metering buffer. Frames handed to HandleFrame
// afterwards are rejected.
func (ifc *Interface) Close() error {
	ifc.mu.Lock()
	if ifc.state == StateClosed {
		ifc.mu.Unlock()
		return nil
	}
	ifc.state = StateClosed
	ifc.mu.Unlock()
	return ifc.metering.Close()
}

// responder answers the node-level requests every node must handle.
type responder struct {
	openlcb.BaseHandler
	ifc *Interface
}

func (r *responder) HandleVerifyNodeIDGlobal(msg *openlcb.VerifyNodeIDGlobal, out openlcb.Connection) {
	if msg.Target != nil && *msg.Target != r.ifc.id {
		return
	}
	out.Put(openlcb.NewVerifiedNodeID(r.ifc.id), nil)
}

func (r *responder) HandleVerifyNodeIDAddressed(msg *openlcb.VerifyNodeIDAddressed, out openlcb.Connection) {
	if msg.Destination() == r.ifc.id {
		out.Put(openlcb.NewVerifiedNodeID(r.ifc.id), nil)
	}
}

func (r *responder) HandleProtocolSupportInquiry(msg *openlcb.ProtocolSupportInquiry, out openlcb.Connection) {
	if msg.Destination() == r.ifc.id {
		out.Put(openlcb.NewProtocolSupportReply(r.ifc.id, msg.Source(), r.ifc.protocols), nil)
	}
}

func (r *responder) HandleSimpleNodeIdentInfoRequest(msg *openlcb.SimpleNodeIdentInfoRequest, out openlcb.Connection) {
	if msg.Destination() == r.ifc.id {
		out.Put(openlcb.NewSimpleNodeIdentInfoReply(r.ifc.id, msg.Source(), r.ifc.snip.Encode()), nil)
	}
}

// HandleDatagram rejects datagrams for the local node that no built-in
// service consumes.
func (r *responder) HandleDatagram(msg *openlcb.Datagram, out openlcb.Connection) {
	if !r.ifc.rejectDatagrams || msg.Destination() != r.ifc.id || memconfig.IsReply(msg.Data) {
		return
	}
	out.Put(openlcb.NewDatagramRejected(r.ifc.id, msg.Source(), openlcb.RejectDatagramTypeUnknown), nil)
}

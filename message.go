// Copyright 2025 The go-openlcb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package openlcb

import (
	"encoding/hex"
	"fmt"
)

// Message is a single OpenLCB message. The set of implementations is
// closed; Dispatch routes each one to its Handler method.
type Message interface {
	MTI() MTI
	Source() NodeID
	isMessage()
}

// AddressedMessage is a Message sent to a single destination node.
type AddressedMessage interface {
	Message
	Destination() NodeID
}

// EventMessage is a Message carrying an event ID.
type EventMessage interface {
	Message
	Event() EventID
}

type global struct {
	Src NodeID
}

func (g global) Source() NodeID { return g.Src }
func (global) isMessage()       {}

type addressed struct {
	Src NodeID
	Dst NodeID
}

func (a addressed) Source() NodeID      { return a.Src }
func (a addressed) Destination() NodeID { return a.Dst }
func (addressed) isMessage()            {}

type eventRef struct {
	Src     NodeID
	EventID EventID
}

func (e eventRef) Source() NodeID { return e.Src }
func (e eventRef) Event() EventID { return e.EventID }
func (eventRef) isMessage()       {}

// InitializationComplete announces that a node has entered the
// initialized state.
type InitializationComplete struct{ global }

// VerifyNodeIDGlobal asks every node, or only Target when set, to reply
// with VerifiedNodeID.
type VerifyNodeIDGlobal struct {
	global
	Target *NodeID
}

// VerifyNodeIDAddressed asks one node to reply with VerifiedNodeID.
type VerifyNodeIDAddressed struct{ addressed }

// VerifiedNodeID is the reply to a node ID verification.
type VerifiedNodeID struct{ global }

// OptionalInteractionRejected reports that a request of type Rejected
// was refused by the destination.
type OptionalInteractionRejected struct {
	addressed
	Rejected MTI
	Code     uint16
}

// TerminateDueToError reports that an interaction with the destination
// was aborted.
type TerminateDueToError struct {
	addressed
	Rejected MTI
	Code     uint16
}

// ProtocolSupportInquiry asks the destination for its protocol bits.
type ProtocolSupportInquiry struct{ addressed }

// ProtocolSupportReply carries a 48-bit protocol support mask.
type ProtocolSupportReply struct {
	addressed
	Value uint64
}

// Protocol support bits, most significant first on the wire.
const (
	ProtocolSimple          uint64 = 0x800000000000
	ProtocolDatagram        uint64 = 0x400000000000
	ProtocolStream          uint64 = 0x200000000000
	ProtocolMemoryConfig    uint64 = 0x100000000000
	ProtocolReservation     uint64 = 0x080000000000
	ProtocolEventExchange   uint64 = 0x040000000000
	ProtocolIdentification  uint64 = 0x020000000000
	ProtocolTeaching        uint64 = 0x010000000000
	ProtocolRemoteButton    uint64 = 0x008000000000
	ProtocolACDI            uint64 = 0x004000000000
	ProtocolDisplay         uint64 = 0x002000000000
	ProtocolSNIP            uint64 = 0x001000000000
	ProtocolCDI             uint64 = 0x000800000000
	ProtocolTraction        uint64 = 0x000400000000
	ProtocolFunctionDesc    uint64 = 0x000200000000
	ProtocolDCCCommandStn   uint64 = 0x000100000000
	ProtocolSimpleTrainNode uint64 = 0x000080000000
	ProtocolFunctionConfig  uint64 = 0x000040000000
)

// IdentifyConsumers asks for consumers of an event.
type IdentifyConsumers struct{ eventRef }

// ConsumerIdentified reports that Src consumes the event.
type ConsumerIdentified struct {
	eventRef
	State EventState
}

// ConsumerRangeIdentified reports a consumed event range.
type ConsumerRangeIdentified struct{ eventRef }

// IdentifyProducers asks for producers of an event.
type IdentifyProducers struct{ eventRef }

// ProducerIdentified reports that Src produces the event.
type ProducerIdentified struct {
	eventRef
	State EventState
}

// ProducerRangeIdentified reports a produced event range.
type ProducerRangeIdentified struct{ eventRef }

// IdentifyEventsAddressed asks one node to identify all its events.
type IdentifyEventsAddressed struct{ addressed }

// IdentifyEventsGlobal asks all nodes to identify their events.
type IdentifyEventsGlobal struct{ global }

// LearnEvent teaches an event ID to nodes in learn mode.
type LearnEvent struct{ eventRef }

// ProducerConsumerEventReport signals the occurrence of an event.
type ProducerConsumerEventReport struct{ eventRef }

// SimpleNodeIdentInfoRequest asks for a node's identification strings.
type SimpleNodeIdentInfoRequest struct{ addressed }

// SimpleNodeIdentInfoReply carries the identification payload; see SNIP.
type SimpleNodeIdentInfoReply struct {
	addressed
	Data []byte
}

// TractionControlRequest carries a traction command.
type TractionControlRequest struct {
	addressed
	Data []byte
}

// TractionControlReply carries a traction reply.
type TractionControlReply struct {
	addressed
	Data []byte
}

// TractionProxyRequest carries a traction proxy command.
type TractionProxyRequest struct {
	addressed
	Data []byte
}

// TractionProxyReply carries a traction proxy reply.
type TractionProxyReply struct {
	addressed
	Data []byte
}

// Datagram is an addressed message with a payload of 0 to 72 bytes.
type Datagram struct {
	addressed
	Data []byte
}

// MaxDatagramLen is the largest datagram payload.
const MaxDatagramLen = 72

// DatagramAcknowledged is the positive reply to a Datagram.
type DatagramAcknowledged struct {
	addressed
	Flags byte
}

// DatagramReplyPending is set in DatagramAcknowledged.Flags when a reply
// datagram will follow.
const DatagramReplyPending byte = 0x80

// ReplyPending reports whether a reply datagram will follow.
func (m *DatagramAcknowledged) ReplyPending() bool { return m.Flags&DatagramReplyPending != 0 }

// DatagramRejected is the negative reply to a Datagram.
type DatagramRejected struct {
	addressed
	Code uint16
}

// Datagram rejection code bits.
const (
	RejectPermanentError        uint16 = 0x1000
	RejectResendOK              uint16 = 0x2000
	RejectBufferUnavailable     uint16 = 0x2020
	RejectOutOfOrder            uint16 = 0x2040
	RejectNotImplemented        uint16 = 0x1040
	RejectDatagramTypeUnknown   uint16 = 0x1042
	RejectTransportErrorTimeout uint16 = 0x2011
)

// CanResend reports whether the sender may retransmit the datagram.
// Only a permanent error without the temporary bit is terminal.
func (m *DatagramRejected) CanResend() bool {
	return m.Code&RejectPermanentError == 0 || m.Code&RejectResendOK != 0
}

func (*InitializationComplete) MTI() MTI      { return MTIInitializationComplete }
func (*VerifyNodeIDGlobal) MTI() MTI          { return MTIVerifyNodeIDGlobal }
func (*VerifyNodeIDAddressed) MTI() MTI       { return MTIVerifyNodeIDAddressed }
func (*VerifiedNodeID) MTI() MTI              { return MTIVerifiedNodeID }
func (*OptionalInteractionRejected) MTI() MTI { return MTIOptionalInteractionRejected }
func (*TerminateDueToError) MTI() MTI         { return MTITerminateDueToError }
func (*ProtocolSupportInquiry) MTI() MTI      { return MTIProtocolSupportInquiry }
func (*ProtocolSupportReply) MTI() MTI        { return MTIProtocolSupportReply }
func (*IdentifyConsumers) MTI() MTI           { return MTIIdentifyConsumers }
func (*ConsumerRangeIdentified) MTI() MTI     { return MTIConsumerRangeIdentified }
func (*IdentifyProducers) MTI() MTI           { return MTIIdentifyProducers }
func (*ProducerRangeIdentified) MTI() MTI     { return MTIProducerRangeIdentified }
func (*IdentifyEventsAddressed) MTI() MTI     { return MTIIdentifyEventsAddressed }
func (*IdentifyEventsGlobal) MTI() MTI        { return MTIIdentifyEventsGlobal }
func (*LearnEvent) MTI() MTI                  { return MTILearnEvent }
func (*ProducerConsumerEventReport) MTI() MTI { return MTIProducerConsumerEventReport }
func (*SimpleNodeIdentInfoRequest) MTI() MTI  { return MTISimpleNodeIdentInfoRequest }
func (*SimpleNodeIdentInfoReply) MTI() MTI    { return MTISimpleNodeIdentInfoReply }
func (*TractionControlRequest) MTI() MTI      { return MTITractionControlRequest }
func (*TractionControlReply) MTI() MTI        { return MTITractionControlReply }
func (*TractionProxyRequest) MTI() MTI        { return MTITractionProxyRequest }
func (*TractionProxyReply) MTI() MTI          { return MTITractionProxyReply }
func (*Datagram) MTI() MTI                    { return MTIDatagram }
func (*DatagramAcknowledged) MTI() MTI        { return MTIDatagramReceivedOK }
func (*DatagramRejected) MTI() MTI            { return MTIDatagramRejected }

func (m *ConsumerIdentified) MTI() MTI {
	switch m.State {
	case EventStateInvalid:
		return MTIConsumerIdentifiedInvalid
	case EventStateUnknown:
		return MTIConsumerIdentifiedUnknown
	default:
		return MTIConsumerIdentifiedValid
	}
}

func (m *ProducerIdentified) MTI() MTI {
	switch m.State {
	case EventStateInvalid:
		return MTIProducerIdentifiedInvalid
	case EventStateUnknown:
		return MTIProducerIdentifiedUnknown
	default:
		return MTIProducerIdentifiedValid
	}
}

// Constructors. Payload slices are copied.

func NewInitializationComplete(src NodeID) *InitializationComplete {
	return &InitializationComplete{global{src}}
}

func NewVerifyNodeIDGlobal(src NodeID, target *NodeID) *VerifyNodeIDGlobal {
	m := &VerifyNodeIDGlobal{global: global{src}}
	if target != nil {
		t := *target
		m.Target = &t
	}
	return m
}

func NewVerifyNodeIDAddressed(src, dst NodeID) *VerifyNodeIDAddressed {
	return &VerifyNodeIDAddressed{addressed{src, dst}}
}

func NewVerifiedNodeID(src NodeID) *VerifiedNodeID {
	return &VerifiedNodeID{global{src}}
}

func NewOptionalInteractionRejected(src, dst NodeID, rejected MTI, code uint16) *OptionalInteractionRejected {
	return &OptionalInteractionRejected{addressed{src, dst}, rejected, code}
}

func NewTerminateDueToError(src, dst NodeID, rejected MTI, code uint16) *TerminateDueToError {
	return &TerminateDueToError{addressed{src, dst}, rejected, code}
}

func NewProtocolSupportInquiry(src, dst NodeID) *ProtocolSupportInquiry {
	return &ProtocolSupportInquiry{addressed{src, dst}}
}

func NewProtocolSupportReply(src, dst NodeID, value uint64) *ProtocolSupportReply {
	return &ProtocolSupportReply{addressed{src, dst}, value & 0xFFFFFFFFFFFF}
}

func NewIdentifyConsumers(src NodeID, ev EventID) *IdentifyConsumers {
	return &IdentifyConsumers{eventRef{src, ev}}
}

func NewConsumerIdentified(src NodeID, ev EventID, state EventState) *ConsumerIdentified {
	return &ConsumerIdentified{eventRef{src, ev}, state}
}

func NewConsumerRangeIdentified(src NodeID, ev EventID) *ConsumerRangeIdentified {
	return &ConsumerRangeIdentified{eventRef{src, ev}}
}

func NewIdentifyProducers(src NodeID, ev EventID) *IdentifyProducers {
	return &IdentifyProducers{eventRef{src, ev}}
}

func NewProducerIdentified(src NodeID, ev EventID, state EventState) *ProducerIdentified {
	return &ProducerIdentified{eventRef{src, ev}, state}
}

func NewProducerRangeIdentified(src NodeID, ev EventID) *ProducerRangeIdentified {
	return &ProducerRangeIdentified{eventRef{src, ev}}
}

func NewIdentifyEventsAddressed(src, dst NodeID) *IdentifyEventsAddressed {
	return &IdentifyEventsAddressed{addressed{src, dst}}
}

func NewIdentifyEventsGlobal(src NodeID) *IdentifyEventsGlobal {
	return &IdentifyEventsGlobal{global{src}}
}

func NewLearnEvent(src NodeID, ev EventID) *LearnEvent {
	return &LearnEvent{eventRef{src, ev}}
}

func NewProducerConsumerEventReport(src NodeID, ev EventID) *ProducerConsumerEventReport {
	return &ProducerConsumerEventReport{eventRef{src, ev}}
}

func NewSimpleNodeIdentInfoRequest(src, dst NodeID) *SimpleNodeIdentInfoRequest {
	return &SimpleNodeIdentInfoRequest{addressed{src, dst}}
}

func NewSimpleNodeIdentInfoReply(src, dst NodeID, data []byte) *SimpleNodeIdentInfoReply {
	return &SimpleNodeIdentInfoReply{addressed{src, dst}, clone(data)}
}

func NewTractionControlRequest(src, dst NodeID, data []byte) *TractionControlRequest {
	return &TractionControlRequest{addressed{src, dst}, clone(data)}
}

func NewTractionControlReply(src, dst NodeID, data []byte) *TractionControlReply {
	return &TractionControlReply{addressed{src, dst}, clone(data)}
}

func NewTractionProxyRequest(src, dst NodeID, data []byte) *TractionProxyRequest {
	return &TractionProxyRequest{addressed{src, dst}, clone(data)}
}

func NewTractionProxyReply(src, dst NodeID, data []byte) *TractionProxyReply {
	return &TractionProxyReply{addressed{src, dst}, clone(data)}
}

func NewDatagram(src, dst NodeID, data []byte) *Datagram {
	return &Datagram{addressed{src, dst}, clone(data)}
}

func NewDatagramAcknowledged(src, dst NodeID, flags byte) *DatagramAcknowledged {
	return &DatagramAcknowledged{addressed{src, dst}, flags}
}

func NewDatagramRejected(src, dst NodeID, code uint16) *DatagramRejected {
	return &DatagramRejected{addressed{src, dst}, code}
}

func clone(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (m *Datagram) String() string {
	return fmt.Sprintf("%s - %s Datagram: %s", m.Src, m.Dst, hex.EncodeToString(m.Data))
}

func (m *DatagramAcknowledged) String() string {
	return fmt.Sprintf("%s - %s DatagramAcknowledged flags=0x%02X", m.Src, m.Dst, m.Flags)
}

func (m *DatagramRejected) String() string {
	return fmt.Sprintf("%s - %s DatagramRejected code=0x%04X", m.Src, m.Dst, m.Code)
}

func (m *SimpleNodeIdentInfoReply) String() string {
	return fmt.Sprintf("%s - %s Simple Node Ident Info with content '%s'", m.Src, m.Dst, snipContent(m.Data))
}

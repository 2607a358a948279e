// Copyright 2025 The go-openlcb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package openlcb

// Connection accepts messages for delivery. The sender argument is the
// return path for any reply and may be nil.
type Connection interface {
	Put(msg Message, sender Connection)
}

// ConnectionFunc adapts a function to a Connection.
type ConnectionFunc func(msg Message, sender Connection)

// Put calls f(msg, sender).
func (f ConnectionFunc) Put(msg Message, sender Connection) { f(msg, sender) }

// Handler has one method per message kind. Embed BaseHandler to
// implement only the kinds of interest.
type Handler interface {
	HandleInitializationComplete(msg *InitializationComplete, sender Connection)
	HandleVerifyNodeIDGlobal(msg *VerifyNodeIDGlobal, sender Connection)
	HandleVerifyNodeIDAddressed(msg *VerifyNodeIDAddressed, sender Connection)
	HandleVerifiedNodeID(msg *VerifiedNodeID, sender Connection)
	HandleOptionalInteractionRejected(msg *OptionalInteractionRejected, sender Connection)
	HandleTerminateDueToError(msg *TerminateDueToError, sender Connection)
	HandleProtocolSupportInquiry(msg *ProtocolSupportInquiry, sender Connection)
	HandleProtocolSupportReply(msg *ProtocolSupportReply, sender Connection)
	HandleIdentifyConsumers(msg *IdentifyConsumers, sender Connection)
	HandleConsumerIdentified(msg *ConsumerIdentified, sender Connection)
	HandleConsumerRangeIdentified(msg *ConsumerRangeIdentified, sender Connection)
	HandleIdentifyProducers(msg *IdentifyProducers, sender Connection)
	HandleProducerIdentified(msg *ProducerIdentified, sender Connection)
	HandleProducerRangeIdentified(msg *ProducerRangeIdentified, sender Connection)
	HandleIdentifyEventsAddressed(msg *IdentifyEventsAddressed, sender Connection)
	HandleIdentifyEventsGlobal(msg *IdentifyEventsGlobal, sender Connection)
	HandleLearnEvent(msg *LearnEvent, sender Connection)
	HandleProducerConsumerEventReport(msg *ProducerConsumerEventReport, sender Connection)
	HandleSimpleNodeIdentInfoRequest(msg *SimpleNodeIdentInfoRequest, sender Connection)
	HandleSimpleNodeIdentInfoReply(msg *SimpleNodeIdentInfoReply, sender Connection)
	HandleTractionControlRequest(msg *TractionControlRequest, sender Connection)
	HandleTractionControlReply(msg *TractionControlReply, sender Connection)
	HandleTractionProxyRequest(msg *TractionProxyRequest, sender Connection)
	HandleTractionProxyReply(msg *TractionProxyReply, sender Connection)
	HandleDatagram(msg *Datagram, sender Connection)
	HandleDatagramAcknowledged(msg *DatagramAcknowledged, sender Connection)
	HandleDatagramRejected(msg *DatagramRejected, sender Connection)
}

// Dispatch routes msg to the matching Handler method. It reports false
// for a message kind it does not know.
func Dispatch(msg Message, h Handler, sender Connection) bool {
	switch m := msg.(type) {
	case *InitializationComplete:
		h.HandleInitializationComplete(m, sender)
	case *VerifyNodeIDGlobal:
		h.HandleVerifyNodeIDGlobal(m, sender)
	case *VerifyNodeIDAddressed:
		h.HandleVerifyNodeIDAddressed(m, sender)
	case *VerifiedNodeID:
		h.HandleVerifiedNodeID(m, sender)
	case *OptionalInteractionRejected:
		h.HandleOptionalInteractionRejected(m, sender)
	case *TerminateDueToError:
		h.HandleTerminateDueToError(m, sender)
	case *ProtocolSupportInquiry:
		h.HandleProtocolSupportInquiry(m, sender)
	case *ProtocolSupportReply:
		h.HandleProtocolSupportReply(m, sender)
	case *IdentifyConsumers:
		h.HandleIdentifyConsumers(m, sender)
	case *ConsumerIdentified:
		h.HandleConsumerIdentified(m, sender)
	case *ConsumerRangeIdentified:
		h.HandleConsumerRangeIdentified(m, sender)
	case *IdentifyProducers:
		h.HandleIdentifyProducers(m, sender)
	case *ProducerIdentified:
		h.HandleProducerIdentified(m, sender)
	case *ProducerRangeIdentified:
		h.HandleProducerRangeIdentified(m, sender)
	case *IdentifyEventsAddressed:
		h.HandleIdentifyEventsAddressed(m, sender)
	case *IdentifyEventsGlobal:
		h.HandleIdentifyEventsGlobal(m, sender)
	case *LearnEvent:
		h.HandleLearnEvent(m, sender)
	case *ProducerConsumerEventReport:
		h.HandleProducerConsumerEventReport(m, sender)
	case *SimpleNodeIdentInfoRequest:
		h.HandleSimpleNodeIdentInfoRequest(m, sender)
	case *SimpleNodeIdentInfoReply:
		h.HandleSimpleNodeIdentInfoReply(m, sender)
	case *TractionControlRequest:
		h.HandleTractionControlRequest(m, sender)
	case *TractionControlReply:
		h.HandleTractionControlReply(m, sender)
	case *TractionProxyRequest:
		h.HandleTractionProxyRequest(m, sender)
	case *TractionProxyReply:
		h.HandleTractionProxyReply(m, sender)
	case *Datagram:
		h.HandleDatagram(m, sender)
	case *DatagramAcknowledged:
		h.HandleDatagramAcknowledged(m, sender)
	case *DatagramRejected:
		h.HandleDatagramRejected(m, sender)
	default:
		return false
	}
	return true
}

// HandlerConnection returns a Connection that dispatches to h.
func HandlerConnection(h Handler) Connection {
	return ConnectionFunc(func(msg Message, sender Connection) {
		Dispatch(msg, h, sender)
	})
}

// BaseHandler ignores every message.
type BaseHandler struct{}

func (BaseHandler) HandleInitializationComplete(*InitializationComplete, Connection)           {}
func (BaseHandler) HandleVerifyNodeIDGlobal(*VerifyNodeIDGlobal, Connection)                   {}
func (BaseHandler) HandleVerifyNodeIDAddressed(*VerifyNodeIDAddressed, Connection)             {}
func (BaseHandler) HandleVerifiedNodeID(*VerifiedNodeID, Connection)                           {}
func (BaseHandler) HandleOptionalInteractionRejected(*OptionalInteractionRejected, Connection) {}
func (BaseHandler) HandleTerminateDueToError(*TerminateDueToError, Connection)                 {}
func (BaseHandler) HandleProtocolSupportInquiry(*ProtocolSupportInquiry, Connection)           {}
func (BaseHandler) HandleProtocolSupportReply(*ProtocolSupportReply, Connection)               {}
func (BaseHandler) HandleIdentifyConsumers(*IdentifyConsumers, Connection)                     {}
func (BaseHandler) HandleConsumerIdentified(*ConsumerIdentified, Connection)                   {}
func (BaseHandler) HandleConsumerRangeIdentified(*ConsumerRangeIdentified, Connection)         {}
func (BaseHandler) HandleIdentifyProducers(*IdentifyProducers, Connection)                     {}
func (BaseHandler) HandleProducerIdentified(*ProducerIdentified, Connection)                   {}
func (BaseHandler) HandleProducerRangeIdentified(*ProducerRangeIdentified, Connection)         {}
func (BaseHandler) HandleIdentifyEventsAddressed(*IdentifyEventsAddressed, Connection)         {}
func (BaseHandler) HandleIdentifyEventsGlobal(*IdentifyEventsGlobal, Connection)               {}
func (BaseHandler) HandleLearnEvent(*LearnEvent, Connection)                                   {}
func (BaseHandler) HandleProducerConsumerEventReport(*ProducerConsumerEventReport, Connection) {}
func (BaseHandler) HandleSimpleNodeIdentInfoRequest(*SimpleNodeIdentInfoRequest, Connection)   {}
func (BaseHandler) HandleSimpleNodeIdentInfoReply(*SimpleNodeIdentInfoReply, Connection)       {}
func (BaseHandler) HandleTractionControlRequest(*TractionControlRequest, Connection)           {}
func (BaseHandler) HandleTractionControlReply(*TractionControlReply, Connection)               {}
func (BaseHandler) HandleTractionProxyRequest(*TractionProxyRequest, Connection)               {}
func (BaseHandler) HandleTractionProxyReply(*TractionProxyReply, Connection)                   {}
func (BaseHandler) HandleDatagram(*Datagram, Connection)                                       {}
func (BaseHandler) HandleDatagramAcknowledged(*DatagramAcknowledged, Connection)               {}
func (BaseHandler) HandleDatagramRejected(*DatagramRejected, Connection)                       {}

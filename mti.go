// Copyright 2025 The go-openlcb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package openlcb

import "fmt"

// MTI is a 16-bit OpenLCB message type indicator.
type MTI uint16

const (
	MTIInitializationComplete      MTI = 0x0100
	MTIVerifyNodeIDAddressed       MTI = 0x0488
	MTIVerifyNodeIDGlobal          MTI = 0x0490
	MTIVerifiedNodeID              MTI = 0x0170
	MTIOptionalInteractionRejected MTI = 0x0068
	MTITerminateDueToError         MTI = 0x00A8
	MTIProtocolSupportInquiry      MTI = 0x0828
	MTIProtocolSupportReply        MTI = 0x0668

	MTIIdentifyConsumers             MTI = 0x08F4
	MTIConsumerRangeIdentified       MTI = 0x04A4
	MTIConsumerIdentifiedValid       MTI = 0x04C4
	MTIConsumerIdentifiedInvalid     MTI = 0x04C5
	MTIConsumerIdentifiedUnknown     MTI = 0x04C7
	MTIIdentifyProducers             MTI = 0x0914
	MTIProducerRangeIdentified       MTI = 0x0524
	MTIProducerIdentifiedValid       MTI = 0x0544
	MTIProducerIdentifiedInvalid     MTI = 0x0545
	MTIProducerIdentifiedUnknown     MTI = 0x0547
	MTIIdentifyEventsAddressed       MTI = 0x0968
	MTIIdentifyEventsGlobal          MTI = 0x0970
	MTILearnEvent                    MTI = 0x0594
	MTIProducerConsumerEventReport   MTI = 0x05B4
	MTISimpleNodeIdentInfoRequest    MTI = 0x0DE8
	MTISimpleNodeIdentInfoReply      MTI = 0x0A08
	MTITractionControlRequest        MTI = 0x05EB
	MTITractionControlReply          MTI = 0x01E9
	MTITractionProxyRequest          MTI = 0x05EA
	MTITractionProxyReply            MTI = 0x01E8
	MTIDatagram                      MTI = 0x1C48
	MTIDatagramReceivedOK            MTI = 0x0A28
	MTIDatagramRejected              MTI = 0x0A48
)

// Addressed reports whether messages of this type carry a destination.
func (m MTI) Addressed() bool { return m&0x0008 != 0 }

// HasEvent reports whether messages of this type carry an event ID.
func (m MTI) HasEvent() bool { return m&0x0004 != 0 }

func (m MTI) String() string {
	if name, ok := mtiNames[m]; ok {
		return name
	}
	return fmt.Sprintf("MTI(0x%04X)", uint16(m))
}

var mtiNames = map[MTI]string{
	MTIInitializationComplete:      "InitializationComplete",
	MTIVerifyNodeIDAddressed:       "VerifyNodeIDAddressed",
	MTIVerifyNodeIDGlobal:          "VerifyNodeIDGlobal",
	MTIVerifiedNodeID:              "VerifiedNodeID",
	MTIOptionalInteractionRejected: "OptionalInteractionRejected",
	MTITerminateDueToError:         "TerminateDueToError",
	MTIProtocolSupportInquiry:      "ProtocolSupportInquiry",
	MTIProtocolSupportReply:        "ProtocolSupportReply",
	MTIIdentifyConsumers:           "IdentifyConsumers",
	MTIConsumerRangeIdentified:     "ConsumerRangeIdentified",
	MTIConsumerIdentifiedValid:     "ConsumerIdentifiedValid",
	MTIConsumerIdentifiedInvalid:   "ConsumerIdentifiedInvalid",
	MTIConsumerIdentifiedUnknown:   "ConsumerIdentifiedUnknown",
	MTIIdentifyProducers:           "IdentifyProducers",
	MTIProducerRangeIdentified:     "ProducerRangeIdentified",
	MTIProducerIdentifiedValid:     "ProducerIdentifiedValid",
	MTIProducerIdentifiedInvalid:   "ProducerIdentifiedInvalid",
	MTIProducerIdentifiedUnknown:   "ProducerIdentifiedUnknown",
	MTIIdentifyEventsAddressed:     "IdentifyEventsAddressed",
	MTIIdentifyEventsGlobal:        "IdentifyEventsGlobal",
	MTILearnEvent:                  "LearnEvent",
	MTIProducerConsumerEventReport: "ProducerConsumerEventReport",
	MTISimpleNodeIdentInfoRequest:  "SimpleNodeIdentInfoRequest",
	MTISimpleNodeIdentInfoReply:    "SimpleNodeIdentInfoReply",
	MTITractionControlRequest:      "TractionControlRequest",
	MTITractionControlReply:        "TractionControlReply",
	MTITractionProxyRequest:        "TractionProxyRequest",
	MTITractionProxyReply:          "TractionProxyReply",
	MTIDatagram:                    "Datagram",
	MTIDatagramReceivedOK:          "DatagramReceivedOK",
	MTIDatagramRejected:            "DatagramRejected",
}

// EventState is the validity reported by producer and consumer
// identification replies.
type EventState uint8

const (
	EventStateValid EventState = iota
	EventStateInvalid
	EventStateUnknown
)

func (s EventState) String() string {
	switch s {
	case EventStateValid:
		return "Valid"
	case EventStateInvalid:
		return "Invalid"
	case EventStateUnknown:
		return "Unknown"
	default:
		return "EventState(" + fmt.Sprint(uint8(s)) + ")"
	}
}

// Copyright 2025 The go-openlcb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package can

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/destiny/openlcb"
)

var (
	ErrUnknownAlias       = errors.New("can: no alias for node")
	ErrUnsupportedMessage = errors.New("can: unsupported message")
	ErrPayloadTooLong     = errors.New("can: payload too long")

	errMalformed = errors.New("malformed payload")
)

// addressed frame flag nibble in the high bits of data byte 0
const (
	flagOnly   byte = 0x0
	flagFirst  byte = 0x1
	flagLast   byte = 0x2
	flagMiddle byte = 0x3
)

const addressedChunk = MaxDataLen - 2

// maxAddressedLen bounds a reassembled addressed message. The longest is
// a full SNIP reply.
const maxAddressedLen = 253

type datagramKey struct {
	src, dst Alias
}

type addressedKey struct {
	src, dst Alias
	mti      openlcb.MTI
}

// MessageBuilder converts messages to CAN frames and back. It owns the
// partial assemblies of multi-frame messages received so far; a new start
// frame for the same key discards any unfinished assembly.
//
// A MessageBuilder is not safe for concurrent use.
type MessageBuilder struct {
	aliases   *AliasMap
	log       *openlcb.Logger
	datagrams map[datagramKey][]byte
	addressed map[addressedKey][]byte
}

// NewMessageBuilder returns a builder resolving aliases through aliases.
// A nil log discards diagnostics.
func NewMessageBuilder(aliases *AliasMap, log *openlcb.Logger) *MessageBuilder {
	if log == nil {
		log = openlcb.DevNullLogger
	}
	return &MessageBuilder{
		aliases:   aliases,
		log:       log,
		datagrams: make(map[datagramKey][]byte),
		addressed: make(map[addressedKey][]byte),
	}
}

// Pending returns the number of unfinished multi-frame assemblies.
func (b *MessageBuilder) Pending() int {
	return len(b.datagrams) + len(b.addressed)
}

// ProcessMessage encodes msg into one or more frames.
func (b *MessageBuilder) ProcessMessage(msg openlcb.Message) ([]Frame, error) {
	src, ok := b.aliases.Alias(msg.Source())
	if !ok {
		return nil, fmt.Errorf("%w: source %s", ErrUnknownAlias, msg.Source())
	}

	if am, ok := msg.(openlcb.AddressedMessage); ok {
		dst, ok := b.aliases.Alias(am.Destination())
		if !ok {
			return nil, fmt.Errorf("%w: destination %s", ErrUnknownAlias, am.Destination())
		}
		if dg, ok := msg.(*openlcb.Datagram); ok {
			return datagramFrames(dg.Data, src, dst)
		}
		payload, err := addressedPayload(msg)
		if err != nil {
			return nil, err
		}
		return addressedFrames(msg.MTI(), src, dst, payload), nil
	}

	payload, err := globalPayload(msg)
	if err != nil {
		return nil, err
	}
	return []Frame{NewFrame(messageHeader(msg.MTI(), src), payload)}, nil
}

func globalPayload(msg openlcb.Message) ([]byte, error) {
	switch m := msg.(type) {
	case *openlcb.InitializationComplete, *openlcb.VerifiedNodeID:
		id := m.Source()
		return id[:], nil
	case *openlcb.VerifyNodeIDGlobal:
		if m.Target == nil {
			return nil, nil
		}
		return m.Target[:], nil
	case *openlcb.IdentifyEventsGlobal:
		return nil, nil
	case openlcb.EventMessage:
		ev := m.Event()
		return ev[:], nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedMessage, msg)
}

func addressedPayload(msg openlcb.Message) ([]byte, error) {
	switch m := msg.(type) {
	case *openlcb.VerifyNodeIDAddressed, *openlcb.ProtocolSupportInquiry,
		*openlcb.IdentifyEventsAddressed, *openlcb.SimpleNodeIdentInfoRequest:
		return nil, nil
	case *openlcb.OptionalInteractionRejected:
		return rejectionPayload(m.Rejected, m.Code), nil
	case *openlcb.TerminateDueToError:
		return rejectionPayload(m.Rejected, m.Code), nil
	case *openlcb.ProtocolSupportReply:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], m.Value<<16)
		return buf[:6], nil
	case *openlcb.SimpleNodeIdentInfoReply:
		return m.Data, nil
	case *openlcb.TractionControlRequest:
		return m.Data, nil
	case *openlcb.TractionControlReply:
		return m.Data, nil
	case *openlcb.TractionProxyRequest:
		return m.Data, nil
	case *openlcb.TractionProxyReply:
		return m.Data, nil
	case *openlcb.DatagramAcknowledged:
		if m.Flags == 0 {
			return nil, nil
		}
		return []byte{m.Flags}, nil
	case *openlcb.DatagramRejected:
		return binary.BigEndian.AppendUint16(nil, m.Code), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedMessage, msg)
}

func rejectionPayload(mti openlcb.MTI, code uint16) []byte {
	out := binary.BigEndian.AppendUint16(nil, uint16(mti))
	if code != 0 {
		out = binary.BigEndian.AppendUint16(out, code)
	}
	return out
}

// addressedFrames splits payload into 6-byte chunks behind the two-byte
// flags and destination prefix.
func addressedFrames(mti openlcb.MTI, src, dst Alias, payload []byte) []Frame {
	header := messageHeader(mti, src)
	if len(payload) <= addressedChunk {
		return []Frame{NewFrame(header, addressedData(flagOnly, dst, payload))}
	}
	var frames []Frame
	for off := 0; off < len(payload); off += addressedChunk {
		end := min(off+addressedChunk, len(payload))
		flag := flagMiddle
		switch {
		case off == 0:
			flag = flagFirst
		case end == len(payload):
			flag = flagLast
		}
		frames = append(frames, NewFrame(header, addressedData(flag, dst, payload[off:end])))
	}
	return frames
}

func addressedData(flag byte, dst Alias, chunk []byte) []byte {
	data := make([]byte, 0, 2+len(chunk))
	data = append(data, flag<<4|byte(dst>>8&0x0F), byte(dst))
	return append(data, chunk...)
}

// datagramFrames splits payload into 8-byte frames.
func datagramFrames(payload []byte, src, dst Alias) ([]Frame, error) {
	if len(payload) > openlcb.MaxDatagramLen {
		return nil, fmt.Errorf("%w: datagram of %d bytes", ErrPayloadTooLong, len(payload))
	}
	if len(payload) <= MaxDataLen {
		return []Frame{NewFrame(datagramHeader(FormatDatagramOnly, dst, src), payload)}, nil
	}
	var frames []Frame
	for off := 0; off < len(payload); off += MaxDataLen {
		end := min(off+MaxDataLen, len(payload))
		format := FormatDatagramMiddle
		switch {
		case off == 0:
			format = FormatDatagramFirst
		case end == len(payload):
			format = FormatDatagramLast
		}
		frames = append(frames, NewFrame(datagramHeader(format, dst, src), payload[off:end]))
	}
	return frames, nil
}

// ProcessFrame decodes f. It returns nothing for control frames, for
// frames that continue an unfinished multi-frame message, and for frames
// it cannot parse.
func (b *MessageBuilder) ProcessFrame(f Frame) []openlcb.Message {
	if !f.IsOpenLCB() {
		return nil
	}
	switch f.Format() {
	case FormatGlobalAddressed:
		return b.processMessageFrame(f)
	case FormatDatagramOnly, FormatDatagramFirst, FormatDatagramMiddle, FormatDatagramLast:
		return b.processDatagramFrame(f)
	}
	b.log.Debug("can: ignoring frame format %d: %s", f.Format(), f)
	return nil
}

func (b *MessageBuilder) source(f Frame, mti openlcb.MTI) openlcb.NodeID {
	if id, ok := b.aliases.NodeID(f.Source()); ok {
		return id
	}
	if mti == openlcb.MTIInitializationComplete || mti == openlcb.MTIVerifiedNodeID {
		if id, err := openlcb.NodeIDFromBytes(f.Data); err == nil {
			return id
		}
	}
	return openlcb.NodeID{}
}

func (b *MessageBuilder) destination(a Alias) openlcb.NodeID {
	id, _ := b.aliases.NodeID(a)
	return id
}

func (b *MessageBuilder) processMessageFrame(f Frame) []openlcb.Message {
	mti := openlcb.MTI(f.Variable())
	if dec, ok := globalDecoders[mti]; ok {
		msg, err := dec(b.source(f, mti), f.Data)
		if err != nil {
			b.log.Warn("can: dropping %s frame %s: %v", mti, f, err)
			return nil
		}
		return []openlcb.Message{msg}
	}
	dec, ok := addressedDecoders[mti]
	if !ok {
		b.log.Warn("can: failed to parse MTI 0x%03X", uint16(mti))
		return nil
	}
	if len(f.Data) < 2 {
		b.log.Warn("can: dropping %s frame %s: missing destination", mti, f)
		return nil
	}

	dstAlias := Alias(f.Data[0]&0x0F)<<8 | Alias(f.Data[1])
	flag := f.Data[0] >> 4 & 0x3
	key := addressedKey{src: f.Source(), dst: dstAlias, mti: mti}
	chunk := f.Data[2:]

	var payload []byte
	switch flag {
	case flagOnly:
		delete(b.addressed, key)
		payload = chunk
	case flagFirst:
		b.addressed[key] = append([]byte(nil), chunk...)
		return nil
	case flagMiddle:
		buf, ok := b.addressed[key]
		if !ok {
			b.log.Debug("can: dropping continuation without start: %s", f)
			return nil
		}
		if len(buf)+len(chunk) > maxAddressedLen {
			delete(b.addressed, key)
			b.log.Warn("can: dropping oversized %s from %s", mti, key.src)
			return nil
		}
		b.addressed[key] = append(buf, chunk...)
		return nil
	case flagLast:
		buf, ok := b.addressed[key]
		if !ok {
			b.log.Debug("can: dropping final frame without start: %s", f)
			return nil
		}
		delete(b.addressed, key)
		if len(buf)+len(chunk) > maxAddressedLen {
			b.log.Warn("can: dropping oversized %s from %s", mti, key.src)
			return nil
		}
		payload = append(buf, chunk...)
	}

	msg, err := dec(b.source(f, mti), b.destination(dstAlias), payload)
	if err != nil {
		b.log.Warn("can: dropping %s frame %s: %v", mti, f, err)
		return nil
	}
	return []openlcb.Message{msg}
}

func (b *MessageBuilder) processDatagramFrame(f Frame) []openlcb.Message {
	dstAlias := Alias(f.Variable())
	key := datagramKey{src: f.Source(), dst: dstAlias}

	var payload []byte
	switch f.Format() {
	case FormatDatagramOnly:
		delete(b.datagrams, key)
		payload = f.Data
	case FormatDatagramFirst:
		b.datagrams[key] = append([]byte(nil), f.Data...)
		return nil
	case FormatDatagramMiddle:
		buf, ok := b.datagrams[key]
		if !ok {
			b.log.Debug("can: dropping datagram continuation without start: %s", f)
			return nil
		}
		if len(buf)+len(f.Data) > openlcb.MaxDatagramLen {
			delete(b.datagrams, key)
			b.log.Warn("can: dropping oversized datagram from %s", key.src)
			return nil
		}
		b.datagrams[key] = append(buf, f.Data...)
		return nil
	case FormatDatagramLast:
		buf, ok := b.datagrams[key]
		if !ok {
			b.log.Debug("can: dropping datagram end without start: %s", f)
			return nil
		}
		delete(b.datagrams, key)
		if len(buf)+len(f.Data) > openlcb.MaxDatagramLen {
			b.log.Warn("can: dropping oversized datagram from %s", key.src)
			return nil
		}
		payload = append(buf, f.Data...)
	}

	src := b.source(f, openlcb.MTIDatagram)
	return []openlcb.Message{openlcb.NewDatagram(src, b.destination(dstAlias), payload)}
}

type globalDecoder func(src openlcb.NodeID, data []byte) (openlcb.Message, error)

type addressedDecoder func(src, dst openlcb.NodeID, payload []byte) (openlcb.Message, error)

func eventDecoder(build func(openlcb.NodeID, openlcb.EventID) openlcb.Message) globalDecoder {
	return func(src openlcb.NodeID, data []byte) (openlcb.Message, error) {
		ev, err := openlcb.EventIDFromBytes(data)
		if err != nil {
			return nil, err
		}
		return build(src, ev), nil
	}
}

func consumerIdentified(state openlcb.EventState) globalDecoder {
	return eventDecoder(func(src openlcb.NodeID, ev openlcb.EventID) openlcb.Message {
		return openlcb.NewConsumerIdentified(src, ev, state)
	})
}

func producerIdentified(state openlcb.EventState) globalDecoder {
	return eventDecoder(func(src openlcb.NodeID, ev openlcb.EventID) openlcb.Message {
		return openlcb.NewProducerIdentified(src, ev, state)
	})
}

var globalDecoders = map[openlcb.MTI]globalDecoder{
	openlcb.MTIInitializationComplete: func(src openlcb.NodeID, _ []byte) (openlcb.Message, error) {
		return openlcb.NewInitializationComplete(src), nil
	},
	openlcb.MTIVerifyNodeIDGlobal: func(src openlcb.NodeID, data []byte) (openlcb.Message, error) {
		if len(data) == 0 {
			return openlcb.NewVerifyNodeIDGlobal(src, nil), nil
		}
		target, err := openlcb.NodeIDFromBytes(data)
		if err != nil {
			return nil, err
		}
		return openlcb.NewVerifyNodeIDGlobal(src, &target), nil
	},
	openlcb.MTIVerifiedNodeID: func(src openlcb.NodeID, _ []byte) (openlcb.Message, error) {
		return openlcb.NewVerifiedNodeID(src), nil
	},
	openlcb.MTIIdentifyEventsGlobal: func(src openlcb.NodeID, _ []byte) (openlcb.Message, error) {
		return openlcb.NewIdentifyEventsGlobal(src), nil
	},
	openlcb.MTIIdentifyConsumers: eventDecoder(func(src openlcb.NodeID, ev openlcb.EventID) openlcb.Message {
		return openlcb.NewIdentifyConsumers(src, ev)
	}),
	openlcb.MTIConsumerRangeIdentified: eventDecoder(func(src openlcb.NodeID, ev openlcb.EventID) openlcb.Message {
		return openlcb.NewConsumerRangeIdentified(src, ev)
	}),
	openlcb.MTIIdentifyProducers: eventDecoder(func(src openlcb.NodeID, ev openlcb.EventID) openlcb.Message {
		return openlcb.NewIdentifyProducers(src, ev)
	}),
	openlcb.MTIProducerRangeIdentified: eventDecoder(func(src openlcb.NodeID, ev openlcb.EventID) openlcb.Message {
		return openlcb.NewProducerRangeIdentified(src, ev)
	}),
	openlcb.MTILearnEvent: eventDecoder(func(src openlcb.NodeID, ev openlcb.EventID) openlcb.Message {
		return openlcb.NewLearnEvent(src, ev)
	}),
	openlcb.MTIProducerConsumerEventReport: eventDecoder(func(src openlcb.NodeID, ev openlcb.EventID) openlcb.Message {
		return openlcb.NewProducerConsumerEventReport(src, ev)
	}),
	openlcb.MTIConsumerIdentifiedValid:   consumerIdentified(openlcb.EventStateValid),
	openlcb.MTIConsumerIdentifiedInvalid: consumerIdentified(openlcb.EventStateInvalid),
	openlcb.MTIConsumerIdentifiedUnknown: consumerIdentified(openlcb.EventStateUnknown),
	openlcb.MTIProducerIdentifiedValid:   producerIdentified(openlcb.EventStateValid),
	openlcb.MTIProducerIdentifiedInvalid: producerIdentified(openlcb.EventStateInvalid),
	openlcb.MTIProducerIdentifiedUnknown: producerIdentified(openlcb.EventStateUnknown),
}

func decodeRejection(payload []byte) (openlcb.MTI, uint16, error) {
	if len(payload) < 2 {
		return 0, 0, errMalformed
	}
	mti := openlcb.MTI(binary.BigEndian.Uint16(payload))
	var code uint16
	if len(payload) >= 4 {
		code = binary.BigEndian.Uint16(payload[2:])
	}
	return mti, code, nil
}

var addressedDecoders = map[openlcb.MTI]addressedDecoder{
	openlcb.MTIVerifyNodeIDAddressed: func(src, dst openlcb.NodeID, _ []byte) (openlcb.Message, error) {
		return openlcb.NewVerifyNodeIDAddressed(src, dst), nil
	},
	openlcb.MTIOptionalInteractionRejected: func(src, dst openlcb.NodeID, p []byte) (openlcb.Message, error) {
		mti, code, err := decodeRejection(p)
		if err != nil {
			return nil, err
		}
		return openlcb.NewOptionalInteractionRejected(src, dst, mti, code), nil
	},
	openlcb.MTITerminateDueToError: func(src, dst openlcb.NodeID, p []byte) (openlcb.Message, error) {
		mti, code, err := decodeRejection(p)
		if err != nil {
			return nil, err
		}
		return openlcb.NewTerminateDueToError(src, dst, mti, code), nil
	},
	openlcb.MTIProtocolSupportInquiry: func(src, dst openlcb.NodeID, _ []byte) (openlcb.Message, error) {
		return openlcb.NewProtocolSupportInquiry(src, dst), nil
	},
	openlcb.MTIProtocolSupportReply: func(src, dst openlcb.NodeID, p []byte) (openlcb.Message, error) {
		var buf [8]byte
		copy(buf[:6], p)
		return openlcb.NewProtocolSupportReply(src, dst, binary.BigEndian.Uint64(buf[:])>>16), nil
	},
	openlcb.MTIIdentifyEventsAddressed: func(src, dst openlcb.NodeID, _ []byte) (openlcb.Message, error) {
		return openlcb.NewIdentifyEventsAddressed(src, dst), nil
	},
	openlcb.MTISimpleNodeIdentInfoRequest: func(src, dst openlcb.NodeID, _ []byte) (openlcb.Message, error) {
		return openlcb.NewSimpleNodeIdentInfoRequest(src, dst), nil
	},
	openlcb.MTISimpleNodeIdentInfoReply: func(src, dst openlcb.NodeID, p []byte) (openlcb.Message, error) {
		return openlcb.NewSimpleNodeIdentInfoReply(src, dst, p), nil
	},
	openlcb.MTITractionControlRequest: func(src, dst openlcb.NodeID, p []byte) (openlcb.Message, error) {
		return openlcb.NewTractionControlRequest(src, dst, p), nil
	},
	openlcb.MTITractionControlReply: func(src, dst openlcb.NodeID, p []byte) (openlcb.Message, error) {
		return openlcb.NewTractionControlReply(src, dst, p), nil
	},
	openlcb.MTITractionProxyRequest: func(src, dst openlcb.NodeID, p []byte) (openlcb.Message, error) {
		return openlcb.NewTractionProxyRequest(src, dst, p), nil
	},
	openlcb.MTITractionProxyReply: func(src, dst openlcb.NodeID, p []byte) (openlcb.Message, error) {
		return openlcb.NewTractionProxyReply(src, dst, p), nil
	},
	openlcb.MTIDatagramReceivedOK: func(src, dst openlcb.NodeID, p []byte) (openlcb.Message, error) {
		var flags byte
		if len(p) > 0 {
			flags = p[0]
		}
		return openlcb.NewDatagramAcknowledged(src, dst, flags), nil
	},
	openlcb.MTIDatagramRejected: func(src, dst openlcb.NodeID, p []byte) (openlcb.Message, error) {
		var code uint16
		if len(p) >= 2 {
			code = binary.BigEndian.Uint16(p)
		}
		return openlcb.NewDatagramRejected(src, dst, code), nil
	},
}

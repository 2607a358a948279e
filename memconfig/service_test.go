// Copyright 2025 The go-openlcb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memconfig

//go:generate mockgen -destination mock_handlers_test.go -package memconfig -write_package_comment=false github.com/destiny/openlcb/memconfig ConfigOptionsHandler,ReadHandler,SpaceInfoHandler,WriteHandler

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/destiny/openlcb"
)

var (
	hereID = openlcb.NodeID{5, 1, 1, 1, 3, 1}
	farID  = openlcb.NodeID{1, 2, 3, 4, 5, 7}
)

const (
	space   = SpaceConfig
	address = uint32(0x12345678)
)

// outbox stands in for the datagram transport. It remembers the reply
// connection of the last datagram so that tests can report its outcome.
type outbox struct {
	msgs    []openlcb.Message
	replyTo openlcb.Connection
}

func (o *outbox) Put(msg openlcb.Message, replyTo openlcb.Connection) {
	o.msgs = append(o.msgs, msg)
	if replyTo != nil {
		o.replyTo = replyTo
	}
}

// expectAndNoMore checks that exactly want was sent since the last call.
func (o *outbox) expectAndNoMore(t *testing.T, want openlcb.Message) {
	t.Helper()
	require.Len(t, o.msgs, 1)
	assert.Equal(t, want, o.msgs[0])
	o.msgs = nil
}

func (o *outbox) expectNone(t *testing.T) {
	t.Helper()
	assert.Empty(t, o.msgs)
}

type fixture struct {
	svc  *Service
	out  *outbox
	ctrl *gomock.Controller
}

func newFixture(t *testing.T) *fixture {
	out := &outbox{}
	return &fixture{
		svc:  NewService(hereID, out, nil),
		out:  out,
		ctrl: gomock.NewController(t),
	}
}

// send delivers msg the way the interface does: the transport reports
// acknowledgments and rejections of the last datagram, everything else is
// dispatched to the service.
func (f *fixture) send(msg openlcb.Message) {
	switch msg.(type) {
	case *openlcb.DatagramAcknowledged, *openlcb.DatagramRejected:
		if f.out.replyTo != nil {
			f.out.replyTo.Put(msg, nil)
		}
	default:
		openlcb.Dispatch(msg, f.svc, nil)
	}
}

func datagram(src, dst openlcb.NodeID, data ...byte) *openlcb.Datagram {
	return openlcb.NewDatagram(src, dst, data)
}

func ack(flags byte) *openlcb.DatagramAcknowledged {
	return openlcb.NewDatagramAcknowledged(farID, hereID, flags)
}

func TestWrite(t *testing.T) {
	t.Run("simple", func(t *testing.T) {
		f := newFixture(t)
		hnd := NewMockWriteHandler(f.ctrl)

		require.NoError(t, f.svc.RequestWrite(farID, space, address, []byte{1, 2}, hnd))
		f.out.expectAndNoMore(t, datagram(hereID, farID, 0x20, 0x01, 0x12, 0x34, 0x56, 0x78, 1, 2))

		hnd.EXPECT().HandleSuccess()
		f.send(ack(0))
		assert.Zero(t, f.svc.Pending())
	})

	t.Run("rejected", func(t *testing.T) {
		f := newFixture(t)
		hnd := NewMockWriteHandler(f.ctrl)

		require.NoError(t, f.svc.RequestWrite(farID, space, address, []byte{1, 2}, hnd))
		f.out.expectAndNoMore(t, datagram(hereID, farID, 0x20, 0x01, 0x12, 0x34, 0x56, 0x78, 1, 2))

		hnd.EXPECT().HandleFailure(uint16(0x1999))
		f.send(openlcb.NewDatagramRejected(farID, hereID, 0x1999))
	})

	t.Run("temporary_rejection_waits", func(t *testing.T) {
		f := newFixture(t)
		hnd := NewMockWriteHandler(f.ctrl)

		require.NoError(t, f.svc.RequestWrite(farID, space, address, []byte{1, 2}, hnd))
		f.out.msgs = nil

		f.send(openlcb.NewDatagramRejected(farID, hereID, 0x2020))
		f.out.expectNone(t)
		assert.Equal(t, 1, f.svc.Pending())

		hnd.EXPECT().HandleSuccess()
		f.send(ack(0))
	})

	t.Run("unrelated_ack_ignored", func(t *testing.T) {
		f := newFixture(t)
		hnd := NewMockWriteHandler(f.ctrl)

		require.NoError(t, f.svc.RequestWrite(farID, space, address, []byte{1, 2}, hnd))
		f.out.msgs = nil

		// an acknowledgment of another datagram to the same node
		openlcb.Dispatch(ack(0), f.svc, nil)
		assert.Equal(t, 1, f.svc.Pending())

		stale := f.out.replyTo
		hnd.EXPECT().HandleSuccess()
		f.send(ack(0))
		assert.Zero(t, f.svc.Pending())

		stale.Put(ack(0), nil)
		f.out.expectNone(t)
	})

	t.Run("delayed", func(t *testing.T) {
		f := newFixture(t)
		hnd := NewMockWriteHandler(f.ctrl)

		require.NoError(t, f.svc.RequestWrite(farID, space, address, []byte{1, 2}, hnd))
		f.out.expectAndNoMore(t, datagram(hereID, farID, 0x20, 0x01, 0x12, 0x34, 0x56, 0x78, 1, 2))

		f.send(ack(openlcb.DatagramReplyPending))

		hnd.EXPECT().HandleSuccess()
		f.send(datagram(farID, hereID, 0x20, 0x11, 0x12, 0x34, 0x56, 0x78))
		f.out.expectAndNoMore(t, openlcb.NewDatagramAcknowledged(hereID, farID, 0))
	})

	t.Run("delayed_error", func(t *testing.T) {
		f := newFixture(t)
		hnd := NewMockWriteHandler(f.ctrl)

		require.NoError(t, f.svc.RequestWrite(farID, space, address, []byte{1, 2}, hnd))
		f.out.msgs = nil
		f.send(ack(openlcb.DatagramReplyPending))

		hnd.EXPECT().HandleFailure(uint16(0x1999))
		f.send(datagram(farID, hereID, 0x20, 0x19, 0x12, 0x34, 0x56, 0x78, 0x19, 0x99))
		f.out.expectAndNoMore(t, openlcb.NewDatagramAcknowledged(hereID, farID, 0))
	})

	t.Run("invalid_length", func(t *testing.T) {
		f := newFixture(t)
		hnd := NewMockWriteHandler(f.ctrl)
		assert.ErrorIs(t, f.svc.RequestWrite(farID, space, address, nil, hnd), ErrInvalidLength)
		assert.ErrorIs(t, f.svc.RequestWrite(farID, space, address, make([]byte, 65), hnd), ErrInvalidLength)
		f.out.expectNone(t)
	})
}

func TestRead(t *testing.T) {
	t.Run("simple", func(t *testing.T) {
		f := newFixture(t)
		hnd := NewMockReadHandler(f.ctrl)

		require.NoError(t, f.svc.RequestRead(farID, space, address, 4, hnd))
		f.out.expectAndNoMore(t, datagram(hereID, farID, 0x20, 0x41, 0x12, 0x34, 0x56, 0x78, 4))

		f.send(ack(openlcb.DatagramReplyPending))
		f.out.expectNone(t)

		hnd.EXPECT().HandleReadData(farID, space, address, []byte{0xAA})
		f.send(datagram(farID, hereID, 0x20, 0x51, 0x12, 0x34, 0x56, 0x78, 0xAA))
		f.out.expectAndNoMore(t, openlcb.NewDatagramAcknowledged(hereID, farID, 0))
	})

	t.Run("two_in_sequence", func(t *testing.T) {
		f := newFixture(t)
		hnd := NewMockReadHandler(f.ctrl)

		for i := uint32(0); i < 2; i++ {
			require.NoError(t, f.svc.RequestRead(farID, space, address+i, 4, hnd))
			payload := binary.BigEndian.AppendUint32([]byte{0x20, 0x41}, address+i)
			f.out.expectAndNoMore(t, datagram(hereID, farID, append(payload, 4)...))

			f.send(ack(openlcb.DatagramReplyPending))

			hnd.EXPECT().HandleReadData(farID, space, address+i, []byte{0xAA})
			reply := binary.BigEndian.AppendUint32([]byte{0x20, 0x51}, address+i)
			f.send(datagram(farID, hereID, append(reply, 0xAA)...))
			f.out.expectAndNoMore(t, openlcb.NewDatagramAcknowledged(hereID, farID, 0))
		}
	})

	t.Run("queued_until_reply", func(t *testing.T) {
		f := newFixture(t)
		hnd := NewMockReadHandler(f.ctrl)

		require.NoError(t, f.svc.RequestRead(farID, space, address, 4, hnd))
		require.NoError(t, f.svc.RequestRead(farID, space, address+4, 4, hnd))
		f.out.expectAndNoMore(t, datagram(hereID, farID, 0x20, 0x41, 0x12, 0x34, 0x56, 0x78, 4))
		assert.Equal(t, 2, f.svc.Pending())

		hnd.EXPECT().HandleReadData(farID, space, address, []byte{1, 2, 3, 4})
		f.send(datagram(farID, hereID, 0x20, 0x51, 0x12, 0x34, 0x56, 0x78, 1, 2, 3, 4))
		require.Len(t, f.out.msgs, 2)
		assert.Equal(t, openlcb.NewDatagramAcknowledged(hereID, farID, 0), f.out.msgs[0])
		assert.Equal(t, datagram(hereID, farID, 0x20, 0x41, 0x12, 0x34, 0x56, 0x7C, 4), f.out.msgs[1])
	})

	t.Run("fails", func(t *testing.T) {
		f := newFixture(t)
		hnd := NewMockReadHandler(f.ctrl)

		require.NoError(t, f.svc.RequestRead(farID, space, address, 4, hnd))
		f.out.msgs = nil
		f.send(ack(openlcb.DatagramReplyPending))

		hnd.EXPECT().HandleFailure(uint16(0x1037))
		f.send(datagram(farID, hereID, 0x20, 0x59, 0x12, 0x34, 0x56, 0x78, 0x10, 0x37))
		f.out.expectAndNoMore(t, openlcb.NewDatagramAcknowledged(hereID, farID, 0))
	})

	t.Run("failure_without_code", func(t *testing.T) {
		f := newFixture(t)
		hnd := NewMockReadHandler(f.ctrl)

		require.NoError(t, f.svc.RequestRead(farID, space, address, 4, hnd))
		hnd.EXPECT().HandleFailure(uint16(0))
		f.send(datagram(farID, hereID, 0x20, 0x59, 0x12, 0x34, 0x56, 0x78))
	})

	t.Run("explicit_space", func(t *testing.T) {
		f := newFixture(t)
		hnd := NewMockReadHandler(f.ctrl)

		require.NoError(t, f.svc.RequestRead(farID, 0x01, address, 4, hnd))
		f.out.expectAndNoMore(t, datagram(hereID, farID, 0x20, 0x40, 0x12, 0x34, 0x56, 0x78, 0x01, 4))
		f.send(ack(openlcb.DatagramReplyPending))

		hnd.EXPECT().HandleReadData(farID, byte(0x01), address, []byte{0xAA})
		f.send(datagram(farID, hereID, 0x20, 0x50, 0x12, 0x34, 0x56, 0x78, 0x01, 0xAA))
		f.out.expectAndNoMore(t, openlcb.NewDatagramAcknowledged(hereID, farID, 0))
	})

	t.Run("space_fb", func(t *testing.T) {
		f := newFixture(t)
		hnd := NewMockReadHandler(f.ctrl)

		require.NoError(t, f.svc.RequestRead(farID, SpaceACDIUser, address, 2, hnd))
		f.out.expectAndNoMore(t, datagram(hereID, farID, 0x20, 0x40, 0x12, 0x34, 0x56, 0x78, 0xFB, 2))

		hnd.EXPECT().HandleReadData(farID, SpaceACDIUser, address, []byte{0xAA})
		f.send(datagram(farID, hereID, 0x20, 0x50, 0x12, 0x34, 0x56, 0x78, 0xFB, 0xAA))
	})

	t.Run("mismatched_reply_ignored", func(t *testing.T) {
		f := newFixture(t)
		hnd := NewMockReadHandler(f.ctrl)

		require.NoError(t, f.svc.RequestRead(farID, space, address, 4, hnd))
		f.out.msgs = nil

		// wrong address: acknowledged but not delivered
		f.send(datagram(farID, hereID, 0x20, 0x51, 0x00, 0x00, 0x00, 0x00, 0xAA))
		f.out.expectAndNoMore(t, openlcb.NewDatagramAcknowledged(hereID, farID, 0))
		// addressed elsewhere: ignored entirely
		f.send(datagram(farID, farID, 0x20, 0x51, 0x12, 0x34, 0x56, 0x78, 0xAA))
		f.out.expectNone(t)
		// not a reply: ignored entirely
		f.send(datagram(farID, hereID, 0x20, 0x41, 0x12, 0x34, 0x56, 0x78, 4))
		f.out.expectNone(t)
		assert.Equal(t, 1, f.svc.Pending())
	})

	t.Run("invalid_length", func(t *testing.T) {
		f := newFixture(t)
		hnd := NewMockReadHandler(f.ctrl)
		assert.ErrorIs(t, f.svc.RequestRead(farID, space, address, 0, hnd), ErrInvalidLength)
		assert.ErrorIs(t, f.svc.RequestRead(farID, space, address, 65, hnd), ErrInvalidLength)
	})
}

func TestManyReadsInline(t *testing.T) {
	const (
		length = 64
		count  = 10
	)
	f := newFixture(t)
	hnd := NewMockReadHandler(f.ctrl)

	require.NoError(t, f.svc.RequestRead(farID, space, address, length, hnd))
	for ofs := uint32(0); ofs < count*length; ofs += length {
		payload := binary.BigEndian.AppendUint32([]byte{0x20, 0x41}, address+ofs)
		f.out.expectAndNoMore(t, datagram(hereID, farID, append(payload, length)...))
		f.send(ack(openlcb.DatagramReplyPending))

		reply := binary.BigEndian.AppendUint32([]byte{0x20, 0x51}, address+ofs)
		for i := uint32(0); i < length; i++ {
			reply = append(reply, byte(ofs+i))
		}

		next := ofs + length
		call := hnd.EXPECT().HandleReadData(farID, space, address+ofs, gomock.Any())
		if next < count*length {
			call.Do(func(_ openlcb.NodeID, sp byte, addr uint32, data []byte) {
				assert.Len(t, data, length)
				require.NoError(t, f.svc.RequestRead(farID, sp, addr+length, length, hnd))
			})
		}

		f.send(datagram(farID, hereID, reply...))
		require.NotEmpty(t, f.out.msgs)
		assert.Equal(t, openlcb.NewDatagramAcknowledged(hereID, farID, 0), f.out.msgs[0])
		f.out.msgs = f.out.msgs[1:]
	}
	f.out.expectNone(t)
	assert.Zero(t, f.svc.Pending())
}

func TestSpaceInfo(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		f := newFixture(t)
		hnd := NewMockSpaceInfoHandler(f.ctrl)

		require.NoError(t, f.svc.RequestSpaceInfo(farID, SpaceCDI, hnd))
		f.out.expectAndNoMore(t, datagram(hereID, farID, 0x20, 0x84, 0xFF))

		hnd.EXPECT().HandleSpaceInfo(farID, SpaceInfo{
			Space:          SpaceCDI,
			Present:        true,
			HighestAddress: 0x1FF,
			ReadOnly:       true,
			Description:    "cdi",
		})
		f.send(datagram(farID, hereID, 0x20, 0x86, 0xFF, 0, 0, 0x01, 0xFF, 0x01, 'c', 'd', 'i', 0))
	})

	t.Run("with_low_address", func(t *testing.T) {
		f := newFixture(t)
		hnd := NewMockSpaceInfoHandler(f.ctrl)

		require.NoError(t, f.svc.RequestSpaceInfo(farID, SpaceConfig, hnd))
		hnd.EXPECT().HandleSpaceInfo(farID, SpaceInfo{
			Space:          SpaceConfig,
			Present:        true,
			HighestAddress: 0x200,
			LowestAddress:  0x100,
		})
		f.send(datagram(farID, hereID, 0x20, 0x86, 0xFD, 0, 0, 0x02, 0x00, 0x02, 0, 0, 0x01, 0x00))
	})

	t.Run("absent", func(t *testing.T) {
		f := newFixture(t)
		hnd := NewMockSpaceInfoHandler(f.ctrl)

		require.NoError(t, f.svc.RequestSpaceInfo(farID, 0x10, hnd))
		hnd.EXPECT().HandleSpaceInfo(farID, SpaceInfo{Space: 0x10})
		f.send(datagram(farID, hereID, 0x20, 0x87, 0x10))
	})

	t.Run("rejected", func(t *testing.T) {
		f := newFixture(t)
		hnd := NewMockSpaceInfoHandler(f.ctrl)

		require.NoError(t, f.svc.RequestSpaceInfo(farID, SpaceCDI, hnd))
		hnd.EXPECT().HandleFailure(openlcb.RejectNotImplemented)
		f.send(openlcb.NewDatagramRejected(farID, hereID, openlcb.RejectNotImplemented))
	})
}

func TestConfigOptions(t *testing.T) {
	f := newFixture(t)
	hnd := NewMockConfigOptionsHandler(f.ctrl)

	require.NoError(t, f.svc.RequestConfigOptions(farID, hnd))
	f.out.expectAndNoMore(t, datagram(hereID, farID, 0x20, 0x80))

	hnd.EXPECT().HandleConfigOptions(farID, ConfigOptions{
		Commands:     OptionUnalignedRead | OptionACDIMfgRead,
		WriteLengths: 0xC2,
		HighestSpace: 0xFF,
		LowestSpace:  0xFB,
		Name:         "node",
	})
	f.send(datagram(farID, hereID, 0x20, 0x82, 0x48, 0x00, 0xC2, 0xFF, 0xFB, 'n', 'o', 'd', 'e', 0))
	f.out.expectAndNoMore(t, openlcb.NewDatagramAcknowledged(hereID, farID, 0))
}

func TestFuncAdapters(t *testing.T) {
	var got []byte
	var code uint16
	r := ReadFuncs{
		Data:    func(_ openlcb.NodeID, _ byte, _ uint32, data []byte) { got = data },
		Failure: func(c uint16) { code = c },
	}
	r.HandleReadData(farID, space, address, []byte{1})
	r.HandleFailure(7)
	assert.Equal(t, []byte{1}, got)
	assert.Equal(t, uint16(7), code)

	var ok bool
	WriteFuncs{Success: func() { ok = true }}.HandleSuccess()
	WriteFuncs{}.HandleFailure(1)
	assert.True(t, ok)
}

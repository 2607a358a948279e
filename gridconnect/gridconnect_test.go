// Copyright 2025 The go-openlcb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gridconnect

import (
	"bytes"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/destiny/openlcb"
	"github.com/destiny/openlcb/can"
)

var testVectors = []struct {
	frame can.Frame
	text  string
}{
	{can.NewFrame(0x19100123, []byte{1, 2, 3, 4, 5, 6}), ":X19100123N010203040506;"},
	{can.NewFrame(0x19490123, nil), ":X19490123N;"},
	{can.NewFrame(0x10700ABC, nil), ":X10700ABCN;"},
	{can.NewFrame(0x1A321123, []byte{0x20, 0x50, 0x12, 0x34, 0x56, 0x78, 0xFB, 0xAA}), ":X1A321123N205012345678FBAA;"},
}

func TestFormat(t *testing.T) {
	for _, tv := range testVectors {
		assert.Equal(t, tv.text, Format(tv.frame))
		assert.Len(t, tv.text, EncodedLen(len(tv.frame.Data)))
	}
}

func TestParse(t *testing.T) {
	for _, tv := range testVectors {
		t.Run(tv.text, func(t *testing.T) {
			f, err := ParseString(tv.text)
			require.NoError(t, err)
			assert.True(t, tv.frame.Equal(f), "got %s", f)
		})
	}

	t.Run("lenient", func(t *testing.T) {
		f, err := ParseString("  :x19170123n0a0b;\r\n")
		require.NoError(t, err)
		assert.Equal(t, uint32(0x19170123), f.Header)
		assert.Equal(t, []byte{0x0A, 0x0B}, f.Data)

		f, err = ParseString(":X123N;")
		require.NoError(t, err)
		assert.Equal(t, uint32(0x123), f.Header)
	})

	t.Run("invalid", func(t *testing.T) {
		for _, text := range []string{
			"",
			":X;",
			"X19100123N;",
			":X19100123N",
			":XN01;",
			":X19100123N0;",
			":X19100123NZZ;",
			":X1910012345N;",
			":X3FFFFFFFN;",
			":X19100123N010203040506070809;",
			":Y19100123N;",
			":X19100123R;",
		} {
			_, err := ParseString(text)
			assert.ErrorIs(t, err, ErrInvalidFrame, "%q", text)
		}
		_, err := ParseString(":S123N;")
		assert.ErrorIs(t, err, ErrStandard)
	})
}

func TestRoundTripThroughCodec(t *testing.T) {
	local := openlcb.NodeID{1, 2, 3, 4, 5, 6}
	far := openlcb.NodeID{6, 5, 4, 3, 2, 1}
	aliases := can.NewAliasMap()
	aliases.Insert(0x123, local)
	aliases.Insert(0x321, far)

	msg := openlcb.NewDatagram(far, local, []byte{0x20, 0x50, 0x12, 0x34, 0x56, 0x78, 0xFB, 0xAA})
	frames, err := can.NewMessageBuilder(aliases, nil).ProcessMessage(msg)
	require.NoError(t, err)
	require.Len(t, frames, 1)

	text := Format(frames[0])
	assert.Equal(t, ":X1A123321N205012345678FBAA;", text)

	f, err := ParseString(text)
	require.NoError(t, err)
	got := can.NewMessageBuilder(aliases, nil).ProcessFrame(f)
	require.Len(t, got, 1)
	assert.Equal(t, msg, got[0])
}

type duplex struct {
	in  io.Reader
	out bytes.Buffer
}

func (d *duplex) Read(p []byte) (int, error)  { return d.in.Read(p) }
func (d *duplex) Write(p []byte) (int, error) { return d.out.Write(p) }

type closingDuplex struct {
	duplex
	closes int
}

func (d *closingDuplex) Close() error {
	d.closes++
	return nil
}

func TestConn(t *testing.T) {
	t.Run("read_skips_noise", func(t *testing.T) {
		in := "garbage\n:X19100123N010203040506;\r\n:Xbad;:X19490123N;\n:X1A321123N20"
		c := NewConn(&duplex{in: strings.NewReader(in)})

		f, err := c.ReadFrame()
		require.NoError(t, err)
		assert.Equal(t, uint32(0x19100123), f.Header)

		f, err = c.ReadFrame()
		require.NoError(t, err)
		assert.Equal(t, uint32(0x19490123), f.Header)

		_, err = c.ReadFrame()
		assert.ErrorIs(t, err, io.EOF)
		assert.True(t, c.Closed())
		_, err = c.ReadFrame()
		assert.ErrorIs(t, err, ErrClosedConn)
	})

	t.Run("close_after_eof", func(t *testing.T) {
		d := &closingDuplex{duplex: duplex{in: strings.NewReader("")}}
		c := NewConn(d)
		_, err := c.ReadFrame()
		assert.ErrorIs(t, err, io.EOF)
		assert.True(t, c.Closed())
		assert.Zero(t, d.closes)

		require.NoError(t, c.Close())
		require.NoError(t, c.Close())
		assert.Equal(t, 1, d.closes)
	})

	t.Run("write", func(t *testing.T) {
		d := &duplex{in: strings.NewReader("")}
		c := NewConn(d)
		require.NoError(t, c.WriteFrame(testVectors[0].frame))
		require.NoError(t, c.WriteFrame(testVectors[1].frame))
		assert.Equal(t, testVectors[0].text+"\n"+testVectors[1].text+"\n", d.out.String())

		require.NoError(t, c.Close())
		assert.ErrorIs(t, c.WriteFrame(testVectors[0].frame), ErrClosedConn)
	})

	t.Run("pipe", func(t *testing.T) {
		a, b := net.Pipe()
		ca, cb := NewConn(a), NewConn(b)
		defer ca.Close()
		defer cb.Close()

		go func() {
			for _, tv := range testVectors {
				_ = ca.WriteFrame(tv.frame)
			}
		}()
		for _, tv := range testVectors {
			f, err := cb.ReadFrame()
			require.NoError(t, err)
			assert.True(t, tv.frame.Equal(f))
		}
	})
}

// Copyright 2025 The go-openlcb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gridconnect

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/destiny/openlcb/can"
)

var ErrClosedConn = errors.New("gridconnect: read/write on closed connection")

// maxLine bounds the bytes buffered while looking for the end of a frame.
const maxLine = 64

// Conn reads and writes GridConnect frames over a byte stream. Reads and
// writes may happen concurrently; concurrent writers are serialized.
type Conn struct {
	rw io.ReadWriter
	r  *bufio.Reader

	wmu sync.Mutex
	buf []byte

	closed    int32
	closeOnce sync.Once
	closeErr  error
}

// NewConn wraps rw.
func NewConn(rw io.ReadWriter) *Conn {
	return &Conn{
		rw:  rw,
		r:   bufio.NewReader(rw),
		buf: make([]byte, 0, EncodedLen(can.MaxDataLen)+1),
	}
}

// Dial connects to a GridConnect hub at addr ("host:port").
func Dial(addr string) (*Conn, error) {
	c, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewConn(c), nil
}

// ReadFrame returns the next well-formed frame. Text outside frames and
// frames that fail to parse are skipped.
func (c *Conn) ReadFrame() (can.Frame, error) {
	if c.Closed() {
		return can.Frame{}, ErrClosedConn
	}
	for {
		line, err := c.readLine()
		if err != nil {
			c.checkIO(err)
			return can.Frame{}, err
		}
		f, err := Parse(line)
		if err != nil {
			continue
		}
		return f, nil
	}
}

// readLine returns the bytes from the next ':' up to and including ';'.
func (c *Conn) readLine() ([]byte, error) {
	var line []byte
	for {
		b, err := c.r.ReadByte()
		if err != nil {
			return nil, err
		}
		switch {
		case b == ':':
			line = append(line[:0], b)
		case line == nil:
			// between frames
		case b == ';':
			return append(line, b), nil
		case len(line) >= maxLine:
			line = nil
		default:
			line = append(line, b)
		}
	}
}

// WriteFrame writes f followed by a newline.
func (c *Conn) WriteFrame(f can.Frame) error {
	if c.Closed() {
		return ErrClosedConn
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()

	c.buf = append(Append(c.buf[:0], f), '\n')
	_, err := c.rw.Write(c.buf)
	c.checkIO(err)
	return err
}

// Close closes the underlying stream if it is an io.Closer. The stream
// is closed even when the peer has already hung up.
func (c *Conn) Close() error {
	atomic.StoreInt32(&c.closed, 1)
	c.closeOnce.Do(func() {
		if cl, ok := c.rw.(io.Closer); ok {
			c.closeErr = cl.Close()
		}
	})
	return c.closeErr
}

// Closed reports whether the connection has been closed.
func (c *Conn) Closed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

func (c *Conn) checkIO(err error) {
	if err == nil {
		return
	}
	if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		atomic.StoreInt32(&c.closed, 1)
	}
}

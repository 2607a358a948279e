// Copyright 2025 The go-openlcb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package hub implements a TCP hub that joins GridConnect clients into
// one virtual CAN bus: every frame read from a client is written to all
// other clients.
package hub

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/rs/xid"
	"golang.org/x/sync/errgroup"

	"github.com/destiny/openlcb"
	"github.com/destiny/openlcb/can"
	"github.com/destiny/openlcb/gridconnect"
)

// DefaultPort is the customary port of OpenLCB GridConnect hubs.
const DefaultPort = 12021

// Options configures hub behavior.
type Options struct {
	Logger    *openlcb.Logger
	QueueSize int           // frames buffered per client before dropping
	Tap       can.FrameSink // receives every frame read from a client
}

// DefaultOptions returns default hub options.
func DefaultOptions() *Options {
	return &Options{
		Logger:    openlcb.DevNullLogger,
		QueueSize: 256,
	}
}

type client struct {
	id     xid.ID
	conn   *gridconnect.Conn
	remote string
	out    chan can.Frame
}

// Hub relays frames between connected clients.
type Hub struct {
	addr    string
	options *Options
	log     *openlcb.Logger

	ln     net.Listener
	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	mu      sync.RWMutex
	running bool
	clients map[xid.ID]*client

	totalClients uint64
	totalFrames  uint64
	dropped      uint64
}

// NewHub creates a hub that will listen on addr ("host:port").
func NewHub(addr string, options *Options) *Hub {
	if options == nil {
		options = DefaultOptions()
	}
	if options.QueueSize <= 0 {
		options.QueueSize = DefaultOptions().QueueSize
	}
	log := options.Logger
	if log == nil {
		log = openlcb.DevNullLogger
	}
	return &Hub{
		addr:    addr,
		options: options,
		log:     log,
		clients: make(map[xid.ID]*client),
	}
}

// Start listens and accepts clients in the background.
func (h *Hub) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return fmt.Errorf("hub: already running")
	}
	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("hub: failed to listen on %s: %w", h.addr, err)
	}
	h.ln = ln
	h.ctx, h.cancel = context.WithCancel(context.Background())
	h.group, h.ctx = errgroup.WithContext(h.ctx)
	h.running = true

	h.group.Go(h.acceptLoop)
	h.log.Info("hub: listening on %s", ln.Addr())
	return nil
}

// Addr returns the listening address, or nil before Start.
func (h *Hub) Addr() net.Addr {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.ln == nil {
		return nil
	}
	return h.ln.Addr()
}

// Stop disconnects every client and waits for the hub goroutines.
func (h *Hub) Stop() error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return fmt.Errorf("hub: not running")
	}
	h.running = false
	h.cancel()
	err := h.ln.Close()
	for _, c := range h.clients {
		c.conn.Close()
	}
	h.mu.Unlock()

	if werr := h.group.Wait(); werr != nil && !errors.Is(werr, net.ErrClosed) {
		err = werr
	}
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	h.log.Info("hub: stopped")
	return err
}

// Inject sends f to every client, as if it came from a client that is
// not connected.
func (h *Hub) Inject(f can.Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	h.broadcast(xid.NilID(), f)
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) acceptLoop() error {
	for {
		conn, err := h.ln.Accept()
		if err != nil {
			if h.ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("hub: accept failed: %w", err)
		}

		c := &client{
			id:     xid.New(),
			conn:   gridconnect.NewConn(conn),
			remote: conn.RemoteAddr().String(),
			out:    make(chan can.Frame, h.options.QueueSize),
		}
		h.mu.Lock()
		if !h.running {
			h.mu.Unlock()
			c.conn.Close()
			return nil
		}
		h.clients[c.id] = c
		h.totalClients++
		h.mu.Unlock()

		h.log.Info("hub: client %s connected from %s", c.id, c.remote)
		h.group.Go(func() error { return h.readLoop(c) })
		h.group.Go(func() error { return h.writeLoop(c) })
	}
}

func (h *Hub) readLoop(c *client) error {
	defer h.remove(c)
	for {
		f, err := c.conn.ReadFrame()
		if err != nil {
			h.log.Debug("hub: client %s read ended: %v", c.id, err)
			return nil
		}
		h.log.Trace("hub: %s -> %s", c.id, f)
		if h.options.Tap != nil {
			if err := h.options.Tap.WriteFrame(f); err != nil {
				h.log.Warn("hub: tap rejected %s: %v", f, err)
			}
		}
		h.broadcast(c.id, f)
	}
}

func (h *Hub) writeLoop(c *client) error {
	for f := range c.out {
		if err := c.conn.WriteFrame(f); err != nil {
			h.log.Debug("hub: client %s write failed: %v", c.id, err)
			c.conn.Close()
		}
	}
	return nil
}

func (h *Hub) broadcast(from xid.ID, f can.Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.totalFrames++
	for id, c := range h.clients {
		if id == from {
			continue
		}
		select {
		case c.out <- f:
		default:
			h.dropped++
			h.log.Warn("hub: client %s is not keeping up, dropping %s", id, f)
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.out)
	}
	h.mu.Unlock()
	c.conn.Close()
	h.log.Info("hub: client %s disconnected", c.id)
}

// GetStats returns hub statistics.
func (h *Hub) GetStats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make(map[string]interface{}, len(h.clients))
	for id, c := range h.clients {
		clients[id.String()] = map[string]interface{}{
			"remote":  c.remote,
			"pending": len(c.out),
		}
	}
	return map[string]interface{}{
		"total_clients":  h.totalClients,
		"total_frames":   h.totalFrames,
		"dropped_frames": h.dropped,
		"active_clients": len(h.clients),
		"clients":        clients,
	}
}

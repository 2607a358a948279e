// Copyright 2025 The go-openlcb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/destiny/openlcb"
	"github.com/destiny/openlcb/can"
	"github.com/destiny/openlcb/gridconnect"
	"github.com/destiny/openlcb/memconfig"
)

// session is a local node attached to a hub and talking to one target.
type session struct {
	conn   *gridconnect.Conn
	node   *can.Interface
	group  *errgroup.Group
	target openlcb.NodeID
	log    *openlcb.Logger
}

type sessionOptions struct {
	Hub          string
	Local        openlcb.NodeID
	Target       openlcb.NodeID
	ReserveDelay time.Duration
	Logger       *openlcb.Logger
}

// FailureError reports a memory configuration error code from the target.
type FailureError struct {
	Code uint16
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("request failed with code 0x%04X", e.Code)
}

func openSession(ctx context.Context, opts sessionOptions) (*session, error) {
	log := opts.Logger
	if log == nil {
		log = openlcb.DevNullLogger
	}
	conn, err := gridconnect.Dial(opts.Hub)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", opts.Hub, err)
	}

	nodeOpts := []can.Option{can.WithLogger(log)}
	if opts.ReserveDelay > 0 {
		nodeOpts = append(nodeOpts, can.WithReserveDelay(opts.ReserveDelay))
	}
	s := &session{
		conn:   conn,
		node:   can.NewInterface(opts.Local, conn, nodeOpts...),
		group:  new(errgroup.Group),
		target: opts.Target,
		log:    log,
	}
	s.group.Go(s.readLoop)

	if err := s.node.Start(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("reserve alias: %w", err)
	}
	if err := s.resolve(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) readLoop() error {
	for {
		f, err := s.conn.ReadFrame()
		if err != nil {
			if s.conn.Closed() {
				return nil
			}
			return err
		}
		if err := s.node.HandleFrame(f); err != nil {
			s.log.Debug("memtool: dropped frame %s: %v", f, err)
		}
	}
}

// resolve asks the target to identify itself until its alias is known.
func (s *session) resolve(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for i := 0; ; i++ {
		if _, ok := s.node.AliasMap().Alias(s.target); ok {
			return nil
		}
		if i%10 == 0 {
			s.node.Output().Put(openlcb.NewVerifyNodeIDGlobal(s.node.NodeID(), &s.target), nil)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("node %s not found: %w", s.target, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Close detaches from the hub.
func (s *session) Close() error {
	s.node.Close()
	s.conn.Close()
	return s.group.Wait()
}

type outcome struct {
	data    []byte
	info    memconfig.SpaceInfo
	options memconfig.ConfigOptions
	err     error
}

type waiter chan outcome

func (w waiter) HandleReadData(_ openlcb.NodeID, _ byte, _ uint32, data []byte) {
	w <- outcome{data: data}
}
func (w waiter) HandleSuccess() { w <- outcome{} }
func (w waiter) HandleSpaceInfo(_ openlcb.NodeID, info memconfig.SpaceInfo) {
	w <- outcome{info: info}
}
func (w waiter) HandleConfigOptions(_ openlcb.NodeID, options memconfig.ConfigOptions) {
	w <- outcome{options: options}
}
func (w waiter) HandleFailure(code uint16) { w <- outcome{err: &FailureError{Code: code}} }

func (w waiter) wait(ctx context.Context) (outcome, error) {
	select {
	case o := <-w:
		return o, o.err
	case <-ctx.Done():
		return outcome{}, ctx.Err()
	}
}

// Read reads length bytes starting at address, in as many requests as
// needed. A short reply ends the read early.
func (s *session) Read(ctx context.Context, space byte, address uint32, length int) ([]byte, error) {
	var out []byte
	for length > 0 {
		n := min(length, memconfig.MaxTransferLen)
		w := make(waiter, 1)
		if err := s.node.MemoryConfig().RequestRead(s.target, space, address, n, w); err != nil {
			return out, err
		}
		o, err := w.wait(ctx)
		if err != nil {
			return out, err
		}
		out = append(out, o.data...)
		if len(o.data) < n {
			break
		}
		address += uint32(n)
		length -= n
	}
	return out, nil
}

// Write writes data starting at address, in as many requests as needed.
func (s *session) Write(ctx context.Context, space byte, address uint32, data []byte) error {
	for len(data) > 0 {
		n := min(len(data), memconfig.MaxTransferLen)
		w := make(waiter, 1)
		if err := s.node.MemoryConfig().RequestWrite(s.target, space, address, data[:n], w); err != nil {
			return err
		}
		if _, err := w.wait(ctx); err != nil {
			return err
		}
		address += uint32(n)
		data = data[n:]
	}
	return nil
}

// SpaceInfo queries one address space.
func (s *session) SpaceInfo(ctx context.Context, space byte) (memconfig.SpaceInfo, error) {
	w := make(waiter, 1)
	if err := s.node.MemoryConfig().RequestSpaceInfo(s.target, space, w); err != nil {
		return memconfig.SpaceInfo{}, err
	}
	o, err := w.wait(ctx)
	return o.info, err
}

// ConfigOptions queries the target's memory configuration options.
func (s *session) ConfigOptions(ctx context.Context) (memconfig.ConfigOptions, error) {
	w := make(waiter, 1)
	if err := s.node.MemoryConfig().RequestConfigOptions(s.target, w); err != nil {
		return memconfig.ConfigOptions{}, err
	}
	o, err := w.wait(ctx)
	return o.options, err
}

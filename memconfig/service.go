// Copyright 2025 The go-openlcb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package memconfig implements the client side of the memory
// configuration protocol over datagrams.
//
// Requests are sent one at a time in the order they were issued; a reply
// is matched to the oldest outstanding request. A handler may issue the
// next request from inside its callback, which is how callers page
// through a large address range.
package memconfig

import (
	"sync"

	"github.com/destiny/openlcb"
)

// Options configures a Service.
type Options struct {
	Logger *openlcb.Logger
}

// DefaultOptions returns default service options.
func DefaultOptions() *Options {
	return &Options{
		Logger: openlcb.DevNullLogger,
	}
}

type request struct {
	dest    openlcb.NodeID
	kind    replyKind
	space   byte
	address uint32
	payload []byte

	read    ReadHandler
	write   WriteHandler
	info    SpaceInfoHandler
	options ConfigOptionsHandler
}

func (r *request) fail(code uint16) {
	switch r.kind {
	case replyRead:
		r.read.HandleFailure(code)
	case replyWrite:
		r.write.HandleFailure(code)
	case replySpaceInfo:
		r.info.HandleFailure(code)
	case replyOptions:
		r.options.HandleFailure(code)
	}
}

// Service issues memory configuration requests for the local node. It
// implements openlcb.Handler so that inbound reply datagrams can be
// dispatched to it.
//
// The outcome of each request datagram is taken from the transport: out
// must report the acknowledgment or permanent rejection of a datagram to
// the connection passed with it, as datagram.MeteringBuffer does. An
// acknowledgment of some other datagram to the same node therefore never
// completes a request.
type Service struct {
	openlcb.BaseHandler

	local openlcb.NodeID
	out   openlcb.Connection
	log   *openlcb.Logger

	mu      sync.Mutex
	pending []*request
	sent    bool // pending[0] is on the wire
}

// NewService creates a service sending datagrams from local through out.
func NewService(local openlcb.NodeID, out openlcb.Connection, options *Options) *Service {
	if options == nil {
		options = DefaultOptions()
	}
	log := options.Logger
	if log == nil {
		log = openlcb.DevNullLogger
	}
	return &Service{local: local, out: out, log: log}
}

// RequestRead reads length bytes (1 to 64) from space at address on dest.
func (s *Service) RequestRead(dest openlcb.NodeID, space byte, address uint32, length int, h ReadHandler) error {
	payload, err := ReadPayload(space, address, length)
	if err != nil {
		return err
	}
	s.enqueue(&request{dest: dest, kind: replyRead, space: space, address: address, payload: payload, read: h})
	return nil
}

// RequestWrite writes data (1 to 64 bytes) to space at address on dest.
func (s *Service) RequestWrite(dest openlcb.NodeID, space byte, address uint32, data []byte, h WriteHandler) error {
	payload, err := WritePayload(space, address, data)
	if err != nil {
		return err
	}
	s.enqueue(&request{dest: dest, kind: replyWrite, space: space, address: address, payload: payload, write: h})
	return nil
}

// RequestSpaceInfo asks dest to describe an address space.
func (s *Service) RequestSpaceInfo(dest openlcb.NodeID, space byte, h SpaceInfoHandler) error {
	s.enqueue(&request{dest: dest, kind: replySpaceInfo, space: space, payload: SpaceInfoPayload(space), info: h})
	return nil
}

// RequestConfigOptions asks dest for its configuration options.
func (s *Service) RequestConfigOptions(dest openlcb.NodeID, h ConfigOptionsHandler) error {
	s.enqueue(&request{dest: dest, kind: replyOptions, payload: ConfigOptionsPayload(), options: h})
	return nil
}

// Pending returns the number of requests not yet completed.
func (s *Service) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Service) enqueue(r *request) {
	s.mu.Lock()
	s.pending = append(s.pending, r)
	s.mu.Unlock()
	s.kick()
}

// kick sends the head request if nothing is on the wire.
func (s *Service) kick() {
	s.mu.Lock()
	if s.sent || len(s.pending) == 0 {
		s.mu.Unlock()
		return
	}
	head := s.pending[0]
	s.sent = true
	s.mu.Unlock()

	s.out.Put(openlcb.NewDatagram(s.local, head.dest, head.payload), &transferReplies{s: s, r: head})
}

// finishLocked removes the head request.
func (s *Service) finishLocked() *request {
	head := s.pending[0]
	s.pending = s.pending[1:]
	s.sent = false
	return head
}

// headLocked returns the request on the wire if it was sent to node.
func (s *Service) headLocked(node openlcb.NodeID) *request {
	if !s.sent || len(s.pending) == 0 || s.pending[0].dest != node {
		return nil
	}
	return s.pending[0]
}

// transferReplies receives the transport's report on the datagram of one
// request: its acknowledgment or its permanent rejection.
type transferReplies struct {
	s *Service
	r *request
}

func (t *transferReplies) Put(msg openlcb.Message, _ openlcb.Connection) {
	switch m := msg.(type) {
	case *openlcb.DatagramAcknowledged:
		t.s.acknowledged(t.r, m)
	case *openlcb.DatagramRejected:
		t.s.rejected(t.r, m)
	}
}

// acknowledged completes a write that will not be followed by a reply
// datagram.
func (s *Service) acknowledged(r *request, msg *openlcb.DatagramAcknowledged) {
	s.mu.Lock()
	if !s.isHeadLocked(r) || r.kind != replyWrite || msg.ReplyPending() {
		s.mu.Unlock()
		return
	}
	s.finishLocked()
	s.mu.Unlock()

	r.write.HandleSuccess()
	s.kick()
}

// rejected fails the request when the rejection is permanent. Temporary
// rejections are resent by the transport.
func (s *Service) rejected(r *request, msg *openlcb.DatagramRejected) {
	if msg.CanResend() {
		return
	}
	s.mu.Lock()
	if !s.isHeadLocked(r) {
		s.mu.Unlock()
		return
	}
	s.finishLocked()
	s.mu.Unlock()

	s.log.Debug("memconfig: request to %s rejected with 0x%04X", r.dest, msg.Code)
	r.fail(msg.Code)
	s.kick()
}

func (s *Service) isHeadLocked(r *request) bool {
	return s.sent && len(s.pending) > 0 && s.pending[0] == r
}

// HandleDatagram acknowledges memory configuration replies addressed to
// the local node and completes the matching request.
func (s *Service) HandleDatagram(msg *openlcb.Datagram, _ openlcb.Connection) {
	if msg.Destination() != s.local || !IsReply(msg.Data) {
		return
	}
	s.out.Put(openlcb.NewDatagramAcknowledged(s.local, msg.Source(), 0), nil)

	r, err := parseReply(msg.Data)
	if err != nil {
		s.log.Warn("memconfig: bad reply from %s: %v", msg.Source(), err)
		return
	}

	s.mu.Lock()
	head := s.headLocked(msg.Source())
	if head == nil || !head.matches(r) {
		s.mu.Unlock()
		s.log.Debug("memconfig: unexpected reply from %s: %s", msg.Source(), msg)
		return
	}
	s.finishLocked()
	s.mu.Unlock()

	head.complete(r)
	s.kick()
}

func (r *request) matches(rep reply) bool {
	if r.kind != rep.kind {
		return false
	}
	switch r.kind {
	case replyRead, replyWrite:
		return r.space == rep.space && r.address == rep.address
	case replySpaceInfo:
		return r.space == rep.space
	}
	return true
}

func (r *request) complete(rep reply) {
	if rep.failed {
		r.fail(rep.code)
		return
	}
	switch r.kind {
	case replyRead:
		r.read.HandleReadData(r.dest, r.space, r.address, rep.data)
	case replyWrite:
		r.write.HandleSuccess()
	case replySpaceInfo:
		r.info.HandleSpaceInfo(r.dest, rep.info)
	case replyOptions:
		r.options.HandleConfigOptions(r.dest, rep.options)
	}
}

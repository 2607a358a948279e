// Copyright 2025 The go-openlcb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package datagram implements flow-controlled datagram delivery: at most
// one datagram is outstanding at a time, and rejected datagrams are sent
// again until the destination accepts them.
package datagram

import (
	"sync"

	"github.com/destiny/openlcb"
)

// Options configures a MeteringBuffer.
type Options struct {
	Logger *openlcb.Logger
}

// DefaultOptions returns default buffer options.
func DefaultOptions() *Options {
	return &Options{
		Logger: openlcb.DevNullLogger,
	}
}

// Stats is a snapshot of buffer counters.
type Stats struct {
	Forwarded     uint64 // non-datagram messages passed through
	Sent          uint64 // datagrams sent for the first time
	Retransmitted uint64 // datagrams sent again after a rejection
	Acknowledged  uint64
	Failed        uint64 // datagrams rejected with a permanent error
	Queued        int    // datagrams waiting behind the one in flight
	InFlight      bool
}

type transfer struct {
	msg     *openlcb.Datagram
	replyTo openlcb.Connection
}

// job is either a message from Put or, when resend is set, a datagram
// already accepted that the worker sends if it is still in flight.
type job struct {
	msg     openlcb.Message
	replyTo openlcb.Connection
	resend  *transfer
}

// MeteringBuffer sits between message producers and the bus. Datagrams
// are held until the previous one is acknowledged; every other message
// passes straight through. Acknowledgments and rejections reach the
// buffer through ReplyConnection. The acknowledgment or permanent
// rejection of a datagram is then reported to the replyTo given with it;
// temporary rejections are handled here.
type MeteringBuffer struct {
	downstream openlcb.Connection
	log        *openlcb.Logger
	reply      openlcb.Connection

	mu       sync.Mutex
	cond     *sync.Cond
	jobs     []job // accepted by Put, not yet processed
	active   bool  // worker is processing a job
	inFlight *transfer
	queue    []transfer
	closed   bool
	stats    Stats

	done chan struct{}
}

// NewMeteringBuffer creates a buffer forwarding to downstream and starts
// its delivery goroutine.
func NewMeteringBuffer(downstream openlcb.Connection, options *Options) *MeteringBuffer {
	if options == nil {
		options = DefaultOptions()
	}
	log := options.Logger
	if log == nil {
		log = openlcb.DevNullLogger
	}

	b := &MeteringBuffer{
		downstream: downstream,
		log:        log,
		done:       make(chan struct{}),
	}
	b.cond = sync.NewCond(&b.mu)
	b.reply = &replyConnection{b}

	go b.run()
	return b
}

// Put queues msg for delivery. It never blocks on downstream I/O.
func (b *MeteringBuffer) Put(msg openlcb.Message, replyTo openlcb.Connection) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		b.log.Warn("datagram: discarding %s after close", msg.MTI())
		return
	}
	b.jobs = append(b.jobs, job{msg: msg, replyTo: replyTo})
	b.cond.Broadcast()
}

// ReplyConnection returns the connection on which downstream delivers
// datagram acknowledgments and rejections. It is also the sender passed
// with every forwarded message.
func (b *MeteringBuffer) ReplyConnection() openlcb.Connection {
	return b.reply
}

// WaitForSendQueue blocks until every message accepted by Put has been
// processed.
func (b *MeteringBuffer) WaitForSendQueue() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for (len(b.jobs) > 0 || b.active) && !b.closed {
		b.cond.Wait()
	}
}

// Close drops queued work and stops the delivery goroutine. Later calls
// to Put are discarded.
func (b *MeteringBuffer) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.jobs = nil
	b.queue = nil
	b.inFlight = nil
	b.cond.Broadcast()
	b.mu.Unlock()

	<-b.done
	return nil
}

// Stats returns a snapshot of the buffer counters.
func (b *MeteringBuffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.stats
	s.Queued = len(b.queue)
	s.InFlight = b.inFlight != nil
	return s
}

func (b *MeteringBuffer) run() {
	defer close(b.done)

	b.mu.Lock()
	defer b.mu.Unlock()
	for {
		for len(b.jobs) == 0 && !b.closed {
			b.cond.Wait()
		}
		if b.closed {
			return
		}
		j := b.jobs[0]
		b.jobs = b.jobs[1:]
		b.active = true

		send := b.acceptLocked(j)

		b.mu.Unlock()
		if send != nil {
			b.downstream.Put(send, b.reply)
		}
		b.mu.Lock()

		b.active = false
		b.cond.Broadcast()
	}
}

// acceptLocked applies one job and returns the message to forward, if any.
func (b *MeteringBuffer) acceptLocked(j job) openlcb.Message {
	if j.resend != nil {
		if b.inFlight != j.resend {
			return nil
		}
		return j.resend.msg
	}
	dg, ok := j.msg.(*openlcb.Datagram)
	if !ok {
		b.stats.Forwarded++
		return j.msg
	}
	t := transfer{msg: dg, replyTo: j.replyTo}
	if b.inFlight != nil {
		b.queue = append(b.queue, t)
		return nil
	}
	b.inFlight = &t
	b.stats.Sent++
	return dg
}

// nextLocked promotes the head of the queue to in flight and hands it
// to the worker.
func (b *MeteringBuffer) nextLocked() {
	b.inFlight = nil
	if len(b.queue) == 0 {
		return
	}
	t := b.queue[0]
	b.queue = b.queue[1:]
	b.inFlight = &t
	b.stats.Sent++
	b.scheduleLocked(b.inFlight)
}

// scheduleLocked queues t for sending by the worker, so that replies are
// never delivered on a goroutine that waits for the bus.
func (b *MeteringBuffer) scheduleLocked(t *transfer) {
	b.jobs = append(b.jobs, job{resend: t})
	b.cond.Broadcast()
}

// matchesLocked reports whether reply answers the datagram in flight.
func (b *MeteringBuffer) matchesLocked(reply openlcb.AddressedMessage) bool {
	if b.closed || b.inFlight == nil {
		return false
	}
	return reply.Source() == b.inFlight.msg.Destination() &&
		reply.Destination() == b.inFlight.msg.Source()
}

type replyConnection struct {
	b *MeteringBuffer
}

func (r *replyConnection) Put(msg openlcb.Message, _ openlcb.Connection) {
	r.b.handleReply(msg)
}

func (b *MeteringBuffer) handleReply(msg openlcb.Message) {
	switch m := msg.(type) {
	case *openlcb.DatagramAcknowledged:
		b.handleAcknowledged(m)
	case *openlcb.DatagramRejected:
		b.handleRejected(m)
	default:
		b.log.Trace("datagram: ignoring %s on reply connection", msg.MTI())
	}
}

func (b *MeteringBuffer) handleAcknowledged(m *openlcb.DatagramAcknowledged) {
	b.mu.Lock()
	if !b.matchesLocked(m) {
		b.mu.Unlock()
		b.log.Trace("datagram: ignoring unmatched %s", m)
		return
	}
	done := *b.inFlight
	b.stats.Acknowledged++
	b.nextLocked()
	b.mu.Unlock()

	if done.replyTo != nil {
		done.replyTo.Put(m, b.reply)
	}
}

func (b *MeteringBuffer) handleRejected(m *openlcb.DatagramRejected) {
	b.mu.Lock()
	if !b.matchesLocked(m) {
		b.mu.Unlock()
		b.log.Trace("datagram: ignoring unmatched %s", m)
		return
	}

	if m.CanResend() {
		b.stats.Retransmitted++
		b.scheduleLocked(b.inFlight)
		b.mu.Unlock()

		b.log.Debug("datagram: resending to %s after rejection 0x%04X", m.Source(), m.Code)
		return
	}

	failed := *b.inFlight
	b.stats.Failed++
	b.nextLocked()
	b.mu.Unlock()

	b.log.Warn("datagram: %s rejected permanently with 0x%04X", failed.msg.Destination(), m.Code)
	if failed.replyTo != nil {
		failed.replyTo.Put(m, b.reply)
	}
}

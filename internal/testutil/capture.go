// Copyright 2025 The go-openlcb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package testutil

import (
	"sync"

	"github.com/destiny/openlcb"
)

// MessageCapture is an openlcb.Connection that records what it is given.
type MessageCapture struct {
	mu      sync.Mutex
	msgs    []openlcb.Message
	senders []openlcb.Connection
}

// Put records msg and sender.
func (c *MessageCapture) Put(msg openlcb.Message, sender openlcb.Connection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	c.senders = append(c.senders, sender)
}

// Messages returns a copy of the recorded messages.
func (c *MessageCapture) Messages() []openlcb.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]openlcb.Message(nil), c.msgs...)
}

// Senders returns a copy of the recorded sender arguments.
func (c *MessageCapture) Senders() []openlcb.Connection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]openlcb.Connection(nil), c.senders...)
}

// Reset forgets everything recorded so far.
func (c *MessageCapture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = nil
	c.senders = nil
}

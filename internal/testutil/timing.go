// Copyright 2025 The go-openlcb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package testutil

import (
	"context"
	"sync"
	"testing"
	"time"
)

// TestTimeoutContext creates a context with the given timeout for a test
func TestTimeoutContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// WaitWithTimeout polls condition until it holds or the timeout expires
func WaitWithTimeout(t testing.TB, condition func() bool, timeout time.Duration, checkInterval time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(checkInterval)
	}
	t.Fatalf("condition not met within %v", timeout)
}

// FrameTracker counts frames seen by each of several receivers, keyed by
// the frame's text form.
type FrameTracker struct {
	mu   sync.Mutex
	seen map[string]map[string]int
}

// NewFrameTracker creates an empty tracker.
func NewFrameTracker() *FrameTracker {
	return &FrameTracker{seen: make(map[string]map[string]int)}
}

// Mark records that receiver saw frame.
func (ft *FrameTracker) Mark(receiver, frame string) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	m, ok := ft.seen[receiver]
	if !ok {
		m = make(map[string]int)
		ft.seen[receiver] = m
	}
	m[frame]++
}

// Count returns how many times receiver saw frame.
func (ft *FrameTracker) Count(receiver, frame string) int {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.seen[receiver][frame]
}

// Total returns how many frames receiver saw.
func (ft *FrameTracker) Total(receiver string) int {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	n := 0
	for _, c := range ft.seen[receiver] {
		n += c
	}
	return n
}

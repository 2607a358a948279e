// Copyright 2025 The go-openlcb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hub

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/destiny/openlcb/can"
	"github.com/destiny/openlcb/gridconnect"
	"github.com/destiny/openlcb/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestHubLifecycle(t *testing.T) {
	endpoint, err := testutil.GetTestEndpoint()
	require.NoError(t, err)

	h := NewHub(endpoint, nil)
	assert.Nil(t, h.Addr())
	assert.Error(t, h.Stop())

	require.NoError(t, h.Start())
	assert.Error(t, h.Start())
	require.NoError(t, testutil.WaitForConnection(endpoint, time.Second))

	port, err := testutil.ParsePort(h.Addr().String())
	require.NoError(t, err)
	want, err := testutil.ParsePort(endpoint)
	require.NoError(t, err)
	assert.Equal(t, want, port)

	require.NoError(t, h.Stop())
	assert.Error(t, h.Stop())
}

func TestHubRelay(t *testing.T) {
	endpoint, err := testutil.GetTestEndpoint()
	require.NoError(t, err)

	var tapMu sync.Mutex
	var tapped []can.Frame
	opts := DefaultOptions()
	opts.Tap = can.FrameSinkFunc(func(f can.Frame) error {
		tapMu.Lock()
		defer tapMu.Unlock()
		tapped = append(tapped, f)
		return nil
	})

	h := NewHub(endpoint, opts)
	require.NoError(t, h.Start())

	const n = 3
	tracker := testutil.NewFrameTracker()
	conns := make([]*gridconnect.Conn, n)
	var wg sync.WaitGroup
	for i := range conns {
		c, err := gridconnect.Dial(endpoint)
		require.NoError(t, err)
		conns[i] = c

		name := fmt.Sprintf("client%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				f, err := c.ReadFrame()
				if err != nil {
					return
				}
				tracker.Mark(name, gridconnect.Format(f))
			}
		}()
	}
	require.Eventually(t, func() bool { return h.Clients() == n }, 2*time.Second, 10*time.Millisecond)

	fromClient := can.NewFrame(0x19490123, nil)
	require.NoError(t, conns[0].WriteFrame(fromClient))
	text := gridconnect.Format(fromClient)
	require.Eventually(t, func() bool {
		return tracker.Count("client1", text) == 1 && tracker.Count("client2", text) == 1
	}, 2*time.Second, 10*time.Millisecond)

	injected := can.NewFrame(0x19170456, []byte{6, 5, 4, 3, 2, 1})
	require.NoError(t, h.Inject(injected))
	injectedText := gridconnect.Format(injected)
	require.Eventually(t, func() bool {
		for i := 0; i < n; i++ {
			if tracker.Count(fmt.Sprintf("client%d", i), injectedText) != 1 {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)

	// Frames are relayed in order, so an echo would have arrived first.
	assert.Equal(t, 0, tracker.Count("client0", text))
	assert.Equal(t, 1, tracker.Total("client0"))

	tapMu.Lock()
	require.Len(t, tapped, 1)
	assert.True(t, fromClient.Equal(tapped[0]))
	tapMu.Unlock()

	assert.Error(t, h.Inject(can.Frame{Header: 0x3FFFFFFF}))

	stats := h.GetStats()
	assert.Equal(t, uint64(n), stats["total_clients"])
	assert.Equal(t, uint64(2), stats["total_frames"])
	assert.Equal(t, n, stats["active_clients"])
	assert.Equal(t, uint64(0), stats["dropped_frames"])

	require.NoError(t, h.Stop())
	wg.Wait()
	for _, c := range conns {
		c.Close()
	}
	assert.Equal(t, 0, h.Clients())
}

func TestHubClientLeaves(t *testing.T) {
	endpoint, err := testutil.GetTestEndpoint()
	require.NoError(t, err)

	h := NewHub(endpoint, nil)
	require.NoError(t, h.Start())
	defer h.Stop()

	c, err := gridconnect.Dial(endpoint)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return h.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.Close())
	testutil.WaitWithTimeout(t, func() bool { return h.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, h.Inject(can.NewFrame(0x19490123, nil)))
}

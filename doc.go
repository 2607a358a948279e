// Copyright 2025 The go-openlcb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package openlcb holds the OpenLCB message model shared by the CAN
// binding, the datagram transport and the memory configuration protocol.
//
// Messages form a closed set of concrete types. A Handler receives them
// through Dispatch, and a Connection carries them between layers together
// with the return path for replies.
package openlcb

// Copyright 2025 The go-openlcb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memconfig

import "github.com/destiny/openlcb"

// ReadHandler receives the outcome of a read request.
type ReadHandler interface {
	// HandleReadData delivers the bytes read, which may be fewer than
	// requested.
	HandleReadData(dest openlcb.NodeID, space byte, address uint32, data []byte)
	HandleFailure(code uint16)
}

// WriteHandler receives the outcome of a write request.
type WriteHandler interface {
	HandleSuccess()
	HandleFailure(code uint16)
}

// SpaceInfoHandler receives the reply to an address space query.
type SpaceInfoHandler interface {
	HandleSpaceInfo(dest openlcb.NodeID, info SpaceInfo)
	HandleFailure(code uint16)
}

// ConfigOptionsHandler receives the reply to a configuration options query.
type ConfigOptionsHandler interface {
	HandleConfigOptions(dest openlcb.NodeID, options ConfigOptions)
	HandleFailure(code uint16)
}

// ReadFuncs adapts a pair of functions to a ReadHandler.
type ReadFuncs struct {
	Data    func(dest openlcb.NodeID, space byte, address uint32, data []byte)
	Failure func(code uint16)
}

func (f ReadFuncs) HandleReadData(dest openlcb.NodeID, space byte, address uint32, data []byte) {
	if f.Data != nil {
		f.Data(dest, space, address, data)
	}
}

func (f ReadFuncs) HandleFailure(code uint16) {
	if f.Failure != nil {
		f.Failure(code)
	}
}

// WriteFuncs adapts a pair of functions to a WriteHandler.
type WriteFuncs struct {
	Success func()
	Failure func(code uint16)
}

func (f WriteFuncs) HandleSuccess() {
	if f.Success != nil {
		f.Success()
	}
}

func (f WriteFuncs) HandleFailure(code uint16) {
	if f.Failure != nil {
		f.Failure(code)
	}
}

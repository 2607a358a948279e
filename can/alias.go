// Copyright 2025 The go-openlcb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package can

import (
	"sync"

	"github.com/destiny/openlcb"
)

// AliasMap binds 12-bit aliases to node IDs in both directions.
// Inserting a binding replaces any existing binding of either key.
// It is safe for concurrent use.
type AliasMap struct {
	mu      sync.RWMutex
	byAlias map[Alias]openlcb.NodeID
	byNode  map[openlcb.NodeID]Alias
}

// NewAliasMap returns an empty map.
func NewAliasMap() *AliasMap {
	return &AliasMap{
		byAlias: make(map[Alias]openlcb.NodeID),
		byNode:  make(map[openlcb.NodeID]Alias),
	}
}

// Insert binds alias to id.
func (m *AliasMap) Insert(alias Alias, id openlcb.NodeID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.byAlias[alias]; ok {
		delete(m.byNode, old)
	}
	if old, ok := m.byNode[id]; ok {
		delete(m.byAlias, old)
	}
	m.byAlias[alias] = id
	m.byNode[id] = alias
}

// NodeID returns the node bound to alias.
func (m *AliasMap) NodeID(alias Alias) (openlcb.NodeID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byAlias[alias]
	return id, ok
}

// Alias returns the alias bound to id.
func (m *AliasMap) Alias(id openlcb.NodeID) (Alias, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.byNode[id]
	return a, ok
}

// Remove drops the binding of alias, if any.
func (m *AliasMap) Remove(alias Alias) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byAlias[alias]; ok {
		delete(m.byNode, id)
		delete(m.byAlias, alias)
	}
}

// Len returns the number of bindings.
func (m *AliasMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byAlias)
}

// Snapshot returns a copy of the alias to node bindings.
func (m *AliasMap) Snapshot() map[Alias]openlcb.NodeID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[Alias]openlcb.NodeID, len(m.byAlias))
	for a, id := range m.byAlias {
		out[a] = id
	}
	return out
}

// ProcessFrame learns bindings announced on the bus: AMD frames and the
// Initialization Complete and Verified Node ID messages, which carry the
// sender's node ID. AMR frames remove the binding.
func (m *AliasMap) ProcessFrame(f Frame) {
	if f.IsOpenLCB() {
		if f.Format() != FormatGlobalAddressed {
			return
		}
		switch openlcb.MTI(f.Variable()) {
		case openlcb.MTIInitializationComplete, openlcb.MTIVerifiedNodeID:
		default:
			return
		}
		if id, err := openlcb.NodeIDFromBytes(f.Data); err == nil {
			m.Insert(f.Source(), id)
		}
		return
	}

	switch f.Control() {
	case ControlAliasMapDefinition:
		if id, err := openlcb.NodeIDFromBytes(f.Data); err == nil {
			m.Insert(f.Source(), id)
		}
	case ControlAliasMapReset:
		m.Remove(f.Source())
	}
}

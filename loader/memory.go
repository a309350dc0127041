// Package loader provides Handle Loader implementations for assetstate.
package loader

import (
	"sync"

	"github.com/comalice/assetstate"
)

// Memory is a scripted loader: every handle stays Pending until the test or
// host resolves it. Safe for concurrent use.
type Memory struct {
	mu       sync.Mutex
	next     assetstate.Handle
	refs     map[assetstate.Handle]assetstate.AssetRef
	status   map[assetstate.Handle]assetstate.LoadStatus
	preset   map[string]assetstate.LoadStatus
	released map[assetstate.Handle]bool
	loads    map[string]int
}

// NewMemory creates an empty Memory loader.
func NewMemory() *Memory {
	return &Memory{
		refs:     make(map[assetstate.Handle]assetstate.AssetRef),
		status:   make(map[assetstate.Handle]assetstate.LoadStatus),
		preset:   make(map[string]assetstate.LoadStatus),
		released: make(map[assetstate.Handle]bool),
		loads:    make(map[string]int),
	}
}

// Load issues a handle for ref. Paths preset with SetPath start in that
// status; everything else starts Pending.
func (m *Memory) Load(ref assetstate.AssetRef) assetstate.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.next++
	h := m.next
	m.refs[h] = ref
	st, ok := m.preset[ref.Path]
	if !ok {
		st = assetstate.Pending
	}
	m.status[h] = st
	m.loads[ref.Path]++
	return h
}

// Status reports the status of h. Unknown and released handles are Failed.
func (m *Memory) Status(h assetstate.Handle) assetstate.LoadStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.status[h]
	if !ok {
		return assetstate.Failed
	}
	return st
}

// Release forgets h.
func (m *Memory) Release(h assetstate.Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.status[h]; !ok {
		return
	}
	delete(m.status, h)
	delete(m.refs, h)
	m.released[h] = true
}

// Len returns the number of live handles.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.status)
}

// SetPath sets the status of every live handle for path, and of every
// future load of it.
func (m *Memory) SetPath(path string, st assetstate.LoadStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.preset[path] = st
	for h, ref := range m.refs {
		if ref.Path == path {
			m.status[h] = st
		}
	}
}

// SetHandle sets the status of a single live handle.
func (m *Memory) SetHandle(h assetstate.Handle, st assetstate.LoadStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, live := m.status[h]; live {
		m.status[h] = st
	}
}

// CompleteAll marks every live handle Loaded.
func (m *Memory) CompleteAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for h := range m.status {
		m.status[h] = assetstate.Loaded
	}
}

// Loads returns how many times path was loaded.
func (m *Memory) Loads(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads[path]
}

// TotalLoads returns the number of Load calls.
func (m *Memory) TotalLoads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int(m.next)
}

// Released reports whether h was released.
func (m *Memory) Released(h assetstate.Handle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released[h]
}

// Ref returns the asset ref a live handle was issued for.
func (m *Memory) Ref(h assetstate.Handle) (assetstate.AssetRef, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref, ok := m.refs[h]
	return ref, ok
}

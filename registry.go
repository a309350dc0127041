package assetstate

import (
	"slices"

	"github.com/google/uuid"
)

// InstanceStatus is the lifecycle status of a Bundle Instance.
type InstanceStatus int

const (
	InstanceLoading InstanceStatus = iota
	InstanceReady
	InstanceFailed
)

func (s InstanceStatus) String() string {
	switch s {
	case InstanceLoading:
		return "loading"
	case InstanceReady:
		return "ready"
	case InstanceFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Instance is the runtime aggregate of handles for one loading episode of a
// bundle. Assets and Handles are index-aligned.
type Instance struct {
	Bundle  BundleID
	Episode uuid.UUID
	Assets  []AssetRef
	Handles []Handle
	Created uint64
	status  InstanceStatus
}

func (i *Instance) Status() InstanceStatus { return i.status }

// Handle returns the handle loaded for the asset declared under name.
func (i *Instance) Handle(name string) (Handle, bool) {
	for n, ref := range i.Assets {
		if ref.Name == name {
			return i.Handles[n], true
		}
	}
	return 0, false
}

// Registry is the Bundle Registry: at most one live Instance per bundle,
// plus the per-bundle Loading Marker. The dispatcher is the only creator and
// the cleanup scheduler the only destroyer of instances.
type Registry struct {
	instances map[BundleID]*Instance
	loading   map[BundleID]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		instances: make(map[BundleID]*Instance),
		loading:   make(map[BundleID]struct{}),
	}
}

// Get returns the registered instance for id regardless of its status.
func (r *Registry) Get(id BundleID) (*Instance, bool) {
	inst, ok := r.instances[id]
	return inst, ok
}

// Has reports whether an instance for id is registered.
func (r *Registry) Has(id BundleID) bool {
	_, ok := r.instances[id]
	return ok
}

// create registers inst. It returns false and leaves the registry untouched
// when an instance for the same bundle is already registered.
func (r *Registry) create(inst *Instance) bool {
	if _, exists := r.instances[inst.Bundle]; exists {
		return false
	}
	r.instances[inst.Bundle] = inst
	return true
}

// remove unregisters and returns the instance for id.
func (r *Registry) remove(id BundleID) (*Instance, bool) {
	inst, ok := r.instances[id]
	if ok {
		delete(r.instances, id)
	}
	return inst, ok
}

// Loading reports whether id has a Loading Marker.
func (r *Registry) Loading(id BundleID) bool {
	_, ok := r.loading[id]
	return ok
}

func (r *Registry) markLoading(id BundleID) {
	r.loading[id] = struct{}{}
}

func (r *Registry) clearLoading(id BundleID) {
	delete(r.loading, id)
}

// LoadingBundles returns the bundles with a Loading Marker in sorted order.
func (r *Registry) LoadingBundles() []BundleID {
	ids := make([]BundleID, 0, len(r.loading))
	for id := range r.loading {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Live returns the registered bundles in sorted order.
func (r *Registry) Live() []BundleID {
	ids := make([]BundleID, 0, len(r.instances))
	for id := range r.instances {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of registered instances.
func (r *Registry) Len() int { return len(r.instances) }

package assetstate

import (
	"errors"
	"fmt"
)

// BundleID names a Bundle Type.
type BundleID string

// Handle is an opaque reference to an asset owned by a Loader. Zero is never
// a valid handle.
type Handle uint64

// LoadStatus is the tri-state load status reported for a Handle.
type LoadStatus int

const (
	Pending LoadStatus = iota
	Loaded
	Failed
)

func (s LoadStatus) String() string {
	switch s {
	case Pending:
		return "pending"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("LoadStatus(%d)", int(s))
	}
}

// AssetRef declares one asset of a bundle. Name is the key the host uses to
// pick the handle back out of an Instance; Path is what the Loader loads.
type AssetRef struct {
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
}

// Loader is the Handle Loader collaborator. Load issues one asynchronous
// request and must not block; Status must not block either.
type Loader interface {
	Load(ref AssetRef) Handle
	Status(h Handle) LoadStatus
}

// Releaser is implemented by loaders that want to hear when the engine
// drops a handle during cleanup.
type Releaser interface {
	Release(h Handle)
}

var (
	ErrNoLoader       = errors.New("assetstate: no handle loader")
	ErrNoMachine      = errors.New("assetstate: no state machine")
	ErrUnknownBundle  = errors.New("assetstate: unknown bundle")
	ErrBundleConflict = errors.New("assetstate: bundle registered with a different schema")
	ErrEmptyBundle    = errors.New("assetstate: bundle declares no assets")
	ErrInvalidBundle  = errors.New("assetstate: invalid bundle")
	ErrUnboundState   = errors.New("assetstate: state has no bundle")
)

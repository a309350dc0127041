package assetstate

import (
	"fmt"
	"time"
)

// SchemaBuilder provides a fluent API for declaring bundles and binding them
// to states, in place of annotating structs and enum variants.
type SchemaBuilder[S comparable] struct {
	order   []BundleID
	bundles map[BundleID]*BundleSchema
	states  []StateBinding[S]
	shared  time.Duration
}

// BundleBuilder provides fluent methods for configuring a single bundle.
type BundleBuilder[S comparable] struct {
	b      *SchemaBuilder[S]
	bundle *BundleSchema
}

// StateBuilder provides fluent methods for configuring the bundle a state
// requires.
type StateBuilder[S comparable] struct {
	b   *SchemaBuilder[S]
	idx int
}

// NewSchemaBuilder creates an empty builder.
func NewSchemaBuilder[S comparable]() *SchemaBuilder[S] {
	return &SchemaBuilder[S]{
		bundles: make(map[BundleID]*BundleSchema),
	}
}

// Bundle creates or retrieves a bundle by ID.
func (b *SchemaBuilder[S]) Bundle(id BundleID) *BundleBuilder[S] {
	bundle, ok := b.bundles[id]
	if !ok {
		bundle = &BundleSchema{ID: id}
		b.bundles[id] = bundle
		b.order = append(b.order, id)
	}
	return &BundleBuilder[S]{b: b, bundle: bundle}
}

// State binds state. Call Requires on the result to name its bundle.
func (b *SchemaBuilder[S]) State(state S) *StateBuilder[S] {
	for i, sb := range b.states {
		if sb.State == state {
			return &StateBuilder[S]{b: b, idx: i}
		}
	}
	b.states = append(b.states, StateBinding[S]{State: state})
	return &StateBuilder[S]{b: b, idx: len(b.states) - 1}
}

// SharedCleanupDelay overrides the shared fallback cleanup delay.
func (b *SchemaBuilder[S]) SharedCleanupDelay(d time.Duration) *SchemaBuilder[S] {
	b.shared = d
	return b
}

// Build validates the declarations and returns the schema.
func (b *SchemaBuilder[S]) Build() (*Schema[S], error) {
	s := &Schema[S]{SharedCleanupDelay: b.shared}
	for _, id := range b.order {
		bundle := *b.bundles[id]
		bundle.Assets = append([]AssetRef(nil), bundle.Assets...)
		s.Bundles = append(s.Bundles, bundle)
	}
	for _, sb := range b.states {
		if sb.Bundle == "" {
			return nil, fmt.Errorf("state %v: %w", sb.State, ErrUnboundState)
		}
		s.States = append(s.States, sb)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Asset appends an asset to the bundle. Declaration order is load order.
func (bb *BundleBuilder[S]) Asset(name, path string) *BundleBuilder[S] {
	bb.bundle.Assets = append(bb.bundle.Assets, AssetRef{Name: name, Path: path})
	return bb
}

// CleanupAfter installs a dedicated cleanup timer for the bundle.
func (bb *BundleBuilder[S]) CleanupAfter(d time.Duration) *BundleBuilder[S] {
	bb.bundle.CleanupDelay = d
	return bb
}

// Done returns the parent builder.
func (bb *BundleBuilder[S]) Done() *SchemaBuilder[S] {
	return bb.b
}

// Requires names the bundle that must finish loading before the state is
// entered.
func (sb *StateBuilder[S]) Requires(id BundleID) *StateBuilder[S] {
	sb.b.states[sb.idx].Bundle = id
	return sb
}

// CleanupOnExit arms the bundle's teardown whenever the state is exited.
func (sb *StateBuilder[S]) CleanupOnExit() *StateBuilder[S] {
	sb.b.states[sb.idx].CleanupOnExit = true
	return sb
}

// Done returns the parent builder.
func (sb *StateBuilder[S]) Done() *SchemaBuilder[S] {
	return sb.b
}

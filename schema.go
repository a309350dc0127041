// Schema is the declarative registry that maps bundle types to their assets
// and states to the bundle they require. It is plain data: build one with
// NewSchemaBuilder, decode one with the manifest package, or write it out
// literally, then hand it to App.Install.

package assetstate

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// DefaultSharedCleanupDelay is the shared fallback cleanup delay.
const DefaultSharedCleanupDelay = 5 * time.Second

// BundleSchema declares a Bundle Type. A positive CleanupDelay installs a
// dedicated cleanup timer for the bundle; zero defers to the shared timer.
type BundleSchema struct {
	ID           BundleID
	Assets       []AssetRef
	CleanupDelay time.Duration
}

// Validate checks a single bundle declaration:
// - non-empty ID
// - at least one asset
// - every asset has a path, names are unique
// - non-negative cleanup delay
func (b BundleSchema) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("%w: bundle ID is required", ErrInvalidBundle)
	}
	if len(b.Assets) == 0 {
		return fmt.Errorf("bundle %q: %w", b.ID, ErrEmptyBundle)
	}
	if b.CleanupDelay < 0 {
		return fmt.Errorf("%w: bundle %q: negative cleanup delay %v", ErrInvalidBundle, b.ID, b.CleanupDelay)
	}
	names := make(map[string]bool, len(b.Assets))
	for i, ref := range b.Assets {
		if ref.Path == "" {
			return fmt.Errorf("%w: bundle %q: asset %d has no path", ErrInvalidBundle, b.ID, i)
		}
		if ref.Name == "" {
			continue
		}
		if names[ref.Name] {
			return fmt.Errorf("%w: bundle %q: duplicate asset name %q", ErrInvalidBundle, b.ID, ref.Name)
		}
		names[ref.Name] = true
	}
	return nil
}

// sameDeclaration reports whether two declarations describe the same assets
// and cleanup delay.
func (b BundleSchema) sameDeclaration(o BundleSchema) bool {
	return b.ID == o.ID && b.CleanupDelay == o.CleanupDelay && slices.Equal(b.Assets, o.Assets)
}

// StateBinding attaches a bundle to a state value. CleanupOnExit arms the
// bundle's teardown when the host leaves State.
type StateBinding[S comparable] struct {
	State         S
	Bundle        BundleID
	CleanupOnExit bool
}

// Schema is the full schema registry handed to App.Install.
type Schema[S comparable] struct {
	Bundles            []BundleSchema
	States             []StateBinding[S]
	SharedCleanupDelay time.Duration
}

// Validate validates the entire schema and reports every problem found:
// - each bundle validates, IDs are unique
// - each binding names a declared bundle
// - a state is bound to at most one bundle
func (s *Schema[S]) Validate() error {
	var errs []error
	if s.SharedCleanupDelay < 0 {
		errs = append(errs, fmt.Errorf("%w: negative shared cleanup delay %v", ErrInvalidBundle, s.SharedCleanupDelay))
	}

	declared := make(map[BundleID]bool, len(s.Bundles))
	for _, b := range s.Bundles {
		if err := b.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if declared[b.ID] {
			errs = append(errs, fmt.Errorf("bundle %q declared twice: %w", b.ID, ErrBundleConflict))
			continue
		}
		declared[b.ID] = true
	}

	bound := make(map[S]BundleID, len(s.States))
	for _, sb := range s.States {
		if !declared[sb.Bundle] {
			errs = append(errs, fmt.Errorf("state %v: %w %q", sb.State, ErrUnknownBundle, sb.Bundle))
			continue
		}
		if prev, ok := bound[sb.State]; ok && prev != sb.Bundle {
			errs = append(errs, fmt.Errorf("%w: state %v bound to both %q and %q", ErrBundleConflict, sb.State, prev, sb.Bundle))
			continue
		}
		bound[sb.State] = sb.Bundle
	}

	return errors.Join(errs...)
}

// Bundle returns the declaration for id.
func (s *Schema[S]) Bundle(id BundleID) (BundleSchema, bool) {
	for _, b := range s.Bundles {
		if b.ID == id {
			return b, true
		}
	}
	return BundleSchema{}, false
}

// Package benchmarks provides shared helpers for benchmark tests.
package benchmarks

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/comalice/assetstate"
	"github.com/comalice/assetstate/manifest"
)

// GenSchema creates n bundles of assets assets each. State i+1 requires
// bundle i and cleans it up on exit; state 0 has no bundle.
func GenSchema(n, assets int) *assetstate.Schema[int] {
	if n < 1 {
		n = 1
	}
	if assets < 1 {
		assets = 1
	}
	s := &assetstate.Schema[int]{}
	for i := 0; i < n; i++ {
		id := assetstate.BundleID(fmt.Sprintf("b%d", i))
		b := assetstate.BundleSchema{ID: id}
		for j := 0; j < assets; j++ {
			b.Assets = append(b.Assets, assetstate.AssetRef{
				Name: fmt.Sprintf("a%d", j),
				Path: fmt.Sprintf("%s/a%d.bin", id, j),
			})
		}
		s.Bundles = append(s.Bundles, b)
		s.States = append(s.States, assetstate.StateBinding[int]{State: i + 1, Bundle: id, CleanupOnExit: true})
	}
	return s
}

// GenManifestYAML renders GenSchema(n, assets) as a YAML manifest.
func GenManifestYAML(n, assets int) ([]byte, error) {
	s := GenSchema(n, assets)
	m := manifest.Manifest{}
	for _, b := range s.Bundles {
		m.Bundles = append(m.Bundles, manifest.Bundle{ID: string(b.ID), Assets: b.Assets})
	}
	for _, sb := range s.States {
		m.States = append(m.States, manifest.Binding{
			State:         fmt.Sprint(sb.State),
			Bundle:        string(sb.Bundle),
			CleanupOnExit: sb.CleanupOnExit,
		})
	}
	return yaml.Marshal(m)
}

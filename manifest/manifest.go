// Package manifest reads bundle declarations from YAML or JSON files and
// turns them into an assetstate.Schema.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/comalice/assetstate"
)

// ErrFormat is returned for manifest files with an unsupported extension.
var ErrFormat = errors.New("manifest: unsupported format")

// Format selects the manifest encoding.
type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
)

// Manifest is the file form of an assetstate.Schema. States are named by
// string; the caller maps names onto its own state type.
type Manifest struct {
	SharedCleanupDelay Duration  `json:"shared_cleanup_delay,omitempty" yaml:"shared_cleanup_delay,omitempty"`
	Bundles            []Bundle  `json:"bundles" yaml:"bundles"`
	States             []Binding `json:"states" yaml:"states"`
}

// Bundle declares one bundle type.
type Bundle struct {
	ID           string                `json:"id" yaml:"id"`
	CleanupDelay Duration              `json:"cleanup_delay,omitempty" yaml:"cleanup_delay,omitempty"`
	Assets       []assetstate.AssetRef `json:"assets" yaml:"assets"`
}

// Binding attaches a bundle to a named state.
type Binding struct {
	State         string `json:"state" yaml:"state"`
	Bundle        string `json:"bundle" yaml:"bundle"`
	CleanupOnExit bool   `json:"cleanup_on_exit,omitempty" yaml:"cleanup_on_exit,omitempty"`
}

// Duration is a time.Duration written either as a Go duration string
// ("2s", "1500ms") or as a number of seconds.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func parseDuration(text string) (Duration, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, nil
	}
	if v, err := time.ParseDuration(text); err == nil {
		return Duration(v), nil
	}
	secs, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", text)
	}
	return Duration(secs * float64(time.Second)), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	v, err := parseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = v
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var text string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
	} else {
		text = string(data)
	}
	v, err := parseDuration(text)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".json":
		return JSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrFormat, path)
	}
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	m, err := Decode(bytes.NewReader(data), format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Decode reads and validates a manifest from r.
func Decode(r io.Reader, format Format) (*Manifest, error) {
	var m Manifest
	switch format {
	case YAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("yaml unmarshal: %w", err)
		}
	case JSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("json unmarshal: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrFormat, format)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Save writes m to path in the format its extension names.
func Save(path string, m *Manifest) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case YAML:
		data, err = yaml.Marshal(m)
		if err != nil {
			return fmt.Errorf("yaml marshal: %w", err)
		}
	case JSON:
		data, err = json.MarshalIndent(m, "", "  ")
		if err != nil {
			return fmt.Errorf("json marshal: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Validate checks the manifest on its own terms: every bundle is well
// formed and every binding names a declared bundle.
func (m *Manifest) Validate() error {
	_, err := Schema(m, func(name string) (string, error) { return name, nil })
	return err
}

// Schema converts m into a schema over the caller's state type. parse maps
// a state name onto a state value.
func Schema[S comparable](m *Manifest, parse func(name string) (S, error)) (*assetstate.Schema[S], error) {
	s := &assetstate.Schema[S]{SharedCleanupDelay: m.SharedCleanupDelay.Std()}
	for _, b := range m.Bundles {
		s.Bundles = append(s.Bundles, assetstate.BundleSchema{
			ID:           assetstate.BundleID(b.ID),
			Assets:       append([]assetstate.AssetRef(nil), b.Assets...),
			CleanupDelay: b.CleanupDelay.Std(),
		})
	}

	var errs []error
	for _, sb := range m.States {
		state, err := parse(sb.State)
		if err != nil {
			errs = append(errs, fmt.Errorf("state %q: %w", sb.State, err))
			continue
		}
		s.States = append(s.States, assetstate.StateBinding[S]{
			State:         state,
			Bundle:        assetstate.BundleID(sb.Bundle),
			CleanupOnExit: sb.CleanupOnExit,
		})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

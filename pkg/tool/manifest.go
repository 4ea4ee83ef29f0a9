// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jllopis/telos/pkg/errors"
)

// Manifest declares per-tool scheduling overrides: dependency edges and
// timeouts. It lets deployments tune a registered toolset without code
// changes; handlers themselves always come from Register.
type Manifest struct {
	Tools map[string]ManifestEntry `yaml:"tools"`
}

// ManifestEntry is the per-tool override block. Timeout is a Go duration
// string such as "45s".
type ManifestEntry struct {
	DependsOn []string `yaml:"depends_on,omitempty"`
	Timeout   string   `yaml:"timeout,omitempty"`
}

// LoadManifest parses a toolset manifest from YAML.
func LoadManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.New(errors.KindConfiguration, "invalid toolset manifest", err)
	}
	return &m, nil
}

// LoadManifestFile reads and parses a toolset manifest from disk.
func LoadManifestFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.KindConfiguration, "read toolset manifest", err)
	}
	return LoadManifest(data)
}

// Apply overlays the manifest onto the registry. Entries naming unknown
// tools fail; entries with no overrides are ignored.
func (m *Manifest) Apply(r *Registry) error {
	for name, entry := range m.Tools {
		t, ok := r.Get(name)
		if !ok {
			return errors.Newf(errors.KindConfiguration, "manifest references unknown tool %q", name)
		}
		for _, dep := range entry.DependsOn {
			if !r.Has(dep) {
				return errors.Newf(errors.KindConfiguration, "tool %q depends on unknown tool %q", name, dep)
			}
		}
		if len(entry.DependsOn) > 0 {
			t.DependsOn = append([]string(nil), entry.DependsOn...)
		}
		if entry.Timeout != "" {
			d, err := time.ParseDuration(entry.Timeout)
			if err != nil || d <= 0 {
				return errors.Newf(errors.KindConfiguration, "tool %q has invalid timeout %q", name, entry.Timeout)
			}
			t.Timeout = d
		}
	}
	return nil
}

package lazy

import (
	"os"

	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"
)

// Manifest is the per-deployment module catalog. It maps module names to
// their source directories (used by the development hot-reload check) and
// lets a deployment exclude modules entirely.
type Manifest struct {
	Modules []ManifestEntry `yaml:"modules"`
}

type ManifestEntry struct {
	Name      string `yaml:"name"`
	SourceDir string `yaml:"source_dir"`
	Disabled  bool   `yaml:"disabled"`
}

// LoadManifest reads the manifest at path. A missing file yields an empty
// manifest: every registered module stays available with no source dir.
func LoadManifest(path string) (*Manifest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Manifest{}, nil
		}
		return nil, errors.Wrapf(err, "read module manifest %q", path)
	}
	var m Manifest
	if err := yaml.Unmarshal(content, &m); err != nil {
		return nil, errors.Wrapf(err, "parse module manifest %q", path)
	}
	return &m, nil
}

func (m *Manifest) Entry(name string) (ManifestEntry, bool) {
	for _, e := range m.Modules {
		if e.Name == name {
			return e, true
		}
	}
	return ManifestEntry{}, false
}

func (m *Manifest) SourceDir(name string) string {
	if e, ok := m.Entry(name); ok {
		return e.SourceDir
	}
	return ""
}

func (m *Manifest) Excluded(name string) bool {
	e, ok := m.Entry(name)
	return ok && e.Disabled
}

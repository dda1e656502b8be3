package lazy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadManifest_MissingFileYieldsEmpty(t *testing.T) {
	m, err := LoadManifest(filepath.Join(t.TempDir(), "modules.yaml"))
	require.NoError(t, err)
	assert.Empty(t, m.Modules)
	assert.False(t, m.Excluded("inventory"))
	assert.Empty(t, m.SourceDir("inventory"))
}

func TestLoadManifest_ParsesEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modules.yaml")
	content := `modules:
  - name: inventory
    source_dir: modules/inventory
  - name: billing
    disabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "modules/inventory", m.SourceDir("inventory"))
	assert.False(t, m.Excluded("inventory"))
	assert.True(t, m.Excluded("billing"))
}

func TestLoadManifest_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("modules: [whoops"), 0o644))
	_, err := LoadManifest(path)
	assert.Error(t, err)
}

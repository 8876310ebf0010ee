package plugin

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryanhyunminbae/airtype/internal/logging"
)

// writeManifest creates dir/<m.Name>/plugin.json.
func writeManifest(t *testing.T, dir string, m Manifest) string {
	t.Helper()

	pluginDir := filepath.Join(dir, m.Name)
	require.NoError(t, os.MkdirAll(pluginDir, 0755))

	manifestBytes, err := json.Marshal(m)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(pluginDir, "plugin.json"), manifestBytes, 0644))

	return pluginDir
}

func TestManager_Discover(t *testing.T) {
	tmpDir := t.TempDir()
	pluginDir := writeManifest(t, tmpDir, Manifest{
		Name:        "keyboard",
		Version:     "1.0.0",
		Description: "Types confirmed letters",
		Executable:  "keyboard",
		Actions:     []string{TypeAction, "keystroke"},
	})

	manager := NewManager(tmpDir, logging.Nop())
	require.NoError(t, manager.Discover())

	plugins := manager.List()
	require.Len(t, plugins, 1)

	plugin := plugins[0]
	assert.Equal(t, "keyboard", plugin.Manifest.Name)
	assert.True(t, plugin.Manifest.Supports(TypeAction))
	assert.False(t, plugin.Manifest.Supports("volume-up"))
	assert.Equal(t, pluginDir, plugin.Path)
	assert.Equal(t, filepath.Join(pluginDir, "keyboard"), plugin.Executable)
}

func TestManager_Discover_MultiplePlugins(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"plugin-b", "plugin-a"} {
		writeManifest(t, tmpDir, Manifest{Name: name, Version: "1.0.0", Executable: name, Actions: []string{"action"}})
	}

	manager := NewManager(tmpDir, logging.Nop())
	require.NoError(t, manager.Discover())

	plugins := manager.List()
	require.Len(t, plugins, 2)
	assert.Equal(t, "plugin-a", plugins[0].Manifest.Name, "plugins are sorted by name")
}

func TestManager_Discover_SkipsInvalid(t *testing.T) {
	tmpDir := t.TempDir()

	badDir := filepath.Join(tmpDir, "bad-plugin")
	require.NoError(t, os.MkdirAll(badDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(badDir, "plugin.json"), []byte("not valid json"), 0644))
	writeManifest(t, tmpDir, Manifest{Name: "no-exec", Version: "1.0.0"})
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "no-manifest"), 0755))

	manager := NewManager(tmpDir, logging.Nop())
	require.NoError(t, manager.Discover())
	assert.Empty(t, manager.List())
}

func TestManager_Discover_NonExistentDir(t *testing.T) {
	manager := NewManager("/path/that/does/not/exist", logging.Nop())

	require.NoError(t, manager.Discover())
	assert.Empty(t, manager.List())
}

func TestManager_Get(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, Manifest{Name: "my-plugin", Version: "2.0.0", Executable: "my-plugin-bin", Actions: []string{"run"}})

	manager := NewManager(tmpDir, logging.Nop())
	require.NoError(t, manager.Discover())

	plugin, err := manager.Get("my-plugin")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", plugin.Manifest.Version)

	_, err = manager.Get("nonexistent-plugin")
	assert.ErrorIs(t, err, ErrPluginNotFound)
	assert.Equal(t, tmpDir, manager.PluginDir())
}

func TestConfig_PluginDir(t *testing.T) {
	assert.Equal(t, "/opt/plugins", (Config{Dir: "/opt/plugins"}).PluginDir())
	assert.Equal(t, "plugins", filepath.Base((Config{}).PluginDir()))
}

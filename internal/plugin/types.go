// Package plugin discovers and runs external action plugins for confirmed letters.
package plugin

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// TypeAction is the action that types text into the focused application.
const TypeAction = "type"

// Config holds plugin discovery and execution settings.
type Config struct {
	// Dir contains one subdirectory per plugin, each with a plugin.json manifest.
	Dir string `envconfig:"AIRTYPE_PLUGIN_DIR"`
	// TypePlugin, when set, receives every confirmed letter that has no
	// explicit binding through its "type" action.
	TypePlugin string        `envconfig:"AIRTYPE_TYPE_PLUGIN"`
	Timeout    time.Duration `envconfig:"AIRTYPE_PLUGIN_TIMEOUT" default:"5s"`
}

// PluginDir returns the configured plugin directory, defaulting to ~/.airtype/plugins.
func (c Config) PluginDir() string {
	if c.Dir != "" {
		return c.Dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "plugins"
	}
	return filepath.Join(home, ".airtype", "plugins")
}

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Supports reports whether the manifest lists action.
func (m Manifest) Supports(action string) bool {
	for _, a := range m.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Request represents a request sent to a plugin for execution.
type Request struct {
	Action  string          `json:"action"`
	Letter  string          `json:"letter"`
	Session string          `json:"session,omitempty"`
	Config  json.RawMessage `json:"config"`
	Params  json.RawMessage `json:"params"`
}

// TypeParams are the parameters of the "type" action.
type TypeParams struct {
	Text string `json:"text"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest `json:"manifest"`
	Path       string   `json:"path"`
	Executable string   `json:"executable"`
}

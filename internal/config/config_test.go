package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Development)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "server", cfg.Source.Kind)
	assert.Equal(t, 450*time.Millisecond, cfg.Source.FrameInterval)
	assert.Equal(t, 0.6, cfg.Stabilizer.ConfidenceThreshold)
	assert.Equal(t, 12, cfg.Stabilizer.FramesToConfirm)
	assert.Equal(t, 30*time.Second, cfg.Model.RetryAfter)
	assert.Equal(t, 5*time.Second, cfg.Plugins.Timeout)
	assert.Empty(t, cfg.Model.Path)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("AIRTYPE_ADDR", "127.0.0.1:9000")
	t.Setenv("AIRTYPE_SOURCE", "stdin")
	t.Setenv("AIRTYPE_CONFIDENCE_THRESHOLD", "0.8")
	t.Setenv("AIRTYPE_FRAMES_TO_CONFIRM", "5")
	t.Setenv("AIRTYPE_MODEL_PATH", "/tmp/asl.onnx")
	t.Setenv("AIRTYPE_DB_PATH", "/tmp/airtype.db")
	t.Setenv("AIRTYPE_TYPE_PLUGIN", "keyboard")
	t.Setenv("AIRTYPE_LOG_DEV", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "stdin", cfg.Source.Kind)
	assert.Equal(t, 0.8, cfg.Stabilizer.ConfidenceThreshold)
	assert.Equal(t, 5, cfg.Stabilizer.FramesToConfirm)
	assert.Equal(t, "/tmp/asl.onnx", cfg.Model.Path)
	assert.Equal(t, "/tmp/airtype.db", cfg.Store.Path())
	assert.Equal(t, "keyboard", cfg.Plugins.TypePlugin)
	assert.True(t, cfg.Log.Development)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"unknown source":         {"AIRTYPE_SOURCE": "camera"},
		"command without argv":   {"AIRTYPE_SOURCE": "command"},
		"zero frames to confirm": {"AIRTYPE_FRAMES_TO_CONFIRM": "0"},
		"unparsable threshold":   {"AIRTYPE_CONFIDENCE_THRESHOLD": "high"},
		"zero plugin timeout":    {"AIRTYPE_PLUGIN_TIMEOUT": "0s"},
	}

	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

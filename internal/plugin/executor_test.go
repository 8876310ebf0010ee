package plugin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptPlugin writes an executable shell script and returns it as a plugin.
func scriptPlugin(t *testing.T, name, script string, actions ...string) *Plugin {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, name+".sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))

	return &Plugin{
		Manifest: Manifest{
			Name:       name,
			Version:    "1.0.0",
			Executable: name + ".sh",
			Actions:    actions,
		},
		Path:       dir,
		Executable: path,
	}
}

func TestExecutor_Execute(t *testing.T) {
	plugin := scriptPlugin(t, "hello", `echo '{"success":true,"data":{"message":"hello world"}}'`+"\n", TypeAction)

	response, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, &Request{Action: TypeAction, Letter: "A"})
	require.NoError(t, err)
	assert.True(t, response.Success)
	assert.Empty(t, response.Error)

	var data map[string]string
	require.NoError(t, json.Unmarshal(response.Data, &data))
	assert.Equal(t, "hello world", data["message"])
}

func TestExecutor_Execute_ReadsStdin(t *testing.T) {
	plugin := scriptPlugin(t, "echo", `INPUT=$(cat)
echo "{\"success\":true,\"data\":{\"received\":$INPUT}}"
`, TypeAction)

	request := &Request{
		Action:  TypeAction,
		Letter:  "B",
		Session: "sess-1",
		Config:  json.RawMessage(`{"setting":"enabled"}`),
		Params:  json.RawMessage(`{"text":"B"}`),
	}

	response, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, request)
	require.NoError(t, err)

	var data struct {
		Received Request `json:"received"`
	}
	require.NoError(t, json.Unmarshal(response.Data, &data))
	assert.Equal(t, TypeAction, data.Received.Action)
	assert.Equal(t, "B", data.Received.Letter)
	assert.Equal(t, "sess-1", data.Received.Session)
}

func TestExecutor_Timeout(t *testing.T) {
	plugin := scriptPlugin(t, "slow", "sleep 10\necho '{\"success\":true}'\n", "slow")

	_, err := NewExecutor(100*time.Millisecond).Execute(context.Background(), plugin, &Request{Action: "slow"})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestExecutor_Execute_Failures(t *testing.T) {
	t.Run("error response", func(t *testing.T) {
		plugin := scriptPlugin(t, "error", `echo '{"success":false,"error":"something went wrong"}'`+"\n", "fail")

		response, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, &Request{Action: "fail"})
		require.NoError(t, err)
		assert.False(t, response.Success)
		assert.Equal(t, "something went wrong", response.Error)
	})

	t.Run("invalid json", func(t *testing.T) {
		plugin := scriptPlugin(t, "bad", "echo 'not valid json'\n", "bad")

		_, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, &Request{Action: "bad"})
		assert.Error(t, err)
	})

	t.Run("non-zero exit", func(t *testing.T) {
		plugin := scriptPlugin(t, "exit", "echo 'Error: something failed' >&2\nexit 1\n", "exit")

		_, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, &Request{Action: "exit"})
		assert.Error(t, err)
	})
}

func TestNewExecutor(t *testing.T) {
	assert.Equal(t, 3*time.Second, NewExecutor(3*time.Second).timeout)
	assert.Equal(t, 5*time.Second, NewExecutor(0).timeout, "zero selects the default")
}

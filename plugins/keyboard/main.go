// Package main provides the keyboard plugin. It types confirmed letters and
// sends keystrokes to the focused application, through AppleScript on macOS
// and xdotool on Linux.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action  string          `json:"action"`
	Letter  string          `json:"letter"`
	Session string          `json:"session"`
	Config  json.RawMessage `json:"config"`
	Params  json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// TypeParams defines parameters for the type action.
type TypeParams struct {
	Text      string `json:"text"`
	Lowercase bool   `json:"lowercase"`
}

// KeystrokeParams defines parameters for the keystroke action.
type KeystrokeParams struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"` // command, option, control, shift
}

// appleModifiers maps user-friendly modifier names to AppleScript equivalents.
var appleModifiers = map[string]string{
	"command": "command down",
	"cmd":     "command down",
	"option":  "option down",
	"alt":     "option down",
	"control": "control down",
	"ctrl":    "control down",
	"shift":   "shift down",
}

// xdoModifiers maps user-friendly modifier names to xdotool key names.
var xdoModifiers = map[string]string{
	"command": "super",
	"cmd":     "super",
	"option":  "alt",
	"alt":     "alt",
	"control": "ctrl",
	"ctrl":    "ctrl",
	"shift":   "shift",
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(fmt.Errorf("failed to decode request: %w", err))
		return
	}

	var err error
	switch req.Action {
	case "type":
		err = handleType(req)
	case "keystroke":
		err = handleKeystroke(req.Params)
	default:
		err = fmt.Errorf("unknown action: %s", req.Action)
	}
	if err != nil {
		err = fmt.Errorf("action %s failed: %w", req.Action, err)
	}

	writeResponse(err)
}

// handleType types the text parameter, or the confirmed letter when no text is given.
func handleType(req Request) error {
	var p TypeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return fmt.Errorf("failed to parse params: %w", err)
		}
	}
	if len(req.Config) > 0 {
		// config may only switch casing
		var c TypeParams
		if err := json.Unmarshal(req.Config, &c); err == nil && c.Lowercase {
			p.Lowercase = true
		}
	}

	text := p.Text
	if text == "" {
		text = req.Letter
	}
	if text == "" {
		return fmt.Errorf("text is required")
	}
	if p.Lowercase {
		text = strings.ToLower(text)
	}

	switch runtime.GOOS {
	case "darwin":
		return run("osascript", "-e", fmt.Sprintf(`tell application "System Events" to keystroke %q`, text))
	case "linux":
		return run("xdotool", "type", "--", text)
	}
	return fmt.Errorf("typing is not supported on %s", runtime.GOOS)
}

// handleKeystroke sends a single key with optional modifiers.
func handleKeystroke(params json.RawMessage) error {
	var p KeystrokeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return fmt.Errorf("failed to parse params: %w", err)
	}

	if p.Key == "" {
		return fmt.Errorf("key is required")
	}

	switch runtime.GOOS {
	case "darwin":
		return run("osascript", "-e", buildKeystrokeScript(p.Key, p.Modifiers))
	case "linux":
		return run("xdotool", "key", buildXdoKey(p.Key, p.Modifiers))
	}
	return fmt.Errorf("keystrokes are not supported on %s", runtime.GOOS)
}

// buildKeystrokeScript generates an AppleScript for the given key and modifiers.
func buildKeystrokeScript(key string, modifiers []string) string {
	var mods []string
	for _, mod := range modifiers {
		if m, ok := appleModifiers[strings.ToLower(mod)]; ok {
			mods = append(mods, m)
		}
	}

	if len(mods) == 0 {
		return fmt.Sprintf(`tell application "System Events" to keystroke %q`, key)
	}
	return fmt.Sprintf(`tell application "System Events" to keystroke %q using {%s}`, key, strings.Join(mods, ", "))
}

// buildXdoKey generates an xdotool key chord such as "ctrl+shift+a".
func buildXdoKey(key string, modifiers []string) string {
	var parts []string
	for _, mod := range modifiers {
		if m, ok := xdoModifiers[strings.ToLower(mod)]; ok {
			parts = append(parts, m)
		}
	}
	return strings.Join(append(parts, key), "+")
}

// writeResponse writes a success response, or an error response when err is set.
func writeResponse(err error) {
	resp := Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// run executes a command and returns its combined output on failure.
func run(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

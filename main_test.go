package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns its output.
func execute(t *testing.T, app *App, stdin string, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	root := newRootCmd(app)
	root.SetOut(out)
	root.SetErr(out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd(NewApp())

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"detect", "render", "serve"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestRootCmd_Version(t *testing.T) {
	out, err := execute(t, NewApp(), "", "--version")
	require.NoError(t, err)
	assert.Contains(t, out, Version)
}

func TestDetectCmd_File(t *testing.T) {
	app := NewApp()
	config := filepath.Join(t.TempDir(), "config.yaml")

	out, err := execute(t, app, "", "detect", writePlan(t), "--config", config, "--format", "json")
	require.Error(t, err, "explicit config path must exist")
	assert.Contains(t, out, "config file not found")

	app = NewApp()
	app.ConfigFile = config
	out, err = execute(t, app, "", "detect", writePlan(t))
	require.NoError(t, err)

	var resp detectResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Len(t, resp.Rooms, 2)
}

func TestDetectCmd_Stdin(t *testing.T) {
	app := NewApp()
	app.ConfigFile = filepath.Join(t.TempDir(), "config.yaml")

	out, err := execute(t, app, twoRoomsBody, "detect", "-", "-f", "graph")
	require.NoError(t, err)
	assert.Contains(t, out, `"cycleCount": 2`)
}

func TestDetectCmd_TooManyArgs(t *testing.T) {
	_, err := execute(t, NewApp(), "", "detect", "a.json", "b.json")
	assert.Error(t, err)
}

func TestRenderCmd(t *testing.T) {
	app := NewApp()
	app.ConfigFile = filepath.Join(t.TempDir(), "config.yaml")
	output := filepath.Join(t.TempDir(), "plan.png")

	out, err := execute(t, app, "", "render", writePlan(t), "-o", output)
	require.NoError(t, err)
	assert.Contains(t, out, "Rendered 2 rooms to "+output)
}

func TestDetectCmd_Source(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(twoRoomsBody))
	}))
	defer srv.Close()

	app := NewApp()
	app.ConfigFile = filepath.Join(t.TempDir(), "config.yaml")
	config := "sources:\n  - id: level-1\n    url: " + srv.URL + "\n"
	require.NoError(t, os.WriteFile(app.ConfigFile, []byte(config), 0644))

	out, err := execute(t, app, "", "detect", "--source", "level-1")
	require.NoError(t, err)

	var resp detectResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Len(t, resp.Rooms, 2)
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const widgetsYAML = `path: src/pkg/Widgets.java
content: |
  package pkg;
  public interface Widgets { int count(); }
types:
  - name: pkg.Widgets
    kind: interface
    modifiers: [public, abstract]
    annotations:
      - name: Service
      - name: Provided
    methods:
      - name: count
        returns: int
        modifiers: [public, abstract]
        annotations:
          - name: Extension
            value: BLUR
---
path: src/module-info.java
content: |
  module pkg {}
`

const pointYAML = `path: src/pkg/Point.java
content: |
  package pkg;
  public final class Point {}
types:
  - name: pkg.Point
    kind: class
    modifiers: [public, final]
    methods:
      - name: x
        returns: int
        modifiers: [public]
`

// workspace is a temp directory with a config file pointing every output
// inside it.
type workspace struct {
	dir    string
	config string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	dir := t.TempDir()
	cfg := "db: " + filepath.Join(dir, ".apisnap", "apisnap.db") + "\n" +
		"output: " + filepath.Join(dir, "out") + "\n" +
		"facade:\n  output: " + filepath.Join(dir, "gen", "dispatcher.go") + "\n" +
		"log:\n  level: error\n"
	path := filepath.Join(dir, "apisnap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return &workspace{dir: dir, config: path}
}

func (ws *workspace) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(ws.dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// run executes the CLI with the workspace config and returns stdout, stderr
// and the command error.
func (ws *workspace) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	c := newCLI(&stdout, &stderr)
	err := c.execute(context.Background(), append([]string{"--config", ws.config}, args...))
	return stdout.String(), stderr.String(), err
}

func (ws *workspace) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	stdout, stderr, err := ws.run(t, args...)
	require.NoError(t, err, "stderr: %s", stderr)
	return stdout
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateFormat("json"))
	assert.NoError(t, validateFormat("text"))
	err := validateFormat("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json or text")
}

func TestRoot_InvalidFormat(t *testing.T) {
	t.Parallel()
	ws := newWorkspace(t)
	_, stderr, err := ws.run(t, "--format", "xml", "query", "summary")
	require.Error(t, err)
	assert.Contains(t, stderr, `invalid format "xml"`)
}

func TestRoot_MissingConfig(t *testing.T) {
	t.Parallel()
	var stdout, stderr bytes.Buffer
	c := newCLI(&stdout, &stderr)
	err := c.execute(context.Background(), []string{"--config", filepath.Join(t.TempDir(), "nope.yaml"), "query", "summary"})
	require.Error(t, err)
	assert.Contains(t, stderr.String(), "reading config")
}

func TestRoot_FlagOverridesConfig(t *testing.T) {
	t.Parallel()
	ws := newWorkspace(t)
	db := filepath.Join(ws.dir, "other", "x.db")
	decls := ws.write(t, "decls/widgets.yaml", widgetsYAML)

	ws.mustRun(t, "--db", db, "ingest", "--pass", "1", decls)
	assert.FileExists(t, db)
	assert.NoFileExists(t, filepath.Join(ws.dir, ".apisnap", "apisnap.db"))
}

func TestRoot_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	ws := newWorkspace(t)
	_, _, err := ws.run(t, "--log-level", "loud", "query", "summary")
	require.Error(t, err)
}

func TestIngest_RequiresInput(t *testing.T) {
	t.Parallel()
	ws := newWorkspace(t)
	_, stderr, err := ws.run(t, "ingest", "--pass", "1")
	require.Error(t, err)
	assert.Contains(t, stderr, "requires at least one declaration file")
}

func TestIngest_RejectsFilesWithScript(t *testing.T) {
	t.Parallel()
	ws := newWorkspace(t)
	decls := ws.write(t, "w.yaml", widgetsYAML)
	_, _, err := ws.run(t, "ingest", "--script", "conv.risor", decls)
	require.Error(t, err)
}

func TestIngest_FilesThenQuery(t *testing.T) {
	t.Parallel()
	ws := newWorkspace(t)
	ws.mustRun(t, "ingest", "--pass", "1",
		ws.write(t, "w.yaml", widgetsYAML),
		ws.write(t, "p.yaml", pointYAML))

	out := ws.mustRun(t, "query", "units", "--pass", "1")
	assert.Contains(t, out, "src/pkg/Widgets.java")
	assert.Contains(t, out, "src/pkg/Point.java")

	out = ws.mustRun(t, "query", "types")
	assert.Contains(t, out, "pkg.Widgets")
	assert.NotContains(t, out, "pkg.Point")

	out = ws.mustRun(t, "query", "extensions")
	assert.Equal(t, "BLUR:\n  pkg.Widgets\n", out)
}

func TestIngest_Script(t *testing.T) {
	t.Parallel()
	ws := newWorkspace(t)
	ws.write(t, "scripts/conv.risor", `
for _, name := range input["names"] {
	emit_unit({"path": "src/" + name + ".java", "content": name})
}
`)
	input := ws.write(t, "names.yaml", "names: [A, B]\n")

	ws.mustRun(t, "ingest", "--pass", "2",
		"--scripts-dir", filepath.Join(ws.dir, "scripts"),
		"--script", "conv.risor",
		"--input", input)

	out := ws.mustRun(t, "--format", "json", "query", "units", "--pass", "2")
	var res struct {
		Command string    `json:"command"`
		Results []CLIUnit `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "units", res.Command)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "src/A.java", res.Results[0].Path)
	assert.Equal(t, "src/B.java", res.Results[1].Path)
}

func TestBuild_FirstThenMinor(t *testing.T) {
	t.Parallel()
	ws := newWorkspace(t)
	widgets := ws.write(t, "w.yaml", widgetsYAML)
	ws.mustRun(t, "ingest", "--pass", "1", widgets, ws.write(t, "p.yaml", pointYAML))

	out := ws.mustRun(t, "build")
	assert.Contains(t, out, "Note: first publication")
	assert.Contains(t, out, "Version: 1.0.0")
	assert.NotContains(t, out, "```")
	assert.FileExists(t, filepath.Join(ws.dir, "out", "api-blob"))
	assert.FileExists(t, filepath.Join(ws.dir, "gen", "dispatcher.go"))

	out = ws.mustRun(t, "build")
	assert.Contains(t, out, "No API changes")
	assert.Contains(t, out, "Version: 1.0.0")

	ws.mustRun(t, "reset")
	extended := strings.Replace(pointYAML, "        modifiers: [public]\n",
		"        modifiers: [public]\n      - name: y\n        returns: int\n        modifiers: [public]\n", 1)
	ws.mustRun(t, "ingest", "--pass", "1", widgets, ws.write(t, "p.yaml", extended))

	out = ws.mustRun(t, "--format", "json", "build")
	var res struct {
		Results CLIBuild `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "1.0.0", res.Results.Previous)
	assert.Equal(t, "1.1.0", res.Results.Version)
	assert.Equal(t, "MINOR", res.Results.Compatibility)

	out = ws.mustRun(t, "query", "summary")
	assert.Contains(t, out, "Last version: 1.1.0")
}

func TestBuild_VersionOverride(t *testing.T) {
	t.Parallel()
	ws := newWorkspace(t)
	ws.mustRun(t, "ingest", "--pass", "1", ws.write(t, "w.yaml", widgetsYAML))

	out := ws.mustRun(t, "build", "--version", "3.0.0")
	assert.Contains(t, out, "version override specified: 3.0.0")
	data, err := os.ReadFile(filepath.Join(ws.dir, "out", "version.txt"))
	require.NoError(t, err)
	assert.Equal(t, "3.0.0\n", string(data))

	_, _, err = ws.run(t, "build", "--version", "three")
	require.Error(t, err)
}

func TestBuild_ValidationFailure(t *testing.T) {
	t.Parallel()
	ws := newWorkspace(t)
	broken := strings.Replace(widgetsYAML, "      - name: Provided\n", "", 1)
	ws.mustRun(t, "ingest", "--pass", "1", ws.write(t, "w.yaml", broken))

	_, stderr, err := ws.run(t, "build")
	require.Error(t, err)
	assert.Contains(t, stderr, "service-requires-provided")
	assert.Contains(t, stderr, "validation error(s)")
	assert.NotContains(t, stderr, "Error: ")
	assert.NoFileExists(t, filepath.Join(ws.dir, "out", "api-blob"))
}

func TestGenerate_Check(t *testing.T) {
	t.Parallel()
	ws := newWorkspace(t)
	ws.mustRun(t, "ingest", "--pass", "1", ws.write(t, "w.yaml", widgetsYAML))

	_, _, err := ws.run(t, "generate", "--check")
	require.Error(t, err)

	ws.mustRun(t, "generate")
	assert.FileExists(t, filepath.Join(ws.dir, "gen", "dispatcher.go"))
	out := ws.mustRun(t, "generate", "--check")
	assert.Empty(t, out)
}

func TestDiffAndShow(t *testing.T) {
	t.Parallel()
	ws := newWorkspace(t)
	widgets := ws.write(t, "w.yaml", widgetsYAML)
	ws.mustRun(t, "ingest", "--pass", "1", widgets, ws.write(t, "p.yaml", pointYAML))
	ws.mustRun(t, "build")

	blob := filepath.Join(ws.dir, "out", "api-blob")
	old := filepath.Join(ws.dir, "old-blob")
	data, err := os.ReadFile(blob)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(old, data, 0o644))

	out := ws.mustRun(t, "diff", old, blob)
	assert.Equal(t, "No API changes (1.0.0)\n", out)

	ws.mustRun(t, "reset")
	ws.mustRun(t, "ingest", "--pass", "1", widgets)
	ws.mustRun(t, "build")

	out = ws.mustRun(t, "diff", old, blob)
	assert.Contains(t, out, "- pkg.Point")
	assert.Contains(t, out, "Version increment: 1.0.0 -> 2.0.0")

	out = ws.mustRun(t, "show", blob)
	assert.Contains(t, out, "pkg.Widgets")
	assert.NotContains(t, out, "pkg.Point")

	_, stderr, err := ws.run(t, "show", filepath.Join(ws.dir, "missing"))
	require.Error(t, err)
	assert.Contains(t, stderr, "does not exist")
}

func TestQuery_SummaryJSONOnEmptyStore(t *testing.T) {
	t.Parallel()
	ws := newWorkspace(t)
	out := ws.mustRun(t, "--format", "json", "query", "summary")
	var res struct {
		Results CLISummary `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 0, res.Results.Counts["units"])
	assert.Empty(t, res.Results.Passes)
}

func TestIngest_BundledOutlineScript(t *testing.T) {
	t.Parallel()
	ws := newWorkspace(t)
	input := ws.write(t, "outline.yaml", `package: pkg
types:
  - name: Widgets
    kind: interface
    annotations: [Service, Provided]
    methods:
      - {name: count, returns: int}
`)
	ws.mustRun(t, "ingest", "--pass", "1", "--script", "convert/outline.risor", "--input", input)

	out := ws.mustRun(t, "query", "types")
	assert.Contains(t, out, "pkg.Widgets")

	out = ws.mustRun(t, "build")
	assert.Contains(t, out, "Version: 1.0.0")
}

func TestExport(t *testing.T) {
	t.Parallel()
	ws := newWorkspace(t)
	ws.mustRun(t, "ingest", "--pass", "3", ws.write(t, "p.yaml", pointYAML))

	out := ws.mustRun(t, "export", "--pass", "3")
	assert.Contains(t, out, "path: src/pkg/Point.java")
	assert.Contains(t, out, "name: pkg.Point")

	assert.Empty(t, ws.mustRun(t, "export", "--pass", "9"))
}

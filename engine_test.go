package apisnap

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/apisnap/internal/config"
)

const declsV1 = `path: src/pkg/Widgets.java
content: |
  package pkg;
  public interface Widgets { int count(); }
types:
  - name: pkg.Widgets
    kind: interface
    modifiers: [public, abstract]
    doc: Widget access.
    annotations:
      - name: Service
      - name: Provided
    methods:
      - name: count
        returns: int
        modifiers: [public, abstract]
---
path: src/pkg/Point.java
content: |
  package pkg;
  public final class Point {}
types:
  - name: pkg.Point
    kind: class
    modifiers: [public, final]
    fields:
      - name: ORIGIN
        type: int
        modifiers: [public, static, final]
        constant: "0"
    methods:
      - name: x
        returns: int
        modifiers: [public]
---
path: src/module-info.java
content: |
  module pkg {}
`

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Output = filepath.Join(dir, "out")
	cfg.Facade.Output = filepath.Join(dir, "gen", "dispatcher.go")
	e, err := New(filepath.Join(dir, "test.db"), append([]Option{WithConfig(cfg)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func ingest(t *testing.T, e *Engine, pass int, yamlDocs string) {
	t.Helper()
	require.NoError(t, e.IngestYAML(context.Background(), pass, strings.NewReader(yamlDocs)))
}

func TestNew_CreatesStore(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	require.NotNil(t, e.Store())
	require.NotNil(t, e.Query())
	assert.Equal(t, "module-info.java", e.Config().Collector.ModuleDescriptor)
}

func TestNew_InvalidPath(t *testing.T) {
	t.Parallel()
	_, err := New("/nonexistent/dir/db.sqlite")
	require.Error(t, err)
}

func TestNew_DefaultsConfig(t *testing.T) {
	t.Parallel()
	e, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer e.Close()
	assert.Equal(t, config.Default(), e.Config())
}

func TestIngestYAML(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	ingest(t, e, 1, declsV1)

	units, err := e.Query().Units(1)
	require.NoError(t, err)
	require.Len(t, units, 3)
	assert.Equal(t, "src/pkg/Widgets.java", units[0].Path)
	assert.NotEmpty(t, units[0].ContentHash)
}

func TestIngestYAML_DecodeError(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	err := e.IngestYAML(context.Background(), 1, strings.NewReader("types: [\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pass 1")
}

func TestIngestUnits_IsAtomic(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	err := e.IngestUnits(context.Background(), 1, []Unit{{Path: "a.java"}, {Path: "a.java"}})
	require.Error(t, err)

	sum, err := e.Query().Summary()
	require.NoError(t, err)
	assert.Empty(t, sum.Passes)
	assert.Zero(t, sum.Counts["units"])
}

func TestIngestUnits_CanceledContext(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.IngestUnits(ctx, 1, []Unit{{Path: "a.java"}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestIngestFiles_ResolvesContentFile(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Point.java"), []byte("class Point {}\n"), 0o644))
	yamlPath := filepath.Join(dir, "decls.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("path: src/Point.java\ncontent_file: Point.java\n"), 0o644))

	require.NoError(t, e.IngestFiles(context.Background(), 2, yamlPath))

	units, err := e.Store().LoadPass(2)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "class Point {}\n", units[0].Content)
	assert.Empty(t, units[0].ContentFile)
}

func TestIngestScript(t *testing.T) {
	t.Parallel()
	scripts := fstest.MapFS{
		"convert.risor": &fstest.MapFile{Data: []byte(`
for _, name := range input["services"] {
	emit_unit({
		"path": "src/" + name + ".java",
		"types": [{
			"name": "pkg." + name,
			"kind": "interface",
			"modifiers": ["public"],
			"annotations": [{"name": "Service"}, {"name": "Provided"}]
		}]
	})
}
log.Info("converted")
`)},
	}
	e := newTestEngine(t, WithScriptsFS(scripts))

	input := map[string]any{"services": []any{"Alpha", "Beta"}}
	require.NoError(t, e.IngestScript(context.Background(), 1, "convert.risor", input))

	types, err := e.Query().AnnotatedTypes("Service")
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "pkg.Alpha", types[0].Name)
	assert.Equal(t, "src/Alpha.java", types[0].Unit)
	assert.Equal(t, 1, types[0].Pass)
}

func TestIngestScript_FailureLeavesStoreUntouched(t *testing.T) {
	t.Parallel()
	scripts := fstest.MapFS{
		"bad.risor": &fstest.MapFile{Data: []byte(`
emit_unit({"path": "src/A.java"})
emit_unit({"types": []})
`)},
	}
	e := newTestEngine(t, WithScriptsFS(scripts))

	err := e.IngestScript(context.Background(), 1, "bad.risor", nil)
	require.Error(t, err)

	sum, err := e.Query().Summary()
	require.NoError(t, err)
	assert.Zero(t, sum.Counts["units"])
}

func TestIngestScript_FromDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.risor"), []byte(`emit_unit({"path": "x.java"})`), 0o644))
	e := newTestEngine(t, WithScriptsDir(dir))

	require.NoError(t, e.IngestScript(context.Background(), 3, "one.risor", nil))
	units, err := e.Query().Units(3)
	require.NoError(t, err)
	require.Len(t, units, 1)
}

func TestReset(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	ingest(t, e, 1, declsV1)
	ingest(t, e, 2, "path: late.java\n")

	require.NoError(t, e.Reset())
	sum, err := e.Query().Summary()
	require.NoError(t, err)
	assert.Empty(t, sum.Passes)
}

func TestExportPass_ReingestsIdentically(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	ingest(t, e, 1, declsV1)

	var buf strings.Builder
	require.NoError(t, e.ExportPass(&buf, 1))
	assert.Contains(t, buf.String(), "path: src/pkg/Point.java")

	other := newTestEngine(t)
	ingest(t, other, 1, buf.String())
	want, err := e.Store().LoadPass(1)
	require.NoError(t, err)
	got, err := other.Store().LoadPass(1)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

package runtime

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/apisnap/internal/decl"
	"github.com/jward/apisnap/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

const emitScript = `
count := emit_unit({
	"path": "src/pkg/Widgets.java",
	"content": "package pkg;\n",
	"types": [{
		"name": "pkg.Widgets",
		"kind": "interface",
		"modifiers": ["public"],
		"annotations": [{"name": "Service"}, {"name": "Provided"}],
		"methods": [{
			"name": "blur",
			"params": ["float"],
			"returns": "void",
			"modifiers": ["public", "abstract"],
			"annotations": [{"name": "Extension", "value": "BLUR"}]
		}],
		"types": [{"name": "pkg.Widgets$Handle", "kind": "class", "modifiers": ["public", "static"]}]
	}]
})
assert(count == 2, 'expected 2 types, got {count}')
`

func TestRunSource_EmitUnit(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	rt := NewRuntime(s, "", WithPass(1))

	require.NoError(t, rt.RunSource(context.Background(), emitScript, nil))

	units, err := s.LoadPass(1)
	require.NoError(t, err)
	require.Len(t, units, 1)
	u := units[0]
	assert.Equal(t, "src/pkg/Widgets.java", u.Path)
	assert.Equal(t, "package pkg;\n", u.Content)
	require.Len(t, u.Types, 1)
	w := u.Types[0]
	assert.Equal(t, "pkg.Widgets", w.Name)
	assert.True(t, w.HasAnnotation(decl.AnnotationService))
	require.Len(t, w.Methods, 1)
	ext, ok := w.Methods[0].Annotation(decl.AnnotationExtension)
	require.True(t, ok)
	assert.Equal(t, "BLUR", ext.Value)
	require.Len(t, w.Types, 1)
	assert.Equal(t, "pkg.Widgets$Handle", w.Types[0].Name)
}

func TestRunSource_EmitIntoBatch(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	batch := store.NewBatchedStore(s)
	rt := NewRuntime(batch, "", WithPass(4))

	script := emitScript + `
found := types_by_name("pkg.Widgets$Handle")
assert(len(found) == 1, 'expected one buffered type')
assert(found[0]["id"] < 0, 'expected a fake id')
assert(found[0]["modifiers"][1] == "static", 'modifiers')
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))

	units, err := s.LoadPass(4)
	require.NoError(t, err)
	assert.Empty(t, units, "nothing is written before commit")

	require.NoError(t, s.CommitBatch(batch))
	units, err = s.LoadPass(4)
	require.NoError(t, err)
	require.Len(t, units, 1)
}

func TestRunSource_InputGlobal(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	rt := NewRuntime(s, "", WithPass(1))

	input := map[string]any{
		"classes": []any{
			map[string]any{"name": "pkg.A", "public": true},
			map[string]any{"name": "pkg.B", "public": false},
		},
	}
	script := `
for _, c := range input["classes"] {
	if !c["public"] {
		continue
	}
	emit_unit({
		"path": c["name"] + ".java",
		"types": [{"name": c["name"], "kind": "class", "modifiers": ["public"]}]
	})
}
`
	require.NoError(t, rt.RunSource(context.Background(), script, map[string]any{"input": input}))

	units, err := s.LoadPass(1)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "pkg.A.java", units[0].Path)
}

func TestRunSource_EmitUnitErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		script string
		want   string
	}{
		{"not a map", `emit_unit("x")`, "expected map"},
		{"missing path", `emit_unit({"types": []})`, "path is required"},
		{"content file", `emit_unit({"path": "a", "content_file": "b"})`, "content_file"},
		{"arg count", `emit_unit()`, "emit_unit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rt := NewRuntime(newTestStore(t), "")
			err := rt.RunSource(context.Background(), tt.script, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunSource_DBQuery(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, store.WriteUnits(s, 2, []decl.Unit{{Path: "a.java"}, {Path: "b.java"}}))

	rt := NewRuntime(nil, "", WithQueryStore(s))
	script := `
rows := db_query("SELECT path FROM units WHERE pass = ? ORDER BY path", 2)
assert(len(rows) == 2, 'expected 2 rows')
assert(rows[1]["path"] == "b.java", 'unexpected {rows[1]}')
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))

	err := rt.RunSource(context.Background(), `db_query("DELETE FROM units")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only SELECT")
}

func TestRunSource_NoStoreFunctionsWithoutStore(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(nil, "")
	err := rt.RunSource(context.Background(), `emit_unit({"path": "a"})`, nil)
	require.Error(t, err)
}

func TestRunSource_LogObject(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	rt := NewRuntime(nil, "", WithPass(3), WithLogger(logger))

	require.NoError(t, rt.RunSource(context.Background(), `log.Warn("careful")`, nil))
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "msg=careful")
	assert.Contains(t, buf.String(), "pass=3")
	assert.Contains(t, buf.String(), "source=script")
}

func TestRunScript_LoadsFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.risor"), []byte(`result := 1 + 1`), 0o644))

	rt := NewRuntime(nil, dir)
	require.NoError(t, rt.RunScript(context.Background(), "test.risor", nil))
}

func TestRunScript_MissingFile(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(nil, t.TempDir())
	err := rt.RunScript(context.Background(), "nonexistent.risor", nil)
	require.Error(t, err)
}

func TestRunScript_Import(t *testing.T) {
	t.Parallel()
	mapFS := fstest.MapFS{
		"helpers.risor": &fstest.MapFile{Data: []byte("func unit_path(name) { return name + \".java\" }\n")},
		"main.risor": &fstest.MapFile{Data: []byte(`
import helpers
emit_unit({"path": helpers.unit_path("pkg.A")})
`)},
	}
	s := newTestStore(t)
	rt := NewRuntime(s, "", WithRuntimeFS(mapFS), WithPass(1))
	require.NoError(t, rt.RunScript(context.Background(), "main.risor", nil))

	u, err := s.UnitByPath(1, "pkg.A.java")
	require.NoError(t, err)
	assert.NotNil(t, u)
}

func TestLoadScript(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.risor")
	content := `x := 42`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rt := NewRuntime(nil, dir)
	got, err := rt.LoadScript(path)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLoadScript_FromFSFS(t *testing.T) {
	t.Parallel()

	content := `x := 42`
	mapFS := fstest.MapFS{
		"convert/classes.risor": &fstest.MapFile{Data: []byte(content)},
	}

	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))

	got, err := rt.LoadScript("/convert/classes.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLoadScript_FromFSFS_NotFound(t *testing.T) {
	t.Parallel()

	rt := NewRuntime(nil, "", WithRuntimeFS(fstest.MapFS{}))

	_, err := rt.LoadScript("nonexistent.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from fs")
}

func TestToObject(t *testing.T) {
	t.Parallel()

	obj := toObject(map[string]any{
		"s": "x",
		"n": 3,
		"f": 1.5,
		"b": true,
		"l": []any{"a", nil},
	})
	assert.Equal(t, map[string]any{
		"s": "x",
		"n": int64(3),
		"f": 1.5,
		"b": true,
		"l": []any{"a", nil},
	}, obj.Interface())
}

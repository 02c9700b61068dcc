package snapshot

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/apisnap/internal/model"
)

func TestContentHash_MatchesStringHash(t *testing.T) {
	t.Parallel()

	// Known values of the 31-multiplier string hash.
	assert.Equal(t, int32(0), ContentHash(""))
	assert.Equal(t, int32(97), ContentHash("a"))
	assert.Equal(t, int32(96354), ContentHash("abc"))
	assert.Equal(t, int32(69609650), ContentHash("Hello"))
	assert.Equal(t, NameHash("abc"), ContentHash("abc"))
}

func TestContentHash_LineEndingIndependent(t *testing.T) {
	t.Parallel()

	lf := "package a;\n\npublic final class A {\n}\n"
	crlf := strings.ReplaceAll(lf, "\n", "\r\n")
	cr := strings.ReplaceAll(lf, "\n", "\r")

	assert.Equal(t, ContentHash(lf), ContentHash(crlf))
	assert.Equal(t, ContentHash(lf), ContentHash(cr))
	assert.NotEqual(t, ContentHash(lf), ContentHash(lf+"\n"))
}

func TestContentHash_SupplementaryCharacters(t *testing.T) {
	t.Parallel()

	// U+1F600 is two UTF-16 code units: D83D DE00.
	want := int32(31*0xD83D + 0xDE00)
	assert.Equal(t, want, ContentHash("\U0001F600"))
}

func TestAccumulator_OrderIndependent(t *testing.T) {
	t.Parallel()

	units := make([]int32, 40)
	for i := range units {
		units[i] = UnitHash(strings.Repeat("x", i)+"class", NameHash("pkg.Type"+string(rune('A'+i%26))))
	}

	var base Accumulator
	for _, h := range units {
		base.Add(h)
	}

	r := rand.New(rand.NewPCG(1, 2))
	for range 100 {
		perm := r.Perm(len(units))
		var acc Accumulator
		for _, i := range perm {
			acc.Add(units[i])
		}
		require.Equal(t, base.Sum(), acc.Sum())
	}
}

func TestSaveLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "api-blob")

	constant := "42"
	typ := model.NewType("pkg.Foo", model.KindInterface)
	typ.Usage = model.UsageProvides
	typ.Modifiers = model.NewModifiers(model.Public, model.Abstract)
	typ.Supertypes = []string{"pkg.Base"}
	typ.Fields["MAX"] = &model.Field{Name: "MAX", Type: "int", ConstantValue: &constant,
		Modifiers: model.NewModifiers(model.Public, model.Static, model.Final)}
	m := &model.Method{Name: "bar", ReturnType: "void", Modifiers: model.NewModifiers(model.Public, model.Abstract)}
	typ.Methods[m.Key()] = m
	nested := model.NewType("pkg.Foo$Inner", model.KindClass)
	typ.Types[nested.QualifiedName] = nested

	mod := &model.Module{
		Types:   map[string]*model.Type{typ.QualifiedName: typ},
		Version: model.MustParseVersion("1.4.2"),
		Hash:    -12345,
	}
	require.NoError(t, Save(path, mod))

	got, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, mod.Version, got.Version)
	assert.Equal(t, mod.Hash, got.Hash)
	require.Contains(t, got.Types, "pkg.Foo")
	gotType := got.Types["pkg.Foo"]
	assert.Equal(t, model.UsageProvides, gotType.Usage)
	require.NotNil(t, gotType.Fields["MAX"].ConstantValue)
	assert.Equal(t, "42", *gotType.Fields["MAX"].ConstantValue)
	assert.Contains(t, gotType.Methods, "bar()")
	assert.Contains(t, gotType.Types, "pkg.Foo$Inner")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must be renamed away")
}

func TestLoad_Missing(t *testing.T) {
	t.Parallel()

	m, err := Load(filepath.Join(t.TempDir(), "absent"))
	assert.NoError(t, err)
	assert.Nil(t, m)
}

func TestLoad_Corrupt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for name, content := range map[string][]byte{
		"empty":    nil,
		"magic":    []byte("NOTASNAPSHOT"),
		"version":  append([]byte("APISNAP"), 9),
		"truncate": append([]byte("APISNAP"), 1, 0xff, 0x01),
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, content, 0o644))
		_, err := Load(path)
		assert.ErrorIs(t, err, ErrCorrupt, name)
	}
}

func TestWriteText(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "version.txt")
	require.NoError(t, WriteText(path, "1.0.0"))
	require.NoError(t, WriteText(path, "1.1.0"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", string(data))

	err = WriteText(filepath.Join(t.TempDir(), "missing", "x.txt"), "x")
	assert.Error(t, err)
}

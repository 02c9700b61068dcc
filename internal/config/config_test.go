package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/apisnap/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "apisnap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	t.Parallel()
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, filepath.Join("build", "apisnap", "api-blob"), cfg.BaselinePath())
}

func TestLoad_File(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
db: data/decls.db
output: out
version: 2.0.0
facade:
  output: gen/facade.go
  templates: tmpl
collector:
  root_type: base.Root
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "data/decls.db", cfg.DB)
	assert.Equal(t, "out", cfg.Output)
	assert.Equal(t, filepath.Join("out", "api-blob"), cfg.BaselinePath())
	assert.Equal(t, "gen/facade.go", cfg.Facade.Output)
	assert.Equal(t, "tmpl", cfg.Facade.Templates)
	assert.Equal(t, "base.Root", cfg.Collector.RootType)
	assert.Equal(t, "module-info.java", cfg.Collector.ModuleDescriptor, "unset keys keep defaults")
	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)

	v, err := cfg.Override()
	require.NoError(t, err)
	assert.Equal(t, &model.Version{Major: 2}, v)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "output: out\n")
	t.Setenv("APISNAP_OUTPUT", "env-out")
	t.Setenv("APISNAP_FACADE_OUTPUT", "env/facade.go")
	t.Setenv("APISNAP_VERSION", "SNAPSHOT")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-out", cfg.Output)
	assert.Equal(t, "env/facade.go", cfg.Facade.Output)

	v, err := cfg.Override()
	require.NoError(t, err)
	assert.True(t, v.Snapshot)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "version: 1.2\nlog:\n  format: xml\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version")
	assert.Contains(t, err.Error(), "log.format")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"ok", func(*Config) {}, ""},
		{"empty db", func(c *Config) { c.DB = "" }, "db path"},
		{"empty output", func(c *Config) { c.Output = "" }, "output directory"},
		{"empty facade", func(c *Config) { c.Facade.Output = "" }, "facade.output"},
		{"bad version", func(c *Config) { c.Version = "v1.2.3" }, "version"},
		{"prerelease", func(c *Config) { c.Version = "1.2.3-rc1" }, "version"},
		{"snapshot", func(c *Config) { c.Version = "SNAPSHOT" }, ""},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "k", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"k":1`)

	buf.Reset()
	logger, err = NewLogger(LogConfig{}, &buf)
	require.NoError(t, err)
	logger.Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")

	_, err = NewLogger(LogConfig{Format: "xml"}, &buf)
	require.Error(t, err)
}

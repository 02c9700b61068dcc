package apisnap

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/jward/apisnap/internal/config"
	"github.com/jward/apisnap/internal/decl"
	"github.com/jward/apisnap/internal/runtime"
	"github.com/jward/apisnap/internal/store"
)

// Engine orchestrates apisnap: ingesting declaration passes, building and
// comparing snapshots, and query access.
type Engine struct {
	store  *store.Store
	cfg    *config.Config
	logger *slog.Logger

	templatesFS fs.FS
	scriptsDir  string
	scriptsFS   fs.FS
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets the build configuration. Without it config.Default is used.
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithLogger sets the logger used by the Engine and everything it drives.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTemplatesFS loads facade templates from fsys instead of the configured
// templates directory or the built-in defaults.
func WithTemplatesFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.templatesFS = fsys
	}
}

// WithScriptsDir sets the directory relative script paths and imports are
// resolved against.
func WithScriptsDir(dir string) Option {
	return func(e *Engine) {
		e.scriptsDir = dir
	}
}

// WithScriptsFS configures the Engine to load conversion scripts from the
// given filesystem instead of from disk. This enables embedding scripts via
// go:embed.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// New creates an Engine backed by a SQLite database at dbPath.
func New(dbPath string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("apisnap: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("apisnap: migrate: %w", err)
	}

	e := &Engine{store: s}
	for _, opt := range opts {
		opt(e)
	}
	if e.cfg == nil {
		e.cfg = config.Default()
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Config returns the configuration the Engine builds with.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}

// Reset drops every ingested pass. Metadata such as the last built version
// survives.
func (e *Engine) Reset() error {
	if err := e.store.Reset(); err != nil {
		return fmt.Errorf("apisnap: reset: %w", err)
	}
	e.logger.Info("declaration store reset")
	return nil
}

// IngestUnits records units under pass. All units are buffered and committed
// in one transaction; a failure leaves the store untouched.
func (e *Engine) IngestUnits(ctx context.Context, pass int, units []Unit) error {
	batch := store.NewBatchedStore(e.store)
	if err := store.WriteUnits(batch, pass, units); err != nil {
		return fmt.Errorf("apisnap: ingest pass %d: %w", pass, err)
	}
	return e.commit(ctx, pass, batch)
}

// IngestYAML decodes a YAML document stream and records it under pass.
// content_file references are not resolved; use IngestFiles for that.
func (e *Engine) IngestYAML(ctx context.Context, pass int, r io.Reader) error {
	units, err := decl.Decode(r)
	if err != nil {
		return fmt.Errorf("apisnap: ingest pass %d: %w", pass, err)
	}
	return e.IngestUnits(ctx, pass, units)
}

// IngestFiles decodes each YAML file and records all of them under pass in
// a single transaction.
func (e *Engine) IngestFiles(ctx context.Context, pass int, paths ...string) error {
	var units []Unit
	for _, path := range paths {
		us, err := decl.DecodeFile(path)
		if err != nil {
			return fmt.Errorf("apisnap: ingest pass %d: %w", pass, err)
		}
		units = append(units, us...)
	}
	return e.IngestUnits(ctx, pass, units)
}

// IngestScript runs a Risor conversion script that emits units for pass.
// input is exposed to the script as the global "input".
func (e *Engine) IngestScript(ctx context.Context, pass int, scriptPath string, input any) error {
	batch := store.NewBatchedStore(e.store)
	rtOpts := []runtime.RuntimeOption{
		runtime.WithPass(pass),
		runtime.WithQueryStore(e.store),
		runtime.WithLogger(e.logger),
	}
	if e.scriptsFS != nil {
		rtOpts = append(rtOpts, runtime.WithRuntimeFS(e.scriptsFS))
	}
	rt := runtime.NewRuntime(batch, e.scriptsDir, rtOpts...)
	if err := rt.RunScript(ctx, scriptPath, map[string]any{"input": input}); err != nil {
		return fmt.Errorf("apisnap: ingest pass %d: %w", pass, err)
	}
	return e.commit(ctx, pass, batch)
}

// ExportPass writes the units of pass as a YAML document stream in the same
// schema IngestYAML reads.
func (e *Engine) ExportPass(w io.Writer, pass int) error {
	units, err := e.store.LoadPass(pass)
	if err != nil {
		return fmt.Errorf("apisnap: export pass %d: %w", pass, err)
	}
	if err := decl.Encode(w, units); err != nil {
		return fmt.Errorf("apisnap: export pass %d: %w", pass, err)
	}
	return nil
}

func (e *Engine) commit(ctx context.Context, pass int, batch *store.BatchedStore) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n := batch.Len()
	if err := e.store.CommitBatch(batch); err != nil {
		return fmt.Errorf("apisnap: ingest pass %d: %w", pass, err)
	}
	e.logger.Info("pass ingested", "pass", pass, "units", len(batch.Units), "rows", n)
	return nil
}

package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	"github.com/jward/apisnap/internal/store"
)

// Runtime runs Risor conversion scripts. A conversion script reads whatever
// an extractor produced (usually handed in as the input global) and emits
// declaration units for one pass.
type Runtime struct {
	ds         store.DataStore
	db         *store.Store
	pass       int
	scriptsDir string
	fsys       fs.FS
	logger     *slog.Logger
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS loads scripts and resolves imports from fsys instead of
// scriptsDir.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithPass sets the pass that emitted units are recorded under.
func WithPass(pass int) RuntimeOption {
	return func(r *Runtime) {
		r.pass = pass
	}
}

// WithQueryStore exposes read-only SQL (db_query) over s.
func WithQueryStore(s *store.Store) RuntimeOption {
	return func(r *Runtime) {
		r.db = s
	}
}

// WithLogger routes the script log object to logger.
func WithLogger(logger *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// NewRuntime creates a Runtime writing to ds. ds may be nil, in which case
// emit_unit and types_by_name are not defined.
func NewRuntime(ds store.DataStore, scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		ds:         ds,
		scriptsDir: scriptsDir,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunScript loads the script at scriptPath and evaluates it. extra holds
// additional globals; plain Go values are converted to Risor objects.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, extra map[string]any) error {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return err
	}
	return r.eval(ctx, scriptPath, src, extra)
}

// RunSource evaluates source directly.
func (r *Runtime) RunSource(ctx context.Context, source string, extra map[string]any) error {
	return r.eval(ctx, "<inline>", source, extra)
}

func (r *Runtime) eval(ctx context.Context, label, source string, extra map[string]any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("runtime: script %s: %w", label, err)
	}
	globals := r.globals(extra)

	opts := make([]risor.Option, 0, len(globals)+1)
	names := make([]string, 0, len(globals))
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
		names = append(names, name)
	}
	if src := r.importSource(); src != nil {
		opts = append(opts, risor.WithImporter(importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: names,
			SourceFS:    src,
			Extensions:  []string{".risor"},
		})))
	}

	if _, err := risor.Eval(ctx, source, opts...); err != nil {
		return fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return nil
}

// importSource is the filesystem import statements resolve against, or nil
// when neither an FS nor a scripts directory is configured.
func (r *Runtime) importSource() fs.FS {
	switch {
	case r.fsys != nil:
		return r.fsys
	case r.scriptsDir != "":
		return os.DirFS(r.scriptsDir)
	default:
		return nil
	}
}

// LoadScript returns the source of the script at p. With an FS configured p
// is a slash path inside it (a leading "/" is ignored); otherwise relative
// paths are joined to scriptsDir.
func (r *Runtime) LoadScript(p string) (string, error) {
	var (
		data []byte
		err  error
	)
	if r.fsys != nil {
		name := path.Clean(strings.TrimPrefix(filepath.ToSlash(p), "/"))
		if data, err = fs.ReadFile(r.fsys, name); err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", name, err)
		}
		return string(data), nil
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(r.scriptsDir, p)
	}
	if data, err = os.ReadFile(p); err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", p, err)
	}
	return string(data), nil
}

// globals assembles the script environment: pass, log, the store functions
// the Runtime was configured with, then extra.
func (r *Runtime) globals(extra map[string]any) map[string]any {
	g := map[string]any{
		"pass": object.NewInt(int64(r.pass)),
		"log":  mustProxy(&logObject{logger: r.logger.With("pass", r.pass)}),
	}
	if r.ds != nil {
		g["emit_unit"] = emitUnit(r.ds, r.pass)
		g["types_by_name"] = typesByName(r.ds)
	}
	if r.db != nil {
		g["db_query"] = dbQuery(r.db)
	}
	for k, v := range extra {
		g[k] = toObject(v)
	}
	return g
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy %T: %v", v, err))
	}
	return p
}

package apisnap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jward/apisnap/internal/collect"
	"github.com/jward/apisnap/internal/compare"
	"github.com/jward/apisnap/internal/config"
	"github.com/jward/apisnap/internal/decl"
	"github.com/jward/apisnap/internal/facade"
	"github.com/jward/apisnap/internal/model"
	"github.com/jward/apisnap/internal/snapshot"
)

// ErrValidation is returned by Build when declarations violate a structural
// rule. Nothing is persisted in that case.
var ErrValidation = errors.New("apisnap: structural validation failed")

// Output file names written into the configured output directory.
const (
	VersionFile        = "version.txt"
	MessageFile        = "message.txt"
	CompatSourcesFile  = "compat-sources.txt"
	metaLastVersion    = "last_version"
	metaLastCompatible = "last_compatibility"
)

// BuildResult describes one build.
type BuildResult struct {
	Module *Module
	// Previous is the baseline version, nil when there was no baseline or
	// an override skipped comparison.
	Previous      *Version
	Version       Version
	Compatibility Compatibility
	Overridden    bool
	// Report is the consolidated change report, empty when nothing changed.
	Report        string
	Violations    []Violation
	CompatSources []string
	// Facade is the generated dispatcher source.
	Facade string
}

// Build replays every ingested pass, generates the facade, finalizes the
// snapshot and compares it against the baseline. Outputs are only written
// when validation passes and every step succeeded.
func (e *Engine) Build(ctx context.Context) (*BuildResult, error) {
	override, err := e.cfg.Override()
	if err != nil {
		return nil, fmt.Errorf("apisnap: build: %w", err)
	}

	b := collect.NewBuilder(collect.Options{
		RootType:         e.cfg.Collector.RootType,
		ModuleDescriptor: e.cfg.Collector.ModuleDescriptor,
		Logger:           e.logger,
	})
	if err := e.replay(ctx, b); err != nil {
		return nil, err
	}

	generated, err := e.generate(b)
	if err != nil {
		return nil, err
	}
	if err := writeFile(e.cfg.Facade.Output, generated); err != nil {
		return nil, fmt.Errorf("apisnap: build: %w", err)
	}
	b.AddPass([]decl.Unit{{Path: e.cfg.Facade.Output, Content: generated}})

	fin := b.Finalize()
	res := &BuildResult{
		Module:        fin.Module,
		Violations:    fin.Violations,
		CompatSources: fin.CompatSources,
		Facade:        generated,
	}
	if len(fin.Violations) > 0 {
		for _, v := range fin.Violations {
			e.logger.Error("validation failed", "unit", v.Unit, "decl", v.Decl, "rule", v.Rule.String(), "msg", v.Message)
		}
		return res, fmt.Errorf("%w: %w", ErrValidation, collect.JoinViolations(fin.Violations))
	}

	if override != nil {
		res.Version = *override
		res.Overridden = true
		res.Report = compare.OverrideReport(*override)
		e.logger.Warn("version override, skipping API checks", "version", override.String())
	} else {
		prev, err := snapshot.Load(e.cfg.BaselinePath())
		if err != nil {
			return nil, fmt.Errorf("apisnap: build: baseline: %w", err)
		}
		from := model.Version{}
		if prev != nil {
			from = prev.Version
			res.Previous = &from
		}
		if from.Snapshot {
			e.logger.Warn("baseline version is SNAPSHOT, incrementing from 0.0.0")
		}
		digest := compare.Modules(prev, fin.Module).Digest()
		res.Compatibility = digest.Compatibility
		res.Version = nextVersion(digest.Compatibility, from)
		res.Report = compare.Report(digest, from, res.Version)
	}
	res.Module.Version = res.Version

	if err := e.persist(res); err != nil {
		return nil, err
	}
	e.logger.Info("build complete",
		"version", res.Version.String(),
		"compatibility", res.Compatibility.String(),
		"overridden", res.Overridden)
	return res, nil
}

// Generate renders the facade from the ingested passes without building a
// snapshot. With check set the file on disk is left alone and the returned
// diff is non-empty when it is out of date.
func (e *Engine) Generate(ctx context.Context, check bool) (generated, diff string, err error) {
	b := collect.NewBuilder(collect.Options{
		RootType:         e.cfg.Collector.RootType,
		ModuleDescriptor: e.cfg.Collector.ModuleDescriptor,
		Logger:           e.logger,
	})
	if err := e.replay(ctx, b); err != nil {
		return "", "", err
	}
	generated, err = e.generate(b)
	if err != nil {
		return "", "", err
	}
	if check {
		diff, err = facade.Check(e.cfg.Facade.Output, generated)
		if err != nil {
			return "", "", fmt.Errorf("apisnap: generate: %w", err)
		}
		return generated, diff, nil
	}
	if err := writeFile(e.cfg.Facade.Output, generated); err != nil {
		return "", "", fmt.Errorf("apisnap: generate: %w", err)
	}
	return generated, "", nil
}

// Comparison is the result of comparing two persisted snapshots.
type Comparison struct {
	Digest   compare.Digest
	Previous Version
	Next     Version
	Report   string
}

// Compare diffs the snapshots persisted at oldPath and newPath. A missing
// old blob is a first publication.
func Compare(oldPath, newPath string) (*Comparison, error) {
	prev, err := snapshot.Load(oldPath)
	if err != nil {
		return nil, fmt.Errorf("apisnap: compare: %w", err)
	}
	cur, err := snapshot.Load(newPath)
	if err != nil {
		return nil, fmt.Errorf("apisnap: compare: %w", err)
	}
	c := &Comparison{Digest: compare.Modules(prev, cur).Digest()}
	if prev != nil {
		c.Previous = prev.Version
	}
	c.Next = nextVersion(c.Digest.Compatibility, c.Previous)
	c.Report = compare.Report(c.Digest, c.Previous, c.Next)
	return c, nil
}

// nextVersion increments prev at level c. A SNAPSHOT baseline restarts from
// 0.0.0.
func nextVersion(c compare.Compatibility, prev model.Version) model.Version {
	if prev.Snapshot {
		prev = model.Version{}
	}
	return c.Increment(prev)
}

func (e *Engine) replay(ctx context.Context, b *collect.Builder) error {
	passes, err := e.store.Passes()
	if err != nil {
		return fmt.Errorf("apisnap: load passes: %w", err)
	}
	for _, pass := range passes {
		if err := ctx.Err(); err != nil {
			return err
		}
		units, err := e.store.LoadPass(pass)
		if err != nil {
			return fmt.Errorf("apisnap: load pass %d: %w", pass, err)
		}
		b.AddPass(units)
	}
	e.logger.Debug("passes replayed", "passes", len(passes))
	return nil
}

func (e *Engine) generate(b *collect.Builder) (string, error) {
	opts := []facade.Option{facade.WithLogger(e.logger)}
	switch {
	case e.templatesFS != nil:
		opts = append(opts, facade.WithTemplatesFS(e.templatesFS))
	case e.cfg.Facade.Templates != "":
		opts = append(opts, facade.WithTemplatesDir(e.cfg.Facade.Templates))
	}
	g, err := facade.New(opts...)
	if err != nil {
		return "", fmt.Errorf("apisnap: facade: %w", err)
	}
	out, err := g.Generate(facade.InputFrom(b.Declarations()))
	if err != nil {
		return "", fmt.Errorf("apisnap: facade: %w", err)
	}
	return out, nil
}

// persist writes the build outputs. The blob goes last so a failure earlier
// leaves the previous baseline in place.
func (e *Engine) persist(res *BuildResult) error {
	out := e.cfg.Output
	if err := os.MkdirAll(out, 0o755); err != nil {
		return fmt.Errorf("apisnap: output dir: %w", err)
	}
	sources := strings.Join(res.CompatSources, "\n")
	if sources != "" {
		sources += "\n"
	}
	for name, content := range map[string]string{
		VersionFile:       res.Version.String() + "\n",
		MessageFile:       res.Report,
		CompatSourcesFile: sources,
	} {
		if err := snapshot.WriteText(filepath.Join(out, name), content); err != nil {
			return fmt.Errorf("apisnap: persist: %w", err)
		}
	}
	if err := snapshot.Save(filepath.Join(out, config.BlobName), res.Module); err != nil {
		return fmt.Errorf("apisnap: persist: %w", err)
	}
	if err := e.store.SetMeta(metaLastVersion, res.Version.String()); err != nil {
		return fmt.Errorf("apisnap: persist: %w", err)
	}
	if err := e.store.SetMeta(metaLastCompatible, res.Compatibility.String()); err != nil {
		return fmt.Errorf("apisnap: persist: %w", err)
	}
	return nil
}

func writeFile(path, content string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return snapshot.WriteText(path, content)
}

// Package facade renders the dispatcher source file from the collected
// declarations and two text templates: a skeleton and a per-service
// accessor.
//
// Skeleton placeholders:
//
//	/*GENERATED_METHODS*/  one accessor per service, blank line between
//	/*KNOWN_EXTENSIONS*/   one map entry per extension group
//	/*KNOWN_PROXIES*/      inline list of backend-implementable types
//	/*KNOWN_SERVICES*/     inline list of service types
//
// Block placeholders take their indentation from the placeholder's column
// and replace the whole placeholder line.
package facade

import (
	"cmp"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/jward/apisnap/internal/collect"
	"github.com/jward/apisnap/internal/decl"
	"github.com/jward/apisnap/internal/model"
)

// ErrTemplate reports a missing template or placeholder.
var ErrTemplate = errors.New("facade template")

const (
	SkeletonFile = "dispatcher.go.tmpl"
	AccessorFile = "accessor.tmpl"
)

const (
	placeholderMethods    = "/*GENERATED_METHODS*/"
	placeholderExtensions = "/*KNOWN_EXTENSIONS*/"
	placeholderProxies    = "/*KNOWN_PROXIES*/"
	placeholderServices   = "/*KNOWN_SERVICES*/"
)

//go:embed templates/*.tmpl
var defaultTemplates embed.FS

// Service is one generated accessor.
type Service struct {
	Name        string
	Doc         string
	Deprecation model.Deprecation
	Fallback    string
}

// Input is everything the generator renders.
type Input struct {
	Services   []Service
	Extensions map[string][]string
	Proxies    []string
	Known      []string
}

// InputFrom selects generator input from collected declarations. Accessors
// are generated for public top-level services only; the registries list
// every matching type.
func InputFrom(decls []collect.Declaration) Input {
	in := Input{Extensions: make(map[string][]string)}
	for _, d := range decls {
		if d.Usage == model.UsageService {
			in.Known = append(in.Known, d.Name)
			if d.TopLevel && d.Public {
				in.Services = append(in.Services, Service{
					Name:        d.Name,
					Doc:         d.Doc,
					Deprecation: d.Deprecation,
					Fallback:    d.Fallback,
				})
			}
		}
		if d.Usage.InheritableByBackend() {
			in.Proxies = append(in.Proxies, d.Name)
		}
		for _, g := range d.Extensions {
			in.Extensions[g] = append(in.Extensions[g], d.Name)
		}
	}
	return in
}

// Option configures a Generator.
type Option func(*Generator)

// WithTemplatesFS loads templates from fsys instead of the built-in set.
func WithTemplatesFS(fsys fs.FS) Option {
	return func(g *Generator) { g.fsys = fsys }
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(dir string) Option {
	return func(g *Generator) {
		if dir != "" {
			g.fsys = os.DirFS(dir)
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// Generator renders dispatcher sources.
type Generator struct {
	fsys     fs.FS
	logger   *slog.Logger
	skeleton string
	accessor string
}

// New loads both templates. A missing template is an ErrTemplate.
func New(opts ...Option) (*Generator, error) {
	sub, err := fs.Sub(defaultTemplates, "templates")
	if err != nil {
		return nil, fmt.Errorf("facade: %w", err)
	}
	g := &Generator{fsys: sub, logger: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(g)
	}
	if g.skeleton, err = readTemplate(g.fsys, SkeletonFile); err != nil {
		return nil, err
	}
	if g.accessor, err = readTemplate(g.fsys, AccessorFile); err != nil {
		return nil, err
	}
	return g, nil
}

func readTemplate(fsys fs.FS, name string) (string, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return "", fmt.Errorf("facade: %w: read %s: %v", ErrTemplate, name, err)
	}
	return string(data), nil
}

// Generate renders the dispatcher source. Output order is canonical: every
// list is sorted by qualified name and extension groups by group name.
func (g *Generator) Generate(in Input) (string, error) {
	services := slices.Clone(in.Services)
	slices.SortFunc(services, func(a, b Service) int { return cmp.Compare(a.Name, b.Name) })
	accessors := make([]string, len(services))
	for i, s := range services {
		accessors[i] = g.renderAccessor(s)
	}

	groups := make([]string, 0, len(in.Extensions))
	for name := range in.Extensions {
		groups = append(groups, name)
	}
	slices.Sort(groups)
	extensions := make([]string, len(groups))
	for i, name := range groups {
		extensions[i] = strconv.Quote(name) + ": {" + quoteList(in.Extensions[name]) + "},"
	}

	out, err := replaceBlock(g.skeleton, placeholderMethods, accessors, true)
	if err != nil {
		return "", err
	}
	if out, err = replaceBlock(out, placeholderExtensions, extensions, false); err != nil {
		return "", err
	}
	if out, err = replaceInline(out, placeholderProxies, quoteList(in.Proxies)); err != nil {
		return "", err
	}
	if out, err = replaceInline(out, placeholderServices, quoteList(in.Known)); err != nil {
		return "", err
	}
	g.logger.Debug("facade generated",
		"services", len(services),
		"extensions", len(groups),
		"proxies", len(in.Proxies))
	return out, nil
}

func (g *Generator) renderAccessor(s Service) string {
	doc := ""
	if s.Doc != "" {
		doc = "\n//" + commentLines(strings.TrimRight(s.Doc, "\n"))
	}
	var deprecated string
	switch s.Deprecation {
	case model.Deprecated:
		deprecated = "\n//\n// Deprecated: " + s.Name + " is deprecated."
	case model.DeprecatedForRemoval:
		deprecated = "\n//\n// Deprecated: " + s.Name + " is scheduled for removal.\n//\n//lint:ignore SA1019 accessor kept until removal"
	}
	fallback := `""`
	if s.Fallback != "" {
		fallback = strconv.Quote(s.Fallback)
	}
	r := strings.NewReplacer(
		"<FALLBACK>", fallback,
		"<NAME>", s.Name,
		"<DOC>", doc,
		"<DEPRECATED>", deprecated,
		"$", decl.SimpleName(s.Name),
	)
	return r.Replace(g.accessor)
}

// replaceBlock substitutes the line holding placeholder with items, each
// indented by the placeholder's leading whitespace.
func replaceBlock(src, placeholder string, items []string, space bool) (string, error) {
	idx := strings.Index(src, placeholder)
	if idx < 0 {
		return "", fmt.Errorf("facade: %w: placeholder %s not found", ErrTemplate, placeholder)
	}
	start := idx
	for start > 0 && (src[start-1] == ' ' || src[start-1] == '\t') {
		start--
	}
	indent := src[start:idx]
	end := idx + len(placeholder)
	if nl := strings.IndexByte(src[end:], '\n'); nl >= 0 {
		end += nl + 1
	}

	var b strings.Builder
	b.WriteString(src[:start])
	for i, item := range items {
		if i > 0 && space {
			b.WriteByte('\n')
		}
		b.WriteString(indentLines(item, indent))
	}
	b.WriteString(src[end:])
	return b.String(), nil
}

func replaceInline(src, placeholder, value string) (string, error) {
	if !strings.Contains(src, placeholder) {
		return "", fmt.Errorf("facade: %w: placeholder %s not found", ErrTemplate, placeholder)
	}
	return strings.ReplaceAll(src, placeholder, value), nil
}

// indentLines prefixes every non-blank line of s and terminates it with a
// newline. CRLF is normalized to LF.
func indentLines(s, indent string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			lines[i] = indent + l
		} else {
			lines[i] = ""
		}
	}
	return strings.Join(lines, "\n") + "\n"
}

func quoteList(names []string) string {
	sorted := model.SortedSet(names)
	quoted := make([]string, len(sorted))
	for i, n := range sorted {
		quoted[i] = strconv.Quote(n)
	}
	return strings.Join(quoted, ", ")
}

// commentLines renders text as line comments, each preceded by a newline.
// Blank lines become a bare "//".
func commentLines(text string) string {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		b.WriteString("\n//")
		if line = strings.TrimRight(line, " \t"); line != "" {
			b.WriteByte(' ')
			b.WriteString(line)
		}
	}
	return b.String()
}

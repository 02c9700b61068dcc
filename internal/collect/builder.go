// Package collect accumulates declaration records across extraction passes
// and finalizes them into an immutable model.Module.
//
// A Builder may receive any number of passes. Finalize is the "no more
// passes" transition: it resolves supertype closures over everything seen,
// runs the checks that need the whole surface, and computes the content hash.
// It can be called exactly once.
package collect

import (
	"cmp"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jward/apisnap/internal/decl"
	"github.com/jward/apisnap/internal/model"
	"github.com/jward/apisnap/internal/snapshot"
)

const (
	DefaultRootType         = "java.lang.Object"
	DefaultModuleDescriptor = "module-info.java"
)

// Options configures a Builder.
type Options struct {
	// RootType is the universal supertype excluded from supertype closures.
	RootType string
	// ModuleDescriptor is the file name left out of CompatSources.
	ModuleDescriptor string
	Logger           *slog.Logger
}

// Declaration is the facade-relevant view of one accumulated type.
type Declaration struct {
	Name        string
	Unit        string
	TopLevel    bool
	Public      bool
	Usage       model.Usage
	Deprecation model.Deprecation
	Doc         string
	// Fallback is the value of the Fallback annotation, if any.
	Fallback string
	// Extensions lists the extension groups its methods are tagged with.
	Extensions []string
}

// Result is the outcome of Finalize.
type Result struct {
	Module        *model.Module
	Violations    []Violation
	CompatSources []string
}

type unitState struct {
	content     string
	nameHash    int32
	newestLevel bool
}

type pendingType struct {
	unit string
	typ  *model.Type
	kind string
}

// Builder is the mutable accumulator. It is not safe for concurrent use.
type Builder struct {
	opts   Options
	logger *slog.Logger

	units     map[string]*unitState
	unitOrder []string
	types     map[string]*model.Type
	decls     []Declaration
	direct    map[string][]string
	apiTypes  []*model.Type
	unused    []pendingType
	encounter map[string]struct{}

	violations []Violation
	finalized  bool
}

// NewBuilder returns an empty Builder.
func NewBuilder(opts Options) *Builder {
	if opts.RootType == "" {
		opts.RootType = DefaultRootType
	}
	if opts.ModuleDescriptor == "" {
		opts.ModuleDescriptor = DefaultModuleDescriptor
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{
		opts:      opts,
		logger:    logger,
		units:     make(map[string]*unitState),
		types:     make(map[string]*model.Type),
		direct:    make(map[string][]string),
		encounter: make(map[string]struct{}),
	}
}

// AddPass accumulates one extraction pass. It panics after Finalize.
func (b *Builder) AddPass(units []decl.Unit) {
	if b.finalized {
		panic("collect: AddPass after Finalize")
	}
	for i := range units {
		b.addUnit(&units[i])
	}
	b.logger.Debug("pass added", "units", len(units), "total_units", len(b.units))
}

// addUnit records u. A path seen in any earlier pass is a violation and its
// declarations are dropped.
func (b *Builder) addUnit(u *decl.Unit) {
	if _, ok := b.units[u.Path]; ok {
		b.logger.Warn("unit already recorded, skipping", "unit", u.Path)
		b.violate(u.Path, u.Path, RuleDuplicateUnit)
		return
	}
	st := &unitState{content: u.Content, newestLevel: u.NewestLevel}
	b.units[u.Path] = st
	b.unitOrder = append(b.unitOrder, u.Path)

	for i := range u.Types {
		t := &u.Types[i]
		st.nameHash ^= snapshot.NameHash(canonicalName(t.Name))
		b.visitType(u.Path, t, b.types, true)
	}
}

// visitType records t under parent. A nil parent means t sits inside a
// non-API declaration: only its supertypes are recorded.
func (b *Builder) visitType(unit string, t *decl.Type, parent map[string]*model.Type, topLevel bool) {
	b.validateAnnotations(unit, t)
	b.recordSupertypes(t)
	b.decls = append(b.decls, declarationOf(unit, t, topLevel))

	if parent == nil || !isAPI(t.Modifiers) {
		for i := range t.Types {
			b.visitType(unit, &t.Types[i], nil, false)
		}
		return
	}

	kind, ok := model.ParseKind(t.Kind)
	if !ok {
		kind = model.KindClass
		b.logger.Warn("unknown declaration kind, treating as class", "type", t.Name, "kind", t.Kind)
	}
	typ := model.NewType(t.Name, kind)
	typ.Modifiers = b.modifiers(unit, t.Name, t.Modifiers)
	typ.Supertypes = slices.Clone(t.Supertypes)
	typ.TypeParameters = typeParameters(t.TypeParams)
	typ.Deprecation = deprecation(t.Annotations)
	typ.Usage = usageOf(t)
	if typ.Usage == model.UsageNone && !typ.Modifiers.Has(model.Final) &&
		(kind == model.KindClass || kind == model.KindInterface) {
		b.unused = append(b.unused, pendingType{unit: unit, typ: typ})
	}
	b.apiTypes = append(b.apiTypes, typ)

	for i := range t.Types {
		b.visitType(unit, &t.Types[i], typ.Types, false)
	}
	for i := range t.Fields {
		b.visitField(unit, typ, &t.Fields[i])
	}
	for i := range t.Methods {
		b.visitMethod(unit, typ, &t.Methods[i])
	}
	parent[typ.QualifiedName] = typ
}

func (b *Builder) visitField(unit string, parent *model.Type, f *decl.Field) {
	if !isAPI(f.Modifiers) {
		return
	}
	name := parent.QualifiedName + "#" + f.Name
	field := &model.Field{
		Name:          f.Name,
		Modifiers:     b.modifiers(unit, name, f.Modifiers),
		Type:          f.Type,
		ConstantValue: f.Constant,
		Deprecation:   deprecation(f.Annotations),
	}
	if field.Modifiers.Has(model.Static) && !field.Modifiers.Has(model.Final) {
		b.violate(unit, name, RuleStaticField)
	}
	parent.Fields[field.Name] = field
}

func (b *Builder) visitMethod(unit string, parent *model.Type, m *decl.Method) {
	if !isAPI(m.Modifiers) {
		return
	}
	method := &model.Method{
		Name:           m.Name,
		ParameterTypes: slices.Clone(m.Params),
		ReturnType:     m.Returns,
		ThrownTypes:    model.SortedSet(m.Throws),
		TypeParameters: typeParameters(m.TypeParams),
		Deprecation:    deprecation(m.Annotations),
	}
	name := parent.QualifiedName + "#" + method.Key()
	method.Modifiers = b.modifiers(unit, name, m.Modifiers)
	if ext, ok := m.Annotation(decl.AnnotationExtension); ok {
		method.Extension = ext.Value
		if !parent.Usage.InheritableByBackend() ||
			method.Modifiers.Has(model.Static) || method.Modifiers.Has(model.Final) {
			b.violate(unit, name, RuleExtension)
		}
	}
	parent.Methods[method.Key()] = method
}

func (b *Builder) validateAnnotations(unit string, t *decl.Type) {
	service := t.HasAnnotation(decl.AnnotationService)
	provided := t.HasAnnotation(decl.AnnotationProvided)
	provides := t.HasAnnotation(decl.AnnotationProvides)
	if service && !provided {
		b.violate(unit, t.Name, RuleServiceRequiresProvided)
	}
	if service && provides {
		b.violate(unit, t.Name, RuleServiceWithProvides)
	}
	if provided && (t.HasModifier("final") || t.HasModifier("sealed")) {
		b.violate(unit, t.Name, RuleProvidedFinal)
	}
	if (provided || provides) && t.Kind != string(model.KindClass) && t.Kind != string(model.KindInterface) {
		b.violate(unit, t.Name, RuleProvidedKind)
	}
}

func (b *Builder) modifiers(unit, name string, mods []string) model.Modifiers {
	var set model.Modifiers
	bad := false
	for _, s := range mods {
		m, ok := model.ParseModifier(s)
		if !ok {
			bad = true
			continue
		}
		set = set.With(m)
	}
	if bad {
		b.violate(unit, name, RuleModifier)
	}
	return set
}

func (b *Builder) recordSupertypes(t *decl.Type) {
	for _, s := range t.Supertypes {
		base := erasure(s)
		b.encounter[base] = struct{}{}
		b.encounter[canonicalName(base)] = struct{}{}
	}
	b.direct[t.Name] = t.Supertypes
	if c := canonicalName(t.Name); c != t.Name {
		b.direct[c] = t.Supertypes
	}
}

func (b *Builder) violate(unit, name string, rule Rule) {
	b.violations = append(b.violations, newViolation(unit, name, rule))
}

// Declarations returns every type seen so far, sorted by name.
func (b *Builder) Declarations() []Declaration {
	out := slices.Clone(b.decls)
	slices.SortStableFunc(out, func(x, y Declaration) int { return cmp.Compare(x.Name, y.Name) })
	return out
}

// Finalize completes accumulation. Calling it twice panics.
func (b *Builder) Finalize() *Result {
	if b.finalized {
		panic("collect: Finalize called twice")
	}
	b.finalized = true

	for _, t := range b.apiTypes {
		t.Supertypes = b.closure(t.Supertypes)
	}
	for _, p := range b.unused {
		if _, ok := b.encounter[p.typ.QualifiedName]; ok {
			continue
		}
		if _, ok := b.encounter[canonicalName(p.typ.QualifiedName)]; ok {
			continue
		}
		b.violate(p.unit, p.typ.QualifiedName, RuleUnusedType)
	}

	var acc snapshot.Accumulator
	var sources []string
	for _, path := range b.unitOrder {
		st := b.units[path]
		acc.Add(snapshot.UnitHash(st.content, st.nameHash))
		if filepath.Base(path) == b.opts.ModuleDescriptor || st.newestLevel {
			continue
		}
		sources = append(sources, path)
	}
	slices.Sort(sources)

	mod := &model.Module{Types: b.types, Hash: acc.Sum()}
	b.logger.Info("snapshot finalized",
		"units", len(b.units),
		"types", len(b.apiTypes),
		"violations", len(b.violations),
		"hash", mod.Hash)
	return &Result{
		Module:        mod,
		Violations:    slices.Clone(b.violations),
		CompatSources: sources,
	}
}

// closure expands direct supertypes transitively through every declaration
// seen, excluding the root type.
func (b *Builder) closure(direct []string) []string {
	seen := make(map[string]struct{})
	var walk func([]string)
	walk = func(names []string) {
		for _, s := range names {
			if s == b.opts.RootType {
				continue
			}
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			walk(b.direct[erasure(s)])
		}
	}
	walk(direct)
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	return model.SortedSet(out)
}

func isAPI(mods []string) bool {
	return slices.Contains(mods, "public") || slices.Contains(mods, "protected")
}

func usageOf(t *decl.Type) model.Usage {
	switch {
	case t.HasAnnotation(decl.AnnotationService):
		return model.UsageService
	case t.HasAnnotation(decl.AnnotationProvided):
		if t.HasAnnotation(decl.AnnotationProvides) {
			return model.UsageTwoWay
		}
		return model.UsageProvided
	case t.HasAnnotation(decl.AnnotationProvides):
		return model.UsageProvides
	default:
		return model.UsageNone
	}
}

func deprecation(anns []decl.Annotation) model.Deprecation {
	for _, a := range anns {
		if a.Name != decl.AnnotationDeprecated {
			continue
		}
		if a.ForRemoval {
			return model.DeprecatedForRemoval
		}
		return model.Deprecated
	}
	return model.NotDeprecated
}

func typeParameters(params []decl.TypeParam) []model.TypeParameter {
	if len(params) == 0 {
		return nil
	}
	out := make([]model.TypeParameter, len(params))
	for i, p := range params {
		out[i] = model.TypeParameter{Name: p.Name, Bounds: model.SortedSet(p.Bounds)}
	}
	return out
}

func declarationOf(unit string, t *decl.Type, topLevel bool) Declaration {
	d := Declaration{
		Name:        t.Name,
		Unit:        unit,
		TopLevel:    topLevel,
		Public:      t.HasModifier("public"),
		Usage:       usageOf(t),
		Deprecation: deprecation(t.Annotations),
		Doc:         t.Doc,
	}
	if fb, ok := t.Annotation(decl.AnnotationFallback); ok {
		d.Fallback = fb.Value
	}
	var groups []string
	for i := range t.Methods {
		if ext, ok := t.Methods[i].Annotation(decl.AnnotationExtension); ok && ext.Value != "" {
			groups = append(groups, ext.Value)
		}
	}
	d.Extensions = model.SortedSet(groups)
	return d
}

// erasure drops type arguments: "a.List<T>" becomes "a.List".
func erasure(name string) string {
	if i := strings.IndexByte(name, '<'); i >= 0 {
		return name[:i]
	}
	return name
}

// canonicalName converts a binary name to its dotted source form.
func canonicalName(name string) string {
	return strings.ReplaceAll(name, "$", ".")
}

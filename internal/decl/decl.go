// Package decl defines the declaration records delivered by an external
// extraction pass. A Unit is one source file; Types are the top-level
// declarations the file produced, with nested types, fields and methods
// carried inline.
package decl

import "strings"

// Well-known annotation names recognized by the collector and the facade
// generator.
const (
	AnnotationService    = "Service"
	AnnotationProvided   = "Provided"
	AnnotationProvides   = "Provides"
	AnnotationExtension  = "Extension"
	AnnotationFallback   = "Fallback"
	AnnotationDeprecated = "Deprecated"
)

// Unit is a single source file and the declarations extracted from it.
type Unit struct {
	Path        string `yaml:"path"`
	Content     string `yaml:"content,omitempty"`
	ContentFile string `yaml:"content_file,omitempty"`
	// NewestLevel marks units that use features of the newest source level.
	NewestLevel bool   `yaml:"newest_level,omitempty"`
	Types       []Type `yaml:"types,omitempty"`
}

type Annotation struct {
	Name       string `yaml:"name" json:"name"`
	Value      string `yaml:"value,omitempty" json:"value,omitempty"`
	ForRemoval bool   `yaml:"for_removal,omitempty" json:"for_removal,omitempty"`
}

type TypeParam struct {
	Name   string   `yaml:"name" json:"name"`
	Bounds []string `yaml:"bounds,omitempty" json:"bounds,omitempty"`
}

// Type is a class, interface, enum, record or annotation declaration.
// Name is the binary name (nested types use '$').
type Type struct {
	Name        string       `yaml:"name"`
	Kind        string       `yaml:"kind"`
	Modifiers   []string     `yaml:"modifiers,omitempty"`
	Supertypes  []string     `yaml:"supertypes,omitempty"`
	TypeParams  []TypeParam  `yaml:"type_params,omitempty"`
	Annotations []Annotation `yaml:"annotations,omitempty"`
	Doc         string       `yaml:"doc,omitempty"`
	Fields      []Field      `yaml:"fields,omitempty"`
	Methods     []Method     `yaml:"methods,omitempty"`
	Types       []Type       `yaml:"types,omitempty"`
}

type Field struct {
	Name        string       `yaml:"name"`
	Modifiers   []string     `yaml:"modifiers,omitempty"`
	Type        string       `yaml:"type"`
	Constant    *string      `yaml:"constant,omitempty"`
	Annotations []Annotation `yaml:"annotations,omitempty"`
}

type Method struct {
	Name        string       `yaml:"name"`
	Params      []string     `yaml:"params,omitempty"`
	Modifiers   []string     `yaml:"modifiers,omitempty"`
	Returns     string       `yaml:"returns"`
	Throws      []string     `yaml:"throws,omitempty"`
	TypeParams  []TypeParam  `yaml:"type_params,omitempty"`
	Annotations []Annotation `yaml:"annotations,omitempty"`
}

// Annotation returns the annotation with the given name, if present.
func (t *Type) Annotation(name string) (Annotation, bool) {
	return findAnnotation(t.Annotations, name)
}

// HasAnnotation reports whether the type carries the named annotation.
func (t *Type) HasAnnotation(name string) bool {
	_, ok := t.Annotation(name)
	return ok
}

// HasModifier reports whether the type declares modifier m.
func (t *Type) HasModifier(m string) bool {
	return containsString(t.Modifiers, m)
}

// SimpleName returns the last segment of the binary name.
func (t *Type) SimpleName() string {
	return SimpleName(t.Name)
}

func (f *Field) Annotation(name string) (Annotation, bool) {
	return findAnnotation(f.Annotations, name)
}

func (f *Field) HasModifier(m string) bool {
	return containsString(f.Modifiers, m)
}

func (m *Method) Annotation(name string) (Annotation, bool) {
	return findAnnotation(m.Annotations, name)
}

func (m *Method) HasModifier(mod string) bool {
	return containsString(m.Modifiers, mod)
}

// SimpleName returns the segment of a binary name after the last '.' or '$'.
func SimpleName(binaryName string) string {
	if i := strings.LastIndexAny(binaryName, ".$"); i >= 0 {
		return binaryName[i+1:]
	}
	return binaryName
}

func findAnnotation(anns []Annotation, name string) (Annotation, bool) {
	for _, a := range anns {
		if a.Name == name {
			return a, true
		}
	}
	return Annotation{}, false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

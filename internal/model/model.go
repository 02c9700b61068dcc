// Package model is the in-memory representation of a published API surface.
// Values are built by the collector or decoded from a persisted snapshot and
// are treated as read-only afterwards.
package model

import (
	"slices"
	"strings"
)

// Kind is the declaration kind of a Type.
type Kind string

const (
	KindClass      Kind = "class"
	KindInterface  Kind = "interface"
	KindEnum       Kind = "enum"
	KindRecord     Kind = "record"
	KindAnnotation Kind = "annotation"
)

// ParseKind maps a record kind to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindClass, KindInterface, KindEnum, KindRecord, KindAnnotation:
		return k, true
	}
	return "", false
}

// Deprecation is the deprecation state of a declaration.
type Deprecation int

const (
	NotDeprecated Deprecation = iota
	Deprecated
	DeprecatedForRemoval
)

func (d Deprecation) String() string {
	switch d {
	case NotDeprecated:
		return "none"
	case Deprecated:
		return "deprecated"
	case DeprecatedForRemoval:
		return "for-removal"
	default:
		return "unknown"
	}
}

// TypeParameter is a named type variable and its bounds (sorted).
type TypeParameter struct {
	Name   string
	Bounds []string
}

// EqualTypeParameters compares two ordered type parameter lists.
func EqualTypeParameters(a, b []TypeParameter) bool {
	return slices.EqualFunc(a, b, func(x, y TypeParameter) bool {
		return x.Name == y.Name && slices.Equal(x.Bounds, y.Bounds)
	})
}

// Module is the root snapshot of an API surface.
type Module struct {
	Types   map[string]*Type
	Version Version
	Hash    int32
}

// Type is one declared class, interface, enum, record or annotation.
type Type struct {
	QualifiedName  string
	Kind           Kind
	Modifiers      Modifiers
	Supertypes     []string
	TypeParameters []TypeParameter
	Deprecation    Deprecation
	Usage          Usage
	Types          map[string]*Type
	Fields         map[string]*Field
	Methods        map[string]*Method
}

// NewType returns a Type with empty member maps.
func NewType(qualifiedName string, kind Kind) *Type {
	return &Type{
		QualifiedName: qualifiedName,
		Kind:          kind,
		Types:         make(map[string]*Type),
		Fields:        make(map[string]*Field),
		Methods:       make(map[string]*Method),
	}
}

func (t *Type) String() string { return t.QualifiedName }

// Field is a member variable. ConstantValue is nil unless the field is a
// compile-time constant.
type Field struct {
	Name          string
	Modifiers     Modifiers
	Type          string
	ConstantValue *string
	Deprecation   Deprecation
}

func (f *Field) String() string { return f.Type + " " + f.Name }

// Method is identified by its name and erased parameter types.
type Method struct {
	Name           string
	ParameterTypes []string
	Modifiers      Modifiers
	ReturnType     string
	ThrownTypes    []string
	TypeParameters []TypeParameter
	Deprecation    Deprecation
	Extension      string
}

// Key returns the method signature used as its map key.
func (m *Method) Key() string {
	return MethodKey(m.Name, m.ParameterTypes)
}

func (m *Method) String() string { return m.Key() }

// MethodKey renders "name(p1, p2)".
func MethodKey(name string, params []string) string {
	return name + "(" + strings.Join(params, ", ") + ")"
}

// SortedSet returns a sorted copy of values with duplicates removed.
func SortedSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := slices.Clone(values)
	slices.Sort(out)
	return slices.Compact(out)
}

// ContainsAll reports whether every element of sub is in the sorted set.
func ContainsAll(set, sub []string) bool {
	for _, s := range sub {
		if _, ok := slices.BinarySearch(set, s); !ok {
			return false
		}
	}
	return true
}

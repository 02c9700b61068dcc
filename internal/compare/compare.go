// Package compare diffs two API snapshots and classifies the result by its
// semantic-versioning impact.
//
// Entries are reconciled by key (qualified name, field name, method
// signature). Removals are always MAJOR. Additions are MINOR, except an
// abstract method added to a client-implementable type. Matched entries run
// an ordered list of breaking checks; the first group that fires fixes the
// node at MAJOR and later checks are skipped. Otherwise compatible checks may
// raise it to MINOR.
package compare

import (
	"maps"
	"slices"

	"github.com/jward/apisnap/internal/model"
)

// Root notes for an absent snapshot.
const (
	NoteFirstPublication = "first publication"
	NoteSnapshotMissing  = "no current snapshot"
)

// Modules compares the previous and current module snapshots. A nil prev
// is the first publication.
func Modules(prev, cur *model.Module) *Node {
	if prev == nil || cur == nil {
		root := newNode("", DiffModified)
		root.breaking()
		if prev == nil {
			root.Note = NoteFirstPublication
		} else {
			root.Note = NoteSnapshotMissing
		}
		return root
	}
	root := newNode("", DiffNone)
	root.Children = reconcile(prev.Types, cur.Types, Types)
	if prev.Hash != cur.Hash {
		root.Level = Patch
	}
	return root
}

// Types compares two versions of a type. Either side may be nil.
func Types(a, b *model.Type) *Node {
	n := entryNode(a, b)
	switch n.Diff {
	case DiffAdded:
		n.Level = Minor
		return n
	case DiffRemoved:
		n.breaking()
		return n
	}

	n.Children = slices.Concat(
		reconcile(a.Fields, b.Fields, Fields),
		reconcile(a.Methods, b.Methods, func(x, y *model.Method) *Node { return Methods(b, x, y) }),
		reconcile(a.Types, b.Types, Types),
	)

	n.check(a.Kind != b.Kind, "changed kind")
	n.check(!model.ContainsAll(b.Supertypes, a.Supertypes), "contracted supertype set")
	n.check(!model.EqualTypeParameters(a.TypeParameters, b.TypeParameters), "changed type parameters")
	n.check(a.Usage.InheritableByBackend() && !b.Usage.InheritableByBackend(), "prohibited inheritance by backend")
	n.check(a.Usage.InheritableByClient() && !b.Usage.InheritableByClient(), "prohibited inheritance by client")
	if n.changed() {
		n.breaking()
		return n
	}
	if compareModifiers(n, a.Modifiers, b.Modifiers) {
		return n
	}

	n.check(len(a.Supertypes) != len(b.Supertypes), "expanded supertype set")
	n.check(a.Deprecation != b.Deprecation, "changed deprecation state")
	n.check(!a.Usage.InheritableByBackend() && b.Usage.InheritableByBackend(), "allowed inheritance by backend")
	n.check(!a.Usage.InheritableByClient() && b.Usage.InheritableByClient(), "allowed inheritance by client")
	if n.changed() {
		n.Level = Minor
	}
	return n
}

// Fields compares two versions of a field. Either side may be nil.
func Fields(a, b *model.Field) *Node {
	n := entryNode(a, b)
	switch n.Diff {
	case DiffAdded:
		n.Level = Minor
		return n
	case DiffRemoved:
		n.breaking()
		return n
	}

	n.check(a.Type != b.Type, "changed type")
	n.check(!equalConstant(a.ConstantValue, b.ConstantValue), "changed value")
	if n.changed() {
		n.breaking()
		return n
	}
	if compareModifiers(n, a.Modifiers, b.Modifiers) {
		return n
	}

	n.check(a.Deprecation != b.Deprecation, "changed deprecation state")
	if n.changed() {
		n.Level = Minor
	}
	return n
}

// Methods compares two versions of a method declared by parent, the new
// version of the enclosing type. Either side may be nil.
func Methods(parent *model.Type, a, b *model.Method) *Node {
	n := entryNode(a, b)
	switch n.Diff {
	case DiffAdded:
		abstract := b.Modifiers.Has(model.Abstract)
		if parent.Usage.InheritableByClient() && abstract {
			n.breaking()
			return n
		}
		// A concrete method added to a client-implementable type can still
		// clash with client code; that risk is accepted.
		n.Level = Minor
		if b.Extension == "" && parent.Usage.InheritableByBackend() && abstract &&
			!b.Modifiers.Has(model.Static) && !b.Modifiers.Has(model.Final) {
			n.Messages.Add(NonExtensionMethodAdded)
		}
		return n
	case DiffRemoved:
		n.breaking()
		return n
	}

	n.check(a.ReturnType != b.ReturnType, "changed return type")
	n.check(!slices.Equal(a.ThrownTypes, b.ThrownTypes), "changed thrown types")
	n.check(!model.EqualTypeParameters(a.TypeParameters, b.TypeParameters), "changed type parameters")
	if n.changed() {
		n.breaking()
		return n
	}
	if compareModifiers(n, a.Modifiers, b.Modifiers) {
		return n
	}

	n.check(a.Deprecation != b.Deprecation, "changed deprecation state")
	n.check(a.Extension != b.Extension, "changed extension")
	if n.changed() {
		n.Level = Minor
	}
	return n
}

// compareModifiers applies the modifier rules shared by every entry kind and
// reports whether it fixed the node's level.
func compareModifiers(n *Node, a, b model.Modifiers) bool {
	has := func(s model.Modifiers, m model.Modifier) bool { return s.Has(m) }

	n.check(has(a, model.Public) && !has(b, model.Public), "decreased visibility")
	n.check((!has(a, model.Abstract) && has(b, model.Abstract)) ||
		(has(a, model.Default) && !has(b, model.Default)), "made abstract")
	n.check(!has(a, model.Final) && has(b, model.Final), "made final")
	n.check(has(a, model.Static) != has(b, model.Static), "changed static")
	if n.changed() {
		n.breaking()
		return true
	}

	n.check(!has(a, model.Public) && has(b, model.Public), "increased visibility")
	n.check((has(a, model.Abstract) && !has(b, model.Abstract)) ||
		(!has(a, model.Default) && has(b, model.Default)), "made non-abstract")
	n.check(has(a, model.Final) && !has(b, model.Final), "made non-final")
	if n.changed() {
		n.Level = Minor
		return true
	}
	return false
}

type entry interface {
	*model.Type | *model.Field | *model.Method
	String() string
}

func entryNode[E entry](a, b E) *Node {
	switch {
	case b == nil:
		return newNode(a.String(), DiffRemoved)
	case a == nil:
		return newNode(b.String(), DiffAdded)
	default:
		return newNode(b.String(), DiffNone)
	}
}

// reconcile matches entries by key and compares each pair, in key order.
func reconcile[E entry](a, b map[string]E, compare func(x, y E) *Node) []*Node {
	keys := slices.Collect(maps.Keys(a))
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	nodes := make([]*Node, 0, len(keys))
	for _, k := range keys {
		nodes = append(nodes, compare(a[k], b[k]))
	}
	return nodes
}

func equalConstant(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

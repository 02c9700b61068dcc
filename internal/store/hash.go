package store

import (
	"crypto/sha256"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/jward/apisnap/internal/decl"
)

// ComputeSignatureHash computes a deterministic hash from a type record's
// API-relevant shape: kind, modifiers, supertypes, type parameters,
// annotations and direct members. Doc comments and member order do NOT
// affect the hash.
func ComputeSignatureHash(t *decl.Type) string {
	h := sha256.New()

	fmt.Fprintf(h, "name:%s\n", t.Name)
	fmt.Fprintf(h, "kind:%s\n", t.Kind)
	fmt.Fprintf(h, "modifiers:%s\n", sortedJoin(t.Modifiers))
	fmt.Fprintf(h, "supertypes:%s\n", sortedJoin(t.Supertypes))
	for _, tp := range t.TypeParams {
		fmt.Fprintf(h, "typeparam:%s:%s\n", tp.Name, sortedJoin(tp.Bounds))
	}
	writeAnnotations(h, "type", t.Annotations)

	fields := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		c := "-"
		if f.Constant != nil {
			c = "=" + *f.Constant
		}
		fields[i] = fmt.Sprintf("field:%s:%s:%s:%s", f.Name, f.Type, sortedJoin(f.Modifiers), c)
	}
	slices.Sort(fields)
	for _, f := range fields {
		fmt.Fprintln(h, f)
	}

	methods := make([]string, len(t.Methods))
	for i, m := range t.Methods {
		var anns []string
		for _, a := range m.Annotations {
			anns = append(anns, a.Name+"="+a.Value)
		}
		methods[i] = fmt.Sprintf("method:%s(%s):%s:%s:%s:%s",
			m.Name, strings.Join(m.Params, ","), m.Returns,
			sortedJoin(m.Modifiers), sortedJoin(m.Throws), sortedJoin(anns))
	}
	slices.Sort(methods)
	for _, m := range methods {
		fmt.Fprintln(h, m)
	}

	return fmt.Sprintf("%x", h.Sum(nil))
}

// ContentHash is the sha256 of a unit's source text.
func ContentHash(content string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(content)))
}

func writeAnnotations(h io.Writer, prefix string, anns []decl.Annotation) {
	keys := make([]string, len(anns))
	for i, a := range anns {
		keys[i] = fmt.Sprintf("%s:%s:%v", a.Name, a.Value, a.ForRemoval)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "%s-annotation:%s\n", prefix, k)
	}
}

func sortedJoin(list []string) string {
	sorted := slices.Clone(list)
	slices.Sort(sorted)
	return strings.Join(sorted, ",")
}

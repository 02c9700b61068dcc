package apisnap

import (
	"fmt"
	"io"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/jward/apisnap/internal/model"
	"github.com/jward/apisnap/internal/snapshot"
)

// ModuleView is a readable rendering of a persisted snapshot.
type ModuleView struct {
	Version string     `yaml:"version"`
	Hash    int32      `yaml:"hash"`
	Types   []TypeView `yaml:"types,omitempty"`
}

type TypeView struct {
	Name        string     `yaml:"name"`
	Kind        string     `yaml:"kind"`
	Modifiers   []string   `yaml:"modifiers,omitempty"`
	Usage       string     `yaml:"usage,omitempty"`
	Deprecation string     `yaml:"deprecation,omitempty"`
	Supertypes  []string   `yaml:"supertypes,omitempty"`
	Fields      []string   `yaml:"fields,omitempty"`
	Methods     []string   `yaml:"methods,omitempty"`
	Types       []TypeView `yaml:"types,omitempty"`
}

// ViewModule converts m into its readable form with every list sorted.
func ViewModule(m *Module) ModuleView {
	return ModuleView{
		Version: m.Version.String(),
		Hash:    m.Hash,
		Types:   viewTypes(m.Types),
	}
}

func viewTypes(types map[string]*model.Type) []TypeView {
	var out []TypeView
	for _, name := range sortedKeys(types) {
		t := types[name]
		v := TypeView{
			Name:       t.QualifiedName,
			Kind:       string(t.Kind),
			Modifiers:  t.Modifiers.Names(),
			Supertypes: t.Supertypes,
			Types:      viewTypes(t.Types),
		}
		if t.Usage != model.UsageNone {
			v.Usage = t.Usage.String()
		}
		if t.Deprecation != model.NotDeprecated {
			v.Deprecation = t.Deprecation.String()
		}
		for _, k := range sortedKeys(t.Fields) {
			v.Fields = append(v.Fields, t.Fields[k].String())
		}
		for _, k := range sortedKeys(t.Methods) {
			v.Methods = append(v.Methods, t.Methods[k].String())
		}
		out = append(out, v)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// ShowBlob writes the snapshot persisted at path to w as YAML.
func ShowBlob(w io.Writer, path string) error {
	m, err := snapshot.Load(path)
	if err != nil {
		return fmt.Errorf("apisnap: show: %w", err)
	}
	if m == nil {
		return fmt.Errorf("apisnap: show: %s does not exist", path)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(ViewModule(m)); err != nil {
		return fmt.Errorf("apisnap: show: %w", err)
	}
	return enc.Close()
}

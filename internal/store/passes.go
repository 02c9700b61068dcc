package store

import (
	"fmt"

	"github.com/jward/apisnap/internal/decl"
)

// WriteUnits inserts declaration records for one pass into ds. A type is
// always inserted before its nested types.
func WriteUnits(ds DataStore, pass int, units []decl.Unit) error {
	for i := range units {
		u := &units[i]
		row := &Unit{
			Pass:        pass,
			Path:        u.Path,
			Content:     u.Content,
			ContentHash: ContentHash(u.Content),
			NewestLevel: u.NewestLevel,
		}
		unitID, err := ds.InsertUnit(row)
		if err != nil {
			return fmt.Errorf("unit %s: %w", u.Path, err)
		}
		for j := range u.Types {
			if err := writeType(ds, unitID, nil, j, &u.Types[j]); err != nil {
				return fmt.Errorf("unit %s: %w", u.Path, err)
			}
		}
	}
	return nil
}

func writeType(ds DataStore, unitID int64, parent *int64, ordinal int, t *decl.Type) error {
	row := &Type{
		UnitID:        unitID,
		ParentTypeID:  parent,
		Ordinal:       ordinal,
		Name:          t.Name,
		Kind:          t.Kind,
		Modifiers:     t.Modifiers,
		Supertypes:    t.Supertypes,
		TypeParams:    t.TypeParams,
		Annotations:   t.Annotations,
		Doc:           t.Doc,
		SignatureHash: ComputeSignatureHash(t),
	}
	typeID, err := ds.InsertType(row)
	if err != nil {
		return fmt.Errorf("type %s: %w", t.Name, err)
	}
	for i, f := range t.Fields {
		_, err := ds.InsertField(&Field{
			TypeID:      typeID,
			Ordinal:     i,
			Name:        f.Name,
			TypeExpr:    f.Type,
			Modifiers:   f.Modifiers,
			Constant:    f.Constant,
			Annotations: f.Annotations,
		})
		if err != nil {
			return fmt.Errorf("field %s.%s: %w", t.Name, f.Name, err)
		}
	}
	for i, m := range t.Methods {
		_, err := ds.InsertMethod(&Method{
			TypeID:      typeID,
			Ordinal:     i,
			Name:        m.Name,
			Params:      m.Params,
			Returns:     m.Returns,
			Modifiers:   m.Modifiers,
			Throws:      m.Throws,
			TypeParams:  m.TypeParams,
			Annotations: m.Annotations,
		})
		if err != nil {
			return fmt.Errorf("method %s.%s: %w", t.Name, m.Name, err)
		}
	}
	for i := range t.Types {
		if err := writeType(ds, unitID, &typeID, i, &t.Types[i]); err != nil {
			return err
		}
	}
	return nil
}

// LoadPass reassembles the declaration records of one pass.
func (s *Store) LoadPass(pass int) ([]decl.Unit, error) {
	units, err := s.UnitsByPass(pass)
	if err != nil {
		return nil, err
	}
	types, err := s.TypesByPass(pass)
	if err != nil {
		return nil, err
	}
	fields, err := s.FieldsByPass(pass)
	if err != nil {
		return nil, err
	}
	methods, err := s.MethodsByPass(pass)
	if err != nil {
		return nil, err
	}

	fieldsByType := make(map[int64][]decl.Field)
	for _, f := range fields {
		fieldsByType[f.TypeID] = append(fieldsByType[f.TypeID], decl.Field{
			Name:        f.Name,
			Type:        f.TypeExpr,
			Modifiers:   f.Modifiers,
			Constant:    f.Constant,
			Annotations: f.Annotations,
		})
	}
	methodsByType := make(map[int64][]decl.Method)
	for _, m := range methods {
		methodsByType[m.TypeID] = append(methodsByType[m.TypeID], decl.Method{
			Name:        m.Name,
			Params:      m.Params,
			Returns:     m.Returns,
			Modifiers:   m.Modifiers,
			Throws:      m.Throws,
			TypeParams:  m.TypeParams,
			Annotations: m.Annotations,
		})
	}

	// Rows arrive parents first; children are attached bottom-up once
	// every row is known.
	children := make(map[int64][]*Type)
	roots := make(map[int64][]*Type)
	for _, t := range types {
		if t.ParentTypeID != nil {
			children[*t.ParentTypeID] = append(children[*t.ParentTypeID], t)
		} else {
			roots[t.UnitID] = append(roots[t.UnitID], t)
		}
	}
	var build func(t *Type) decl.Type
	build = func(t *Type) decl.Type {
		d := decl.Type{
			Name:        t.Name,
			Kind:        t.Kind,
			Modifiers:   t.Modifiers,
			Supertypes:  t.Supertypes,
			TypeParams:  t.TypeParams,
			Annotations: t.Annotations,
			Doc:         t.Doc,
			Fields:      fieldsByType[t.ID],
			Methods:     methodsByType[t.ID],
		}
		for _, c := range children[t.ID] {
			d.Types = append(d.Types, build(c))
		}
		return d
	}

	out := make([]decl.Unit, len(units))
	for i, u := range units {
		out[i] = decl.Unit{Path: u.Path, Content: u.Content, NewestLevel: u.NewestLevel}
		for _, t := range roots[u.ID] {
			out[i].Types = append(out[i].Types, build(t))
		}
	}
	return out, nil
}

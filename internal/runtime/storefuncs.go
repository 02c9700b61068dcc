package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/risor-io/risor/object"

	"github.com/jward/apisnap/internal/decl"
	"github.com/jward/apisnap/internal/store"
)

// builtin wraps fn as a Risor builtin that takes exactly n arguments. A
// non-nil error from fn is raised in the script, prefixed with name.
func builtin(name string, n int, fn func(ctx context.Context, args []object.Object) (object.Object, error)) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		if n >= 0 && len(args) != n {
			return object.NewArgsError(name, n, len(args))
		}
		res, err := fn(ctx, args)
		if err != nil {
			return object.Errorf("%s: %v", name, err)
		}
		return res
	})
}

// emitUnit records one unit, with its nested declarations, under pass and
// returns the number of types written.
func emitUnit(ds store.DataStore, pass int) *object.Builtin {
	return builtin("emit_unit", 1, func(_ context.Context, args []object.Object) (object.Object, error) {
		u, err := decodeUnit(args[0])
		if err != nil {
			return nil, err
		}
		if err := store.WriteUnits(ds, pass, []decl.Unit{u}); err != nil {
			return nil, err
		}
		return object.NewInt(int64(countTypes(u.Types))), nil
	})
}

func countTypes(types []decl.Type) int {
	n := len(types)
	for i := range types {
		n += countTypes(types[i].Types)
	}
	return n
}

// typesByName looks up type rows by binary name, including rows emitted
// earlier in the same run.
func typesByName(ds store.DataStore) *object.Builtin {
	return builtin("types_by_name", 1, func(_ context.Context, args []object.Object) (object.Object, error) {
		name, err := stringArg(args[0])
		if err != nil {
			return nil, err
		}
		types, err := ds.TypesByName(name)
		if err != nil {
			return nil, err
		}
		rows := make([]any, len(types))
		for i, t := range types {
			rows[i] = typeRow(t)
		}
		return toObject(rows), nil
	})
}

func typeRow(t *store.Type) map[string]any {
	anns := make([]any, len(t.Annotations))
	for i, a := range t.Annotations {
		anns[i] = map[string]any{"name": a.Name, "value": a.Value, "for_removal": a.ForRemoval}
	}
	row := map[string]any{
		"id":          t.ID,
		"unit_id":     t.UnitID,
		"name":        t.Name,
		"kind":        t.Kind,
		"modifiers":   t.Modifiers,
		"supertypes":  t.Supertypes,
		"annotations": anns,
		"doc":         t.Doc,
	}
	if t.ParentTypeID != nil {
		row["parent_type_id"] = *t.ParentTypeID
	}
	return row
}

// dbQuery runs read-only SQL over the committed store. Rows are returned as
// a list of maps keyed by column name.
func dbQuery(s *store.Store) *object.Builtin {
	return builtin("db_query", -1, func(ctx context.Context, args []object.Object) (object.Object, error) {
		if len(args) < 1 {
			return nil, errors.New("expected at least 1 argument (sql)")
		}
		query, err := stringArg(args[0])
		if err != nil {
			return nil, err
		}
		params := make([]any, len(args)-1)
		for i, a := range args[1:] {
			params[i] = a.Interface()
		}
		rows, err := s.QueryRows(ctx, query, params...)
		if err != nil {
			return nil, err
		}
		list := make([]any, len(rows))
		for i, r := range rows {
			list[i] = r
		}
		return toObject(list), nil
	})
}

func stringArg(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}

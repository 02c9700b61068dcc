package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jward/apisnap/internal/decl"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// --- Unit operations ---

func (s *Store) InsertUnit(u *Unit) (int64, error) {
	return insertUnitTx(s.db, u)
}

func insertUnitTx(x execer, u *Unit) (int64, error) {
	if u.IngestedAt.IsZero() {
		u.IngestedAt = time.Now().UTC().Truncate(time.Second)
	}
	res, err := x.Exec(
		`INSERT INTO units (pass, path, content, content_hash, newest_level, ingested_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.Pass, u.Path, u.Content, u.ContentHash, u.NewestLevel, u.IngestedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert unit: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	u.ID = id
	return id, nil
}

const unitColumns = "id, pass, path, content, content_hash, newest_level, ingested_at"

func scanUnit(sc interface{ Scan(...any) error }) (*Unit, error) {
	u := &Unit{}
	var hash sql.NullString
	if err := sc.Scan(&u.ID, &u.Pass, &u.Path, &u.Content, &hash, &u.NewestLevel, &u.IngestedAt); err != nil {
		return nil, fmt.Errorf("scan unit: %w", err)
	}
	u.ContentHash = hash.String
	return u, nil
}

// UnitsByPass returns the units of a pass in insertion order.
func (s *Store) UnitsByPass(pass int) ([]*Unit, error) {
	rows, err := s.db.Query("SELECT "+unitColumns+" FROM units WHERE pass = ? ORDER BY id", pass)
	if err != nil {
		return nil, fmt.Errorf("units by pass: %w", err)
	}
	defer rows.Close()
	var units []*Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// UnitByPath returns the unit at path in pass, or nil.
func (s *Store) UnitByPath(pass int, path string) (*Unit, error) {
	u, err := scanUnit(s.db.QueryRow("SELECT "+unitColumns+" FROM units WHERE pass = ? AND path = ?", pass, path))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("unit by path: %w", err)
	}
	return u, nil
}

// Passes returns the distinct pass numbers in ascending order.
func (s *Store) Passes() ([]int, error) {
	rows, err := s.db.Query("SELECT DISTINCT pass FROM units ORDER BY pass")
	if err != nil {
		return nil, fmt.Errorf("passes: %w", err)
	}
	defer rows.Close()
	var passes []int
	for rows.Next() {
		var p int
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan pass: %w", err)
		}
		passes = append(passes, p)
	}
	return passes, rows.Err()
}

// --- Type operations ---

func (s *Store) InsertType(t *Type) (int64, error) {
	return insertTypeTx(s.db, t)
}

func insertTypeTx(x execer, t *Type) (int64, error) {
	res, err := x.Exec(
		`INSERT INTO types (unit_id, parent_type_id, ordinal, name, kind, modifiers, supertypes,
			type_params, annotations, doc, signature_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UnitID, t.ParentTypeID, t.Ordinal, t.Name, t.Kind,
		marshalStrings(t.Modifiers), marshalStrings(t.Supertypes),
		marshalJSON(t.TypeParams), marshalJSON(t.Annotations), t.Doc, t.SignatureHash,
	)
	if err != nil {
		return 0, fmt.Errorf("insert type: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	t.ID = id
	return id, nil
}

const typeColumns = `t.id, t.unit_id, t.parent_type_id, t.ordinal, t.name, t.kind, t.modifiers,
	t.supertypes, t.type_params, t.annotations, t.doc, t.signature_hash`

func scanTypes(rows *sql.Rows) ([]*Type, error) {
	defer rows.Close()
	var types []*Type
	for rows.Next() {
		t := &Type{}
		var mods, supers, params, anns, doc, hash sql.NullString
		if err := rows.Scan(&t.ID, &t.UnitID, &t.ParentTypeID, &t.Ordinal, &t.Name, &t.Kind,
			&mods, &supers, &params, &anns, &doc, &hash); err != nil {
			return nil, fmt.Errorf("scan type: %w", err)
		}
		t.Modifiers = unmarshalStrings(mods.String)
		t.Supertypes = unmarshalStrings(supers.String)
		t.TypeParams = unmarshalJSON[decl.TypeParam](params.String)
		t.Annotations = unmarshalJSON[decl.Annotation](anns.String)
		t.Doc = doc.String
		t.SignatureHash = hash.String
		types = append(types, t)
	}
	return types, rows.Err()
}

func (s *Store) TypesByName(name string) ([]*Type, error) {
	rows, err := s.db.Query("SELECT "+typeColumns+" FROM types t WHERE t.name = ? ORDER BY t.id", name)
	if err != nil {
		return nil, fmt.Errorf("types by name: %w", err)
	}
	return scanTypes(rows)
}

// TypesByPass returns every type row of a pass, parents before children.
func (s *Store) TypesByPass(pass int) ([]*Type, error) {
	rows, err := s.db.Query(
		"SELECT "+typeColumns+" FROM types t JOIN units u ON t.unit_id = u.id WHERE u.pass = ? ORDER BY t.id", pass)
	if err != nil {
		return nil, fmt.Errorf("types by pass: %w", err)
	}
	return scanTypes(rows)
}

// TypesWithAnnotation returns every type carrying the named annotation.
func (s *Store) TypesWithAnnotation(name string) ([]*Type, error) {
	rows, err := s.db.Query(
		`SELECT `+typeColumns+` FROM types t
		 WHERE EXISTS (SELECT 1 FROM json_each(t.annotations) a WHERE json_extract(a.value, '$.name') = ?)
		 ORDER BY t.name, t.id`, name)
	if err != nil {
		return nil, fmt.Errorf("types with annotation: %w", err)
	}
	return scanTypes(rows)
}

// --- Member operations ---

func (s *Store) InsertField(f *Field) (int64, error) {
	return insertFieldTx(s.db, f)
}

func insertFieldTx(x execer, f *Field) (int64, error) {
	res, err := x.Exec(
		`INSERT INTO fields (type_id, ordinal, name, type_expr, modifiers, constant_value, annotations)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.TypeID, f.Ordinal, f.Name, f.TypeExpr, marshalStrings(f.Modifiers), f.Constant, marshalJSON(f.Annotations),
	)
	if err != nil {
		return 0, fmt.Errorf("insert field: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	return id, nil
}

// FieldsByPass returns every field row of a pass in declaration order.
func (s *Store) FieldsByPass(pass int) ([]*Field, error) {
	rows, err := s.db.Query(
		`SELECT f.id, f.type_id, f.ordinal, f.name, f.type_expr, f.modifiers, f.constant_value, f.annotations
		 FROM fields f JOIN types t ON f.type_id = t.id JOIN units u ON t.unit_id = u.id
		 WHERE u.pass = ? ORDER BY f.type_id, f.ordinal`, pass)
	if err != nil {
		return nil, fmt.Errorf("fields by pass: %w", err)
	}
	defer rows.Close()
	var fields []*Field
	for rows.Next() {
		f := &Field{}
		var mods, anns sql.NullString
		if err := rows.Scan(&f.ID, &f.TypeID, &f.Ordinal, &f.Name, &f.TypeExpr, &mods, &f.Constant, &anns); err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		f.Modifiers = unmarshalStrings(mods.String)
		f.Annotations = unmarshalJSON[decl.Annotation](anns.String)
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

func (s *Store) InsertMethod(m *Method) (int64, error) {
	return insertMethodTx(s.db, m)
}

func insertMethodTx(x execer, m *Method) (int64, error) {
	res, err := x.Exec(
		`INSERT INTO methods (type_id, ordinal, name, params, return_type, modifiers, throws, type_params, annotations)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.TypeID, m.Ordinal, m.Name, marshalStrings(m.Params), m.Returns,
		marshalStrings(m.Modifiers), marshalStrings(m.Throws), marshalJSON(m.TypeParams), marshalJSON(m.Annotations),
	)
	if err != nil {
		return 0, fmt.Errorf("insert method: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	m.ID = id
	return id, nil
}

// MethodsByPass returns every method row of a pass in declaration order.
func (s *Store) MethodsByPass(pass int) ([]*Method, error) {
	rows, err := s.db.Query(
		`SELECT m.id, m.type_id, m.ordinal, m.name, m.params, m.return_type, m.modifiers, m.throws,
			m.type_params, m.annotations
		 FROM methods m JOIN types t ON m.type_id = t.id JOIN units u ON t.unit_id = u.id
		 WHERE u.pass = ? ORDER BY m.type_id, m.ordinal`, pass)
	if err != nil {
		return nil, fmt.Errorf("methods by pass: %w", err)
	}
	defer rows.Close()
	var methods []*Method
	for rows.Next() {
		m := &Method{}
		var params, ret, mods, throws, tps, anns sql.NullString
		if err := rows.Scan(&m.ID, &m.TypeID, &m.Ordinal, &m.Name, &params, &ret, &mods, &throws, &tps, &anns); err != nil {
			return nil, fmt.Errorf("scan method: %w", err)
		}
		m.Params = unmarshalStrings(params.String)
		m.Returns = ret.String
		m.Modifiers = unmarshalStrings(mods.String)
		m.Throws = unmarshalStrings(throws.String)
		m.TypeParams = unmarshalJSON[decl.TypeParam](tps.String)
		m.Annotations = unmarshalJSON[decl.Annotation](anns.String)
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

// ExtensionGroup is one (group, declaring type) pair.
type ExtensionGroup struct {
	Group string
	Type  string
}

// ExtensionGroups lists every extension group with the types declaring
// methods tagged with it, ordered by group then type.
func (s *Store) ExtensionGroups() ([]ExtensionGroup, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT json_extract(a.value, '$.value') AS grp, t.name
		 FROM methods m JOIN types t ON m.type_id = t.id, json_each(m.annotations) a
		 WHERE json_extract(a.value, '$.name') = ? AND json_extract(a.value, '$.value') IS NOT NULL
		 ORDER BY grp, t.name`, decl.AnnotationExtension)
	if err != nil {
		return nil, fmt.Errorf("extension groups: %w", err)
	}
	defer rows.Close()
	var groups []ExtensionGroup
	for rows.Next() {
		var g ExtensionGroup
		if err := rows.Scan(&g.Group, &g.Type); err != nil {
			return nil, fmt.Errorf("scan extension group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// Counts reports the number of rows per table.
func (s *Store) Counts() (map[string]int, error) {
	counts := make(map[string]int)
	for _, table := range []string{"units", "types", "fields", "methods"} {
		var n int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// QueryRows runs a read-only statement and returns each row as a column map.
// Only SELECT and WITH statements are accepted. Text stored as BLOB is
// returned as string.
func (s *Store) QueryRows(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	verb := strings.ToUpper(strings.TrimSpace(query))
	if !strings.HasPrefix(verb, "SELECT") && !strings.HasPrefix(verb, "WITH") {
		return nil, errors.New("query rows: only SELECT queries are allowed")
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query rows: columns: %w", err)
	}
	out := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("query rows: scan: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				values[i] = string(b)
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

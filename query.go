package apisnap

import (
	"fmt"

	"github.com/jward/apisnap/internal/store"
)

// QueryBuilder provides a read-only query API over the declaration store.
type QueryBuilder struct {
	store *store.Store
}

// UnitInfo is one ingested source unit.
type UnitInfo struct {
	Pass        int
	Path        string
	ContentHash string
	NewestLevel bool
}

// TypeInfo is one ingested type declaration.
type TypeInfo struct {
	Name          string
	Kind          string
	Unit          string
	Pass          int
	Modifiers     []string
	SignatureHash string
}

// Summary describes the state of the declaration store.
type Summary struct {
	Passes      []int
	Counts      map[string]int
	LastVersion string
}

// Units returns the units of a pass in ingestion order.
func (q *QueryBuilder) Units(pass int) ([]UnitInfo, error) {
	units, err := q.store.UnitsByPass(pass)
	if err != nil {
		return nil, fmt.Errorf("units: %w", err)
	}
	out := make([]UnitInfo, len(units))
	for i, u := range units {
		out[i] = UnitInfo{Pass: u.Pass, Path: u.Path, ContentHash: u.ContentHash, NewestLevel: u.NewestLevel}
	}
	return out, nil
}

// AnnotatedTypes returns every type carrying the named annotation, ordered
// by name.
func (q *QueryBuilder) AnnotatedTypes(annotation string) ([]TypeInfo, error) {
	types, err := q.store.TypesWithAnnotation(annotation)
	if err != nil {
		return nil, fmt.Errorf("annotated types: %w", err)
	}
	units := make(map[int64]*store.Unit)
	out := make([]TypeInfo, 0, len(types))
	for _, t := range types {
		u, ok := units[t.UnitID]
		if !ok {
			u, err = q.unitByID(t.UnitID)
			if err != nil {
				return nil, fmt.Errorf("annotated types: %w", err)
			}
			units[t.UnitID] = u
		}
		out = append(out, TypeInfo{
			Name:          t.Name,
			Kind:          t.Kind,
			Unit:          u.Path,
			Pass:          u.Pass,
			Modifiers:     t.Modifiers,
			SignatureHash: t.SignatureHash,
		})
	}
	return out, nil
}

// ExtensionGroups maps each extension group to the types declaring methods
// in it. Types are sorted within a group.
func (q *QueryBuilder) ExtensionGroups() (map[string][]string, error) {
	groups, err := q.store.ExtensionGroups()
	if err != nil {
		return nil, fmt.Errorf("extension groups: %w", err)
	}
	out := make(map[string][]string)
	for _, g := range groups {
		out[g.Group] = append(out[g.Group], g.Type)
	}
	return out, nil
}

// Summary reports the ingested passes, row counts and the last built version.
func (q *QueryBuilder) Summary() (*Summary, error) {
	passes, err := q.store.Passes()
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	counts, err := q.store.Counts()
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	last, err := q.store.Meta(metaLastVersion)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	return &Summary{Passes: passes, Counts: counts, LastVersion: last}, nil
}

func (q *QueryBuilder) unitByID(id int64) (*store.Unit, error) {
	u := &store.Unit{ID: id}
	err := q.store.DB().QueryRow("SELECT pass, path FROM units WHERE id = ?", id).Scan(&u.Pass, &u.Path)
	if err != nil {
		return nil, fmt.Errorf("unit %d: %w", id, err)
	}
	return u, nil
}

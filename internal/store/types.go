package store

import (
	"time"

	"github.com/jward/apisnap/internal/decl"
)

// Unit is one source file of one extraction pass.
type Unit struct {
	ID          int64
	Pass        int
	Path        string
	Content     string
	ContentHash string
	NewestLevel bool
	IngestedAt  time.Time
}

// Type is a declaration row. Nested types point at their enclosing type
// through ParentTypeID.
type Type struct {
	ID            int64
	UnitID        int64
	ParentTypeID  *int64
	Ordinal       int
	Name          string
	Kind          string
	Modifiers     []string
	Supertypes    []string
	TypeParams    []decl.TypeParam
	Annotations   []decl.Annotation
	Doc           string
	SignatureHash string
}

type Field struct {
	ID          int64
	TypeID      int64
	Ordinal     int
	Name        string
	TypeExpr    string
	Modifiers   []string
	Constant    *string
	Annotations []decl.Annotation
}

type Method struct {
	ID          int64
	TypeID      int64
	Ordinal     int
	Name        string
	Params      []string
	Returns     string
	Modifiers   []string
	Throws      []string
	TypeParams  []decl.TypeParam
	Annotations []decl.Annotation
}

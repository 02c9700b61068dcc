package store

// DataStore is the interface for ingest-phase data access. Both Store
// (direct SQLite) and BatchedStore (in-memory buffering of one pass)
// implement this interface.
type DataStore interface {
	// Inserts, each returns the assigned ID.
	InsertUnit(u *Unit) (int64, error)
	InsertType(t *Type) (int64, error)
	InsertField(f *Field) (int64, error)
	InsertMethod(m *Method) (int64, error)

	// TypesByName lets conversion scripts find declarations from earlier
	// passes or earlier in the same batch.
	TypesByName(name string) ([]*Type, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)

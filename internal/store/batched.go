package store

import "sync"

// BatchedStore buffers one pass of inserts in memory using fake (negative)
// IDs. It implements DataStore so conversion scripts can write to it
// without knowing whether they're hitting SQLite or an in-memory buffer.
// Nothing reaches the database until Store.CommitBatch.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
// TypesByName merges buffered rows with the underlying Store.
type BatchedStore struct {
	store *Store // for read passthrough
	mu    sync.Mutex

	Units   []Unit
	Types   []Type
	Fields  []Field
	Methods []Method

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates a BatchedStore backed by the given Store for read queries.
func NewBatchedStore(s *Store) *BatchedStore {
	return &BatchedStore{
		store:      s,
		nextFakeID: -1,
	}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertUnit(u *Unit) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	u.ID = fakeID
	b.Units = append(b.Units, *u)
	return fakeID, nil
}

func (b *BatchedStore) InsertType(t *Type) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	t.ID = fakeID
	b.Types = append(b.Types, *t)
	return fakeID, nil
}

func (b *BatchedStore) InsertField(f *Field) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	f.ID = fakeID
	b.Fields = append(b.Fields, *f)
	return fakeID, nil
}

func (b *BatchedStore) InsertMethod(m *Method) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	m.ID = fakeID
	b.Methods = append(b.Methods, *m)
	return fakeID, nil
}

// TypesByName returns committed types followed by buffered ones.
func (b *BatchedStore) TypesByName(name string) ([]*Type, error) {
	types, err := b.store.TypesByName(name)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.Types {
		if b.Types[i].Name == name {
			types = append(types, &b.Types[i])
		}
	}
	return types, nil
}

// Len reports the number of buffered rows.
func (b *BatchedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Units) + len(b.Types) + len(b.Fields) + len(b.Methods)
}

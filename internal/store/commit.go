package store

import "fmt"

// CommitBatch inserts all buffered data from a BatchedStore into SQLite
// within a single transaction. Fake (negative) IDs are remapped to real
// (positive) IDs, and all FK references within the batch are rewritten
// using the fakeToReal mapping.
//
// Insert order respects FK dependencies:
//  1. Units
//  2. Types (depend on unit_id and parent_type_id; parents are buffered first)
//  3. Fields (depend on type_id)
//  4. Methods (depend on type_id)
func (s *Store) CommitBatch(batch *BatchedStore) error {
	batch.mu.Lock()
	defer batch.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	fakeToReal := make(map[int64]int64)
	remap := func(id int64) (int64, error) {
		if id >= 0 {
			return id, nil
		}
		realID, ok := fakeToReal[id]
		if !ok {
			return 0, fmt.Errorf("id %d not in fakeToReal map", id)
		}
		return realID, nil
	}

	// 1. Units
	for _, u := range batch.Units {
		fakeID := u.ID
		realID, err := insertUnitTx(tx, &u)
		if err != nil {
			return fmt.Errorf("commit batch: unit %q: %w", u.Path, err)
		}
		fakeToReal[fakeID] = realID
	}

	// 2. Types
	for _, t := range batch.Types {
		fakeID := t.ID
		if t.UnitID, err = remap(t.UnitID); err != nil {
			return fmt.Errorf("commit batch: type %q unit: %w", t.Name, err)
		}
		if t.ParentTypeID != nil && *t.ParentTypeID < 0 {
			parent, err := remap(*t.ParentTypeID)
			if err != nil {
				return fmt.Errorf("commit batch: type %q parent: %w", t.Name, err)
			}
			t.ParentTypeID = &parent
		}
		realID, err := insertTypeTx(tx, &t)
		if err != nil {
			return fmt.Errorf("commit batch: type %q: %w", t.Name, err)
		}
		fakeToReal[fakeID] = realID
	}

	// 3. Fields
	for _, f := range batch.Fields {
		if f.TypeID, err = remap(f.TypeID); err != nil {
			return fmt.Errorf("commit batch: field %q: %w", f.Name, err)
		}
		if _, err := insertFieldTx(tx, &f); err != nil {
			return fmt.Errorf("commit batch: field %q: %w", f.Name, err)
		}
	}

	// 4. Methods
	for _, m := range batch.Methods {
		if m.TypeID, err = remap(m.TypeID); err != nil {
			return fmt.Errorf("commit batch: method %q: %w", m.Name, err)
		}
		if _, err := insertMethodTx(tx, &m); err != nil {
			return fmt.Errorf("commit batch: method %q: %w", m.Name, err)
		}
	}

	return tx.Commit()
}

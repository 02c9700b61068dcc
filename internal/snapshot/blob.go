// Package snapshot fingerprints and persists API snapshots.
//
// A snapshot blob is a magic header followed by a gob-encoded model.Module.
// Writes go to a temporary file in the target directory and are renamed into
// place, so readers never observe a partial blob.
package snapshot

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jward/apisnap/internal/model"
)

// ErrCorrupt is returned by Load when a blob exists but cannot be decoded.
var ErrCorrupt = errors.New("corrupt snapshot blob")

const formatVersion byte = 1

var magic = []byte("APISNAP")

// Load reads the snapshot at path. A missing file returns (nil, nil): there
// is no baseline yet.
func Load(path string) (*model.Module, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("snapshot: load %s: %w", path, err)
	}
	defer f.Close()
	m, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("snapshot: load %s: %w", path, err)
	}
	return m, nil
}

// Decode reads one blob from r.
func Decode(r io.Reader) (*model.Module, error) {
	header := make([]byte, len(magic)+1)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w: short header", ErrCorrupt)
	}
	if !bytes.Equal(header[:len(magic)], magic) {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	if v := header[len(magic)]; v != formatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrCorrupt, v)
	}
	var m model.Module
	if err := gob.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if m.Types == nil {
		m.Types = make(map[string]*model.Type)
	}
	for _, t := range m.Types {
		fillMaps(t)
	}
	return &m, nil
}

// fillMaps restores the empty member maps gob drops.
func fillMaps(t *model.Type) {
	if t.Types == nil {
		t.Types = make(map[string]*model.Type)
	}
	if t.Fields == nil {
		t.Fields = make(map[string]*model.Field)
	}
	if t.Methods == nil {
		t.Methods = make(map[string]*model.Method)
	}
	for _, nested := range t.Types {
		fillMaps(nested)
	}
}

// Encode writes m to w in blob format.
func Encode(w io.Writer, m *model.Module) error {
	if _, err := w.Write(append(append([]byte(nil), magic...), formatVersion)); err != nil {
		return err
	}
	return gob.NewEncoder(w).Encode(m)
}

// Save writes m to path atomically.
func Save(path string, m *model.Module) error {
	return writeAtomic(path, func(w io.Writer) error { return Encode(w, m) })
}

// WriteText writes s to path atomically.
func WriteText(path, s string) error {
	return writeAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	})
}

func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-")
	if err != nil {
		return fmt.Errorf("snapshot: write %s: %w", path, err)
	}
	tmp := f.Name()
	fail := func(err error) error {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("snapshot: write %s: %w", path, err)
	}

	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		return fail(err)
	}
	if err := bw.Flush(); err != nil {
		return fail(err)
	}
	if err := f.Sync(); err != nil {
		return fail(err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("snapshot: write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("snapshot: write %s: %w", path, err)
	}
	return nil
}

package decl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Decode reads a stream of YAML documents, one Unit per document.
// content_file references are left unresolved; use DecodeFile for that.
func Decode(r io.Reader) ([]Unit, error) {
	dec := yaml.NewDecoder(r)
	var units []Unit
	for {
		var u Unit
		err := dec.Decode(&u)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decl: decode document %d: %w", len(units)+1, err)
		}
		if u.Path == "" {
			return nil, fmt.Errorf("decl: document %d: unit path is required", len(units)+1)
		}
		units = append(units, u)
	}
	return units, nil
}

// DecodeFile decodes the YAML file at path and loads every content_file
// relative to the file's directory.
func DecodeFile(path string) ([]Unit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("decl: open %s: %w", path, err)
	}
	defer f.Close()

	units, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	base := filepath.Dir(path)
	for i := range units {
		if err := units[i].resolveContent(base); err != nil {
			return nil, err
		}
	}
	return units, nil
}

func (u *Unit) resolveContent(base string) error {
	if u.ContentFile == "" {
		return nil
	}
	p := u.ContentFile
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return fmt.Errorf("decl: unit %s: read content: %w", u.Path, err)
	}
	u.Content = string(data)
	u.ContentFile = ""
	return nil
}

// Encode writes units as a YAML document stream. Nothing is written for an
// empty slice.
func Encode(w io.Writer, units []Unit) error {
	if len(units) == 0 {
		return nil
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	for i := range units {
		if err := enc.Encode(&units[i]); err != nil {
			return fmt.Errorf("decl: encode %s: %w", units[i].Path, err)
		}
	}
	return enc.Close()
}

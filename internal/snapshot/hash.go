package snapshot

import "unicode/utf16"

// ContentHash is the 31-multiplier rolling hash over the UTF-16 code units of
// s. CR and CRLF terminators hash as a single LF.
func ContentHash(s string) int32 {
	units := utf16.Encode([]rune(s))
	var h int32
	for i := 0; i < len(units); i++ {
		c := units[i]
		if c == '\r' {
			c = '\n'
			if i+1 < len(units) && units[i+1] == '\n' {
				i++
			}
		}
		h = 31*h + int32(c)
	}
	return h
}

// NameHash hashes a qualified declaration name.
func NameHash(name string) int32 {
	var h int32
	for _, c := range utf16.Encode([]rune(name)) {
		h = 31*h + int32(c)
	}
	return h
}

// UnitHash binds a unit's content to the names it declares. nameHash is the
// XOR of the NameHash of every top-level declaration in the unit.
func UnitHash(content string, nameHash int32) int32 {
	return 31*nameHash + ContentHash(content)
}

// Accumulator folds unit hashes with XOR so the total does not depend on the
// order units are visited.
type Accumulator struct {
	sum int32
}

func (a *Accumulator) Add(unitHash int32) { a.sum ^= unitHash }

func (a *Accumulator) Sum() int32 { return a.sum }

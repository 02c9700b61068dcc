package model

import "strings"

// Modifier is one of the modifiers allowed on public API declarations.
type Modifier uint8

const (
	Public Modifier = 1 << iota
	Protected
	Abstract
	Default
	Static
	Final
)

var modifierNames = []struct {
	mod  Modifier
	name string
}{
	{Public, "public"},
	{Protected, "protected"},
	{Abstract, "abstract"},
	{Default, "default"},
	{Static, "static"},
	{Final, "final"},
}

// ParseModifier maps a modifier keyword to a Modifier. Keywords outside the
// allowed set (sealed, native, synchronized, ...) report false.
func ParseModifier(s string) (Modifier, bool) {
	for _, m := range modifierNames {
		if m.name == s {
			return m.mod, true
		}
	}
	return 0, false
}

// AllowedModifiers lists the modifier keywords permitted in the public API.
func AllowedModifiers() []string {
	names := make([]string, len(modifierNames))
	for i, m := range modifierNames {
		names[i] = m.name
	}
	return names
}

// Modifiers is a set of Modifier bits.
type Modifiers uint8

// NewModifiers builds a set from individual modifiers.
func NewModifiers(mods ...Modifier) Modifiers {
	var s Modifiers
	for _, m := range mods {
		s |= Modifiers(m)
	}
	return s
}

func (s Modifiers) Has(m Modifier) bool { return s&Modifiers(m) != 0 }

func (s Modifiers) With(m Modifier) Modifiers { return s | Modifiers(m) }

func (s Modifiers) Without(m Modifier) Modifiers { return s &^ Modifiers(m) }

// Names returns the modifier keywords in canonical order.
func (s Modifiers) Names() []string {
	var names []string
	for _, m := range modifierNames {
		if s.Has(m.mod) {
			names = append(names, m.name)
		}
	}
	return names
}

func (s Modifiers) String() string {
	return "{" + strings.Join(s.Names(), ", ") + "}"
}

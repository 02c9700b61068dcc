package compare

import "github.com/jward/apisnap/internal/model"

// Compatibility is the semantic-versioning impact of a change, ordered
// SAME < PATCH < MINOR < MAJOR.
type Compatibility int

const (
	Same Compatibility = iota
	Patch
	Minor
	Major
)

// Max returns the more severe of a and b.
func Max(a, b Compatibility) Compatibility {
	if a >= b {
		return a
	}
	return b
}

// Increment returns the version that follows v at this level. SNAPSHOT
// versions are returned unchanged.
func (c Compatibility) Increment(v model.Version) model.Version {
	if v.Snapshot {
		return v
	}
	switch c {
	case Same:
		return v
	case Patch:
		return model.Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}
	case Minor:
		return model.Version{Major: v.Major, Minor: v.Minor + 1}
	case Major:
		return model.Version{Major: v.Major + 1}
	default:
		panic("compare: unknown compatibility")
	}
}

func (c Compatibility) String() string {
	switch c {
	case Same:
		return "SAME"
	case Patch:
		return "PATCH"
	case Minor:
		return "MINOR"
	case Major:
		return "MAJOR"
	default:
		return "UNKNOWN"
	}
}

func (c Compatibility) emoji() string {
	switch c {
	case Major:
		return "\U0001F92F"
	case Minor:
		return "\U0001F527"
	case Patch:
		return "\U0001F485"
	default:
		return ""
	}
}

// Diff marks how a node differs between the old and new snapshot.
type Diff int

const (
	DiffNone Diff = iota
	DiffModified
	DiffAdded
	DiffRemoved
)

// Char is the marker printed at the start of a rendered line.
func (d Diff) Char() byte {
	switch d {
	case DiffNone:
		return ' '
	case DiffModified:
		return '*'
	case DiffAdded:
		return '+'
	case DiffRemoved:
		return '-'
	default:
		panic("compare: unknown diff")
	}
}

// Message is an advisory attached to a change.
type Message int

const (
	BreakingChanges Message = iota
	NonExtensionMethodAdded
	numMessages
)

// Text is the full advisory printed once per report.
func (m Message) Text() string {
	switch m {
	case BreakingChanges:
		return "❗ There are breaking changes which require extra attention."
	case NonExtensionMethodAdded:
		return "❕ Non-extension methods added to existing types. " +
			"It is generally advised to add methods to existing types as @Extension methods."
	default:
		return ""
	}
}

// Mark is appended to each diff line carrying the message.
func (m Message) Mark() string {
	switch m {
	case BreakingChanges:
		return "❗"
	case NonExtensionMethodAdded:
		return "❕"
	default:
		return ""
	}
}

// SimpleMark is the ASCII replacement of Mark for console output.
func (m Message) SimpleMark() string {
	switch m {
	case BreakingChanges:
		return "!!!"
	case NonExtensionMethodAdded:
		return "!!"
	default:
		return ""
	}
}

// Messages is a set of Message values.
type Messages uint8

func (s *Messages) Add(m Message) { *s |= 1 << m }

func (s Messages) Has(m Message) bool { return s&(1<<m) != 0 }

// List returns the members in declaration order.
func (s Messages) List() []Message {
	var out []Message
	for m := Message(0); m < numMessages; m++ {
		if s.Has(m) {
			out = append(out, m)
		}
	}
	return out
}

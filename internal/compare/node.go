package compare

import "strings"

// Node is one entry of the change tree. The root node has an empty Name and
// is never rendered.
type Node struct {
	Name     string
	Diff     Diff
	Level    Compatibility
	Note     string
	Messages Messages
	Children []*Node
}

func newNode(name string, diff Diff) *Node {
	return &Node{Name: name, Diff: diff}
}

// check records a fired rule: the node becomes modified and the note is
// appended.
func (n *Node) check(changed bool, note string) {
	if !changed {
		return
	}
	if n.Diff == DiffNone {
		n.Diff = DiffModified
	}
	if n.Note == "" {
		n.Note = note
	} else {
		n.Note += ", " + note
	}
}

func (n *Node) changed() bool { return n.Diff != DiffNone }

func (n *Node) breaking() {
	n.Level = Major
	n.Messages.Add(BreakingChanges)
}

// Digest summarizes a change tree.
type Digest struct {
	Compatibility Compatibility
	Diff          string
	Messages      []Message
	// Note is the root note, e.g. "first publication".
	Note string
}

// Digest walks the tree and returns the overall verdict with its rendering.
func (n *Node) Digest() Digest {
	var out strings.Builder
	var msgs Messages
	msgs |= n.Messages
	level := n.Level
	for _, c := range n.Children {
		level = Max(level, c.render(&out, 0, &msgs))
	}
	return Digest{
		Compatibility: level,
		Diff:          out.String(),
		Messages:      msgs.List(),
		Note:          n.Note,
	}
}

// render writes n and its subtree in pre-order. A line is written when the
// subtree level is above SAME, or n carries a note or a message.
func (n *Node) render(out *strings.Builder, depth int, msgs *Messages) Compatibility {
	*msgs |= n.Messages
	var children strings.Builder
	level := n.Level
	for _, c := range n.Children {
		level = Max(level, c.render(&children, depth+1, msgs))
	}

	var marks strings.Builder
	for _, m := range n.Messages.List() {
		marks.WriteByte(' ')
		marks.WriteString(m.Mark())
	}
	if level != Same || n.Note != "" || marks.Len() > 0 {
		out.WriteString(strings.Repeat("  ", depth))
		out.WriteByte(n.Diff.Char())
		out.WriteByte(' ')
		out.WriteString(n.Name)
		if n.Note != "" {
			out.WriteString(" - ")
			out.WriteString(n.Note)
		}
		out.WriteString(marks.String())
		out.WriteByte('\n')
	}
	out.WriteString(children.String())
	return level
}

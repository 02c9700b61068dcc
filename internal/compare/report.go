package compare

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/jward/apisnap/internal/model"
)

// Report renders the consolidated change report. It is empty when the
// digest is SAME.
func Report(d Digest, from, to model.Version) string {
	if d.Compatibility == Same {
		return ""
	}
	var b strings.Builder
	if d.Diff != "" {
		b.WriteString("```\n")
		b.WriteString(d.Diff)
		b.WriteString("```\n")
	}
	if d.Note != "" {
		b.WriteString("Note: ")
		b.WriteString(d.Note)
		b.WriteByte('\n')
	}
	for _, m := range d.Messages {
		b.WriteString(m.Text())
		b.WriteByte('\n')
	}
	b.WriteString("Compatibility status of API changes: ")
	b.WriteString(d.Compatibility.String())
	b.WriteByte(' ')
	b.WriteString(d.Compatibility.emoji())
	b.WriteString("\nVersion increment: ")
	b.WriteString(from.String())
	b.WriteString(" -> ")
	b.WriteString(to.String())
	b.WriteByte('\n')
	return b.String()
}

// OverrideReport is the report emitted when comparison is skipped.
func OverrideReport(v model.Version) string {
	return "❗ Skipping API checks, version override specified: " + v.String() + "\n"
}

var nonASCII = regexp.MustCompile(`[^\x00-\x7F]`)

// Plain converts a report for console output: message marks become their
// ASCII forms, other non-ASCII runes and code fences are dropped.
func Plain(report string) string {
	for m := Message(0); m < numMessages; m++ {
		report = strings.ReplaceAll(report, m.Mark(), m.SimpleMark())
	}
	report = nonASCII.ReplaceAllString(report, "")
	report = strings.ReplaceAll(report, "```\n", "")
	return strings.TrimRightFunc(report, unicode.IsSpace)
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/jward/apisnap/internal/collect"
	"github.com/jward/apisnap/internal/compare"
)

// outputResult writes v in the selected format. Text output is produced by
// text, JSON output is wrapped in a CLIResult envelope.
func (c *cli) outputResult(command string, v any, text func(io.Writer)) error {
	if c.flagFormat == "text" {
		text(c.stdout)
		return nil
	}
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(CLIResult{Command: command, Results: v})
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func (c *cli) outputError(command string, err error) error {
	c.errorHandled = true
	if c.flagFormat == "text" {
		fmt.Fprintf(c.stderr, "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

// formatBuildText prints the console form of the build report followed by
// the resulting version.
func formatBuildText(w io.Writer, b CLIBuild) {
	if report := compare.Plain(b.Report); report != "" {
		fmt.Fprintln(w, report)
	} else {
		fmt.Fprintln(w, "No API changes")
	}
	fmt.Fprintf(w, "Version: %s\n", b.Version)
}

// formatComparisonText prints a comparison between two blobs.
func formatComparisonText(w io.Writer, c CLIComparison) {
	if report := compare.Plain(c.Report); report != "" {
		fmt.Fprintln(w, report)
		return
	}
	fmt.Fprintf(w, "No API changes (%s)\n", c.Previous)
}

// formatViolationsText lists structural validation failures as aligned
// columns.
func formatViolationsText(w io.Writer, vs []collect.Violation) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "UNIT\tDECLARATION\tRULE\tMESSAGE")
	for _, v := range vs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.Unit, v.Decl, v.Rule, v.Message)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d validation error(s)\n", len(vs))
}

// formatTypesText formats CLIType results as aligned columns.
func formatTypesText(w io.Writer, types []CLIType) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tMODIFIERS\tPASS\tUNIT")
	for _, t := range types {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			t.Name, t.Kind, strings.Join(t.Modifiers, ","), t.Pass, t.Unit)
	}
	tw.Flush()
}

// formatUnitsText formats CLIUnit results as aligned columns.
func formatUnitsText(w io.Writer, units []CLIUnit) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tPASS\tHASH")
	for _, u := range units {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", u.Path, u.Pass, shortHash(u.ContentHash))
	}
	tw.Flush()
}

// formatExtensionsText prints each extension group with its types.
func formatExtensionsText(w io.Writer, groups map[string][]string) {
	names := make([]string, 0, len(groups))
	for g := range groups {
		names = append(names, g)
	}
	sort.Strings(names)
	for _, g := range names {
		fmt.Fprintf(w, "%s:\n", g)
		for _, t := range groups[g] {
			fmt.Fprintf(w, "  %s\n", t)
		}
	}
}

// formatSummaryText formats CLISummary as readable text.
func formatSummaryText(w io.Writer, s CLISummary) {
	fmt.Fprintln(w, "Store Summary")
	fmt.Fprintln(w, "=============")
	passes := make([]string, len(s.Passes))
	for i, p := range s.Passes {
		passes[i] = fmt.Sprint(p)
	}
	fmt.Fprintf(w, "Passes: %s\n", strings.Join(passes, ", "))
	if s.LastVersion != "" {
		fmt.Fprintf(w, "Last version: %s\n", s.LastVersion)
	}
	fmt.Fprintln(w)

	keys := make([]string, 0, len(s.Counts))
	for k := range s.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(tw, "%s:\t%d\n", k, s.Counts[k])
	}
	tw.Flush()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

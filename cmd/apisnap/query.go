package main

import (
	"io"

	"github.com/spf13/cobra"
)

func (c *cli) queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query the declaration store",
	}
	cmd.AddCommand(c.typesCmd())
	cmd.AddCommand(c.unitsCmd())
	cmd.AddCommand(c.extensionsCmd())
	cmd.AddCommand(c.summaryCmd())
	return cmd
}

func (c *cli) typesCmd() *cobra.Command {
	var annotation string
	cmd := &cobra.Command{
		Use:   "types",
		Short: "List types carrying an annotation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := c.openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			types, err := engine.Query().AnnotatedTypes(annotation)
			if err != nil {
				return c.outputError("types", err)
			}
			out := make([]CLIType, len(types))
			for i, t := range types {
				out[i] = CLIType{
					Name:      t.Name,
					Kind:      t.Kind,
					Unit:      t.Unit,
					Pass:      t.Pass,
					Modifiers: t.Modifiers,
				}
			}
			return c.outputResult("types", out, func(w io.Writer) { formatTypesText(w, out) })
		},
	}
	cmd.Flags().StringVar(&annotation, "annotation", "Service", "annotation the types must carry")
	return cmd
}

func (c *cli) unitsCmd() *cobra.Command {
	var pass int
	cmd := &cobra.Command{
		Use:   "units",
		Short: "List the units of a pass",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := c.openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			units, err := engine.Query().Units(pass)
			if err != nil {
				return c.outputError("units", err)
			}
			out := make([]CLIUnit, len(units))
			for i, u := range units {
				out[i] = CLIUnit{Path: u.Path, Pass: u.Pass, ContentHash: u.ContentHash, NewestLevel: u.NewestLevel}
			}
			return c.outputResult("units", out, func(w io.Writer) { formatUnitsText(w, out) })
		},
	}
	cmd.Flags().IntVar(&pass, "pass", 0, "pass to list")
	return cmd
}

func (c *cli) extensionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extensions",
		Short: "List extension groups and the types declaring them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := c.openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			groups, err := engine.Query().ExtensionGroups()
			if err != nil {
				return c.outputError("extensions", err)
			}
			return c.outputResult("extensions", groups, func(w io.Writer) { formatExtensionsText(w, groups) })
		},
	}
}

func (c *cli) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Summarize the declaration store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := c.openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			s, err := engine.Query().Summary()
			if err != nil {
				return c.outputError("summary", err)
			}
			out := CLISummary{Passes: s.Passes, Counts: s.Counts, LastVersion: s.LastVersion}
			return c.outputResult("summary", out, func(w io.Writer) { formatSummaryText(w, out) })
		},
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jward/apisnap"
	"github.com/jward/apisnap/internal/config"
	"github.com/jward/apisnap/scripts"
)

func main() {
	c := newCLI(os.Stdout, os.Stderr)
	if err := c.execute(context.Background(), os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

// cli holds the flag values and resolved configuration of one invocation.
type cli struct {
	stdout io.Writer
	stderr io.Writer

	flagConfig   string
	flagDB       string
	flagLogLevel string
	flagFormat   string

	cfg    *config.Config
	logger *slog.Logger

	// errorHandled is set when a command already printed its error.
	errorHandled bool
}

func newCLI(stdout, stderr io.Writer) *cli {
	return &cli{stdout: stdout, stderr: stderr}
}

// execute runs the command tree with args and prints any unhandled error.
func (c *cli) execute(ctx context.Context, args []string) error {
	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)
	err := root.ExecuteContext(ctx)
	if err != nil && !c.errorHandled {
		fmt.Fprintf(c.stderr, "Error: %s\n", err)
	}
	return err
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "apisnap",
		Short:         "API snapshot differ and compatibility classifier",
		Long:          "apisnap records API declarations, builds a snapshot of the public surface, and classifies changes against the previous snapshot as SAME, PATCH, MINOR or MAJOR.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(c.flagFormat); err != nil {
				return err
			}
			return c.loadConfig()
		},
	}

	root.PersistentFlags().StringVar(&c.flagConfig, "config", "", "config file (default: ./apisnap.yaml if present)")
	root.PersistentFlags().StringVar(&c.flagDB, "db", "", "declaration database path (overrides config)")
	root.PersistentFlags().StringVar(&c.flagLogLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	root.PersistentFlags().StringVar(&c.flagFormat, "format", "text", "output format: json|text")

	root.AddCommand(c.ingestCmd())
	root.AddCommand(c.buildCmd())
	root.AddCommand(c.generateCmd())
	root.AddCommand(c.diffCmd())
	root.AddCommand(c.showCmd())
	root.AddCommand(c.queryCmd())
	root.AddCommand(c.exportCmd())
	root.AddCommand(c.resetCmd())
	return root
}

// loadConfig reads the config file and applies the persistent flag overrides.
func (c *cli) loadConfig() error {
	cfg, err := config.Load(c.flagConfig)
	if err != nil {
		return err
	}
	if c.flagDB != "" {
		cfg.DB = c.flagDB
	}
	if c.flagLogLevel != "" {
		cfg.Log.Level = c.flagLogLevel
	}
	logger, err := config.NewLogger(cfg.Log, c.stderr)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = logger
	return nil
}

// openEngine opens the engine over the configured database, creating its
// directory when needed.
func (c *cli) openEngine(opts ...apisnap.Option) (*apisnap.Engine, error) {
	if dir := filepath.Dir(c.cfg.DB); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	opts = append([]apisnap.Option{
		apisnap.WithConfig(c.cfg),
		apisnap.WithLogger(c.logger),
	}, opts...)
	engine, err := apisnap.New(c.cfg.DB, opts...)
	if err != nil {
		return nil, fmt.Errorf("opening engine: %w", err)
	}
	return engine, nil
}

// --- ingest ---

func (c *cli) ingestCmd() *cobra.Command {
	var (
		pass       int
		script     string
		input      string
		scriptsDir string
	)
	cmd := &cobra.Command{
		Use:   "ingest [file.yaml...]",
		Short: "Record declaration units for a pass",
		Long:  "Reads declaration YAML files, or runs a Risor conversion script, and records the resulting units under the given pass. Each invocation is atomic.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if script == "" && len(args) == 0 {
				return errors.New("requires at least one declaration file or --script")
			}
			if script != "" && len(args) > 0 {
				return errors.New("declaration files and --script are mutually exclusive")
			}
			if pass < 0 {
				return fmt.Errorf("invalid pass %d: must be non-negative", pass)
			}

			var opts []apisnap.Option
			switch {
			case scriptsDir != "":
				opts = append(opts, apisnap.WithScriptsDir(scriptsDir))
			case script != "" && !fileExists(script):
				// Not on disk: run a bundled script such as convert/outline.risor.
				opts = append(opts, apisnap.WithScriptsFS(scripts.FS))
			}
			engine, err := c.openEngine(opts...)
			if err != nil {
				return err
			}
			defer engine.Close()

			if script == "" {
				return engine.IngestFiles(cmd.Context(), pass, args...)
			}
			data, err := readInput(input)
			if err != nil {
				return err
			}
			return engine.IngestScript(cmd.Context(), pass, script, data)
		},
	}
	cmd.Flags().IntVar(&pass, "pass", 0, "pass number the units are recorded under")
	cmd.Flags().StringVar(&script, "script", "", "Risor conversion script emitting units (bundled: convert/outline.risor)")
	cmd.Flags().StringVar(&input, "input", "", "YAML document exposed to the script as the input global")
	cmd.Flags().StringVar(&scriptsDir, "scripts-dir", "", "directory script paths and imports resolve against")
	return cmd
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// readInput decodes the YAML document at path. An empty path yields nil.
func readInput(path string) (any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decoding input %s: %w", path, err)
	}
	return v, nil
}

// --- build ---

func (c *cli) buildCmd() *cobra.Command {
	var (
		version  string
		output   string
		baseline string
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a snapshot and classify changes against the baseline",
		Long:  "Replays all ingested passes, generates the facade, builds the API snapshot and compares it with the baseline. Writes the blob, version, report and compat-sources files into the output directory.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if version != "" {
				c.cfg.Version = version
			}
			if output != "" {
				c.cfg.Output = output
			}
			if baseline != "" {
				c.cfg.Baseline = baseline
			}
			if err := c.cfg.Validate(); err != nil {
				return err
			}

			engine, err := c.openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			res, err := engine.Build(cmd.Context())
			if errors.Is(err, apisnap.ErrValidation) {
				c.errorHandled = true
				formatViolationsText(c.stderr, res.Violations)
				return err
			}
			if err != nil {
				return err
			}
			out := newCLIBuild(res)
			return c.outputResult("build", out, func(w io.Writer) { formatBuildText(w, out) })
		},
	}
	cmd.Flags().StringVar(&version, "version", "", "explicit version or SNAPSHOT, skips compatibility checks")
	cmd.Flags().StringVar(&output, "output", "", "output directory (overrides config)")
	cmd.Flags().StringVar(&baseline, "baseline", "", "baseline blob path (default: <output>/api-blob)")
	return cmd
}

// --- generate ---

func (c *cli) generateCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the facade dispatcher",
		Long:  "Renders the facade from the ingested passes. With --check the file on disk is compared instead of written, and drift exits non-zero.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := c.openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			_, diff, err := engine.Generate(cmd.Context(), check)
			if err != nil {
				return err
			}
			if diff != "" {
				fmt.Fprint(c.stdout, diff)
				return fmt.Errorf("%s is out of date", c.cfg.Facade.Output)
			}
			if !check {
				fmt.Fprintf(c.stderr, "Wrote %s\n", c.cfg.Facade.Output)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "fail when the generated file differs from the one on disk")
	return cmd
}

// --- diff ---

func (c *cli) diffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Compare two persisted snapshots",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmp, err := apisnap.Compare(args[0], args[1])
			if err != nil {
				return err
			}
			out := newCLIComparison(cmp)
			return c.outputResult("diff", out, func(w io.Writer) { formatComparisonText(w, out) })
		},
	}
}

// --- show ---

func (c *cli) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show BLOB",
		Short: "Print a persisted snapshot as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return apisnap.ShowBlob(c.stdout, args[0])
		},
	}
}

// --- export ---

func (c *cli) exportCmd() *cobra.Command {
	var pass int
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the units of a pass as declaration YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := c.openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()
			return engine.ExportPass(c.stdout, pass)
		},
	}
	cmd.Flags().IntVar(&pass, "pass", 0, "pass to export")
	return cmd
}

// --- reset ---

func (c *cli) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Drop every ingested pass",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := c.openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()
			if err := engine.Reset(); err != nil {
				return err
			}
			fmt.Fprintf(c.stderr, "Cleared declarations: %s\n", c.cfg.DB)
			return nil
		},
	}
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	if slices.Contains(validFormats, format) {
		return nil
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}

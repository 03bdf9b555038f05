package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/katrinamanzanilla/2nd-mini-site/internal/app"
	"github.com/katrinamanzanilla/2nd-mini-site/internal/config"
	"github.com/katrinamanzanilla/2nd-mini-site/internal/core"
	"github.com/katrinamanzanilla/2nd-mini-site/internal/export"
	"github.com/katrinamanzanilla/2nd-mini-site/internal/logging"
	"github.com/katrinamanzanilla/2nd-mini-site/internal/retrieval"
	"github.com/katrinamanzanilla/2nd-mini-site/internal/service"
	"github.com/katrinamanzanilla/2nd-mini-site/internal/store"
)

// cliSession is the single session a CLI invocation works in.
const cliSession = "cli"

// globalOptions override configuration for one invocation.
type globalOptions struct {
	docsURL      string
	openSheetURL string
	timeout      time.Duration
	noScript     bool
	logLevel     string
}

type loadOptions struct {
	system    string
	milestone string
	search    string
	format    string
	output    string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var g globalOptions

	root := &cobra.Command{
		Use:   "projstat",
		Short: "Project-status dashboard for published Google Sheets",
		Long: `projstat loads a publicly viewable Google Sheet through a chain of
retrieval strategies and shows the project-status table, optionally
filtered by system, milestone and free-text search.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logging.New(stderr, g.logLevel, "text"))
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&g.docsURL, "docs-url", "", "Spreadsheet host base URL (default from DOCS_BASE_URL)")
	pf.StringVar(&g.openSheetURL, "opensheet-url", "", "OpenSheet API base URL (default from OPENSHEET_BASE_URL)")
	pf.DurationVar(&g.timeout, "timeout", 0, "Per-request timeout (default from FETCH_TIMEOUT)")
	pf.BoolVar(&g.noScript, "no-script", false, "Skip the JSONP script strategy")
	pf.StringVar(&g.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	root.AddCommand(newLoadCmd(&g), newResolveCmd(&g))
	return root
}

func newLoadCmd(g *globalOptions) *cobra.Command {
	var o loadOptions

	cmd := &cobra.Command{
		Use:   "load <sheet link or id>",
		Short: "Load a sheet and print or export its rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), g, o, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.system, "system", "", "Only rows whose system equals this value")
	f.StringVar(&o.milestone, "milestone", "", "Only rows whose milestone equals this value")
	f.StringVar(&o.search, "search", "", "Case-insensitive substring search over the system, milestone, developer and manager columns")
	f.StringVar(&o.format, "format", "table", "Output format: table, csv, xlsx, json")
	f.StringVarP(&o.output, "output", "o", "", "Output file path (default: stdout)")
	return cmd
}

func newResolveCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <sheet link or id>",
		Short: "Show the parsed sheet reference and the URLs each strategy would fetch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			return runResolve(cmd.OutOrStdout(), app.ChainOptions(cfg).Endpoints, args[0])
		},
	}
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig(g *globalOptions) (*config.Config, error) {
	cfg, err := config.LoadWith(func(key string) string {
		switch key {
		case "DOCS_BASE_URL":
			if g.docsURL != "" {
				return g.docsURL
			}
		case "OPENSHEET_BASE_URL":
			if g.openSheetURL != "" {
				return g.openSheetURL
			}
		case "FETCH_TIMEOUT":
			if g.timeout > 0 {
				return g.timeout.String()
			}
		case "FETCH_DISABLE_SCRIPT_CHANNEL":
			if g.noScript {
				return "true"
			}
		}
		return os.Getenv(key)
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func runLoad(ctx context.Context, stdout, stderr io.Writer, g *globalOptions, o loadOptions, source string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	format := strings.ToLower(o.format)
	switch format {
	case "table", "json", string(export.FormatCSV), string(export.FormatXLSX):
	default:
		return fmt.Errorf("unsupported output format %q (must be table, csv, xlsx or json)", o.format)
	}

	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}

	chain := retrieval.NewDefaultChain(app.ChainOptions(cfg))
	svc := service.New(chain, store.NewMemory(), service.Options{
		LoadTimeout:        cfg.Session.LoadTimeout,
		MaxConcurrentLoads: 1,
	})

	v, err := svc.Load(ctx, cliSession, source, service.LoadOptions{})
	if err != nil {
		if v.Feedback.Message != "" {
			fmt.Fprintln(stderr, v.Feedback.Message)
		}
		if core.IsUserFacing(err) {
			return core.NewUserError(err)
		}
		return fmt.Errorf("load %s: %w", source, err)
	}
	fmt.Fprintln(stderr, v.Feedback.Message)

	criteria := core.FilterCriteria{
		SystemEquals:    o.system,
		MilestoneEquals: o.milestone,
		SearchSubstring: o.search,
	}
	if !criteria.IsZero() {
		v = svc.Filter(cliSession, criteria)
	}

	out := stdout
	if o.output != "" {
		f, err := os.Create(o.output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch format {
	case "table":
		return writeTable(out, v)
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return export.Write(out, export.Format(format), v.Headers, v.Rows)
	}
}

// writeTable prints the KPIs and an aligned table.
func writeTable(w io.Writer, v service.View) error {
	fmt.Fprintf(w, "Total Projects: %d\nTotal Milestones: %d\n\n", v.TotalProjects, v.TotalMilestones)

	if empty := v.EmptyText(); empty != "" {
		_, err := fmt.Fprintln(w, empty)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(v.Headers, "\t"))
	for _, row := range v.Rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = strings.ReplaceAll(c, "\n", " ")
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

type resolveOutput struct {
	Reference core.SheetReference `json:"reference"`
	Key       string              `json:"key"`
	URLs      map[string]string   `json:"urls"`
}

func runResolve(w io.Writer, e retrieval.Endpoints, source string) error {
	ref := core.ResolveReference(source)
	if ref.IsZero() {
		return &core.ReferenceParseError{Input: source}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resolveOutput{
		Reference: ref,
		Key:       ref.Key(),
		URLs: map[string]string{
			retrieval.LabelGVizJSON:   e.GVizURL(ref, ""),
			retrieval.LabelGVizScript: e.GVizURL(ref, "callback"),
			retrieval.LabelCSVExport:  e.CSVExportURL(ref),
			retrieval.LabelOpenSheet:  e.OpenSheetURL(ref),
		},
	})
}

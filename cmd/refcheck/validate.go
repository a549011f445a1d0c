// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/refcheck/internal/backend"
	"github.com/pdiddy/refcheck/internal/engine"
	"github.com/pdiddy/refcheck/internal/index"
	"github.com/pdiddy/refcheck/internal/retraction"
	"github.com/pdiddy/refcheck/pkg/types"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate references from a JSON or JSONL file",
	Long: `Validate reads references from a file (or stdin when the file is "-"),
queries every enabled backend for each one, and reports a per-reference
status plus run statistics.

Input is either a JSON array of references or one JSON object per line:

  {"title": "Attention Is All You Need", "authors": ["Ashish Vaswani"]}`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().Bool("json", false, "output the full report as JSON")
	validateCmd.Flags().Bool("yaml", false, "output the full report as YAML")
	validateCmd.Flags().String("output", "", "write the report to a file instead of stdout")
	validateCmd.Flags().Int("concurrency", 0, "references validated in parallel (default 4)")
	validateCmd.Flags().Duration("timeout", 0, "default per-backend query timeout")
	validateCmd.Flags().Bool("retry", true, "retry backends that timed out once")
	validateCmd.Flags().Bool("web-fallback", false, "confirm not-found references with a web search")
	validateCmd.Flags().Bool("check-retractions", false, "look up retraction notices for verified references")
	validateCmd.Flags().StringSlice("disable", nil, "backend names to leave out")
	validateCmd.Flags().String("dblp-index", "", "offline DBLP index path (replaces the online lookup)")
	validateCmd.Flags().String("acl-index", "", "offline ACL Anthology index path")
	validateCmd.Flags().String("openalex-index", "", "offline OpenAlex index path (replaces the online lookup)")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	applyValidateFlags(cmd, &cfg)

	refs, err := readReferences(args[0])
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return fmt.Errorf("no references found in %s", args[0])
	}

	warnStaleIndexes(cfg)

	reg, err := backend.NewRegistry(cfg.Backends)
	if err != nil {
		return err
	}
	defer reg.Close()

	var checker engine.RetractionChecker
	if cfg.Engine.CheckRetractions {
		checker = &retraction.Checker{
			Client:    &http.Client{Timeout: cfg.Backends.Timeout},
			UserAgent: cfg.Backends.UserAgent,
			Mailto:    cfg.Backends.CrossrefMailto,
		}
	}

	eng := engine.New(reg, cfg.Engine, checker)
	report := eng.Validate(context.Background(), refs)

	out := io.Writer(os.Stdout)
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating report file: %w", err)
		}
		defer f.Close()
		out = f
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	yamlOut, _ := cmd.Flags().GetBool("yaml")
	switch {
	case jsonOut:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case yamlOut:
		return yaml.NewEncoder(out).Encode(report)
	default:
		return formatReport(out, report)
	}
}

func applyValidateFlags(cmd *cobra.Command, cfg *types.Config) {
	if c, _ := cmd.Flags().GetInt("concurrency"); c > 0 {
		cfg.Engine.Concurrency = c
	}
	if d, _ := cmd.Flags().GetDuration("timeout"); d > 0 {
		cfg.Backends.Timeout = d
	}
	if disabled, _ := cmd.Flags().GetStringSlice("disable"); len(disabled) > 0 {
		cfg.Backends.Disabled = append(cfg.Backends.Disabled, disabled...)
	}
	if p, _ := cmd.Flags().GetString("dblp-index"); p != "" {
		cfg.Backends.DBLPIndexPath = p
	}
	if p, _ := cmd.Flags().GetString("acl-index"); p != "" {
		cfg.Backends.ACLIndexPath = p
	}
	if p, _ := cmd.Flags().GetString("openalex-index"); p != "" {
		cfg.Backends.OpenAlexIndexPath = p
	}
	// The retry sweep is on unless the config or the flag turns it off.
	if cmd.Flags().Changed("retry") {
		cfg.Engine.Retry, _ = cmd.Flags().GetBool("retry")
	} else if !viper.IsSet("engine.retry") {
		cfg.Engine.Retry = true
	}
	if cmd.Flags().Changed("web-fallback") {
		cfg.Engine.WebFallback, _ = cmd.Flags().GetBool("web-fallback")
	}
	if cmd.Flags().Changed("check-retractions") {
		cfg.Engine.CheckRetractions, _ = cmd.Flags().GetBool("check-retractions")
	}
}

// readReferences loads references from a JSON array or JSONL file. "-"
// reads stdin.
func readReferences(path string) ([]types.Reference, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading references: %w", err)
	}
	return parseReferences(data)
}

func parseReferences(data []byte) ([]types.Reference, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var refs []types.Reference
		if err := json.Unmarshal(trimmed, &refs); err != nil {
			return nil, fmt.Errorf("parsing reference array: %w", err)
		}
		return refs, nil
	}

	var refs []types.Reference
	sc := bufio.NewScanner(bytes.NewReader(trimmed))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var ref types.Reference
		if err := json.Unmarshal([]byte(text), &ref); err != nil {
			return nil, fmt.Errorf("parsing reference on line %d: %w", line, err)
		}
		refs = append(refs, ref)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading references: %w", err)
	}
	return refs, nil
}

// warnStaleIndexes checks configured offline indexes and warns on stderr
// when one is older than the staleness threshold.
func warnStaleIndexes(cfg types.Config) {
	for _, e := range indexPaths(cfg) {
		if e.path == "" {
			continue
		}
		s, err := index.CheckStaleness(e.path, cfg.Index.StalenessThreshold, time.Now().UTC())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot read %s index: %v\n", e.source, err)
			continue
		}
		if s.IsStale {
			fmt.Fprintf(os.Stderr, "Warning: %s index is %d days old; rebuild with '%s'\n",
				e.source, int(s.Age.Hours()/24), e.rebuild)
		}
	}
}

// formatReport renders the human-readable table plus summary counts.
func formatReport(w io.Writer, report types.Report) error {
	fmt.Fprintf(w, "%-50s  %-20s  %-16s  %s\n", "Title", "Status", "Backend", "Detail")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, o := range report.Outcomes {
		title := o.Reference.Title
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		detail := outcomeDetail(o)
		fmt.Fprintf(w, "%-50s  %-20s  %-16s  %s\n", title, o.Status, o.ContributingBackend, detail)
	}

	s := report.Stats
	fmt.Fprintf(w, "\n%d references: %d verified, %d verified via web, %d author mismatches, %d not found, %d skipped\n",
		s.Total, s.Verified, s.VerifiedWeb, s.AuthorMismatch, s.NotFound, s.SkippedShortTitle+s.SkippedURL)
	if s.Retracted > 0 {
		fmt.Fprintf(w, "%d verified reference(s) have retraction notices\n", s.Retracted)
	}
	if len(s.TimeoutsByBackend) > 0 {
		fmt.Fprintf(w, "timeouts by backend: %v\n", s.TimeoutsByBackend)
	}
	return nil
}

func outcomeDetail(o types.ValidationOutcome) string {
	var parts []string
	if o.RetryUpgraded {
		parts = append(parts, "verified on retry")
	}
	if o.Retraction != nil {
		parts = append(parts, "RETRACTED")
	}
	if len(o.TimedOutBackends) > 0 {
		parts = append(parts, fmt.Sprintf("timed out: %s", strings.Join(o.TimedOutBackends, ",")))
	}
	return strings.Join(parts, "; ")
}

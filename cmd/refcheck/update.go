// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/refcheck/internal/index"
)

var updateDBLPCmd = &cobra.Command{
	Use:   "update-dblp",
	Short: "Build the offline DBLP index from an N-Triples dump",
	Long: `update-dblp streams a DBLP RDF dump (dblp.nt, optionally gz- or
xz-compressed) into a local SQLite index. Rebuilding from an unchanged
dump is skipped. The finished index atomically replaces any previous one;
a build fails while readers hold the index open.`,
	RunE: runUpdateDBLP,
}

var updateACLCmd = &cobra.Command{
	Use:   "update-acl",
	Short: "Build the offline ACL Anthology index from its XML export",
	RunE:  runUpdateACL,
}

var updateOpenAlexCmd = &cobra.Command{
	Use:   "update-openalex",
	Short: "Build or incrementally update the offline OpenAlex index",
	Long: `update-openalex ingests an OpenAlex works snapshot (a directory of
updated_date=YYYY-MM-DD partitions holding JSONL files). With an existing
index, only partitions newer than the last synced date are merged; --since
overrides that cutoff. Works are filtered to citable types, and --min-year
drops older publications.`,
	RunE: runUpdateOpenAlex,
}

func init() {
	updateDBLPCmd.Flags().String("dump", "", "path to the DBLP N-Triples dump (required)")
	updateDBLPCmd.Flags().String("index", "", "output index path (default from config)")
	_ = updateDBLPCmd.MarkFlagRequired("dump")

	updateACLCmd.Flags().String("dump", "", "path to the ACL Anthology XML export (required)")
	updateACLCmd.Flags().String("index", "", "output index path (default from config)")
	_ = updateACLCmd.MarkFlagRequired("dump")

	updateOpenAlexCmd.Flags().String("snapshot", "", "path to the OpenAlex works snapshot directory (required)")
	updateOpenAlexCmd.Flags().String("index", "", "output index path (default from config)")
	updateOpenAlexCmd.Flags().Int("min-year", 0, "skip works published before this year")
	updateOpenAlexCmd.Flags().String("since", "", "merge partitions newer than this date (YYYY-MM-DD)")
	_ = updateOpenAlexCmd.MarkFlagRequired("snapshot")

	rootCmd.AddCommand(updateDBLPCmd, updateACLCmd, updateOpenAlexCmd)
}

func runUpdateDBLP(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	dump, _ := cmd.Flags().GetString("dump")
	indexPath := flagOrConfig(cmd, cfg.Backends.DBLPIndexPath)
	if indexPath == "" {
		return fmt.Errorf("no index path: pass --index or set backends.dblp_index_path")
	}

	result, err := index.BuildDBLP(indexPath, dump, cfg.Index.BatchSize, buildProgress)
	return reportBuild(result, err)
}

func runUpdateACL(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	dump, _ := cmd.Flags().GetString("dump")
	indexPath := flagOrConfig(cmd, cfg.Backends.ACLIndexPath)
	if indexPath == "" {
		return fmt.Errorf("no index path: pass --index or set backends.acl_index_path")
	}

	result, err := index.BuildACL(indexPath, dump, cfg.Index.BatchSize, buildProgress)
	return reportBuild(result, err)
}

func runUpdateOpenAlex(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	snapshot, _ := cmd.Flags().GetString("snapshot")
	indexPath := flagOrConfig(cmd, cfg.Backends.OpenAlexIndexPath)
	if indexPath == "" {
		return fmt.Errorf("no index path: pass --index or set backends.openalex_index_path")
	}

	minYear, _ := cmd.Flags().GetInt("min-year")
	since, _ := cmd.Flags().GetString("since")

	result, err := index.BuildOpenAlex(indexPath, snapshot, index.OpenAlexOptions{
		MinYear:   minYear,
		Since:     since,
		BatchSize: cfg.Index.BatchSize,
		Progress:  buildProgress,
	})
	return reportBuild(result, err)
}

func flagOrConfig(cmd *cobra.Command, configured string) string {
	if p, _ := cmd.Flags().GetString("index"); p != "" {
		return p
	}
	return configured
}

func buildProgress(records, skipped int64) {
	fmt.Fprintf(os.Stderr, "  %d records (%d skipped)...\n", records, skipped)
}

func reportBuild(result index.BuildResult, err error) error {
	if errors.Is(err, index.ErrIndexBusy) {
		return fmt.Errorf("index is in use; retry when no validation run holds it open")
	}
	if err != nil {
		return err
	}
	if result.UpToDate {
		fmt.Printf("%s index is up to date, nothing to do\n", result.SourceName)
		return nil
	}
	fmt.Printf("%s index built: %d records (%d skipped) at %s\n",
		result.SourceName, result.Records, result.Skipped, result.Path)
	return nil
}

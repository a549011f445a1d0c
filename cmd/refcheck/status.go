// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/refcheck/internal/index"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show offline index ages, record counts, and build parameters",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().String("dblp-index", "", "offline DBLP index path")
	statusCmd.Flags().String("acl-index", "", "offline ACL Anthology index path")
	statusCmd.Flags().String("openalex-index", "", "offline OpenAlex index path")

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if p, _ := cmd.Flags().GetString("dblp-index"); p != "" {
		cfg.Backends.DBLPIndexPath = p
	}
	if p, _ := cmd.Flags().GetString("acl-index"); p != "" {
		cfg.Backends.ACLIndexPath = p
	}
	if p, _ := cmd.Flags().GetString("openalex-index"); p != "" {
		cfg.Backends.OpenAlexIndexPath = p
	}
	now := time.Now().UTC()

	configured := 0
	for _, e := range indexPaths(cfg) {
		if e.path == "" {
			continue
		}
		configured++

		s, err := index.CheckStaleness(e.path, cfg.Index.StalenessThreshold, now)
		if err != nil {
			fmt.Printf("%-10s  unavailable: %v\n", e.source, err)
			continue
		}

		fmt.Printf("%-10s  %d records, built %s (%d days ago)",
			e.source, s.RecordCount, s.BuiltAt.Format("2006-01-02"), int(s.Age.Hours()/24))
		if s.BuildParams != "" {
			fmt.Printf(", %s", s.BuildParams)
		}
		fmt.Println()
		if s.IsStale {
			fmt.Fprintf(os.Stderr, "Warning: %s index is stale; rebuild with '%s'\n", e.source, e.rebuild)
		}
	}

	if configured == 0 {
		fmt.Println("No offline indexes configured; all lookups go to the online APIs.")
	}
	return nil
}

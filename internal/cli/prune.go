package cli

import (
	"fmt"
	"time"

	"github.com/ditaref/ditaref/internal/prune"
	"github.com/spf13/cobra"
)

func RunPrune(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := cmd.Context()
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("failed to read --json flag: %w", err)
	}
	top, err := OptionalIntFlag(cmd, "top")
	if err != nil {
		return err
	}

	p, err := openProject(ctx, cmd)
	if err != nil {
		return err
	}
	rootMap, err := p.rootMap(cmd, nil)
	if err != nil {
		return err
	}
	if rootMap == "" {
		messages(asJSON).Warn("no root map configured; orphaned and navigation-only documents are not reported")
	}

	report, err := prune.Classify(ctx, p.store, prune.Options{
		Sitemap: p.sitemap(rootMap),
		Top:     top,
	})
	if err != nil {
		return fmt.Errorf("failed to classify documents: %w", err)
	}

	return PrintPruneSummary(PruneSummary{
		Mode:       "prune",
		RootPath:   p.root,
		RootMap:    rootMap,
		DurationMS: time.Since(start).Milliseconds(),
		Report:     report,
	}, asJSON)
}

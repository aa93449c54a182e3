package cli

import (
	"fmt"
	"time"

	"github.com/ditaref/ditaref/internal/audit"
	"github.com/spf13/cobra"
)

func RunCheckReferences(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := cmd.Context()
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("failed to read --json flag: %w", err)
	}
	fix, err := ParseFixOptions(cmd)
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

	// No spinner while prompts may appear.
	progress := newProgressReporter("check-references", asJSON || anyFix(fix))
	report, err := audit.Run(ctx, p.store, audit.Options{
		Fix:      fix,
		Sitemap:  p.sitemap(rootMap),
		Formats:  p.config.Formats,
		Prompter: newPrompter(interactive(asJSON)),
		Out:      messages(asJSON),
		Progress: progress.Update,
	})
	if err != nil {
		return fmt.Errorf("failed to check references: %w", err)
	}
	progress.Done(report.Documents)

	return PrintCheckSummary(CheckSummary{
		Mode:       "check-references",
		RootPath:   p.root,
		RootMap:    rootMap,
		DurationMS: time.Since(start).Milliseconds(),
		Report:     report,
	}, asJSON)
}

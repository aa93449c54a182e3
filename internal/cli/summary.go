package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ditaref/ditaref/internal/audit"
	"github.com/ditaref/ditaref/internal/fileutil"
	"github.com/ditaref/ditaref/internal/move"
	"github.com/ditaref/ditaref/internal/prune"
)

type CheckSummary struct {
	Mode       string `json:"mode"`
	RootPath   string `json:"root_path"`
	RootMap    string `json:"root_map,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	*audit.Report
}

type MoveSummary struct {
	Mode       string `json:"mode"`
	RootPath   string `json:"root_path"`
	DurationMS int64  `json:"duration_ms"`
	*move.Result
}

type PruneSummary struct {
	Mode       string `json:"mode"`
	RootPath   string `json:"root_path"`
	RootMap    string `json:"root_map,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	*prune.Report
}

func PrintCheckSummary(summary CheckSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(os.Stdout, summary)
	}

	report := summary.Report
	fmt.Printf(
		"%s: documents=%d references=%d suggestions=%d fixed=%d skipped=%d duration=%dms\n",
		summary.Mode,
		report.Documents,
		report.References,
		report.Total(),
		report.Fixed,
		report.Skipped,
		summary.DurationMS,
	)
	parts := make([]string, 0, len(audit.Categories))
	for _, category := range audit.Categories {
		if n := report.Suggestions[category.String()]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", category, n))
		}
	}
	if len(parts) > 0 {
		fmt.Printf("categories: %s\n", strings.Join(parts, " "))
	}
	if len(report.Written) > 0 {
		fmt.Printf("written files (%d): %s\n", len(report.Written), SummarizePaths(report.Written, 8))
	}
	return nil
}

func PrintMoveSummary(summary MoveSummary, asJSON bool) error {
	return writeMoveSummary(os.Stdout, summary, asJSON)
}

func writeMoveSummary(w io.Writer, summary MoveSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(w, summary)
	}

	result := summary.Result
	if result.Aborted {
		fmt.Fprintf(w, "%s: aborted %s -> %s\n", summary.Mode, result.From, result.To)
		return nil
	}
	fmt.Fprintf(w,
		"%s: %s -> %s scanned=%d changes=%d outbound=%d duration=%dms\n",
		summary.Mode,
		result.From,
		result.To,
		result.Scanned,
		result.Changes,
		result.Outbound,
		summary.DurationMS,
	)
	if len(result.Updated) > 0 {
		fmt.Fprintf(w, "updated files (%d): %s\n", len(result.Updated), SummarizePaths(result.Updated, 8))
	}
	return nil
}

func PrintPruneSummary(summary PruneSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(os.Stdout, summary)
	}

	report := summary.Report
	parts := []string{summary.Mode + ":", fmt.Sprintf("documents=%d", len(report.Documents))}
	for _, bucket := range prune.Buckets {
		parts = append(parts, fmt.Sprintf("%s=%d", bucket, report.Counts[bucket]))
	}
	parts = append(parts, fmt.Sprintf("duration=%dms", summary.DurationMS))
	fmt.Println(strings.Join(parts, " "))

	for _, bucket := range prune.Buckets {
		if bucket == prune.Referenced {
			continue
		}
		if keys := report.In(bucket); len(keys) > 0 {
			fmt.Printf("%s (%d): %s\n", bucket, len(keys), SummarizePaths(keys, 8))
		}
	}
	if len(report.Top) > 0 {
		fmt.Println("most referenced:")
		for _, ranked := range report.Top {
			fmt.Printf("  %-40s rank=%.4f referrers=%d\n", ranked.Key, ranked.Rank, ranked.Referrers)
		}
	}
	return nil
}

func SummarizePaths(paths []string, max int) string {
	if len(paths) <= max {
		return strings.Join(paths, ", ")
	}
	return fmt.Sprintf("%s ... (+%d more)", strings.Join(paths[:max], ", "), len(paths)-max)
}

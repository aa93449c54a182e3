package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/ditaref/ditaref/internal/move"
	"github.com/ditaref/ditaref/internal/prompt"
	"github.com/ditaref/ditaref/internal/ux"
	"github.com/spf13/cobra"
)

func RunMove(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := cmd.Context()
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("failed to read --json flag: %w", err)
	}
	yes, err := OptionalBoolFlag(cmd, "yes")
	if err != nil {
		return err
	}
	concurrency, err := OptionalIntFlag(cmd, "concurrency")
	if err != nil {
		return err
	}

	p, err := openProject(ctx, cmd)
	if err != nil {
		return err
	}

	var prompter prompt.Prompter
	if !yes {
		prompter = newPrompter(interactive(asJSON))
	}
	result, err := move.Relocate(ctx, p.store, args[0], args[1], move.Options{
		Yes:         yes,
		Prompter:    prompter,
		Concurrency: concurrency,
		Out:         messages(asJSON),
	})
	summary := MoveSummary{
		Mode:       "move",
		RootPath:   p.root,
		DurationMS: time.Since(start).Milliseconds(),
		Result:     result,
	}
	if err != nil {
		if result != nil {
			ux.Stderr().Warn("move partially applied, only the updated files below were written")
			if printErr := writeMoveSummary(os.Stderr, summary, asJSON); printErr != nil {
				return fmt.Errorf("%w (failed to report partial move: %v)", err, printErr)
			}
		}
		return err
	}

	return PrintMoveSummary(summary, asJSON)
}

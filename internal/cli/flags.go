package cli

import (
	"fmt"
	"strings"

	"github.com/ditaref/ditaref/internal/audit"
	"github.com/spf13/cobra"
)

func OptionalStringFlag(cmd *cobra.Command, name string) (string, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return "", nil
	}
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return "", fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return strings.TrimSpace(value), nil
}

func OptionalBoolFlag(cmd *cobra.Command, name string) (bool, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return false, nil
	}
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false, fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return value, nil
}

func OptionalIntFlag(cmd *cobra.Command, name string) (int, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return 0, nil
	}
	value, err := cmd.Flags().GetInt(name)
	if err != nil {
		return 0, fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("--%s must be >= 0", name)
	}
	return value, nil
}

// ParseFixOptions reads the --fix-* flags of check-references.
func ParseFixOptions(cmd *cobra.Command) (audit.FixOptions, error) {
	all, err := OptionalBoolFlag(cmd, "fix-all")
	if err != nil {
		return audit.FixOptions{}, err
	}
	if all {
		return audit.All(), nil
	}

	var fix audit.FixOptions
	flags := []struct {
		name  string
		value *bool
	}{
		{"fix-document-not-found", &fix.DocumentNotFound},
		{"fix-element-not-found", &fix.ElementNotFound},
		{"fix-document-not-in-map", &fix.DocumentNotInMap},
		{"fix-text-not-match", &fix.TextNotMatch},
	}
	for _, flag := range flags {
		value, err := OptionalBoolFlag(cmd, flag.name)
		if err != nil {
			return audit.FixOptions{}, err
		}
		*flag.value = value
	}
	return fix, nil
}

func anyFix(fix audit.FixOptions) bool {
	return fix.DocumentNotFound || fix.ElementNotFound || fix.DocumentNotInMap || fix.TextNotMatch
}

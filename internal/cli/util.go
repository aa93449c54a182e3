package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ditaref/ditaref/internal/storage"
	"github.com/spf13/cobra"
)

const ignoreFileName = ".ditarefignore"

func resolveWorkingDirectory() (string, error) {
	rootPath, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory: %w", err)
	}
	return rootPath, nil
}

// resolveProjectRoot returns --project-root as an absolute path, or the
// working directory when the flag is unset.
func resolveProjectRoot(cmd *cobra.Command) (string, error) {
	root, err := OptionalStringFlag(cmd, "project-root")
	if err != nil {
		return "", err
	}
	if root == "" {
		return resolveWorkingDirectory()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("failed to open project root: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project root %s is not a directory", abs)
	}
	return abs, nil
}

func LoadIgnoreRules(rootPath string) ([]string, error) {
	ignorePath := filepath.Join(rootPath, ignoreFileName)
	f, err := os.Open(ignorePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", ignoreFileName, err)
	}
	defer f.Close()

	rules := make([]string, 0)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rules = append(rules, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ignoreFileName, err)
	}

	return rules, nil
}

// errorExcerptLength bounds the message shown when a command fails.
const errorExcerptLength = 240

// ErrorExcerpt renders err for the terminal: one line, cut to a readable length.
func ErrorExcerpt(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.Join(strings.Fields(err.Error()), " ")
	return storage.Truncate(msg, errorExcerptLength)
}

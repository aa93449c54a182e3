package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/ditaref/ditaref/internal/config"
	"github.com/ditaref/ditaref/internal/ignore"
	"github.com/ditaref/ditaref/internal/prompt"
	"github.com/ditaref/ditaref/internal/scan"
	"github.com/ditaref/ditaref/internal/sitemap"
	"github.com/ditaref/ditaref/internal/storage"
	"github.com/ditaref/ditaref/internal/store"
	"github.com/ditaref/ditaref/internal/ux"
	"github.com/ditaref/ditaref/internal/xquery"
	"github.com/spf13/cobra"
)

// project is everything one command run works on.
type project struct {
	root     string
	config   *config.Config
	provider storage.Provider
	scanner  *scan.Scanner
	store    *store.Store
}

// newPrompter picks how questions are answered. Replaced in tests.
var newPrompter = func(interactive bool) prompt.Prompter {
	if interactive {
		return prompt.NewTerminal()
	}
	return prompt.Static{}
}

func openProject(ctx context.Context, cmd *cobra.Command) (*project, error) {
	root, err := resolveProjectRoot(cmd)
	if err != nil {
		return nil, err
	}
	configPath, err := OptionalStringFlag(cmd, "config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root, configPath)
	if err != nil {
		return nil, err
	}

	ignoreRules, err := LoadIgnoreRules(root)
	if err != nil {
		return nil, err
	}
	rules := append(append([]string{}, cfg.Ignore...), ignoreRules...)
	scanner, err := scan.New(cfg.Include, ignore.NewMatcher(rules))
	if err != nil {
		return nil, fmt.Errorf("failed to configure scanner: %w", err)
	}

	provider, keys, err := openStorage(ctx, cfg, root, scanner)
	if err != nil {
		return nil, err
	}

	st := store.New(provider, xquery.NewEngine())
	for _, key := range keys {
		st.Discover(key)
	}
	return &project{
		root:     root,
		config:   cfg,
		provider: provider,
		scanner:  scanner,
		store:    st,
	}, nil
}

func openStorage(ctx context.Context, cfg *config.Config, root string, scanner *scan.Scanner) (storage.Provider, []string, error) {
	switch cfg.Storage.Backend {
	case config.BackendS3:
		s3, err := storage.NewS3(cfg.S3())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to configure s3 storage: %w", err)
		}
		listed, err := s3.List(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list documents: %w", err)
		}
		return s3, scanner.Filter(listed), nil
	default:
		keys, err := scanner.Walk(os.DirFS(root))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan files: %w", err)
		}
		return storage.NewFilesystem(root), keys, nil
	}
}

// rootMap returns the root map key from the flag, falling back to config.
func (p *project) rootMap(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	value, err := OptionalStringFlag(cmd, "root-map")
	if err != nil {
		return "", err
	}
	if value != "" {
		return value, nil
	}
	return p.config.RootMap, nil
}

// sitemap returns nil when no root map is configured.
func (p *project) sitemap(key string) *sitemap.Sitemap {
	if key == "" {
		return nil
	}
	return sitemap.New(p.store, key)
}

// interactive reports whether the run may ask questions on the terminal.
func interactive(asJSON bool) bool {
	return !asJSON && ux.IsTerminal(os.Stdin) && ux.IsTerminal(os.Stderr)
}

// messages is where progress narration goes. With --json stdout carries the
// report, so narration moves to stderr.
func messages(asJSON bool) *ux.Printer {
	if asJSON {
		return ux.Stderr()
	}
	return ux.Stdout()
}

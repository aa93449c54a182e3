package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ditaref/ditaref/internal/config"
	"github.com/ditaref/ditaref/internal/fileutil"
	"github.com/ditaref/ditaref/internal/sitemap"
	"github.com/spf13/cobra"
)

type CompressedSitemap struct {
	Root  string         `json:"root"`
	Nodes []sitemap.Node `json:"nodes"`
	Tree  []any          `json:"tree"`
}

func RunSitemap(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("failed to read --json flag: %w", err)
	}
	compressed, err := OptionalBoolFlag(cmd, "compressed")
	if err != nil {
		return err
	}

	p, err := openProject(ctx, cmd)
	if err != nil {
		return err
	}
	rootMap, err := p.rootMap(cmd, args)
	if err != nil {
		return err
	}
	if rootMap == "" {
		return fmt.Errorf("no root map given (pass one or set root_map in %s)", config.FileName)
	}
	sm := p.sitemap(rootMap)

	if compressed {
		nodes, err := sm.Nodes(ctx, false)
		if err != nil {
			return fmt.Errorf("failed to read sitemap: %w", err)
		}
		tree, err := sm.Compressed(ctx)
		if err != nil {
			return fmt.Errorf("failed to build sitemap: %w", err)
		}
		return fileutil.PrintJSON(os.Stdout, CompressedSitemap{Root: sm.Root(), Nodes: nodes, Tree: tree})
	}

	tree, err := sm.Tree(ctx)
	if err != nil {
		return fmt.Errorf("failed to build sitemap: %w", err)
	}
	if asJSON {
		return fileutil.PrintJSON(os.Stdout, tree)
	}
	printTree(os.Stdout, tree, 0)
	return nil
}

func printTree(w io.Writer, nodes []*sitemap.TreeNode, depth int) {
	for _, node := range nodes {
		line := node.Title
		if line == "" {
			line = node.ID
		}
		if node.Target != "" {
			line += " (" + node.Target + ")"
		}
		if node.ResourceOnly {
			line += " [resource-only]"
		}
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), line)
		printTree(w, node.Children, depth+1)
	}
}

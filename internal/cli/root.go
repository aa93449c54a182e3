package cli

import (
	"fmt"

	"github.com/ditaref/ditaref/internal/config"
	"github.com/spf13/cobra"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ditaref",
		Short: "Check and maintain references between DITA/XML documents",
		Long: `ditaref audits the links between the documents of a DITA/XML
documentation project, moves documents while keeping every reference
to them intact, and reports documents nothing points at.

Documents are read from the project root or from an S3-compatible bucket
configured in .ditaref.yaml.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("project-root", "", "Project root (default: current directory)")
	rootCmd.PersistentFlags().String("config", "", "Config file (default: <project-root>/"+config.FileName+")")

	checkCmd := &cobra.Command{
		Use:   "check-references",
		Short: "Find broken references and optionally fix them interactively",
		Args:  cobra.NoArgs,
		RunE:  RunCheckReferences,
	}
	checkCmd.Flags().Bool("fix-document-not-found", false, "Offer fixes for references to documents that cannot be loaded")
	checkCmd.Flags().Bool("fix-element-not-found", false, "Offer fixes for references to missing element ids")
	checkCmd.Flags().Bool("fix-document-not-in-map", false, "Offer fixes for references to documents outside the root map")
	checkCmd.Flags().Bool("fix-text-not-match", false, "Offer fixes for link text that differs from the target title")
	checkCmd.Flags().Bool("fix-all", false, "Enable every --fix-* option")
	checkCmd.Flags().String("root-map", "", "Root map used for the document-not-in-map check")
	checkCmd.Flags().Bool("json", false, "Print machine-readable summary")

	moveCmd := &cobra.Command{
		Use:   "move <source> <destination>",
		Short: "Move a document and rewrite every reference to and from it",
		Args:  cobra.ExactArgs(2),
		RunE:  RunMove,
	}
	moveCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	moveCmd.Flags().Int("concurrency", 0, "Documents inspected in parallel while planning (default: 8)")
	moveCmd.Flags().Bool("json", false, "Print machine-readable summary")

	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Report documents that are unreferenced or only reachable from maps",
		Args:  cobra.NoArgs,
		RunE:  RunPrune,
	}
	pruneCmd.Flags().String("root-map", "", "Root map used to find orphaned documents")
	pruneCmd.Flags().Int("top", 10, "Number of most referenced documents to list")
	pruneCmd.Flags().Bool("json", false, "Print machine-readable report")

	sitemapCmd := &cobra.Command{
		Use:   "sitemap [root-map]",
		Short: "Print the navigation tree of a root map",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunSitemap,
	}
	sitemapCmd.Flags().Bool("compressed", false, "Print the compressed index tree")
	sitemapCmd.Flags().Bool("json", false, "Print the tree as JSON")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ditaref %s\n", version)
		},
	}

	rootCmd.AddCommand(
		checkCmd,
		moveCmd,
		pruneCmd,
		sitemapCmd,
		versionCmd,
	)

	return rootCmd
}

package cli

import (
	"fmt"
	"os"

	"github.com/paduck86/distillai/pkg/importer"
	"github.com/paduck86/distillai/pkg/models"
	"github.com/spf13/cobra"
)

type ImportOptions struct {
	*RootOptions
	Owner  string
	Parent string
}

func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <file.md>",
		Short: "Import a Markdown file as a page",
		Long: `Create a page from a Markdown file, with one block per top-level
Markdown block. The first level one heading becomes the page title.

Example:
  distillai import --owner 7f9c... notes/lecture-3.md
  distillai import --owner 7f9c... --parent 1a2b... paper.md`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Owner, "owner", "", "owner id (required)")
	cmd.Flags().StringVar(&opts.Parent, "parent", "", "folder or page to import under")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func runImport(cmd *cobra.Command, opts *ImportOptions, path string) error {
	owner, err := models.ParseUserID(opts.Owner)
	if err != nil {
		return err
	}
	var parent *models.NodeID
	if opts.Parent != "" {
		id, err := models.ParseNodeID(opts.Parent)
		if err != nil {
			return err
		}
		parent = &id
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := importer.Markdown(cmd.Context(), st, owner, parent, path, src)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %q as %s with %d blocks\n", res.Page.Title, res.Page.ID, len(res.Blocks))
	return nil
}

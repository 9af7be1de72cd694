package cli

import (
	"github.com/paduck86/distillai/pkg/models"
	"github.com/paduck86/distillai/pkg/outline"
	"github.com/spf13/cobra"
)

func NewTreeCommand(rootOpts *RootOptions) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print an owner's tree",
		Long: `Print every folder, page and block of an owner as an indented outline.
Blocks that show a synced block are marked [synced].`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := models.ParseUserID(owner)
			if err != nil {
				return err
			}
			st, err := rootOpts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			nodes, err := st.ListTree(cmd.Context(), id)
			if err != nil {
				return err
			}
			return outline.Render(cmd.OutOrStdout(), nodes)
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner id (required)")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

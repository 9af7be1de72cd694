package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema and seed system categories",
		Long: `Create missing tables, columns and indexes, then insert the configured
system categories that do not exist yet. Existing data is never dropped, so
the command can run on every deploy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := rootOpts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			if err := st.Migrate(ctx); err != nil {
				return err
			}
			if err := st.SeedSystemCategories(ctx, rootOpts.Config.SystemCategories); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s database\n", rootOpts.Config.Database.Driver)
			return nil
		},
	}
}

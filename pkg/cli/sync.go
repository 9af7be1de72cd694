package cli

import (
	"errors"
	"fmt"

	"github.com/paduck86/distillai/pkg/store/replication"
	"github.com/paduck86/distillai/pkg/store/surrealdb"
	"github.com/spf13/cobra"
)

type SyncOptions struct {
	*RootOptions
	Watch bool
}

func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy pending changes into the SurrealDB replica",
		Long: `Apply the change feed to the SurrealDB replica in order.

Changes are only recorded while database.change_tracking is enabled. A change
that fails is marked with the error and retried on the next pass.

Example:
  distillai sync
  distillai sync --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "keep running and sync every sync.interval")

	return cmd
}

func runSync(cmd *cobra.Command, opts *SyncOptions) error {
	cfg := opts.Config
	if !cfg.ReplicaEnabled() {
		return errors.New("surrealdb.url is not configured")
	}
	ctx := cmd.Context()

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	replica, err := surrealdb.Connect(ctx, surrealdb.Config{
		URL:       cfg.SurrealDB.URL,
		Namespace: cfg.SurrealDB.Namespace,
		Database:  cfg.SurrealDB.Database,
		Username:  cfg.SurrealDB.Username,
		Password:  cfg.SurrealDB.Password,
	}, opts.Log)
	if err != nil {
		return err
	}
	defer replica.Close()

	syncer := replication.NewSyncer(st, replica, replication.Options{
		BatchSize:  cfg.Sync.BatchSize,
		MaxRetries: cfg.Sync.MaxRetries,
		Logger:     opts.Log,
	})

	if opts.Watch {
		return syncer.Run(ctx, cfg.Sync.Interval)
	}

	res, err := syncer.SyncOnce(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "applied %d, failed %d, skipped %d\n", res.Applied, res.Failed, res.Skipped)
	return nil
}

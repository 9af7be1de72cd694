// Package cli implements the distillai command line.
//
//	distillai [--config file] [--log-level level] <command>
//
// Commands:
//
//	serve    run the HTTP API
//	migrate  create the schema and seed system categories
//	sync     copy the change feed into the SurrealDB replica
//	import   import a Markdown file as a page
//	tree     print an owner's tree
package cli

import (
	"context"

	"github.com/paduck86/distillai/pkg/config"
	"github.com/paduck86/distillai/pkg/logger"
	"github.com/paduck86/distillai/pkg/store/sqlstore"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags and what PersistentPreRunE builds from them.
type RootOptions struct {
	ConfigPath string
	LogLevel   string

	Config *config.Config
	Log    zerolog.Logger

	logData *logger.LogData
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "distillai",
		Short:         "distillai knowledge tree service",
		Long:          "Stores folders, pages and blocks with shared synced blocks, and mirrors them into a SurrealDB graph.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.logData != nil {
				return opts.logData.Close()
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error), overrides the config")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewTreeCommand(opts))

	return cmd
}

// Main runs the command line with args, without the program name.
func Main(ctx context.Context, args []string) error {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func (o *RootOptions) setup() error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}

	logData, err := logger.New().
		FromPath(cfg.Log.Path).
		WithLevel(cfg.Log.Level).
		Console(cfg.Log.Format == "console").
		Make()
	if err != nil {
		return err
	}

	o.Config = cfg
	o.logData = logData
	o.Log = logData.Logger
	return nil
}

func (o *RootOptions) openStore() (*sqlstore.Store, error) {
	db := o.Config.Database
	return sqlstore.Open(sqlstore.Options{
		Driver:         db.Driver,
		DSN:            db.DSN,
		MaxOpenConns:   db.MaxOpenConns,
		MaxIdleConns:   db.MaxIdleConns,
		ChangeTracking: db.ChangeTracking,
		Logger:         o.Log,
	})
}

package cli

import (
	"github.com/paduck86/distillai/pkg/server"
	"github.com/spf13/cobra"
)

type ServeOptions struct {
	*RootOptions
	Port     string
	ReadOnly bool
}

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API until interrupted.

The owner of every request is read from the X-Owner-ID header, which an
authenticating proxy in front of the service is expected to set.

Example:
  distillai serve --port 8080
  distillai serve --read-only`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				opts.Config.Server.Port = opts.Port
			}
			if cmd.Flags().Changed("read-only") {
				opts.Config.Server.ReadOnly = opts.ReadOnly
			}
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Port, "port", "p", "", "port to listen on, overrides the config")
	cmd.Flags().BoolVar(&opts.ReadOnly, "read-only", false, "reject all writes until switched off through the admin API")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			opts.Log.Error().Err(closeErr).Msg("error closing database")
		}
	}()

	srv := server.New(st, server.Options{
		Logger:   opts.Log,
		ReadOnly: opts.Config.Server.ReadOnly,
	})
	return srv.Run(cmd.Context(), ":"+opts.Config.Server.Port)
}

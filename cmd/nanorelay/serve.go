package main

import (
	"github.com/spf13/cobra"

	"github.com/edgard/nanorelay/internal/app"
)

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP relay service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := app.New(ctx, opts.cfg, opts.log)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					opts.log.Error("Error closing application", "error", err)
				}
			}()

			return a.Run(ctx)
		},
	}
}

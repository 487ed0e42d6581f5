package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gnemet/slidegen/internal/ai"
	"github.com/gnemet/slidegen/internal/config"
	"github.com/gnemet/slidegen/internal/pipeline"
	"github.com/gnemet/slidegen/internal/pptx"
	"github.com/gnemet/slidegen/internal/server"
	"github.com/gnemet/slidegen/internal/templates"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Log, os.Stderr)

			registry, err := ai.NewRegistry(cfg.AI.Providers)
			if err != nil {
				return err
			}
			client := ai.NewClient(registry, cfg.AI.Timeout, logger)
			svc := pipeline.NewService(registry, client, pptx.NewRenderer(logger), logger)
			library := templates.NewLibrary(cfg.Application.Storage.Template, logger)
			srv := server.New(cfg, svc, library, logger)

			logger.Info("starting "+cfg.Application.Name,
				"addr", cfg.Application.Addr(),
				"providers", registry.Names(),
				"templates", cfg.Application.Storage.Template,
				"rate_limit_rpm", cfg.Application.RateLimit.RequestsPerMinute,
			)

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				return srv.ListenAndServe(ctx)
			})
			if library.Enabled() {
				g.Go(func() error {
					if err := library.Start(ctx); err != nil {
						return fmt.Errorf("template library: %w", err)
					}
					return nil
				})
			}
			return g.Wait()
		},
	}
}

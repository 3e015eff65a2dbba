package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/iwvelando/rocket-calculator/internal/cache"
	"github.com/iwvelando/rocket-calculator/internal/config"
	"github.com/iwvelando/rocket-calculator/internal/server"
	"github.com/iwvelando/rocket-calculator/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the calculator as an HTTP JSON API",
		Long: `Serve the calculator as an HTTP JSON API.

Fields omitted from a request take the configured inputs. When a
configuration file is in use it is watched and edits to its inputs apply
to later requests without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, conf, logger, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, logger, loader, conf)
		},
	}
	cmd.Flags().String("address", "", "listen address override, e.g. :8080")
	cmd.Flags().String("redis-address", "", "redis address for the shared result cache")
	return cmd
}

func runServer(ctx context.Context, logger *zap.Logger, loader *config.Loader, conf *config.Configuration) error {
	if err := validation.ValidateInputs(conf.Inputs); err != nil {
		return fmt.Errorf("invalid default inputs: %w", err)
	}

	opts, err := server.NewOptions(conf.Server, version)
	if err != nil {
		return fmt.Errorf("invalid server configuration: %w", err)
	}

	resultCache, err := cache.New(ctx, logger, conf.Cache)
	if err != nil {
		logger.Warn("falling back to in-memory result cache",
			zap.String("op", "main.runServer"),
			zap.Error(err),
		)
		resultCache = cache.NewMemoryCache(conf.Cache.TTL)
	}

	handler := server.NewHandler(logger, opts, resultCache, conf.Inputs)

	if loader.Loaded() {
		loader.Watch(logger, func(updated *config.Configuration) {
			if err := validation.ValidateInputs(updated.Inputs); err != nil {
				logger.Warn("ignoring reloaded inputs",
					zap.String("op", "main.runServer"),
					zap.Error(err),
				)
				return
			}
			handler.SetDefaults(updated.Inputs)
		})
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Serve(ctx, logger, handler, opts.Address)
	})
	g.Go(func() error {
		<-ctx.Done()
		handler.Close()
		return resultCache.Close()
	})
	return g.Wait()
}

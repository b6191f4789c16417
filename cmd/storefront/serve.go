package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storefront/config"
	"storefront/fetch"
	"storefront/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gRPC store service",
	Long: `Starts the storefront.Store gRPC service and, unless disabled, loads the
catalog from the backend. The store starts in the loading state and leaves it
once the catalog has arrived. Stops on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logger)
	},
}

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	s := store.New(store.WithLogger(logger.Named("store")))
	svc := store.NewService(s, logger.Named("service"), cfg.Bag.ConvenienceFee)

	opts := store.ServerOptions{
		ServiceName:      store.ServiceName,
		Transport:        cfg.Server.Transport,
		Address:          cfg.Server.ListenAddress(),
		EnableReflection: cfg.Server.Reflection,
		OnShutdown:       svc.Close,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return store.RunServer(ctx, svc.Register, opts, logger)
	})

	if cfg.Catalog.Enabled {
		loader := fetch.NewCatalogLoader(cfg.Catalog.BaseURL, s,
			fetch.WithTimeout(cfg.Catalog.Timeout),
			fetch.WithLogger(logger.Named("catalog")),
		)
		g.Go(func() error {
			// A failed fetch leaves the store loading; the service keeps
			// serving so clients can still dispatch.
			if err := loader.Load(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("catalog unavailable, store stays in loading state", zap.Error(err))
			}
			return nil
		})
	} else {
		logger.Info("catalog fetch disabled")
	}

	return g.Wait()
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"droneFleetManagement/internal/db"
	grpcserver "droneFleetManagement/internal/grpc"
	"droneFleetManagement/internal/httpapi"
	"droneFleetManagement/internal/logging"
	"droneFleetManagement/internal/observability"
	"droneFleetManagement/repository"
)

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC service, the HTTP read API and the expiry sweeper",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Log.Level, os.Stdout)
			logger.Info("configuration loaded", "config", cfg.String())

			shutdownTracing, err := observability.InitTracing("fleetd", cfg.Tracing.Exporter, os.Stdout)
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdownTracing(ctx)
			}()

			d, err := db.Open(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer func() {
				if err := d.Close(); err != nil {
					logger.Error("close db", "err", err)
				}
			}()
			store := repository.NewStore(d)
			engine := newEngine(cfg, store, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			serveGRPC, stopGRPC, err := grpcserver.StartGRPC(cfg, engine, store.Users, logger)
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				logger.Info("gRPC server listening", "addr", cfg.GRPC.Address)
				return serveGRPC()
			})
			var httpSrv *http.Server
			if cfg.HTTP.Address != "" {
				httpSrv = &http.Server{
					Addr:              cfg.HTTP.Address,
					Handler:           httpapi.NewRouter(httpapi.NewHandler(engine), cfg.Auth.JWTSecret),
					ReadHeaderTimeout: 5 * time.Second,
				}
				g.Go(func() error {
					logger.Info("HTTP server listening", "addr", cfg.HTTP.Address)
					if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return err
					}
					return nil
				})
			}
			g.Go(func() error {
				return engine.RunSweeper(gctx, cfg.Fleet.SweepInterval)
			})
			g.Go(func() error {
				<-gctx.Done()
				logger.Info("shutting down")
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				var errs []error
				if httpSrv != nil {
					errs = append(errs, httpSrv.Shutdown(sctx))
				}
				errs = append(errs, stopGRPC(sctx))
				return errors.Join(errs...)
			})
			return g.Wait()
		},
	}
}

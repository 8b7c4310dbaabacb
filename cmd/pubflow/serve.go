package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/pubflow"
	"github.com/aretw0/pubflow/internal/cli"
	httpAdapter "github.com/aretw0/pubflow/pkg/adapters/http"
	"github.com/aretw0/pubflow/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP status server",
	Long: `Serves the task graph, run triggers, live run status, stored reports and
Prometheus metrics of the project over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		redisAddr, _ := cmd.Flags().GetString("redis")

		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics, err := observability.NewMetrics(reg)
		if err != nil {
			return err
		}
		tracker := observability.NewTracker()
		streams := httpAdapter.NewStreamManager(logger)

		p, err := openProject(cmd, cli.Options{
			Logger:    logger,
			RedisAddr: redisAddr,
			Hooks: observability.CombineHooks(
				observability.LoggingHooks(logger),
				metrics.Hooks(),
				tracker.Hooks(),
				streams.Hooks(),
			),
		})
		if err != nil {
			return err
		}
		defer p.Close()

		if addr == "" {
			addr = p.Config.Serve.Addr
		}
		if addr == "" {
			addr = ":8080"
		}

		handler := httpAdapter.NewHandler(p.Scope,
			httpAdapter.WithReports(p.Workspace.Reports()),
			httpAdapter.WithTracker(tracker),
			httpAdapter.WithStreams(streams),
			httpAdapter.WithGatherer(reg),
			httpAdapter.WithVersion(pubflow.Version),
			httpAdapter.WithLogger(logger),
		)

		srv := &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("Starting pubflow server", "addr", srv.Addr, "project", p.Config.Project)
			serverErrors <- srv.ListenAndServe()
		}()

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-ctx.Done():
			logger.Info("Start shutdown", "signal", ctx.Signal())

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			logger.Info("pubflow server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (default from pubflow.yaml, else :8080)")
	serveCmd.Flags().String("redis", "", "Redis address for the shared report store and build lock")
}

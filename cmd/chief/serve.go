package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/GharaibehR/Chief-of-Staff/coreengine/comms"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/config"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/grpc"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/kernel"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/logging"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/observability"
)

// shutdownTimeout bounds graceful shutdown of every transport.
const shutdownTimeout = 15 * time.Second

func newServeCmd(flags *globalFlags) *cobra.Command {
	var grpcAddr, metricsAddr, natsURL string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the orchestrator over gRPC and NATS",
		Long: `Start the orchestrator with the local capability agents and serve it:

  - gRPC service chiefofstaff.v1.Orchestrator on server.grpc_addr
  - NATS request/reply on nats.subject when nats.url is set, plus
    lifecycle events on chiefofstaff.events.*
  - Prometheus metrics on server.metrics_addr/metrics

Stops gracefully on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if grpcAddr != "" {
				cfg.Server.GRPCAddr = grpcAddr
			}
			if metricsAddr != "" {
				cfg.Server.MetricsAddr = metricsAddr
			}
			if natsURL != "" {
				cfg.NATS.URL = natsURL
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "override server.grpc_addr")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "override server.metrics_addr (empty config value disables)")
	cmd.Flags().StringVar(&natsURL, "nats-url", "", "override nats.url")
	return cmd
}

func runServe(ctx context.Context, cfg *config.CoreConfig) error {
	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	logger.Info("chief_starting", "version", Version, "grpc_addr", cfg.Server.GRPCAddr)

	shutdownTracer, err := observability.InitTracer(ctx, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracer(sctx); err != nil {
			logger.Warn("tracer_shutdown_failed", "error", err.Error())
		}
	}()

	rt, err := buildOrchestrator(cfg, logger)
	if err != nil {
		return err
	}

	var limiter *kernel.RateLimiter
	if cfg.Server.RateLimit > 0 {
		limiter = kernel.NewRateLimiter(&kernel.RateLimitConfig{
			RequestsPerSecond: cfg.Server.RateLimit,
			Burst:             cfg.Server.RateBurst,
		})
		stopCleanup := limiter.StartCleanupLoop(kernel.DefaultCleanupConfig(), logger)
		defer stopCleanup()
	}

	if cfg.NATS.URL != "" {
		stopNATS, err := startNATS(cfg, rt, logger)
		if err != nil {
			return err
		}
		defer stopNATS()
	}

	g, gctx := errgroup.WithContext(ctx)

	server := grpc.NewGracefulServer(grpc.NewServer(rt.orch, logger), cfg.Server.GRPCAddr,
		grpc.ServerOptions(logger, limiter)...)
	g.Go(func() error {
		return server.Start(gctx)
	})

	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metrics := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			logger.Info("metrics_server_started", "address", cfg.Server.MetricsAddr)
			if err := metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return metrics.Shutdown(sctx)
		})
	}

	err = g.Wait()
	logger.Info("chief_stopped", "in_flight", len(rt.orch.InFlight()))
	return err
}

// startNATS connects to NATS, starts the request bridge and the event
// forwarder, and returns a function that stops all three.
func startNATS(cfg *config.CoreConfig, rt *runtimeDeps, logger logging.Logger) (func(), error) {
	nc, err := comms.Connect(cfg.NATS.URL, "chief-of-staff", logger)
	if err != nil {
		return nil, err
	}

	bridge := comms.NewBridge(nc, rt.orch, cfg.NATS, logger)
	if err := bridge.Start(); err != nil {
		nc.Close()
		return nil, err
	}

	forwarder := comms.NewEventForwarder(nc, rt.bus, comms.DefaultEventPrefix, logger)
	forwarder.Start()

	return func() {
		forwarder.Stop()
		bridge.Stop()
		if err := nc.Drain(); err != nil {
			logger.Warn("nats_drain_failed", "error", err.Error())
			nc.Close()
		}
	}, nil
}

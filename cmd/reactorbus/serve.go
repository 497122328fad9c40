package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"reactorbus/internal/config"
	"reactorbus/internal/dispatch"
	"reactorbus/internal/logging"
	"reactorbus/pkg/bus"
	"reactorbus/pkg/bus/activity"
	"reactorbus/pkg/metrics"
	"reactorbus/pkg/parallel"
)

var serveConfigFile string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the event bus and parallel fan-out action as a long-lived process",
	Long: `Run the event bus and parallel fan-out action as a long-lived process,
exposing a Prometheus /metrics endpoint fed from the bus's dispatch
activity and the action's live lane count.

Configuration is loaded from:
1. --config flag (YAML file)
2. internal/config defaults (if --config is omitted)

Example usage:
  # Run with default configuration
  reactorbus serve

  # Run with a config file
  reactorbus serve --config bus.yaml`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigFile, "config", "c", "", "Path to YAML configuration file (optional)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadServeConfig(serveConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.FromVerbose(cfg.Logging.Verbose)

	gomaxprocs := runtime.GOMAXPROCS(0)
	var gomemlimit string
	if limit := debug.SetMemoryLimit(-1); limit != math.MaxInt64 {
		gomemlimit = fmt.Sprintf("%d bytes (%.2f MiB)", limit, float64(limit)/(1024*1024))
	} else {
		gomemlimit = "unlimited"
	}

	logger.Info("reactorbus starting",
		"dispatcher_kind", cfg.Dispatcher.Kind,
		"lanes", cfg.Parallel.Lanes,
		"aggregate_capacity", cfg.Parallel.AggregateCapacity,
		"metrics_addr", cfg.Metrics.Addr,
		"gomaxprocs", gomaxprocs,
		"gomemlimit", gomemlimit)

	registry := prometheus.NewRegistry()

	dispatchTotal := metrics.NewCounterVec(registry, "reactorbus_dispatch_total",
		"Total events accepted by the bus, by outcome", []string{"outcome"})
	acceptTotal := metrics.NewCounter(registry, "reactorbus_accept_total",
		"Total events accepted by the bus, across all outcomes")
	dispatchDuration := metrics.NewHistogramWithBuckets(registry, "reactorbus_dispatch_duration_seconds",
		"Time spent routing an accepted event to its matching registrations", metrics.DurationBuckets())
	candidateCount := metrics.NewHistogram(registry, "reactorbus_dispatch_candidates",
		"Number of registrations matched per accepted event")
	laneBacklog := metrics.NewGaugeVec(registry, "reactorbus_lane_capacity",
		"Configured per-lane capacity", []string{"lane"})
	lanesActive := metrics.NewGauge(registry, "reactorbus_lanes_active",
		"Number of parallel fan-out lanes still live (not cancelled)")

	newDispatcher := dispatcherFactory(cfg.Dispatcher)

	b := bus.New(
		bus.WithDispatcher(newDispatcher()),
		bus.WithActivityHistory(cfg.Bus.ActivityHistorySize),
		bus.WithLogger(logger.With("component", "bus")),
		bus.WithUncaughtErrorHandler(func(err error) {
			dispatchTotal.WithLabelValues("uncaught_error").Inc()
			logger.Error("bus: uncaught error", "error", err)
		}),
		bus.WithAcceptHook(func(entry activity.Entry) {
			acceptTotal.Inc()
			dispatchDuration.Observe(entry.Duration.Seconds())
			candidateCount.Observe(float64(entry.Candidates))
			outcome := "ok"
			if entry.Failed {
				outcome = "failed"
			}
			dispatchTotal.WithLabelValues(outcome).Inc()
		}),
	)

	action := parallel.NewAction(cfg.Parallel.Lanes,
		func() parallel.Dispatcher { return newDispatcher() },
		parallel.WithReservedSlots(cfg.Parallel.ReservedSlots),
		parallel.WithLogger(logger.With("component", "parallel")),
		parallel.WithLaneCountHook(func(liveLanes int) { lanesActive.Set(float64(liveLanes)) }))
	action.SetCapacity(cfg.Parallel.AggregateCapacity)
	lanesActive.Set(float64(action.LaneCount()))
	for i := 0; i < action.LaneCount(); i++ {
		laneBacklog.WithLabelValues(fmt.Sprintf("%d", i)).Set(float64(action.LaneCapacity()))
	}

	logger.Info("bus and parallel action ready", "bus_id", b.ID())

	metricsServer := metrics.NewServer(cfg.Metrics.Addr, registry)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := metricsServer.Start(ctx); err != nil && ctx.Err() == nil {
		logger.Error("metrics server failed", "error", err)
		return err
	}

	logger.Info("reactorbus shutdown complete")
	return nil
}

func loadServeConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := &config.Config{}
		config.SetDefaults(cfg)
		if err := config.ValidateStructure(cfg); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := config.LoadConfig(string(data))
	if err != nil {
		return nil, err
	}
	if err := config.ValidateStructure(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func dispatcherFactory(dc config.DispatcherConfig) func() dispatch.Dispatcher {
	switch dc.Kind {
	case "sync":
		return func() dispatch.Dispatcher { return dispatch.NewSync() }
	default:
		return func() dispatch.Dispatcher {
			pool, err := dispatch.NewPool(dc.PoolSize, dc.QueueDepth)
			if err != nil {
				// Config was already validated, so this would only trip on a
				// programming error; fall back to sync rather than panic.
				return dispatch.NewSync()
			}
			return pool
		}
	}
}

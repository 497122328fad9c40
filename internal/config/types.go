// Package config provides data models for the reactorbus runtime
// configuration.
//
// These models represent the structure of the configuration YAML a
// deployment loads at startup to size the dispatcher pool, the bus's
// router/activity behavior, and the parallel fan-out action's lane count
// and capacity.
package config

// Config is the root configuration structure.
type Config struct {
	// Dispatcher configures the execution contract events and lane work
	// are scheduled onto.
	Dispatcher DispatcherConfig `yaml:"dispatcher"`

	// Bus configures the event bus's router and activity history.
	Bus BusConfig `yaml:"bus"`

	// Parallel configures the fan-out action's lane pool and capacity.
	Parallel ParallelConfig `yaml:"parallel"`

	// Logging configures logging behavior.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures the Prometheus metrics server.
	Metrics MetricsConfig `yaml:"metrics"`
}

// DispatcherConfig selects and sizes the Dispatcher implementation shared
// by the bus and every lane.
type DispatcherConfig struct {
	// Kind selects the Dispatcher implementation: "sync" or "pool".
	// Default: "pool"
	Kind string `yaml:"kind"`

	// PoolSize is the number of worker goroutines backing a "pool"
	// dispatcher's errgroup.
	// Default: 8
	PoolSize int `yaml:"pool_size"`

	// QueueDepth bounds the number of tasks a "pool" dispatcher will
	// accept before Dispatch blocks the caller.
	// Default: 256
	QueueDepth int `yaml:"queue_depth"`
}

// BusConfig configures the event bus.
type BusConfig struct {
	// ActivityHistorySize sizes the bus's recent-dispatch ring buffer
	// (pkg/bus/activity), surfaced via Bus.RecentActivity.
	// Default: 128
	ActivityHistorySize int `yaml:"activity_history_size"`
}

// ParallelConfig configures the fan-out action.
type ParallelConfig struct {
	// Lanes is the fixed number of sub-stream lanes (N).
	// Default: 4
	Lanes int `yaml:"lanes"`

	// AggregateCapacity is the total in-flight element budget (E) shared
	// across the master and its lanes, per the capacity policy.
	// Default: 1024
	AggregateCapacity int64 `yaml:"aggregate_capacity"`

	// ReservedSlots overrides parallel.DefaultReservedSlots, the
	// per-lane guard-band subtracted from AggregateCapacity before
	// computing the master's own effective capacity.
	// Default: 32
	ReservedSlots int64 `yaml:"reserved_slots"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	// Verbose controls log level: 0=WARNING, 1=INFO, 2=DEBUG
	// Default: 0 (SetDefaults leaves an unset value at 0, since 0 is valid)
	Verbose int `yaml:"verbose"`
}

// MetricsConfig configures the Prometheus metrics server.
type MetricsConfig struct {
	// Addr is the TCP address the metrics server listens on.
	// Default: :9090
	Addr string `yaml:"addr"`
}

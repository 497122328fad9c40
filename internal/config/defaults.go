package config

// Default values for configuration fields.
const (
	// DefaultDispatcherKind is the default Dispatcher implementation.
	DefaultDispatcherKind = "pool"

	// DefaultPoolSize is the default worker count for a "pool" dispatcher.
	DefaultPoolSize = 8

	// DefaultQueueDepth is the default task queue depth for a "pool"
	// dispatcher.
	DefaultQueueDepth = 256

	// DefaultActivityHistorySize is the default size of the bus's
	// recent-dispatch ring buffer.
	DefaultActivityHistorySize = 128

	// DefaultLanes is the default fan-out lane count.
	DefaultLanes = 4

	// DefaultAggregateCapacity is the default total in-flight element
	// budget shared across an action's lanes.
	DefaultAggregateCapacity = 1024

	// DefaultReservedSlots mirrors parallel.DefaultReservedSlots so a
	// config file need not repeat it unless overriding.
	DefaultReservedSlots = 32

	// DefaultVerbose is the INFO log level (1). SetDefaults does not apply
	// it: an unset Verbose stays 0 (WARNING).
	DefaultVerbose = 1

	// DefaultMetricsAddr is the default metrics server listen address.
	DefaultMetricsAddr = ":9090"
)

// SetDefaults applies default values to unset configuration fields.
// This modifies the config in-place and should be called after parsing
// the configuration and before validation.
func SetDefaults(cfg *Config) {
	// Dispatcher defaults
	if cfg.Dispatcher.Kind == "" {
		cfg.Dispatcher.Kind = DefaultDispatcherKind
	}
	if cfg.Dispatcher.PoolSize == 0 {
		cfg.Dispatcher.PoolSize = DefaultPoolSize
	}
	if cfg.Dispatcher.QueueDepth == 0 {
		cfg.Dispatcher.QueueDepth = DefaultQueueDepth
	}

	// Bus defaults
	if cfg.Bus.ActivityHistorySize == 0 {
		cfg.Bus.ActivityHistorySize = DefaultActivityHistorySize
	}

	// Parallel defaults
	if cfg.Parallel.Lanes == 0 {
		cfg.Parallel.Lanes = DefaultLanes
	}
	if cfg.Parallel.AggregateCapacity == 0 {
		cfg.Parallel.AggregateCapacity = DefaultAggregateCapacity
	}
	if cfg.Parallel.ReservedSlots == 0 {
		cfg.Parallel.ReservedSlots = DefaultReservedSlots
	}

	// Logging defaults
	// Note: Verbose level 0 is valid (WARNING), so we don't set a default

	// Metrics defaults
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = DefaultMetricsAddr
	}
}

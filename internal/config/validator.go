package config

import (
	"fmt"
)

// ValidateStructure performs basic structural validation on the
// configuration. Validates required fields and value ranges. Call after
// SetDefaults, so most zero-value checks indicate a missing default rather
// than a legitimately empty field.
func ValidateStructure(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if err := validateDispatcherConfig(&cfg.Dispatcher); err != nil {
		return fmt.Errorf("dispatcher: %w", err)
	}

	if err := validateBusConfig(&cfg.Bus); err != nil {
		return fmt.Errorf("bus: %w", err)
	}

	if err := validateParallelConfig(&cfg.Parallel); err != nil {
		return fmt.Errorf("parallel: %w", err)
	}

	if err := validateLoggingConfig(&cfg.Logging); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	if err := validateMetricsConfig(&cfg.Metrics); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	return nil
}

// validateDispatcherConfig validates the dispatcher configuration.
func validateDispatcherConfig(dc *DispatcherConfig) error {
	switch dc.Kind {
	case "sync", "pool":
	default:
		return fmt.Errorf("kind must be \"sync\" or \"pool\", got %q", dc.Kind)
	}

	if dc.Kind == "pool" {
		if dc.PoolSize < 1 {
			return fmt.Errorf("pool_size must be at least 1, got %d", dc.PoolSize)
		}
		if dc.QueueDepth < 0 {
			return fmt.Errorf("queue_depth cannot be negative, got %d", dc.QueueDepth)
		}
	}

	return nil
}

// validateBusConfig validates the bus configuration.
func validateBusConfig(bc *BusConfig) error {
	if bc.ActivityHistorySize < 1 {
		return fmt.Errorf("activity_history_size must be at least 1 (got %d, expected default %d)",
			bc.ActivityHistorySize, DefaultActivityHistorySize)
	}

	return nil
}

// validateParallelConfig validates the parallel fan-out configuration.
func validateParallelConfig(pc *ParallelConfig) error {
	if pc.Lanes < 1 {
		return fmt.Errorf("lanes must be at least 1 (got %d, expected default %d)", pc.Lanes, DefaultLanes)
	}
	if pc.AggregateCapacity < 1 {
		return fmt.Errorf("aggregate_capacity must be at least 1 (got %d, expected default %d)",
			pc.AggregateCapacity, DefaultAggregateCapacity)
	}
	if pc.ReservedSlots < 1 {
		return fmt.Errorf("reserved_slots must be at least 1 (got %d, expected default %d)",
			pc.ReservedSlots, DefaultReservedSlots)
	}

	return nil
}

// validateLoggingConfig validates the logging configuration.
func validateLoggingConfig(lc *LoggingConfig) error {
	if lc.Verbose < 0 || lc.Verbose > 2 {
		return fmt.Errorf("verbose must be 0 (WARNING), 1 (INFO), or 2 (DEBUG), got %d", lc.Verbose)
	}

	return nil
}

// validateMetricsConfig validates the metrics server configuration.
func validateMetricsConfig(mc *MetricsConfig) error {
	if mc.Addr == "" {
		return fmt.Errorf("addr cannot be empty (expected default %q)", DefaultMetricsAddr)
	}

	return nil
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetDefaults_AllUnset(t *testing.T) {
	cfg := &Config{}

	SetDefaults(cfg)

	assert.Equal(t, DefaultDispatcherKind, cfg.Dispatcher.Kind)
	assert.Equal(t, DefaultPoolSize, cfg.Dispatcher.PoolSize)
	assert.Equal(t, DefaultQueueDepth, cfg.Dispatcher.QueueDepth)
	assert.Equal(t, DefaultActivityHistorySize, cfg.Bus.ActivityHistorySize)
	assert.Equal(t, DefaultLanes, cfg.Parallel.Lanes)
	assert.EqualValues(t, DefaultAggregateCapacity, cfg.Parallel.AggregateCapacity)
	assert.EqualValues(t, DefaultReservedSlots, cfg.Parallel.ReservedSlots)
	assert.Equal(t, DefaultMetricsAddr, cfg.Metrics.Addr)
}

func TestSetDefaults_AllSet(t *testing.T) {
	cfg := &Config{
		Dispatcher: DispatcherConfig{Kind: "sync", PoolSize: 16, QueueDepth: 64},
		Bus:        BusConfig{ActivityHistorySize: 64},
		Parallel:   ParallelConfig{Lanes: 8, AggregateCapacity: 4096, ReservedSlots: 16},
		Metrics:    MetricsConfig{Addr: ":9999"},
	}

	SetDefaults(cfg)

	assert.Equal(t, "sync", cfg.Dispatcher.Kind)
	assert.Equal(t, 16, cfg.Dispatcher.PoolSize)
	assert.Equal(t, 64, cfg.Dispatcher.QueueDepth)
	assert.Equal(t, 64, cfg.Bus.ActivityHistorySize)
	assert.Equal(t, 8, cfg.Parallel.Lanes)
	assert.EqualValues(t, 4096, cfg.Parallel.AggregateCapacity)
	assert.EqualValues(t, 16, cfg.Parallel.ReservedSlots)
	assert.Equal(t, ":9999", cfg.Metrics.Addr)
}

func TestSetDefaults_PartiallySet(t *testing.T) {
	cfg := &Config{
		Dispatcher: DispatcherConfig{Kind: "sync"},
		Parallel:   ParallelConfig{Lanes: 2},
	}

	SetDefaults(cfg)

	assert.Equal(t, "sync", cfg.Dispatcher.Kind)
	assert.Equal(t, 2, cfg.Parallel.Lanes)

	assert.Equal(t, DefaultPoolSize, cfg.Dispatcher.PoolSize)
	assert.EqualValues(t, DefaultAggregateCapacity, cfg.Parallel.AggregateCapacity)
}

func TestSetDefaults_LoggingConfig(t *testing.T) {
	// Logging config has no defaults that override zero values
	// (Verbose 0 is valid = WARNING level)
	cfg := &Config{Logging: LoggingConfig{}}

	SetDefaults(cfg)

	assert.Equal(t, 0, cfg.Logging.Verbose)
}

func TestSetDefaults_Constants(t *testing.T) {
	assert.Equal(t, "pool", DefaultDispatcherKind)
	assert.Equal(t, 8, DefaultPoolSize)
	assert.Equal(t, 256, DefaultQueueDepth)
	assert.Equal(t, 128, DefaultActivityHistorySize)
	assert.Equal(t, 4, DefaultLanes)
	assert.EqualValues(t, 1024, DefaultAggregateCapacity)
	assert.EqualValues(t, 32, DefaultReservedSlots)
	assert.Equal(t, 1, DefaultVerbose)
	assert.Equal(t, ":9090", DefaultMetricsAddr)
}

func TestSetDefaults_IntegrationWithParsing(t *testing.T) {
	yamlConfig := `
dispatcher:
  kind: pool

parallel:
  lanes: 6
`

	cfg, err := parseConfig(yamlConfig)
	assert.NoError(t, err)

	// Before SetDefaults, unset fields should be zero.
	assert.Equal(t, 0, cfg.Dispatcher.PoolSize)
	assert.EqualValues(t, 0, cfg.Parallel.AggregateCapacity)

	SetDefaults(cfg)

	assert.Equal(t, DefaultPoolSize, cfg.Dispatcher.PoolSize)
	assert.Equal(t, 6, cfg.Parallel.Lanes)
	assert.EqualValues(t, DefaultAggregateCapacity, cfg.Parallel.AggregateCapacity)

	assert.NoError(t, ValidateStructure(cfg))
}

func TestSetDefaults_Idempotent(t *testing.T) {
	cfg := &Config{}

	SetDefaults(cfg)
	first := *cfg

	SetDefaults(cfg)

	assert.Equal(t, first, *cfg)
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"arraydb/subarray"
	"arraydb/vfs"
)

// EnvPrefix is the prefix of environment variable overrides, e.g.
// ARRAYDB_VFS_MIN_BATCH_SIZE.
const EnvPrefix = "ARRAYDB_"

// VFSConfig tunes the virtual filesystem layer.
type VFSConfig struct {
	MinBatchSize    uint64 `mapstructure:"min_batch_size"`
	MinBatchGap     uint64 `mapstructure:"min_batch_gap"`
	ReadConcurrency int    `mapstructure:"read_concurrency"`
}

// Config holds the engine settings relevant to query partitioning and I/O.
type Config struct {
	MemoryBudget    uint64    `mapstructure:"memory_budget"`
	MemoryBudgetVar uint64    `mapstructure:"memory_budget_var"`
	TraceLevel      string    `mapstructure:"trace_level"`
	VFS             VFSConfig `mapstructure:"vfs"`
}

// Default returns the engine defaults.
func Default() Config {
	return Config{
		MemoryBudget:    subarray.DefaultMemoryBudget,
		MemoryBudgetVar: subarray.DefaultMemoryBudgetVar,
		TraceLevel:      "OFF",
		VFS: VFSConfig{
			MinBatchSize:    vfs.DefaultMinBatchSize,
			MinBatchGap:     vfs.DefaultMinBatchGap,
			ReadConcurrency: vfs.DefaultReadConcurrency,
		},
	}
}

// Load builds the configuration from defaults, an optional config file, and
// ARRAYDB_-prefixed environment variables, in increasing precedence.
func Load(path string) (Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("memory_budget", def.MemoryBudget)
	v.SetDefault("memory_budget_var", def.MemoryBudgetVar)
	v.SetDefault("trace_level", def.TraceLevel)
	v.SetDefault("vfs.min_batch_size", def.VFS.MinBatchSize)
	v.SetDefault("vfs.min_batch_gap", def.VFS.MinBatchGap)
	v.SetDefault("vfs.read_concurrency", def.VFS.ReadConcurrency)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			_, notFound := err.(viper.ConfigFileNotFoundError)
			if !notFound && !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
			}
		}
	}

	// ARRAYDB_VFS_MIN_BATCH_SIZE -> vfs.min_batch_size
	for _, envStr := range os.Environ() {
		pair := strings.SplitN(envStr, "=", 2)
		key, value := pair[0], pair[1]
		if !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		propKey := strings.TrimPrefix(key, EnvPrefix)
		if strings.HasPrefix(propKey, "TRACE_") {
			// Tracing env vars belong to the trace package.
			continue
		}
		if strings.HasPrefix(propKey, "VFS_") {
			propKey = "vfs." + strings.ToLower(strings.TrimPrefix(propKey, "VFS_"))
		} else {
			propKey = strings.ToLower(propKey)
		}
		v.Set(propKey, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

package providers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"sds/internal/structures"
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	filename := filepath.Base(flags.ConfigPath)
	viper.AddConfigPath(filepath.Dir(flags.ConfigPath))
	viper.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	viper.SetConfigType("yaml")

	viper.BindEnv("logger.level", "SDS_LOG_LEVEL")
	viper.BindEnv("ingest.flushInterval", "SDS_FLUSH_INTERVAL")
	viper.BindEnv("persistence.saveInterval", "SDS_SAVE_INTERVAL")
	viper.BindEnv("bulk.requestLimit", "SDS_BULK_REQUEST_LIMIT")
	viper.BindEnv("freshness.outdatedDays", "SDS_OUTDATED_DAYS")
	viper.BindEnv("cache.enabled", "SDS_CACHE_ENABLED")
	viper.BindEnv("cache.size", "SDS_CACHE_SIZE")

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = viper.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	applyDefaults(&conf)

	conf.AppName = "StatsDocStore"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}

// applyDefaults fills the tunables the config file may omit.
func applyDefaults(conf *structures.Config) {
	if conf.Bulk.RequestLimit <= 0 {
		conf.Bulk.RequestLimit = 100 * 1024 * 1024
	}
	if conf.Bulk.ChunkSize <= 0 {
		conf.Bulk.ChunkSize = 500
	}
	if conf.Bulk.MaxRetries <= 0 {
		conf.Bulk.MaxRetries = 3
	}
	if conf.Freshness.OutdatedDays <= 0 {
		conf.Freshness.OutdatedDays = 1
	}
	if conf.Freshness.ForcedFilterOutdatedDays <= 0 {
		conf.Freshness.ForcedFilterOutdatedDays = 5
	}
	if conf.Freshness.BatchSize <= 0 {
		conf.Freshness.BatchSize = 1000
	}
}

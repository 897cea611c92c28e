package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type Persistence struct {
	FilePath     string        `yaml:"filePath" validate:"required|unixPath"`
	SaveInterval time.Duration `yaml:"saveInterval" validate:"required|min:1"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type IngestConfig struct {
	FlushInterval time.Duration `yaml:"flushInterval" validate:"required|min:1"`
}

type BulkConfig struct {
	RequestLimit int `yaml:"requestLimit"`
	ChunkSize    int `yaml:"chunkSize"`
	MaxRetries   int `yaml:"maxRetries"`
}

type FreshnessConfig struct {
	OutdatedDays             int `yaml:"outdatedDays"`
	ForcedFilterOutdatedDays int `yaml:"forcedFilterOutdatedDays"`
	BatchSize                int `yaml:"batchSize"`
}

type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	Size    int  `yaml:"size"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName     string
	Debug       bool
	Path        string
	WebServer   Server          `yaml:"webServer"`
	Persistence Persistence     `yaml:"persistence"`
	Logger      LoggerConfig    `yaml:"logger"`
	Ingest      IngestConfig    `yaml:"ingest"`
	Bulk        BulkConfig      `yaml:"bulk"`
	Freshness   FreshnessConfig `yaml:"freshness"`
	Cache       CacheConfig     `yaml:"cache"`
	Metrics     MetricsConfig   `yaml:"metrics"`
}

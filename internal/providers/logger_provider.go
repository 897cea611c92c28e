package providers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"sds/internal/structures"
)

type TypeEnum int

const (
	TypeApp TypeEnum = iota
	TypeGet
	TypePost
	TypeBulk
	TypeIngest
	TypeScheduler
)

var logFileNames = map[TypeEnum]string{
	TypeApp:       "app.log",
	TypeGet:       "access_get.log",
	TypePost:      "access_post.log",
	TypeBulk:      "bulk.log",
	TypeIngest:    "ingest.log",
	TypeScheduler: "scheduler.log",
}

// GetLogTypeByRequestType routes HTTP access logs into the per-method files.
func GetLogTypeByRequestType(method string) TypeEnum {
	if method == http.MethodPost {
		return TypePost
	}
	return TypeGet
}

type Logger interface {
	Errorf(t TypeEnum, format string, args ...interface{})
	Warnf(t TypeEnum, format string, args ...interface{})
	Debugf(t TypeEnum, format string, args ...interface{})
	Infof(t TypeEnum, format string, args ...interface{})
	Fatalf(t TypeEnum, format string, args ...interface{})
	Close()
}

type LogProvider struct {
	loggers map[TypeEnum]zerolog.Logger
	files   []*os.File
}

func NewLogProvider(conf *structures.Config) (Logger, error) {
	level, err := zerolog.ParseLevel(conf.Logger.Level)
	if err != nil {
		return nil, fmt.Errorf("unknown log level %q: %w", conf.Logger.Level, err)
	}
	if conf.Debug {
		level = zerolog.DebugLevel
	}

	p := &LogProvider{loggers: make(map[TypeEnum]zerolog.Logger, len(logFileNames))}
	for t, name := range logFileNames {
		path := filepath.Join(conf.Logger.Dir, name)
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, os.FileMode(conf.Logger.Mode))
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
		}
		p.files = append(p.files, file)
		p.loggers[t] = zerolog.New(file).Level(level).With().Timestamp().Logger()
	}
	return p, nil
}

func (p *LogProvider) Errorf(t TypeEnum, format string, args ...interface{}) {
	l := p.loggers[t]
	l.Error().Msgf(format, args...)
}

func (p *LogProvider) Warnf(t TypeEnum, format string, args ...interface{}) {
	l := p.loggers[t]
	l.Warn().Msgf(format, args...)
}

func (p *LogProvider) Debugf(t TypeEnum, format string, args ...interface{}) {
	l := p.loggers[t]
	l.Debug().Msgf(format, args...)
}

func (p *LogProvider) Infof(t TypeEnum, format string, args ...interface{}) {
	l := p.loggers[t]
	l.Info().Msgf(format, args...)
}

func (p *LogProvider) Fatalf(t TypeEnum, format string, args ...interface{}) {
	l := p.loggers[t]
	l.Fatal().Msgf(format, args...)
}

func (p *LogProvider) Close() {
	for _, file := range p.files {
		file.Close()
	}
}

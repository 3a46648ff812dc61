// Package config загружает настройки Rowpipe.
//
// Источники в порядке приоритета (последний побеждает):
//  1. значения по умолчанию
//  2. YAML-файл настроек (если есть)
//  3. переменные окружения ROWPIPE_* ("__" — вложенность)
//
// Флаги командной строки применяются поверх в пакете cli.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix — префикс переменных окружения.
const EnvPrefix = "ROWPIPE_"

// DefaultFile — файл настроек, который читается, если путь не задан явно.
const DefaultFile = "rowpipe.yaml"

// Драйверы журнала ошибок.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverAMQP     = "amqp"
	DriverNone     = "none"
)

// ErrUnknownDriver — неизвестный драйвер журнала ошибок.
var ErrUnknownDriver = errors.New("unknown failure log driver")

// Settings — настройки запуска.
type Settings struct {
	API        APISettings        `koanf:"api"`
	HTTP       HTTPSettings       `koanf:"http"`
	Batch      BatchSettings      `koanf:"batch"`
	FailureLog FailureLogSettings `koanf:"failure_log"`
	Metrics    MetricsSettings    `koanf:"metrics"`
	Trace      TraceSettings      `koanf:"trace"`
}

// APISettings — учётные данные целевого API.
type APISettings struct {
	Key    string `koanf:"key"`
	Header string `koanf:"header"`
	Scheme string `koanf:"scheme"`
}

// HTTPSettings — настройки HTTP транспорта.
type HTTPSettings struct {
	Timeout time.Duration `koanf:"timeout"`
}

// BatchSettings — настройки пакетной обработки.
type BatchSettings struct {
	// Delay — пауза между строками; перекрывает delayMs из файла запросов.
	Delay time.Duration `koanf:"delay"`
}

// FailureLogSettings — куда писать упавшие строки.
type FailureLogSettings struct {
	Driver string `koanf:"driver"`
	Path   string `koanf:"path"`
	DSN    string `koanf:"dsn"`
	URL    string `koanf:"url"`
}

// MetricsSettings — экспорт метрик Prometheus.
type MetricsSettings struct {
	Addr string `koanf:"addr"`
}

// TraceSettings — выгрузка трассировок.
type TraceSettings struct {
	File string `koanf:"file"`
}

// defaults — значения по умолчанию.
var defaults = map[string]any{
	"api.header":         "Authorization",
	"api.scheme":         "Bearer",
	"http.timeout":       "30s",
	"failure_log.driver": DriverFile,
	"failure_log.path":   "rowpipe-errors.jsonl",
}

// Load загружает настройки.
//
// Пустой path означает DefaultFile; его отсутствие не считается ошибкой.
// Явно указанный, но отсутствующий файл — ошибка.
func Load(path string) (*Settings, error) {
	k := koanf.New(".")

	for key, value := range defaults {
		k.Set(key, value)
	}

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if explicit || !os.IsNotExist(err) {
			return nil, fmt.Errorf("load settings %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load env settings: %w", err)
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate проверяет согласованность настроек.
func (s *Settings) Validate() error {
	s.FailureLog.Driver = strings.ToLower(strings.TrimSpace(s.FailureLog.Driver))

	switch s.FailureLog.Driver {
	case DriverFile:
		if s.FailureLog.Path == "" {
			return fmt.Errorf("failure_log.path is required for driver %q", DriverFile)
		}
	case DriverPostgres, DriverSQLite:
		if s.FailureLog.DSN == "" {
			return fmt.Errorf("failure_log.dsn is required for driver %q", s.FailureLog.Driver)
		}
	case DriverAMQP:
		if s.FailureLog.URL == "" {
			return fmt.Errorf("failure_log.url is required for driver %q", DriverAMQP)
		}
	case DriverNone, "":
		s.FailureLog.Driver = DriverNone
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, s.FailureLog.Driver)
	}

	if s.HTTP.Timeout < 0 || s.Batch.Delay < 0 {
		return errors.New("http.timeout and batch.delay must not be negative")
	}
	return nil
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rowpipe.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	// Файла по умолчанию нет в рабочей директории теста
	chdirForTest(t, t.TempDir())

	s, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.API.Header != "Authorization" || s.API.Scheme != "Bearer" {
		t.Errorf("unexpected api defaults: %+v", s.API)
	}
	if s.HTTP.Timeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", s.HTTP.Timeout)
	}
	if s.FailureLog.Driver != DriverFile || s.FailureLog.Path != "rowpipe-errors.jsonl" {
		t.Errorf("unexpected failure log defaults: %+v", s.FailureLog)
	}
	if s.Batch.Delay != 0 {
		t.Errorf("expected no delay, got %v", s.Batch.Delay)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeFile(t, `
api:
  key: from-file
  header: X-Api-Key
  scheme: ""
http:
  timeout: 5s
batch:
  delay: 250ms
failure_log:
  driver: sqlite
  dsn: failures.db
`)

	// Окружение перекрывает файл
	t.Setenv("ROWPIPE_API__KEY", "from-env")
	t.Setenv("ROWPIPE_METRICS__ADDR", ":9090")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.API.Key != "from-env" {
		t.Errorf("env should override file, got %q", s.API.Key)
	}
	if s.API.Header != "X-Api-Key" || s.API.Scheme != "" {
		t.Errorf("unexpected api settings: %+v", s.API)
	}
	if s.HTTP.Timeout != 5*time.Second || s.Batch.Delay != 250*time.Millisecond {
		t.Errorf("unexpected durations: %v %v", s.HTTP.Timeout, s.Batch.Delay)
	}
	if s.FailureLog.Driver != DriverSQLite || s.FailureLog.DSN != "failures.db" {
		t.Errorf("unexpected failure log: %+v", s.FailureLog)
	}
	if s.Metrics.Addr != ":9090" {
		t.Errorf("expected metrics addr from env, got %q", s.Metrics.Addr)
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		log     FailureLogSettings
		wantErr bool
	}{
		{"file with path", FailureLogSettings{Driver: "file", Path: "x.jsonl"}, false},
		{"file without path", FailureLogSettings{Driver: "file"}, true},
		{"postgres without dsn", FailureLogSettings{Driver: "postgres"}, true},
		{"postgres with dsn", FailureLogSettings{Driver: "Postgres", DSN: "postgres://localhost/db"}, false},
		{"amqp without url", FailureLogSettings{Driver: "amqp"}, true},
		{"none", FailureLogSettings{Driver: "none"}, false},
		{"empty means none", FailureLogSettings{}, false},
		{"unknown", FailureLogSettings{Driver: "kafka"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Settings{FailureLog: tt.log}
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	s := &Settings{FailureLog: FailureLogSettings{Driver: "kafka"}}
	if err := s.Validate(); !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("expected ErrUnknownDriver, got %v", err)
	}

	s = &Settings{}
	if err := s.Validate(); err != nil || s.FailureLog.Driver != DriverNone {
		t.Errorf("empty driver should normalize to none, got %q (%v)", s.FailureLog.Driver, err)
	}
}

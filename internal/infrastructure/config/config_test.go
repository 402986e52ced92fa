package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
site:
  id: "dome-east"
  timezone: "America/Denver"
  technician: "ops"
database:
  path: "/tmp/inventory.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  enabled: true
  broker:
    host: "broker.local"
    port: 1883
  qos: 1
  topic_prefix: "dome"
metrics:
  enabled: true
  pushgateway_url: "http://push.local:9091"
  job: "pjinventory-nightly"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "dome-east" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "dome-east")
	}
	if cfg.Site.Technician != "ops" {
		t.Errorf("Site.Technician = %q, want %q", cfg.Site.Technician, "ops")
	}
	if cfg.Database.Path != "/tmp/inventory.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/inventory.db")
	}
	if !cfg.MQTT.Enabled || cfg.MQTT.TopicPrefix != "dome" {
		t.Errorf("MQTT = %+v, want enabled with prefix dome", cfg.MQTT)
	}
	if cfg.MQTT.Broker.ClientID != "pjinventory" {
		t.Errorf("MQTT.Broker.ClientID = %q, default should survive a partial section", cfg.MQTT.Broker.ClientID)
	}
	if cfg.Location().String() != "America/Denver" {
		t.Errorf("Location() = %s, want America/Denver", cfg.Location())
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.MQTT.Enabled || cfg.InfluxDB.Enabled || cfg.Metrics.Enabled {
		t.Error("optional integrations should default to disabled")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	_, err := Load(writeConfig(t, `
site:
  id: ""
database:
  path: ""
`))
	if err == nil {
		t.Fatal("Load() expected validation error, got nil")
	}
	for _, want := range []string{"site.id", "database.path"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config { return defaultConfig() }

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"missing site ID", func(c *Config) { c.Site.ID = "" }, true},
		{"unknown timezone", func(c *Config) { c.Site.Timezone = "Mars/Olympus" }, true},
		{"missing database path", func(c *Config) { c.Database.Path = "" }, true},
		{"negative busy timeout", func(c *Config) { c.Database.BusyTimeout = -1 }, true},
		{"invalid QoS", func(c *Config) { c.MQTT.QoS = 3 }, true},
		{"mqtt enabled without host", func(c *Config) { c.MQTT.Enabled = true; c.MQTT.Broker.Host = "" }, true},
		{"mqtt prefix wildcard", func(c *Config) { c.MQTT.Enabled = true; c.MQTT.TopicPrefix = "dome/#" }, true},
		{"mqtt disabled ignores broker", func(c *Config) { c.MQTT.Broker.Host = "" }, false},
		{"influx enabled without bucket", func(c *Config) { c.InfluxDB.Enabled = true; c.InfluxDB.Bucket = "" }, true},
		{"metrics relative url", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.PushgatewayURL = "push:9091" }, true},
		{"metrics valid", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.PushgatewayURL = "http://push:9091" }, false},
		{"api port out of range", func(c *Config) { c.API.Port = 70000 }, true},
		{"api negative timeout", func(c *Config) { c.API.Timeouts.Write = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("PJINVENTORY_DATABASE_PATH", "/custom/path.db")
	t.Setenv("PJINVENTORY_TECHNICIAN", "night shift")
	t.Setenv("PJINVENTORY_MQTT_ENABLED", "true")
	t.Setenv("PJINVENTORY_MQTT_HOST", "mqtt.example.com")
	t.Setenv("PJINVENTORY_MQTT_USERNAME", "testuser")
	t.Setenv("PJINVENTORY_MQTT_PASSWORD", "testpass")
	t.Setenv("PJINVENTORY_INFLUXDB_ENABLED", "not-a-bool")
	t.Setenv("PJINVENTORY_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("PJINVENTORY_LOG_LEVEL", "debug")
	t.Setenv("PJINVENTORY_PUSHGATEWAY_URL", "http://push:9091")
	t.Setenv("PJINVENTORY_API_HOST", "0.0.0.0")
	t.Setenv("PJINVENTORY_API_PORT", "9000")

	applyEnvOverrides(cfg)

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}
	if cfg.Site.Technician != "night shift" {
		t.Errorf("Site.Technician = %q, want %q", cfg.Site.Technician, "night shift")
	}
	if !cfg.MQTT.Enabled || cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT = %+v", cfg.MQTT)
	}
	if cfg.MQTT.Auth.Username != "testuser" || cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth = %+v", cfg.MQTT.Auth)
	}
	if cfg.InfluxDB.Enabled {
		t.Error("InfluxDB.Enabled should keep its value when the override does not parse")
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.PushgatewayURL != "http://push:9091" {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
	if cfg.API.Host != "0.0.0.0" || cfg.API.Port != 9000 {
		t.Errorf("API = %+v", cfg.API)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.FlushInterval() != 10*time.Second {
		t.Errorf("FlushInterval() = %v, want 10s", cfg.FlushInterval())
	}
	if cfg.Location() != time.UTC {
		t.Errorf("Location() = %v, want UTC", cfg.Location())
	}
}

func TestLoad_SampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "..", "configs", "pjinventory.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.Port != 8090 || cfg.Location().String() != "America/Denver" {
		t.Errorf("sample config = %+v", cfg)
	}
}

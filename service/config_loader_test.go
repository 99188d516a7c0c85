package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dohoonk/roomdetect/floorplan"
)

func validConfigYAML() string {
	return `http:
  port: 9090
mqtt:
  broker: tcp://localhost:1883
  publishPrefix: floors
  clientId: roomdetect-test
sources:
  - id: level-1
    topic: plans/level-1/walls
  - id: level-2
    url: http://plans.local/level-2.json
    pollInterval: 30s
detection:
  tolerance: 0.5
  minArea: 250
  deadline: 2s
history:
  path: /tmp/roomdetect/history.db
`
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config fixture: %v", err)
	}
	return path
}

func clearMQTTEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"MQTT_BROKER", "MQTT_CLIENT_ID", "MQTT_USERNAME", "MQTT_PASSWORD", "MQTT_PUBLISH_PREFIX"} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_NotExists(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Fatalf("LoadConfig() error = %v, want not found", err)
	}
}

func TestLoadConfig_ValidYAML(t *testing.T) {
	clearMQTTEnv(t)
	cfg, err := LoadConfig(writeConfig(t, validConfigYAML()))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Port() != 9090 {
		t.Errorf("Port() = %d, want 9090", cfg.Port())
	}
	if cfg.MQTT.PublishPrefix != "floors" {
		t.Errorf("PublishPrefix = %q, want floors", cfg.MQTT.PublishPrefix)
	}
	if len(cfg.Sources) != 2 {
		t.Fatalf("len(Sources) = %d, want 2", len(cfg.Sources))
	}
	if cfg.Sources[1].PollInterval != 30*time.Second {
		t.Errorf("PollInterval = %v, want 30s", cfg.Sources[1].PollInterval)
	}
	if src := cfg.GetSourceByID("level-2"); src == nil || src.URL != "http://plans.local/level-2.json" {
		t.Errorf("GetSourceByID(level-2) = %+v", src)
	}
	if cfg.GetSourceByID("attic") != nil {
		t.Error("GetSourceByID(attic) should be nil")
	}
	if cfg.History.Path != "/tmp/roomdetect/history.db" {
		t.Errorf("History.Path = %q", cfg.History.Path)
	}

	opts := cfg.Detection.Options()
	if opts.Tolerance != 0.5 || opts.MinArea != 250 || opts.Deadline != 2*time.Second {
		t.Errorf("Options() = %+v", opts)
	}
	if opts.MinPerimeter != floorplan.DefaultMinPerimeter {
		t.Errorf("MinPerimeter = %v, want default", opts.MinPerimeter)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearMQTTEnv(t)
	t.Setenv("MQTT_BROKER", "tcp://broker.env:1883")
	t.Setenv("MQTT_PUBLISH_PREFIX", "env-prefix")
	t.Setenv("MQTT_USERNAME", "alice")

	cfg, err := LoadConfig(writeConfig(t, validConfigYAML()))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.MQTT.Broker != "tcp://broker.env:1883" {
		t.Errorf("Broker = %q", cfg.MQTT.Broker)
	}
	if cfg.MQTT.PublishPrefix != "env-prefix" {
		t.Errorf("PublishPrefix = %q", cfg.MQTT.PublishPrefix)
	}
	if cfg.MQTT.Username != "alice" {
		t.Errorf("Username = %q", cfg.MQTT.Username)
	}
	if cfg.MQTT.ClientID != "roomdetect-test" {
		t.Errorf("ClientID = %q, want file value", cfg.MQTT.ClientID)
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	clearMQTTEnv(t)
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing source id",
			yaml: "sources:\n  - url: http://x\n",
			want: "sources[0].id is required",
		},
		{
			name: "duplicate source id",
			yaml: "sources:\n  - id: a\n    url: http://x\n  - id: a\n    url: http://y\n",
			want: "duplicated",
		},
		{
			name: "source without input",
			yaml: "sources:\n  - id: a\n",
			want: "needs a topic or a url",
		},
		{
			name: "topic without broker",
			yaml: "sources:\n  - id: a\n    topic: t\n",
			want: "requires mqtt.broker",
		},
		{
			name: "negative tolerance",
			yaml: "detection:\n  tolerance: -1\n",
			want: "tolerance must be positive",
		},
		{
			name: "negative threshold",
			yaml: "detection:\n  minArea: -5\n",
			want: "must not be negative",
		},
		{
			name: "bad yaml",
			yaml: "sources: [",
			want: "parsing config YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("LoadConfig() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestLoadConfig_EmptyFileUsesDefaults(t *testing.T) {
	clearMQTTEnv(t)
	cfg, err := LoadConfig(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port() != DefaultHTTPPort {
		t.Errorf("Port() = %d, want %d", cfg.Port(), DefaultHTTPPort)
	}
	if got := cfg.Detection.Options(); got != floorplan.DefaultOptions() {
		t.Errorf("Options() = %+v, want defaults", got)
	}
}

func TestDefaultConfig_EnvOverrides(t *testing.T) {
	clearMQTTEnv(t)
	t.Setenv("MQTT_BROKER", "tcp://broker.local:1883")
	t.Setenv("MQTT_PUBLISH_PREFIX", "floors")

	cfg := DefaultConfig()
	if cfg.MQTT.Broker != "tcp://broker.local:1883" {
		t.Errorf("Broker = %q, want env value", cfg.MQTT.Broker)
	}
	if cfg.MQTT.PublishPrefix != "floors" {
		t.Errorf("PublishPrefix = %q, want floors", cfg.MQTT.PublishPrefix)
	}
	if len(cfg.Sources) != 0 {
		t.Errorf("Sources = %+v, want none", cfg.Sources)
	}
}

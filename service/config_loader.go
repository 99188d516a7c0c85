package service

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads the service configuration from a YAML file and applies
// MQTT_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	applyEnvOverrides(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// DefaultConfig is the configuration used when no file exists: no sources,
// default detection options and MQTT_* environment overrides.
func DefaultConfig() *Config {
	config := &Config{}
	applyEnvOverrides(config)
	return config
}

// Validate checks the source list and detection overrides.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Sources))
	for i, sc := range c.Sources {
		if sc.ID == "" {
			return fmt.Errorf("sources[%d].id is required", i)
		}
		if seen[sc.ID] {
			return fmt.Errorf("sources[%d].id %q is duplicated", i, sc.ID)
		}
		seen[sc.ID] = true
		if sc.Topic == "" && sc.URL == "" {
			return fmt.Errorf("sources[%d] needs a topic or a url for %s", i, sc.ID)
		}
		if sc.Topic != "" && c.MQTT.Broker == "" {
			return fmt.Errorf("sources[%d].topic requires mqtt.broker", i)
		}
	}

	opts := c.Detection.Options()
	if opts.Tolerance <= 0 {
		return fmt.Errorf("detection.tolerance must be positive")
	}
	if opts.MinArea < 0 || opts.MinPerimeter < 0 || opts.MaxArea < 0 {
		return fmt.Errorf("detection thresholds must not be negative")
	}
	return nil
}

// applyEnvOverrides lets MQTT_* variables take precedence over the file.
func applyEnvOverrides(config *Config) {
	overrides := []struct {
		env    string
		target *string
	}{
		{"MQTT_BROKER", &config.MQTT.Broker},
		{"MQTT_CLIENT_ID", &config.MQTT.ClientID},
		{"MQTT_USERNAME", &config.MQTT.Username},
		{"MQTT_PASSWORD", &config.MQTT.Password},
		{"MQTT_PUBLISH_PREFIX", &config.MQTT.PublishPrefix},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}

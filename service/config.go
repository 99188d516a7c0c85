package service

import (
	"time"

	"github.com/dohoonk/roomdetect/floorplan"
)

// Config represents the full configuration file
type Config struct {
	HTTP      HTTPConfig      `yaml:"http" json:"http"`
	MQTT      MQTTConfig      `yaml:"mqtt" json:"mqtt"`
	Sources   []SourceConfig  `yaml:"sources" json:"sources"`
	Detection DetectionConfig `yaml:"detection" json:"detection"`
	History   HistoryConfig   `yaml:"history" json:"history"`
}

// HTTPConfig holds HTTP server settings
type HTTPConfig struct {
	Port int `yaml:"port" json:"port"`
}

// MQTTConfig holds MQTT connection settings
type MQTTConfig struct {
	Broker        string `yaml:"broker" json:"broker"`
	PublishPrefix string `yaml:"publishPrefix" json:"publishPrefix"`
	ClientID      string `yaml:"clientId" json:"clientId"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
}

// SourceConfig describes one producer of wall segments. A source is fed
// either by an MQTT topic, by polling a URL, or both.
type SourceConfig struct {
	ID    string `yaml:"id" json:"id"`
	Topic string `yaml:"topic,omitempty" json:"topic,omitempty"`
	URL   string `yaml:"url,omitempty" json:"url,omitempty"`
	// PollInterval is how often URL is fetched; zero fetches once at startup.
	PollInterval time.Duration `yaml:"pollInterval,omitempty" json:"pollInterval,omitempty"`
}

// DetectionConfig overrides the detection defaults. Nil fields keep the
// default value.
type DetectionConfig struct {
	Tolerance    *float64       `yaml:"tolerance,omitempty" json:"tolerance,omitempty"`
	MinArea      *float64       `yaml:"minArea,omitempty" json:"minArea,omitempty"`
	MinPerimeter *float64       `yaml:"minPerimeter,omitempty" json:"minPerimeter,omitempty"`
	MaxArea      *float64       `yaml:"maxArea,omitempty" json:"maxArea,omitempty"`
	CanonicalMin *float64       `yaml:"canonicalMin,omitempty" json:"canonicalMin,omitempty"`
	CanonicalMax *float64       `yaml:"canonicalMax,omitempty" json:"canonicalMax,omitempty"`
	Deadline     *time.Duration `yaml:"deadline,omitempty" json:"deadline,omitempty"`
	NameHint     string         `yaml:"nameHint,omitempty" json:"nameHint,omitempty"`
}

// HistoryConfig locates the run history database. An empty path disables it.
type HistoryConfig struct {
	Path string `yaml:"path" json:"path"`
}

// DefaultHTTPPort is used when http.port is not set.
const DefaultHTTPPort = 8080

// Options returns the detection options with the overrides applied.
func (d DetectionConfig) Options() floorplan.Options {
	opts := floorplan.DefaultOptions()
	if d.Tolerance != nil {
		opts.Tolerance = *d.Tolerance
	}
	if d.MinArea != nil {
		opts.MinArea = *d.MinArea
	}
	if d.MinPerimeter != nil {
		opts.MinPerimeter = *d.MinPerimeter
	}
	if d.MaxArea != nil {
		opts.MaxArea = *d.MaxArea
	}
	if d.CanonicalMin != nil {
		opts.CanonicalMin = *d.CanonicalMin
	}
	if d.CanonicalMax != nil {
		opts.CanonicalMax = *d.CanonicalMax
	}
	if d.Deadline != nil {
		opts.Deadline = *d.Deadline
	}
	if d.NameHint != "" {
		opts.NameHint = d.NameHint
	}
	return opts
}

// GetSourceByID returns the source config for the given ID
func (c *Config) GetSourceByID(id string) *SourceConfig {
	for i := range c.Sources {
		if c.Sources[i].ID == id {
			return &c.Sources[i]
		}
	}
	return nil
}

// Port returns the configured HTTP port or DefaultHTTPPort.
func (c *Config) Port() int {
	if c.HTTP.Port > 0 {
		return c.HTTP.Port
	}
	return DefaultHTTPPort
}

package utils

import (
	"time"

	"github.com/holo2k/AdvertControl-sub000/pkg/file"
)

// Config represents the structure of the agent configuration file.
type Config struct {
	Server struct {
		BaseURL string        `yaml:"base_url"` // Backend base URL
		Timeout time.Duration `yaml:"timeout"`  // HTTP request timeout
	} `yaml:"server"`

	Identity struct {
		ScreenFile string `yaml:"screen_file"` // Path to the screen identity file
	} `yaml:"identity"`

	Pairing struct {
		TTLMinutes   int           `yaml:"ttl_minutes"`   // Broker-side lifetime of a pairing code
		PollInterval time.Duration `yaml:"poll_interval"` // Interval between status polls
		Window       time.Duration `yaml:"window"`        // How long to wait for a confirmation per code
		RetryDelay   time.Duration `yaml:"retry_delay"`   // Delay after a register conflict/failure
		IdleDelay    time.Duration `yaml:"idle_delay"`    // Delay after an expired window
	} `yaml:"pairing"`

	Poll struct {
		Interval time.Duration `yaml:"interval"` // Interval between config fetches
	} `yaml:"poll"`

	Cache struct {
		Dir      string `yaml:"dir"`       // Content cache directory
		MaxBytes int64  `yaml:"max_bytes"` // Size bound for the cache, 0 disables eviction
	} `yaml:"cache"`

	Playback struct {
		IdleInterval       time.Duration `yaml:"idle_interval"`        // Re-check interval when there is nothing to show
		DefaultItemSeconds int           `yaml:"default_item_seconds"` // Display time for items without a duration
	} `yaml:"playback"`

	Status struct {
		Enabled       bool          `yaml:"enabled"`        // Enable/disable the MQTT status publisher
		Broker        string        `yaml:"broker"`         // MQTT broker address
		ClientID      string        `yaml:"client_id"`      // MQTT client ID
		CACertificate string        `yaml:"ca_certificate"` // Path to the CA certificate, empty for plain TCP
		Topic         string        `yaml:"topic"`          // MQTT topic for status events
		Interval      time.Duration `yaml:"interval"`       // Interval between status events
		QOS           int           `yaml:"qos"`            // MQTT QoS level for status events
	} `yaml:"status"`
}

// LoadConfig loads the YAML configuration from the specified file and fills
// in defaults for the timing knobs that were left unset.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	if err := fileClient.ReadYamlFile(filename, &config); err != nil {
		return nil, err
	}

	applyDefaults(&config)
	return &config, nil
}

func applyDefaults(c *Config) {
	if c.Server.Timeout <= 0 {
		c.Server.Timeout = 10 * time.Second
	}
	if c.Pairing.TTLMinutes <= 0 {
		c.Pairing.TTLMinutes = 5
	}
	if c.Pairing.PollInterval <= 0 {
		c.Pairing.PollInterval = 2 * time.Second
	}
	if c.Pairing.Window <= 0 {
		c.Pairing.Window = 5 * time.Minute
	}
	if c.Pairing.RetryDelay <= 0 {
		c.Pairing.RetryDelay = 5 * time.Second
	}
	if c.Pairing.IdleDelay <= 0 {
		c.Pairing.IdleDelay = 5 * time.Minute
	}
	if c.Poll.Interval <= 0 {
		c.Poll.Interval = 5 * time.Second
	}
	if c.Playback.IdleInterval <= 0 {
		c.Playback.IdleInterval = 200 * time.Millisecond
	}
	if c.Playback.DefaultItemSeconds <= 0 {
		c.Playback.DefaultItemSeconds = 10
	}
	if c.Status.Interval <= 0 {
		c.Status.Interval = 30 * time.Second
	}
}

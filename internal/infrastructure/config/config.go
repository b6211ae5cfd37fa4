package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Section names owned by the core. Recording backends register their own
// sections under their backend name.
const (
	SectionBase    = "Base"
	SectionLogging = "Logging"
)

// BaseConfig contains the gateway connection and polling settings.
type BaseConfig struct {
	// URL is the gateway base URL, e.g. http://fritz.box.
	URL string `yaml:"url" toml:"url"`

	Username string `yaml:"username" toml:"username"`
	Password string `yaml:"password" toml:"password"`

	// Interval is the polling interval in seconds.
	Interval int `yaml:"interval" toml:"interval"`

	// Backends lists the recording backends to enable, by exact name.
	Backends []string `yaml:"backends" toml:"backends"`
}

// DefaultBaseConfig returns the Base section defaults.
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		URL:      "http://fritz.box",
		Username: "",
		Password: "",
		Interval: 60,
		Backends: []string{"Console"},
	}
}

// PollInterval returns Interval as a time.Duration.
func (c BaseConfig) PollInterval() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

// Validate checks the Base section for values the poller cannot work with.
//
// Returns:
//   - error: ErrInvalidConfig wrapped with every problem found, or nil
func (c BaseConfig) Validate() error {
	var errs []string

	u, err := url.Parse(c.URL)
	switch {
	case c.URL == "":
		errs = append(errs, "url is required")
	case err != nil:
		errs = append(errs, fmt.Sprintf("url %q is not valid: %v", c.URL, err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Sprintf("url %q must use http or https", c.URL))
	}

	if c.Interval < 1 {
		errs = append(errs, "interval must be at least 1 second")
	}
	if len(c.Backends) == 0 {
		errs = append(errs, "at least one backend must be enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	Output string `yaml:"output" toml:"output"`
}

// DefaultLoggingConfig returns the Logging section defaults.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:  "info",
		Format: "text",
		Output: "stderr",
	}
}

// CSVConfig contains the Csv backend settings.
type CSVConfig struct {
	// OutDir is the directory temperature.csv and energy.csv are appended to.
	OutDir string `yaml:"out_dir" toml:"out_dir"`
}

// DefaultCSVConfig returns the Csv section defaults.
func DefaultCSVConfig() CSVConfig {
	return CSVConfig{OutDir: "."}
}

// InfluxDBConfig contains InfluxDB v2 settings.
type InfluxDBConfig struct {
	URL    string `yaml:"url" toml:"url"`
	Token  string `yaml:"token" toml:"token"`
	Org    string `yaml:"org" toml:"org"`
	Bucket string `yaml:"bucket" toml:"bucket"`

	// BatchSize is the number of points buffered before a write.
	BatchSize int `yaml:"batch_size" toml:"batch_size"`

	// FlushInterval is the maximum time in seconds points stay buffered.
	FlushInterval int `yaml:"flush_interval" toml:"flush_interval"`
}

// DefaultInfluxDBConfig returns the InfluxDB section defaults.
func DefaultInfluxDBConfig() InfluxDBConfig {
	return InfluxDBConfig{
		URL:           "http://localhost:8086",
		Token:         "",
		Org:           "aha",
		Bucket:        "aha",
		BatchSize:     100,
		FlushInterval: 10,
	}
}

// MQTTConfig contains MQTT broker settings.
type MQTTConfig struct {
	// Broker is the broker URL, e.g. tcp://localhost:1883.
	Broker string `yaml:"broker" toml:"broker"`

	// ClientID is generated when empty.
	ClientID string `yaml:"client_id" toml:"client_id"`

	Username string `yaml:"username" toml:"username"`
	Password string `yaml:"password" toml:"password"`

	QoS         int    `yaml:"qos" toml:"qos"`
	TopicPrefix string `yaml:"topic_prefix" toml:"topic_prefix"`
	Retain      bool   `yaml:"retain" toml:"retain"`

	// ConnectTimeout is in seconds.
	ConnectTimeout int `yaml:"connect_timeout" toml:"connect_timeout"`
}

// DefaultMQTTConfig returns the MQTT section defaults.
func DefaultMQTTConfig() MQTTConfig {
	return MQTTConfig{
		Broker:         "tcp://localhost:1883",
		ClientID:       "",
		Username:       "",
		Password:       "",
		QoS:            1,
		TopicPrefix:    "aha",
		Retain:         true,
		ConnectTimeout: 10,
	}
}

// SQLConfig contains relational storage settings.
type SQLConfig struct {
	// URL selects the driver by scheme: sqlite://, mysql:// or postgres://.
	URL string `yaml:"url" toml:"url"`

	// BusyTimeout is the SQLite busy timeout in seconds.
	BusyTimeout int `yaml:"busy_timeout" toml:"busy_timeout"`
}

// DefaultSQLConfig returns the SQL section defaults.
func DefaultSQLConfig() SQLConfig {
	return SQLConfig{
		URL:         "sqlite://aharecorder.db",
		BusyTimeout: 5,
	}
}

// TSDBConfig contains VictoriaMetrics settings.
type TSDBConfig struct {
	URL           string `yaml:"url" toml:"url"`
	BatchSize     int    `yaml:"batch_size" toml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval" toml:"flush_interval"`
}

// DefaultTSDBConfig returns the TSDB section defaults.
func DefaultTSDBConfig() TSDBConfig {
	return TSDBConfig{
		URL:           "http://localhost:8428",
		BatchSize:     500,
		FlushInterval: 10,
	}
}

// WebConfig contains the HTTP/WebSocket backend settings.
type WebConfig struct {
	Listen string `yaml:"listen" toml:"listen"`

	// ReadTimeout and WriteTimeout are in seconds.
	ReadTimeout  int `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout int `yaml:"write_timeout" toml:"write_timeout"`

	// DashboardDir serves the dashboard from a directory instead of the
	// embedded page when set.
	DashboardDir string `yaml:"dashboard_dir" toml:"dashboard_dir"`
}

// DefaultWebConfig returns the Web section defaults.
func DefaultWebConfig() WebConfig {
	return WebConfig{
		Listen:       "127.0.0.1:8080",
		ReadTimeout:  10,
		WriteTimeout: 10,
	}
}

package config

import (
	"strconv"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig      `mapstructure:"app" json:"app"`
	Device    DeviceConfig   `mapstructure:"device" json:"device"`
	Location  LocationConfig `mapstructure:"location" json:"location"`
	UserAgent string         `mapstructure:"user_agent" json:"user_agent"`
	Remote    RemoteConfig   `mapstructure:"remote" json:"remote"`
	Capture   CaptureConfig  `mapstructure:"capture" json:"capture"`
	Session   SessionConfig  `mapstructure:"session" json:"session"`
	Logging   LoggingConfig  `mapstructure:"logging" json:"logging"`
	Metrics   MetricsConfig  `mapstructure:"metrics" json:"metrics"`
}

type AppConfig struct {
	Name        string `mapstructure:"name" json:"name"`
	Environment string `mapstructure:"environment" json:"environment"`
}

// DeviceConfig is the device profile used verbatim in every signed request
// and in the encrypted fingerprint.
type DeviceConfig struct {
	Brand    string `mapstructure:"brand" json:"brand"`
	Model    string `mapstructure:"model" json:"model"`
	System   string `mapstructure:"system" json:"system"`
	Platform string `mapstructure:"platform" json:"platform"`
}

// LocationConfig carries the configured check-in coordinates. Values stay
// strings: they are sent on the wire exactly as configured.
type LocationConfig struct {
	Longitude string `mapstructure:"longitude" json:"longitude"`
	Latitude  string `mapstructure:"latitude" json:"latitude"`
}

type RemoteConfig struct {
	BaseURL        string `mapstructure:"base_url" json:"base_url"`
	Timeout        int    `mapstructure:"timeout" json:"timeout"`                 // milliseconds
	JournalTimeout int    `mapstructure:"journal_timeout" json:"journal_timeout"` // milliseconds
}

type CaptureConfig struct {
	Host     string `mapstructure:"host" json:"host"`
	Port     int    `mapstructure:"port" json:"port"`
	CodeFile string `mapstructure:"code_file" json:"code_file"`
	Timeout  int    `mapstructure:"timeout" json:"timeout"` // milliseconds
}

type SessionConfig struct {
	CacheFile string `mapstructure:"cache_file" json:"cache_file"`
	TTL       int    `mapstructure:"ttl" json:"ttl"` // milliseconds
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Addr    string `mapstructure:"addr" json:"addr"`
}

// ProxyAddr returns the host:port the capture proxy listens on.
func (c CaptureConfig) ProxyAddr() string {
	if c.Host == "" {
		return ""
	}
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// GetDuration converts milliseconds from config to time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

package config

import (
	"fmt"

	"github.com/spf13/viper"
)

const (
	SchemaVersion       = 1
	DefaultPath         = "/etc/eufyvac/config.yaml"
	DefaultGRPCAddr     = "0.0.0.0:9000"
	DefaultHTTPAddr     = "0.0.0.0:8080"
	DefaultDashboardDir = "/var/lib/eufyvac/dashboards"
	DefaultBlobPrefix   = "eufyvac/session"
)

// Config is the full daemon configuration.
type Config struct {
	SchemaVersion int         `mapstructure:"schema_version"`
	Core          CoreConfig  `mapstructure:"core"`
	Blob          *BlobConfig `mapstructure:"blob"`
	MQTT          *MQTTConfig `mapstructure:"mqtt"`
	Eufy          *EufyConfig `mapstructure:"eufy"`
}

// CoreConfig holds the daemon listen addresses.
type CoreConfig struct {
	GRPCAddr     string `mapstructure:"grpc_addr"`
	HTTPAddr     string `mapstructure:"http_addr"`
	DashboardDir string `mapstructure:"dashboard_dir"`
}

// BlobConfig configures the S3-compatible mirror for session state.
type BlobConfig struct {
	Endpoint      string `mapstructure:"endpoint"`
	Bucket        string `mapstructure:"bucket"`
	Prefix        string `mapstructure:"prefix"`
	AccessKeyFile string `mapstructure:"access_key_file"`
	SecretKeyFile string `mapstructure:"secret_key_file"`
}

// MQTTConfig configures the broker derived readings are mirrored to.
type MQTTConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	TLS         bool   `mapstructure:"tls"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

// EufyConfig holds the Eufy account and polling settings.
type EufyConfig struct {
	Email               string            `mapstructure:"email"`
	PasswordFile        string            `mapstructure:"password_file"`
	StatePath           string            `mapstructure:"state_path"`
	CountryCode         string            `mapstructure:"country_code"`
	PollIntervalSeconds int               `mapstructure:"poll_interval_seconds"`
	DeviceIPOverrides   map[string]string `mapstructure:"device_ip_overrides"`
}

// Load reads the YAML config file, applies defaults, and validates.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("core.grpc_addr", DefaultGRPCAddr)
	v.SetDefault("core.http_addr", DefaultHTTPAddr)
	v.SetDefault("core.dashboard_dir", DefaultDashboardDir)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Blob != nil && cfg.Blob.Prefix == "" {
		cfg.Blob.Prefix = DefaultBlobPrefix
	}
	if cfg.MQTT != nil && cfg.MQTT.Port == 0 {
		cfg.MQTT.Port = 1883
	}
}

// Validate enforces required invariants beyond YAML typing.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if cfg.SchemaVersion != SchemaVersion {
		return fmt.Errorf("schema_version must be %d", SchemaVersion)
	}

	if cfg.Core.GRPCAddr == "" {
		return fmt.Errorf("core.grpc_addr is required")
	}
	if cfg.Core.HTTPAddr == "" {
		return fmt.Errorf("core.http_addr is required")
	}
	if cfg.Core.DashboardDir == "" {
		return fmt.Errorf("core.dashboard_dir is required")
	}

	if cfg.Blob != nil {
		if cfg.Blob.Endpoint == "" {
			return fmt.Errorf("blob.endpoint is required")
		}
		if cfg.Blob.Bucket == "" {
			return fmt.Errorf("blob.bucket is required")
		}
		if cfg.Blob.AccessKeyFile == "" {
			return fmt.Errorf("blob.access_key_file is required")
		}
		if cfg.Blob.SecretKeyFile == "" {
			return fmt.Errorf("blob.secret_key_file is required")
		}
	}

	if cfg.MQTT != nil && cfg.MQTT.Host == "" {
		return fmt.Errorf("mqtt.host is required")
	}

	if cfg.Eufy != nil {
		if cfg.Eufy.Email == "" {
			return fmt.Errorf("eufy.email is required")
		}
		if cfg.Eufy.PasswordFile == "" {
			return fmt.Errorf("eufy.password_file is required")
		}
		if cfg.Eufy.PollIntervalSeconds < 0 {
			return fmt.Errorf("eufy.poll_interval_seconds must not be negative")
		}
	}

	return nil
}

// EnabledPlugins maps enabled plugin IDs based on config presence.
func EnabledPlugins(cfg *Config) map[string]bool {
	enabled := make(map[string]bool)
	if cfg == nil {
		return enabled
	}
	if cfg.Eufy != nil {
		enabled["eufy"] = true
	}
	return enabled
}

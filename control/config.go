// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Client configuration loading: YAML file, XIO_* environment overrides and
// built-in defaults, merged through viper.

package control

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ClientConfig is the root configuration of a WebSocket client session.
type ClientConfig struct {
	// Host and Port of the WebSocket endpoint.
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`

	// Resource is the request path of the upgrade.
	Resource string `mapstructure:"resource" yaml:"resource"`
	// Protocol is the requested Sec-WebSocket-Protocol.
	Protocol string `mapstructure:"protocol" yaml:"protocol"`
	// StrictHandshake validates the 101 response instead of only locating
	// the end of its headers.
	StrictHandshake bool `mapstructure:"strict_handshake" yaml:"strict_handshake"`

	// Plain skips TLS.
	Plain bool `mapstructure:"plain" yaml:"plain"`
	// TrustedCertsFile is a PEM bundle replacing the system roots.
	TrustedCertsFile string        `mapstructure:"trusted_certs_file" yaml:"trusted_certs_file"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout" yaml:"handshake_timeout"`
	PollInterval     time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`

	Proxy ProxyConfig `mapstructure:"proxy" yaml:"proxy"`
	Log   LogConfig   `mapstructure:"log" yaml:"log"`
}

// ProxyConfig describes an optional HTTP CONNECT proxy.
type ProxyConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level" yaml:"level"`
	// Format: console or json
	Format string `mapstructure:"format" yaml:"format"`
	// Outputs: stdout, stderr, or file paths
	Outputs     []string       `mapstructure:"outputs" yaml:"outputs"`
	Rotation    RotationConfig `mapstructure:"rotation" yaml:"rotation"`
	Development bool           `mapstructure:"development" yaml:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool `mapstructure:"enable" yaml:"enable"`
	MaxSizeMB  int  `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool `mapstructure:"compress" yaml:"compress"`
}

// DefaultClientConfig returns a ClientConfig populated with defaults.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Port:             443,
		Resource:         "/$iothub/websocket",
		Protocol:         "AMQPWSB10",
		HandshakeTimeout: 30 * time.Second,
		PollInterval:     time.Millisecond,
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stderr"},
			Rotation: RotationConfig{
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
			},
		},
	}
}

// NewViper returns a viper instance seeded with the client defaults and
// wired for XIO_* environment overrides. Example: XIO_PROXY_HOST=10.0.0.1
func NewViper() *viper.Viper {
	cfg := DefaultClientConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("XIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("host", cfg.Host)
	v.SetDefault("port", cfg.Port)
	v.SetDefault("resource", cfg.Resource)
	v.SetDefault("protocol", cfg.Protocol)
	v.SetDefault("strict_handshake", cfg.StrictHandshake)
	v.SetDefault("plain", cfg.Plain)
	v.SetDefault("trusted_certs_file", cfg.TrustedCertsFile)
	v.SetDefault("handshake_timeout", cfg.HandshakeTimeout)
	v.SetDefault("poll_interval", cfg.PollInterval)
	v.SetDefault("proxy.host", cfg.Proxy.Host)
	v.SetDefault("proxy.port", cfg.Proxy.Port)
	v.SetDefault("proxy.username", cfg.Proxy.Username)
	v.SetDefault("proxy.password", cfg.Proxy.Password)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
	return v
}

// LoadClientConfig reads path (if non-empty, else XIO_CONFIG or ./xio.yaml
// when present) into v and decodes the merged result. A nil v uses NewViper.
func LoadClientConfig(v *viper.Viper, path string) (*ClientConfig, error) {
	if v == nil {
		v = NewViper()
	}
	if path == "" {
		path = os.Getenv("XIO_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("xio")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".xio"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := DefaultClientConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and normalizes empty ones.
func (c *ClientConfig) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return errors.New("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Proxy.Host != "" && c.Proxy.Username != "" && c.Proxy.Password == "" {
		return errors.New("proxy.username given without proxy.password")
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stderr"}
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Millisecond
	}
	return nil
}

package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr" validate:"required"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout" validate:"gt=0"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gt=0"`

	JWTSecret   string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string `mapstructure:"jwt_audience" yaml:"jwt_audience"`

	// JWTLeeway tolerates clock skew on exp/nbf/iat.
	JWTLeeway time.Duration `mapstructure:"jwt_leeway" yaml:"jwt_leeway" validate:"gte=0"`

	// AllowedOrigins are host patterns for the WebSocket handshake; "*" allows any.
	AllowedOrigins  []string      `mapstructure:"allowed_origins" yaml:"allowed_origins" validate:"min=1,dive,required"`
	AuthTimeout     time.Duration `mapstructure:"auth_timeout" yaml:"auth_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"gt=0"`
	PingInterval    time.Duration `mapstructure:"ping_interval" yaml:"ping_interval" validate:"gte=0"`
	SendBuffer      int           `mapstructure:"send_buffer" yaml:"send_buffer" validate:"gte=1"`
	MaxMessageBytes int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes" validate:"gte=512"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn warning error"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" validate:"oneof=console json"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		AllowedOrigins:    []string{"*"},
		AuthTimeout:       10 * time.Second,
		WriteTimeout:      5 * time.Second,
		PingInterval:      25 * time.Second,
		SendBuffer:        32,
		MaxMessageBytes:   64 << 10,
		LogLevel:          "info",
		LogFormat:         "console",
	}
}

// AllowAnyOrigin reports whether the origin policy is permissive.
func (c *Config) AllowAnyOrigin() bool {
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
	if other.JWTIssuer != "" {
		c.JWTIssuer = other.JWTIssuer
	}
	if other.JWTAudience != "" {
		c.JWTAudience = other.JWTAudience
	}
	if other.JWTLeeway != 0 {
		c.JWTLeeway = other.JWTLeeway
	}
	if len(other.AllowedOrigins) != 0 {
		c.AllowedOrigins = other.AllowedOrigins
	}
	if other.AuthTimeout != 0 {
		c.AuthTimeout = other.AuthTimeout
	}
	if other.WriteTimeout != 0 {
		c.WriteTimeout = other.WriteTimeout
	}
	if other.PingInterval != 0 {
		c.PingInterval = other.PingInterval
	}
	if other.SendBuffer != 0 {
		c.SendBuffer = other.SendBuffer
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
}

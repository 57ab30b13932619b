package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// GroupConfig describes one group created at startup.
type GroupConfig struct {
	ID   string `mapstructure:"id" yaml:"id" validate:"required"`
	Name string `mapstructure:"name" yaml:"name" validate:"required"`
}

// Config holds server configuration values.
type Config struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port" validate:"min=0,max=65535"`
	HTTPAddr string `mapstructure:"http_addr" yaml:"http_addr"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	PublicGroup string        `mapstructure:"public_group" yaml:"public_group" validate:"required"`
	Groups      []GroupConfig `mapstructure:"groups" yaml:"groups" validate:"required,min=1,dive"`

	RecentMessages   int           `mapstructure:"recent_messages" yaml:"recent_messages" validate:"min=0"`
	NotifyQueueSize  int           `mapstructure:"notify_queue_size" yaml:"notify_queue_size" validate:"min=1"`
	MaxFrameBytes    int           `mapstructure:"max_frame_bytes" yaml:"max_frame_bytes" validate:"min=64"`
	CommandRateLimit int           `mapstructure:"command_rate_limit" yaml:"command_rate_limit" validate:"min=0"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Host:        "localhost",
		Port:        8888,
		LogLevel:    "info",
		PublicGroup: "public",
		Groups: []GroupConfig{
			{ID: "public", Name: "Public Message Board"},
			{ID: "tech", Name: "Technology Discussion"},
			{ID: "sports", Name: "Sports Talk"},
			{ID: "music", Name: "Music Lovers"},
			{ID: "books", Name: "Book Club"},
			{ID: "movies", Name: "Movie Reviews"},
		},
		RecentMessages:    2,
		NotifyQueueSize:   64,
		MaxFrameBytes:     64 << 10,
		WriteTimeout:      5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
	}
}

// Addr is the TCP listen address for the bulletin board protocol.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Host != "" {
		c.Host = other.Host
	}
	if other.Port != 0 {
		c.Port = other.Port
	}
	if other.HTTPAddr != "" {
		c.HTTPAddr = other.HTTPAddr
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.PublicGroup != "" {
		c.PublicGroup = other.PublicGroup
	}
	if len(other.Groups) > 0 {
		c.Groups = other.Groups
	}
	if other.RecentMessages != 0 {
		c.RecentMessages = other.RecentMessages
	}
	if other.NotifyQueueSize != 0 {
		c.NotifyQueueSize = other.NotifyQueueSize
	}
	if other.MaxFrameBytes != 0 {
		c.MaxFrameBytes = other.MaxFrameBytes
	}
	if other.CommandRateLimit != 0 {
		c.CommandRateLimit = other.CommandRateLimit
	}
	if other.WriteTimeout != 0 {
		c.WriteTimeout = other.WriteTimeout
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
}

// Validate checks field constraints and that the group catalog is coherent.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	seen := make(map[string]struct{}, len(c.Groups))
	for _, g := range c.Groups {
		if _, dup := seen[g.ID]; dup {
			return fmt.Errorf("invalid config: duplicate group id %q", g.ID)
		}
		seen[g.ID] = struct{}{}
	}
	if _, ok := seen[c.PublicGroup]; !ok {
		return fmt.Errorf("invalid config: public group %q is not in the group list", c.PublicGroup)
	}
	return nil
}

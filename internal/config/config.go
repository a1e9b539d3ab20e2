package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/vovakirdan/linechat/internal/core"
)

// Config holds server configuration values.
type Config struct {
	Addr                 string        `mapstructure:"addr" yaml:"addr"`
	AdminAddr            string        `mapstructure:"admin_addr" yaml:"admin_addr"`
	MaxConnections       int           `mapstructure:"max_connections" yaml:"max_connections"`
	DefaultRoom          string        `mapstructure:"default_room" yaml:"default_room"`
	DefaultRoomCapacity  int           `mapstructure:"default_room_capacity" yaml:"default_room_capacity"`
	RoomCapacity         int           `mapstructure:"room_capacity" yaml:"room_capacity"`
	MaxLineBytes         int           `mapstructure:"max_line_bytes" yaml:"max_line_bytes"`
	MaxPayloadLength     int           `mapstructure:"max_payload_length" yaml:"max_payload_length"`
	MaxNameLength        int           `mapstructure:"max_name_length" yaml:"max_name_length"`
	OutboxSize           int           `mapstructure:"outbox_size" yaml:"outbox_size"`
	MessagesPerMinute    int           `mapstructure:"messages_per_minute" yaml:"messages_per_minute"`
	AutoDeleteEmptyRooms bool          `mapstructure:"auto_delete_empty_rooms" yaml:"auto_delete_empty_rooms"`
	LogLevel             string        `mapstructure:"log_level" yaml:"log_level"`
	ReadHeaderTimeout    time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout      time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:                ":7000",
		AdminAddr:           ":8080",
		MaxConnections:      10,
		DefaultRoom:         "Main",
		DefaultRoomCapacity: 10,
		RoomCapacity:        5,
		MaxLineBytes:        4096,
		MaxPayloadLength:    1024,
		MaxNameLength:       32,
		OutboxSize:          64,
		LogLevel:            "info",
		ReadHeaderTimeout:   5 * time.Second,
		ShutdownTimeout:     5 * time.Second,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.AdminAddr != "" {
		c.AdminAddr = other.AdminAddr
	}
	if other.MaxConnections != 0 {
		c.MaxConnections = other.MaxConnections
	}
	if other.DefaultRoom != "" {
		c.DefaultRoom = other.DefaultRoom
	}
	if other.DefaultRoomCapacity != 0 {
		c.DefaultRoomCapacity = other.DefaultRoomCapacity
	}
	if other.RoomCapacity != 0 {
		c.RoomCapacity = other.RoomCapacity
	}
	if other.MaxLineBytes != 0 {
		c.MaxLineBytes = other.MaxLineBytes
	}
	if other.MaxPayloadLength != 0 {
		c.MaxPayloadLength = other.MaxPayloadLength
	}
	if other.MaxNameLength != 0 {
		c.MaxNameLength = other.MaxNameLength
	}
	if other.OutboxSize != 0 {
		c.OutboxSize = other.OutboxSize
	}
	if other.MessagesPerMinute != 0 {
		c.MessagesPerMinute = other.MessagesPerMinute
	}
	if other.AutoDeleteEmptyRooms {
		c.AutoDeleteEmptyRooms = true
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	limits := map[string]int{
		"max_connections":       c.MaxConnections,
		"default_room_capacity": c.DefaultRoomCapacity,
		"room_capacity":         c.RoomCapacity,
		"max_line_bytes":        c.MaxLineBytes,
		"max_payload_length":    c.MaxPayloadLength,
		"max_name_length":       c.MaxNameLength,
		"outbox_size":           c.OutboxSize,
		"messages_per_minute":   c.MessagesPerMinute,
	}
	for key, value := range limits {
		if value < 0 {
			return fmt.Errorf("%s must not be negative, got %d", key, value)
		}
	}
	return nil
}

// HubOptions maps the configuration onto core hub options.
func (c Config) HubOptions() core.Options {
	return core.Options{
		MaxConnections:       c.MaxConnections,
		DefaultRoom:          c.DefaultRoom,
		DefaultRoomCapacity:  c.DefaultRoomCapacity,
		RoomCapacity:         c.RoomCapacity,
		MaxPayloadLength:     c.MaxPayloadLength,
		MaxNameLength:        c.MaxNameLength,
		MessagesPerMinute:    c.MessagesPerMinute,
		AutoDeleteEmptyRooms: c.AutoDeleteEmptyRooms,
	}
}

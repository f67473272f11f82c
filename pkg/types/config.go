package types

import (
	"errors"
	"time"
)

// Config holds the resolved storage settings used by the database manager,
// the fallback slot, and the backup manager.
type Config struct {
	DataDir      string         `json:"data_dir" yaml:"data_dir"`
	DatabaseName string         `json:"database_name" yaml:"database_name"`
	ExportDir    string         `json:"export_dir" yaml:"export_dir"`
	Fallback     FallbackConfig `json:"fallback" yaml:"fallback"`
	AutoBackup   time.Duration  `json:"auto_backup" yaml:"auto_backup"`
}

// FallbackConfig selects where auto-backup and pre-reset snapshots live.
type FallbackConfig struct {
	Backend string      `json:"backend" yaml:"backend"`
	Dir     string      `json:"dir" yaml:"dir"`
	Redis   RedisConfig `json:"redis" yaml:"redis"`
}

// RedisConfig addresses a Redis fallback slot.
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	Prefix   string `json:"prefix" yaml:"prefix"`
}

// Supported fallback backends.
const (
	FallbackFile  = "file"
	FallbackRedis = "redis"
)

// DefaultDatabaseName is the fixed name of the local database.
const DefaultDatabaseName = "monitoring-system"

// DefaultAutoBackupInterval is the auto-backup period used when none is configured.
const DefaultAutoBackupInterval = 30 * time.Minute

// Config validation errors.
var (
	ErrDataDirEmpty    = errors.New("data directory must not be empty")
	ErrFallbackUnknown = errors.New("unknown fallback backend")
	ErrRedisAddrEmpty  = errors.New("redis fallback requires an address")
	ErrIntervalInvalid = errors.New("auto-backup interval must be positive")
)

var knownFallbacks = map[string]bool{
	FallbackFile:  true,
	FallbackRedis: true,
}

// Validate checks that the Config is well-formed. An empty fallback backend
// means FallbackFile.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return ErrDataDirEmpty
	}
	backend := c.Fallback.Backend
	if backend == "" {
		backend = FallbackFile
	}
	if !knownFallbacks[backend] {
		return ErrFallbackUnknown
	}
	if backend == FallbackRedis && c.Fallback.Redis.Addr == "" {
		return ErrRedisAddrEmpty
	}
	if c.AutoBackup < 0 {
		return ErrIntervalInvalid
	}
	return nil
}

// GetDatabaseName returns the configured database name or the default.
func (c Config) GetDatabaseName() string {
	if c.DatabaseName == "" {
		return DefaultDatabaseName
	}
	return c.DatabaseName
}

// GetAutoBackup returns the auto-backup interval or the default.
func (c Config) GetAutoBackup() time.Duration {
	if c.AutoBackup <= 0 {
		return DefaultAutoBackupInterval
	}
	return c.AutoBackup
}

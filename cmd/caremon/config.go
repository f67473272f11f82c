package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/caremon/internal/logging"
	"github.com/mesh-intelligence/caremon/internal/paths"
	"github.com/mesh-intelligence/caremon/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyDataDir        = "data_dir"
	cfgKeyDatabaseName   = "database_name"
	cfgKeyExportDir      = "export_dir"
	cfgKeyFallback       = "fallback.backend"
	cfgKeyFallbackDir    = "fallback.dir"
	cfgKeyRedisAddr      = "fallback.redis.addr"
	cfgKeyRedisPassword  = "fallback.redis.password"
	cfgKeyRedisDB        = "fallback.redis.db"
	cfgKeyRedisPrefix    = "fallback.redis.prefix"
	cfgKeyBackupInterval = "auto_backup.interval_minutes"
	cfgKeyLogLevel       = "log.level"
	cfgKeyLogFormat      = "log.format"

	defaultRedisPrefix = "caremon:"
	serviceName        = "caremon"
)

// configFile is the shape of config.yaml.
type configFile struct {
	DataDir      string               `json:"data_dir,omitempty" yaml:"data_dir,omitempty"`
	DatabaseName string               `json:"database_name" yaml:"database_name"`
	ExportDir    string               `json:"export_dir,omitempty" yaml:"export_dir,omitempty"`
	Fallback     types.FallbackConfig `json:"fallback" yaml:"fallback"`
	AutoBackup   struct {
		IntervalMinutes int `json:"interval_minutes" yaml:"interval_minutes"`
	} `json:"auto_backup" yaml:"auto_backup"`
	Log struct {
		Level  string `json:"level" yaml:"level"`
		Format string `json:"format" yaml:"format"`
	} `json:"log" yaml:"log"`
}

func defaultConfigFile() configFile {
	var c configFile
	c.DatabaseName = types.DefaultDatabaseName
	c.Fallback.Backend = types.FallbackFile
	c.Fallback.Redis.Prefix = defaultRedisPrefix
	c.AutoBackup.IntervalMinutes = int(types.DefaultAutoBackupInterval / time.Minute)
	c.Log.Level = "info"
	c.Log.Format = logging.FormatConsole
	return c
}

// settings is the fully resolved configuration of one invocation.
type settings struct {
	ConfigDir   string
	Storage     types.Config
	FallbackDir string
	LogLevel    string
	LogFormat   string
}

// loadSettings resolves directories, reads config.yaml, and builds the
// logger. The config directory and a default config.yaml are created on
// first run.
func (a *app) loadSettings() error {
	configDir, err := paths.ResolveConfigDir(a.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return err
	}

	dataDir, err := paths.ResolveDataDir(a.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	exportDir, err := paths.ResolveUnder(dataDir, v.GetString(cfgKeyExportDir), paths.ExportSubdir)
	if err != nil {
		return fmt.Errorf("resolve export dir: %w", err)
	}
	fallbackDir, err := paths.ResolveUnder(dataDir, v.GetString(cfgKeyFallbackDir), paths.FallbackSubdir)
	if err != nil {
		return fmt.Errorf("resolve fallback dir: %w", err)
	}

	s := &settings{
		ConfigDir: configDir,
		Storage: types.Config{
			DataDir:      dataDir,
			DatabaseName: v.GetString(cfgKeyDatabaseName),
			ExportDir:    exportDir,
			Fallback: types.FallbackConfig{
				Backend: v.GetString(cfgKeyFallback),
				Dir:     fallbackDir,
				Redis: types.RedisConfig{
					Addr:     v.GetString(cfgKeyRedisAddr),
					Password: v.GetString(cfgKeyRedisPassword),
					DB:       v.GetInt(cfgKeyRedisDB),
					Prefix:   v.GetString(cfgKeyRedisPrefix),
				},
			},
			AutoBackup: time.Duration(v.GetInt(cfgKeyBackupInterval)) * time.Minute,
		},
		FallbackDir: fallbackDir,
		LogLevel:    v.GetString(cfgKeyLogLevel),
		LogFormat:   v.GetString(cfgKeyLogFormat),
	}
	if err := s.Storage.Validate(); err != nil {
		return userError{fmt.Errorf("invalid configuration in %s: %w", filepath.Join(configDir, configFileExt), err)}
	}

	logger, err := logging.New(s.LogLevel, s.LogFormat, serviceName)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	a.settings = s
	a.logger = logger
	return nil
}

// loadConfig reads config.yaml from configDir using Viper, creating the
// directory and a default file first when they are missing.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if _, err := writeConfigIfMissing(filepath.Join(configDir, configFileExt), defaultConfigFile()); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	d := defaultConfigFile()
	v := viper.New()
	v.SetDefault(cfgKeyDatabaseName, d.DatabaseName)
	v.SetDefault(cfgKeyFallback, d.Fallback.Backend)
	v.SetDefault(cfgKeyRedisPrefix, d.Fallback.Redis.Prefix)
	v.SetDefault(cfgKeyBackupInterval, d.AutoBackup.IntervalMinutes)
	v.SetDefault(cfgKeyLogLevel, d.Log.Level)
	v.SetDefault(cfgKeyLogFormat, d.Log.Format)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, userError{fmt.Errorf("read config: %w", err)}
	}
	return v, nil
}

// writeConfigIfMissing writes cfg to path unless the file exists. It reports
// whether a file was written.
func writeConfigIfMissing(path string, cfg configFile) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# caremon configuration\n")
	return true, os.WriteFile(path, append(header, data...), 0o644)
}

func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.settings
			var out configFile
			out.DataDir = s.Storage.DataDir
			out.DatabaseName = s.Storage.GetDatabaseName()
			out.ExportDir = s.Storage.ExportDir
			out.Fallback = s.Storage.Fallback
			out.Fallback.Redis.Password = ""
			out.AutoBackup.IntervalMinutes = int(s.Storage.GetAutoBackup() / time.Minute)
			out.Log.Level = s.LogLevel
			out.Log.Format = s.LogFormat
			shared, _ := paths.DefaultDataDir()
			if a.jsonOut {
				return a.printJSON(map[string]any{
					"config_dir":      s.ConfigDir,
					"shared_data_dir": shared,
					"config":          out,
				})
			}
			data, err := yaml.Marshal(&out)
			if err != nil {
				return err
			}
			a.printf("# %s\n", filepath.Join(s.ConfigDir, configFileExt))
			if shared != "" {
				a.printf("# shared data dir: %s\n", shared)
			}
			a.printf("%s", data)
			return nil
		},
	})
	return cmd
}

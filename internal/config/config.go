// file: internal/config/config.go
// version: 1.1.0
// guid: b5c6d7e8-f9a0-4b1c-8d2e-3f4a5b6c7d8e

package config

import (
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	DataDir      string
	DatabasePath string
	ListenAddr   string
	MaxBackups   int
	LogLevel     string
}

var AppConfig Config

// InitConfig initializes the application configuration from viper
func InitConfig() {
	// Set defaults
	viper.SetDefault("listen_addr", "localhost:8080")
	viper.SetDefault("backup.max_backups", 10)
	viper.SetDefault("log_level", "info")

	AppConfig = Config{
		DataDir:      viper.GetString("data_dir"),
		DatabasePath: viper.GetString("database_path"),
		ListenAddr:   viper.GetString("listen_addr"),
		MaxBackups:   viper.GetInt("backup.max_backups"),
		LogLevel:     viper.GetString("log_level"),
	}

	if AppConfig.DatabasePath == "" {
		if AppConfig.DataDir != "" {
			AppConfig.DatabasePath = filepath.Join(AppConfig.DataDir, "booktrack.pebble")
		} else {
			AppConfig.DatabasePath = "booktrack.pebble"
		}
	}
	if AppConfig.DataDir == "" {
		AppConfig.DataDir = filepath.Dir(AppConfig.DatabasePath)
	}
}

// Package config manages the chat configuration and the settings of the
// running session.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "config")

const (
	// ConfigDirName is the name of the config directory
	ConfigDirName = ".lanchat"
	// ConfigFileName is the name of the config file
	ConfigFileName = "config.json"
	// LogFileName is the name of the log file in the logs directory
	LogFileName = "lanchat.log"

	// DefaultOwnColor is the color of own messages, as a packed RGB int
	DefaultOwnColor = -15987646
	// DefaultSysColor is the color of system messages
	DefaultSysColor = -16759040
)

// Environment variables overriding the config file
const (
	EnvNick          = "LANCHAT_NICK"
	EnvInterface     = "LANCHAT_INTERFACE"
	EnvNoPrivateChat = "LANCHAT_NO_PRIVATE_CHAT"
	EnvDownloadDir   = "LANCHAT_DOWNLOAD_DIR"
	EnvLogLevel      = "LANCHAT_LOG_LEVEL"
)

// Config holds the persisted configuration
type Config struct {
	// Nick is the preferred nick name. Empty uses the login name.
	Nick string `json:"nick,omitempty"`
	// OwnColor is the color of own messages
	OwnColor int `json:"own_color"`
	// SysColor is the color of system messages
	SysColor int `json:"sys_color"`
	// NetworkInterface is the name of the preferred interface
	NetworkInterface string `json:"network_interface,omitempty"`
	// NoPrivateChat disables private messages
	NoPrivateChat bool `json:"no_private_chat"`
	// DownloadDir is where received files are saved
	DownloadDir string `json:"download_dir,omitempty"`
	// LogLevel is a logrus level name
	LogLevel string `json:"log_level"`
	// AwayMessage is used by /away without a message
	AwayMessage string `json:"away_message,omitempty"`
}

// Paths holds commonly used paths
type Paths struct {
	// ConfigDir is ~/.lanchat
	ConfigDir string
	// ConfigFile is ~/.lanchat/config.json
	ConfigFile string
	// LogsDir is ~/.lanchat/logs
	LogsDir string
	// DownloadDir is ~/.lanchat/downloads
	DownloadDir string
}

// GetPaths returns the standard paths
func GetPaths() (*Paths, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return PathsIn(filepath.Join(homeDir, ConfigDirName)), nil
}

// PathsIn returns the paths rooted at configDir
func PathsIn(configDir string) *Paths {
	return &Paths{
		ConfigDir:   configDir,
		ConfigFile:  filepath.Join(configDir, ConfigFileName),
		LogsDir:     filepath.Join(configDir, "logs"),
		DownloadDir: filepath.Join(configDir, "downloads"),
	}
}

// LogFile is the path of the log file
func (p *Paths) LogFile() string {
	return filepath.Join(p.LogsDir, LogFileName)
}

// EnsureDirectories creates all required directories
func (p *Paths) EnsureDirectories() error {
	dirs := []string{p.ConfigDir, p.LogsDir, p.DownloadDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Default returns a new Config with default values
func Default() *Config {
	return &Config{
		OwnColor: DefaultOwnColor,
		SysColor: DefaultSysColor,
		LogLevel: "info",
	}
}

// Load loads configuration from the standard config file
func Load() (*Config, error) {
	paths, err := GetPaths()
	if err != nil {
		return nil, err
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, err
	}

	config, err := LoadFile(paths.ConfigFile)
	if err != nil {
		return nil, err
	}
	if config.DownloadDir == "" {
		config.DownloadDir = paths.DownloadDir
	}
	return config, nil
}

// LoadFile loads configuration from path. A missing file gives the defaults.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// Save saves configuration to the standard config file
func (c *Config) Save() error {
	paths, err := GetPaths()
	if err != nil {
		return err
	}
	return c.SaveFile(paths.ConfigFile)
}

// SaveFile saves configuration to path
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadEnv reads a .env file from the working directory, if any, into the
// process environment. Variables already set are kept.
func LoadEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("load .env file")
	}
}

// ApplyEnv overrides fields with the LANCHAT_* environment variables
func (c *Config) ApplyEnv() {
	if v, ok := os.LookupEnv(EnvNick); ok {
		c.Nick = v
	}
	if v, ok := os.LookupEnv(EnvInterface); ok {
		c.NetworkInterface = v
	}
	if v, ok := os.LookupEnv(EnvNoPrivateChat); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			log.WithError(err).Warnf("ignore %s", EnvNoPrivateChat)
		} else {
			c.NoPrivateChat = b
		}
	}
	if v, ok := os.LookupEnv(EnvDownloadDir); ok {
		c.DownloadDir = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		c.LogLevel = v
	}
}

package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the main configuration for the archive publisher.
// Site, build and path settings are read flat from config.yaml, the same
// layout the site directory scaffold writes.
type Config struct {
	Site     SiteConfig     `yaml:",inline"`
	Build    BuildConfig    `yaml:",inline"`
	Paths    PathsConfig    `yaml:",inline"`
	Database DatabaseConfig `yaml:",inline"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// SiteConfig contains the metadata published with the site and its feeds
type SiteConfig struct {
	Group           string `yaml:"group"`
	SiteURL         string `yaml:"site_url"`
	SiteName        string `yaml:"site_name"`
	SiteDescription string `yaml:"site_description"`
}

// BuildConfig contains the pagination and publishing switches
type BuildConfig struct {
	NewOnTop          bool `yaml:"new_on_top"`
	PerPage           int  `yaml:"per_page"`
	IncrementalBuilds bool `yaml:"incremental_builds"`
	ShowDayIndex      bool `yaml:"show_day_index"`
	PublishRSSFeed    bool `yaml:"publish_rss_feed"`
	RSSFeedEntries    int  `yaml:"rss_feed_entries"`
	Symlink           bool `yaml:"symlink"`
}

// PathsConfig contains input and output locations
type PathsConfig struct {
	PublishDir  string `yaml:"publish_dir"`
	StaticDir   string `yaml:"static_dir"`
	MediaDir    string `yaml:"media_dir"`
	TemplateDir string `yaml:"template_dir"`
}

// DatabaseConfig contains database-related configuration
type DatabaseConfig struct {
	Path string `yaml:"data"`
}

// ServerConfig contains preview server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// LogConfig contains logger configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the configuration used when no file or
// environment override is present.
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			SiteURL:         "https://localhost",
			SiteName:        "@{group} (Telegram) archive",
			SiteDescription: "Public archive of @{group} Telegram messages.",
		},
		Build: BuildConfig{
			NewOnTop:          false,
			PerPage:           1000,
			IncrementalBuilds: false,
			ShowDayIndex:      false,
			PublishRSSFeed:    true,
			RSSFeedEntries:    100,
		},
		Paths: PathsConfig{
			PublishDir: "site",
			StaticDir:  "static",
			MediaDir:   "media",
		},
		Database: DatabaseConfig{
			Path: "data.sqlite",
		},
		Server: ServerConfig{
			Port: 4000,
			Host: "127.0.0.1",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from a YAML file and then applies
// ARCHIVE_* environment overrides. An empty path skips the file; a
// missing file at an explicit path is an error.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, NewConfigurationError(fmt.Sprintf("config file %s not found", path), err)
			}
			return nil, NewConfigurationError("failed to read config file", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, NewConfigurationError("failed to parse config file", err)
		}
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) applyEnv() {
	c.Site.Group = getEnvOrDefault("ARCHIVE_GROUP", c.Site.Group)
	c.Site.SiteURL = getEnvOrDefault("ARCHIVE_SITE_URL", c.Site.SiteURL)
	c.Site.SiteName = getEnvOrDefault("ARCHIVE_SITE_NAME", c.Site.SiteName)
	c.Site.SiteDescription = getEnvOrDefault("ARCHIVE_SITE_DESCRIPTION", c.Site.SiteDescription)

	c.Build.NewOnTop = getEnvAsBool("ARCHIVE_NEW_ON_TOP", c.Build.NewOnTop)
	c.Build.PerPage = getEnvAsInt("ARCHIVE_PER_PAGE", c.Build.PerPage)
	c.Build.IncrementalBuilds = getEnvAsBool("ARCHIVE_INCREMENTAL_BUILDS", c.Build.IncrementalBuilds)
	c.Build.ShowDayIndex = getEnvAsBool("ARCHIVE_SHOW_DAY_INDEX", c.Build.ShowDayIndex)
	c.Build.PublishRSSFeed = getEnvAsBool("ARCHIVE_PUBLISH_RSS_FEED", c.Build.PublishRSSFeed)
	c.Build.RSSFeedEntries = getEnvAsInt("ARCHIVE_RSS_FEED_ENTRIES", c.Build.RSSFeedEntries)
	c.Build.Symlink = getEnvAsBool("ARCHIVE_SYMLINK", c.Build.Symlink)

	c.Paths.PublishDir = getEnvOrDefault("ARCHIVE_PUBLISH_DIR", c.Paths.PublishDir)
	c.Paths.StaticDir = getEnvOrDefault("ARCHIVE_STATIC_DIR", c.Paths.StaticDir)
	c.Paths.MediaDir = getEnvOrDefault("ARCHIVE_MEDIA_DIR", c.Paths.MediaDir)
	c.Paths.TemplateDir = getEnvOrDefault("ARCHIVE_TEMPLATE_DIR", c.Paths.TemplateDir)

	c.Database.Path = getEnvOrDefault("ARCHIVE_DB_PATH", c.Database.Path)

	c.Server.Port = getEnvAsInt("ARCHIVE_PORT", c.Server.Port)
	c.Server.Host = getEnvOrDefault("ARCHIVE_HOST", c.Server.Host)

	c.Log.Level = getEnvOrDefault("ARCHIVE_LOG_LEVEL", c.Log.Level)
}

// Validate validates the settings every command depends on. Build
// settings are validated by the archive feature.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return NewConfigurationError(fmt.Sprintf("invalid server port: %d", c.Server.Port), nil)
	}

	if c.Database.Path == "" {
		return NewConfigurationError("database path is required", nil)
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return NewConfigurationError("invalid log level", err)
	}

	return nil
}

// SiteTitle expands the {group} placeholder in the configured site name.
func (c *Config) SiteTitle() string {
	return strings.ReplaceAll(c.Site.SiteName, "{group}", c.Site.Group)
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return defaultValue
}

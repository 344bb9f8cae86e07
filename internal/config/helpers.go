package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/statlens/statlens/internal/analytics/anomaly"
)

// EnsureDirectories ensures all required directories exist
func (c *Config) EnsureDirectories() error {
	var dirs []string
	if c.Archive.Type == "" || c.Archive.Type == "file" {
		dirs = append(dirs, c.Archive.Dir)
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}

// GetArchivePath returns the full path for a file in the report archive
func (c *Config) GetArchivePath(filename string) string {
	return filepath.Join(c.Archive.Dir, filename)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Logging.Level == "debug" && c.Logging.Format == "console"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Logging.Level == "info" && c.Logging.Format == "json"
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HTTPPort)
}

// DetectorConfig converts the analytics section into detector tunables
func (c *AnalyticsConfig) DetectorConfig() anomaly.Config {
	return anomaly.Config{
		ZScoreThreshold:      c.ZScoreThreshold,
		ZScoreMinPoints:      c.ZScoreMinPoints,
		IQRMinPoints:         c.IQRMinPoints,
		IQRMultiplier:        c.IQRMultiplier,
		IQRExtremeMultiplier: c.IQRExtremeMultiplier,
	}
}

package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeGrouping()
	c.normalizeGeocode()
	c.normalizeWatch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeGrouping() {
	c.Grouping.GroupDirName = strings.TrimSpace(c.Grouping.GroupDirName)
	if c.Grouping.GroupDirName == "" {
		c.Grouping.GroupDirName = defaultGroupDirName
	}
	if c.Grouping.MinGroupSize == 0 {
		c.Grouping.MinGroupSize = defaultMinGroupSize
	}
}

func (c *Config) normalizeGeocode() {
	c.Geocode.BaseURL = strings.TrimRight(strings.TrimSpace(c.Geocode.BaseURL), "/")
	if c.Geocode.BaseURL == "" {
		c.Geocode.BaseURL = defaultGeocodeBaseURL
	}
	c.Geocode.UserAgent = strings.TrimSpace(c.Geocode.UserAgent)
	if c.Geocode.UserAgent == "" {
		c.Geocode.UserAgent = defaultGeocodeUserAgent
	}
	c.Geocode.Language = strings.ToLower(strings.TrimSpace(c.Geocode.Language))
	if c.Geocode.Language == "" {
		c.Geocode.Language = defaultGeocodeLanguage
	}
	if c.Geocode.Zoom == 0 {
		c.Geocode.Zoom = defaultGeocodeZoom
	}
	if c.Geocode.TimeoutSeconds <= 0 {
		c.Geocode.TimeoutSeconds = defaultGeocodeTimeout
	}
	if c.Geocode.RateLimitMS < 0 {
		c.Geocode.RateLimitMS = defaultGeocodeRateMS
	}
}

func (c *Config) normalizeWatch() {
	if c.Watch.QuietSeconds <= 0 {
		c.Watch.QuietSeconds = defaultWatchQuiet
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

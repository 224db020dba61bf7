package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateGrouping(); err != nil {
		return err
	}
	if err := c.validateGeocode(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateGrouping() error {
	if c.Grouping.ThresholdSeconds <= 0 {
		return fmt.Errorf("grouping.threshold_seconds must be positive, got %g", c.Grouping.ThresholdSeconds)
	}
	if c.Grouping.MinGroupSize < 1 {
		return fmt.Errorf("grouping.min_group_size must be at least 1, got %d", c.Grouping.MinGroupSize)
	}
	if strings.ContainsAny(c.Grouping.GroupDirName, `/\`) {
		return fmt.Errorf("grouping.group_dir_name must be a bare directory name, got %q", c.Grouping.GroupDirName)
	}
	return nil
}

func (c *Config) validateGeocode() error {
	if !c.Geocode.Enabled {
		return nil
	}
	if !strings.HasPrefix(c.Geocode.BaseURL, "http://") && !strings.HasPrefix(c.Geocode.BaseURL, "https://") {
		return fmt.Errorf("geocode.base_url must be an http(s) URL, got %q", c.Geocode.BaseURL)
	}
	if c.Geocode.Zoom < 1 || c.Geocode.Zoom > 18 {
		return fmt.Errorf("geocode.zoom must be between 1 and 18, got %d", c.Geocode.Zoom)
	}
	if c.Geocode.UserAgent == "" {
		return errors.New("geocode.user_agent must be set when geocoding is enabled")
	}
	return nil
}

func (c *Config) validateWatch() error {
	if c.Watch.QuietSeconds < 1 {
		return fmt.Errorf("watch.quiet_seconds must be at least 1, got %d", c.Watch.QuietSeconds)
	}
	return nil
}

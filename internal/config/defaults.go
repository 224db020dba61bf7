package config

const (
	defaultLogDir           = "~/.local/share/shootsort/logs"
	defaultStateDir         = "~/.local/share/shootsort"
	defaultThresholdSeconds = 1.0
	defaultMinGroupSize     = 5
	defaultGroupDirName     = "_groups"
	defaultGeocodeBaseURL   = "https://nominatim.openstreetmap.org"
	defaultGeocodeUserAgent = "shootsort (https://github.com/shootsort/shootsort)"
	defaultGeocodeLanguage  = "en"
	defaultGeocodeZoom      = 16
	defaultGeocodeTimeout   = 5
	defaultGeocodeRateMS    = 1000
	defaultWatchQuiet       = 30
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Grouping: Grouping{
			ThresholdSeconds: defaultThresholdSeconds,
			MinGroupSize:     defaultMinGroupSize,
			Recurse:          false,
			GroupDirName:     defaultGroupDirName,
		},
		Geocode: Geocode{
			Enabled:        true,
			BaseURL:        defaultGeocodeBaseURL,
			UserAgent:      defaultGeocodeUserAgent,
			Language:       defaultGeocodeLanguage,
			Zoom:           defaultGeocodeZoom,
			TimeoutSeconds: defaultGeocodeTimeout,
			RateLimitMS:    defaultGeocodeRateMS,
		},
		History: History{
			Enabled: true,
		},
		Watch: Watch{
			QuietSeconds: defaultWatchQuiet,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
